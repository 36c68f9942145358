package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"tellme/internal/idgen"
)

// Gateway collects a payment for a checkout and returns the callback. The
// real gateway runs in the customer's browser; this is its seam.
type Gateway interface {
	Collect(ctx context.Context, checkout Checkout) (Callback, error)
}

// Receipt records every step of a completed payment
type Receipt struct {
	Order        Order
	Checkout     Checkout
	Callback     Callback
	Verification Verification
}

// Flow runs order → checkout → collect → verify
type Flow struct {
	client *Client
	logger *slog.Logger
}

func NewFlow(client *Client, logger *slog.Logger) *Flow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Flow{client: client, logger: logger.With("component", "payment-flow")}
}

// Pay places the order and pays for it through gw
func (f *Flow) Pay(ctx context.Context, form OrderForm, gw Gateway) (*Receipt, error) {
	order, err := f.client.CreateOrder(ctx, form)
	if err != nil {
		return nil, err
	}

	checkout, err := f.client.StartPayment(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	f.logger.Info("collecting payment",
		"order_id", order.ID,
		"gateway_order_id", checkout.GatewayOrderID,
		"amount", checkout.Amount,
		"currency", checkout.Currency,
	)
	cb, err := gw.Collect(ctx, *checkout)
	if err != nil {
		return nil, fmt.Errorf("failed to collect payment for order %s: %w", order.ID, err)
	}
	if cb.GatewayOrderID != checkout.GatewayOrderID {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrGatewayMismatch, checkout.GatewayOrderID, cb.GatewayOrderID)
	}

	verification, err := f.client.VerifyPayment(ctx, order.ID, cb)
	if err != nil {
		return nil, err
	}

	f.logger.Info("payment verified", "order_id", order.ID, "status", verification.Status)
	return &Receipt{
		Order:        *order,
		Checkout:     *checkout,
		Callback:     cb,
		Verification: *verification,
	}, nil
}

// Sign computes the gateway signature of a payment:
// hex(HMAC-SHA256(secret, gatewayOrderID + "|" + paymentID))
func Sign(secret, gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a callback against the shared secret
func VerifySignature(secret string, cb Callback) bool {
	expected := Sign(secret, cb.GatewayOrderID, cb.PaymentID)
	return hmac.Equal([]byte(expected), []byte(cb.Signature))
}

// SimulatedGateway approves every checkout, signing with the shared secret.
// It stands in for the hosted checkout against the sandbox backend.
type SimulatedGateway struct {
	Secret string
}

func (g SimulatedGateway) Collect(ctx context.Context, checkout Checkout) (Callback, error) {
	if err := ctx.Err(); err != nil {
		return Callback{}, err
	}
	paymentID := idgen.NewPayment()
	return Callback{
		PaymentID:      paymentID,
		GatewayOrderID: checkout.GatewayOrderID,
		Signature:      Sign(g.Secret, checkout.GatewayOrderID, paymentID),
	}, nil
}
