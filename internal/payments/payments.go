// Package payments places barcode orders and runs their gateway checkout:
// create order, open checkout, collect the callback, verify it server-side.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"tellme/internal/apiclient"
	"tellme/internal/core"
)

const ordersPath = "/barcodes/orders/"

var (
	ErrInvalidOrder        = errors.New("invalid barcode order")
	ErrMissingOrderID      = errors.New("order id is required")
	ErrMissingGatewayOrder = errors.New("payment initialization returned no gateway order id")
	ErrGatewayMismatch     = errors.New("gateway callback is for a different order")
)

// Doer performs a backend request; *apiclient.Client satisfies it
type Doer interface {
	Do(ctx context.Context, req apiclient.Request) (*apiclient.Response, error)
}

// AssetType is the kind of asset the barcode is ordered for
type AssetType string

const (
	AssetHome       AssetType = "home"
	AssetProperty   AssetType = "property"
	AssetElectronic AssetType = "electronic"
	AssetCar        AssetType = "car"
	AssetBike       AssetType = "bike"
	AssetOther      AssetType = "other"
)

// Notifications is who to contact when the barcode is scanned
type Notifications struct {
	Purpose     string `json:"purpose"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

// Image is an optional photo of the asset
type Image struct {
	Filename string
	Data     []byte
}

// OrderForm is a barcode order as submitted by the customer
type OrderForm struct {
	Type          AssetType
	Company       string
	Model         string
	OwnerName     string
	Price         string
	Notifications Notifications
	// Details are typed sub-fields such as "home_detail.address"
	Details map[string]string
	Image   *Image
}

// HomeDetails builds the detail fields of home and property orders
func HomeDetails(address, propertyType, areaSqft string) map[string]string {
	return map[string]string{
		"home_detail.address":       address,
		"home_detail.property_type": propertyType,
		"home_detail.area_sqft":     areaSqft,
	}
}

// ElectronicDetails builds the detail fields of electronic and other orders
func ElectronicDetails(serialNumber, warrantyTill, purchaseDate string) map[string]string {
	return map[string]string{
		"electronic_detail.serial_number": serialNumber,
		"electronic_detail.warranty_till": warrantyTill,
		"electronic_detail.purchase_date": purchaseDate,
	}
}

func (f OrderForm) Validate() error {
	switch f.Type {
	case AssetHome, AssetProperty, AssetElectronic, AssetCar, AssetBike, AssetOther:
	default:
		return fmt.Errorf("%w: unknown asset type %q", ErrInvalidOrder, f.Type)
	}
	if f.OwnerName == "" {
		return fmt.Errorf("%w: owner name is required", ErrInvalidOrder)
	}
	return nil
}

func (f OrderForm) multipart() (*apiclient.Multipart, error) {
	notifications, err := json.Marshal(f.Notifications)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notifications: %w", err)
	}

	form := &apiclient.Multipart{}
	form.Add("type", string(f.Type))
	form.Add("company", f.Company)
	form.Add("model", f.Model)
	form.Add("owner_name", f.OwnerName)
	if f.Price != "" {
		form.Add("price", f.Price)
	}
	form.Add("notifications", string(notifications))
	for _, name := range sortedKeys(f.Details) {
		form.Add(name, f.Details[name])
	}
	if f.Image != nil {
		form.AddFile("image", f.Image.Filename, f.Image.Data)
	}
	return form, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Order is a created barcode order
type Order struct {
	ID     core.ID `json:"id"`
	Status string  `json:"status"`
}

// Checkout is what the gateway needs to collect a payment
type Checkout struct {
	GatewayOrderID string `json:"razorpay_order_id"`
	Key            string `json:"key"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
}

// Callback is the gateway's proof of payment
type Callback struct {
	PaymentID      string `json:"razorpay_payment_id"`
	GatewayOrderID string `json:"razorpay_order_id"`
	Signature      string `json:"razorpay_signature"`
}

// Verification is the backend's verdict on a callback
type Verification struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Client talks to the barcode order endpoints
type Client struct {
	api    Doer
	logger *slog.Logger
}

func NewClient(api Doer, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{api: api, logger: logger.With("component", "payments")}
}

// CreateOrder submits the order form as multipart
func (c *Client) CreateOrder(ctx context.Context, form OrderForm) (*Order, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	body, err := form.multipart()
	if err != nil {
		return nil, err
	}

	var order Order
	if err := c.doJSON(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   ordersPath,
		Form:   body,
		Auth:   apiclient.AuthRequired,
	}, &order); err != nil {
		return nil, fmt.Errorf("failed to create barcode order: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("failed to create barcode order: %w", ErrMissingOrderID)
	}

	c.logger.Info("barcode order created", "order_id", order.ID, "type", form.Type)
	return &order, nil
}

// StartPayment opens a gateway order for the barcode order
func (c *Client) StartPayment(ctx context.Context, orderID core.ID) (*Checkout, error) {
	if orderID == "" {
		return nil, ErrMissingOrderID
	}

	var checkout Checkout
	if err := c.doJSON(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   ordersPath + orderID.String() + "/create_razorpay_order/",
		Auth:   apiclient.AuthRequired,
	}, &checkout); err != nil {
		return nil, fmt.Errorf("failed to start payment for order %s: %w", orderID, err)
	}
	if checkout.GatewayOrderID == "" {
		return nil, ErrMissingGatewayOrder
	}
	return &checkout, nil
}

// VerifyPayment hands the gateway callback to the backend for verification
func (c *Client) VerifyPayment(ctx context.Context, orderID core.ID, cb Callback) (*Verification, error) {
	if orderID == "" {
		return nil, ErrMissingOrderID
	}

	var v Verification
	if err := c.doJSON(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   ordersPath + orderID.String() + "/verify_payment/",
		JSON:   cb,
		Auth:   apiclient.AuthRequired,
	}, &v); err != nil {
		return nil, fmt.Errorf("failed to verify payment for order %s: %w", orderID, err)
	}
	return &v, nil
}

func (c *Client) doJSON(ctx context.Context, req apiclient.Request, result any) error {
	resp, err := c.api.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.Decode(result)
}
