package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"tellme/internal/payments"
	"tellme/internal/sandbox"

	"github.com/gin-gonic/gin"
)

// maxOrderMemory bounds the in-memory part of a multipart order form
const maxOrderMemory = 8 << 20

// BarcodesHandler takes barcode orders and settles their payments
type BarcodesHandler struct {
	store         *sandbox.Store
	gatewayKey    string
	gatewaySecret string
	logger        *slog.Logger
}

// NewBarcodesHandler creates a new barcodes handler. gatewaySecret verifies
// payment callback signatures.
func NewBarcodesHandler(store *sandbox.Store, gatewayKey, gatewaySecret string, logger *slog.Logger) *BarcodesHandler {
	return &BarcodesHandler{
		store:         store,
		gatewayKey:    gatewayKey,
		gatewaySecret: gatewaySecret,
		logger:        logger,
	}
}

// CreateOrder stores a multipart order form
// POST /barcodes/orders/
func (h *BarcodesHandler) CreateOrder(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxOrderMemory); err != nil {
		abortDetail(c, http.StatusBadRequest, "Expected multipart form data")
		return
	}
	owner := c.PostForm("owner_name")
	if owner == "" {
		abortField(c, http.StatusBadRequest, "owner_name", "This field is required.")
		return
	}

	details := make(map[string]string)
	for name, values := range c.Request.MultipartForm.Value {
		if strings.Contains(name, "_detail.") && len(values) > 0 {
			details[name] = values[0]
		}
	}
	_, imgErr := c.FormFile("image")

	order := h.store.CreateOrder(sandbox.Order{
		UserID:        currentUser(c),
		Type:          c.PostForm("type"),
		Company:       c.PostForm("company"),
		Model:         c.PostForm("model"),
		OwnerName:     owner,
		Price:         c.PostForm("price"),
		Notifications: c.PostForm("notifications"),
		Details:       details,
		HasImage:      imgErr == nil,
	})

	h.logger.Info("Barcode order created",
		"component", "sandbox",
		"order_id", order.ID,
		"type", order.Type,
		"has_image", order.HasImage,
	)
	c.JSON(http.StatusCreated, gin.H{"id": order.ID, "status": order.Status})
}

// StartPayment opens a gateway order for a barcode order
// POST /barcodes/orders/:id/create_razorpay_order/
func (h *BarcodesHandler) StartPayment(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abortDetail(c, http.StatusNotFound, "Not found.")
		return
	}

	order, err := h.store.StartPayment(currentUser(c), id)
	if err != nil {
		abortDetail(c, http.StatusNotFound, "Not found.")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"razorpay_order_id": order.GatewayOrderID,
		"key":               h.gatewayKey,
		"amount":            order.Amount,
		"currency":          "INR",
	})
}

// VerifyPayment checks the gateway callback signature and marks the order paid
// POST /barcodes/orders/:id/verify_payment/
func (h *BarcodesHandler) VerifyPayment(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abortDetail(c, http.StatusNotFound, "Not found.")
		return
	}

	var cb payments.Callback
	if err := c.ShouldBindJSON(&cb); err != nil {
		abortDetail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !payments.VerifySignature(h.gatewaySecret, cb) {
		h.logger.Warn("Payment signature mismatch", "component", "sandbox", "order_id", id)
		abortDetail(c, http.StatusBadRequest, "Signature mismatch")
		return
	}

	order, err := h.store.CompletePayment(currentUser(c), id, cb.GatewayOrderID, cb.PaymentID)
	switch {
	case errors.Is(err, sandbox.ErrOrderNotFound):
		abortDetail(c, http.StatusNotFound, "Not found.")
		return
	case errors.Is(err, sandbox.ErrPaymentMismatch):
		abortDetail(c, http.StatusBadRequest, "Payment does not match this order")
		return
	case err != nil:
		abortDetail(c, http.StatusInternalServerError, "Failed to verify payment")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": order.Status, "message": "Payment verified"})
}
