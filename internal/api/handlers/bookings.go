package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"tellme/internal/core"
	"tellme/internal/sandbox"

	"github.com/gin-gonic/gin"
)

// BookingsHandler creates and lists bookings
type BookingsHandler struct {
	store *sandbox.Store

	// rejectProvider makes the handler refuse bookings that name a
	// provider, like backends that derive it from the service
	rejectProvider bool
	logger         *slog.Logger
}

// NewBookingsHandler creates a new bookings handler
func NewBookingsHandler(store *sandbox.Store, rejectProvider bool, logger *slog.Logger) *BookingsHandler {
	return &BookingsHandler{store: store, rejectProvider: rejectProvider, logger: logger}
}

type bookingRequest struct {
	Service   core.ID `json:"service"`
	Provider  core.ID `json:"provider"`
	Date      string  `json:"date"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Notes     string  `json:"notes"`
}

// Create books a slot for the signed-in user
// POST /bookings/
func (h *BookingsHandler) Create(c *gin.Context) {
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDetail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if h.rejectProvider && req.Provider != "" {
		abortField(c, http.StatusBadRequest, "provider", "Invalid pk \""+req.Provider.String()+"\" - object does not exist.")
		return
	}
	serviceID := parsePK(req.Service)
	if serviceID == 0 {
		abortField(c, http.StatusBadRequest, "service", "This field is required.")
		return
	}
	var providerID int64
	if req.Provider != "" {
		if providerID = parsePK(req.Provider); providerID == 0 {
			abortField(c, http.StatusBadRequest, "provider", "Incorrect type. Expected pk value.")
			return
		}
	}

	b, err := h.store.Book(currentUser(c), sandbox.BookingInput{
		ServiceID:  serviceID,
		ProviderID: providerID,
		Date:       req.Date,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Notes:      req.Notes,
	})
	switch {
	case errors.Is(err, core.ErrInvalidDate):
		abortField(c, http.StatusBadRequest, "date", "Date has wrong format. Use YYYY-MM-DD.")
		return
	case errors.Is(err, sandbox.ErrOfferingNotFound):
		abortField(c, http.StatusBadRequest, "service", "Invalid pk - object does not exist.")
		return
	case errors.Is(err, sandbox.ErrProviderMismatch):
		abortField(c, http.StatusBadRequest, "provider", "Invalid Provider for this service")
		return
	case errors.Is(err, sandbox.ErrSlotTaken):
		abortDetail(c, http.StatusConflict, "Slot already booked")
		return
	case errors.Is(err, sandbox.ErrSlotUnavailable):
		abortDetail(c, http.StatusBadRequest, "Selected slot is not available")
		return
	case err != nil:
		h.logger.Error("Failed to create booking", "component", "sandbox", "error", err)
		abortDetail(c, http.StatusInternalServerError, "Failed to create booking")
		return
	}

	h.logger.Info("Booking created",
		"component", "sandbox",
		"booking_id", b.ID,
		"service_id", b.ServiceID,
		"date", b.Date,
		"start_time", b.StartTime,
	)
	c.JSON(http.StatusCreated, bookingJSON(*b))
}

// List returns the signed-in user's bookings
// GET /bookings/
func (h *BookingsHandler) List(c *gin.Context) {
	bookings := h.store.Bookings(currentUser(c))
	out := make([]gin.H, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, bookingJSON(b))
	}
	c.JSON(http.StatusOK, out)
}

func bookingJSON(b sandbox.Booking) gin.H {
	return gin.H{
		"id":         b.ID,
		"status":     b.Status,
		"service":    b.ServiceID,
		"provider":   b.ProviderID,
		"date":       b.Date,
		"start_time": b.StartTime,
		"end_time":   b.EndTime,
		"notes":      b.Notes,
		"created_at": b.CreatedAt,
	}
}
