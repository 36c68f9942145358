package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"tellme/internal/core"
	"tellme/internal/sandbox"
	"tellme/internal/timefmt"

	"github.com/gin-gonic/gin"
)

// CatalogHandler serves provider listings and open slots
type CatalogHandler struct {
	store *sandbox.Store
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(store *sandbox.Store) *CatalogHandler {
	return &CatalogHandler{store: store}
}

// ProvidersByService lists every provider offering a service
// GET /services/providers/by-service/?slug=car-wash
func (h *CatalogHandler) ProvidersByService(c *gin.Context) {
	slug := c.Query("slug")
	if slug == "" {
		abortField(c, http.StatusBadRequest, "slug", "This field is required.")
		return
	}

	views := h.store.OfferingsBySlug(slug)
	results := make([]gin.H, 0, len(views))
	for _, v := range views {
		results = append(results, gin.H{
			"id":            v.Offering.ID,
			"title":         v.Offering.Title,
			"price":         v.Offering.Price,
			"provider_id":   v.Provider.ID,
			"provider_name": v.Provider.Name,
			"provider_logo": v.Provider.Logo,
			"address":       v.Provider.Address,
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// Slots lists the open windows of an offering on a date
// GET /bookings/slots/?provider_id=1&service_id=4&date=2025-03-10
func (h *CatalogHandler) Slots(c *gin.Context) {
	providerID, err1 := strconv.ParseInt(c.Query("provider_id"), 10, 64)
	serviceID, err2 := strconv.ParseInt(c.Query("service_id"), 10, 64)
	if err1 != nil || err2 != nil {
		abortDetail(c, http.StatusBadRequest, "provider_id and service_id are required")
		return
	}

	windows, err := h.store.Slots(providerID, serviceID, c.Query("date"))
	switch {
	case errors.Is(err, core.ErrInvalidDate):
		abortField(c, http.StatusBadRequest, "date", "Date has wrong format. Use YYYY-MM-DD.")
		return
	case errors.Is(err, sandbox.ErrOfferingNotFound), errors.Is(err, sandbox.ErrProviderMismatch):
		abortDetail(c, http.StatusNotFound, "Service not found for this provider")
		return
	case err != nil:
		abortDetail(c, http.StatusInternalServerError, "Failed to list slots")
		return
	}

	slots := make([]gin.H, 0, len(windows))
	for _, w := range windows {
		slots = append(slots, gin.H{
			"label":      slotLabel(w),
			"start_time": w.Start,
			"end_time":   w.End,
		})
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

func slotLabel(w sandbox.Window) string {
	start, err := timefmt.To12Hour(w.Start)
	if err != nil {
		start = w.Start
	}
	end, err := timefmt.To12Hour(w.End)
	if err != nil {
		end = w.End
	}
	return start + timefmt.RangeSeparator + end
}
