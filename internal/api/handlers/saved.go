package handlers

import (
	"errors"
	"net/http"

	"tellme/internal/core"
	"tellme/internal/sandbox"

	"github.com/gin-gonic/gin"
)

// SavedHandler manages a user's saved services
type SavedHandler struct {
	store *sandbox.Store
}

// NewSavedHandler creates a new saved services handler
func NewSavedHandler(store *sandbox.Store) *SavedHandler {
	return &SavedHandler{store: store}
}

// List returns the saved services
// GET /saved/profile/saved-services/
func (h *SavedHandler) List(c *gin.Context) {
	views := h.store.Saved(currentUser(c))
	out := make([]gin.H, 0, len(views))
	for _, v := range views {
		out = append(out, gin.H{
			"service":    v.Offering.ID,
			"service_id": v.Offering.ID,
			"name":       v.Offering.Title,
			"company":    v.Provider.Name,
			"image":      v.Provider.Logo,
		})
	}
	c.JSON(http.StatusOK, out)
}

type toggleRequest struct {
	Service core.ID `json:"service"`
}

// Toggle flips whether a service is saved
// POST /saved/save-service/
func (h *SavedHandler) Toggle(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil || parsePK(req.Service) == 0 {
		abortField(c, http.StatusBadRequest, "service", "This field is required.")
		return
	}

	saved, err := h.store.ToggleSaved(currentUser(c), parsePK(req.Service))
	if errors.Is(err, sandbox.ErrOfferingNotFound) {
		abortDetail(c, http.StatusNotFound, "Service not found")
		return
	}
	if err != nil {
		abortDetail(c, http.StatusInternalServerError, "Failed to save service")
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": saved})
}
