package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"tellme/internal/core"
	"tellme/internal/sandbox"
	"tellme/internal/timefmt"

	"github.com/gin-gonic/gin"
)

// VendorsHandler serves the vendor onboarding endpoints
type VendorsHandler struct {
	store  *sandbox.Store
	logger *slog.Logger
}

// NewVendorsHandler creates a new vendors handler
func NewVendorsHandler(store *sandbox.Store, logger *slog.Logger) *VendorsHandler {
	return &VendorsHandler{store: store, logger: logger}
}

// Categories lists the directory categories
// GET /categories/
func (h *VendorsHandler) Categories(c *gin.Context) {
	cats := h.store.Categories()
	results := make([]gin.H, 0, len(cats))
	for _, cat := range cats {
		results = append(results, gin.H{
			"id":   core.ID(formatPK(cat.ID)),
			"name": cat.Name,
			"slug": cat.Slug,
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// CreateProvider stores the signed-in vendor's provider profile from a
// multipart form
// POST /providers/create/
func (h *VendorsHandler) CreateProvider(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxOrderMemory); err != nil {
		abortDetail(c, http.StatusBadRequest, "Expected multipart form data")
		return
	}

	in := sandbox.ProviderInput{
		Name:        c.PostForm("name"),
		Address:     c.PostForm("address"),
		Lat:         c.PostForm("lat"),
		Lng:         c.PostForm("lng"),
		OpenTime:    c.PostForm("open_time"),
		CloseTime:   c.PostForm("close_time"),
		Charges:     c.PostForm("charges"),
		Description: c.PostForm("description"),
	}
	if raw := c.PostForm("category_id"); raw != "" {
		if in.CategoryID = parsePK(core.ID(raw)); in.CategoryID == 0 {
			abortField(c, http.StatusBadRequest, "category_id", "Invalid pk \""+raw+"\" - object does not exist.")
			return
		}
	}
	interval, err := strconv.Atoi(strings.TrimSpace(c.PostForm("slot_interval")))
	if err != nil {
		abortField(c, http.StatusBadRequest, "slot_interval", "A valid integer is required.")
		return
	}
	in.SlotInterval = interval
	if raw := c.PostForm("open_days"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.OpenDays); err != nil {
			abortField(c, http.StatusBadRequest, "open_days", "Expected a JSON list of days.")
			return
		}
	}
	if logo, err := c.FormFile("logo"); err == nil {
		in.Logo = "/media/providers/" + logo.Filename
	}

	provider, err := h.store.CreateProvider(currentUser(c), in)
	switch {
	case errors.Is(err, sandbox.ErrNotProvider):
		abortDetail(c, http.StatusForbidden, "Only provider accounts can create a provider profile.")
		return
	case errors.Is(err, sandbox.ErrProviderExists):
		abortDetail(c, http.StatusBadRequest, "Provider profile already exists.")
		return
	case errors.Is(err, sandbox.ErrCategoryNotFound):
		abortField(c, http.StatusBadRequest, "category_id", "Invalid pk - object does not exist.")
		return
	case errors.Is(err, sandbox.ErrInvalidProvider):
		abortDetail(c, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		abortDetail(c, http.StatusNotFound, "Not found.")
		return
	}

	h.logger.Info("Provider created",
		"component", "sandbox",
		"provider_id", provider.ID,
		"category_id", provider.CategoryID,
	)
	c.JSON(http.StatusCreated, providerJSON(provider))
}

func providerJSON(p *sandbox.Provider) gin.H {
	days := make([]string, 0, len(p.OpenDays))
	for _, d := range p.OpenDays {
		// DayNames starts at Monday
		days = append(days, timefmt.DayNames[(int(d)+6)%7])
	}
	out := gin.H{
		"id":            core.ID(formatPK(p.ID)),
		"name":          p.Name,
		"logo":          p.Logo,
		"address":       p.Address,
		"lat":           p.Lat,
		"lng":           p.Lng,
		"open_time":     p.OpenTime,
		"close_time":    p.CloseTime,
		"slot_interval": p.SlotInterval,
		"open_days":     days,
		"charges":       p.Charges,
		"description":   p.Description,
	}
	if p.CategoryID != 0 {
		out["category_id"] = core.ID(formatPK(p.CategoryID))
	}
	return out
}
