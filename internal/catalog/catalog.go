// Package catalog reads provider offerings and per-date slots from the
// backend and normalizes the loosely shaped payloads into core types.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"tellme/internal/apiclient"
	"tellme/internal/core"
)

const (
	slotsPath     = "/bookings/slots/"
	providersPath = "/services/providers/by-service/"

	// DefaultMediaBaseURL prefixes relative logo paths
	DefaultMediaBaseURL = "http://127.0.0.1:8000"
)

var ErrMissingSlug = errors.New("service slug is required")

// Doer performs a backend request; *apiclient.Client satisfies it
type Doer interface {
	Do(ctx context.Context, req apiclient.Request) (*apiclient.Response, error)
}

// Catalog is a read-only view of the backend's offerings and slots
type Catalog struct {
	api       Doer
	mediaBase string
	logger    *slog.Logger
}

// New creates a catalog. An empty mediaBase uses DefaultMediaBaseURL.
func New(api Doer, mediaBase string, logger *slog.Logger) *Catalog {
	if mediaBase == "" {
		mediaBase = DefaultMediaBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		api:       api,
		mediaBase: strings.TrimRight(mediaBase, "/"),
		logger:    logger.With("component", "catalog"),
	}
}

// ListSlots returns the slots offered for (provider, service, date). It never
// fails: missing identifiers, HTTP errors and undecodable bodies all yield an
// empty, non-nil slice.
func (c *Catalog) ListSlots(ctx context.Context, providerID, serviceID core.ID, date string) []core.Slot {
	slots := []core.Slot{}
	if providerID == "" || serviceID == "" || date == "" {
		return slots
	}

	query := url.Values{}
	query.Set("provider_id", providerID.String())
	query.Set("service_id", serviceID.String())
	query.Set("date", date)

	resp, err := c.api.Do(ctx, apiclient.Request{
		Method: http.MethodGet,
		Path:   slotsPath,
		Query:  query,
		Auth:   apiclient.AuthNone,
	})
	if err != nil {
		c.logger.Warn("failed to fetch slots",
			"provider_id", providerID,
			"service_id", serviceID,
			"date", date,
			"error", err,
		)
		return slots
	}

	items, err := listItems(resp.Body, "slots", "results")
	if err != nil {
		c.logger.Warn("failed to decode slots", "date", date, "error", err)
		return slots
	}

	for _, raw := range items {
		slot, err := normalizeSlot(raw)
		if err != nil {
			c.logger.Debug("dropping slot", "raw", string(raw), "error", err)
			continue
		}
		slots = append(slots, slot)
	}
	return slots
}

// ProvidersByService lists every provider offering the service with the given slug
func (c *Catalog) ProvidersByService(ctx context.Context, slug string) ([]core.ServiceOffering, error) {
	if slug == "" {
		return nil, ErrMissingSlug
	}

	resp, err := c.api.Do(ctx, apiclient.Request{
		Method: http.MethodGet,
		Path:   providersPath,
		Query:  url.Values{"slug": {slug}},
		Auth:   apiclient.AuthNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list providers for %s: %w", slug, err)
	}

	items, err := listItems(resp.Body, "results")
	if err != nil {
		return nil, fmt.Errorf("failed to decode providers for %s: %w", slug, err)
	}

	offerings := make([]core.ServiceOffering, 0, len(items))
	for _, raw := range items {
		offering, err := c.normalizeOffering(raw)
		if err != nil {
			c.logger.Debug("dropping offering", "slug", slug, "error", err)
			continue
		}
		offerings = append(offerings, offering)
	}
	return offerings, nil
}

// listItems accepts a bare JSON array or an object wrapping one under any of keys
func listItems(body []byte, keys ...string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err == nil {
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	for _, key := range keys {
		raw, ok := envelope[key]
		if !ok || string(raw) == "null" {
			continue
		}
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("field %q is not a list: %w", key, err)
		}
		return items, nil
	}
	return []json.RawMessage{}, nil
}
