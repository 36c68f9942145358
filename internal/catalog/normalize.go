package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tellme/internal/core"
	"tellme/internal/timefmt"
)

var errNoLabel = errors.New("slot has neither a label nor start and end times")

type rawSlot struct {
	Label        string `json:"label"`
	StartTime    string `json:"start_time"`
	Start        string `json:"start"`
	StartTimeStr string `json:"start_time_str"`
	EndTime      string `json:"end_time"`
	End          string `json:"end"`
	EndTimeStr   string `json:"end_time_str"`
}

// normalizeSlot turns one backend slot (an object or a bare label string)
// into a core.Slot with canonical wire times
func normalizeSlot(raw json.RawMessage) (core.Slot, error) {
	var rs rawSlot
	var label string
	if err := json.Unmarshal(raw, &label); err == nil {
		rs.Label = label
	} else if err := json.Unmarshal(raw, &rs); err != nil {
		return core.Slot{}, fmt.Errorf("failed to decode slot: %w", err)
	}

	start := firstNonEmpty(rs.StartTime, rs.Start, rs.StartTimeStr)
	end := firstNonEmpty(rs.EndTime, rs.End, rs.EndTimeStr)
	label = strings.TrimSpace(rs.Label)

	if start == "" || end == "" {
		if label == "" {
			return core.Slot{}, errNoLabel
		}
		r, err := timefmt.SplitRangeLabel(label)
		if err != nil {
			return core.Slot{}, err
		}
		start = firstNonEmpty(start, r.Start)
		end = firstNonEmpty(end, r.End)
	}

	startWire, err := timefmt.NormalizeWire(start)
	if err != nil {
		return core.Slot{}, err
	}
	endWire, err := timefmt.NormalizeWire(end)
	if err != nil {
		return core.Slot{}, err
	}

	if label == "" {
		label = rangeLabel(startWire, endWire)
	}

	return core.Slot{Label: label, StartTime: startWire, EndTime: endWire}, nil
}

func rangeLabel(startWire, endWire string) string {
	start, err := timefmt.To12Hour(startWire)
	if err != nil {
		start = startWire
	}
	end, err := timefmt.To12Hour(endWire)
	if err != nil {
		end = endWire
	}
	return start + timefmt.RangeSeparator + end
}

type rawProvider struct {
	ID      core.ID `json:"id"`
	Name    string  `json:"name"`
	Logo    string  `json:"logo"`
	Address string  `json:"address"`
}

type rawOffering struct {
	ID           core.ID         `json:"id"`
	Title        string          `json:"title"`
	ServiceTitle string          `json:"service_title"`
	Name         string          `json:"name"`
	Price        json.RawMessage `json:"price"`
	ProviderID   core.ID         `json:"provider_id"`
	ProviderName string          `json:"provider_name"`
	ProviderLogo string          `json:"provider_logo"`
	Address      string          `json:"address"`
	Provider     json.RawMessage `json:"provider"`
}

// normalizeOffering applies the field fallbacks the listing endpoints need:
// several serializers expose the same offering with different shapes
func (c *Catalog) normalizeOffering(raw json.RawMessage) (core.ServiceOffering, error) {
	var ro rawOffering
	if err := json.Unmarshal(raw, &ro); err != nil {
		return core.ServiceOffering{}, fmt.Errorf("failed to decode offering: %w", err)
	}
	if ro.ID == "" {
		return core.ServiceOffering{}, errors.New("offering has no id")
	}

	// provider is either a nested object or a bare primary key
	var nested rawProvider
	var providerPK core.ID
	if len(ro.Provider) > 0 && string(ro.Provider) != "null" {
		if ro.Provider[0] == '{' {
			if err := json.Unmarshal(ro.Provider, &nested); err != nil {
				return core.ServiceOffering{}, fmt.Errorf("failed to decode provider: %w", err)
			}
		} else if err := json.Unmarshal(ro.Provider, &providerPK); err != nil {
			return core.ServiceOffering{}, fmt.Errorf("failed to decode provider: %w", err)
		}
	}

	return core.ServiceOffering{
		ID:              ro.ID,
		Title:           firstNonEmpty(ro.Title, ro.ServiceTitle, ro.Name),
		Price:           priceString(ro.Price),
		ProviderID:      core.ID(firstNonEmpty(ro.ProviderID.String(), nested.ID.String(), providerPK.String())),
		ProviderName:    firstNonEmpty(ro.ProviderName, nested.Name),
		ProviderLogoURL: c.mediaURL(firstNonEmpty(ro.ProviderLogo, nested.Logo)),
		Address:         firstNonEmpty(ro.Address, nested.Address),
	}, nil
}

// mediaURL resolves a relative media path against the media base
func (c *Catalog) mediaURL(path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.mediaBase + path
}

// priceString keeps decimal prices as the backend formatted them
func priceString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
