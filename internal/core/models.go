package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format for booking dates
const DateLayout = "2006-01-02"

// ID is a backend identifier. The backend mixes integer primary keys and
// string slugs, so both JSON forms are accepted.
type ID string

// UnmarshalJSON accepts a JSON string, number or null
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", string(data), err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits integer-looking IDs as JSON numbers so the backend's
// foreign-key fields receive the type they expect
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsNumeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// IsNumeric reports whether the ID is a non-negative integer literal
func (id ID) IsNumeric() bool {
	if id == "" {
		return false
	}
	_, err := strconv.ParseUint(string(id), 10, 64)
	return err == nil
}

// String returns the raw identifier
func (id ID) String() string {
	return string(id)
}

// Credentials is the access/refresh token pair issued at login
type Credentials struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

// HasAccess reports whether an access token is present
func (c *Credentials) HasAccess() bool {
	return c != nil && c.AccessToken != ""
}

// HasRefresh reports whether a refresh token is present
func (c *Credentials) HasRefresh() bool {
	return c != nil && c.RefreshToken != ""
}

// ServiceOffering is a provider's listing of one service
type ServiceOffering struct {
	ID              ID     `json:"id"`
	Title           string `json:"title"`
	Price           string `json:"price"`
	ProviderID      ID     `json:"provider_id"`
	ProviderName    string `json:"provider_name"`
	ProviderLogoURL string `json:"provider_logo"`
	Address         string `json:"address"`
}

// Slot is one bookable time window on a date
type Slot struct {
	Label     string `json:"label"`
	StartTime string `json:"start_time"` // HH:MM:SS
	EndTime   string `json:"end_time"`   // HH:MM:SS
}

// BookingRequest is the body of POST /bookings/
type BookingRequest struct {
	ServiceID  ID     `json:"service"`
	ProviderID ID     `json:"provider,omitempty"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Notes      string `json:"notes"`
}

// WithoutProvider returns a copy of the request with the provider omitted
func (r BookingRequest) WithoutProvider() BookingRequest {
	r.ProviderID = ""
	return r
}

// Validate validates a BookingRequest
func (r BookingRequest) Validate() error {
	if r.ServiceID == "" {
		return ErrMissingService
	}
	if _, err := ParseDate(r.Date); err != nil {
		return err
	}
	if r.StartTime == "" || r.EndTime == "" {
		return ErrMissingSlotTimes
	}
	return nil
}

// Confirmation is the backend's acknowledgement of a booking
type Confirmation struct {
	ID              ID              `json:"id"`
	Status          string          `json:"status"`
	ProviderOmitted bool            `json:"-"`
	Raw             json.RawMessage `json:"-"`
}

// ParseDate parses a YYYY-MM-DD booking date
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}
