package booking

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"tellme/internal/apiclient"
	"tellme/internal/core"
)

const bookingsPath = "/bookings/"

// Doer performs a backend request; *apiclient.Client satisfies it
type Doer interface {
	Do(ctx context.Context, req apiclient.Request) (*apiclient.Response, error)
}

// Booker submits booking requests to the backend
type Booker struct {
	api    Doer
	logger *slog.Logger
}

// NewBooker creates a submitter over the authenticated client
func NewBooker(api Doer, logger *slog.Logger) *Booker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Booker{api: api, logger: logger.With("component", "booker")}
}

// Submit posts the booking and parses the confirmation
func (b *Booker) Submit(ctx context.Context, req core.BookingRequest) (*core.Confirmation, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid booking request: %w", err)
	}

	resp, err := b.api.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   bookingsPath,
		JSON:   req,
		Auth:   apiclient.AuthRequired,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit booking: %w", err)
	}

	var conf core.Confirmation
	if err := resp.Decode(&conf); err != nil {
		return nil, fmt.Errorf("failed to parse booking confirmation: %w", err)
	}
	conf.Raw = append([]byte(nil), resp.Body...)

	b.logger.Info("booking created",
		"booking_id", conf.ID,
		"service_id", req.ServiceID,
		"date", req.Date,
		"start_time", req.StartTime,
	)
	return &conf, nil
}

// Record is a booking as listed back by the backend
type Record struct {
	ID        core.ID `json:"id"`
	Status    string  `json:"status"`
	ServiceID core.ID `json:"service"`
	Provider  core.ID `json:"provider"`
	Date      string  `json:"date"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Notes     string  `json:"notes"`
}

// List returns the signed-in customer's bookings
func (b *Booker) List(ctx context.Context) ([]Record, error) {
	resp, err := b.api.Do(ctx, apiclient.Request{
		Method: http.MethodGet,
		Path:   bookingsPath,
		Auth:   apiclient.AuthRequired,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	var records []Record
	if err := resp.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to parse bookings: %w", err)
	}
	return records, nil
}

var _ Submitter = (*Booker)(nil)
