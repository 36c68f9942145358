package logging

import (
	"context"
	"log/slog"
	"time"

	"tellme/internal/booking"
	"tellme/internal/core"
	"tellme/internal/favorites"
)

// SlotSourceLogger wraps a SlotSource and logs every lookup
type SlotSourceLogger struct {
	source booking.SlotSource
	logger *slog.Logger
}

// NewSlotSourceLogger creates a new logging decorator for a SlotSource
func NewSlotSourceLogger(source booking.SlotSource, logger *slog.Logger) booking.SlotSource {
	return &SlotSourceLogger{
		source: source,
		logger: logger.With("interface", "SlotSource"),
	}
}

func (l *SlotSourceLogger) ListSlots(ctx context.Context, providerID, serviceID core.ID, date string) []core.Slot {
	start := time.Now()
	l.logger.Debug("ListSlots called",
		"provider_id", providerID,
		"service_id", serviceID,
		"date", date)

	slots := l.source.ListSlots(ctx, providerID, serviceID, date)

	l.logger.Debug("ListSlots completed",
		"provider_id", providerID,
		"service_id", serviceID,
		"date", date,
		"count", len(slots),
		"duration", time.Since(start))

	return slots
}

// SubmitterLogger wraps a Submitter and logs every booking request
type SubmitterLogger struct {
	submitter booking.Submitter
	logger    *slog.Logger
}

// NewSubmitterLogger creates a new logging decorator for a Submitter
func NewSubmitterLogger(submitter booking.Submitter, logger *slog.Logger) booking.Submitter {
	return &SubmitterLogger{
		submitter: submitter,
		logger:    logger.With("interface", "Submitter"),
	}
}

func (l *SubmitterLogger) Submit(ctx context.Context, req core.BookingRequest) (*core.Confirmation, error) {
	start := time.Now()
	l.logger.Info("Submit called",
		"service_id", req.ServiceID,
		"provider_id", req.ProviderID,
		"date", req.Date,
		"start_time", req.StartTime)

	conf, err := l.submitter.Submit(ctx, req)
	duration := time.Since(start)

	if err != nil {
		l.logger.Error("Submit failed",
			"service_id", req.ServiceID,
			"provider_id", req.ProviderID,
			"date", req.Date,
			"duration", duration,
			"error", err)
		return nil, err
	}

	l.logger.Info("Submit completed",
		"service_id", req.ServiceID,
		"booking_id", conf.ID,
		"status", conf.Status,
		"duration", duration)

	return conf, nil
}

// TogglerLogger wraps a favorites Toggler
type TogglerLogger struct {
	toggler favorites.Toggler
	logger  *slog.Logger
}

// NewTogglerLogger creates a new logging decorator for a Toggler
func NewTogglerLogger(toggler favorites.Toggler, logger *slog.Logger) favorites.Toggler {
	return &TogglerLogger{
		toggler: toggler,
		logger:  logger.With("interface", "Toggler"),
	}
}

func (l *TogglerLogger) Toggle(ctx context.Context, serviceID core.ID) (bool, error) {
	start := time.Now()
	l.logger.Info("Toggle called", "service_id", serviceID)

	saved, err := l.toggler.Toggle(ctx, serviceID)
	duration := time.Since(start)

	if err != nil {
		l.logger.Error("Toggle failed",
			"service_id", serviceID,
			"duration", duration,
			"error", err)
		return saved, err
	}

	l.logger.Info("Toggle completed",
		"service_id", serviceID,
		"saved", saved,
		"duration", duration)

	return saved, nil
}
