// Package booking drives one customer's date → slot → submit workflow for a
// single service offering.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tellme/internal/core"
	"tellme/internal/idgen"
	"tellme/internal/observability/metrics"
	"tellme/internal/tokens"
)

var (
	// ErrSuperseded is returned by SelectDate when a newer date selection
	// (or a Reset) happened while its slots were being fetched
	ErrSuperseded = errors.New("date selection superseded")

	ErrMissingDependency = errors.New("booking session dependency is missing")
)

// SlotSource lists the slots for one (provider, service, date)
type SlotSource interface {
	ListSlots(ctx context.Context, providerID, serviceID core.ID, date string) []core.Slot
}

// Submitter sends a booking request to the backend
type Submitter interface {
	Submit(ctx context.Context, req core.BookingRequest) (*core.Confirmation, error)
}

// Deps are the collaborators of a session
type Deps struct {
	Slots    SlotSource
	Bookings Submitter
	Tokens   tokens.Store
	Logger   *slog.Logger
	Metrics  *metrics.ClientMetrics
}

// Session is the booking state machine for one offering. It is safe for
// concurrent use; slot fetches and submissions run without holding the lock.
type Session struct {
	id       string
	offering core.ServiceOffering
	deps     Deps
	logger   *slog.Logger

	mu       sync.Mutex
	state    State
	date     string
	slots    []core.Slot
	selected *core.Slot
	outcome  *Outcome
	// generation increases on every date change and reset; in-flight work
	// tagged with an older generation is discarded when it returns
	generation uint64
}

// Snapshot is a point-in-time copy of a session for rendering
type Snapshot struct {
	ID       string
	State    State
	Date     string
	Slots    []core.Slot
	Selected *core.Slot
	Outcome  *Outcome
}

// NewSession creates an idle session for the offering
func NewSession(offering core.ServiceOffering, deps Deps) (*Session, error) {
	if offering.ID == "" {
		return nil, core.ErrMissingService
	}
	if deps.Slots == nil || deps.Bookings == nil || deps.Tokens == nil {
		return nil, ErrMissingDependency
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	id := idgen.NewBookingSession()
	return &Session{
		id:       id,
		offering: offering,
		deps:     deps,
		logger: deps.Logger.With(
			"component", "booking",
			"session_id", id,
			"service_id", offering.ID,
			"provider_id", offering.ProviderID,
		),
	}, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Offering() core.ServiceOffering {
	return s.offering
}

// SelectDate clears slots and selection, then fetches the date's slots.
// Reselecting the date that is already loaded returns the loaded slots.
func (s *Session) SelectDate(ctx context.Context, date string) ([]core.Slot, error) {
	if _, err := core.ParseDate(date); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot change date while submitting", core.ErrInvalidState)
	}
	if s.state == StateSlotsLoaded && s.date == date {
		slots := copySlots(s.slots)
		s.mu.Unlock()
		return slots, nil
	}

	s.generation++
	gen := s.generation
	s.state = StateDateSelected
	s.date = date
	s.slots = nil
	s.selected = nil
	s.outcome = nil
	s.mu.Unlock()

	s.logger.Debug("fetching slots", "date", date)
	slots := s.deps.Slots.ListSlots(ctx, s.offering.ProviderID, s.offering.ID, date)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen {
		s.logger.Debug("discarding stale slots", "date", date)
		return nil, ErrSuperseded
	}
	s.slots = copySlots(slots)
	s.state = StateSlotsLoaded

	s.logger.Debug("slots loaded", "date", date, "count", len(slots))
	return copySlots(s.slots), nil
}

// SelectSlot picks one of the slots fetched for the current date
func (s *Session) SelectSlot(slot core.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSlotsLoaded && s.state != StateSlotSelected {
		return fmt.Errorf("%w: cannot select a slot in state %s", core.ErrInvalidState, s.state)
	}

	for i := range s.slots {
		if s.slots[i] == slot {
			selected := s.slots[i]
			s.selected = &selected
			s.state = StateSlotSelected
			return nil
		}
	}
	return fmt.Errorf("%w: %s on %s", core.ErrSlotNotOffered, slot.Label, s.date)
}

// SelectSlotLabel selects the loaded slot with the given label
func (s *Session) SelectSlotLabel(label string) error {
	s.mu.Lock()
	var match *core.Slot
	for i := range s.slots {
		if s.slots[i].Label == label {
			slot := s.slots[i]
			match = &slot
			break
		}
	}
	date := s.date
	s.mu.Unlock()

	if match == nil {
		return fmt.Errorf("%w: %s on %s", core.ErrSlotNotOffered, label, date)
	}
	return s.SelectSlot(*match)
}

// Submit books the selected slot. Guard violations return an error and leave
// the state untouched; backend outcomes are reported in the Outcome.
func (s *Session) Submit(ctx context.Context, notes string) (*Outcome, error) {
	s.mu.Lock()
	if s.state != StateSlotSelected || s.selected == nil {
		state := s.state
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot submit in state %s", core.ErrInvalidState, state)
	}
	if !s.deps.Tokens.Get(ctx).HasAccess() {
		s.mu.Unlock()
		return nil, core.ErrNotAuthenticated
	}

	req := core.BookingRequest{
		ServiceID:  s.offering.ID,
		ProviderID: s.offering.ProviderID,
		Date:       s.date,
		StartTime:  s.selected.StartTime,
		EndTime:    s.selected.EndTime,
		Notes:      notes,
	}
	s.state = StateSubmitting
	gen := s.generation
	s.mu.Unlock()

	start := time.Now()
	outcome := s.submit(ctx, req)

	s.mu.Lock()
	if s.generation == gen {
		s.state = outcome.State
		s.outcome = outcome
	}
	s.mu.Unlock()

	reason := ""
	if outcome.Failure != nil {
		reason = outcome.Failure.Reason.String()
		s.logger.Warn("booking failed",
			"date", req.Date,
			"start_time", req.StartTime,
			"reason", reason,
			"error", outcome.Failure.Err,
			"duration", time.Since(start),
		)
	} else {
		s.logger.Info("booking confirmed",
			"date", req.Date,
			"start_time", req.StartTime,
			"booking_id", outcome.Confirmation.ID,
			"provider_omitted", outcome.Confirmation.ProviderOmitted,
			"duration", time.Since(start),
		)
	}
	s.deps.Metrics.ObserveBooking(outcome.State.String(), reason)

	return outcome, nil
}

// submit posts the request, retrying once without the provider when the
// backend rejects that field
func (s *Session) submit(ctx context.Context, req core.BookingRequest) *Outcome {
	conf, err := s.deps.Bookings.Submit(ctx, req)
	omitted := false
	if err != nil && req.ProviderID != "" && providerRejected(err) {
		s.logger.Info("backend rejected provider field, retrying without it", "error", err)
		conf, err = s.deps.Bookings.Submit(ctx, req.WithoutProvider())
		omitted = true
	}

	if err != nil {
		return &Outcome{
			State:   StateFailed,
			Failure: &Failure{Reason: Classify(err), Err: err},
		}
	}
	if conf == nil {
		conf = &core.Confirmation{}
	}
	conf.ProviderOmitted = omitted
	return &Outcome{State: StateConfirmed, Confirmation: conf}
}

// Reset returns the session to Idle and discards any in-flight results
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.state = StateIdle
	s.date = ""
	s.slots = nil
	s.selected = nil
	s.outcome = nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:      s.id,
		State:   s.state,
		Date:    s.date,
		Slots:   copySlots(s.slots),
		Outcome: s.outcome,
	}
	if s.selected != nil {
		selected := *s.selected
		snap.Selected = &selected
	}
	return snap
}

func copySlots(slots []core.Slot) []core.Slot {
	out := make([]core.Slot, len(slots))
	copy(out, slots)
	return out
}
