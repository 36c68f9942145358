package booking

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"tellme/internal/core"
)

// State is a booking session's position in the selection workflow
type State int

const (
	StateIdle State = iota
	StateDateSelected
	StateSlotsLoaded
	StateSlotSelected
	StateSubmitting
	StateConfirmed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDateSelected:
		return "date_selected"
	case StateSlotsLoaded:
		return "slots_loaded"
	case StateSlotSelected:
		return "slot_selected"
	case StateSubmitting:
		return "submitting"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Reason classifies a failed submission for display
type Reason int

const (
	ReasonUnknown Reason = iota
	ReasonAuthRequired
	ReasonSlotConflict
	ReasonRejected
	ReasonUnavailable
)

func (r Reason) String() string {
	switch r {
	case ReasonAuthRequired:
		return "auth_required"
	case ReasonSlotConflict:
		return "slot_conflict"
	case ReasonRejected:
		return "rejected"
	case ReasonUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Failure is the terminal error of a submission
type Failure struct {
	Reason Reason
	Err    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("booking failed (%s): %v", f.Reason, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Message is a customer-facing explanation of the failure
func (f *Failure) Message() string {
	switch f.Reason {
	case ReasonAuthRequired:
		return "Your session has expired. Please log in again."
	case ReasonSlotConflict:
		return "That slot is no longer available. Please pick another time."
	case ReasonRejected:
		if httpErr, ok := core.AsHTTPError(f.Err); ok {
			if detail := httpErr.Detail(); detail != "" {
				return "The booking was rejected: " + detail
			}
		}
		return "The booking was rejected."
	case ReasonUnavailable:
		return "The booking service is unavailable. Please try again later."
	default:
		return "Booking failed."
	}
}

// Outcome is the result of Submit: a confirmation or a failure
type Outcome struct {
	State        State
	Confirmation *core.Confirmation
	Failure      *Failure
}

// Classify maps a submission error to a Reason
func Classify(err error) Reason {
	if errors.Is(err, core.ErrSessionExpired) || errors.Is(err, core.ErrNotAuthenticated) {
		return ReasonAuthRequired
	}

	if httpErr, ok := core.AsHTTPError(err); ok {
		switch {
		case httpErr.Status == http.StatusUnauthorized || httpErr.Status == http.StatusForbidden:
			return ReasonAuthRequired
		case httpErr.Status == http.StatusConflict:
			return ReasonSlotConflict
		case httpErr.Status == http.StatusBadRequest && (httpErr.Mentions("slot") || httpErr.Mentions("already booked")):
			return ReasonSlotConflict
		case httpErr.Status >= 400 && httpErr.Status < 500:
			return ReasonRejected
		case httpErr.Status >= 500:
			return ReasonUnavailable
		}
		return ReasonUnknown
	}

	var netErr *core.NetworkError
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ReasonUnavailable
	}
	return ReasonUnknown
}

// providerRejected reports whether the backend refused the provider field
func providerRejected(err error) bool {
	httpErr, ok := core.AsHTTPError(err)
	if !ok || httpErr.Status != http.StatusBadRequest {
		return false
	}
	return httpErr.HasField("provider") || httpErr.Mentions("provider")
}
