package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy shared by every client component
var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrSessionExpired     = errors.New("session expired")
	ErrMalformedTimeLabel = errors.New("malformed time label")
	ErrInvalidState       = errors.New("invalid state")
	ErrInvalidDate        = errors.New("invalid date")
	ErrSlotNotOffered     = fmt.Errorf("%w: slot not offered for the selected date", ErrInvalidState)
	ErrMissingService     = errors.New("service ID is required")
	ErrMissingSlotTimes   = errors.New("slot start and end times are required")
)

// maxErrorBody bounds how much of a response body ends up in an error string
const maxErrorBody = 256

// HTTPError is a non-2xx response other than the handled 401 path
type HTTPError struct {
	Status int
	Body   []byte
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	if detail := e.Detail(); detail != "" {
		body = detail
	}
	if body == "" {
		return fmt.Sprintf("API error %d", e.Status)
	}
	return fmt.Sprintf("API error %d: %s", e.Status, body)
}

// Detail returns the backend's "detail" (or "error") message, if any
func (e *HTTPError) Detail() string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(e.Body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"detail", "error", "message"} {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return string(raw)
	}
	return ""
}

// HasField reports whether the body is a JSON object with the given
// top-level key, which is how the backend reports field validation errors
func (e *HTTPError) HasField(name string) bool {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(e.Body, &payload); err != nil {
		return false
	}
	_, ok := payload[name]
	return ok
}

// Mentions reports whether the detail message contains word, case-insensitively
func (e *HTTPError) Mentions(word string) bool {
	return strings.Contains(strings.ToLower(e.Detail()), strings.ToLower(word))
}

// NetworkError is a transport-level failure (no HTTP response was received)
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// AsHTTPError extracts an *HTTPError from err
func AsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}
