// Package favorites keeps the customer's saved services and flips them
// optimistically, rolling back when the backend refuses.
package favorites

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"tellme/internal/apiclient"
	"tellme/internal/core"
	"tellme/internal/observability/metrics"
	"tellme/internal/tokens"
)

const (
	savedListPath = "/saved/profile/saved-services/"
	togglePath    = "/saved/save-service/"
)

// Doer performs a backend request; *apiclient.Client satisfies it
type Doer interface {
	Do(ctx context.Context, req apiclient.Request) (*apiclient.Response, error)
}

// Toggler flips a service's saved flag
type Toggler interface {
	Toggle(ctx context.Context, serviceID core.ID) (bool, error)
}

// SavedService is one entry of the saved list
type SavedService struct {
	ServiceID core.ID `json:"service"`
	Name      string  `json:"name,omitempty"`
	Company   string  `json:"company,omitempty"`
	Image     string  `json:"image,omitempty"`
}

func (s *SavedService) UnmarshalJSON(data []byte) error {
	var raw struct {
		Service   core.ID `json:"service"`
		ServiceID core.ID `json:"service_id"`
		Name      string  `json:"name"`
		Company   string  `json:"company"`
		Image     string  `json:"image"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.ServiceID = raw.Service
	if s.ServiceID == "" {
		s.ServiceID = raw.ServiceID
	}
	s.Name, s.Company, s.Image = raw.Name, raw.Company, raw.Image
	return nil
}

// ChangeFunc observes a change of one service's saved flag
type ChangeFunc func(serviceID core.ID, saved bool)

// Favorites is the saved-state of the signed-in customer
type Favorites struct {
	api     Doer
	tokens  tokens.Store
	logger  *slog.Logger
	metrics *metrics.ClientMetrics

	mu        sync.Mutex
	saved     map[core.ID]bool
	toggles   map[core.ID]*toggleState
	observers []ChangeFunc
}

// toggleState tracks the requests of one service. confirmed is the last
// flag the server reported; it only moves forward in version order.
type toggleState struct {
	version          uint64
	pending          int
	confirmed        bool
	confirmedVersion uint64
	latestFailed     bool
}

// New creates an empty saved-state
func New(api Doer, store tokens.Store, logger *slog.Logger, m *metrics.ClientMetrics) *Favorites {
	if logger == nil {
		logger = slog.Default()
	}
	return &Favorites{
		api:      api,
		tokens:   store,
		logger:   logger.With("component", "favorites"),
		metrics:  m,
		saved:    make(map[core.ID]bool),
		toggles:  make(map[core.ID]*toggleState),
	}
}

// OnChange registers an observer, called after every local change
func (f *Favorites) OnChange(fn ChangeFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observers = append(f.observers, fn)
}

// List fetches the saved services without touching local state
func (f *Favorites) List(ctx context.Context) ([]SavedService, error) {
	var items []SavedService
	err := f.doJSON(ctx, apiclient.Request{Method: http.MethodGet, Path: savedListPath, Auth: apiclient.AuthRequired}, &items)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved services: %w", err)
	}

	out := items[:0]
	for _, item := range items {
		if item.ServiceID != "" {
			out = append(out, item)
		}
	}
	return out, nil
}

// Load replaces local state with the server's saved list. Without
// credentials the state is simply empty.
func (f *Favorites) Load(ctx context.Context) error {
	if !f.tokens.Get(ctx).HasAccess() {
		f.mu.Lock()
		f.saved = make(map[core.ID]bool)
		f.mu.Unlock()
		return nil
	}

	items, err := f.List(ctx)
	if err != nil {
		return err
	}

	saved := make(map[core.ID]bool, len(items))
	for _, item := range items {
		saved[item.ServiceID] = true
	}

	f.mu.Lock()
	f.saved = saved
	for id, st := range f.toggles {
		st.confirmed = saved[id]
		st.confirmedVersion = st.version
	}
	f.mu.Unlock()

	f.logger.Debug("saved services loaded", "count", len(saved))
	return nil
}

type toggleResponse struct {
	Saved *bool `json:"saved"`
}

// Toggle flips the service's saved flag locally, then asks the backend to do
// the same. Returns the resulting flag.
func (f *Favorites) Toggle(ctx context.Context, serviceID core.ID) (bool, error) {
	if serviceID == "" {
		return false, core.ErrMissingService
	}
	if !f.tokens.Get(ctx).HasAccess() {
		return false, core.ErrNotAuthenticated
	}

	f.mu.Lock()
	st := f.toggles[serviceID]
	if st == nil {
		st = &toggleState{confirmed: f.saved[serviceID]}
		f.toggles[serviceID] = st
	}
	next := !f.saved[serviceID]
	f.saved[serviceID] = next
	st.version++
	st.pending++
	version := st.version
	f.mu.Unlock()
	f.notify(serviceID, next)

	var resp toggleResponse
	err := f.doJSON(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   togglePath,
		JSON:   map[string]core.ID{"service": serviceID},
		Auth:   apiclient.AuthRequired,
	}, &resp)

	f.mu.Lock()
	st.pending--
	before := f.saved[serviceID]
	latest := st.version == version

	if err == nil {
		result := next
		if resp.Saved != nil {
			result = *resp.Saved
		}
		if version >= st.confirmedVersion {
			st.confirmed = result
			st.confirmedVersion = version
		}
		if latest {
			st.latestFailed = false
			f.saved[serviceID] = result
		}
	} else if latest {
		st.latestFailed = true
	}

	// Once nothing is in flight a failed newest toggle falls back to what
	// the server last confirmed
	rolledBack := false
	if st.pending == 0 && st.latestFailed {
		f.saved[serviceID] = st.confirmed
		st.latestFailed = false
		rolledBack = true
	}
	current := f.saved[serviceID]
	f.mu.Unlock()

	if current != before {
		f.notify(serviceID, current)
	}

	if err != nil {
		if rolledBack {
			f.metrics.ObserveToggle("rolled_back")
			f.logger.Warn("save toggle failed, rolled back", "service_id", serviceID, "error", err)
		}
		return current, fmt.Errorf("failed to toggle saved service %s: %w", serviceID, err)
	}
	if rolledBack {
		f.metrics.ObserveToggle("rolled_back")
	} else if current {
		f.metrics.ObserveToggle("saved")
	} else {
		f.metrics.ObserveToggle("unsaved")
	}
	return current, nil
}

var _ Toggler = (*Favorites)(nil)

func (f *Favorites) IsSaved(serviceID core.ID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saved[serviceID]
}

// Snapshot returns the saved services as a set
func (f *Favorites) Snapshot() map[core.ID]bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[core.ID]bool, len(f.saved))
	for id, saved := range f.saved {
		if saved {
			out[id] = true
		}
	}
	return out
}

func (f *Favorites) notify(serviceID core.ID, saved bool) {
	f.mu.Lock()
	observers := append([]ChangeFunc(nil), f.observers...)
	f.mu.Unlock()

	for _, fn := range observers {
		fn(serviceID, saved)
	}
}

func (f *Favorites) doJSON(ctx context.Context, req apiclient.Request, result any) error {
	resp, err := f.api.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.Decode(result)
}
