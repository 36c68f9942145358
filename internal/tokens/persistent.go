package tokens

import (
	"context"
	"log/slog"
	"sync"

	"tellme/internal/core"
)

// PersistentStore fronts a Backend with an in-memory copy. Backend failures
// are logged and never surface to callers.
type PersistentStore struct {
	backend Backend
	logger  *slog.Logger

	mu     sync.RWMutex
	cached *core.Credentials
	loaded bool
}

// NewPersistentStore creates a store over the given backend
func NewPersistentStore(backend Backend, logger *slog.Logger) *PersistentStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistentStore{
		backend: backend,
		logger:  logger.With("component", "token-store"),
	}
}

func (s *PersistentStore) Get(ctx context.Context) *core.Credentials {
	s.mu.RLock()
	if s.loaded {
		creds := clone(s.cached)
		s.mu.RUnlock()
		return creds
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another caller may have loaded while we waited for the write lock
	if s.loaded {
		return clone(s.cached)
	}

	creds, err := s.backend.LoadCredentials(ctx)
	if err != nil {
		// Not marked loaded: the next Get retries the backend
		s.logger.Warn("failed to load credentials, treating as signed out", "error", err)
		return nil
	}

	s.cached = clone(creds)
	s.loaded = true
	return clone(s.cached)
}

func (s *PersistentStore) Set(ctx context.Context, creds core.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = &creds
	s.loaded = true

	if err := s.backend.SaveCredentials(ctx, &creds); err != nil {
		s.logger.Warn("failed to persist credentials, keeping them in memory", "error", err)
	}
}

func (s *PersistentStore) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = nil
	s.loaded = true

	if err := s.backend.DeleteCredentials(ctx); err != nil {
		s.logger.Warn("failed to delete persisted credentials", "error", err)
	}
}

var _ Store = (*PersistentStore)(nil)
