package tokens

import (
	"context"
	"sync"

	"tellme/internal/core"
)

// MemoryStore keeps credentials in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	creds *core.Credentials
}

// NewMemoryStore creates a store, optionally seeded with credentials
func NewMemoryStore(initial *core.Credentials) *MemoryStore {
	return &MemoryStore{creds: clone(initial)}
}

func (s *MemoryStore) Get(ctx context.Context) *core.Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.creds)
}

func (s *MemoryStore) Set(ctx context.Context, creds core.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = &creds
}

func (s *MemoryStore) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = nil
}

var _ Store = (*MemoryStore)(nil)
