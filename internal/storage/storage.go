package storage

import (
	"context"

	"tellme/internal/core"
)

// Storage defines the interface for credential persistence backends
type Storage interface {
	// Credentials (single signed-in user per client)
	LoadCredentials(ctx context.Context) (*core.Credentials, error)
	SaveCredentials(ctx context.Context, creds *core.Credentials) error
	DeleteCredentials(ctx context.Context) error

	// Lifecycle
	Close() error
}
