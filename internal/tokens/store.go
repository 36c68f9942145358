// Package tokens holds the access/refresh credential pair. Stores never
// return errors: a credential that cannot be read is treated as absent.
package tokens

import (
	"context"

	"tellme/internal/core"
)

// Store defines credential access for every authenticated component
type Store interface {
	// Get returns a copy of the stored credentials, or nil when none exist
	Get(ctx context.Context) *core.Credentials
	Set(ctx context.Context, creds core.Credentials)
	Clear(ctx context.Context)
}

// Backend persists credentials. Unlike Store it may fail; PersistentStore
// turns those failures into log lines.
type Backend interface {
	LoadCredentials(ctx context.Context) (*core.Credentials, error)
	SaveCredentials(ctx context.Context, creds *core.Credentials) error
	DeleteCredentials(ctx context.Context) error
}

// UpdateAccess stores a freshly refreshed access token, keeping the current
// refresh token unless the backend rotated it
func UpdateAccess(ctx context.Context, store Store, access, rotatedRefresh string) {
	next := core.Credentials{AccessToken: access, RefreshToken: rotatedRefresh}
	if next.RefreshToken == "" {
		if current := store.Get(ctx); current != nil {
			next.RefreshToken = current.RefreshToken
		}
	}
	store.Set(ctx, next)
}

func clone(creds *core.Credentials) *core.Credentials {
	if creds == nil {
		return nil
	}
	c := *creds
	return &c
}
