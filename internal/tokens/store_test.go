package tokens

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"tellme/internal/core"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBackend struct {
	creds      *core.Credentials
	loads      int
	failLoad   bool
	failSave   bool
	failDelete bool
}

func (m *mockBackend) LoadCredentials(ctx context.Context) (*core.Credentials, error) {
	m.loads++
	if m.failLoad {
		return nil, errors.New("load failed")
	}
	return clone(m.creds), nil
}

func (m *mockBackend) SaveCredentials(ctx context.Context, creds *core.Credentials) error {
	if m.failSave {
		return errors.New("save failed")
	}
	m.creds = clone(creds)
	return nil
}

func (m *mockBackend) DeleteCredentials(ctx context.Context) error {
	if m.failDelete {
		return errors.New("delete failed")
	}
	m.creds = nil
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)
	assert.Nil(t, store.Get(ctx))

	store.Set(ctx, core.Credentials{AccessToken: "a1", RefreshToken: "r1"})
	got := store.Get(ctx)
	require.NotNil(t, got)
	assert.Equal(t, "a1", got.AccessToken)

	// Returned value is a copy
	got.AccessToken = "mutated"
	assert.Equal(t, "a1", store.Get(ctx).AccessToken)

	store.Clear(ctx)
	assert.Nil(t, store.Get(ctx))
}

func TestUpdateAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(&core.Credentials{AccessToken: "old", RefreshToken: "r1"})

	UpdateAccess(ctx, store, "new", "")
	assert.Equal(t, core.Credentials{AccessToken: "new", RefreshToken: "r1"}, *store.Get(ctx))

	UpdateAccess(ctx, store, "newer", "r2")
	assert.Equal(t, core.Credentials{AccessToken: "newer", RefreshToken: "r2"}, *store.Get(ctx))
}

func TestPersistentStore_ReadThrough(t *testing.T) {
	ctx := context.Background()
	backend := &mockBackend{creds: &core.Credentials{AccessToken: "a", RefreshToken: "r"}}
	store := NewPersistentStore(backend, quietLogger())

	assert.Equal(t, "a", store.Get(ctx).AccessToken)
	assert.Equal(t, "a", store.Get(ctx).AccessToken)
	assert.Equal(t, 1, backend.loads, "backend should be read once")

	store.Set(ctx, core.Credentials{AccessToken: "b", RefreshToken: "r"})
	assert.Equal(t, "b", backend.creds.AccessToken)

	store.Clear(ctx)
	assert.Nil(t, store.Get(ctx))
	assert.Nil(t, backend.creds)
}

func TestPersistentStore_SwallowsBackendFailures(t *testing.T) {
	ctx := context.Background()
	backend := &mockBackend{failLoad: true, failSave: true, failDelete: true}
	store := NewPersistentStore(backend, quietLogger())

	assert.Nil(t, store.Get(ctx))
	assert.Nil(t, store.Get(ctx))
	assert.Equal(t, 2, backend.loads, "failed loads are retried")

	store.Set(ctx, core.Credentials{AccessToken: "kept"})
	require.NotNil(t, store.Get(ctx))
	assert.Equal(t, "kept", store.Get(ctx).AccessToken)

	store.Clear(ctx)
	assert.Nil(t, store.Get(ctx))
}

func TestInspect(t *testing.T) {
	exp := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 17,
		"exp":     exp.Unix(),
		"iat":     time.Now().Unix(),
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	info, err := Inspect(signed)
	require.NoError(t, err)
	assert.Equal(t, "17", info.UserID)
	require.NotNil(t, info.ExpiresAt)
	assert.True(t, info.ExpiresAt.Equal(exp))
	assert.False(t, info.Expired(time.Now()))
	assert.True(t, info.Expired(exp.Add(time.Second)))

	_, err = Inspect("not-a-token")
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestInspect_SubjectFallback(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-9"})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	info, err := Inspect(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-9", info.Subject)
	assert.Equal(t, "user-9", info.UserID)
	assert.Nil(t, info.ExpiresAt)
	assert.False(t, info.Expired(time.Now()))
}
