package redis

import (
	"context"
	"testing"
	"time"

	"tellme/internal/core"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStorage_Credentials(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	store := New(client, Options{})
	defer store.Close()
	ctx := context.Background()

	creds, err := store.LoadCredentials(ctx)
	require.NoError(t, err)
	assert.Nil(t, creds)

	require.NoError(t, store.SaveCredentials(ctx, &core.Credentials{AccessToken: "a", RefreshToken: "r"}))
	assert.True(t, mr.Exists(DefaultKey))

	creds, err = store.LoadCredentials(ctx)
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, core.Credentials{AccessToken: "a", RefreshToken: "r"}, *creds)

	require.NoError(t, store.DeleteCredentials(ctx))
	assert.False(t, mr.Exists(DefaultKey))
}

func TestRedisStorage_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	store := New(client, Options{Key: "custom:key", TTL: time.Hour})
	ctx := context.Background()

	require.NoError(t, store.SaveCredentials(ctx, &core.Credentials{AccessToken: "a"}))
	assert.Equal(t, time.Hour, mr.TTL("custom:key"))

	mr.FastForward(2 * time.Hour)
	creds, err := store.LoadCredentials(ctx)
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestRedisStorage_CorruptValue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	store := New(client, Options{})

	require.NoError(t, mr.Set(DefaultKey, "{not json"))
	_, err := store.LoadCredentials(context.Background())
	assert.Error(t, err)
}

func TestDial_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Dial(ctx, addr, "", 0, Options{})
	assert.Error(t, err)
}
