package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tellme/internal/core"
	"tellme/internal/storage"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultKey is used when no key is configured
const DefaultKey = "tellme:credentials"

// Options configures the Redis backend
type Options struct {
	Key string
	TTL time.Duration // 0 keeps credentials until logout
}

// RedisStorage implements storage.Storage on a Redis string key
type RedisStorage struct {
	client *goredis.Client
	key    string
	ttl    time.Duration
}

// New creates a Redis-backed credential store
func New(client *goredis.Client, opts Options) *RedisStorage {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	return &RedisStorage{client: client, key: opts.Key, ttl: opts.TTL}
}

// Dial connects to addr and verifies the connection with PING
func Dial(ctx context.Context, addr, password string, db int, opts Options) (*RedisStorage, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return New(client, opts), nil
}

// LoadCredentials retrieves the stored credential pair
func (s *RedisStorage) LoadCredentials(ctx context.Context) (*core.Credentials, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var creds core.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to decode credentials: %w", err)
	}
	return &creds, nil
}

// SaveCredentials stores the credential pair
func (s *RedisStorage) SaveCredentials(ctx context.Context, creds *core.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	return s.client.Set(ctx, s.key, data, s.ttl).Err()
}

// DeleteCredentials removes the credential pair
func (s *RedisStorage) DeleteCredentials(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

// Close closes the underlying client
func (s *RedisStorage) Close() error {
	return s.client.Close()
}

var _ storage.Storage = (*RedisStorage)(nil)
