package session

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCommander is the subset of redis.Cmdable the store needs.
// *redis.Client and *redis.ClusterClient both satisfy it.
type redisCommander interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

var _ redisCommander = (*redis.Client)(nil)

// RedisStore is a Redis-backed session store. Expiry is delegated to Redis
// TTLs, so the store needs no cleanup goroutine.
type RedisStore struct {
	client redisCommander
	prefix string
	closed atomic.Bool
}

// RedisStoreOption configures RedisStore behavior.
type RedisStoreOption func(*redisStoreConfig)

type redisStoreConfig struct {
	prefix string
}

// WithRedisPrefix sets the key prefix for session keys.
// Default: "hstream:session:".
func WithRedisPrefix(prefix string) RedisStoreOption {
	return func(c *redisStoreConfig) {
		c.prefix = prefix
	}
}

// NewRedisStore creates a Redis-backed session store around an existing
// go-redis client.
func NewRedisStore(client redisCommander, opts ...RedisStoreOption) *RedisStore {
	cfg := &redisStoreConfig{
		prefix: "hstream:session:",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &RedisStore{
		client: client,
		prefix: cfg.prefix,
	}
}

func (r *RedisStore) key(sessionID string) string {
	return r.prefix + sessionID
}

// Save stores session state with a TTL derived from expiresAt.
func (r *RedisStore) Save(ctx context.Context, sessionID string, data []byte, expiresAt time.Time) error {
	if r.closed.Load() {
		return ErrStoreClosed{}
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return r.Delete(ctx, sessionID)
	}

	return r.client.Set(ctx, r.key(sessionID), data, ttl).Err()
}

// Load retrieves session state if the key exists.
func (r *RedisStore) Load(ctx context.Context, sessionID string) ([]byte, error) {
	if r.closed.Load() {
		return nil, ErrStoreClosed{}
	}

	data, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// Delete removes a session from Redis.
func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if r.closed.Load() {
		return ErrStoreClosed{}
	}
	return r.client.Del(ctx, r.key(sessionID)).Err()
}

// Touch renews the TTL for a session.
func (r *RedisStore) Touch(ctx context.Context, sessionID string, expiresAt time.Time) error {
	if r.closed.Load() {
		return ErrStoreClosed{}
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return r.Delete(ctx, sessionID)
	}
	return r.client.Expire(ctx, r.key(sessionID), ttl).Err()
}

// SaveAll saves sessions sequentially. Redis offers no multi-key atomicity
// here; the contract permits sequential saves.
func (r *RedisStore) SaveAll(ctx context.Context, sessions map[string]StoredState) error {
	if r.closed.Load() {
		return ErrStoreClosed{}
	}
	for id, ss := range sessions {
		ttl := time.Until(ss.ExpiresAt)
		if ttl <= 0 {
			continue
		}
		if err := r.client.Set(ctx, r.key(id), ss.Data, ttl).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Close marks the store as closed. The underlying client is not closed, as it
// may be shared with other components.
func (r *RedisStore) Close() error {
	r.closed.Store(true)
	return nil
}

// Prefix returns the configured key prefix. For tests and debugging.
func (r *RedisStore) Prefix() string {
	return r.prefix
}
