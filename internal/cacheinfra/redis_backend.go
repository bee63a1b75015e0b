package cacheinfra

import (
	"context"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-memocache/cache"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the pooled go-redis backend.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultRedisConfig returns settings for a local server.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		PoolSize:     20,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func (c RedisConfig) Validate() error {
	nonNegative := "must be non-negative"
	return cache.ValidationError(validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required.Error("is required")),
		validation.Field(&c.DB, validation.Min(0).Error(nonNegative)),
		validation.Field(&c.PoolSize, validation.Min(0).Error(nonNegative)),
		validation.Field(&c.MinIdleConns, validation.Min(0).Error(nonNegative)),
		validation.Field(&c.DialTimeout, validation.Min(time.Duration(0)).Error(nonNegative)),
		validation.Field(&c.ReadTimeout, validation.Min(time.Duration(0)).Error(nonNegative)),
		validation.Field(&c.WriteTimeout, validation.Min(time.Duration(0)).Error(nonNegative)),
	))
}

func (c RedisConfig) options() *redis.Options {
	return &redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

// RedisBackend is a cache.Backend over a pooled go-redis client. Use it when
// connection reuse matters more than the one-connection-per-command wire
// client.
type RedisBackend struct {
	client redis.UniversalClient
}

var _ cache.Backend = (*RedisBackend)(nil)

// NewRedisBackend validates cfg and creates the client. No connection is
// opened until the first command.
func NewRedisBackend(cfg RedisConfig) (*RedisBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewRedisBackendFromClient(redis.NewClient(cfg.options())), nil
}

// NewRedisBackendFromClient wraps an existing client, for instance a cluster
// or sentinel client.
func NewRedisBackendFromClient(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, cache.BackendError("GET", key, err)
	}
	return value, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	if err := b.client.Set(ctx, key, value, 0).Err(); err != nil {
		return cache.BackendError("SET", key, err)
	}
	return nil
}

// SetWithExpiration stores value with a TTL. go-redis switches to
// millisecond precision for TTLs that are not whole seconds.
func (b *RedisBackend) SetWithExpiration(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return cache.ConfigError("ttl", "must be greater than 0")
	}
	if err := b.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return cache.BackendError("SET", key, err)
	}
	return nil
}

func (b *RedisBackend) Invalidate(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, key).Err(); err != nil {
		return cache.BackendError("DEL", key, err)
	}
	return nil
}

// Ping checks that the server answers.
func (b *RedisBackend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return cache.BackendError("PING", "", err)
	}
	return nil
}

// Close releases the connection pool.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
