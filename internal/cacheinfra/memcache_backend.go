package cacheinfra

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-memocache/cache"
)

// memcacheRelativeLimit is the largest expiration memcached reads as a
// relative number of seconds. Larger values are taken as unix timestamps.
const memcacheRelativeLimit = 30 * 24 * time.Hour

// MemcacheClient is the subset of *memcache.Client the backend uses.
type MemcacheClient interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
	Delete(key string) error
}

// MemcacheConfig lists the servers and socket settings for memcached.
type MemcacheConfig struct {
	Servers      []string
	Timeout      time.Duration
	MaxIdleConns int
}

// DefaultMemcacheConfig returns settings for a local server.
func DefaultMemcacheConfig() MemcacheConfig {
	return MemcacheConfig{
		Servers:      []string{"localhost:11211"},
		Timeout:      memcache.DefaultTimeout,
		MaxIdleConns: memcache.DefaultMaxIdleConns,
	}
}

func (c MemcacheConfig) Validate() error {
	return cache.ValidationError(validation.ValidateStruct(&c,
		validation.Field(&c.Servers,
			validation.Required.Error("at least one server is required"),
			validation.Each(validation.Required.Error("cannot contain empty addresses")),
		),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0)).Error("must be non-negative")),
		validation.Field(&c.MaxIdleConns, validation.Min(0).Error("must be non-negative")),
	))
}

// MemcacheBackend is a cache.Backend over memcached.
type MemcacheBackend struct {
	client MemcacheClient
	now    func() time.Time
}

var _ cache.Backend = (*MemcacheBackend)(nil)

// NewMemcacheBackend validates cfg and creates a gomemcache client.
func NewMemcacheBackend(cfg MemcacheConfig) (*MemcacheBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := memcache.New(cfg.Servers...)
	client.Timeout = cfg.Timeout
	client.MaxIdleConns = cfg.MaxIdleConns
	return NewMemcacheBackendFromClient(client), nil
}

// NewMemcacheBackendFromClient wraps an existing client.
func NewMemcacheBackendFromClient(client MemcacheClient) *MemcacheBackend {
	return &MemcacheBackend{client: client, now: time.Now}
}

// Get reads key. gomemcache has no context support, so ctx is only checked
// before the request.
func (b *MemcacheBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, cache.BackendError("GET", key, err)
	}
	item, err := b.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, cache.BackendError("GET", key, err)
	}
	return item.Value, true, nil
}

func (b *MemcacheBackend) Set(ctx context.Context, key string, value []byte) error {
	return b.set(ctx, key, value, 0)
}

// SetWithExpiration stores value for ttl rounded up to whole seconds.
func (b *MemcacheBackend) SetWithExpiration(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return cache.ConfigError("ttl", "must be greater than 0")
	}
	expiration, err := b.expiration(ttl)
	if err != nil {
		return err
	}
	return b.set(ctx, key, value, expiration)
}

func (b *MemcacheBackend) set(ctx context.Context, key string, value []byte, expiration int32) error {
	if err := ctx.Err(); err != nil {
		return cache.BackendError("SET", key, err)
	}
	err := b.client.Set(&memcache.Item{Key: key, Value: value, Expiration: expiration})
	if err != nil {
		return cache.BackendError("SET", key, err)
	}
	return nil
}

// Invalidate deletes key. A missing key is not an error.
func (b *MemcacheBackend) Invalidate(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return cache.BackendError("DEL", key, err)
	}
	err := b.client.Delete(key)
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return cache.BackendError("DEL", key, err)
	}
	return nil
}

func (b *MemcacheBackend) expiration(ttl time.Duration) (int32, error) {
	seconds := int64((ttl + time.Second - 1) / time.Second)
	if ttl <= memcacheRelativeLimit {
		return int32(seconds), nil
	}
	deadline := b.now().Unix() + seconds
	if deadline > math.MaxInt32 {
		return 0, cache.ConfigError("ttl", "exceeds the memcached expiration range")
	}
	return int32(deadline), nil
}
