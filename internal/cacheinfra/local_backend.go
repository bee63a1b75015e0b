package cacheinfra

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-memocache/cache"
	"github.com/viccon/sturdyc"
)

// LocalConfig holds the configuration for the in-process sturdyc store.
type LocalConfig struct {
	// Capacity defines the maximum number of entries that the store can hold.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL is the lifetime of entries written with Set, and the upper bound
	// for entries written with SetWithExpiration. Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the store reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often expired entries are swept.
	// Zero uses the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultLocalConfig returns a LocalConfig sized for a single service.
func DefaultLocalConfig() LocalConfig {
	return LocalConfig{
		Capacity:           10000,
		NumShards:          256,
		TTL:                time.Hour,
		EvictionPercentage: 10,
	}
}

// Validate checks if the configuration values are valid.
func (c LocalConfig) Validate() error {
	positive := "must be greater than 0"
	return cache.ValidationError(validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required.Error(positive), validation.Min(1).Error(positive)),
		validation.Field(&c.NumShards, validation.Required.Error(positive), validation.Min(1).Error(positive)),
		validation.Field(&c.TTL, validation.Required.Error(positive), validation.Min(time.Duration(1)).Error(positive)),
		validation.Field(&c.EvictionPercentage,
			validation.Required.Error("must be between 1 and 100"),
			validation.Min(1).Error("must be between 1 and 100"),
			validation.Max(100).Error("must be between 1 and 100"),
		),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0)).Error("must be non-negative")),
	))
}

func (c LocalConfig) sturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// localEntry carries its own deadline because sturdyc applies a single TTL
// to the whole client.
type localEntry struct {
	value     []byte
	expiresAt time.Time
}

// LocalOption configures a LocalBackend.
type LocalOption func(*LocalBackend)

// WithClock replaces time.Now for entry expiry.
func WithClock(now func() time.Time) LocalOption {
	return func(b *LocalBackend) {
		if now != nil {
			b.now = now
		}
	}
}

// LocalBackend is a cache.Backend held in process memory. It suits tests,
// single instance deployments, and running without a server.
type LocalBackend struct {
	client *sturdyc.Client[localEntry]
	ttl    time.Duration
	now    func() time.Time
}

var _ cache.Backend = (*LocalBackend)(nil)

// NewLocalBackend validates cfg and creates the sturdyc client.
func NewLocalBackend(cfg LocalConfig, opts ...LocalOption) (*LocalBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &LocalBackend{
		client: sturdyc.New[localEntry](
			cfg.Capacity,
			cfg.NumShards,
			cfg.TTL,
			cfg.EvictionPercentage,
			cfg.sturdycOptions()...,
		),
		ttl: cfg.TTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *LocalBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, ok := b.client.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !b.now().Before(entry.expiresAt) {
		b.client.Delete(key)
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

func (b *LocalBackend) Set(ctx context.Context, key string, value []byte) error {
	return b.store(key, value, b.ttl)
}

// SetWithExpiration stores value for ttl, capped at the configured TTL.
func (b *LocalBackend) SetWithExpiration(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return cache.ConfigError("ttl", "must be greater than 0")
	}
	return b.store(key, value, min(ttl, b.ttl))
}

func (b *LocalBackend) store(key string, value []byte, ttl time.Duration) error {
	b.client.Set(key, localEntry{
		value:     append([]byte(nil), value...),
		expiresAt: b.now().Add(ttl),
	})
	return nil
}

func (b *LocalBackend) Invalidate(ctx context.Context, key string) error {
	b.client.Delete(key)
	return nil
}

// Len returns the number of entries held, expired ones included until they
// are read or swept.
func (b *LocalBackend) Len() int {
	return b.client.Size()
}
