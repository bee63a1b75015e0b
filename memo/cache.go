package memo

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-memocache/cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultExpiration is the TTL applied when neither the Cache nor the
// decoration sets one.
const DefaultExpiration = 60 * time.Second

// Invalidator deletes the stored entry for one call's key. Calling it again
// re-issues the delete, which succeeds on an absent key.
type Invalidator func(ctx context.Context) error

// Cache binds a Backend to the engine settings shared by every function
// decorated with it. It is safe for concurrent use.
type Cache struct {
	backend    cache.Backend
	codec      cache.Codec
	keys       cache.KeySerializer
	namespace  string
	expiration time.Duration
	logger     zerolog.Logger
	metrics    Metrics
	registry   *keyRegistry
	dedupe     bool
	group      singleflight.Group
}

// New creates a Cache over backend. A nil backend behaves like cache.Base
// and reports every operation as not implemented.
func New(backend cache.Backend, opts ...Option) *Cache {
	if backend == nil {
		backend = cache.Base{}
	}

	c := &Cache{
		backend:    backend,
		codec:      cache.MsgpackCodec{},
		keys:       cache.NewDefaultKeySerializer(),
		expiration: DefaultExpiration,
		logger:     zerolog.Nop(),
		metrics:    NoopMetrics{},
		registry:   newKeyRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend returns the underlying store.
func (c *Cache) Backend() cache.Backend {
	return c.backend
}

// Namespace returns the normalized key namespace, empty when none is set.
func (c *Cache) Namespace() string {
	return c.namespace
}

// DefaultExpiration returns the TTL used by decorations without their own.
func (c *Cache) DefaultExpiration() time.Duration {
	return c.expiration
}

// Invalidate deletes key from the backend and forgets it locally.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if err := c.backend.Invalidate(ctx, key); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache invalidation failed")
		return err
	}
	c.metrics.Invalidate(c.registry.owner(key))
	c.registry.forget(key)
	return nil
}

// InvalidateFunction deletes every key this process has seen for the
// function registered under name. Deletion continues past failures; the
// returned error joins them.
func (c *Cache) InvalidateFunction(ctx context.Context, name string) error {
	return c.invalidateAll(ctx, c.registry.functionKeys(name))
}

// InvalidateTag deletes every key this process has indexed under tag.
func (c *Cache) InvalidateTag(ctx context.Context, tag string) error {
	return c.invalidateAll(ctx, c.registry.tagKeys(tag))
}

// TrackedKeys returns the keys this process has seen for the function
// registered under name, sorted.
func (c *Cache) TrackedKeys(name string) []string {
	return c.registry.functionKeys(name)
}

// TaggedKeys returns the keys indexed under tag, sorted.
func (c *Cache) TaggedKeys(tag string) []string {
	return c.registry.tagKeys(tag)
}

func (c *Cache) invalidateAll(ctx context.Context, keys []string) error {
	var errs []error
	for _, key := range keys {
		if err := c.Invalidate(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
