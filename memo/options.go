package memo

import (
	"time"

	"github.com/goliatone/go-memocache/cache"
	"github.com/rs/zerolog"
)

// Option configures a Cache.
type Option func(*Cache)

// WithDefaultExpiration sets the TTL used by decorations that do not set
// their own. A non-positive value is reported as a configuration error on
// the first call that would use it.
func WithDefaultExpiration(d time.Duration) Option {
	return func(c *Cache) {
		c.expiration = d
	}
}

// WithCodec replaces the msgpack payload codec.
func WithCodec(codec cache.Codec) Option {
	return func(c *Cache) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics Metrics) Option {
	return func(c *Cache) {
		if metrics != nil {
			c.metrics = metrics
		}
	}
}

// WithNamespace prefixes every key with the normalized namespace, so two
// caches sharing one store never collide.
func WithNamespace(namespace string) Option {
	return func(c *Cache) {
		c.namespace = normalizeNamespace(namespace)
		c.keys = cache.NewNamespacedKeySerializer(c.namespace)
	}
}

// WithKeySerializer replaces the key serializer. Combined with WithNamespace,
// the option applied last wins.
func WithKeySerializer(serializer cache.KeySerializer) Option {
	return func(c *Cache) {
		if serializer != nil {
			c.keys = serializer
		}
	}
}

// WithSingleflight makes concurrent misses on the same key share a single
// execution of the function. Without it every concurrent miss computes and
// stores its own value, and the last write wins.
func WithSingleflight() Option {
	return func(c *Cache) {
		c.dedupe = true
	}
}

// DecorateOption configures one memoized function.
type DecorateOption func(*decoration)

type decoration struct {
	expiration      time.Duration
	expirationSet   bool
	generator       any
	generatorSet    bool
	withInvalidator bool
	tags            []string
}

// Expiration sets the TTL of values stored by this function. It must be
// positive.
func Expiration(d time.Duration) DecorateOption {
	return func(o *decoration) {
		o.expiration = d
		o.expirationSet = true
	}
}

// SignatureGenerator replaces the default argument signature. gen must be a
// function convertible to cache.SignatureGenerator or a func(Args) string;
// anything else is reported as a configuration error when the function is
// called.
func SignatureGenerator(gen any) DecorateOption {
	return func(o *decoration) {
		o.generator = gen
		o.generatorSet = true
	}
}

// WithInvalidator makes Invoke return a handle that deletes the entry for
// the call's key.
func WithInvalidator() DecorateOption {
	return func(o *decoration) {
		o.withInvalidator = true
	}
}

// Tags indexes every key stored by this function under tags for
// Cache.InvalidateTag.
func Tags(tags ...string) DecorateOption {
	return func(o *decoration) {
		o.tags = dedupeStrings(append(o.tags, tags...))
	}
}
