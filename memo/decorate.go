package memo

import (
	"context"
	"reflect"
	"runtime"
	"time"

	"github.com/goliatone/go-memocache/cache"
	"github.com/rs/zerolog"
)

// Func is a function that can be memoized.
type Func[R any] func(ctx context.Context, args Args) (R, error)

// Memoized wraps a Func with read-through caching. Results are stored with
// the Cache codec, so R must round-trip through it.
type Memoized[R any] struct {
	cache     *Cache
	name      string
	fn        Func[R]
	opts      decoration
	signature signatureFunc
	configErr error
}

// signatureFunc renders call arguments, reporting cache.ErrUnkeyable when
// they cannot be keyed.
type signatureFunc func(args []any, kwargs map[string]any) (string, error)

// Decorate memoizes fn on c. name identifies the function in cache keys and
// in the key registry; when empty it is taken from the runtime symbol of fn.
// Invalid options are reported by every call rather than here, before any
// backend I/O.
func Decorate[R any](c *Cache, name string, fn Func[R], opts ...DecorateOption) *Memoized[R] {
	m := &Memoized[R]{cache: c, fn: fn}
	for _, opt := range opts {
		opt(&m.opts)
	}

	switch {
	case c == nil:
		m.configErr = cache.ConfigError("cache", "cannot be nil")
	case fn == nil:
		m.configErr = cache.ConfigError("fn", "cannot be nil")
	}
	if name == "" && fn != nil {
		name = functionName(fn)
	}
	m.name = name

	if m.configErr == nil {
		m.signature, m.configErr = resolveSignatureGenerator(m.opts)
	}
	return m
}

// Name returns the function identity used in keys.
func (m *Memoized[R]) Name() string {
	return m.name
}

// Key returns the backend key for args. Arguments nested deeper than
// cache.MaxDepth yield cache.ErrUnkeyable.
func (m *Memoized[R]) Key(args Args) (string, error) {
	if m.configErr != nil {
		return "", m.configErr
	}
	signature, err := m.signature(args.Positional, args.Keyword)
	if err != nil {
		return "", err
	}
	return m.cache.keys.SerializeKey(m.name, signature), nil
}

// Call runs the function with positional arguments through the cache.
func (m *Memoized[R]) Call(ctx context.Context, args ...any) (R, error) {
	value, _, err := m.Invoke(ctx, Positional(args...))
	return value, err
}

// Invoke runs the function through the cache.
//
// A stored value is decoded and returned without calling the function. On a
// miss the function runs and its result is stored with the decoration TTL.
// When the backend is unavailable, or the arguments cannot be keyed, the
// function runs directly and nothing is stored. The Invalidator is non-nil only when the decoration asked for one
// and the value is known to be stored.
func (m *Memoized[R]) Invoke(ctx context.Context, args Args) (R, Invalidator, error) {
	var zero R

	if m.configErr != nil {
		return zero, nil, m.configErr
	}
	ttl, err := m.expiration()
	if err != nil {
		return zero, nil, err
	}
	key, err := m.Key(args)
	if cache.IsUnkeyable(err) {
		m.cache.metrics.Fallback(m.name)
		m.cache.logger.Warn().Err(err).Str("fn", m.name).Msg("arguments cannot be keyed, calling function directly")
		value, err := m.fn(ctx, args)
		return value, nil, err
	}
	if err != nil {
		return zero, nil, err
	}

	logger := m.cache.logger.With().Str("fn", m.name).Str("key", key).Logger()

	payload, found, err := m.cache.backend.Get(ctx, key)
	if err != nil {
		if !cache.IsBackendError(err) {
			return zero, nil, err
		}
		m.cache.metrics.Fallback(m.name)
		logger.Warn().Err(err).Msg("cache backend unavailable, calling function directly")
		value, err := m.fn(ctx, args)
		return value, nil, err
	}

	if found {
		var value R
		decodeErr := m.cache.codec.Unmarshal(payload, &value)
		if decodeErr == nil {
			m.cache.metrics.Hit(m.name)
			logger.Debug().Msg("cache hit")
			m.track(ctx, key, ttl)
			return value, m.invalidator(key), nil
		}
		logger.Warn().Err(decodeErr).Str("codec", m.cache.codec.Name()).Msg("discarding undecodable cache entry")
	}

	m.cache.metrics.Miss(m.name)
	logger.Debug().Msg("cache miss")

	if !m.cache.dedupe {
		value, stored, err := m.compute(ctx, key, ttl, args, logger)
		return value, m.storedInvalidator(key, stored), err
	}

	res, err, shared := m.cache.group.Do(key, func() (any, error) {
		value, stored, err := m.compute(ctx, key, ttl, args, logger)
		return computed[R]{value: value, stored: stored}, err
	})
	if shared {
		logger.Debug().Msg("shared in-flight computation")
	}
	out, _ := res.(computed[R])
	return out.value, m.storedInvalidator(key, out.stored), err
}

type computed[R any] struct {
	value  R
	stored bool
}

// compute runs the function once and stores its result. A failing store
// keeps the computed value and reports stored=false; the function is never
// run a second time.
func (m *Memoized[R]) compute(ctx context.Context, key string, ttl time.Duration, args Args, logger zerolog.Logger) (R, bool, error) {
	value, err := m.fn(ctx, args)
	if err != nil {
		return value, false, err
	}

	payload, err := m.cache.codec.Marshal(value)
	if err != nil {
		var zero R
		return zero, false, cache.SerializationError(m.cache.codec.Name(), err)
	}

	if err := m.cache.backend.SetWithExpiration(ctx, key, payload, ttl); err != nil {
		if !cache.IsBackendError(err) {
			return value, false, err
		}
		m.cache.metrics.Fallback(m.name)
		logger.Warn().Err(err).Msg("unable to store computed value")
		return value, false, nil
	}

	m.cache.metrics.Store(m.name)
	m.track(ctx, key, ttl)
	return value, true, nil
}

func (m *Memoized[R]) track(ctx context.Context, key string, ttl time.Duration) {
	tags := m.opts.tags
	if ctxTags := cacheTagsFromContext(ctx); len(ctxTags) > 0 {
		tags = dedupeStrings(append(append([]string(nil), tags...), ctxTags...))
	}
	m.cache.registry.track(m.name, key, tags, ttl)
}

func (m *Memoized[R]) expiration() (time.Duration, error) {
	if m.opts.expirationSet {
		if m.opts.expiration <= 0 {
			return 0, cache.ConfigError("expiration", "must be greater than 0")
		}
		return m.opts.expiration, nil
	}
	if m.cache.expiration <= 0 {
		return 0, cache.ConfigError("default_expiration", "must be greater than 0")
	}
	return m.cache.expiration, nil
}

func (m *Memoized[R]) invalidator(key string) Invalidator {
	if !m.opts.withInvalidator {
		return nil
	}
	return func(ctx context.Context) error {
		return m.cache.Invalidate(ctx, key)
	}
}

func (m *Memoized[R]) storedInvalidator(key string, stored bool) Invalidator {
	if !stored {
		return nil
	}
	return m.invalidator(key)
}

var (
	generatorType = reflect.TypeOf(cache.SignatureGenerator(nil))
	argsFuncType  = reflect.TypeOf((func(Args) string)(nil))
)

// resolveSignatureGenerator validates the configured generator the same way
// for every call site: nil selects the default, functions must match one of
// the two accepted shapes.
func resolveSignatureGenerator(opts decoration) (signatureFunc, error) {
	if !opts.generatorSet {
		return cache.Signature, nil
	}
	gen, err := customSignatureGenerator(opts.generator)
	if err != nil {
		return nil, err
	}
	return func(args []any, kwargs map[string]any) (string, error) {
		return gen(args, kwargs), nil
	}, nil
}

func customSignatureGenerator(gen any) (cache.SignatureGenerator, error) {
	switch fn := gen.(type) {
	case nil:
		return nil, cache.ConfigError("signature_generator", "must be a callable function")
	case cache.SignatureGenerator:
		if fn != nil {
			return fn, nil
		}
	case func([]any, map[string]any) string:
		if fn != nil {
			return fn, nil
		}
	case func(Args) string:
		if fn != nil {
			return func(args []any, kwargs map[string]any) string {
				return fn(Args{Positional: args, Keyword: kwargs})
			}, nil
		}
	}

	fnValue := reflect.ValueOf(gen)
	fnType := fnValue.Type()
	if fnType.Kind() != reflect.Func || fnValue.IsNil() {
		return nil, cache.ConfigError("signature_generator", "must be a callable function")
	}

	switch {
	case fnType.ConvertibleTo(generatorType):
		return fnValue.Convert(generatorType).Interface().(cache.SignatureGenerator), nil
	case fnType.ConvertibleTo(argsFuncType):
		convert := fnValue.Convert(argsFuncType).Interface().(func(Args) string)
		return func(args []any, kwargs map[string]any) string {
			return convert(Args{Positional: args, Keyword: kwargs})
		}, nil
	}
	return nil, cache.ConfigError("signature_generator",
		"must have signature func(args []any, kwargs map[string]any) string or func(memo.Args) string")
}

func functionName(fn any) string {
	if f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()); f != nil {
		return f.Name()
	}
	return reflect.TypeOf(fn).String()
}
