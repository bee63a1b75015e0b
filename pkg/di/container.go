package di

import (
	"io"
	"os"
	"time"

	"github.com/goliatone/go-memocache/cache"
	"github.com/goliatone/go-memocache/config"
	"github.com/goliatone/go-memocache/internal/cacheinfra"
	"github.com/goliatone/go-memocache/memo"
	"github.com/goliatone/go-memocache/pkg/metrics"
	"github.com/goliatone/go-memocache/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Container wires configuration into a ready memo.Cache. It owns the
// backend and the logger shared by every component it builds.
type Container struct {
	config  config.Config
	logger  zerolog.Logger
	backend cache.Backend
	metrics *metrics.Prometheus
	cache   *memo.Cache
}

type containerOptions struct {
	logOutput  io.Writer
	backend    cache.Backend
	registerer prometheus.Registerer
	namespace  string
}

// Option customizes NewContainer.
type Option func(*containerOptions)

// WithLogOutput sends logs to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *containerOptions) {
		o.logOutput = w
	}
}

// WithBackend uses backend instead of building one from the driver setting.
func WithBackend(backend cache.Backend) Option {
	return func(o *containerOptions) {
		o.backend = backend
	}
}

// WithRegisterer registers the memo counters with reg. Without it the
// counters are kept but not exported.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *containerOptions) {
		o.registerer = reg
	}
}

// WithMetricsNamespace prefixes the Prometheus metric names.
func WithMetricsNamespace(namespace string) Option {
	return func(o *containerOptions) {
		o.namespace = namespace
	}
}

// NewContainer validates cfg and builds the logger, backend, metrics and
// memo cache in that order.
func NewContainer(cfg config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := containerOptions{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	logger, err := newLogger(cfg, o.logOutput)
	if err != nil {
		return nil, err
	}

	backend := o.backend
	if backend == nil {
		backend, err = newBackend(cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	m := metrics.NewPrometheus(o.namespace, nil)
	if o.registerer != nil {
		if err := m.Register(o.registerer); err != nil {
			return nil, err
		}
	}

	memoOpts := []memo.Option{
		memo.WithDefaultExpiration(cfg.DefaultExpiration),
		memo.WithLogger(logger),
		memo.WithMetrics(m),
	}
	if cfg.Namespace != "" {
		memoOpts = append(memoOpts, memo.WithNamespace(cfg.Namespace))
	}
	if cfg.Singleflight {
		memoOpts = append(memoOpts, memo.WithSingleflight())
	}

	logger.Info().
		Str("backend", cfg.Backend).
		Str("namespace", cfg.Namespace).
		Dur("default_expiration", cfg.DefaultExpiration).
		Msg("memo cache ready")

	return &Container{
		config:  cfg,
		logger:  logger,
		backend: backend,
		metrics: m,
		cache:   memo.New(backend, memoOpts...),
	}, nil
}

// NewContainerFromEnv loads the configuration with config.Load.
func NewContainerFromEnv(opts ...Option) (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewContainer(cfg, opts...)
}

func (c *Container) Config() config.Config {
	return c.config
}

func (c *Container) Logger() zerolog.Logger {
	return c.logger
}

func (c *Container) Backend() cache.Backend {
	return c.backend
}

func (c *Container) Cache() *memo.Cache {
	return c.cache
}

func (c *Container) Metrics() *metrics.Prometheus {
	return c.metrics
}

// Close releases backend resources when the backend holds any.
func (c *Container) Close() error {
	if closer, ok := c.backend.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Memoize decorates fn on the container cache.
// Example: Memoize[User](container, "load_user", loadUser, memo.Expiration(time.Minute))
func Memoize[R any](c *Container, name string, fn memo.Func[R], opts ...memo.DecorateOption) *memo.Memoized[R] {
	return memo.Decorate(c.cache, name, fn, opts...)
}

func newLogger(cfg config.Config, out io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Nop(), cache.ConfigError("LogLevel", err.Error())
	}
	if cfg.LogPretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("component", "memo").Logger(), nil
}

func newBackend(cfg config.Config, logger zerolog.Logger) (cache.Backend, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		rc := cacheinfra.DefaultRedisConfig()
		rc.Addr = cfg.Addr()
		rc.Password = cfg.Password
		rc.DB = cfg.DB
		rc.DialTimeout = cfg.DialTimeout
		if cfg.IOTimeout > 0 {
			rc.ReadTimeout = cfg.IOTimeout
			rc.WriteTimeout = cfg.IOTimeout
		}
		return cacheinfra.NewRedisBackend(rc)

	case config.BackendMemcache:
		mc := cacheinfra.DefaultMemcacheConfig()
		mc.Servers = cfg.MemcacheServers
		if cfg.IOTimeout > 0 {
			mc.Timeout = cfg.IOTimeout
		}
		return cacheinfra.NewMemcacheBackend(mc)

	case config.BackendLocal:
		lc := cacheinfra.DefaultLocalConfig()
		lc.Capacity = cfg.LocalCapacity
		lc.NumShards = cfg.LocalShards
		lc.TTL = cfg.LocalTTL
		return cacheinfra.NewLocalBackend(lc)
	}

	return wire.New(wire.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		DialTimeout: cfg.DialTimeout,
		IOTimeout:   cfg.IOTimeout,
	}, wire.WithLogger(logger.With().Str("backend", "wire").Logger()))
}
