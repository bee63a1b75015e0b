// Package config reads memoization settings from the environment.
package config

import (
	"net"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-memocache/cache"
	"github.com/jmgilman/go/errors"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Backend drivers accepted in MEMO_BACKEND.
const (
	BackendWire     = "wire"
	BackendRedis    = "redis"
	BackendMemcache = "memcache"
	BackendLocal    = "local"
)

// Config holds everything needed to build a memo.Cache.
type Config struct {
	Backend string `envconfig:"MEMO_BACKEND" default:"wire"`

	// Server settings shared by the wire and redis drivers.
	Host        string        `envconfig:"MEMO_HOST" default:"localhost"`
	Port        int           `envconfig:"MEMO_PORT" default:"6379"`
	Password    string        `envconfig:"MEMO_PASSWORD" default:""`
	DB          int           `envconfig:"MEMO_DB" default:"0"`
	DialTimeout time.Duration `envconfig:"MEMO_DIAL_TIMEOUT" default:"5s"`
	IOTimeout   time.Duration `envconfig:"MEMO_IO_TIMEOUT" default:"0s"`

	MemcacheServers []string `envconfig:"MEMO_MEMCACHE_SERVERS" default:"localhost:11211"`

	LocalCapacity int           `envconfig:"MEMO_LOCAL_CAPACITY" default:"10000"`
	LocalShards   int           `envconfig:"MEMO_LOCAL_SHARDS" default:"256"`
	LocalTTL      time.Duration `envconfig:"MEMO_LOCAL_TTL" default:"1h"`

	DefaultExpiration time.Duration `envconfig:"MEMO_DEFAULT_EXPIRATION" default:"60s"`
	Namespace         string        `envconfig:"MEMO_NAMESPACE" default:""`
	Singleflight      bool          `envconfig:"MEMO_SINGLEFLIGHT" default:"false"`

	LogLevel  string `envconfig:"MEMO_LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"MEMO_LOG_PRETTY" default:"false"`
}

// Load reads a .env file from the working directory when present, then the
// process environment.
func Load() (Config, error) {
	return LoadFiles()
}

// LoadFiles is Load with explicit dotenv files. Missing files are ignored and
// variables already set in the environment take precedence.
func LoadFiles(files ...string) (Config, error) {
	_ = godotenv.Load(files...)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, errors.CodeInvalidConfig, "unable to read environment")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MustLoad is Load that panics on error.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Addr returns host:port for the wire and redis drivers.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks the settings of the selected driver plus the engine ones.
func (c Config) Validate() error {
	server := c.Backend == BackendWire || c.Backend == BackendRedis
	local := c.Backend == BackendLocal
	nonNegative := "must be non-negative"

	return cache.ValidationError(validation.ValidateStruct(&c,
		validation.Field(&c.Backend,
			validation.Required,
			validation.In(BackendWire, BackendRedis, BackendMemcache, BackendLocal).
				Error("must be one of wire, redis, memcache, local"),
		),
		validation.Field(&c.Host, validation.When(server, validation.Required)),
		validation.Field(&c.Port, validation.When(server, validation.Required, validation.Min(1), validation.Max(65535))),
		validation.Field(&c.DB, validation.Min(0).Error(nonNegative)),
		validation.Field(&c.DialTimeout, validation.Min(time.Duration(0)).Error(nonNegative)),
		validation.Field(&c.IOTimeout, validation.Min(time.Duration(0)).Error(nonNegative)),
		validation.Field(&c.MemcacheServers, validation.When(c.Backend == BackendMemcache,
			validation.Required, validation.Each(validation.Required))),
		validation.Field(&c.LocalCapacity, validation.When(local, validation.Required, validation.Min(1))),
		validation.Field(&c.LocalShards, validation.When(local, validation.Required, validation.Min(1))),
		validation.Field(&c.LocalTTL, validation.When(local, validation.Required, validation.Min(time.Duration(1)))),
		validation.Field(&c.DefaultExpiration,
			validation.Required.Error("must be greater than 0"),
			validation.Min(time.Duration(1)).Error("must be greater than 0"),
		),
		validation.Field(&c.LogLevel, validation.In("trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled")),
	))
}
