package wire

import (
	"net"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-memocache/cache"
)

// DefaultReadBufferSize is the size of the buffered reader wrapped around
// each connection.
const DefaultReadBufferSize = 2048

// Config holds the connection settings for the wire client.
type Config struct {
	// Host is the server address. Required.
	Host string

	// Port is the server TCP port. Must be between 1 and 65535.
	Port int

	// DialTimeout bounds connection establishment. Zero means no bound
	// beyond the request context.
	DialTimeout time.Duration

	// IOTimeout bounds the write of a request plus the read of its reply.
	// Zero means the socket blocks until the context deadline, if any.
	IOTimeout time.Duration

	// ReadBufferSize is the size of the reply read buffer. Replies larger
	// than the buffer are still read in full.
	ReadBufferSize int
}

// DefaultConfig returns a Config pointing at a local server.
func DefaultConfig() Config {
	return Config{
		Host:           "localhost",
		Port:           6379,
		DialTimeout:    5 * time.Second,
		ReadBufferSize: DefaultReadBufferSize,
	}
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	return cache.ValidationError(validation.ValidateStruct(&c,
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.DialTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.IOTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.ReadBufferSize, validation.Min(16)),
	))
}
