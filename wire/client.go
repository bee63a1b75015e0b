package wire

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/goliatone/go-memocache/cache"
	"github.com/rs/zerolog"
)

// Dialer opens connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, network, address string) (net.Conn, error)

func (f DialerFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return f(ctx, network, address)
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for connection level diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDialer replaces the TCP dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// Client speaks the request/reply protocol over a fresh connection per
// command. It keeps no socket between calls, so it is safe for concurrent
// use without locking.
type Client struct {
	cfg    Config
	dialer Dialer
	logger zerolog.Logger
}

var _ cache.Backend = (*Client)(nil)

// New validates cfg and creates a Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.ReadBufferSize == 0 {
		cfg.ReadBufferSize = DefaultReadBufferSize
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:    cfg,
		dialer: &net.Dialer{},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Do sends one command and returns its reply. Connection, framing and
// protocol failures, as well as error replies, are returned as backend
// errors. The connection is closed before Do returns.
func (c *Client) Do(ctx context.Context, args ...any) (Reply, error) {
	op, key := commandName(args), commandKey(args)
	if len(args) == 0 {
		return Reply{}, cache.BackendError(op, key, fmt.Errorf("empty command"))
	}

	conn, err := c.dial(ctx)
	if err != nil {
		c.logger.Debug().Err(err).Str("op", op).Str("addr", c.cfg.Addr()).Msg("dial failed")
		return Reply{}, cache.BackendError(op, key, err)
	}
	defer conn.Close()

	if deadline, ok := c.deadline(ctx); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return Reply{}, cache.BackendError(op, key, err)
		}
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if _, err := conn.Write(BuildCommand(args...)); err != nil {
		c.logger.Debug().Err(err).Str("op", op).Msg("write failed")
		return Reply{}, cache.BackendError(op, key, ctxErr(ctx, err))
	}

	reply, err := NewReader(conn, c.cfg.ReadBufferSize).ReadReply()
	if err != nil {
		c.logger.Debug().Err(err).Str("op", op).Msg("read failed")
		return Reply{}, cache.BackendError(op, key, ctxErr(ctx, err))
	}
	if reply.Kind == KindError {
		return reply, cache.BackendError(op, key, &ServerError{Message: reply.Str})
	}
	return reply, nil
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.DialTimeout)
		defer cancel()
	}
	return c.dialer.DialContext(ctx, "tcp", c.cfg.Addr())
}

// deadline returns the earlier of the context deadline and now+IOTimeout.
func (c *Client) deadline(ctx context.Context) (time.Time, bool) {
	deadline, ok := ctx.Deadline()
	if c.cfg.IOTimeout > 0 {
		ioDeadline := time.Now().Add(c.cfg.IOTimeout)
		if !ok || ioDeadline.Before(deadline) {
			deadline, ok = ioDeadline, true
		}
	}
	return deadline, ok
}

// ctxErr prefers the context error when cancellation caused err.
func ctxErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) error {
	reply, err := c.Do(ctx, "PING")
	if err != nil {
		return err
	}
	if reply.Kind != KindSimple || reply.Str != "PONG" {
		return cache.BackendError("PING", "", unexpected(reply))
	}
	return nil
}

// Get issues GET. A null bulk reply is a miss.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	reply, err := c.Do(ctx, "GET", key)
	if err != nil {
		return nil, false, err
	}
	if reply.Kind != KindBulk {
		return nil, false, cache.BackendError("GET", key, unexpected(reply))
	}
	if reply.Null {
		return nil, false, nil
	}
	return reply.Bulk, true, nil
}

// Set issues SET without expiry.
func (c *Client) Set(ctx context.Context, key string, value []byte) error {
	return c.expectOK(ctx, "SET", key, value)
}

// SetWithExpiration issues SETEX. ttl must be positive and is rounded up to
// whole seconds.
func (c *Client) SetWithExpiration(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return cache.ConfigError("ttl", fmt.Sprintf("must be greater than 0, got %s", ttl))
	}
	return c.expectOK(ctx, "SETEX", key, expirySeconds(ttl), value)
}

func expirySeconds(ttl time.Duration) int64 {
	return int64((ttl + time.Second - 1) / time.Second)
}

// Invalidate issues DEL. Deleting an absent key succeeds.
func (c *Client) Invalidate(ctx context.Context, key string) error {
	reply, err := c.Do(ctx, "DEL", key)
	if err != nil {
		return err
	}
	if reply.Kind != KindInteger {
		return cache.BackendError("DEL", key, unexpected(reply))
	}
	c.logger.Debug().Str("key", key).Int64("removed", reply.Int).Msg("key invalidated")
	return nil
}

func (c *Client) expectOK(ctx context.Context, args ...any) error {
	reply, err := c.Do(ctx, args...)
	if err != nil {
		return err
	}
	if reply.Kind != KindSimple || reply.Str != "OK" {
		return cache.BackendError(commandName(args), commandKey(args), unexpected(reply))
	}
	return nil
}

func unexpected(reply Reply) error {
	return &ProtocolError{Message: "unexpected " + reply.Kind.String() + " reply"}
}
