package cache

import (
	"context"
	"time"
)

// Backend is the storage contract the memoization engine depends on.
// Implementations return errors built with BackendError when the underlying
// transport cannot complete an operation.
type Backend interface {
	// Get returns the payload stored under key. found is false on a miss.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key without expiration.
	Set(ctx context.Context, key string, value []byte) error

	// SetWithExpiration stores value under key for ttl.
	SetWithExpiration(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Invalidate deletes key. Deleting an absent key is not an error.
	Invalidate(ctx context.Context, key string) error
}

// Base implements Backend by refusing every operation. Embed it in transports
// that only support a subset of the contract.
type Base struct{}

var _ Backend = Base{}

func (Base) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, ErrNotImplemented
}

func (Base) Set(ctx context.Context, key string, value []byte) error {
	return ErrNotImplemented
}

func (Base) SetWithExpiration(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return ErrNotImplemented
}

func (Base) Invalidate(ctx context.Context, key string) error {
	return ErrNotImplemented
}
