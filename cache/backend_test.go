package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type getOnlyBackend struct {
	Base
}

func (getOnlyBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return []byte("v"), true, nil
}

func TestBase_NotImplemented(t *testing.T) {
	ctx := context.Background()
	var b Backend = Base{}

	_, found, err := b.Get(ctx, "k")
	assert.False(t, found)
	assert.True(t, IsNotImplemented(err))

	assert.True(t, IsNotImplemented(b.Set(ctx, "k", []byte("v"))))
	assert.True(t, IsNotImplemented(b.SetWithExpiration(ctx, "k", []byte("v"), time.Minute)))
	assert.True(t, IsNotImplemented(b.Invalidate(ctx, "k")))
}

func TestBase_PartialOverride(t *testing.T) {
	ctx := context.Background()
	var b Backend = getOnlyBackend{}

	value, found, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), value)

	assert.True(t, IsNotImplemented(b.Invalidate(ctx, "k")))
}

func TestBackendError(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := BackendError("GET", "k1", cause)

	require.Error(t, err)
	assert.True(t, IsBackendError(err))
	assert.False(t, IsConfigError(err))
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.IsRetryable(err))
	assert.Contains(t, err.Error(), "GET")
	assert.Contains(t, err.Error(), "connection refused")

	var platformErr errors.PlatformError
	require.True(t, errors.As(err, &platformErr))
	assert.Equal(t, "k1", platformErr.Context()["key"])
	assert.Equal(t, "GET", platformErr.Context()["op"])

	wrapped := fmt.Errorf("outer: %w", err)
	assert.True(t, IsBackendError(wrapped))
}

func TestBackendError_NilCause(t *testing.T) {
	err := BackendError("DEL", "k", nil)
	assert.True(t, IsBackendError(err))
	assert.Contains(t, err.Error(), "DEL failed")
}

func TestConfigError(t *testing.T) {
	err := ConfigError("signature_generator", "must be a callable function")
	assert.True(t, IsConfigError(err))
	assert.False(t, IsBackendError(err))
	assert.False(t, errors.IsRetryable(err))
	assert.Contains(t, err.Error(), "signature_generator")
}

func TestSerializationError(t *testing.T) {
	err := SerializationError("msgpack", fmt.Errorf("unsupported type"))
	assert.True(t, IsSerializationError(err))
	assert.False(t, IsBackendError(err))
	assert.Contains(t, err.Error(), "msgpack")
}

func TestCodecs(t *testing.T) {
	type payload struct {
		Name  string
		Count int
	}

	for _, codec := range []Codec{MsgpackCodec{}, JSONCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			data, err := codec.Marshal(payload{Name: "a", Count: 2})
			require.NoError(t, err)
			assert.NotEmpty(t, data)

			var out payload
			require.NoError(t, codec.Unmarshal(data, &out))
			assert.Equal(t, payload{Name: "a", Count: 2}, out)
		})
	}
}
