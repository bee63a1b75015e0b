package cache

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes values before they are stored and decodes payloads read back
// from a Backend. Unmarshal receives a pointer to the target value.
type Codec interface {
	Marshal(value any) ([]byte, error)
	Unmarshal(data []byte, value any) error
	Name() string
}

// MsgpackCodec is the default payload codec.
type MsgpackCodec struct{}

func (MsgpackCodec) Marshal(value any) ([]byte, error) {
	return msgpack.Marshal(value)
}

func (MsgpackCodec) Unmarshal(data []byte, value any) error {
	return msgpack.Unmarshal(data, value)
}

func (MsgpackCodec) Name() string { return "msgpack" }

// JSONCodec stores payloads as JSON, useful when other consumers read the
// same keys.
type JSONCodec struct{}

func (JSONCodec) Marshal(value any) ([]byte, error) {
	return json.Marshal(value)
}

func (JSONCodec) Unmarshal(data []byte, value any) error {
	return json.Unmarshal(data, value)
}

func (JSONCodec) Name() string { return "json" }
