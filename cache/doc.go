// Package cache defines the storage contract and key derivation used by the
// memoization engine.
//
// # Overview
//
// This package exports the building blocks the memo package composes:
//
//   - Backend: get, set, set-with-expiration and invalidate against a key/value store
//   - Base: an embeddable Backend that refuses every operation
//   - SignatureGenerator and DefaultSignature: stable text for call arguments
//   - KeySerializer: turns a callable name plus signature into a backend key
//   - Codec: payload encoding (msgpack by default, JSON available)
//
// # Key Derivation
//
// DefaultSignature renders every positional argument with ArgumentString, then
// every keyword argument as name=value with names sorted. ArgumentString
// classifies each value:
//
//   - Primitive: bool, numeric and string kinds use their direct text form
//   - Self-describing: SelfDescriber or fmt.Stringer implementations describe themselves
//   - Structural record: structs render as TypeName_[(Field, value), ...], fields
//     sorted by name, unexported fields included, values rendered recursively
//   - Containers: slices, arrays and maps render their elements recursively
//   - Opaque: funcs and chans fall back to type@address
//
// A struct whose field changes between two calls therefore yields two keys,
// while two distinct but field-equal instances yield the same key:
//
//	type Account struct{ id string; balance int }
//
//	a := &Account{id: "a-1", balance: 10}
//	k1 := cache.DefaultSignature([]any{a}, nil)
//	a.balance = 20
//	k2 := cache.DefaultSignature([]any{a}, nil) // k1 != k2
//
// The final key is the decimal xxhash64 digest of name+signature. xxhash is
// stable across processes, so keys remain valid after a restart.
//
// # Important Warnings
//
//   - Function and channel arguments are keyed by address and are stable only
//     within a single process
//   - Self-referential values are cut at the first repeated reference and
//     rendered as <cycle:Type>
//   - Arguments nested deeper than MaxDepth cannot be keyed: Signature and
//     FormatArgument return ErrUnkeyable, ArgumentString renders a unique token
//   - A struct that gains String from an embedded field is rendered by that
//     method alone
//   - Uniqueness is probabilistic: two different signatures may collide in 64 bits
//
// # Error Handling
//
// Errors are github.com/jmgilman/go/errors platform errors. BackendError
// (CodeUnavailable) marks transport failures that the memoization engine
// recovers from; ConfigError, SerializationError and ErrNotImplemented are
// always surfaced to the caller.
package cache
