package testsupport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goliatone/go-memocache/cache"
	"github.com/puzpuzpuz/xsync/v3"
)

// Operation names recorded by FakeBackend. They match the wire commands.
const (
	OpGet   = "GET"
	OpSet   = "SET"
	OpSetEx = "SETEX"
	OpDel   = "DEL"
)

// Call is one recorded Backend invocation.
type Call struct {
	Op    string
	Key   string
	Value []byte
	TTL   time.Duration
}

// FakeBackend is an in-memory cache.Backend that records every call and can
// be told to fail specific operations.
type FakeBackend struct {
	store *xsync.MapOf[string, []byte]

	mu       sync.Mutex
	calls    []Call
	failures map[string]error
}

var _ cache.Backend = (*FakeBackend)(nil)

// NewFakeBackend creates an empty FakeBackend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		store:    xsync.NewMapOf[string, []byte](),
		failures: make(map[string]error),
	}
}

// FailOn makes every subsequent op fail. A nil err fails with a backend error.
func (f *FakeBackend) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		err = cache.BackendError(op, "", errors.New("connection refused"))
	}
	f.failures[op] = err
}

// Recover clears every failure set with FailOn.
func (f *FakeBackend) Recover() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = make(map[string]error)
}

// Seed stores value under key without recording a call.
func (f *FakeBackend) Seed(key string, value []byte) {
	f.store.Store(key, append([]byte(nil), value...))
}

// Value returns what is currently stored under key.
func (f *FakeBackend) Value(key string) ([]byte, bool) {
	return f.store.Load(key)
}

// Len returns the number of stored keys.
func (f *FakeBackend) Len() int {
	return f.store.Size()
}

// Calls returns a copy of every recorded call in order.
func (f *FakeBackend) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsFor returns the recorded calls for op.
func (f *FakeBackend) CallsFor(op string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// ClearCalls forgets recorded calls but keeps stored values.
func (f *FakeBackend) ClearCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *FakeBackend) record(c Call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.failures[c.Op]
}

func (f *FakeBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := f.record(Call{Op: OpGet, Key: key}); err != nil {
		return nil, false, err
	}
	value, ok := f.store.Load(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (f *FakeBackend) Set(ctx context.Context, key string, value []byte) error {
	if err := f.record(Call{Op: OpSet, Key: key, Value: value}); err != nil {
		return err
	}
	f.store.Store(key, append([]byte(nil), value...))
	return nil
}

// SetWithExpiration stores value and records ttl. Entries never expire in the
// fake; tests assert on the recorded TTL instead.
func (f *FakeBackend) SetWithExpiration(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := f.record(Call{Op: OpSetEx, Key: key, Value: value, TTL: ttl}); err != nil {
		return err
	}
	f.store.Store(key, append([]byte(nil), value...))
	return nil
}

func (f *FakeBackend) Invalidate(ctx context.Context, key string) error {
	if err := f.record(Call{Op: OpDel, Key: key}); err != nil {
		return err
	}
	f.store.Delete(key)
	return nil
}
