package cacheinfra

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/goliatone/go-memocache/cache"
)

type fakeMemcache struct {
	mu    sync.Mutex
	items map[string]*memcache.Item
	err   error
}

func newFakeMemcache() *fakeMemcache {
	return &fakeMemcache{items: make(map[string]*memcache.Item)}
}

func (f *fakeMemcache) Get(key string) (*memcache.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	item, ok := f.items[key]
	if !ok {
		return nil, memcache.ErrCacheMiss
	}
	return item, nil
}

func (f *fakeMemcache) Set(item *memcache.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.items[item.Key] = item
	return nil
}

func (f *fakeMemcache) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.items[key]; !ok {
		return memcache.ErrCacheMiss
	}
	delete(f.items, key)
	return nil
}

func (f *fakeMemcache) item(key string) *memcache.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[key]
}

func TestMemcacheConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		config   MemcacheConfig
		errField string
	}{
		{name: "default", config: DefaultMemcacheConfig()},
		{name: "no servers", config: MemcacheConfig{}, errField: "Servers"},
		{name: "empty address", config: MemcacheConfig{Servers: []string{"a:11211", ""}}, errField: "Servers"},
		{name: "negative timeout", config: MemcacheConfig{Servers: []string{"a:11211"}, Timeout: -1}, errField: "Timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.errField == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if !cache.IsConfigError(err) {
				t.Fatalf("Expected config error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.errField) {
				t.Errorf("Expected error to mention %s, got %q", tt.errField, err.Error())
			}
		})
	}
}

func TestNewMemcacheBackend(t *testing.T) {
	if _, err := NewMemcacheBackend(MemcacheConfig{}); !cache.IsConfigError(err) {
		t.Errorf("Expected config error, got %v", err)
	}

	backend, err := NewMemcacheBackend(DefaultMemcacheConfig())
	if err != nil {
		t.Fatalf("NewMemcacheBackend() error = %v", err)
	}
	client, ok := backend.client.(*memcache.Client)
	if !ok {
		t.Fatalf("Expected *memcache.Client, got %T", backend.client)
	}
	if client.Timeout != memcache.DefaultTimeout {
		t.Errorf("Expected timeout %v, got %v", memcache.DefaultTimeout, client.Timeout)
	}
}

func TestMemcacheBackend_GetSetInvalidate(t *testing.T) {
	ctx := context.Background()
	fake := newFakeMemcache()
	backend := NewMemcacheBackendFromClient(fake)

	if _, found, err := backend.Get(ctx, "k"); err != nil || found {
		t.Fatalf("Get(missing) = found %v, err %v", found, err)
	}

	if err := backend.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if exp := fake.item("k").Expiration; exp != 0 {
		t.Errorf("Expected Set to store without expiration, got %d", exp)
	}

	value, found, err := backend.Get(ctx, "k")
	if err != nil || !found || string(value) != "v" {
		t.Fatalf("Get(k) = %q, %v, %v", value, found, err)
	}

	if err := backend.Invalidate(ctx, "k"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if err := backend.Invalidate(ctx, "k"); err != nil {
		t.Errorf("Invalidate(absent) should succeed, got %v", err)
	}
}

func TestMemcacheBackend_Expiration(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	tests := []struct {
		name string
		ttl  time.Duration
		want int32
	}{
		{name: "whole seconds", ttl: time.Minute, want: 60},
		{name: "rounded up", ttl: 1500 * time.Millisecond, want: 2},
		{name: "sub second", ttl: time.Millisecond, want: 1},
		{name: "relative limit", ttl: memcacheRelativeLimit, want: int32(memcacheRelativeLimit / time.Second)},
		{name: "absolute beyond limit", ttl: 31 * 24 * time.Hour, want: int32(now.Unix() + 31*24*3600)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeMemcache()
			backend := NewMemcacheBackendFromClient(fake)
			backend.now = func() time.Time { return now }

			if err := backend.SetWithExpiration(ctx, "k", []byte("v"), tt.ttl); err != nil {
				t.Fatalf("SetWithExpiration() error = %v", err)
			}
			if got := fake.item("k").Expiration; got != tt.want {
				t.Errorf("Expiration = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMemcacheBackend_InvalidTTL(t *testing.T) {
	fake := newFakeMemcache()
	backend := NewMemcacheBackendFromClient(fake)

	if err := backend.SetWithExpiration(context.Background(), "k", []byte("v"), 0); !cache.IsConfigError(err) {
		t.Errorf("Expected config error for zero ttl, got %v", err)
	}
	if err := backend.SetWithExpiration(context.Background(), "k", []byte("v"), 100*365*24*time.Hour); !cache.IsConfigError(err) {
		t.Errorf("Expected config error for out of range ttl, got %v", err)
	}
	if fake.item("k") != nil {
		t.Error("Expected nothing stored")
	}
}

func TestMemcacheBackend_Failures(t *testing.T) {
	fake := newFakeMemcache()
	fake.err = errors.New("dial tcp: connection refused")
	backend := NewMemcacheBackendFromClient(fake)
	ctx := context.Background()

	if _, _, err := backend.Get(ctx, "k"); !cache.IsBackendError(err) {
		t.Errorf("Get() expected backend error, got %v", err)
	}
	if err := backend.SetWithExpiration(ctx, "k", []byte("v"), time.Minute); !cache.IsBackendError(err) {
		t.Errorf("SetWithExpiration() expected backend error, got %v", err)
	}
	if err := backend.Invalidate(ctx, "k"); !cache.IsBackendError(err) {
		t.Errorf("Invalidate() expected backend error, got %v", err)
	}
}

func TestMemcacheBackend_CanceledContext(t *testing.T) {
	fake := newFakeMemcache()
	backend := NewMemcacheBackendFromClient(fake)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := backend.Get(ctx, "k")
	if !cache.IsBackendError(err) || !errors.Is(err, context.Canceled) {
		t.Errorf("Get() expected wrapped context.Canceled, got %v", err)
	}
	if err := backend.Set(ctx, "k", []byte("v")); !cache.IsBackendError(err) {
		t.Errorf("Set() expected backend error, got %v", err)
	}
	if fake.item("k") != nil {
		t.Error("Expected nothing stored with a canceled context")
	}
}
