package memo

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// pruneEvery is how many track calls pass between sweeps of expired keys.
const pruneEvery = 1024

type keySet = *xsync.MapOf[string, struct{}]

type keyEntry struct {
	fn        string
	expiresAt time.Time
}

// keyRegistry indexes the keys this process has stored or read, by function
// name and by tag. The backend contract has no set or scan operations, so
// group invalidation can only reach keys seen locally.
//
// Each key is kept until its TTL, measured from the latest store or read
// here, has passed. Expired keys are swept every pruneEvery tracks, so the
// index is bounded by the keys live within one TTL.
type keyRegistry struct {
	byFunction *xsync.MapOf[string, keySet]
	byTag      *xsync.MapOf[string, keySet]
	owners     *xsync.MapOf[string, keyEntry]
	tracked    atomic.Uint64
	now        func() time.Time
}

func newKeyRegistry() *keyRegistry {
	return &keyRegistry{
		byFunction: xsync.NewMapOf[string, keySet](),
		byTag:      xsync.NewMapOf[string, keySet](),
		owners:     xsync.NewMapOf[string, keyEntry](),
		now:        time.Now,
	}
}

func (r *keyRegistry) track(fn, key string, tags []string, ttl time.Duration) {
	deadline := r.now().Add(ttl)
	r.owners.Compute(key, func(old keyEntry, loaded bool) (keyEntry, bool) {
		if loaded && old.expiresAt.After(deadline) {
			deadline = old.expiresAt
		}
		return keyEntry{fn: fn, expiresAt: deadline}, false
	})
	addKey(r.byFunction, fn, key)
	for _, tag := range tags {
		addKey(r.byTag, tag, key)
	}

	if r.tracked.Add(1)%pruneEvery == 0 {
		r.prune()
	}
}

func addKey(index *xsync.MapOf[string, keySet], group, key string) {
	set, _ := index.LoadOrCompute(group, func() keySet {
		return xsync.NewMapOf[string, struct{}]()
	})
	set.Store(key, struct{}{})
}

func (r *keyRegistry) owner(key string) string {
	entry, _ := r.owners.Load(key)
	return entry.fn
}

func (r *keyRegistry) functionKeys(fn string) []string {
	return sortedKeys(r.byFunction, fn)
}

func (r *keyRegistry) tagKeys(tag string) []string {
	return sortedKeys(r.byTag, tag)
}

func sortedKeys(index *xsync.MapOf[string, keySet], group string) []string {
	set, ok := index.Load(group)
	if !ok {
		return nil
	}
	keys := make([]string, 0, set.Size())
	set.Range(func(key string, _ struct{}) bool {
		keys = append(keys, key)
		return true
	})
	sort.Strings(keys)
	return keys
}

// forget removes key from every index it appears in.
func (r *keyRegistry) forget(key string) {
	if entry, ok := r.owners.LoadAndDelete(key); ok {
		if set, ok := r.byFunction.Load(entry.fn); ok {
			set.Delete(key)
		}
	}
	r.byTag.Range(func(_ string, set keySet) bool {
		set.Delete(key)
		return true
	})
}

// prune forgets every key whose TTL has passed.
func (r *keyRegistry) prune() {
	now := r.now()
	var expired []string
	r.owners.Range(func(key string, entry keyEntry) bool {
		if !now.Before(entry.expiresAt) {
			expired = append(expired, key)
		}
		return true
	})
	for _, key := range expired {
		r.forget(key)
	}
}
