package memo

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/goliatone/go-memocache/cache"
	"github.com/goliatone/go-memocache/pkg/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeNamespace(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "billing", want: "billing"},
		{in: "Billing Service", want: "billing_service"},
		{in: "UserCache", want: "user_cache"},
		{in: "userID", want: "user_id"},
		{in: "HTTPServer", want: "http_server"},
		{in: "billing-v2", want: "billing_v2"},
		{in: "*repo.Cache[int]", want: "repo_cache_int"},
		{in: "  a\t\nb  ", want: "a_b"},
		{in: "__x__", want: "x"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeNamespace(tt.in))
		})
	}
}

func TestWithCacheTags(t *testing.T) {
	ctx := WithCacheTags(context.Background(), "tenant:1", "", "tenant:1")
	ctx = WithCacheTags(ctx, "reports", "tenant:1")
	assert.Equal(t, []string{"tenant:1", "reports"}, cacheTagsFromContext(ctx))

	plain := context.Background()
	assert.Equal(t, plain, WithCacheTags(plain))
	assert.Nil(t, cacheTagsFromContext(plain))
}

func TestDedupeStrings(t *testing.T) {
	assert.Nil(t, dedupeStrings(nil))
	assert.Equal(t, []string{"a", "b"}, dedupeStrings([]string{"a", "", "b", "a"}))
}

func TestArgs(t *testing.T) {
	base := Positional(1, "two")
	withKw := base.With("limit", 10)

	assert.Nil(t, base.Keyword, "With must not mutate the receiver")
	assert.Equal(t, 1, withKw.Arg(0))
	assert.Nil(t, withKw.Arg(5))

	limit, ok := withKw.Kwarg("limit")
	assert.True(t, ok)
	assert.Equal(t, 10, limit)

	_, ok = withKw.Kwarg("offset")
	assert.False(t, ok)
}

func TestCache_Defaults(t *testing.T) {
	backend := testsupport.NewFakeBackend()
	c := New(backend)

	assert.Same(t, backend, c.Backend())
	assert.Equal(t, DefaultExpiration, c.DefaultExpiration())
	assert.Empty(t, c.Namespace())
}

func TestCache_InvalidateFunction(t *testing.T) {
	ctx := context.Background()
	backend := testsupport.NewFakeBackend()
	c := New(backend)
	fn := &counter{}
	f := Decorate(c, "f", fn.echo)
	g := Decorate(c, "g", (&counter{}).echo)

	for _, arg := range []string{"a", "b"} {
		_, err := f.Call(ctx, arg)
		require.NoError(t, err)
	}
	_, err := g.Call(ctx, "a")
	require.NoError(t, err)

	want := []string{cache.Key("f", "a"), cache.Key("f", "b")}
	sort.Strings(want)
	assert.Equal(t, want, c.TrackedKeys("f"))

	require.NoError(t, c.InvalidateFunction(ctx, "f"))
	assert.Empty(t, c.TrackedKeys("f"))
	assert.Len(t, c.TrackedKeys("g"), 1)
	assert.Equal(t, 1, backend.Len(), "only g's entry remains")

	_, err = f.Call(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 3, fn.count())
}

func TestCache_InvalidateTag(t *testing.T) {
	ctx := context.Background()
	backend := testsupport.NewFakeBackend()
	c := New(backend)
	reports := Decorate(c, "reports", (&counter{}).echo, Tags("tenant:1"))
	users := Decorate(c, "users", (&counter{}).echo)

	_, err := reports.Call(ctx, "q1")
	require.NoError(t, err)
	_, err = users.Call(WithCacheTags(ctx, "tenant:1"), "u1")
	require.NoError(t, err)
	_, err = users.Call(ctx, "u2")
	require.NoError(t, err)

	assert.Len(t, c.TaggedKeys("tenant:1"), 2)

	require.NoError(t, c.InvalidateTag(ctx, "tenant:1"))
	assert.Empty(t, c.TaggedKeys("tenant:1"))
	assert.Equal(t, []string{cache.Key("users", "u2")}, c.TrackedKeys("users"))
	assert.Equal(t, 1, backend.Len())
}

func TestCache_InvalidateJoinsErrors(t *testing.T) {
	ctx := context.Background()
	backend := testsupport.NewFakeBackend()
	c := New(backend)
	f := Decorate(c, "f", (&counter{}).echo)

	for _, arg := range []string{"a", "b"} {
		_, err := f.Call(ctx, arg)
		require.NoError(t, err)
	}

	backend.FailOn(testsupport.OpDel, nil)
	err := c.InvalidateFunction(ctx, "f")
	require.Error(t, err)
	assert.True(t, cache.IsBackendError(err))
	assert.Len(t, backend.CallsFor(testsupport.OpDel), 2, "deletion continues past failures")
	assert.Len(t, c.TrackedKeys("f"), 2)
}

func TestCache_InvalidateUnknownGroup(t *testing.T) {
	c := New(testsupport.NewFakeBackend())
	assert.NoError(t, c.InvalidateFunction(context.Background(), "missing"))
	assert.NoError(t, c.InvalidateTag(context.Background(), "missing"))
}

func TestCache_InvalidateKey(t *testing.T) {
	ctx := context.Background()
	backend := testsupport.NewFakeBackend()
	backend.Seed("external", []byte("v"))

	require.NoError(t, New(backend).Invalidate(ctx, "external"))
	_, ok := backend.Value("external")
	assert.False(t, ok)
}

func TestKeyRegistry_PrunesExpiredKeys(t *testing.T) {
	now := time.Unix(1700000000, 0)
	r := newKeyRegistry()
	r.now = func() time.Time { return now }

	r.track("f", "short", []string{"tenant:1"}, time.Minute)
	r.track("f", "long", []string{"tenant:1"}, time.Hour)
	r.track("g", "read", nil, time.Minute)

	now = now.Add(30 * time.Second)
	r.track("g", "read", nil, time.Minute)

	now = now.Add(45 * time.Second)
	r.prune()

	assert.Equal(t, []string{"long"}, r.functionKeys("f"))
	assert.Equal(t, []string{"long"}, r.tagKeys("tenant:1"))
	assert.Equal(t, []string{"read"}, r.functionKeys("g"), "a later read extends the deadline")
	assert.Empty(t, r.owner("short"))

	now = now.Add(time.Hour)
	r.prune()
	assert.Empty(t, r.functionKeys("f"))
	assert.Empty(t, r.functionKeys("g"))
}

func TestKeyRegistry_SweepsWhileTracking(t *testing.T) {
	now := time.Unix(1700000000, 0)
	r := newKeyRegistry()
	r.now = func() time.Time { return now }

	r.track("f", "stale", nil, time.Second)
	now = now.Add(time.Minute)
	for i := 1; i < pruneEvery; i++ {
		r.track("g", "live", nil, time.Hour)
	}

	assert.Empty(t, r.functionKeys("f"))
	assert.Equal(t, []string{"live"}, r.functionKeys("g"))
}
