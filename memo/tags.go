package memo

import (
	"context"
)

type cacheTagsContextKey struct{}

// WithCacheTags attaches tags to ctx. Keys stored by memoized calls made with
// the returned context are indexed under these tags in addition to the
// decoration tags, so InvalidateTag can remove them together.
func WithCacheTags(ctx context.Context, tags ...string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(tags) == 0 {
		return ctx
	}

	combined := dedupeStrings(append(cacheTagsFromContext(ctx), tags...))
	if len(combined) == 0 {
		return ctx
	}
	return context.WithValue(ctx, cacheTagsContextKey{}, combined)
}

func cacheTagsFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	if tags, ok := ctx.Value(cacheTagsContextKey{}).([]string); ok {
		return append([]string(nil), tags...)
	}
	return nil
}

// dedupeStrings drops empty and repeated values, keeping first occurrences
// in order.
func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
