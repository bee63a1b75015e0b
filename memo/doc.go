// Package memo memoizes functions on top of a cache.Backend.
//
// # Overview
//
// A Cache binds a Backend to the settings shared by the functions decorated
// with it: payload codec, default TTL, key namespace, logger and metrics.
// Decorate wraps a function so that each call is answered from the backend
// when a value is stored for its arguments, and computed then stored
// otherwise.
//
// # Basic Usage
//
//	client, err := wire.New(wire.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	c := memo.New(client, memo.WithNamespace("billing"))
//
//	slowAdd := memo.Decorate(c, "slow_add",
//		func(ctx context.Context, args memo.Args) (int, error) {
//			return args.Arg(0).(int) + args.Arg(1).(int), nil
//		},
//		memo.Expiration(5*time.Minute),
//	)
//
//	sum, err := slowAdd.Call(ctx, 1, 2)
//
// # Call Flow
//
//  1. Derive the key from the function name and the argument signature
//  2. GET the key; a decodable value is returned as is
//  3. On a miss run the function and SETEX its encoded result
//  4. If the backend is unavailable run the function and skip the cache
//
// Arguments nested deeper than cache.MaxDepth cannot be keyed; such calls
// also run the function directly and Key reports cache.ErrUnkeyable.
//
// Configuration mistakes (a non-callable signature generator, a
// non-positive TTL) are reported before any backend I/O. Errors returned by
// the function itself are passed through and nothing is stored.
//
// # Keys
//
// Keys are the xxhash of the function name followed by the signature, see
// cache.DefaultSignature. Keyword arguments are sorted, so call sites that
// pass the same keywords in a different order share entries.
//
// # Invalidation
//
// A decoration created WithInvalidator returns an Invalidator from Invoke
// that deletes the entry for that call. The Cache also remembers the keys it
// has seen per function and per tag, see Tags and WithCacheTags, and can
// delete them as a group with InvalidateFunction and InvalidateTag. That
// index is process-local and forgets keys once their TTL has passed.
//
// # Concurrency
//
// Concurrent misses on the same key each run the function and the last
// write wins, unless the Cache is built WithSingleflight.
package memo
