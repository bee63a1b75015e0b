package memo

// Metrics receives one event per engine decision. fn is the decorated
// function name.
type Metrics interface {
	// Hit is called when a stored value was decoded and returned.
	Hit(fn string)

	// Miss is called when the function had to run because no usable value
	// was stored.
	Miss(fn string)

	// Fallback is called when a backend read or write failed, or the
	// arguments could not be keyed, and the call ran without the cache.
	Fallback(fn string)

	// Store is called after a computed value was written to the backend.
	Store(fn string)

	// Invalidate is called after a key was deleted through an invalidation
	// handle or one of the Cache invalidation methods.
	Invalidate(fn string)
}

// NoopMetrics discards every event.
type NoopMetrics struct{}

func (NoopMetrics) Hit(string)        {}
func (NoopMetrics) Miss(string)       {}
func (NoopMetrics) Fallback(string)   {}
func (NoopMetrics) Store(string)      {}
func (NoopMetrics) Invalidate(string) {}
