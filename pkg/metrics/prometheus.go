// Package metrics exports memoization events to Prometheus.
package metrics

import (
	"github.com/goliatone/go-memocache/memo"
	"github.com/prometheus/client_golang/prometheus"
)

const functionLabel = "function"

// Prometheus counts memo events per decorated function. It implements both
// memo.Metrics and prometheus.Collector.
type Prometheus struct {
	hits          *prometheus.CounterVec
	misses        *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	stores        *prometheus.CounterVec
	invalidations *prometheus.CounterVec
}

var (
	_ memo.Metrics         = (*Prometheus)(nil)
	_ prometheus.Collector = (*Prometheus)(nil)
)

// NewPrometheus creates the counters under namespace, for example
// "billing_memo_hits_total". constLabels are attached to every series.
func NewPrometheus(namespace string, constLabels prometheus.Labels) *Prometheus {
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "memo",
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		}, []string{functionLabel})
	}

	return &Prometheus{
		hits:          counter("hits_total", "Calls answered from the cache."),
		misses:        counter("misses_total", "Calls that ran the function because no usable value was stored."),
		fallbacks:     counter("fallbacks_total", "Backend failures or unkeyable arguments that degraded a call to an uncached run."),
		stores:        counter("stores_total", "Computed values written to the backend."),
		invalidations: counter("invalidations_total", "Keys deleted through invalidation."),
	}
}

// Register adds the collector to reg, prometheus.DefaultRegisterer when nil.
func (p *Prometheus) Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return reg.Register(p)
}

func (p *Prometheus) Hit(fn string)        { p.hits.WithLabelValues(fn).Inc() }
func (p *Prometheus) Miss(fn string)       { p.misses.WithLabelValues(fn).Inc() }
func (p *Prometheus) Fallback(fn string)   { p.fallbacks.WithLabelValues(fn).Inc() }
func (p *Prometheus) Store(fn string)      { p.stores.WithLabelValues(fn).Inc() }
func (p *Prometheus) Invalidate(fn string) { p.invalidations.WithLabelValues(fn).Inc() }

func (p *Prometheus) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range p.counters() {
		c.Describe(ch)
	}
}

func (p *Prometheus) Collect(ch chan<- prometheus.Metric) {
	for _, c := range p.counters() {
		c.Collect(ch)
	}
}

func (p *Prometheus) counters() []*prometheus.CounterVec {
	return []*prometheus.CounterVec{p.hits, p.misses, p.fallbacks, p.stores, p.invalidations}
}
