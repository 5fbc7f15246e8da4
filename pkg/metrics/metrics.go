// Package metrics records codec activity.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives service events.
type Recorder interface {
	// Encoded records a successful encode of a root item.
	Encoded(duration time.Duration)
	// CacheLookup records a cached tree hit or miss.
	CacheLookup(hit bool)
	// Degraded records a read that fell back to an empty tree.
	Degraded()
	// Persisted records flattened updates written to the store.
	Persisted(updates int)
	// Gated records a write the gate refused, labelled by reason.
	Gated(reason string)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Encoded(time.Duration) {}
func (Nop) CacheLookup(bool)      {}
func (Nop) Degraded()             {}
func (Nop) Persisted(int)         {}
func (Nop) Gated(string)          {}

// Prometheus exports events as Prometheus collectors under the "fieldtree"
// namespace.
type Prometheus struct {
	gatherer prometheus.Gatherer

	encodes   prometheus.Counter
	duration  prometheus.Histogram
	cache     *prometheus.CounterVec
	degraded  prometheus.Counter
	persisted prometheus.Counter
	gated     *prometheus.CounterVec
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus registers the collectors with a fresh registry.
func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	p := newPrometheus(registry)
	p.gatherer = registry
	return p
}

// NewPrometheusWith registers the collectors with reg, which must also be
// the gatherer served by Handler.
func NewPrometheusWith(reg *prometheus.Registry) *Prometheus {
	p := newPrometheus(reg)
	p.gatherer = reg
	return p
}

func newPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		encodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fieldtree",
			Name:      "encodes_total",
			Help:      "Root item trees built by the encoder.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fieldtree",
			Name:      "encode_duration_seconds",
			Help:      "Time spent encoding a root item, references included.",
			Buckets:   prometheus.DefBuckets,
		}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldtree",
			Name:      "cache_lookups_total",
			Help:      "Cached tree lookups by result.",
		}, []string{"result"}),
		degraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fieldtree",
			Name:      "degraded_reads_total",
			Help:      "Reads answered with an empty tree after an encode failure.",
		}),
		persisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fieldtree",
			Name:      "persisted_updates_total",
			Help:      "Flattened updates written to the value store.",
		}),
		gated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldtree",
			Name:      "gated_writes_total",
			Help:      "Write requests refused by the write gate.",
		}, []string{"reason"}),
	}
	reg.MustRegister(p.encodes, p.duration, p.cache, p.degraded, p.persisted, p.gated)
	return p
}

// Encoded implements Recorder.
func (p *Prometheus) Encoded(duration time.Duration) {
	p.encodes.Inc()
	p.duration.Observe(duration.Seconds())
}

// CacheLookup implements Recorder.
func (p *Prometheus) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cache.WithLabelValues(result).Inc()
}

// Degraded implements Recorder.
func (p *Prometheus) Degraded() { p.degraded.Inc() }

// Persisted implements Recorder.
func (p *Prometheus) Persisted(updates int) { p.persisted.Add(float64(updates)) }

// Gated implements Recorder.
func (p *Prometheus) Gated(reason string) { p.gated.WithLabelValues(reason).Inc() }

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

// Gatherer returns the registry backing the collectors.
func (p *Prometheus) Gatherer() prometheus.Gatherer {
	return p.gatherer
}
