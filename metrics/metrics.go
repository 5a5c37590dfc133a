// Package metrics wraps the engine's Prometheus counters and
// histograms behind a small interface so tests can run against a
// no-op implementation instead of a live registry (spec SPEC_FULL.md
// §A.4). Grounded on the teacher pack's own registry-per-instance
// Prometheus wiring (Sumatoshi-tech-codefang's
// internal/observability/prometheus.go).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is the engine's observability surface: morsels processed,
// compile latency, fragment-cache hit/miss, and hash-table resizes.
type Recorder interface {
	MorselProcessed(pipeline string)
	CompileLatency(pipeline string, d time.Duration)
	FragmentCacheHit(identifier string)
	FragmentCacheMiss(identifier string)
	HashTableResize(table string)
}

// Prometheus is the live implementation, backed by its own registry so
// repeated construction (one per test, say) never collides with a
// previous instance's collectors.
type Prometheus struct {
	registry *prometheus.Registry

	morsels       *prometheus.CounterVec
	compileMillis *prometheus.HistogramVec
	fragHits      *prometheus.CounterVec
	fragMisses    *prometheus.CounterVec
	resizes       *prometheus.CounterVec
}

// NewPrometheus builds a Recorder with a fresh registry, registers it,
// and returns both the recorder and the registry for callers that want
// to serve /metrics themselves.
func NewPrometheus() (*Prometheus, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	p := &Prometheus{
		registry: reg,
		morsels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inkfuse_morsels_processed_total",
			Help: "Morsels processed, by pipeline tag.",
		}, []string{"pipeline"}),
		compileMillis: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "inkfuse_compile_latency_ms",
			Help:    "External C compiler latency in milliseconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		}, []string{"pipeline"}),
		fragHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inkfuse_fragment_cache_hits_total",
			Help: "Fragment cache lookups resolved from the cache.",
		}, []string{"identifier"}),
		fragMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inkfuse_fragment_cache_misses_total",
			Help: "Fragment cache lookups that found nothing.",
		}, []string{"identifier"}),
		resizes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inkfuse_hashtable_resizes_total",
			Help: "Hash table resizes, by table name.",
		}, []string{"table"}),
	}
	reg.MustRegister(p.morsels, p.compileMillis, p.fragHits, p.fragMisses, p.resizes)
	return p, reg
}

func (p *Prometheus) MorselProcessed(pipeline string) {
	p.morsels.WithLabelValues(pipeline).Inc()
}

func (p *Prometheus) CompileLatency(pipeline string, d time.Duration) {
	p.compileMillis.WithLabelValues(pipeline).Observe(float64(d.Milliseconds()))
}

func (p *Prometheus) FragmentCacheHit(identifier string) {
	p.fragHits.WithLabelValues(identifier).Inc()
}

func (p *Prometheus) FragmentCacheMiss(identifier string) {
	p.fragMisses.WithLabelValues(identifier).Inc()
}

func (p *Prometheus) HashTableResize(table string) {
	p.resizes.WithLabelValues(table).Inc()
}

// Noop discards every observation; the default Recorder for tests and
// for any caller that has not wired up a registry.
type Noop struct{}

func (Noop) MorselProcessed(string)              {}
func (Noop) CompileLatency(string, time.Duration) {}
func (Noop) FragmentCacheHit(string)              {}
func (Noop) FragmentCacheMiss(string)             {}
func (Noop) HashTableResize(string)               {}
