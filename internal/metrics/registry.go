// Package metrics wires Prometheus collectors for the engine: evaluation
// throughput and latency, grid-search candidate outcomes, walk-forward fold
// counts, and cache hit/miss rates. Unlike the teacher's package-global
// registry, Registry is constructed explicitly and owns its own
// prometheus.Registry instance (§9 Design Notes, "Global state" — this repo
// never reaches for a package-level mutable singleton).
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector this engine exposes.
type Registry struct {
	registry *prometheus.Registry

	EvaluationDuration *prometheus.HistogramVec
	EvaluationsTotal   *prometheus.CounterVec

	OptimizerCandidates *prometheus.CounterVec

	WalkForwardFolds *prometheus.CounterVec

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	ActiveOptimizerWorkers prometheus.Gauge
}

// New constructs a Registry with all collectors registered against a fresh
// prometheus.Registry (never the global default, so multiple Registry
// instances can coexist in the same process, e.g. across tests).
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,

		EvaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backtestlab_evaluation_duration_seconds",
				Help:    "Duration of one full core evaluation (indicators through metrics)",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"result"},
		),

		EvaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtestlab_evaluations_total",
				Help: "Total number of core evaluations run, by result",
			},
			[]string{"result"},
		),

		OptimizerCandidates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtestlab_optimizer_candidates_total",
				Help: "Total number of grid-search candidates evaluated, by outcome",
			},
			[]string{"outcome"},
		),

		WalkForwardFolds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtestlab_walkforward_folds_total",
				Help: "Total number of walk-forward folds produced, by outcome",
			},
			[]string{"outcome"},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtestlab_cache_hits_total",
				Help: "Total cache hits, by cache name",
			},
			[]string{"cache"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtestlab_cache_misses_total",
				Help: "Total cache misses, by cache name",
			},
			[]string{"cache"},
		),

		ActiveOptimizerWorkers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "backtestlab_optimizer_active_workers",
				Help: "Number of grid-search worker goroutines currently evaluating a candidate",
			},
		),
	}

	reg.MustRegister(
		r.EvaluationDuration,
		r.EvaluationsTotal,
		r.OptimizerCandidates,
		r.WalkForwardFolds,
		r.CacheHits,
		r.CacheMisses,
		r.ActiveOptimizerWorkers,
	)

	return r
}

// Handler returns the HTTP handler serving this Registry's metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// EvaluationTimer tracks one core evaluation's duration.
type EvaluationTimer struct {
	registry *Registry
	start    time.Time
}

// StartEvaluation begins timing one core evaluation.
func (r *Registry) StartEvaluation() *EvaluationTimer {
	return &EvaluationTimer{registry: r, start: time.Now()}
}

// Stop records the evaluation's duration and increments its result counter.
func (t *EvaluationTimer) Stop(result string) {
	duration := time.Since(t.start).Seconds()
	t.registry.EvaluationDuration.WithLabelValues(result).Observe(duration)
	t.registry.EvaluationsTotal.WithLabelValues(result).Inc()
}

// RecordCacheHit increments the hit counter for the named cache.
func (r *Registry) RecordCacheHit(cache string) { r.CacheHits.WithLabelValues(cache).Inc() }

// RecordCacheMiss increments the miss counter for the named cache.
func (r *Registry) RecordCacheMiss(cache string) { r.CacheMisses.WithLabelValues(cache).Inc() }

// RecordOptimizerCandidate increments the candidate counter for outcome
// ("scored" or "failed").
func (r *Registry) RecordOptimizerCandidate(outcome string) {
	r.OptimizerCandidates.WithLabelValues(outcome).Inc()
}

// RecordWalkForwardFold increments the fold counter for outcome
// ("evaluated" or "skipped").
func (r *Registry) RecordWalkForwardFold(outcome string) {
	r.WalkForwardFolds.WithLabelValues(outcome).Inc()
}
