// Package metrics collects pipeline counters and pushes them to a Prometheus Pushgateway.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds every collector on a private registry so repeated
// construction in tests never collides with the default registry.
type Metrics struct {
	registry *prometheus.Registry

	FetchesTotal      *prometheus.CounterVec
	CacheLookupsTotal *prometheus.CounterVec
	VerdictsTotal     *prometheus.CounterVec
	FetchDuration     *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "homoxion_fetches_total",
				Help: "Total number of source fetches",
			},
			[]string{"source", "status"},
		),
		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "homoxion_cache_lookups_total",
				Help: "Total number of cache lookups by outcome",
			},
			[]string{"outcome"},
		),
		VerdictsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "homoxion_verdicts_total",
				Help: "Total number of copyright verdicts",
			},
			[]string{"verdict"},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "homoxion_fetch_duration_seconds",
				Help:    "Time spent fetching from each source",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
	}

	m.registry.MustRegister(
		m.FetchesTotal,
		m.CacheLookupsTotal,
		m.VerdictsTotal,
		m.FetchDuration,
	)

	return m
}

// RecordFetch counts one fetch of source ending in status (core.FetchStatus*).
func (m *Metrics) RecordFetch(source, status string, seconds float64) {
	m.FetchesTotal.WithLabelValues(source, status).Inc()
	m.FetchDuration.WithLabelValues(source).Observe(seconds)
}

func (m *Metrics) RecordCache(outcome string) {
	m.CacheLookupsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordVerdict(verdict string) {
	m.VerdictsTotal.WithLabelValues(verdict).Inc()
}

// Push sends the current values to the Pushgateway at url under job.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
