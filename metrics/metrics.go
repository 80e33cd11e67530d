// Package metrics exposes the Prometheus collectors of the rate engine.
// A nil *Metrics is valid and records nothing
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jcbrates"

// Fetch outcomes
const (
	FetchOK          = "ok"
	FetchUnavailable = "unavailable"
	FetchParseError  = "parse_error"
	FetchError       = "error"
)

// Prefetch outcomes
const (
	PrefetchSaved       = "saved"
	PrefetchUpToDate    = "up_to_date"
	PrefetchUnpublished = "unpublished"
	PrefetchFailed      = "failed"
)

// Conversion outcomes
const (
	ConversionOK              = "ok"
	ConversionUnknownCurrency = "unknown_currency"
	ConversionError           = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	TableFetches   *prometheus.CounterVec
	CacheLookups   *prometheus.CounterVec
	Conversions    *prometheus.CounterVec
	Prefetches     *prometheus.CounterVec
	FetchDuration  prometheus.Histogram
	ResolvedLagDay prometheus.Gauge
}

// New creates the collectors on a dedicated registry
func New() *Metrics {
	var (
		registry = prometheus.NewRegistry()
		factory  = promauto.With(registry)
	)

	return &Metrics{
		registry: registry,

		TableFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "table_fetches_total",
				Help:      "Total number of remote rate table fetches, by outcome",
			},
			[]string{"outcome"},
		),

		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Total number of rate table cache lookups, by result",
			},
			[]string{"result"},
		),

		Conversions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversions_total",
				Help:      "Total number of currency conversions, by outcome",
			},
			[]string{"outcome"},
		),

		Prefetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "prefetch_runs_total",
				Help:      "Total number of background prefetch runs, by outcome",
			},
			[]string{"outcome"},
		),

		FetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "table_fetch_duration_seconds",
				Help:      "Remote rate table fetch duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),

		ResolvedLagDay: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "resolved_table_lag_days",
				Help:      "Days between today and the latest resolved rate table",
			},
		),
	}
}

// Handler serves the collected metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFetch records a remote fetch
func (m *Metrics) ObserveFetch(outcome string, seconds float64) {
	if m == nil {
		return
	}

	m.TableFetches.WithLabelValues(outcome).Inc()
	m.FetchDuration.Observe(seconds)
}

// ObserveCacheLookup records a cache lookup
func (m *Metrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}

	result := "miss"
	if hit {
		result = "hit"
	}

	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveConversion records a conversion
func (m *Metrics) ObserveConversion(outcome string) {
	if m == nil {
		return
	}

	m.Conversions.WithLabelValues(outcome).Inc()
}

// ObservePrefetch records a background prefetch run
func (m *Metrics) ObservePrefetch(outcome string) {
	if m == nil {
		return
	}

	m.Prefetches.WithLabelValues(outcome).Inc()
}

// SetResolvedLag records how many days old the latest resolved table is
func (m *Metrics) SetResolvedLag(days int) {
	if m == nil {
		return
	}

	m.ResolvedLagDay.Set(float64(days))
}
