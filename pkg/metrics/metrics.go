// Package metrics exposes Prometheus collectors for provider traffic and swap lifecycle.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "swap_aggregator"

// Metrics holds all Prometheus metrics for the aggregator.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ProviderRequests *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	ProvidersLoaded  prometheus.Gauge
	RatesReturned    *prometheus.CounterVec
	SwapsInitiated   *prometheus.CounterVec
	SwapStatuses     *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers every collector on reg. Passing nil uses a private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		ProviderRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Total number of provider calls by operation and result",
		}, []string{"provider", "operation", "result"}),
		ProviderLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Provider call latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 8), // 50ms .. 6.4s
		}, []string{"provider", "operation"}),
		ProvidersLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "providers_available",
			Help:      "Number of providers returned by the last aggregation",
		}),
		RatesReturned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rates",
			Name:      "returned_total",
			Help:      "Rates returned to callers by provider and outcome",
		}, []string{"provider", "outcome"}),
		SwapsInitiated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "initiated_total",
			Help:      "Swap initiations by provider and result",
		}, []string{"provider", "result"}),
		SwapStatuses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "statuses_total",
			Help:      "Mapped swap statuses observed by provider",
		}, []string{"provider", "status"}),
		gatherer: reg,
	}
}

// ObserveProviderCall records one provider call
func (m *Metrics) ObserveProviderCall(provider, operation string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(provider, operation, result(err)).Inc()
	m.ProviderLatency.WithLabelValues(provider, operation).Observe(elapsed.Seconds())
}

// SetProvidersLoaded records the size of the last aggregation
func (m *Metrics) SetProvidersLoaded(n int) {
	if m == nil {
		return
	}
	m.ProvidersLoaded.Set(float64(n))
}

// RecordRate records a rate entry handed back to the caller
func (m *Metrics) RecordRate(provider string, err error) {
	if m == nil {
		return
	}
	m.RatesReturned.WithLabelValues(provider, result(err)).Inc()
}

// RecordSwapInitiated records the outcome of one initiation
func (m *Metrics) RecordSwapInitiated(provider string, err error) {
	if m == nil {
		return
	}
	m.SwapsInitiated.WithLabelValues(provider, result(err)).Inc()
}

// RecordSwapStatus records a mapped status ("unknown" when unresolved)
func (m *Metrics) RecordSwapStatus(provider, status string) {
	if m == nil {
		return
	}
	if status == "" {
		status = "unknown"
	}
	m.SwapStatuses.WithLabelValues(provider, status).Inc()
}

// Handler returns an HTTP handler serving the registered metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
