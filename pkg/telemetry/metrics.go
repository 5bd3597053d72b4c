package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "switchboard"

// Buckets tuned for LLM request latencies (100ms to 60s).
var durationBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}

// Metrics holds the gateway's Prometheus metrics on a dedicated
// registry. It implements routing.Observer so the orchestrator can
// report per-attempt outcomes without depending on this package.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	attemptsTotal   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	fallbackDepth   prometheus.Histogram

	tokensTotal *prometheus.CounterVec
	costTotal   *prometheus.CounterVec

	dedupTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the metric set. If registry is nil a
// fresh one is used, which also gets the standard Go and process
// collectors.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m := &Metrics{
		registry: registry,

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total gateway requests by endpoint and status.",
			},
			[]string{"endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "End-to-end gateway request duration in seconds.",
				Buckets:   durationBuckets,
			},
			[]string{"endpoint"},
		),

		attemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_attempts_total",
				Help:      "Upstream attempts by provider, model and outcome.",
			},
			[]string{"provider", "model", "outcome"},
		),
		providerLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_latency_seconds",
				Help:      "Upstream attempt latency in seconds.",
				Buckets:   durationBuckets,
			},
			[]string{"provider", "model"},
		),
		fallbackDepth: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fallback_depth",
				Help:      "Number of upstream attempts needed to serve a request.",
				Buckets:   []float64{1, 2, 3, 4, 5, 8, 12},
			},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_total",
				Help:      "Tokens processed by provider, model and type.",
			},
			[]string{"provider", "model", "type"},
		),
		costTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cost_usd_total",
				Help:      "Estimated upstream spend in USD.",
			},
			[]string{"provider", "model"},
		),

		dedupTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dedup_total",
				Help:      "Deduplication results: owner, shared or bypass.",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.attemptsTotal,
		m.providerLatency,
		m.fallbackDepth,
		m.tokensTotal,
		m.costTotal,
		m.dedupTotal,
	)
	return m
}

// RecordRequest records one completed gateway request.
func (m *Metrics) RecordRequest(endpoint, status string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(endpoint, status).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordUsage records token counts and cost for a served request.
func (m *Metrics) RecordUsage(provider, model string, promptTokens, completionTokens int, costUSD float64) {
	m.tokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	m.tokensTotal.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	if costUSD > 0 {
		m.costTotal.WithLabelValues(provider, model).Add(costUSD)
	}
}

// RecordDedup records a deduplication result.
func (m *Metrics) RecordDedup(result string) {
	m.dedupTotal.WithLabelValues(result).Inc()
}

// AttemptFinished implements routing.Observer.
func (m *Metrics) AttemptFinished(provider, model, outcome string, latency time.Duration) {
	m.attemptsTotal.WithLabelValues(provider, model, outcome).Inc()
	m.providerLatency.WithLabelValues(provider, model).Observe(latency.Seconds())
}

// FallbackDepth implements routing.Observer.
func (m *Metrics) FallbackDepth(depth int) {
	m.fallbackDepth.Observe(float64(depth))
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}
