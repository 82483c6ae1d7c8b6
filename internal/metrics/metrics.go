package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// RequestLatency tracks HTTP request latency by endpoint and method
	RequestLatency *prometheus.HistogramVec
	// HTTPRequestsTotal total HTTP requests
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTPRequestsInFlight current HTTP requests being processed
	HTTPRequestsInFlight prometheus.Gauge
	// UpstreamRequests counts upstream bank calls by bank, endpoint and status
	UpstreamRequests *prometheus.CounterVec
	// UpstreamLatency tracks upstream bank call latency
	UpstreamLatency *prometheus.HistogramVec
	// TokenRefreshes counts token acquisitions by bank and outcome
	TokenRefreshes *prometheus.CounterVec
	// ConsentNegotiations counts consent negotiations by bank and outcome
	ConsentNegotiations *prometheus.CounterVec
	// ConsentPolls counts consent status polls by bank and result
	ConsentPolls *prometheus.CounterVec
	// RecoveryRetries counts 401/403 recovery retries by bank and kind
	RecoveryRetries *prometheus.CounterVec
	// Transfers counts transfer executions by outcome
	Transfers *prometheus.CounterVec
	// ErrorCounter counts errors by type and endpoint
	ErrorCounter *prometheus.CounterVec
	// registry is the custom registry for this metrics instance
	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		RequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_latency_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"endpoint", "method", "status"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"endpoint", "method", "status"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		UpstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Total number of upstream bank API calls",
			},
			[]string{"bank", "endpoint", "status"},
		),
		UpstreamLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_latency_seconds",
				Help:      "Upstream bank API call latency in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 15.0},
			},
			[]string{"bank", "endpoint"},
		),
		TokenRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_refreshes_total",
				Help:      "Total number of access token acquisitions",
			},
			[]string{"bank", "outcome"},
		),
		ConsentNegotiations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "consent_negotiations_total",
				Help:      "Total number of consent negotiations",
			},
			[]string{"bank", "outcome"},
		),
		ConsentPolls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "consent_polls_total",
				Help:      "Total number of consent status polls",
			},
			[]string{"bank", "result"},
		),
		RecoveryRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recovery_retries_total",
				Help:      "Total number of token and consent recovery retries",
			},
			[]string{"bank", "kind"},
		),
		Transfers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfers_total",
				Help:      "Total number of transfer executions",
			},
			[]string{"outcome"},
		),
		ErrorCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors",
			},
			[]string{"type", "endpoint", "method"},
		),
	}

	registry.MustRegister(
		m.RequestLatency,
		m.HTTPRequestsTotal,
		m.HTTPRequestsInFlight,
		m.UpstreamRequests,
		m.UpstreamLatency,
		m.TokenRefreshes,
		m.ConsentNegotiations,
		m.ConsentPolls,
		m.RecoveryRetries,
		m.Transfers,
		m.ErrorCounter,
	)

	return m
}

// RecordRequestLatency records HTTP request latency
func (m *Metrics) RecordRequestLatency(endpoint, method, status string, seconds float64) {
	m.RequestLatency.WithLabelValues(endpoint, method, status).Observe(seconds)
}

// RecordHTTPRequest increments the HTTP request counter
func (m *Metrics) RecordHTTPRequest(endpoint, method, status string) {
	m.HTTPRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// IncHTTPRequestsInFlight increments in-flight requests
func (m *Metrics) IncHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight decrements in-flight requests
func (m *Metrics) DecHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

// RecordUpstreamRequest records an upstream bank API call
func (m *Metrics) RecordUpstreamRequest(bank, endpoint, status string, seconds float64) {
	m.UpstreamRequests.WithLabelValues(bank, endpoint, status).Inc()
	m.UpstreamLatency.WithLabelValues(bank, endpoint).Observe(seconds)
}

// RecordTokenRefresh records a token acquisition attempt
func (m *Metrics) RecordTokenRefresh(bank, outcome string) {
	m.TokenRefreshes.WithLabelValues(bank, outcome).Inc()
}

// RecordConsentNegotiation records a consent negotiation attempt
func (m *Metrics) RecordConsentNegotiation(bank, outcome string) {
	m.ConsentNegotiations.WithLabelValues(bank, outcome).Inc()
}

// RecordConsentPoll records a consent status poll
func (m *Metrics) RecordConsentPoll(bank, result string) {
	m.ConsentPolls.WithLabelValues(bank, result).Inc()
}

// RecordRecoveryRetry records a 401/403 recovery retry
func (m *Metrics) RecordRecoveryRetry(bank, kind string) {
	m.RecoveryRetries.WithLabelValues(bank, kind).Inc()
}

// RecordTransfer records a transfer execution outcome
func (m *Metrics) RecordTransfer(outcome string) {
	m.Transfers.WithLabelValues(outcome).Inc()
}

// RecordError increments the error counter
func (m *Metrics) RecordError(errorType, endpoint, method string) {
	m.ErrorCounter.WithLabelValues(errorType, endpoint, method).Inc()
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
