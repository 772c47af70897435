package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the Prometheus collectors the API exposes.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	entitlementDecisions *prometheus.CounterVec
	attemptsStarted      prometheus.Counter
	attemptsSubmitted    *prometheus.CounterVec
	certificateRenders   *prometheus.CounterVec
	subscriptionsExpired prometheus.Counter
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		entitlementDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "entitlement_decisions_total",
			Help: "Entitlement resolutions by decision kind.",
		}, []string{"kind"}),
		attemptsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exam_attempts_started_total",
			Help: "Exam attempts served to students.",
		}),
		attemptsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_attempts_submitted_total",
			Help: "Graded attempt submissions by outcome.",
		}, []string{"outcome"}),
		certificateRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "certificate_renders_total",
			Help: "Certificate render jobs by outcome.",
		}, []string{"outcome"}),
		subscriptionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Subscriptions moved to EXPIRED by the reconciler sweep.",
		}),
	}
	registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.entitlementDecisions,
		m.attemptsStarted,
		m.attemptsSubmitted,
		m.certificateRenders,
		m.subscriptionsExpired,
	)
	return m
}

// Handler serves the scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordDecision counts one entitlement resolution.
func (m *Metrics) RecordDecision(kind string) {
	m.entitlementDecisions.WithLabelValues(kind).Inc()
}

// RecordAttemptStart counts one served question paper.
func (m *Metrics) RecordAttemptStart() {
	m.attemptsStarted.Inc()
}

// RecordAttemptSubmit counts one graded submission.
func (m *Metrics) RecordAttemptSubmit(passed bool) {
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	m.attemptsSubmitted.WithLabelValues(outcome).Inc()
}

// RecordCertificateRender counts one render job outcome.
func (m *Metrics) RecordCertificateRender(ok bool) {
	outcome := "error"
	if ok {
		outcome = "ok"
	}
	m.certificateRenders.WithLabelValues(outcome).Inc()
}

// RecordExpiredSubscriptions counts rows swept by the reconciler.
func (m *Metrics) RecordExpiredSubscriptions(count int64) {
	m.subscriptionsExpired.Add(float64(count))
}
