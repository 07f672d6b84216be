// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "tastecert"

// Collector is a prometheus.Collector for the HTTP surface and the
// certification workflow.
type Collector struct {
	httpRequests         *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
	evaluationsSubmitted *prometheus.CounterVec
	certificatesIssued   *prometheus.CounterVec
	partialFailures      prometheus.Counter
	qrScans              prometheus.Counter
}

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	return &Collector{
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "The number of HTTP requests handled.",
			}, []string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "The time taken to handle an HTTP request.",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			}, []string{"method", "route"},
		),
		evaluationsSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "evaluations_submitted_total",
				Help:      "The number of evaluations submitted, by outcome.",
			}, []string{"outcome"},
		),
		certificatesIssued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "certificates_issued_total",
				Help:      "The number of certificates issued, by award level.",
			}, []string{"award_level"},
		),
		partialFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "certification_partial_failures_total",
				Help:      "The number of submissions whose evaluation committed but certificate did not.",
			},
		),
		qrScans: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "qr_scans_total",
				Help:      "The number of QR code scans redirected.",
			},
		),
	}
}

func (c *Collector) ObserveRequest(method, route, status string, seconds float64) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, route, status).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(seconds)
}

func (c *Collector) EvaluationSubmitted(outcome string) {
	if c == nil {
		return
	}
	c.evaluationsSubmitted.WithLabelValues(outcome).Inc()
}

func (c *Collector) CertificateIssued(awardLevel string) {
	if c == nil {
		return
	}
	c.certificatesIssued.WithLabelValues(awardLevel).Inc()
}

func (c *Collector) PartialFailure() {
	if c == nil {
		return
	}
	c.partialFailures.Inc()
}

func (c *Collector) QRScanned() {
	if c == nil {
		return
	}
	c.qrScans.Inc()
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.httpRequests.Describe(ch)
	c.httpDuration.Describe(ch)
	c.evaluationsSubmitted.Describe(ch)
	c.certificatesIssued.Describe(ch)
	c.partialFailures.Describe(ch)
	c.qrScans.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.httpRequests.Collect(ch)
	c.httpDuration.Collect(ch)
	c.evaluationsSubmitted.Collect(ch)
	c.certificatesIssued.Collect(ch)
	c.partialFailures.Collect(ch)
	c.qrScans.Collect(ch)
}
