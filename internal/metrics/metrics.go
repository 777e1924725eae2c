// Package metrics exposes verification pipeline counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"face_verification/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Failure stages reported by verification_failures_total.
const (
	StageInput   = "input"
	StageStorage = "storage"
	StageEncoder = "encoder"
	StageDecide  = "decide"
	StagePersist = "persist"
)

type Metrics struct {
	registry        *prometheus.Registry
	verifications   *prometheus.CounterVec
	failures        *prometheus.CounterVec
	encoderDuration prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verifications_total",
			Help: "Completed face verifications by result.",
		}, []string{"result"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verification_failures_total",
			Help: "Verifications that ended in an error, by pipeline stage.",
		}, []string{"stage"}),
		encoderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "encoder_duration_seconds",
			Help:    "Time spent waiting for the face encoder per verification.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}

	m.registry.MustRegister(
		m.verifications,
		m.failures,
		m.encoderDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveVerification(result models.Result) {
	m.verifications.WithLabelValues(string(result)).Inc()
}

func (m *Metrics) ObserveFailure(stage string) {
	m.failures.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveEncoder(d time.Duration) {
	m.encoderDuration.Observe(d.Seconds())
}
