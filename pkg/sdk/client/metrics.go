package client

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Attempt outcomes recorded by conduit_sdk_attempts_total
const (
	outcomeOK        = "ok"
	outcomeTransport = "transport"
	outcomeTimeout   = "timeout"
	outcomeStatus    = "status"
	outcomeAborted   = "aborted"
	outcomeCached    = "cached"
)

// Metrics holds the prometheus collectors of a Service. A nil *Metrics
// records nothing.
type Metrics struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conduit_sdk_attempts_total",
				Help: "Number of request attempts by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conduit_sdk_request_duration_seconds",
				Help:    "Duration of requests including retries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conduit_sdk_errors_total",
				Help: "Number of errors handed to the error policy by kind",
			},
			[]string{"kind"},
		),
	}

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{m.attempts, m.duration, m.errors} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register sdk metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) attempt(method, outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) observe(method string, started time.Time) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(method).Observe(time.Since(started).Seconds())
}

func (m *Metrics) failed(kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(kind).Inc()
}
