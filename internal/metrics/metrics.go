// Package metrics provides Prometheus instrumentation of the attestation
// pipeline and transports, adapted from the corpus's infrastructure/metrics
// package — the HTTP/blockchain/database collectors it registers have no
// analog here, so this repo's Metrics instead tracks pipeline steps and
// transport requests.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors this library registers.
type Metrics struct {
	StepsTotal    *prometheus.CounterVec
	StepDuration  *prometheus.HistogramVec
	TransportReqs *prometheus.CounterVec
	KeyMismatches *prometheus.CounterVec
}

// New creates a Metrics instance registered against the default registerer.
func New(clientName string) *Metrics {
	return NewWithRegistry(clientName, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance registered against registerer,
// which may be nil to skip registration entirely (used in tests that
// construct multiple clients in one process).
func NewWithRegistry(clientName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		StepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tinfoil_attestation_steps_total",
				Help: "Total number of attestation pipeline steps, by step and outcome",
			},
			[]string{"client", "step", "status"},
		),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tinfoil_attestation_step_duration_seconds",
				Help:    "Attestation pipeline step duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"client", "step"},
		),
		TransportReqs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tinfoil_transport_requests_total",
				Help: "Total number of requests issued through a verified transport",
			},
			[]string{"client", "transport", "status"},
		),
		KeyMismatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tinfoil_key_mismatches_total",
				Help: "Total number of HPKE/TLS key pin mismatches detected",
			},
			[]string{"client", "transport"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(m.StepsTotal, m.StepDuration, m.TransportReqs, m.KeyMismatches)
	}

	return m
}

// RecordStep records the outcome and duration of one attestation pipeline
// step.
func (m *Metrics) RecordStep(client, step, status string, duration time.Duration) {
	m.StepsTotal.WithLabelValues(client, step, status).Inc()
	m.StepDuration.WithLabelValues(client, step).Observe(duration.Seconds())
}

// RecordTransportRequest records one request issued through a selected
// transport (hpke or pinned-tls).
func (m *Metrics) RecordTransportRequest(client, transport, status string) {
	m.TransportReqs.WithLabelValues(client, transport, status).Inc()
}

// RecordKeyMismatch records a detected key pin mismatch.
func (m *Metrics) RecordKeyMismatch(client, transport string) {
	m.KeyMismatches.WithLabelValues(client, transport).Inc()
}

var (
	global   *Metrics
	globalMu sync.Mutex
)

// Init initializes the process-wide Metrics instance, used by callers that
// want one shared set of collectors across multiple clients.
func Init(clientName string) *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = New(clientName)
	}
	return global
}

// Global returns the process-wide Metrics instance, creating one against an
// "unknown" client name if Init was never called.
func Global() *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = New("unknown")
	}
	return global
}
