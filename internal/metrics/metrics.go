// Package metrics provides Prometheus metrics for mcprobe.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "mcprobe"
)

// Metrics contains all Prometheus metrics for both roles. A process only
// ever runs one role, so the other role's series simply stay at zero.
type Metrics struct {
	// Prober metrics
	ProbesSent    prometheus.Counter
	AcksReceived  *prometheus.CounterVec
	AcksUnmatched prometheus.Counter
	AckTimeouts   prometheus.Counter
	ProbeRTT      prometheus.Histogram
	PacingDelay   prometheus.Gauge

	// Responder metrics
	ProbesReceived prometheus.Counter
	AcksSent       prometheus.Counter
	DecodeFailures prometheus.Counter
}

var (
	defaultMetrics *Metrics
	metricsOnce    sync.Once
)

// Default returns the default metrics instance.
func Default() *Metrics {
	metricsOnce.Do(func() {
		defaultMetrics = NewMetrics()
	})
	return defaultMetrics
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a new Metrics instance with a custom registry.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		ProbesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_sent_total",
			Help:      "Total number of probe datagrams sent to the group",
		}),
		AcksReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acks_received_total",
			Help:      "Total acknowledgements accepted, by correlation mode",
		}, []string{"mode"}),
		AcksUnmatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acks_unmatched_total",
			Help:      "Datagrams received in the wait window that did not match an in-flight probe",
		}),
		AckTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ack_timeouts_total",
			Help:      "Pacing cycles that ended without an acknowledgement",
		}),
		ProbeRTT: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_rtt_seconds",
			Help:      "Round-trip time from probe send to matching ack",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms .. ~1s
		}),
		PacingDelay: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pacing_delay_seconds",
			Help:      "Current inter-probe delay",
		}),

		ProbesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_received_total",
			Help:      "Valid probe datagrams received from the group",
		}),
		AcksSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acks_sent_total",
			Help:      "Acknowledgements unicast back to probe sources",
		}),
		DecodeFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Inbound datagrams that were not valid probes (foreign traffic)",
		}),
	}

	return m
}

// RecordProbeSent increments the sent counter.
func (m *Metrics) RecordProbeSent() {
	m.ProbesSent.Inc()
}

// RecordAck records an accepted acknowledgement and, for strict matches,
// the observed round-trip time.
func (m *Metrics) RecordAck(mode string, rtt time.Duration) {
	m.AcksReceived.WithLabelValues(mode).Inc()
	if rtt > 0 {
		m.ProbeRTT.Observe(rtt.Seconds())
	}
}

// RecordAckTimeout increments the timeout counter.
func (m *Metrics) RecordAckTimeout() {
	m.AckTimeouts.Inc()
}

// RecordUnmatched increments the unmatched-datagram counter.
func (m *Metrics) RecordUnmatched() {
	m.AcksUnmatched.Inc()
}

// SetPacingDelay publishes the current inter-probe delay.
func (m *Metrics) SetPacingDelay(d time.Duration) {
	m.PacingDelay.Set(d.Seconds())
}

// RecordProbeReceived increments the responder's valid-probe counter.
func (m *Metrics) RecordProbeReceived() {
	m.ProbesReceived.Inc()
}

// RecordAckSent increments the responder's ack counter.
func (m *Metrics) RecordAckSent() {
	m.AcksSent.Inc()
}

// RecordDecodeFailure increments the foreign-traffic counter.
func (m *Metrics) RecordDecodeFailure() {
	m.DecodeFailures.Inc()
}
