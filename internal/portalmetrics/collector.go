package portalmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "goportal"
	subsystem = "portal"
)

// Label names for portal metrics.
const (
	labelRole   = "role"   // "inlet" or "outlet"
	labelPeer   = "peer"   // peer TCP address this worker bridges to
	labelReason = "reason" // teardown reason
)

// -------------------------------------------------------------------------
// Collector — Prometheus Portal Metrics
// -------------------------------------------------------------------------

// Collector holds all portal worker Prometheus metrics.
//
//   - Workers tracks currently active portal workers by role.
//   - BytesTransferred counts payload bytes crossing the overlay per role.
//   - Teardowns counts started teardowns labeled by reason, the signal an
//     operator watches for flapping upstreams or misbehaving clients.
//   - DialFailures counts Outlet dial failures during SendPong handling.
type Collector struct {
	// Workers tracks the number of currently active portal workers.
	// Incremented on worker registration, decremented on teardown.
	Workers *prometheus.GaugeVec

	// BytesTransferred counts payload bytes forwarded over the overlay,
	// per role.
	BytesTransferred *prometheus.CounterVec

	// Teardowns counts worker teardowns as they start, labeled by reason
	// (failed-tx, failed-rx, remote).
	Teardowns *prometheus.CounterVec

	// DialFailures counts Outlet upstream dial failures.
	DialFailures prometheus.Counter
}

// NewCollector creates a Collector with all portal metrics registered
// against the provided prometheus.Registerer. If reg is nil,
// prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.Workers,
		c.BytesTransferred,
		c.Teardowns,
		c.DialFailures,
	)

	return c
}

// newMetrics creates all Prometheus metric vectors without registering them.
func newMetrics() *Collector {
	roleLabels := []string{labelRole, labelPeer}
	teardownLabels := []string{labelRole, labelReason}

	return &Collector{
		Workers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "workers",
			Help:      "Number of currently active portal workers.",
		}, roleLabels),

		BytesTransferred: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bytes_transferred_total",
			Help:      "Total payload bytes forwarded over the overlay.",
		}, roleLabels),

		Teardowns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "teardowns_total",
			Help:      "Total started portal worker teardowns, by reason.",
		}, teardownLabels),

		DialFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dial_failures_total",
			Help:      "Total Outlet upstream dial failures during SendPong handling.",
		}),
	}
}

// -------------------------------------------------------------------------
// Worker Lifecycle
// -------------------------------------------------------------------------

// RegisterWorker increments the active workers gauge for role/peer. Called
// when a new portal worker is started.
func (c *Collector) RegisterWorker(role, peer string) {
	c.Workers.WithLabelValues(role, peer).Inc()
}

// UnregisterWorker decrements the active workers gauge for role/peer.
// Called when a portal worker finishes teardown.
func (c *Collector) UnregisterWorker(role, peer string) {
	c.Workers.WithLabelValues(role, peer).Dec()
}

// -------------------------------------------------------------------------
// Data Plane
// -------------------------------------------------------------------------

// AddBytesTransferred adds n to the transferred-bytes counter for role/peer.
// Called once per Payload frame forwarded over the overlay.
func (c *Collector) AddBytesTransferred(role, peer string, n int) {
	c.BytesTransferred.WithLabelValues(role, peer).Add(float64(n))
}

// -------------------------------------------------------------------------
// Teardown
// -------------------------------------------------------------------------

// RecordTeardown increments the teardown counter for role/reason. Called
// once per worker, at the start of start_disconnection.
func (c *Collector) RecordTeardown(role, reason string) {
	c.Teardowns.WithLabelValues(role, reason).Inc()
}

// IncDialFailures increments the Outlet dial failure counter.
func (c *Collector) IncDialFailures() {
	c.DialFailures.Inc()
}
