// Package metrics exposes the daemon's Prometheus registry.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Registry holds every metric this daemon emits.
type Registry struct {
	// Graph Model
	ClientsTotal prometheus.Gauge
	PortsTotal   prometheus.Gauge
	EdgesTotal   prometheus.Gauge
	CriticalEdgesTotal prometheus.Gauge

	GraphRefreshTotal    *prometheus.CounterVec // result: ok, disconnected
	GraphRefreshDuration prometheus.Histogram

	// Routing Controller
	ConnectionsTotal         *prometheus.CounterVec // result: ok, already_connected, unknown_port, disconnected
	DisconnectionsTotal      *prometheus.CounterVec // result: ok, not_connected, unknown_port, disconnected
	CriticalBlockedTotal     prometheus.Counter     // disconnects skipped because the edge was critical
	UnknownPeerSkippedTotal  prometheus.Counter     // switch_input disconnects skipped, unclassified peer
	ProfileActivationsTotal  *prometheus.CounterVec // result: ok, unknown_profile
	InputSwitchesTotal       *prometheus.CounterVec // result: ok, partial, no_source_ports, no_sink_ports, disconnected
	EmergencyDisconnectTotal prometheus.Counter
	LaunchFailuresTotal      *prometheus.CounterVec // client name

	// Client Monitor
	ClientsAppearedTotal    prometheus.Counter
	ClientsDisappearedTotal prometheus.Counter
	MonitorTickDuration     prometheus.Histogram

	// Audio-Server Client / status poller
	AudioServerUp        prometheus.Gauge
	AudioServerFlapTotal prometheus.Counter

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide metrics registry.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates an independent registry with all metrics initialized.
// Tests use this to avoid colliding with the process-wide default.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{registry: reg}
	r.initGraphMetrics()
	r.initRoutingMetrics()
	r.initMonitorMetrics()
	r.initAudioServerMetrics()

	return r
}

// PrometheusRegistry returns the underlying Prometheus registry, e.g. to
// mount promhttp.HandlerFor on the debug HTTP endpoint.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Gather snapshots every metric family, for tests and status inspection.
func (r *Registry) Gather() ([]*dto.MetricFamily, error) {
	return r.registry.Gather()
}
