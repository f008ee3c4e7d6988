package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRoutingMetrics() {
	r.ConnectionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "rdx_jack_connections_total",
			Help: "connect() calls issued to the audio server, by result",
		},
		[]string{"result"},
	)

	r.DisconnectionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "rdx_jack_disconnections_total",
			Help: "disconnect() calls issued to the audio server, by result",
		},
		[]string{"result"},
	)

	r.CriticalBlockedTotal = promauto.With(r.registry).NewCounter(prometheus.CounterOpts{
		Name: "rdx_jack_critical_disconnects_blocked_total",
		Help: "Disconnects skipped by the safe-mutation discipline because the edge was critical",
	})

	r.UnknownPeerSkippedTotal = promauto.With(r.registry).NewCounter(prometheus.CounterOpts{
		Name: "rdx_jack_switch_input_unknown_peer_skipped_total",
		Help: "switch_input disconnects skipped because the existing peer could not be classified",
	})

	r.ProfileActivationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "rdx_jack_profile_activations_total",
			Help: "load_profile calls by result",
		},
		[]string{"result"},
	)

	r.InputSwitchesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "rdx_jack_input_switches_total",
			Help: "switch_input calls by result",
		},
		[]string{"result"},
	)

	r.EmergencyDisconnectTotal = promauto.With(r.registry).NewCounter(prometheus.CounterOpts{
		Name: "rdx_jack_emergency_disconnects_total",
		Help: "emergency_disconnect invocations",
	})

	r.LaunchFailuresTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "rdx_jack_launch_failures_total",
			Help: "ServiceLauncher start failures by client",
		},
		[]string{"client"},
	)
}
