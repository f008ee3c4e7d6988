package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initMonitorMetrics() {
	r.ClientsAppearedTotal = promauto.With(r.registry).NewCounter(prometheus.CounterOpts{
		Name: "rdx_jack_clients_appeared_total",
		Help: "Clients observed appearing between monitor ticks",
	})

	r.ClientsDisappearedTotal = promauto.With(r.registry).NewCounter(prometheus.CounterOpts{
		Name: "rdx_jack_clients_disappeared_total",
		Help: "Clients observed disappearing between monitor ticks",
	})

	r.MonitorTickDuration = promauto.With(r.registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "rdx_jack_monitor_tick_duration_seconds",
		Help:    "Time taken to diff and react to one Client Monitor tick",
		Buckets: prometheus.DefBuckets,
	})
}
