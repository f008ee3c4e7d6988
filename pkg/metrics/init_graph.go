package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGraphMetrics() {
	r.ClientsTotal = promauto.With(r.registry).NewGauge(prometheus.GaugeOpts{
		Name: "rdx_jack_clients_total",
		Help: "Number of clients in the current graph snapshot",
	})

	r.PortsTotal = promauto.With(r.registry).NewGauge(prometheus.GaugeOpts{
		Name: "rdx_jack_ports_total",
		Help: "Number of ports in the current graph snapshot",
	})

	r.EdgesTotal = promauto.With(r.registry).NewGauge(prometheus.GaugeOpts{
		Name: "rdx_jack_edges_total",
		Help: "Number of edges in the current graph snapshot",
	})

	r.CriticalEdgesTotal = promauto.With(r.registry).NewGauge(prometheus.GaugeOpts{
		Name: "rdx_jack_critical_edges_total",
		Help: "Number of currently-present edges that are critical",
	})

	r.GraphRefreshTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "rdx_jack_graph_refresh_total",
			Help: "Graph Model refresh attempts by result",
		},
		[]string{"result"},
	)

	r.GraphRefreshDuration = promauto.With(r.registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "rdx_jack_graph_refresh_duration_seconds",
		Help:    "Time taken to refresh the Graph Model from the audio server",
		Buckets: prometheus.DefBuckets,
	})
}
