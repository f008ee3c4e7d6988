package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initAudioServerMetrics() {
	r.AudioServerUp = promauto.With(r.registry).NewGauge(prometheus.GaugeOpts{
		Name: "rdx_jack_audio_server_up",
		Help: "Whether the Audio-Server Client currently has a live session (1=up, 0=down)",
	})

	r.AudioServerFlapTotal = promauto.With(r.registry).NewCounter(prometheus.CounterOpts{
		Name: "rdx_jack_audio_server_flap_total",
		Help: "Transitions of the audio server between running and not-running",
	})
}
