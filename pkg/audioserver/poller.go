package audioserver

import (
	"context"
	"sync"
	"time"

	"github.com/anjeleno/rdx-rivendell/pkg/logging"
	"github.com/anjeleno/rdx-rivendell/pkg/metrics"
)

// StatusFunc receives server liveness transitions.
type StatusFunc func(running bool)

// StatusPoller probes the audio server on a fixed cadence, reopens the
// Client's session when the server comes back, and reports transitions.
// Polling is the authoritative truth; server-side notifications are at
// most a wakeup hint.
type StatusPoller struct {
	client   *Client
	interval time.Duration
	log      logging.Logger
	met      *metrics.Registry

	mu       sync.Mutex
	onChange []StatusFunc
	last     bool
	primed   bool
}

// NewStatusPoller creates a poller. It does not start until Run is called.
func NewStatusPoller(client *Client, interval time.Duration, log logging.Logger, met *metrics.Registry) *StatusPoller {
	if interval <= 0 {
		interval = time.Second
	}
	return &StatusPoller{
		client:   client,
		interval: interval,
		log:      log.With(logging.Component("status-poller")),
		met:      met,
	}
}

// OnChange registers a callback invoked on every liveness transition and
// once with the initial state.
func (sp *StatusPoller) OnChange(fn StatusFunc) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.onChange = append(sp.onChange, fn)
}

// Run polls until the context is cancelled. The first probe happens
// immediately so the daemon knows its starting state.
func (sp *StatusPoller) Run(ctx context.Context) {
	sp.probe(ctx)

	ticker := time.NewTicker(sp.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sp.probe(ctx)
		}
	}
}

func (sp *StatusPoller) probe(ctx context.Context) {
	running := sp.client.IsRunning(ctx)
	if running {
		sp.client.Reconnect()
		sp.met.AudioServerUp.Set(1)
	} else {
		sp.met.AudioServerUp.Set(0)
	}

	sp.mu.Lock()
	changed := !sp.primed || running != sp.last
	sp.primed = true
	sp.last = running
	callbacks := make([]StatusFunc, len(sp.onChange))
	copy(callbacks, sp.onChange)
	sp.mu.Unlock()

	if !changed {
		return
	}
	sp.met.AudioServerFlapTotal.Inc()
	sp.log.Info("audio server status changed", logging.Bool("running", running))
	for _, fn := range callbacks {
		fn(running)
	}
}
