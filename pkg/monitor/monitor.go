// Package monitor watches the client population by diffing successive
// graph snapshots and drives the Routing Controller's reaction policy.
// It never talks to the audio server's mutation surface itself.
package monitor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/anjeleno/rdx-rivendell/pkg/eventlog"
	"github.com/anjeleno/rdx-rivendell/pkg/graph"
	"github.com/anjeleno/rdx-rivendell/pkg/logging"
	"github.com/anjeleno/rdx-rivendell/pkg/metrics"
	"github.com/anjeleno/rdx-rivendell/pkg/routing"
)

// DefaultTick is the poll cadence. Polling is authoritative: server-side
// change notifications are at most a wakeup hint.
const DefaultTick = time.Second

// DefaultSettle is how long a just-appeared client gets to finish
// registering its ports before it is routed.
const DefaultSettle = 500 * time.Millisecond

// Monitor diffs the client set once per tick and reacts to appearances
// and departures.
type Monitor struct {
	model  *graph.Model
	ctrl   *routing.Controller
	events *eventlog.Log
	log    logging.Logger
	met    *metrics.Registry

	tick   time.Duration
	settle time.Duration

	mu      sync.Mutex
	known   map[string]bool
	primed  bool
	pending []*time.Timer
}

// New creates a Monitor. It does not start until Run is called.
func New(model *graph.Model, ctrl *routing.Controller, events *eventlog.Log, log logging.Logger, met *metrics.Registry, tick, settle time.Duration) *Monitor {
	if tick <= 0 {
		tick = DefaultTick
	}
	if settle < 0 {
		settle = DefaultSettle
	}
	return &Monitor{
		model:  model,
		ctrl:   ctrl,
		events: events,
		log:    log.With(logging.Component("monitor")),
		met:    met,
		tick:   tick,
		settle: settle,
		known:  make(map[string]bool),
	}
}

// Run ticks until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.cancelPending()
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick refreshes the graph and processes one diff. Exported so tests and
// the daemon's startup path can drive it directly.
func (m *Monitor) Tick(ctx context.Context) {
	start := time.Now()
	snap, err := m.model.Refresh(ctx)
	if err != nil {
		// Server loss empties the snapshot; departures fall out of the
		// diff below on the next successful poll.
		m.log.Debug("monitor refresh failed", logging.Error(err))
	}

	current := make(map[string]bool)
	for _, name := range snap.Clients() {
		current[name] = true
	}

	m.mu.Lock()
	previous := m.known
	primed := m.primed
	m.known = current
	m.primed = true
	m.mu.Unlock()

	if !primed {
		// First poll establishes the baseline; nothing has "appeared".
		return
	}

	for name := range current {
		if !previous[name] {
			m.appeared(ctx, name)
		}
	}
	for name := range previous {
		if !current[name] {
			m.disappeared(name)
		}
	}

	m.met.MonitorTickDuration.Observe(time.Since(start).Seconds())
}

func (m *Monitor) appeared(ctx context.Context, name string) {
	m.met.ClientsAppearedTotal.Inc()
	m.events.Publish(eventlog.Event{Kind: eventlog.ClientAppeared, Client: name})
	m.log.Info("client appeared", logging.ClientName(name))

	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "vlc"):
		m.reactVLC(ctx, name)
	case strings.Contains(n, "stereo_tool"):
		m.ctrl.PreventAutoConnect(ctx, name)
	}
}

// reactVLC auto-routes a media player when the source host has no input
// or is fed by another player of the same family; otherwise it only
// notes availability.
func (m *Monitor) reactVLC(ctx context.Context, name string) {
	if m.ctrl.IsAutoConnectBlocked(name) {
		m.log.Info("auto-route suppressed by blacklist", logging.ClientName(name))
		return
	}

	active := m.ctrl.ActiveInputSource()
	if active != "" && !strings.Contains(strings.ToLower(active), "vlc") {
		m.log.Info("input source available", logging.ClientName(name))
		return
	}

	target := m.ctrl.SourceHost()
	run := func() {
		swCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.ctrl.SwitchInput(swCtx, name, target); err != nil {
			m.log.Warn("auto input switch failed", logging.ClientName(name), logging.Error(err))
		}
	}

	if m.settle == 0 {
		run()
		return
	}

	m.mu.Lock()
	m.pending = append(m.pending, time.AfterFunc(m.settle, run))
	m.mu.Unlock()
}

func (m *Monitor) disappeared(name string) {
	m.met.ClientsDisappearedTotal.Inc()
	m.events.Publish(eventlog.Event{Kind: eventlog.ClientDisappeared, Client: name})
	m.log.Info("client disappeared", logging.ClientName(name))

	if name != m.ctrl.ActiveInputSource() {
		return
	}

	// The operator decides the replacement; no automatic re-wire.
	m.ctrl.ClearActiveInput(name)
	alternatives := m.ctrl.EnumerateInputSources()
	m.log.Warn("active input source disappeared",
		logging.ClientName(name),
		logging.Any("alternatives", alternatives))
}

func (m *Monitor) cancelPending() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.pending {
		t.Stop()
	}
	m.pending = nil
}
