// Package routing is the policy brain of the daemon. Every mutation of
// the audio server flows through the Controller, which enforces the
// safe-mutation discipline: no non-emergency operation ever removes a
// critical edge.
package routing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/anjeleno/rdx-rivendell/pkg/audioserver"
	"github.com/anjeleno/rdx-rivendell/pkg/critical"
	"github.com/anjeleno/rdx-rivendell/pkg/eventlog"
	"github.com/anjeleno/rdx-rivendell/pkg/graph"
	"github.com/anjeleno/rdx-rivendell/pkg/launcher"
	"github.com/anjeleno/rdx-rivendell/pkg/logging"
	"github.com/anjeleno/rdx-rivendell/pkg/metrics"
	"github.com/anjeleno/rdx-rivendell/pkg/profile"
)

// Options tune the Controller's fixed points.
type Options struct {
	// SourceHost is the broadcast playout client.
	SourceHost string
	// ProcessorCanonical and HardwareCanonical are blacklisted from
	// auto-connection on every profile load so newly-appearing peers do
	// not latch onto them.
	ProcessorCanonical string
	HardwareCanonical  string
	// SettleDelay is the pause between launching auto-clients and
	// establishing the chain. Zero runs activation synchronously, which
	// tests rely on.
	SettleDelay time.Duration
}

// DefaultOptions returns the canonical broadcast workstation settings.
func DefaultOptions() Options {
	return Options{
		SourceHost:         "rivendell_0",
		ProcessorCanonical: "stereo_tool",
		HardwareCanonical:  "system",
		SettleDelay:        2 * time.Second,
	}
}

// Controller owns the process-wide routing state: current profile,
// priority table, auto-connect blacklist, and active input source. All of
// it is reachable only through Controller methods.
type Controller struct {
	audio    *audioserver.Client
	graph    *graph.Model
	crit     *critical.Registry
	profiles *profile.Store
	events   *eventlog.Log
	launch   launcher.ServiceLauncher
	log      logging.Logger
	met      *metrics.Registry
	opts     Options

	mu             sync.Mutex
	currentProfile string
	priorities     map[string]int
	blacklist      []string
	activeInput    string
	pending        *time.Timer
}

// NewController wires the Controller to its collaborators.
func NewController(
	audio *audioserver.Client,
	model *graph.Model,
	crit *critical.Registry,
	profiles *profile.Store,
	events *eventlog.Log,
	launch launcher.ServiceLauncher,
	log logging.Logger,
	met *metrics.Registry,
	opts Options,
) *Controller {
	if opts.SourceHost == "" {
		opts = DefaultOptions()
	}
	return &Controller{
		audio:      audio,
		graph:      model,
		crit:       crit,
		profiles:   profiles,
		events:     events,
		launch:     launch,
		log:        log.With(logging.Component("routing")),
		met:        met,
		opts:       opts,
		priorities: make(map[string]int),
	}
}

// CurrentProfile returns the name of the active profile, or empty before
// the first load.
func (c *Controller) CurrentProfile() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentProfile
}

// ActiveInputSource returns the client currently feeding the source host.
func (c *Controller) ActiveInputSource() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeInput
}

// SourceHost returns the broadcast playout client name.
func (c *Controller) SourceHost() string {
	return c.opts.SourceHost
}

// PriorityOf returns a client's priority under the current profile;
// clients absent from the table default to 0.
func (c *Controller) PriorityOf(client string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.priorities[client]
}

// IsAutoConnectBlocked reports whether the client name matches the
// auto-connect blacklist. Matching is case-insensitive substring, the
// same regime the rest of the engine uses for client names.
func (c *Controller) IsAutoConnectBlocked(client string) bool {
	n := strings.ToLower(client)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.blacklist {
		if strings.Contains(n, b) {
			return true
		}
	}
	return false
}

// ClearActiveInput drops the active source when the Client Monitor sees
// it disappear.
func (c *Controller) ClearActiveInput(client string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeInput == client {
		c.activeInput = ""
	}
}

// publishConnection emits a ConnectionChanged event.
func (c *Controller) publishConnection(source, sink string, connected bool) {
	c.events.Publish(eventlog.Event{
		Kind:      eventlog.ConnectionChanged,
		Source:    source,
		Sink:      sink,
		Connected: connected,
	})
}

// connectOK treats the desired-state-already-holds results as success.
func connectOK(err error) bool {
	return err == nil ||
		errors.Is(err, audioserver.ErrAlreadyConnected) ||
		errors.Is(err, audioserver.ErrNotConnected)
}

// safeDisconnect applies the safe-mutation discipline to one edge: a
// critical edge is skipped with a warning, never an error. Returns
// (skipped, err); err is non-nil only for real failures.
func (c *Controller) safeDisconnect(ctx context.Context, snap *graph.Snapshot, source, sink string) (bool, error) {
	if c.crit.IsEdgeCritical(snap, source, sink) {
		c.met.CriticalBlockedTotal.Inc()
		c.log.Warn("disconnect skipped: edge is critical", logging.Edge(source, sink))
		return true, nil
	}

	err := c.audio.Disconnect(ctx, source, sink)
	if connectOK(err) {
		c.publishConnection(source, sink, false)
		return false, nil
	}
	return false, err
}
