package routing

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/anjeleno/rdx-rivendell/pkg/eventlog"
	"github.com/anjeleno/rdx-rivendell/pkg/graph"
	"github.com/anjeleno/rdx-rivendell/pkg/logging"
	"github.com/anjeleno/rdx-rivendell/pkg/profile"
)

// LoadProfile activates a named profile: blacklists the canonical
// processor and hardware clients, applies priorities, starts missing
// auto-clients, and schedules chain establishment after the settle
// delay. The only user-visible failure is an unknown profile name.
func (c *Controller) LoadProfile(ctx context.Context, name string) error {
	p, err := c.profiles.Get(name)
	if err != nil {
		if errors.Is(err, profile.ErrUnknownProfile) {
			c.met.ProfileActivationsTotal.WithLabelValues("unknown_profile").Inc()
			return ErrUnknownProfile
		}
		return err
	}

	c.log.Info("activating profile", logging.ProfileName(name))

	// Newly-appearing peers must not latch onto the processor or the
	// hardware system while the chain is being rebuilt.
	c.PreventAutoConnect(ctx, c.opts.ProcessorCanonical)
	c.PreventAutoConnect(ctx, c.opts.HardwareCanonical)

	c.mu.Lock()
	for client, prio := range p.Priorities {
		c.priorities[client] = prio
	}
	c.mu.Unlock()

	c.startAutoClients(ctx, p)

	c.mu.Lock()
	c.currentProfile = name
	if c.pending != nil {
		// A newer load supersedes any not-yet-fired activation.
		c.pending.Stop()
		c.pending = nil
	}
	c.mu.Unlock()

	c.scheduleActivation(p.AutoActivate)

	c.events.Publish(eventlog.Event{Kind: eventlog.ProfileChanged, Profile: name})
	c.met.ProfileActivationsTotal.WithLabelValues("ok").Inc()
	return nil
}

// startAutoClients launches each auto-client with a known launcher that a
// port survey shows is not yet present. Failures are logged; activation
// continues with whatever is there.
func (c *Controller) startAutoClients(ctx context.Context, p *profile.Profile) {
	for _, name := range p.AutoClients {
		if !c.launch.Known(name) {
			c.log.Debug("no launcher for auto-client", logging.ClientName(name))
			continue
		}
		if c.clientPresent(ctx, name) {
			continue
		}
		if err := c.launch.Start(ctx, name); err != nil {
			c.log.Warn("auto-client launch failed", logging.ClientName(name), logging.Error(err))
			continue
		}
		c.events.Publish(eventlog.Event{Kind: eventlog.ServiceStatusChanged, Service: name, Running: true})
	}
}

// clientPresent surveys the port list for any client matching the name.
func (c *Controller) clientPresent(ctx context.Context, name string) bool {
	clients, err := c.audio.ListClients(ctx)
	if err != nil {
		return false
	}
	n := strings.ToLower(name)
	for _, cl := range clients {
		if strings.Contains(strings.ToLower(cl), n) {
			return true
		}
	}
	return false
}

// scheduleActivation arranges chain establishment (and, for auto-activate
// profiles, input attachment) after the settle delay. A zero delay runs
// synchronously.
func (c *Controller) scheduleActivation(autoActivate bool) {
	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		c.EstablishChain(ctx)
		if autoActivate {
			c.autoInput(ctx)
		}
	}

	if c.opts.SettleDelay <= 0 {
		run()
		return
	}

	c.mu.Lock()
	c.pending = time.AfterFunc(c.opts.SettleDelay, func() {
		c.mu.Lock()
		c.pending = nil
		c.mu.Unlock()
		run()
	})
	c.mu.Unlock()
}

// EstablishChain wires the protected processing chain from a fresh
// snapshot: source host into the best processor, processor into the best
// streamer, or source host straight into the streamer when no processor
// exists. Every edge made here is marked critical.
func (c *Controller) EstablishChain(ctx context.Context) {
	snap, err := c.graph.Refresh(ctx)
	if err != nil {
		c.log.Warn("chain establishment aborted", logging.Error(err))
		return
	}

	sourceHost := c.findSourceHost(snap)
	processor := c.pickBest(snap.ClientsOfKind(graph.KindProcessor))
	streamer := c.pickBest(snap.ClientsOfKind(graph.KindStreamer))

	if processor != nil && sourceHost != nil {
		c.connectChain(ctx, snap, sourceHost, processor)
	}
	switch {
	case streamer != nil && processor != nil:
		c.connectChain(ctx, snap, processor, streamer)
	case streamer != nil && sourceHost != nil:
		c.connectChain(ctx, snap, sourceHost, streamer)
	}
}

// findSourceHost locates the broadcast playout client: the configured
// name if present, otherwise any client the kind rules call software with
// a rivendell-style name.
func (c *Controller) findSourceHost(snap *graph.Snapshot) *graph.Client {
	if cl := snap.Client(c.opts.SourceHost); cl != nil {
		return cl
	}
	for _, name := range snap.Clients() {
		if strings.Contains(strings.ToLower(name), "rivendell") {
			return snap.Client(name)
		}
	}
	return nil
}

// pickBest selects the highest-priority client, ties broken by name.
func (c *Controller) pickBest(candidates []*graph.Client) *graph.Client {
	if len(candidates) == 0 {
		return nil
	}
	c.mu.Lock()
	prio := func(name string) int { return c.priorities[name] }
	sorted := make([]*graph.Client, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := prio(sorted[i].Name), prio(sorted[j].Name)
		if pi != pj {
			return pi > pj
		}
		return sorted[i].Name < sorted[j].Name
	})
	c.mu.Unlock()
	return sorted[0]
}

// connectChain pairs the upstream client's source ports with the
// downstream client's sink ports by index and marks each resulting edge
// critical. An already-existing edge counts as success.
func (c *Controller) connectChain(ctx context.Context, snap *graph.Snapshot, from, to *graph.Client) {
	sources := snap.SourcePortsOf(from.Name)
	sinks := snap.SinkPortsOf(to.Name)

	n := len(sources)
	if len(sinks) < n {
		n = len(sinks)
	}
	for i := 0; i < n; i++ {
		src, dst := sources[i].Qualified, sinks[i].Qualified
		err := c.audio.Connect(ctx, src, dst)
		if !connectOK(err) {
			c.log.Warn("chain connect failed", logging.Edge(src, dst), logging.Error(err))
			continue
		}
		c.crit.MarkEdgeCritical(src, dst)
		c.publishConnection(src, dst, true)
	}
}

// autoInput attaches the preferred input after activation: the first
// enumerated source matching vlc is switched in; with none, the source
// host's sinks are left untouched.
func (c *Controller) autoInput(ctx context.Context) {
	for _, name := range c.EnumerateInputSources() {
		if strings.Contains(strings.ToLower(name), "vlc") {
			if err := c.SwitchInput(ctx, name, c.opts.SourceHost); err != nil {
				c.log.Warn("auto input switch failed", logging.ClientName(name), logging.Error(err))
			}
			return
		}
	}
	c.log.Info("no preferred input detected")
}
