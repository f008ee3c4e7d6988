package routing

import (
	"context"
	"strings"

	"github.com/anjeleno/rdx-rivendell/pkg/graph"
	"github.com/anjeleno/rdx-rivendell/pkg/logging"
)

// knownSourceMarkers classify an existing peer as safe to detach during
// an input switch. A peer matching none of these is left alone: the
// Controller has not been told what it is and errs on the side of
// preserving audio.
var knownSourceMarkers = []string{"capture", "out", "vlc", "liquidsoap"}

// SwitchInput changes which client feeds the target's record/input sinks.
// It never touches any output of the target and never removes a critical
// edge. On full success the active input source becomes newSource; on
// partial success the failed pairs are carried in the returned
// PartialError and the active source updates only if at least one
// connection succeeded and no non-critical disconnect failed.
func (c *Controller) SwitchInput(ctx context.Context, newSource, target string) error {
	snap, err := c.graph.Refresh(ctx)
	if err != nil {
		c.met.InputSwitchesTotal.WithLabelValues("disconnected").Inc()
		return err
	}

	c.log.Info("switching input",
		logging.String("new_source", newSource),
		logging.String("target", target))

	disconnectFailed := c.detachCurrentPeers(ctx, snap, target)

	sources := snap.SourcePortsOf(newSource)
	sinks := snap.SinkPortsOf(target)

	if len(sources) == 0 {
		c.met.InputSwitchesTotal.WithLabelValues("no_source_ports").Inc()
		return ErrNoSourcePorts
	}
	if len(sinks) == 0 {
		c.met.InputSwitchesTotal.WithLabelValues("no_sink_ports").Inc()
		return ErrNoSinkPorts
	}

	n := len(sources)
	if len(sinks) < n {
		n = len(sinks)
	}

	var failed []Pair
	connected := 0
	for i := 0; i < n; i++ {
		src, dst := sources[i].Qualified, sinks[i].Qualified
		err := c.audio.Connect(ctx, src, dst)
		if !connectOK(err) {
			c.log.Warn("input connect failed", logging.Edge(src, dst), logging.Error(err))
			failed = append(failed, Pair{Source: src, Sink: dst})
			continue
		}
		connected++
		c.publishConnection(src, dst, true)
	}

	if len(failed) == 0 {
		c.setActiveInput(newSource)
		c.met.InputSwitchesTotal.WithLabelValues("ok").Inc()
		return nil
	}

	if connected > 0 && !disconnectFailed {
		c.setActiveInput(newSource)
	}
	c.met.InputSwitchesTotal.WithLabelValues("partial").Inc()
	return &PartialError{Failed: failed}
}

// detachCurrentPeers clears the classifiable, non-critical peers from the
// target's record/input sinks. Returns true if a non-critical disconnect
// actually failed.
func (c *Controller) detachCurrentPeers(ctx context.Context, snap *graph.Snapshot, target string) bool {
	failed := false
	for _, sink := range recordSinksOf(snap, target) {
		peers, err := c.audio.PortConnections(ctx, sink.Qualified)
		if err != nil {
			c.log.Warn("peer listing failed", logging.PortName(sink.Qualified), logging.Error(err))
			continue
		}
		for _, peer := range peers {
			if c.crit.IsEdgeCritical(snap, peer, sink.Qualified) {
				c.met.CriticalBlockedTotal.Inc()
				c.log.Warn("peer kept: edge is critical", logging.Edge(peer, sink.Qualified))
				continue
			}
			if !isKnownSource(peer) {
				c.met.UnknownPeerSkippedTotal.Inc()
				c.log.Warn("unknown source, safety-preserved", logging.Edge(peer, sink.Qualified))
				continue
			}
			if err := c.audio.Disconnect(ctx, peer, sink.Qualified); !connectOK(err) {
				c.log.Warn("peer disconnect failed", logging.Edge(peer, sink.Qualified), logging.Error(err))
				failed = true
				continue
			}
			c.publishConnection(peer, sink.Qualified, false)
		}
	}
	return failed
}

// recordSinksOf returns the target's ports whose local name indicates a
// record/input role. Only these have their peers detached; anything
// playout-flavored is never touched.
func recordSinksOf(snap *graph.Snapshot, target string) []graph.Port {
	var out []graph.Port
	for _, p := range snap.PortsOf(target) {
		local := strings.ToLower(p.Local)
		if strings.Contains(local, "playout") {
			continue
		}
		if strings.Contains(local, "record") || strings.Contains(local, "input") {
			out = append(out, p)
		}
	}
	return out
}

// isKnownSource reports whether a peer's qualified name carries one of
// the markers the Controller knows how to classify.
func isKnownSource(qualified string) bool {
	n := strings.ToLower(qualified)
	for _, marker := range knownSourceMarkers {
		if strings.Contains(n, marker) {
			return true
		}
	}
	return false
}

func (c *Controller) setActiveInput(client string) {
	c.mu.Lock()
	c.activeInput = client
	c.mu.Unlock()
}
