package routing

import (
	"context"
	"strings"

	"github.com/anjeleno/rdx-rivendell/pkg/graph"
	"github.com/anjeleno/rdx-rivendell/pkg/logging"
)

// PreventAutoConnect blacklists a client from the Client Monitor's
// auto-routing reactions, then clears its existing non-critical peers.
func (c *Controller) PreventAutoConnect(ctx context.Context, client string) {
	n := strings.ToLower(client)

	c.mu.Lock()
	present := false
	for _, b := range c.blacklist {
		if b == n {
			present = true
			break
		}
	}
	if !present {
		c.blacklist = append(c.blacklist, n)
	}
	c.mu.Unlock()

	if err := c.DisconnectAllFrom(ctx, client); err != nil {
		// A critical client keeps its edges; the blacklist entry alone
		// is what future reactions consult.
		c.log.Debug("blacklist cleanup skipped", logging.ClientName(client), logging.Error(err))
	}
}

// DisconnectAllFrom detaches every non-critical edge touching the
// client's ports. A critical client is refused outright and its edge set
// is left untouched.
func (c *Controller) DisconnectAllFrom(ctx context.Context, client string) error {
	if c.crit.IsClientCritical(client) {
		c.log.Warn("disconnect-all refused: client is critical", logging.ClientName(client))
		return ErrRefusedCritical
	}

	snap, err := c.graph.Refresh(ctx)
	if err != nil {
		return err
	}

	for _, port := range snap.PortsOf(client) {
		peers, err := c.audio.PortConnections(ctx, port.Qualified)
		if err != nil {
			c.log.Warn("peer listing failed", logging.PortName(port.Qualified), logging.Error(err))
			continue
		}
		for _, peer := range peers {
			src, dst := orientEdge(port, peer)
			if _, err := c.safeDisconnect(ctx, snap, src, dst); err != nil {
				c.log.Warn("disconnect failed", logging.Edge(src, dst), logging.Error(err))
			}
		}
	}
	return nil
}

// EmergencyDisconnect tears down every current edge unconditionally,
// critical marks included. Operator-initiated last resort; reactivation
// requires an explicit profile load.
func (c *Controller) EmergencyDisconnect(ctx context.Context) error {
	snap, err := c.graph.Refresh(ctx)
	if err != nil {
		return err
	}

	c.met.EmergencyDisconnectTotal.Inc()
	c.log.Warn("emergency disconnect: tearing down all edges", logging.Count(len(snap.Edges())))

	for _, e := range snap.Edges() {
		if err := c.audio.Disconnect(ctx, e.Source, e.Sink); !connectOK(err) {
			c.log.Warn("emergency disconnect failed for edge", logging.Edge(e.Source, e.Sink), logging.Error(err))
			continue
		}
		c.publishConnection(e.Source, e.Sink, false)
	}

	c.mu.Lock()
	c.activeInput = ""
	c.mu.Unlock()
	return nil
}

// orientEdge orders a port/peer pairing into (source, sink). The sink
// rule wins, matching the snapshot's own orientation.
func orientEdge(port graph.Port, peer string) (string, string) {
	if port.IsSink() {
		return peer, port.Qualified
	}
	return port.Qualified, peer
}
