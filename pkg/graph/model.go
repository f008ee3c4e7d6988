package graph

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/anjeleno/rdx-rivendell/pkg/audioserver"
	"github.com/anjeleno/rdx-rivendell/pkg/logging"
	"github.com/anjeleno/rdx-rivendell/pkg/metrics"
)

// Model owns the current Snapshot and repopulates it from the audio
// server on demand. Readers always observe a complete snapshot, either
// the previous one or the new one.
type Model struct {
	client *audioserver.Client
	log    logging.Logger
	met    *metrics.Registry

	current atomic.Pointer[Snapshot]
}

// NewModel creates a Model starting from the empty snapshot.
func NewModel(client *audioserver.Client, log logging.Logger, met *metrics.Registry) *Model {
	m := &Model{
		client: client,
		log:    log.With(logging.Component("graph")),
		met:    met,
	}
	m.current.Store(EmptySnapshot())
	return m
}

// Snapshot returns the current snapshot. Never nil.
func (m *Model) Snapshot() *Snapshot {
	return m.current.Load()
}

// Refresh synchronously repopulates the snapshot from the audio server.
// On a lost session the snapshot becomes empty so no policy code acts on
// stale state.
func (m *Model) Refresh(ctx context.Context) (*Snapshot, error) {
	start := time.Now()

	ports, err := m.client.ListPorts(ctx, "")
	if err != nil {
		return m.fail(err)
	}

	peers := make(map[string][]string, len(ports))
	for _, p := range ports {
		list, err := m.client.PortConnections(ctx, p)
		if err != nil {
			// A port can vanish between the list and the peer query.
			if errors.Is(err, audioserver.ErrUnknownPort) {
				continue
			}
			return m.fail(err)
		}
		peers[p] = list
	}

	snap := newSnapshot(ports, peers)
	m.current.Store(snap)

	m.met.GraphRefreshTotal.WithLabelValues("ok").Inc()
	m.met.GraphRefreshDuration.Observe(time.Since(start).Seconds())
	m.met.ClientsTotal.Set(float64(len(snap.clients)))
	m.met.PortsTotal.Set(float64(len(snap.ports)))
	m.met.EdgesTotal.Set(float64(len(snap.edges)))
	return snap, nil
}

func (m *Model) fail(err error) (*Snapshot, error) {
	m.met.GraphRefreshTotal.WithLabelValues("disconnected").Inc()
	if errors.Is(err, audioserver.ErrDisconnected) {
		snap := EmptySnapshot()
		m.current.Store(snap)
		m.met.ClientsTotal.Set(0)
		m.met.PortsTotal.Set(0)
		m.met.EdgesTotal.Set(0)
		return snap, err
	}
	m.log.Warn("graph refresh failed", logging.Error(err))
	return m.current.Load(), err
}
