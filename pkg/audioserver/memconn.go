package audioserver

import (
	"context"
	"strings"
	"sync"
)

// MemConn simulates an audio server in memory: a registered port list in
// insertion order plus a set of directed edges. Tests use it in place of a
// real server, and the "mem" transport selects it.
type MemConn struct {
	mu     sync.Mutex
	ports  []string
	edges  map[[2]string]bool
	up     bool
	closed bool
}

// NewMemConn creates a simulated server that reports as running.
func NewMemConn() *MemConn {
	return &MemConn{
		edges: make(map[[2]string]bool),
		up:    true,
	}
}

// AddPorts registers ports, preserving call order. Duplicates are ignored.
func (m *MemConn) AddPorts(ports ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range ports {
		if !m.hasPort(p) {
			m.ports = append(m.ports, p)
		}
	}
}

// RemoveClient deletes every port of the named client and all edges
// touching them, as the server does when a client exits.
func (m *MemConn) RemoveClient(client string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := client + ":"
	kept := m.ports[:0]
	for _, p := range m.ports {
		if strings.HasPrefix(p, prefix) {
			for e := range m.edges {
				if e[0] == p || e[1] == p {
					delete(m.edges, e)
				}
			}
			continue
		}
		kept = append(kept, p)
	}
	m.ports = kept
}

// SetRunning flips the simulated server's liveness.
func (m *MemConn) SetRunning(up bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.up = up
}

// EdgeCount returns the number of edges currently present.
func (m *MemConn) EdgeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.edges)
}

// HasEdge reports whether the directed edge exists.
func (m *MemConn) HasEdge(source, sink string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.edges[[2]string{source, sink}]
}

// Ping implements Conn.
func (m *MemConn) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || !m.up {
		return ErrDisconnected
	}
	return nil
}

// Ports implements Conn.
func (m *MemConn) Ports(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || !m.up {
		return nil, ErrDisconnected
	}
	out := make([]string, len(m.ports))
	copy(out, m.ports)
	return out, nil
}

// PortConnections implements Conn. Peers are reported for both directions,
// in the port list's insertion order, matching server behavior.
func (m *MemConn) PortConnections(ctx context.Context, port string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || !m.up {
		return nil, ErrDisconnected
	}
	if !m.hasPort(port) {
		return nil, ErrUnknownPort
	}

	peers := make([]string, 0)
	for _, p := range m.ports {
		if m.edges[[2]string{port, p}] || m.edges[[2]string{p, port}] {
			peers = append(peers, p)
		}
	}
	return peers, nil
}

// Connect implements Conn.
func (m *MemConn) Connect(ctx context.Context, source, sink string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || !m.up {
		return ErrDisconnected
	}
	if !m.hasPort(source) || !m.hasPort(sink) {
		return ErrUnknownPort
	}
	key := [2]string{source, sink}
	if m.edges[key] {
		return ErrAlreadyConnected
	}
	m.edges[key] = true
	return nil
}

// Disconnect implements Conn.
func (m *MemConn) Disconnect(ctx context.Context, source, sink string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || !m.up {
		return ErrDisconnected
	}
	if !m.hasPort(source) || !m.hasPort(sink) {
		return ErrUnknownPort
	}
	key := [2]string{source, sink}
	if !m.edges[key] {
		return ErrNotConnected
	}
	delete(m.edges, key)
	return nil
}

// Close implements Conn.
func (m *MemConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemConn) hasPort(port string) bool {
	for _, p := range m.ports {
		if p == port {
			return true
		}
	}
	return false
}
