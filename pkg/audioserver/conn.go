// Package audioserver is the only package that talks to the audio server.
// It exposes the minimal facade the Routing Engine needs: list ports, list
// peers, connect, disconnect, and a liveness probe.
package audioserver

import "context"

// Conn is one wire to the audio server. The default build ships ExecConn
// (JACK command-line tools) and MemConn (in-memory, for tests and the mem
// transport); the nng and zmq build tags add socket transports to an
// out-of-process control shim.
type Conn interface {
	// Ping probes the server without auto-starting it. Returns nil iff a
	// test connection succeeds.
	Ping(ctx context.Context) error
	// Ports returns every known qualified port name, in server order.
	Ports(ctx context.Context) ([]string, error)
	// PortConnections returns the peers of a port, in server order.
	PortConnections(ctx context.Context, port string) ([]string, error)
	// Connect wires source into sink.
	Connect(ctx context.Context, source, sink string) error
	// Disconnect removes the edge from source to sink.
	Disconnect(ctx context.Context, source, sink string) error
	// Close releases the wire. Subsequent calls return ErrDisconnected.
	Close() error
}
