//go:build zmq
// +build zmq

package audioserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	zmq "github.com/pebbe/zmq4"
)

func init() {
	registerSocketConn("zmq", func(endpoint string, timeout time.Duration) (Conn, error) {
		return NewZmqConn(endpoint, timeout)
	})
}

// ZmqConn talks to the audio-server control shim over a ZeroMQ REQ socket.
type ZmqConn struct {
	sock    *zmq.Socket
	timeout time.Duration
}

// NewZmqConn dials the shim's REP endpoint, e.g. "ipc:///run/rdx-jack-shim".
func NewZmqConn(endpoint string, timeout time.Duration) (*ZmqConn, error) {
	sock, err := zmq.NewSocket(zmq.REQ)
	if err != nil {
		return nil, fmt.Errorf("create req socket: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultExecTimeout
	}
	if err := sock.SetRcvtimeo(timeout); err != nil {
		sock.Close()
		return nil, err
	}
	if err := sock.SetSndtimeo(timeout); err != nil {
		sock.Close()
		return nil, err
	}
	// Do not linger on close; a wedged shim must not wedge shutdown.
	if err := sock.SetLinger(0); err != nil {
		sock.Close()
		return nil, err
	}
	if err := sock.Connect(endpoint); err != nil {
		sock.Close()
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return &ZmqConn{sock: sock, timeout: timeout}, nil
}

// Ping implements Conn.
func (z *ZmqConn) Ping(ctx context.Context) error {
	_, err := z.roundTrip(shimRequest{Op: "ping"})
	return err
}

// Ports implements Conn.
func (z *ZmqConn) Ports(ctx context.Context) ([]string, error) {
	resp, err := z.roundTrip(shimRequest{Op: "ports"})
	if err != nil {
		return nil, err
	}
	return resp.Ports, nil
}

// PortConnections implements Conn.
func (z *ZmqConn) PortConnections(ctx context.Context, port string) ([]string, error) {
	resp, err := z.roundTrip(shimRequest{Op: "connections", Port: port})
	if err != nil {
		return nil, err
	}
	return resp.Ports, nil
}

// Connect implements Conn.
func (z *ZmqConn) Connect(ctx context.Context, source, sink string) error {
	_, err := z.roundTrip(shimRequest{Op: "connect", Source: source, Sink: sink})
	return err
}

// Disconnect implements Conn.
func (z *ZmqConn) Disconnect(ctx context.Context, source, sink string) error {
	_, err := z.roundTrip(shimRequest{Op: "disconnect", Source: source, Sink: sink})
	return err
}

// Close implements Conn.
func (z *ZmqConn) Close() error {
	return z.sock.Close()
}

func (z *ZmqConn) roundTrip(req shimRequest) (*shimResponse, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := z.sock.SendBytes(data, 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	raw, err := z.sock.RecvBytes(0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	var resp shimResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: malformed shim response", ErrDisconnected)
	}
	if !resp.OK {
		return nil, shimError(resp.Error)
	}
	return &resp, nil
}
