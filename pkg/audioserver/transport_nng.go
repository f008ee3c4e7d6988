//go:build nng
// +build nng

package audioserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/req"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"
)

func init() {
	registerSocketConn("nng", func(endpoint string, timeout time.Duration) (Conn, error) {
		return NewNngConn(endpoint, timeout)
	})
}

// NngConn talks to the audio-server control shim over a mangos REQ socket.
type NngConn struct {
	sock    mangos.Socket
	timeout time.Duration
}

// NewNngConn dials the shim's REP endpoint, e.g. "ipc:///run/rdx-jack-shim".
func NewNngConn(endpoint string, timeout time.Duration) (*NngConn, error) {
	sock, err := req.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("create req socket: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultExecTimeout
	}
	if err := sock.SetOption(mangos.OptionRecvDeadline, timeout); err != nil {
		sock.Close()
		return nil, err
	}
	if err := sock.SetOption(mangos.OptionSendDeadline, timeout); err != nil {
		sock.Close()
		return nil, err
	}
	if err := sock.Dial(endpoint); err != nil {
		sock.Close()
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return &NngConn{sock: sock, timeout: timeout}, nil
}

// Ping implements Conn.
func (n *NngConn) Ping(ctx context.Context) error {
	_, err := n.roundTrip(shimRequest{Op: "ping"})
	return err
}

// Ports implements Conn.
func (n *NngConn) Ports(ctx context.Context) ([]string, error) {
	resp, err := n.roundTrip(shimRequest{Op: "ports"})
	if err != nil {
		return nil, err
	}
	return resp.Ports, nil
}

// PortConnections implements Conn.
func (n *NngConn) PortConnections(ctx context.Context, port string) ([]string, error) {
	resp, err := n.roundTrip(shimRequest{Op: "connections", Port: port})
	if err != nil {
		return nil, err
	}
	return resp.Ports, nil
}

// Connect implements Conn.
func (n *NngConn) Connect(ctx context.Context, source, sink string) error {
	_, err := n.roundTrip(shimRequest{Op: "connect", Source: source, Sink: sink})
	return err
}

// Disconnect implements Conn.
func (n *NngConn) Disconnect(ctx context.Context, source, sink string) error {
	_, err := n.roundTrip(shimRequest{Op: "disconnect", Source: source, Sink: sink})
	return err
}

// Close implements Conn.
func (n *NngConn) Close() error {
	return n.sock.Close()
}

func (n *NngConn) roundTrip(req shimRequest) (*shimResponse, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if err := n.sock.Send(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	raw, err := n.sock.Recv()
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
