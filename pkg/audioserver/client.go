package audioserver

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/anjeleno/rdx-rivendell/pkg/logging"
	"github.com/anjeleno/rdx-rivendell/pkg/metrics"
)

// Client maintains at most one long-lived session to the audio server. On
// loss every call returns ErrDisconnected until Reconnect succeeds; the
// status poller drives that recovery.
type Client struct {
	log logging.Logger
	met *metrics.Registry

	mu        sync.Mutex
	conn      Conn
	connected bool
}

// NewClient wraps a Conn. The session starts in the disconnected state;
// Reconnect opens it. IsRunning only probes and never opens the session;
// the status poller calls Reconnect after a successful probe.
func NewClient(conn Conn, log logging.Logger, met *metrics.Registry) *Client {
	return &Client{
		log:  log.With(logging.Component("audioserver")),
		met:  met,
		conn: conn,
	}
}

// IsRunning probes the server with a no-autostart test connection.
func (c *Client) IsRunning(ctx context.Context) bool {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if err := conn.Ping(ctx); err != nil {
		c.markLost()
		return false
	}
	return true
}

// Reconnect marks the session usable again after the poller has seen the
// server come back.
func (c *Client) Reconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		c.log.Info("audio server session reopened")
	}
	c.connected = true
}

// Connected reports whether a session is currently held.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// ListClients returns the unique client names, derived by splitting every
// known port name at the first colon. Sorted for stable output.
func (c *Client) ListClients(ctx context.Context) ([]string, error) {
	ports, err := c.ListPorts(ctx, "")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	clients := make([]string, 0)
	for _, p := range ports {
		name, _, ok := strings.Cut(p, ":")
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		clients = append(clients, name)
	}
	sort.Strings(clients)
	return clients, nil
}

// ListPorts returns every known qualified port name in server order,
// optionally filtered by client prefix.
func (c *Client) ListPorts(ctx context.Context, client string) ([]string, error) {
	conn, err := c.session()
	if err != nil {
		return nil, err
	}

	ports, err := conn.Ports(ctx)
	if err != nil {
		return nil, c.wrap(err)
	}

	if client == "" {
		return ports, nil
	}

	prefix := client + ":"
	filtered := make([]string, 0, len(ports))
	for _, p := range ports {
		if strings.HasPrefix(p, prefix) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// PortConnections returns the peers of a port in server order.
func (c *Client) PortConnections(ctx context.Context, port string) ([]string, error) {
	conn, err := c.session()
	if err != nil {
		return nil, err
	}

	peers, err := conn.PortConnections(ctx, port)
	if err != nil {
		return nil, c.wrap(err)
	}
	return peers, nil
}

// Connect wires source into sink. ErrAlreadyConnected is returned verbatim;
// the Routing Controller treats it as success.
func (c *Client) Connect(ctx context.Context, source, sink string) error {
	conn, err := c.session()
	if err != nil {
		c.met.ConnectionsTotal.WithLabelValues("disconnected").Inc()
		return err
	}

	err = conn.Connect(ctx, source, sink)
	switch {
	case err == nil:
		c.met.ConnectionsTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, ErrAlreadyConnected):
		c.met.ConnectionsTotal.WithLabelValues("already_connected").Inc()
	case errors.Is(err, ErrUnknownPort):
		c.met.ConnectionsTotal.WithLabelValues("unknown_port").Inc()
	default:
		c.met.ConnectionsTotal.WithLabelValues("disconnected").Inc()
		return c.wrap(err)
	}
	return err
}

// Disconnect removes the edge from source to sink. ErrNotConnected is
// returned verbatim; the Routing Controller treats it as success.
func (c *Client) Disconnect(ctx context.Context, source, sink string) error {
	conn, err := c.session()
	if err != nil {
		c.met.DisconnectionsTotal.WithLabelValues("disconnected").Inc()
		return err
	}

	err = conn.Disconnect(ctx, source, sink)
	switch {
	case err == nil:
		c.met.DisconnectionsTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, ErrNotConnected):
		c.met.DisconnectionsTotal.WithLabelValues("not_connected").Inc()
	case errors.Is(err, ErrUnknownPort):
		c.met.DisconnectionsTotal.WithLabelValues("unknown_port").Inc()
	default:
		c.met.DisconnectionsTotal.WithLabelValues("disconnected").Inc()
		return c.wrap(err)
	}
	return err
}

// Close releases the underlying wire.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return c.conn.Close()
}

func (c *Client) session() (Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil, ErrDisconnected
	}
	return c.conn, nil
}

// wrap classifies transport-level failures: anything that is not one of the
// sentinel results means the session is gone.
func (c *Client) wrap(err error) error {
	if errors.Is(err, ErrUnknownPort) || errors.Is(err, ErrAlreadyConnected) || errors.Is(err, ErrNotConnected) {
		return err
	}
	c.markLost()
	return errors.Join(ErrDisconnected, err)
}

func (c *Client) markLost() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		c.log.Error("audio server session lost")
		c.connected = false
	}
}
