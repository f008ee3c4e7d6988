package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

// Client is the helper-binary side of the IPC surface.
type Client struct {
	conn    net.Conn
	reader  *bufio.Reader
	token   string
	timeout time.Duration

	mu     sync.Mutex
	nextID uint64

	eventsMu sync.Mutex
	events   chan json.RawMessage
}

// Dial connects to the daemon's socket. token may be empty when the
// daemon runs without authentication.
func Dial(path, token string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", path, err)
	}
	return &Client{
		conn:    conn,
		reader:  bufio.NewReaderSize(conn, maxLineBytes),
		token:   token,
		timeout: 10 * time.Second,
	}, nil
}

// Close drops the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call performs one request and decodes its result into out (which may
// be nil). Pushed event lines arriving between responses are routed to
// the subscription channel if one exists, or dropped.
func (c *Client) Call(method string, params any, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	req := Request{
		Type:   "request",
		ID:     strconv.FormatUint(c.nextID, 10),
		Token:  c.token,
		Method: method,
	}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return err
		}
		req.Params = data
	}

	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	c.conn.SetDeadline(time.Now().Add(c.timeout))
	if _, err := c.conn.Write(append(data, '\n')); err != nil {
		return err
	}

	for {
		line, err := c.reader.ReadBytes('\n')
		if err != nil {
			return err
		}

		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(line, &envelope); err != nil {
			continue
		}
		if envelope.Type == "event" {
			c.deliverEvent(line)
			continue
		}

		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			return fmt.Errorf("malformed response: %w", err)
		}
		if !resp.OK {
			return errors.New(resp.Error)
		}
		if out != nil && len(resp.Result) > 0 {
			return json.Unmarshal(resp.Result, out)
		}
		return nil
	}
}

// Subscribe asks the daemon to push events on this connection and
// returns the raw event stream. Events are read during subsequent Call
// round-trips and by ReadEvent.
func (c *Client) Subscribe() (<-chan json.RawMessage, error) {
	c.eventsMu.Lock()
	if c.events == nil {
		c.events = make(chan json.RawMessage, 128)
	}
	ch := c.events
	c.eventsMu.Unlock()

	if err := c.Call(MethodSubscribe, nil, nil); err != nil {
		return nil, err
	}
	return ch, nil
}

// ReadEvent blocks for the next pushed line. Use after Subscribe on a
// connection dedicated to events.
func (c *Client) ReadEvent(timeout time.Duration) (json.RawMessage, error) {
	c.conn.SetReadDeadline(time.Now().Add(timeout))
	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	return json.RawMessage(line), nil
}

func (c *Client) deliverEvent(line []byte) {
	c.eventsMu.Lock()
	ch := c.events
	c.eventsMu.Unlock()
	if ch == nil {
		return
	}
	cp := make(json.RawMessage, len(line))
	copy(cp, line)
	select {
	case ch <- cp:
	default:
	}
}
