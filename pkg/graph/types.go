// Package graph holds the in-memory snapshot of clients, ports, and edges
// that every policy decision reads. It is refreshed by polling the audio
// server; callers never mutate it directly.
package graph

// ClientKind classifies a client by what its name says it is.
type ClientKind string

const (
	KindHardwareSystem ClientKind = "hardware_system"
	KindSoftware       ClientKind = "software"
	KindProcessor      ClientKind = "processor"
	KindStreamer       ClientKind = "streamer"
	KindUnknown        ClientKind = "unknown"
)

// PortKind is a hint derived from a port's local name.
type PortKind string

const (
	PortCapture PortKind = "capture"
	PortPlayout PortKind = "playout"
	PortRecord  PortKind = "record"
	PortInput   PortKind = "input"
	PortOutput  PortKind = "output"
	PortGeneric PortKind = "generic"
)

// Port is a typed attachment point on a client.
type Port struct {
	Client    string
	Local     string
	Qualified string
	Kind      PortKind
}

// IsSource reports whether the port produces audio, per the local-name
// rules: capture, playout, out, or a trailing L/R channel suffix. The
// sink rule takes precedence, so record_0L reads as a sink despite its
// channel suffix.
func (p Port) IsSource() bool {
	return IsSourceName(p.Local) && !IsSinkName(p.Local)
}

// IsSink reports whether the port accepts audio: record, input, or in.
func (p Port) IsSink() bool {
	return IsSinkName(p.Local)
}

// Client is a named participant in the audio graph.
type Client struct {
	Name  string
	Kind  ClientKind
	Ports []Port
}

// Edge is a directed connection from a source port to a sink port, both
// qualified names.
type Edge struct {
	Source string
	Sink   string
}
