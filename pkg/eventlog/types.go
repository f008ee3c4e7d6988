// Package eventlog is the daemon's single notification channel: an
// append-only, sequence-numbered log of state-change events. Components
// (the Routing Controller, the Client Monitor, the daemon's status and
// device watchers) publish into it directly; subscribers either receive a
// push channel or pull by sequence number. This replaces per-component
// signal wiring and its ownership cycles.
package eventlog

import (
	"time"

	"github.com/google/uuid"
)

// Kind names an event type.
type Kind string

const (
	ConnectionChanged    Kind = "connection_changed"
	ProfileChanged       Kind = "profile_changed"
	ClientAppeared       Kind = "client_appeared"
	ClientDisappeared    Kind = "client_disappeared"
	ServerStatusChanged  Kind = "server_status_changed"
	ServiceStatusChanged Kind = "service_status_changed"
	DeviceListChanged    Kind = "device_list_changed"
)

// Event is one entry in the log. Seq is assigned at publish time and is
// strictly increasing for the life of the process.
type Event struct {
	Seq  uint64    `json:"seq"`
	ID   uuid.UUID `json:"id"`
	Time time.Time `json:"time"`
	Kind Kind      `json:"kind"`

	// Kind-specific payload fields; unused ones are omitted.
	Source    string `json:"source,omitempty"`
	Sink      string `json:"sink,omitempty"`
	Connected bool   `json:"connected,omitempty"`
	Client    string `json:"client,omitempty"`
	Profile   string `json:"profile,omitempty"`
	Service   string `json:"service,omitempty"`
	Running   bool   `json:"running,omitempty"`
}
