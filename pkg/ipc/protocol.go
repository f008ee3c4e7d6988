// Package ipc publishes the daemon's control surface on a Unix-domain
// socket: newline-delimited JSON requests and responses, plus pushed
// event lines for subscribed connections. The transport is deliberately
// plain; the semantic contract is what matters.
package ipc

import (
	"context"
	"encoding/json"
)

// Method names.
const (
	MethodGetAudioDevices       = "get_audio_devices"
	MethodScanDevices           = "scan_devices"
	MethodIsRunning             = "is_running"
	MethodStartWithDevice       = "start_with_device"
	MethodGetAvailableProfiles  = "get_available_profiles"
	MethodGetProfiles           = "get_profiles"
	MethodLoadProfile           = "load_profile"
	MethodSwitchInput           = "switch_input"
	MethodEnumerateInputSources = "enumerate_input_sources"
	MethodGetStatus             = "get_status"
	MethodGetGraph              = "get_graph"
	MethodDisconnectAllFrom     = "disconnect_all_from"
	MethodEmergencyDisconnect   = "emergency_disconnect"
	MethodSubscribe             = "subscribe"
)

// Request is one client request line.
type Request struct {
	Type   string          `json:"type" validate:"required,eq=request"`
	ID     string          `json:"id" validate:"required,max=64"`
	Token  string          `json:"token,omitempty"`
	Method string          `json:"method" validate:"required,max=64"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response answers one request.
type Response struct {
	Type   string          `json:"type"` // "response"
	ID     string          `json:"id"`
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// EventLine is a pushed signal on a subscribed connection.
type EventLine struct {
	Type  string `json:"type"` // "event"
	Event any    `json:"event"`
}

// NameParams carries a single name argument.
type NameParams struct {
	Name string `json:"name" validate:"required,max=256"`
}

// SwitchParams carries an input switch request.
type SwitchParams struct {
	Source string `json:"source" validate:"required,max=256"`
	Target string `json:"target" validate:"max=256"`
}

// DeviceInfo is the scan result for one device.
type DeviceInfo struct {
	CardID   int    `json:"card_id"`
	Name     string `json:"name"`
	StableID string `json:"stable_id"`
	ALSAName string `json:"alsa_name"`
	Inputs   int    `json:"inputs"`
	Outputs  int    `json:"outputs"`
	Type     string `json:"type"`
	Active   bool   `json:"active"`
}

// ProfileInfo is the listing form of a profile.
type ProfileInfo struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	AutoActivate bool              `json:"auto_activate"`
	AutoClients  []string          `json:"auto_clients,omitempty"`
	Priorities   map[string]int    `json:"priorities,omitempty"`
	Connections  map[string]string `json:"connections,omitempty"`
}

// PortInfo describes one port in the graph view.
type PortInfo struct {
	Qualified string `json:"qualified"`
	Kind      string `json:"kind"`
	IsSource  bool   `json:"is_source"`
	IsSink    bool   `json:"is_sink"`
}

// ClientInfo describes one client in the graph view.
type ClientInfo struct {
	Name     string     `json:"name"`
	Kind     string     `json:"kind"`
	Critical bool       `json:"critical"`
	Ports    []PortInfo `json:"ports"`
}

// EdgeInfo describes one edge in the graph view.
type EdgeInfo struct {
	Source   string `json:"source"`
	Sink     string `json:"sink"`
	Critical bool   `json:"critical"`
}

// GraphInfo is the full graph view.
type GraphInfo struct {
	Clients []ClientInfo `json:"clients"`
	Edges   []EdgeInfo   `json:"edges"`
}

// StatusInfo is the daemon's summary state.
type StatusInfo struct {
	ServerRunning  bool     `json:"server_running"`
	CurrentProfile string   `json:"current_profile"`
	ActiveInput    string   `json:"active_input"`
	InputSources   []string `json:"input_sources"`
}

// Engine is the daemon-side surface the IPC server dispatches into. The
// daemon binary adapts the Routing Controller and its collaborators onto
// this interface.
type Engine interface {
	ScanDevices(ctx context.Context) ([]DeviceInfo, error)
	IsRunning(ctx context.Context) bool
	StartWithDevice(ctx context.Context, device string) error
	Profiles() []ProfileInfo
	LoadProfile(ctx context.Context, name string) error
	SwitchInput(ctx context.Context, source, target string) error
	EnumerateInputSources() []string
	Status(ctx context.Context) StatusInfo
	Graph(ctx context.Context) GraphInfo
	DisconnectAllFrom(ctx context.Context, client string) error
	EmergencyDisconnect(ctx context.Context) error
}
