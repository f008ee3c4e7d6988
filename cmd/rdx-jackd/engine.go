package main

import (
	"context"
	"fmt"

	"github.com/anjeleno/rdx-rivendell/pkg/audioserver"
	"github.com/anjeleno/rdx-rivendell/pkg/critical"
	"github.com/anjeleno/rdx-rivendell/pkg/devices"
	"github.com/anjeleno/rdx-rivendell/pkg/graph"
	"github.com/anjeleno/rdx-rivendell/pkg/ipc"
	"github.com/anjeleno/rdx-rivendell/pkg/launcher"
	"github.com/anjeleno/rdx-rivendell/pkg/profile"
	"github.com/anjeleno/rdx-rivendell/pkg/routing"
)

// engine adapts the Routing Controller and its collaborators onto the
// IPC surface.
type engine struct {
	audio    *audioserver.Client
	ctrl     *routing.Controller
	profiles *profile.Store
	devices  devices.Provider
	launch   *launcher.ExecLauncher
	model    *graph.Model
	crit     *critical.Registry
}

func (e *engine) Graph(ctx context.Context) ipc.GraphInfo {
	snap := e.model.Snapshot()

	var out ipc.GraphInfo
	for _, name := range snap.Clients() {
		c := snap.Client(name)
		info := ipc.ClientInfo{
			Name:     c.Name,
			Kind:     string(c.Kind),
			Critical: e.crit.IsClientCritical(c.Name),
		}
		for _, p := range c.Ports {
			info.Ports = append(info.Ports, ipc.PortInfo{
				Qualified: p.Qualified,
				Kind:      string(p.Kind),
				IsSource:  p.IsSource(),
				IsSink:    p.IsSink(),
			})
		}
		out.Clients = append(out.Clients, info)
	}
	for _, edge := range snap.Edges() {
		out.Edges = append(out.Edges, ipc.EdgeInfo{
			Source:   edge.Source,
			Sink:     edge.Sink,
			Critical: e.crit.IsEdgeCritical(snap, edge.Source, edge.Sink),
		})
	}
	return out
}

func (e *engine) ScanDevices(ctx context.Context) ([]ipc.DeviceInfo, error) {
	devs, err := e.devices.Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ipc.DeviceInfo, 0, len(devs))
	for _, d := range devs {
		out = append(out, ipc.DeviceInfo{
			CardID:   d.CardID,
			Name:     d.Name,
			StableID: d.StableID,
			ALSAName: d.ALSAName,
			Inputs:   d.Inputs,
			Outputs:  d.Outputs,
			Type:     string(d.Type),
			Active:   d.Active,
		})
	}
	return out, nil
}

func (e *engine) IsRunning(ctx context.Context) bool {
	return e.audio.IsRunning(ctx)
}

func (e *engine) StartWithDevice(ctx context.Context, device string) error {
	if e.audio.IsRunning(ctx) {
		return fmt.Errorf("audio server already running")
	}
	e.launch.Register("jackd", launcher.Service{
		Command: []string{"jackd", "-d", "alsa", "-d", device, "-r", "48000"},
		Detach:  true,
	})
	return e.launch.Start(ctx, "jackd")
}

func (e *engine) Profiles() []ipc.ProfileInfo {
	list := e.profiles.List()
	out := make([]ipc.ProfileInfo, 0, len(list))
	for _, p := range list {
		out = append(out, ipc.ProfileInfo{
			Name:         p.Name,
			Description:  p.Description,
			AutoActivate: p.AutoActivate,
			AutoClients:  p.AutoClients,
			Priorities:   p.Priorities,
			Connections:  p.Connections,
		})
	}
	return out
}

func (e *engine) LoadProfile(ctx context.Context, name string) error {
	return e.ctrl.LoadProfile(ctx, name)
}

func (e *engine) SwitchInput(ctx context.Context, source, target string) error {
	if target == "" {
		target = e.ctrl.SourceHost()
	}
	return e.ctrl.SwitchInput(ctx, source, target)
}

func (e *engine) EnumerateInputSources() []string {
	return e.ctrl.EnumerateInputSources()
}

func (e *engine) Status(ctx context.Context) ipc.StatusInfo {
	return ipc.StatusInfo{
		ServerRunning:  e.audio.IsRunning(ctx),
		CurrentProfile: e.ctrl.CurrentProfile(),
		ActiveInput:    e.ctrl.ActiveInputSource(),
		InputSources:   e.ctrl.EnumerateInputSources(),
	}
}

func (e *engine) DisconnectAllFrom(ctx context.Context, client string) error {
	return e.ctrl.DisconnectAllFrom(ctx, client)
}

func (e *engine) EmergencyDisconnect(ctx context.Context) error {
	return e.ctrl.EmergencyDisconnect(ctx)
}
