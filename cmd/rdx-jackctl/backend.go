package main

import (
	"context"
	"os"
	"time"

	"github.com/anjeleno/rdx-rivendell/pkg/audioserver"
	"github.com/anjeleno/rdx-rivendell/pkg/config"
	"github.com/anjeleno/rdx-rivendell/pkg/critical"
	"github.com/anjeleno/rdx-rivendell/pkg/devices"
	"github.com/anjeleno/rdx-rivendell/pkg/eventlog"
	"github.com/anjeleno/rdx-rivendell/pkg/graph"
	"github.com/anjeleno/rdx-rivendell/pkg/ipc"
	"github.com/anjeleno/rdx-rivendell/pkg/ipcauth"
	"github.com/anjeleno/rdx-rivendell/pkg/launcher"
	"github.com/anjeleno/rdx-rivendell/pkg/logging"
	"github.com/anjeleno/rdx-rivendell/pkg/metrics"
	"github.com/anjeleno/rdx-rivendell/pkg/profile"
	"github.com/anjeleno/rdx-rivendell/pkg/routing"
)

const callTimeout = 15 * time.Second

// ipcBackend routes every operation through the daemon's socket.
type ipcBackend struct {
	client *ipc.Client
}

func newIPCBackend(cfg config.Config) (*ipcBackend, error) {
	auth, err := ipcauth.Open(ipcauth.DefaultSecretPath())
	if err != nil {
		return nil, err
	}
	token, err := auth.Issue("rdx-jackctl")
	if err != nil {
		return nil, err
	}
	client, err := ipc.Dial(cfg.SocketPath, token)
	if err != nil {
		return nil, err
	}
	return &ipcBackend{client: client}, nil
}

func (b *ipcBackend) Scan() ([]ipc.DeviceInfo, error) {
	var out []ipc.DeviceInfo
	err := b.client.Call(ipc.MethodScanDevices, nil, &out)
	return out, err
}

func (b *ipcBackend) IsRunning() (bool, error) {
	var out bool
	err := b.client.Call(ipc.MethodIsRunning, nil, &out)
	return out, err
}

func (b *ipcBackend) Profiles() ([]ipc.ProfileInfo, error) {
	var out []ipc.ProfileInfo
	err := b.client.Call(ipc.MethodGetProfiles, nil, &out)
	return out, err
}

func (b *ipcBackend) LoadProfile(name string) error {
	return b.client.Call(ipc.MethodLoadProfile, ipc.NameParams{Name: name}, nil)
}

func (b *ipcBackend) Status() (ipc.StatusInfo, error) {
	var out ipc.StatusInfo
	err := b.client.Call(ipc.MethodGetStatus, nil, &out)
	return out, err
}

func (b *ipcBackend) SwitchInput(source string) error {
	return b.client.Call(ipc.MethodSwitchInput, ipc.SwitchParams{Source: source}, nil)
}

func (b *ipcBackend) DisconnectAll(client string) error {
	return b.client.Call(ipc.MethodDisconnectAllFrom, ipc.NameParams{Name: client}, nil)
}

func (b *ipcBackend) Close() error {
	return b.client.Close()
}

// localBackend wires a one-shot engine in-process: same components the
// daemon runs, no IPC, no timers beyond the operation at hand.
type localBackend struct {
	audio    *audioserver.Client
	ctrl     *routing.Controller
	profiles *profile.Store
	devs     devices.Provider
	ctx      context.Context
	cancel   context.CancelFunc
}

func newLocalBackend(cfg config.Config) (*localBackend, error) {
	log := logging.NewJSONLogger(os.Stderr, logging.WarnLevel)
	met := metrics.NewRegistry()

	conn, err := audioserver.NewConn(cfg.Transport, cfg.TransportEndpoint, 0)
	if err != nil {
		return nil, err
	}
	audio := audioserver.NewClient(conn, log, met)
	model := graph.NewModel(audio, log, met)
	crit := critical.NewRegistry()
	events := eventlog.New(log)

	profilePath := cfg.ProfilePath
	if profilePath == "" {
		profilePath = profile.DefaultPath()
	}
	profiles, err := profile.Open(profilePath, log)
	if err != nil {
		return nil, err
	}

	launch := launcher.NewExecLauncher(log, met)
	opts := routing.DefaultOptions()
	opts.SourceHost = cfg.SourceHost
	opts.SettleDelay = cfg.SettleDelay
	ctrl := routing.NewController(audio, model, crit, profiles, events, launch, log, met, opts)

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	if audio.IsRunning(ctx) {
		audio.Reconnect()
		model.Refresh(ctx)
	}
	return &localBackend{
		audio:    audio,
		ctrl:     ctrl,
		profiles: profiles,
		devs:     devices.NewProcProvider(),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

func (b *localBackend) Scan() ([]ipc.DeviceInfo, error) {
	devs, err := b.devs.Scan(b.ctx)
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

func (b *localBackend) IsRunning() (bool, error) {
	return b.audio.IsRunning(b.ctx), nil
}

func (b *localBackend) Profiles() ([]ipc.ProfileInfo, error) {
	list := b.profiles.List()
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
	return out, nil
}

func (b *localBackend) LoadProfile(name string) error {
	return b.ctrl.LoadProfile(b.ctx, name)
}

func (b *localBackend) Status() (ipc.StatusInfo, error) {
	return ipc.StatusInfo{
		ServerRunning:  b.audio.IsRunning(b.ctx),
		CurrentProfile: b.ctrl.CurrentProfile(),
		ActiveInput:    b.ctrl.ActiveInputSource(),
		InputSources:   b.ctrl.EnumerateInputSources(),
	}, nil
}

func (b *localBackend) SwitchInput(source string) error {
	return b.ctrl.SwitchInput(b.ctx, source, b.ctrl.SourceHost())
}

func (b *localBackend) DisconnectAll(client string) error {
	return b.ctrl.DisconnectAllFrom(b.ctx, client)
}

func (b *localBackend) Close() error {
	b.cancel()
	return b.audio.Close()
}
