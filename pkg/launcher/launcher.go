// Package launcher starts the auxiliary processes a profile depends on:
// the audio processor, the streamer, and the icecast service. It is the
// ServiceLauncher collaborator the Routing Controller consults during
// profile activation; launch failures are reported, never fatal.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/anjeleno/rdx-rivendell/pkg/logging"
	"github.com/anjeleno/rdx-rivendell/pkg/metrics"
)

// ErrLaunchFailed wraps any failure to start an auxiliary process.
var ErrLaunchFailed = errors.New("launch failed")

// ServiceLauncher starts named auxiliary clients. Implementations must
// bound their wait and return a failure result on expiry rather than
// blocking the event loop.
type ServiceLauncher interface {
	// Known reports whether a launcher exists for the client name.
	Known(name string) bool
	// Start launches the named client. Returns ErrLaunchFailed on any
	// failure, including the startup wait expiring.
	Start(ctx context.Context, name string) error
}

// Service describes how to start one auxiliary client.
type Service struct {
	// Command and arguments. For systemd-managed services this is
	// systemctl start <unit>.
	Command []string
	// Detach runs the process as a long-lived child rather than waiting
	// for the command to exit.
	Detach bool
}

// StartTimeout bounds how long Start waits for a launched process to
// begin before reporting failure.
const StartTimeout = 5 * time.Second

// jackEnv is the environment the audio clients need: the server's
// promiscuous flag and the no-audio-reservation flag.
func jackEnv() []string {
	return append(os.Environ(),
		"JACK_PROMISCUOUS_SERVER=audio",
		"JACK_NO_AUDIO_RESERVATION=1",
	)
}

// ExecLauncher launches services as child processes or via systemctl.
type ExecLauncher struct {
	log      logging.Logger
	met      *metrics.Registry
	services map[string]Service

	mu      sync.Mutex
	running map[string]*exec.Cmd
}

// NewExecLauncher creates a launcher with the default service table.
func NewExecLauncher(log logging.Logger, met *metrics.Registry) *ExecLauncher {
	return &ExecLauncher{
		log: log.With(logging.Component("launcher")),
		met: met,
		services: map[string]Service{
			"stereo_tool": {Command: []string{"stereo_tool_gui_jack_64"}, Detach: true},
			"liquidsoap":  {Command: []string{"liquidsoap", "/etc/liquidsoap/rdx-stream.liq"}, Detach: true},
			"icecast":     {Command: []string{"systemctl", "start", "icecast2"}},
		},
		running: make(map[string]*exec.Cmd),
	}
}

// Register adds or replaces a service definition, e.g. from configuration.
func (l *ExecLauncher) Register(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services[name] = svc
}

// Known implements ServiceLauncher.
func (l *ExecLauncher) Known(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.services[name]
	return ok
}

// Start implements ServiceLauncher.
func (l *ExecLauncher) Start(ctx context.Context, name string) error {
	l.mu.Lock()
	svc, ok := l.services[name]
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: no launcher for %q", ErrLaunchFailed, name)
	}

	var err error
	if svc.Detach {
		err = l.startDetached(name, svc)
	} else {
		err = l.startAndWait(ctx, svc)
	}
	if err != nil {
		l.met.LaunchFailuresTotal.WithLabelValues(name).Inc()
		l.log.Warn("service launch failed", logging.ClientName(name), logging.Error(err))
		return err
	}
	l.log.Info("service launched", logging.ClientName(name))
	return nil
}

// Stop terminates a detached child previously started by this launcher.
func (l *ExecLauncher) Stop(name string) {
	l.mu.Lock()
	cmd := l.running[name]
	delete(l.running, name)
	l.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}

// startAndWait runs a short command (systemctl) bounded by StartTimeout.
func (l *ExecLauncher) startAndWait(ctx context.Context, svc Service) error {
	ctx, cancel := context.WithTimeout(ctx, StartTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, svc.Command[0], svc.Command[1:]...)
	cmd.Env = jackEnv()
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}
	return nil
}

// startDetached launches a long-lived child and confirms, without
// blocking past StartTimeout, that it did not die immediately.
func (l *ExecLauncher) startDetached(name string, svc Service) error {
	cmd := exec.Command(svc.Command[0], svc.Command[1:]...)
	cmd.Env = jackEnv()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	select {
	case err := <-exited:
		return fmt.Errorf("%w: exited during startup: %v", ErrLaunchFailed, err)
	case <-time.After(500 * time.Millisecond):
	}

	l.mu.Lock()
	l.running[name] = cmd
	l.mu.Unlock()
	return nil
}
