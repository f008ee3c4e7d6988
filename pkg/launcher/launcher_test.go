package launcher

import (
	"context"
	"errors"
	"testing"

	"github.com/anjeleno/rdx-rivendell/pkg/logging"
	"github.com/anjeleno/rdx-rivendell/pkg/metrics"
)

func TestKnownServices(t *testing.T) {
	l := NewExecLauncher(logging.NewNopLogger(), metrics.NewRegistry())

	for _, name := range []string{"stereo_tool", "liquidsoap", "icecast"} {
		if !l.Known(name) {
			t.Errorf("default launcher must know %q", name)
		}
	}
	if l.Known("vlc_media_player") {
		t.Error("media players are not launcher-managed")
	}
}

func TestRegisterOverridesDefaults(t *testing.T) {
	l := NewExecLauncher(logging.NewNopLogger(), metrics.NewRegistry())
	l.Register("jackd", Service{Command: []string{"jackd", "-d", "alsa"}, Detach: true})
	if !l.Known("jackd") {
		t.Fatal("registered service must be known")
	}
}

func TestStartUnknownServiceFails(t *testing.T) {
	l := NewExecLauncher(logging.NewNopLogger(), metrics.NewRegistry())
	err := l.Start(context.Background(), "no_such_service")
	if !errors.Is(err, ErrLaunchFailed) {
		t.Fatalf("expected ErrLaunchFailed, got %v", err)
	}
}

func TestStartAndWaitReportsCommandFailure(t *testing.T) {
	l := NewExecLauncher(logging.NewNopLogger(), metrics.NewRegistry())
	l.Register("broken", Service{Command: []string{"/nonexistent/binary"}})
	err := l.Start(context.Background(), "broken")
	if !errors.Is(err, ErrLaunchFailed) {
		t.Fatalf("expected ErrLaunchFailed, got %v", err)
	}
}
