package monitor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anjeleno/rdx-rivendell/pkg/audioserver"
	"github.com/anjeleno/rdx-rivendell/pkg/critical"
	"github.com/anjeleno/rdx-rivendell/pkg/eventlog"
	"github.com/anjeleno/rdx-rivendell/pkg/graph"
	"github.com/anjeleno/rdx-rivendell/pkg/logging"
	"github.com/anjeleno/rdx-rivendell/pkg/metrics"
	"github.com/anjeleno/rdx-rivendell/pkg/profile"
	"github.com/anjeleno/rdx-rivendell/pkg/routing"
)

type noLauncher struct{}

func (noLauncher) Known(string) bool                   { return false }
func (noLauncher) Start(context.Context, string) error { return nil }

func newTestMonitor(t *testing.T) (*Monitor, *audioserver.MemConn, *routing.Controller, *eventlog.Log) {
	t.Helper()

	conn := audioserver.NewMemConn()
	log := logging.NewNopLogger()
	met := metrics.NewRegistry()
	audio := audioserver.NewClient(conn, log, met)
	audio.Reconnect()
	model := graph.NewModel(audio, log, met)
	crit := critical.NewRegistry()
	events := eventlog.New(log)

	profiles, err := profile.Open(filepath.Join(t.TempDir(), "jack-profiles.xml"), log)
	require.NoError(t, err)

	opts := routing.DefaultOptions()
	opts.SettleDelay = 0
	ctrl := routing.NewController(audio, model, crit, profiles, events, noLauncher{}, log, met, opts)

	// Zero settle: reactions run inline, which is what the tests need.
	mon := New(model, ctrl, events, log, met, time.Second, 0)
	return mon, conn, ctrl, events
}

// Scenario: a media player appearing on an idle source host is routed
// into its record inputs automatically.
func TestVLCAutoRouteOnAppearance(t *testing.T) {
	mon, conn, ctrl, _ := newTestMonitor(t)
	ctx := context.Background()

	conn.AddPorts(
		"rivendell_0:record_0L",
		"rivendell_0:record_0R",
		"system:capture_1",
	)
	mon.Tick(ctx) // baseline

	conn.AddPorts("vlc_media_player:out_0", "vlc_media_player:out_1")
	mon.Tick(ctx)

	require.True(t, conn.HasEdge("vlc_media_player:out_0", "rivendell_0:record_0L"))
	require.True(t, conn.HasEdge("vlc_media_player:out_1", "rivendell_0:record_0R"))
	require.Equal(t, "vlc_media_player", ctrl.ActiveInputSource())
}

func TestVLCAppearanceWithForeignActiveSourceOnlyLogs(t *testing.T) {
	mon, conn, ctrl, _ := newTestMonitor(t)
	ctx := context.Background()

	conn.AddPorts(
		"rivendell_0:record_0L",
		"rivendell_0:record_0R",
		"system:capture_1",
		"system:capture_2",
	)
	mon.Tick(ctx)
	require.NoError(t, ctrl.SwitchInput(ctx, "system", "rivendell_0"))
	require.Equal(t, "system", ctrl.ActiveInputSource())

	conn.AddPorts("vlc_media_player:out_0", "vlc_media_player:out_1")
	mon.Tick(ctx)

	// The hardware feed stays; availability is noted, nothing rewired.
	require.Equal(t, "system", ctrl.ActiveInputSource())
	require.True(t, conn.HasEdge("system:capture_1", "rivendell_0:record_0L"))
	require.False(t, conn.HasEdge("vlc_media_player:out_0", "rivendell_0:record_0L"))
}

func TestStereoToolAppearanceIsBlacklisted(t *testing.T) {
	mon, conn, ctrl, _ := newTestMonitor(t)
	ctx := context.Background()

	conn.AddPorts("rivendell_0:record_0L")
	mon.Tick(ctx)

	conn.AddPorts("stereo_tool:in_1", "stereo_tool:out_l")
	mon.Tick(ctx)

	require.True(t, ctrl.IsAutoConnectBlocked("stereo_tool"))
}

// Scenario: the active source vanishing raises an alert but never
// rewires on its own.
func TestActiveSourceDisappearance(t *testing.T) {
	mon, conn, ctrl, events := newTestMonitor(t)
	ctx := context.Background()

	conn.AddPorts(
		"rivendell_0:record_0L",
		"rivendell_0:record_0R",
		"system:capture_1",
	)
	mon.Tick(ctx)

	conn.AddPorts("vlc_media_player:out_0", "vlc_media_player:out_1")
	mon.Tick(ctx)
	require.Equal(t, "vlc_media_player", ctrl.ActiveInputSource())
	seqBefore := events.LastSeq()

	conn.RemoveClient("vlc_media_player")
	mon.Tick(ctx)

	var disappeared int
	for _, ev := range events.Since(seqBefore) {
		if ev.Kind == eventlog.ClientDisappeared && ev.Client == "vlc_media_player" {
			disappeared++
		}
	}
	require.Equal(t, 1, disappeared, "exactly one disappearance event")

	require.Empty(t, ctrl.ActiveInputSource())
	require.NotContains(t, ctrl.EnumerateInputSources(), "vlc_media_player")

	// No automatic re-wire happened.
	require.False(t, conn.HasEdge("system:capture_1", "rivendell_0:record_0L"))
}

func TestFirstTickEstablishesBaselineSilently(t *testing.T) {
	mon, conn, _, events := newTestMonitor(t)
	ctx := context.Background()

	conn.AddPorts("rivendell_0:record_0L", "vlc_media_player:out_0")
	mon.Tick(ctx)

	for _, ev := range events.Since(0) {
		require.NotEqual(t, eventlog.ClientAppeared, ev.Kind,
			"the priming tick must not report appearances")
	}
}
