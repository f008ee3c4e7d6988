package routing

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anjeleno/rdx-rivendell/pkg/audioserver"
	"github.com/anjeleno/rdx-rivendell/pkg/critical"
	"github.com/anjeleno/rdx-rivendell/pkg/eventlog"
	"github.com/anjeleno/rdx-rivendell/pkg/graph"
	"github.com/anjeleno/rdx-rivendell/pkg/logging"
	"github.com/anjeleno/rdx-rivendell/pkg/metrics"
	"github.com/anjeleno/rdx-rivendell/pkg/profile"
)

// fakeLauncher records starts and registers the client's ports on the
// simulated server, standing in for the real process appearing.
type fakeLauncher struct {
	conn    *audioserver.MemConn
	known   map[string][]string
	started []string
}

func (f *fakeLauncher) Known(name string) bool {
	_, ok := f.known[name]
	return ok
}

func (f *fakeLauncher) Start(ctx context.Context, name string) error {
	ports, ok := f.known[name]
	if !ok {
		return errors.New("no launcher")
	}
	f.started = append(f.started, name)
	f.conn.AddPorts(ports...)
	return nil
}

type testEnv struct {
	conn     *audioserver.MemConn
	audio    *audioserver.Client
	model    *graph.Model
	crit     *critical.Registry
	profiles *profile.Store
	events   *eventlog.Log
	launch   *fakeLauncher
	ctrl     *Controller
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn := audioserver.NewMemConn()
	log := logging.NewNopLogger()
	met := metrics.NewRegistry()
	audio := audioserver.NewClient(conn, log, met)
	audio.Reconnect()
	model := graph.NewModel(audio, log, met)
	crit := critical.NewRegistry()
	events := eventlog.New(log)
	launch := &fakeLauncher{conn: conn, known: map[string][]string{}}

	profiles, err := profile.Open(filepath.Join(t.TempDir(), "jack-profiles.xml"), log)
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.SettleDelay = 0 // activation runs synchronously under test
	ctrl := NewController(audio, model, crit, profiles, events, launch, log, met, opts)

	return &testEnv{
		conn:     conn,
		audio:    audio,
		model:    model,
		crit:     crit,
		profiles: profiles,
		events:   events,
		launch:   launch,
		ctrl:     ctrl,
	}
}

// wireBroadcastChain sets up the canonical on-air graph: playout into the
// processor, processor into the streamer, and a vlc player feeding the
// record inputs.
func wireBroadcastChain(t *testing.T, env *testEnv) {
	t.Helper()
	env.conn.AddPorts(
		"rivendell_0:playout_0L",
		"rivendell_0:playout_0R",
		"rivendell_0:record_0L",
		"rivendell_0:record_0R",
		"stereo_tool:in_1",
		"stereo_tool:in_2",
		"stereo_tool:out_l",
		"stereo_tool:out_r",
		"liquidsoap:in_0",
		"liquidsoap:in_1",
		"system:capture_1",
		"system:capture_2",
		"vlc_media_player:out_0",
		"vlc_media_player:out_1",
	)
	ctx := context.Background()
	for _, e := range [][2]string{
		{"rivendell_0:playout_0L", "stereo_tool:in_1"},
		{"rivendell_0:playout_0R", "stereo_tool:in_2"},
		{"stereo_tool:out_l", "liquidsoap:in_0"},
		{"vlc_media_player:out_0", "rivendell_0:record_0L"},
		{"vlc_media_player:out_1", "rivendell_0:record_0R"},
	} {
		require.NoError(t, env.conn.Connect(ctx, e[0], e[1]))
	}
}

// Scenario: the critical chain survives an input switch.
func TestSwitchInputPreservesCriticalChain(t *testing.T) {
	env := newTestEnv(t)
	wireBroadcastChain(t, env)
	ctx := context.Background()

	require.NoError(t, env.ctrl.SwitchInput(ctx, "system", "rivendell_0"))

	// record peers replaced by system capture
	require.True(t, env.conn.HasEdge("system:capture_1", "rivendell_0:record_0L"))
	require.True(t, env.conn.HasEdge("system:capture_2", "rivendell_0:record_0R"))
	require.False(t, env.conn.HasEdge("vlc_media_player:out_0", "rivendell_0:record_0L"))
	require.False(t, env.conn.HasEdge("vlc_media_player:out_1", "rivendell_0:record_0R"))

	// critical playout edges untouched
	require.True(t, env.conn.HasEdge("rivendell_0:playout_0L", "stereo_tool:in_1"))
	require.True(t, env.conn.HasEdge("rivendell_0:playout_0R", "stereo_tool:in_2"))
	require.True(t, env.conn.HasEdge("stereo_tool:out_l", "liquidsoap:in_0"))

	require.Equal(t, "system", env.ctrl.ActiveInputSource())
}

// Invariant: no source side of the target is ever touched.
func TestSwitchInputNeverTouchesTargetSources(t *testing.T) {
	env := newTestEnv(t)
	wireBroadcastChain(t, env)
	ctx := context.Background()

	snapBefore, err := env.model.Refresh(ctx)
	require.NoError(t, err)
	var sourceEdges [][2]string
	for _, p := range snapBefore.SourcePortsOf("rivendell_0") {
		for _, peer := range snapBefore.PeersOf(p.Qualified) {
			sourceEdges = append(sourceEdges, [2]string{p.Qualified, peer})
		}
	}
	require.NotEmpty(t, sourceEdges)

	require.NoError(t, env.ctrl.SwitchInput(ctx, "system", "rivendell_0"))

	for _, e := range sourceEdges {
		require.True(t, env.conn.HasEdge(e[0], e[1]), "source edge %v must survive", e)
	}
}

// An unclassifiable peer on a record sink is preserved.
func TestSwitchInputPreservesUnknownPeer(t *testing.T) {
	env := newTestEnv(t)
	env.conn.AddPorts(
		"rivendell_0:record_0L",
		"rivendell_0:record_0R",
		"mystery:signal_1",
		"system:capture_1",
	)
	ctx := context.Background()
	require.NoError(t, env.conn.Connect(ctx, "mystery:signal_1", "rivendell_0:record_0L"))

	err := env.ctrl.SwitchInput(ctx, "system", "rivendell_0")
	require.NoError(t, err)

	require.True(t, env.conn.HasEdge("mystery:signal_1", "rivendell_0:record_0L"),
		"unknown peer must be safety-preserved")
	require.True(t, env.conn.HasEdge("system:capture_1", "rivendell_0:record_0L"))
}

func TestSwitchInputPortClassificationFailures(t *testing.T) {
	env := newTestEnv(t)
	env.conn.AddPorts("rivendell_0:record_0L", "noports:midi_1")
	ctx := context.Background()

	err := env.ctrl.SwitchInput(ctx, "noports", "rivendell_0")
	require.ErrorIs(t, err, ErrNoSourcePorts)

	env.conn.AddPorts("system:capture_1")
	err = env.ctrl.SwitchInput(ctx, "system", "noports")
	require.ErrorIs(t, err, ErrNoSinkPorts)
}

// Scenario: refuse-critical disconnect.
func TestDisconnectAllFromRefusesCriticalClient(t *testing.T) {
	env := newTestEnv(t)
	wireBroadcastChain(t, env)
	ctx := context.Background()

	edgesBefore := env.conn.EdgeCount()
	err := env.ctrl.DisconnectAllFrom(ctx, "stereo_tool")
	require.ErrorIs(t, err, ErrRefusedCritical)
	require.Equal(t, edgesBefore, env.conn.EdgeCount(), "graph must be unchanged")
}

func TestDisconnectAllFromSkipsCriticalEdges(t *testing.T) {
	env := newTestEnv(t)
	wireBroadcastChain(t, env)
	ctx := context.Background()

	// vlc is not critical; its record edges go, nothing else does.
	require.NoError(t, env.ctrl.DisconnectAllFrom(ctx, "vlc_media_player"))
	require.False(t, env.conn.HasEdge("vlc_media_player:out_0", "rivendell_0:record_0L"))
	require.True(t, env.conn.HasEdge("rivendell_0:playout_0L", "stereo_tool:in_1"))
}

// Scenario: profile activation with partially-missing auto-clients.
func TestLoadProfileWithPartialLaunchers(t *testing.T) {
	env := newTestEnv(t)
	env.conn.AddPorts(
		"rivendell_0:playout_0L",
		"rivendell_0:playout_0R",
		"rivendell_0:record_0L",
		"rivendell_0:record_0R",
	)
	// Only the processor has a launcher; starting it registers its ports.
	env.launch.known["stereo_tool"] = []string{"stereo_tool:in_1", "stereo_tool:in_2"}

	ctx := context.Background()
	require.NoError(t, env.ctrl.LoadProfile(ctx, profile.LiveBroadcastProfileName))

	require.Equal(t, []string{"stereo_tool"}, env.launch.started)
	require.Equal(t, profile.LiveBroadcastProfileName, env.ctrl.CurrentProfile())

	// Chain to the processor is up and critical; the absent streamer is
	// not an error.
	require.True(t, env.conn.HasEdge("rivendell_0:playout_0L", "stereo_tool:in_1"))
	require.True(t, env.conn.HasEdge("rivendell_0:playout_0R", "stereo_tool:in_2"))

	snap := env.model.Snapshot()
	require.True(t, env.crit.IsEdgeCritical(snap, "rivendell_0:playout_0L", "stereo_tool:in_1"))
}

func TestLoadProfileUnknown(t *testing.T) {
	env := newTestEnv(t)
	err := env.ctrl.LoadProfile(context.Background(), "no-such-profile")
	require.ErrorIs(t, err, ErrUnknownProfile)
	require.Empty(t, env.ctrl.CurrentProfile())
}

func TestLoadProfileAppliesPriorities(t *testing.T) {
	env := newTestEnv(t)
	env.conn.AddPorts("rivendell_0:playout_0L")
	ctx := context.Background()

	require.NoError(t, env.ctrl.LoadProfile(ctx, profile.LiveBroadcastProfileName))
	require.Equal(t, 60, env.ctrl.PriorityOf("liquidsoap"))
	require.Equal(t, 0, env.ctrl.PriorityOf("vlc_media_player"))
}

// Scenario: emergency disconnect ignores critical marks.
func TestEmergencyDisconnect(t *testing.T) {
	env := newTestEnv(t)
	wireBroadcastChain(t, env)
	ctx := context.Background()

	require.Equal(t, 5, env.conn.EdgeCount())
	require.NoError(t, env.ctrl.EmergencyDisconnect(ctx))
	require.Equal(t, 0, env.conn.EdgeCount())
	require.Empty(t, env.ctrl.ActiveInputSource())

	// A subsequent profile load re-establishes the chain.
	require.NoError(t, env.ctrl.LoadProfile(ctx, profile.LiveBroadcastProfileName))
	require.True(t, env.conn.HasEdge("rivendell_0:playout_0L", "stereo_tool:in_1"))
}

func TestEnumerateInputSourcesOrderAndStability(t *testing.T) {
	env := newTestEnv(t)
	wireBroadcastChain(t, env)
	ctx := context.Background()
	_, err := env.model.Refresh(ctx)
	require.NoError(t, err)

	first := env.ctrl.EnumerateInputSources()
	require.NotEmpty(t, first)

	// Idempotent between refreshes.
	_, err = env.model.Refresh(ctx)
	require.NoError(t, err)
	second := env.ctrl.EnumerateInputSources()
	require.Equal(t, first, second)

	// Priorities reorder: raise vlc above everyone.
	p, err := env.profiles.Get(profile.DefaultProfileName)
	require.NoError(t, err)
	p.Priorities = map[string]int{"vlc_media_player": 90}
	require.NoError(t, env.profiles.Save(p))
	require.NoError(t, env.ctrl.LoadProfile(ctx, profile.DefaultProfileName))

	ranked := env.ctrl.EnumerateInputSources()
	require.Equal(t, "vlc_media_player", ranked[0])
}

func TestPreventAutoConnectBlacklists(t *testing.T) {
	env := newTestEnv(t)
	wireBroadcastChain(t, env)
	ctx := context.Background()

	env.ctrl.PreventAutoConnect(ctx, "vlc_media_player")
	require.True(t, env.ctrl.IsAutoConnectBlocked("vlc_media_player"))
	require.True(t, env.ctrl.IsAutoConnectBlocked("VLC_Media_Player_2"))
	require.False(t, env.ctrl.IsAutoConnectBlocked("system"))

	// Existing non-critical edges were cleared.
	require.False(t, env.conn.HasEdge("vlc_media_player:out_0", "rivendell_0:record_0L"))
}

// Invariant: no operation other than emergency disconnect removes a
// critical edge.
func TestNonEmergencyOperationsPreserveCriticalEdges(t *testing.T) {
	env := newTestEnv(t)
	wireBroadcastChain(t, env)
	ctx := context.Background()

	snap, err := env.model.Refresh(ctx)
	require.NoError(t, err)
	criticalBefore := env.crit.CriticalEdges(snap)
	require.NotEmpty(t, criticalBefore)

	env.ctrl.SwitchInput(ctx, "system", "rivendell_0")
	env.ctrl.DisconnectAllFrom(ctx, "vlc_media_player")
	env.ctrl.PreventAutoConnect(ctx, "system")
	env.ctrl.LoadProfile(ctx, profile.DefaultProfileName)

	for _, e := range criticalBefore {
		require.True(t, env.conn.HasEdge(e.Source, e.Sink),
			"critical edge %v -> %v must survive every non-emergency operation", e.Source, e.Sink)
	}
}
