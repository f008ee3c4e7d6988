package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, "rivendell_0", cfg.SourceHost)
	require.Equal(t, time.Second, cfg.PollInterval)
	require.Equal(t, 2*time.Second, cfg.SettleDelay)
	require.Equal(t, "exec", cfg.Transport)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
log_level: debug
source_host: rivendell_studio_b
monitor_tick: 250ms
transport: nng
transport_endpoint: ipc:///run/rdx-shim
launchers:
  liquidsoap: ["liquidsoap", "/opt/streams/main.liq"]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "rivendell_studio_b", cfg.SourceHost)
	require.Equal(t, 250*time.Millisecond, cfg.MonitorTick)
	require.Equal(t, "nng", cfg.Transport)
	require.Equal(t, []string{"liquidsoap", "/opt/streams/main.liq"}, cfg.Launchers["liquidsoap"])
	// untouched fields keep defaults
	require.Equal(t, time.Second, cfg.PollInterval)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source_host: from_file\n"), 0o644))

	t.Setenv("RDX_JACK_SOURCE_HOST", "from_env")
	t.Setenv("RDX_JACK_POLL_INTERVAL", "5")
	t.Setenv("RDX_JACK_MONITOR_TICK", "1500ms")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from_env", cfg.SourceHost)
	require.Equal(t, 5*time.Second, cfg.PollInterval)
	require.Equal(t, 1500*time.Millisecond, cfg.MonitorTick)
}

func TestPathHonorsExplicitEnv(t *testing.T) {
	t.Setenv("RDX_JACK_CONFIG", "/etc/rdx/custom.yaml")
	require.Equal(t, "/etc/rdx/custom.yaml", Path())
}
