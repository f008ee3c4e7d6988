// Package config loads the daemon's configuration: a YAML file under the
// per-user config directory with environment-variable overrides, and
// defaults that let the daemon run with no file at all.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
type Config struct {
	LogLevel string `yaml:"log_level"`

	// SourceHost is the broadcast playout client.
	SourceHost string `yaml:"source_host"`

	// PollInterval is the status poller cadence; MonitorTick the client
	// monitor cadence; SettleDelay the pause before chain establishment.
	PollInterval time.Duration `yaml:"poll_interval"`
	MonitorTick  time.Duration `yaml:"monitor_tick"`
	SettleDelay  time.Duration `yaml:"settle_delay"`

	// Transport selects the audio-server wire: exec (default), mem, nng,
	// or zmq. The socket transports also need an endpoint.
	Transport         string `yaml:"transport"`
	TransportEndpoint string `yaml:"transport_endpoint"`

	// SocketPath is the IPC listener; MetricsAddr the debug HTTP bind
	// (metrics + graph introspection), empty to disable.
	SocketPath  string `yaml:"socket_path"`
	MetricsAddr string `yaml:"metrics_addr"`

	// ProfilePath overrides the profile store location.
	ProfilePath string `yaml:"profile_path"`

	// EventSpoolPath is the on-disk event spool; AuditDSN enables the
	// optional Postgres audit trail.
	EventSpoolPath string `yaml:"event_spool_path"`
	AuditDSN       string `yaml:"audit_dsn"`

	// Launchers overrides the auxiliary service commands.
	Launchers map[string][]string `yaml:"launchers"`
}

// Default returns the configuration used when no file or overrides exist.
func Default() Config {
	return Config{
		LogLevel:       "info",
		SourceHost:     "rivendell_0",
		PollInterval:   time.Second,
		MonitorTick:    time.Second,
		SettleDelay:    2 * time.Second,
		Transport:      "exec",
		SocketPath:     "/run/user/rdx-jack.sock",
		EventSpoolPath: defaultStatePath("events.spool"),
	}
}

// Path returns the config file location: $RDX_JACK_CONFIG if set,
// otherwise $XDG_CONFIG_HOME/rdx-jack/config.yaml.
func Path() string {
	if p := os.Getenv("RDX_JACK_CONFIG"); p != "" {
		return p
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "rdx-jack", "config.yaml")
}

// Load reads the file at path (missing is fine), then applies environment
// overrides on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := unmarshalInto(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// fileConfig mirrors Config with string-typed durations, since YAML has
// no native duration form.
type fileConfig struct {
	LogLevel          *string             `yaml:"log_level"`
	SourceHost        *string             `yaml:"source_host"`
	PollInterval      *string             `yaml:"poll_interval"`
	MonitorTick       *string             `yaml:"monitor_tick"`
	SettleDelay       *string             `yaml:"settle_delay"`
	Transport         *string             `yaml:"transport"`
	TransportEndpoint *string             `yaml:"transport_endpoint"`
	SocketPath        *string             `yaml:"socket_path"`
	MetricsAddr       *string             `yaml:"metrics_addr"`
	ProfilePath       *string             `yaml:"profile_path"`
	EventSpoolPath    *string             `yaml:"event_spool_path"`
	AuditDSN          *string             `yaml:"audit_dsn"`
	Launchers         map[string][]string `yaml:"launchers"`
}

func unmarshalInto(data []byte, cfg *Config) error {
	var raw fileConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}

	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setDuration := func(dst *time.Duration, src *string) error {
		if src == nil {
			return nil
		}
		d, err := parseDuration(*src)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}

	setString(&cfg.LogLevel, raw.LogLevel)
	setString(&cfg.SourceHost, raw.SourceHost)
	setString(&cfg.Transport, raw.Transport)
	setString(&cfg.TransportEndpoint, raw.TransportEndpoint)
	setString(&cfg.SocketPath, raw.SocketPath)
	setString(&cfg.MetricsAddr, raw.MetricsAddr)
	setString(&cfg.ProfilePath, raw.ProfilePath)
	setString(&cfg.EventSpoolPath, raw.EventSpoolPath)
	setString(&cfg.AuditDSN, raw.AuditDSN)
	if raw.Launchers != nil {
		cfg.Launchers = raw.Launchers
	}

	if err := setDuration(&cfg.PollInterval, raw.PollInterval); err != nil {
		return fmt.Errorf("poll_interval: %w", err)
	}
	if err := setDuration(&cfg.MonitorTick, raw.MonitorTick); err != nil {
		return fmt.Errorf("monitor_tick: %w", err)
	}
	if err := setDuration(&cfg.SettleDelay, raw.SettleDelay); err != nil {
		return fmt.Errorf("settle_delay: %w", err)
	}
	return nil
}

// applyEnv lets container and service deployments override without a file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("RDX_JACK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("RDX_JACK_SOURCE_HOST"); v != "" {
		cfg.SourceHost = v
	}
	if v := os.Getenv("RDX_JACK_TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("RDX_JACK_TRANSPORT_ENDPOINT"); v != "" {
		cfg.TransportEndpoint = v
	}
	if v := os.Getenv("RDX_JACK_SOCKET"); v != "" {
		cfg.SocketPath = v
	}
	if v := os.Getenv("RDX_JACK_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("RDX_JACK_AUDIT_DSN"); v != "" {
		cfg.AuditDSN = v
	}
	if v := os.Getenv("RDX_JACK_POLL_INTERVAL"); v != "" {
		if d, err := parseDuration(v); err == nil {
			cfg.PollInterval = d
		}
	}
	if v := os.Getenv("RDX_JACK_MONITOR_TICK"); v != "" {
		if d, err := parseDuration(v); err == nil {
			cfg.MonitorTick = d
		}
	}
	if v := os.Getenv("RDX_JACK_SETTLE_DELAY"); v != "" {
		if d, err := parseDuration(v); err == nil {
			cfg.SettleDelay = d
		}
	}
}

// parseDuration accepts Go duration strings and bare seconds.
func parseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs) * time.Second, nil
}

func defaultStatePath(name string) string {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "rdx-jack", name)
}
