// rdx-jackd is the routing daemon: it watches the audio server, applies
// profiles, protects the broadcast chain, and publishes the IPC surface
// the helper binaries and the desktop panel consume.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anjeleno/rdx-rivendell/pkg/audioserver"
	"github.com/anjeleno/rdx-rivendell/pkg/config"
	"github.com/anjeleno/rdx-rivendell/pkg/critical"
	"github.com/anjeleno/rdx-rivendell/pkg/devices"
	"github.com/anjeleno/rdx-rivendell/pkg/eventlog"
	"github.com/anjeleno/rdx-rivendell/pkg/graph"
	"github.com/anjeleno/rdx-rivendell/pkg/graphqlapi"
	"github.com/anjeleno/rdx-rivendell/pkg/ipc"
	"github.com/anjeleno/rdx-rivendell/pkg/ipcauth"
	"github.com/anjeleno/rdx-rivendell/pkg/launcher"
	"github.com/anjeleno/rdx-rivendell/pkg/logging"
	"github.com/anjeleno/rdx-rivendell/pkg/metrics"
	"github.com/anjeleno/rdx-rivendell/pkg/monitor"
	"github.com/anjeleno/rdx-rivendell/pkg/profile"
	"github.com/anjeleno/rdx-rivendell/pkg/routing"
	"github.com/anjeleno/rdx-rivendell/pkg/server"
)

const version = "1.2.0"

func main() {
	var testMode bool
	configPath := flag.String("config", config.Path(), "Configuration file")
	flag.BoolVar(&testMode, "t", false, "Run without publishing the IPC service (local-only)")
	flag.BoolVar(&testMode, "test", false, "Run without publishing the IPC service (local-only)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("rdx-jackd %s\n", version)
		return
	}

	if err := run(*configPath, testMode); err != nil {
		fmt.Fprintf(os.Stderr, "rdx-jackd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, testMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logging.NewJSONLogger(os.Stderr, logging.ParseLevel(cfg.LogLevel))
	met := metrics.DefaultRegistry()
	log.Info("starting rdx-jackd",
		logging.String("version", version),
		logging.String("transport", cfg.Transport))

	conn, err := audioserver.NewConn(cfg.Transport, cfg.TransportEndpoint, 0)
	if err != nil {
		return err
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
		return err
	}

	if cfg.EventSpoolPath != "" {
		spool, err := eventlog.OpenSpool(cfg.EventSpoolPath)
		if err != nil {
			log.Warn("event spool unavailable", logging.Error(err))
		} else {
			events.AddSink(spool)
			defer spool.Close()
		}
	}
	if cfg.AuditDSN != "" {
		sinkCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		pg, err := eventlog.NewPGSink(sinkCtx, cfg.AuditDSN)
		cancel()
		if err != nil {
			log.Warn("audit sink unavailable", logging.Error(err))
		} else {
			events.AddSink(pg)
			defer pg.Close()
		}
	}

	launch := launcher.NewExecLauncher(log, met)
	for name, command := range cfg.Launchers {
		launch.Register(name, launcher.Service{Command: command, Detach: true})
	}

	opts := routing.DefaultOptions()
	opts.SourceHost = cfg.SourceHost
	opts.SettleDelay = cfg.SettleDelay
	ctrl := routing.NewController(audio, model, crit, profiles, events, launch, log, met, opts)

	lifecycle := server.New(log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-lifecycle.Done()
		cancel()
	}()

	poller := audioserver.NewStatusPoller(audio, cfg.PollInterval, log, met)
	poller.OnChange(func(running bool) {
		events.Publish(eventlog.Event{Kind: eventlog.ServerStatusChanged, Running: running})
		if running {
			refreshCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			model.Refresh(refreshCtx)
		}
	})
	go poller.Run(ctx)

	mon := monitor.New(model, ctrl, events, log, met, cfg.MonitorTick, monitor.DefaultSettle)
	go mon.Run(ctx)

	deviceProvider := devices.NewProcProvider()
	go watchDevices(ctx, deviceProvider, events, log)

	eng := &engine{
		audio:    audio,
		ctrl:     ctrl,
		profiles: profiles,
		devices:  deviceProvider,
		launch:   launch,
		model:    model,
		crit:     crit,
	}

	if !testMode {
		auth, err := ipcauth.Open(ipcauth.DefaultSecretPath())
		if err != nil {
			return err
		}
		ipcServer := ipc.NewServer(eng, events, auth, log)
		if err := ipcServer.Listen(cfg.SocketPath); err != nil {
			return err
		}
		lifecycle.Register("ipc", func(context.Context) error { return ipcServer.Close() })
		go ipcServer.Serve(ctx)
	} else {
		log.Info("test mode: IPC surface not published")
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(met.PrometheusRegistry(), promhttp.HandlerOpts{}))
		if schema, err := graphqlapi.NewSchema(model, crit); err == nil {
			mux.Handle("/graphql", graphqlapi.Handler(schema))
		} else {
			log.Warn("graphql schema unavailable", logging.Error(err))
		}
		httpServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		lifecycle.Register("debug-http", func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		})
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn("debug http server failed", logging.Error(err))
			}
		}()
	}

	lifecycle.Register("audio", func(context.Context) error { return audio.Close() })
	lifecycle.SetReloadFunc(func() error {
		newCfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		log.SetLevel(logging.ParseLevel(newCfg.LogLevel))
		return nil
	})

	// Activate the default profile so the daemon comes up protecting a
	// chain rather than idle.
	if err := ctrl.LoadProfile(ctx, profile.DefaultProfileName); err != nil {
		log.Warn("initial profile activation failed", logging.Error(err))
	}

	lifecycle.Run(10 * time.Second)
	return nil
}

// watchDevices polls the kernel's device list on a slow cadence and
// publishes a change event when cards come or go, so the desktop panel
// can refresh its device picker.
func watchDevices(ctx context.Context, provider devices.Provider, events *eventlog.Log, log logging.Logger) {
	fingerprint := func() string {
		devs, err := provider.Scan(ctx)
		if err != nil {
			return ""
		}
		var b []byte
		for _, d := range devs {
			b = fmt.Appendf(b, "%d:%s;", d.CardID, d.StableID)
		}
		return string(b)
	}

	last := fingerprint()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current := fingerprint()
			if current != last {
				last = current
				log.Info("sound device list changed")
				events.Publish(eventlog.Event{Kind: eventlog.DeviceListChanged})
			}
		}
	}
}
