// rdx-jackctl is the command-line helper for the routing daemon. By
// default it speaks to rdx-jackd over the IPC socket; with -t it drives
// a local, in-process engine and publishes nothing.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/anjeleno/rdx-rivendell/pkg/config"
	"github.com/anjeleno/rdx-rivendell/pkg/ipc"
)

const version = "1.2.0"

type options struct {
	scan         bool
	listProfiles bool
	profileName  string
	listSources  bool
	switchInput  string
	disconnect   string
	testMode     bool
	showVersion  bool
}

func parseFlags() options {
	var o options
	flag.BoolVar(&o.scan, "s", false, "Print device list and server status")
	flag.BoolVar(&o.scan, "scan", false, "Print device list and server status")
	flag.BoolVar(&o.listProfiles, "l", false, "Print profile names and attributes")
	flag.BoolVar(&o.listProfiles, "list-profiles", false, "Print profile names and attributes")
	flag.StringVar(&o.profileName, "p", "", "Activate the named profile")
	flag.StringVar(&o.profileName, "profile", "", "Activate the named profile")
	flag.BoolVar(&o.listSources, "ls", false, "Print enumerated input sources")
	flag.BoolVar(&o.listSources, "list-sources", false, "Print enumerated input sources")
	flag.StringVar(&o.switchInput, "i", "", "Switch the source host's input to the named client")
	flag.StringVar(&o.switchInput, "switch-input", "", "Switch the source host's input to the named client")
	flag.StringVar(&o.disconnect, "d", "", "Disconnect all non-critical edges of the named client")
	flag.StringVar(&o.disconnect, "disconnect", "", "Disconnect all non-critical edges of the named client")
	flag.BoolVar(&o.testMode, "t", false, "Run against a local in-process engine (no IPC)")
	flag.BoolVar(&o.testMode, "test", false, "Run against a local in-process engine (no IPC)")
	flag.BoolVar(&o.showVersion, "version", false, "Print version and exit")
	flag.Parse()
	return o
}

func main() {
	o := parseFlags()

	if o.showVersion {
		fmt.Printf("rdx-jackctl %s\n", version)
		return
	}

	cfg, err := config.Load(config.Path())
	if err != nil {
		fail(err)
	}

	var be backend
	if o.testMode {
		be, err = newLocalBackend(cfg)
	} else {
		be, err = newIPCBackend(cfg)
	}
	if err != nil {
		fail(err)
	}
	defer be.Close()

	switch {
	case o.scan:
		exit(runScan(be))
	case o.listProfiles:
		exit(runListProfiles(be))
	case o.profileName != "":
		exit(runActivate(be, o.profileName, cfg.SettleDelay))
	case o.listSources:
		exit(runListSources(be))
	case o.switchInput != "":
		exit(runSwitchInput(be, o.switchInput))
	case o.disconnect != "":
		exit(runDisconnect(be, o.disconnect))
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func runScan(be backend) error {
	devs, err := be.Scan()
	if err != nil {
		return err
	}
	running, err := be.IsRunning()
	if err != nil {
		return err
	}

	fmt.Printf("Audio server: %s\n\n", onOff(running))
	if len(devs) == 0 {
		fmt.Println("No sound devices found.")
		return nil
	}
	fmt.Printf("%-4s %-28s %-12s %-4s %-4s %-10s %s\n", "CARD", "NAME", "ID", "IN", "OUT", "TYPE", "ACTIVE")
	for _, d := range devs {
		fmt.Printf("%-4d %-28s %-12s %-4d %-4d %-10s %v\n",
			d.CardID, truncate(d.Name, 28), d.StableID, d.Inputs, d.Outputs, d.Type, d.Active)
	}
	return nil
}

func runListProfiles(be backend) error {
	profiles, err := be.Profiles()
	if err != nil {
		return err
	}
	for _, p := range profiles {
		fmt.Printf("%s\n", p.Name)
		if p.Description != "" {
			fmt.Printf("    %s\n", p.Description)
		}
		fmt.Printf("    auto_activate: %v\n", p.AutoActivate)
		if len(p.AutoClients) > 0 {
			fmt.Printf("    auto_clients:  %v\n", p.AutoClients)
		}
		for client, prio := range p.Priorities {
			fmt.Printf("    priority:      %s = %d\n", client, prio)
		}
		for src, dst := range p.Connections {
			fmt.Printf("    edge:          %s -> %s\n", src, dst)
		}
	}
	return nil
}

func runActivate(be backend, name string, settle time.Duration) error {
	if err := be.LoadProfile(name); err != nil {
		return err
	}
	fmt.Printf("Profile %q activated; waiting %s for the chain to settle...\n", name, settle)
	time.Sleep(settle + 500*time.Millisecond)

	status, err := be.Status()
	if err != nil {
		return err
	}
	fmt.Printf("Audio server: %s\n", onOff(status.ServerRunning))
	fmt.Printf("Profile:      %s\n", status.CurrentProfile)
	if status.ActiveInput != "" {
		fmt.Printf("Input:        %s\n", status.ActiveInput)
	}
	return runScan(be)
}

func runListSources(be backend) error {
	status, err := be.Status()
	if err != nil {
		return err
	}
	for _, name := range status.InputSources {
		marker := " "
		if name == status.ActiveInput {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, name)
	}
	return nil
}

func runSwitchInput(be backend, name string) error {
	if err := be.SwitchInput(name); err != nil {
		return err
	}
	fmt.Printf("Input switched to %s\n", name)
	return nil
}

func runDisconnect(be backend, name string) error {
	if err := be.DisconnectAll(name); err != nil {
		return err
	}
	fmt.Printf("Disconnected all non-critical edges of %s\n", name)
	return nil
}

func onOff(running bool) string {
	if running {
		return "running"
	}
	return "stopped"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "rdx-jackctl: %v\n", err)
	os.Exit(1)
}

func exit(err error) {
	if err != nil {
		fail(err)
	}
	os.Exit(0)
}

// backend abstracts where the engine lives: behind the daemon's socket,
// or in-process for the local-only mode.
type backend interface {
	Scan() ([]ipc.DeviceInfo, error)
	IsRunning() (bool, error)
	Profiles() ([]ipc.ProfileInfo, error)
	LoadProfile(name string) error
	Status() (ipc.StatusInfo, error)
	SwitchInput(source string) error
	DisconnectAll(client string) error
	Close() error
}
