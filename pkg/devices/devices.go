// Package devices enumerates the host's sound devices for the scan and
// device-selection surfaces. The kernel sound layer is an opaque
// provider; the default implementation reads the procfs view ALSA
// exposes, and tests substitute a static provider.
package devices

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DeviceType distinguishes a physical interface from a software or
// bridge client.
type DeviceType string

const (
	TypeInterface DeviceType = "interface"
	TypeSoftware  DeviceType = "software"
	TypeBridge    DeviceType = "bridge"
)

// Device is one enumerated sound device.
type Device struct {
	// CardID is the kernel card number.
	CardID int
	// Name is the human-readable card name.
	Name string
	// StableID is the kernel's short identifier, usable in config.
	StableID string
	// ALSAName is the hw:N address clients open.
	ALSAName string
	// Inputs and Outputs are capture/playback channel counts, derived
	// from the card's PCM substreams.
	Inputs  int
	Outputs int
	// Type classifies the device.
	Type DeviceType
	// Active reports whether the card currently has an open stream.
	Active bool
}

// HasPlayback reports whether the device can play audio.
func (d Device) HasPlayback() bool { return d.Outputs > 0 }

// HasCapture reports whether the device can record audio.
func (d Device) HasCapture() bool { return d.Inputs > 0 }

// Provider enumerates devices.
type Provider interface {
	Scan(ctx context.Context) ([]Device, error)
}

// StaticProvider serves a fixed device list; tests use it.
type StaticProvider struct {
	Devices []Device
}

// Scan implements Provider.
func (s *StaticProvider) Scan(ctx context.Context) ([]Device, error) {
	out := make([]Device, len(s.Devices))
	copy(out, s.Devices)
	return out, nil
}

// ProcProvider reads the procfs sound hierarchy.
type ProcProvider struct {
	// Root is the procfs sound directory, /proc/asound by default.
	// Tests point it at a fixture tree.
	Root string
}

// NewProcProvider creates a provider over /proc/asound.
func NewProcProvider() *ProcProvider {
	return &ProcProvider{Root: "/proc/asound"}
}

// cardLine matches entries in the cards file, e.g.
// " 0 [PCH            ]: HDA-Intel - HDA Intel PCH"
var cardLine = regexp.MustCompile(`^\s*(\d+)\s+\[(\S+)\s*\]:\s+(\S+)\s+-\s+(.*)$`)

// Scan implements Provider.
func (p *ProcProvider) Scan(ctx context.Context) ([]Device, error) {
	data, err := os.ReadFile(filepath.Join(p.Root, "cards"))
	if err != nil {
		return nil, fmt.Errorf("read sound cards: %w", err)
	}

	var devices []Device
	for _, line := range strings.Split(string(data), "\n") {
		m := cardLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		var id int
		fmt.Sscanf(m[1], "%d", &id)

		d := Device{
			CardID:   id,
			StableID: m[2],
			Name:     strings.TrimSpace(m[4]),
			ALSAName: fmt.Sprintf("hw:%d", id),
			Type:     classify(m[3]),
		}
		d.Outputs = p.countStreams(id, "p")
		d.Inputs = p.countStreams(id, "c")
		d.Active = p.cardActive(id)
		devices = append(devices, d)
	}
	return devices, nil
}

// classify maps the driver token onto a device type.
func classify(driver string) DeviceType {
	d := strings.ToLower(driver)
	switch {
	case strings.Contains(d, "loopback"), strings.Contains(d, "dummy"):
		return TypeSoftware
	case strings.Contains(d, "usb"), strings.Contains(d, "hda"), strings.Contains(d, "intel"):
		return TypeInterface
	default:
		return TypeBridge
	}
}

// countStreams counts the card's PCM substreams of one direction by the
// pcm*p / pcm*c directory convention.
func (p *ProcProvider) countStreams(card int, dir string) int {
	pattern := filepath.Join(p.Root, fmt.Sprintf("card%d", card), "pcm*"+dir)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return 0
	}
	count := 0
	for _, m := range matches {
		subs, err := filepath.Glob(filepath.Join(m, "sub*"))
		if err != nil || len(subs) == 0 {
			count++
			continue
		}
		count += len(subs)
	}
	return count
}

// cardActive checks whether any substream reports state RUNNING.
func (p *ProcProvider) cardActive(card int) bool {
	pattern := filepath.Join(p.Root, fmt.Sprintf("card%d", card), "pcm*", "sub*", "status")
	matches, _ := filepath.Glob(pattern)
	for _, m := range matches {
		data, err := os.ReadFile(m)
		if err != nil {
			continue
		}
		if strings.Contains(string(data), "RUNNING") {
			return true
		}
	}
	return false
}
