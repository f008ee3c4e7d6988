package devices

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeFixtureTree lays out a procfs-shaped sound hierarchy with one HDA
// card (playback + capture) and one loopback card.
func writeFixtureTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	cards := ` 0 [PCH            ]: HDA-Intel - HDA Intel PCH
                      HDA Intel PCH at 0xf1234000 irq 31
 1 [Loopback       ]: Loopback - Loopback
                      Loopback 1
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "cards"), []byte(cards), 0o644))

	for _, dir := range []string{
		"card0/pcm0p/sub0",
		"card0/pcm0c/sub0",
		"card1/pcm0p/sub0",
	} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}
	status := "state: RUNNING\nowner_pid: 123\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "card0/pcm0p/sub0/status"), []byte(status), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "card1/pcm0p/sub0/status"), []byte("closed\n"), 0o644))
	return root
}

func TestProcProviderScan(t *testing.T) {
	p := &ProcProvider{Root: writeFixtureTree(t)}

	devs, err := p.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, devs, 2)

	hda := devs[0]
	require.Equal(t, 0, hda.CardID)
	require.Equal(t, "PCH", hda.StableID)
	require.Equal(t, "HDA Intel PCH", hda.Name)
	require.Equal(t, "hw:0", hda.ALSAName)
	require.Equal(t, TypeInterface, hda.Type)
	require.True(t, hda.HasPlayback())
	require.True(t, hda.HasCapture())
	require.True(t, hda.Active)

	loop := devs[1]
	require.Equal(t, 1, loop.CardID)
	require.Equal(t, TypeSoftware, loop.Type)
	require.True(t, loop.HasPlayback())
	require.False(t, loop.HasCapture())
	require.False(t, loop.Active)
}

func TestStaticProviderCopies(t *testing.T) {
	p := &StaticProvider{Devices: []Device{{CardID: 3, Name: "USB Audio"}}}

	devs, err := p.Scan(context.Background())
	require.NoError(t, err)
	devs[0].Name = "mutated"

	again, err := p.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, "USB Audio", again[0].Name)
}
