package profile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anjeleno/rdx-rivendell/pkg/logging"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jack-profiles.xml")
	s, err := Open(path, logging.NewNopLogger())
	require.NoError(t, err)
	return s, path
}

func TestFirstRunSeedsDefaults(t *testing.T) {
	s, path := openTestStore(t)

	names := s.Names()
	require.Equal(t, []string{DefaultProfileName, LiveBroadcastProfileName}, names)

	def, err := s.Get(DefaultProfileName)
	require.NoError(t, err)
	require.True(t, def.AutoActivate)
	require.Empty(t, def.Connections)

	live, err := s.Get(LiveBroadcastProfileName)
	require.NoError(t, err)
	require.Equal(t, "stereo_tool:in_1", live.Connections["rivendell_0:playout_0L"])
	require.Equal(t, 60, live.PriorityOf("liquidsoap"))
	require.Equal(t, 0, live.PriorityOf("nobody"))

	// The seed must have hit the disk.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestSaveThenReopen(t *testing.T) {
	s, path := openTestStore(t)

	p := &Profile{
		Name:         "studio-b",
		Description:  "Secondary studio feed",
		AutoActivate: false,
		AutoClients:  []string{"stereo_tool"},
		Priorities:   map[string]int{"vlc_media_player": 80},
		Connections:  map[string]string{"system:capture_1": "rivendell_0:record_0L"},
	}
	require.NoError(t, s.Save(p))

	reopened, err := Open(path, logging.NewNopLogger())
	require.NoError(t, err)
	got, err := reopened.Get("studio-b")
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestGetUnknownProfile(t *testing.T) {
	s, _ := openTestStore(t)
	_, err := s.Get("missing")
	require.True(t, errors.Is(err, ErrUnknownProfile))
}

func TestDeleteProtectsDefault(t *testing.T) {
	s, _ := openTestStore(t)

	require.ErrorIs(t, s.Delete(DefaultProfileName), ErrProtectedProfile)
	require.NoError(t, s.Delete(LiveBroadcastProfileName))
	require.ErrorIs(t, s.Delete(LiveBroadcastProfileName), ErrUnknownProfile)
}

func TestSaveRejectsInvalidProfile(t *testing.T) {
	s, _ := openTestStore(t)
	require.Error(t, s.Save(&Profile{Name: ""}))
}

func TestMutationsDoNotLeakIntoStore(t *testing.T) {
	s, _ := openTestStore(t)

	p, err := s.Get(LiveBroadcastProfileName)
	require.NoError(t, err)
	p.Priorities["liquidsoap"] = 1

	again, err := s.Get(LiveBroadcastProfileName)
	require.NoError(t, err)
	require.Equal(t, 60, again.PriorityOf("liquidsoap"))
}
