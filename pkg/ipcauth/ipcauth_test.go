package ipcauth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ipc-secret")
	m, err := Open(path)
	require.NoError(t, err)

	token, err := m.Issue("rdx-jackctl")
	require.NoError(t, err)

	peer, err := m.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "rdx-jackctl", peer)
}

func TestSecretFileCreatedWithTightPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ipc-secret")
	_, err := Open(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	m1, err := Open(filepath.Join(t.TempDir(), "ipc-secret"))
	require.NoError(t, err)
	m2, err := Open(filepath.Join(t.TempDir(), "ipc-secret"))
	require.NoError(t, err)

	token, err := m1.Issue("sneaky")
	require.NoError(t, err)

	_, err = m2.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m, err := Open(filepath.Join(t.TempDir(), "ipc-secret"))
	require.NoError(t, err)

	_, err = m.Verify("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSameFileYieldsSameKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ipc-secret")
	m1, err := Open(path)
	require.NoError(t, err)
	m2, err := Open(path)
	require.NoError(t, err)

	token, err := m1.Issue("rdx-graph-monitor")
	require.NoError(t, err)
	peer, err := m2.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "rdx-graph-monitor", peer)
}
