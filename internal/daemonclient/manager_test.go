package daemonclient

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/agent-rdp/internal/ipc"
)

func TestIsDaemonAlive_NoPidFile(t *testing.T) {
	mgr := NewManager("missing", t.TempDir())
	assert.False(t, mgr.IsDaemonAlive())
}

func TestIsDaemonAlive_StalePidCleansUp(t *testing.T) {
	base := t.TempDir()
	dir := ipc.SessionDir(base, "stale")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(ipc.PidPath(base, "stale"), []byte("999999999"), 0o600))

	mgr := NewManager("stale", base)
	assert.False(t, mgr.IsDaemonAlive())

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestIsDaemonAlive_OwnPidIsAlive(t *testing.T) {
	base := t.TempDir()
	dir := ipc.SessionDir(base, "self")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(ipc.PidPath(base, "self"), []byte(strconv.Itoa(os.Getpid())), 0o600))

	mgr := NewManager("self", base)
	assert.True(t, mgr.IsDaemonAlive())
}

func TestListSessions_OnlyReturnsDirsWithPidFile(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(ipc.SessionDir(base, "with-pid"), 0o700))
	require.NoError(t, os.WriteFile(ipc.PidPath(base, "with-pid"), []byte("1"), 0o600))
	require.NoError(t, os.MkdirAll(ipc.SessionDir(base, "without-pid"), 0o700))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "not-even-a-session-dir"), 0o700))

	sessions := ListSessions(base)
	assert.Equal(t, []string{"with-pid"}, sessions)
}
