package daemonclient

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rcarmo/agent-rdp/internal/ipc"
)

// Manager owns daemon discovery and lifecycle for one named session:
// it knows whether a daemon is already running, spawns one if not,
// and hands back a connected Client either way.
type Manager struct {
	Session string
	BaseDir string
}

// NewManager builds a Manager for sessionName rooted at baseDir.
func NewManager(sessionName, baseDir string) *Manager {
	return &Manager{Session: sessionName, BaseDir: baseDir}
}

// IsDaemonAlive reports whether the session's pid file names a live
// process. A stale pid file (process gone) is cleaned up as a side
// effect, mirroring the reference daemon's own self-healing on the
// next connect.
func (m *Manager) IsDaemonAlive() bool {
	pidPath := ipc.PidPath(m.BaseDir, m.Session)

	raw, err := os.ReadFile(pidPath)
	if err != nil {
		return false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		m.cleanupStale()
		return false
	}

	if !processAlive(pid) {
		m.cleanupStale()
		return false
	}
	return true
}

func (m *Manager) cleanupStale() {
	ipc.Cleanup(m.BaseDir, m.Session)
}

// EnsureDaemon returns a Client connected to a healthy daemon for this
// session, starting one via os/exec if none is running or the one on
// disk turns out to be unresponsive.
func (m *Manager) EnsureDaemon(spawnTimeout time.Duration) (*Client, error) {
	if m.IsDaemonAlive() {
		if client, err := Dial(m.BaseDir, m.Session); err == nil {
			if client.Ping(2 * time.Second) {
				return client, nil
			}
			client.Close()
		}
		m.cleanupStale()
	}

	if err := m.spawnDaemon(); err != nil {
		return nil, fmt.Errorf("daemonclient: start daemon: %w", err)
	}
	return m.waitForDaemon(spawnTimeout)
}

// spawnDaemon execs the agent-rdpd binary as a detached background
// process for this session. It is looked up next to the running
// agent-rdp executable first, falling back to $PATH, since the two
// are shipped as sibling binaries rather than one binary with a
// hidden subcommand.
func (m *Manager) spawnDaemon() error {
	exe, err := daemonExecutablePath()
	if err != nil {
		return err
	}

	cmd := exec.Command(exe, "-session", m.Session, "-base-dir", m.BaseDir)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	detach(cmd)

	return cmd.Start()
}

func daemonExecutablePath() (string, error) {
	const daemonName = "agent-rdpd"

	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), daemonName)
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate, nil
		}
	}

	return exec.LookPath(daemonName)
}

// waitForDaemon polls the session socket with ping until it answers
// or timeout elapses.
func (m *Manager) waitForDaemon(timeout time.Duration) (*Client, error) {
	deadline := time.Now().Add(timeout)
	const pollInterval = 100 * time.Millisecond

	for time.Now().Before(deadline) {
		client, err := Dial(m.BaseDir, m.Session)
		if err == nil {
			if client.Ping(2 * time.Second) {
				return client, nil
			}
			client.Close()
		}
		time.Sleep(pollInterval)
	}

	return nil, fmt.Errorf("daemonclient: daemon did not become ready within %s", timeout)
}

// ListSessions returns the names of every session with a pid file
// under baseDir, alive or not.
func ListSessions(baseDir string) []string {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil
	}

	var sessions []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(ipc.PidPath(baseDir, entry.Name())); err == nil {
			sessions = append(sessions, entry.Name())
		}
	}
	return sessions
}
