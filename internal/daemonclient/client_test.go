package daemonclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/agent-rdp/internal/ipc"
)

func TestDialAndSend_RoundTrip(t *testing.T) {
	base := t.TempDir()
	ln, err := ipc.Listen(base, "round-trip")
	require.NoError(t, err)
	defer ln.Close()

	d := ipc.NewDispatcher("round-trip", nil)
	go ipc.Serve(ln, d)

	client, err := Dial(base, "round-trip")
	require.NoError(t, err)
	defer client.Close()

	assert.True(t, client.Ping(2*time.Second))

	resp, err := client.Send(&ipc.Request{Type: "session_info"}, 2*time.Second)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "round-trip", resp.Data["name"])
}

func TestDial_NoDaemonFails(t *testing.T) {
	_, err := Dial(t.TempDir(), "nonexistent")
	assert.Error(t, err)
}
