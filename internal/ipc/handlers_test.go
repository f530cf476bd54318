package ipc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle_Ping(t *testing.T) {
	d := NewDispatcher("default", nil)
	resp := d.Handle(&Request{Type: "ping"})
	require.True(t, resp.Success)
	assert.Equal(t, true, resp.Data["pong"])
}

func TestHandle_UnknownType(t *testing.T) {
	d := NewDispatcher("default", nil)
	resp := d.Handle(&Request{Type: "levitate"})
	require.False(t, resp.Success)
	assert.Equal(t, ErrInvalidRequest, resp.Error.Code)
}

func TestHandle_NotConnectedErrors(t *testing.T) {
	d := NewDispatcher("default", nil)

	cases := []*Request{
		{Type: "screenshot"},
		{Type: "mouse", Action: "move"},
		{Type: "keyboard", Action: "type", Text: "hi"},
		{Type: "scroll", Direction: "up", Amount: 1},
		{Type: "clipboard", Action: "get"},
	}
	for _, req := range cases {
		resp := d.Handle(req)
		require.False(t, resp.Success, "request %q should fail", req.Type)
		assert.Equal(t, ErrNotConnected, resp.Error.Code)
	}
}

func TestHandle_Disconnect_NoSessionIsOk(t *testing.T) {
	d := NewDispatcher("default", nil)
	resp := d.Handle(&Request{Type: "disconnect"})
	assert.True(t, resp.Success)
}

func TestHandle_DriveList_Empty(t *testing.T) {
	d := NewDispatcher("default", nil)
	resp := d.Handle(&Request{Type: "drive", Action: "list"})
	require.True(t, resp.Success)
	assert.Empty(t, resp.Data["drives"])
}

func TestHandle_DriveList_UnknownAction(t *testing.T) {
	d := NewDispatcher("default", nil)
	resp := d.Handle(&Request{Type: "drive", Action: "unmap"})
	require.False(t, resp.Success)
	assert.Equal(t, ErrInvalidRequest, resp.Error.Code)
}

func TestHandle_SessionInfo_Disconnected(t *testing.T) {
	d := NewDispatcher("my-session", nil)
	resp := d.Handle(&Request{Type: "session_info"})
	require.True(t, resp.Success)
	assert.Equal(t, "my-session", resp.Data["name"])
	assert.Equal(t, "disconnected", resp.Data["state"])
	assert.NotContains(t, resp.Data, "host")
}

func TestHandle_Shutdown_ClosesChannel(t *testing.T) {
	d := NewDispatcher("default", nil)
	resp := d.Handle(&Request{Type: "shutdown"})
	assert.True(t, resp.Success)

	select {
	case <-d.Shutdown():
	default:
		t.Fatal("expected shutdown channel to be closed")
	}

	// Idempotent: a second shutdown request must not panic on a
	// double close.
	resp2 := d.Handle(&Request{Type: "shutdown"})
	assert.True(t, resp2.Success)
}

func TestHandle_Keyboard_NotConnectedTakesPriorityOverBadAction(t *testing.T) {
	d := NewDispatcher("default", nil)
	// activeSession is checked before the action switch, so an
	// unrecognised action on a disconnected dispatcher still reports
	// not_connected rather than invalid_request.
	resp := d.Handle(&Request{Type: "keyboard", Action: "wiggle"})
	require.False(t, resp.Success)
	assert.Equal(t, ErrNotConnected, resp.Error.Code)
}
