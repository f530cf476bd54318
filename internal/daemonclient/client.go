// Package daemonclient is the CLI-side half of the IPC protocol
// defined in internal/ipc: it dials a running daemon's socket, frames
// one request/response per line, and knows how to find or start the
// daemon for a named session in the first place.
package daemonclient

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"runtime"
	"time"

	"github.com/rcarmo/agent-rdp/internal/ipc"
)

// Client is a single connection to a running agent-rdpd daemon.
type Client struct {
	conn net.Conn
	r    *bufio.Reader
}

// Dial connects to the daemon serving sessionName under base. On
// Windows it dials the TCP port derived from ipc.SessionPort; every
// other platform dials the Unix-domain socket directly.
func Dial(base, sessionName string) (*Client, error) {
	var (
		conn net.Conn
		err  error
	)
	if runtime.GOOS == "windows" {
		addr := fmt.Sprintf("127.0.0.1:%d", ipc.SessionPort(sessionName))
		conn, err = net.DialTimeout("tcp", addr, 2*time.Second)
	} else {
		conn, err = net.DialTimeout("unix", ipc.SocketPath(base, sessionName), 2*time.Second)
	}
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, r: bufio.NewReader(conn)}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Send writes req as a single JSON line and waits up to timeout for
// the daemon's response line.
func (c *Client) Send(req *ipc.Request, timeout time.Duration) (*ipc.Response, error) {
	if err := c.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	defer c.conn.SetDeadline(time.Time{})

	line, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("daemonclient: encode request: %w", err)
	}
	line = append(line, '\n')
	if _, err := c.conn.Write(line); err != nil {
		return nil, fmt.Errorf("daemonclient: write request: %w", err)
	}

	respLine, err := c.r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("daemonclient: read response: %w", err)
	}

	var resp ipc.Response
	if err := json.Unmarshal(respLine, &resp); err != nil {
		return nil, fmt.Errorf("daemonclient: decode response: %w", err)
	}
	return &resp, nil
}

// Ping sends a ping request and reports whether the daemon answered
// with success within timeout.
func (c *Client) Ping(timeout time.Duration) bool {
	resp, err := c.Send(&ipc.Request{Type: "ping"}, timeout)
	return err == nil && resp.Success
}
