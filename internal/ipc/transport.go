package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/rcarmo/agent-rdp/internal/logging"
)

// SessionDir returns the persisted-state directory for one named
// session under base, per spec.md §6: "<base>/<session>/{pid,socket}".
func SessionDir(base, sessionName string) string {
	return filepath.Join(base, sessionName)
}

// PidPath returns the path to the session's pid file.
func PidPath(base, sessionName string) string {
	return filepath.Join(SessionDir(base, sessionName), "pid")
}

// SocketPath returns the path to the session's Unix-domain socket (not
// used on Windows, where SessionPort's TCP port is authoritative).
func SocketPath(base, sessionName string) string {
	return filepath.Join(SessionDir(base, sessionName), "socket")
}

// SessionPort derives the Windows TCP fallback port from a session
// name: 49152 + hash(name) mod 16384, the same ephemeral-range mapping
// the reference daemon uses for its named-pipe-less platform.
func SessionPort(sessionName string) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(sessionName))
	return 49152 + int(h.Sum64()%16384)
}

// Listen binds the transport for sessionName under base: a Unix-domain
// socket everywhere but Windows, where it falls back to a loopback TCP
// port derived from SessionPort. It also writes the pid file callers
// poll for liveness.
func Listen(base, sessionName string) (net.Listener, error) {
	dir := SessionDir(base, sessionName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("ipc: create session dir: %w", err)
	}

	if err := os.WriteFile(PidPath(base, sessionName), []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return nil, fmt.Errorf("ipc: write pid file: %w", err)
	}

	if runtime.GOOS == "windows" {
		port := SessionPort(sessionName)
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			return nil, fmt.Errorf("ipc: listen tcp: %w", err)
		}
		return ln, nil
	}

	sock := SocketPath(base, sessionName)
	_ = os.Remove(sock)
	ln, err := net.Listen("unix", sock)
	if err != nil {
		return nil, fmt.Errorf("ipc: listen unix: %w", err)
	}
	return ln, nil
}

// Cleanup removes the session's persisted-state directory. Callers
// invoke it after the listener is closed, on the way out of Serve.
func Cleanup(base, sessionName string) {
	if err := os.RemoveAll(SessionDir(base, sessionName)); err != nil {
		logging.Warn("ipc: cleanup %s: %v", sessionName, err)
	}
}

// Serve accepts connections on ln until ln is closed, handling each
// connection's line-delimited JSON
// requests with d.Handle. It returns once ln.Accept starts failing,
// which happens when the listener is closed by the caller.
func Serve(ln net.Listener, d *Dispatcher) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-d.Shutdown():
				return
			default:
				logging.Warn("ipc: accept: %v", err)
				return
			}
		}
		go serveConn(conn, d)
	}
}

func serveConn(conn net.Conn, d *Dispatcher) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			_ = enc.Encode(fail(New(ErrInvalidRequest, "malformed request: %v", err)))
			continue
		}

		resp := d.Handle(&req)
		if err := enc.Encode(resp); err != nil {
			logging.Warn("ipc: write response: %v", err)
			return
		}

		select {
		case <-d.Shutdown():
			return
		default:
		}
	}
}
