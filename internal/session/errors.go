package session

import "errors"

// Sentinel errors for the taxonomy spec.md §7 names. internal/ipc maps
// these (via errors.Is) onto the wire error codes it sends back to CLI
// callers; the session package itself never talks IPC.
var (
	ErrNotConnected         = errors.New("session: not connected")
	ErrAlreadyConnected     = errors.New("session: already connected")
	ErrConnectionFailed     = errors.New("session: connection failed")
	ErrAuthenticationFailed = errors.New("session: authentication failed")
	ErrTimeout              = errors.New("session: timed out")
	ErrNotSupported         = errors.New("session: not supported")
	ErrClipboardError       = errors.New("session: clipboard error")
	ErrDriveError           = errors.New("session: drive error")
	ErrAutomationNotEnabled = errors.New("session: automation not enabled")
	ErrAutomationError      = errors.New("session: automation error")
	ErrShuttingDown         = errors.New("session: shutting down")
)
