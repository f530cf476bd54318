package ipc

import (
	"errors"
	"fmt"

	"github.com/rcarmo/agent-rdp/internal/session"
)

// ErrorCode is the closed error-code enum every IPC response's error
// field is drawn from.
type ErrorCode string

const (
	ErrNotConnected         ErrorCode = "not_connected"
	ErrAlreadyConnected     ErrorCode = "already_connected"
	ErrConnectionFailed     ErrorCode = "connection_failed"
	ErrAuthenticationFailed ErrorCode = "authentication_failed"
	ErrTimeout              ErrorCode = "timeout"
	ErrInvalidRequest       ErrorCode = "invalid_request"
	ErrNotSupported         ErrorCode = "not_supported"
	ErrInternalError        ErrorCode = "internal_error"
	ErrSessionNotFound      ErrorCode = "session_not_found"
	ErrIPCError             ErrorCode = "ipc_error"
	ErrDaemonNotRunning     ErrorCode = "daemon_not_running"
	ErrClipboardError       ErrorCode = "clipboard_error"
	ErrDriveError           ErrorCode = "drive_error"
	ErrAutomationNotEnabled ErrorCode = "automation_not_enabled"
	ErrAutomationError      ErrorCode = "automation_error"
	ErrElementNotFound      ErrorCode = "element_not_found"
	ErrStaleRef             ErrorCode = "stale_ref"
	ErrCommandFailed        ErrorCode = "command_failed"
)

// Error is the structured error every failing IPC response carries.
// It implements the standard error interface so it composes with
// fmt.Errorf's %w the same way the teacher's protocol errors do.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New builds an *Error from a code and a formatted message.
func New(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// classify maps a session/library error onto the §7 taxonomy via
// errors.Is, keeping internal/session ignorant of the wire enum.
func classify(err error) *Error {
	if err == nil {
		return nil
	}

	var ipcErr *Error
	if errors.As(err, &ipcErr) {
		return ipcErr
	}

	switch {
	case errors.Is(err, session.ErrNotConnected), errors.Is(err, session.ErrShuttingDown):
		return New(ErrNotConnected, "%v", err)
	case errors.Is(err, session.ErrAlreadyConnected):
		return New(ErrAlreadyConnected, "%v", err)
	case errors.Is(err, session.ErrConnectionFailed):
		return New(ErrConnectionFailed, "%v", err)
	case errors.Is(err, session.ErrAuthenticationFailed):
		return New(ErrAuthenticationFailed, "%v", err)
	case errors.Is(err, session.ErrTimeout):
		return New(ErrTimeout, "%v", err)
	case errors.Is(err, session.ErrNotSupported):
		return New(ErrNotSupported, "%v", err)
	case errors.Is(err, session.ErrClipboardError):
		return New(ErrClipboardError, "%v", err)
	case errors.Is(err, session.ErrDriveError):
		return New(ErrDriveError, "%v", err)
	case errors.Is(err, session.ErrAutomationNotEnabled):
		return New(ErrAutomationNotEnabled, "%v", err)
	case errors.Is(err, session.ErrAutomationError):
		return New(ErrAutomationError, "%v", err)
	default:
		return New(ErrInternalError, "%v", err)
	}
}
