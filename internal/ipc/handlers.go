package ipc

import (
	"os"
	"sync"
	"time"

	"github.com/rcarmo/agent-rdp/internal/input"
	"github.com/rcarmo/agent-rdp/internal/ocr"
	"github.com/rcarmo/agent-rdp/internal/protocol/fastpath"
	"github.com/rcarmo/agent-rdp/internal/screenshot"
	"github.com/rcarmo/agent-rdp/internal/session"
)

// Dispatcher turns one line-framed Request into a Response. A
// Dispatcher owns at most one Session at a time: spec.md's daemon is
// one RDP connection per process, named by the session the CLI
// addressed when it auto-spawned this daemon.
type Dispatcher struct {
	mu          sync.Mutex
	sess        *session.Session
	sessionName string
	ocrEngine   ocr.Engine
	startedAt   time.Time

	host          string
	width, height uint16
	drives        []DriveMapping

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// NewDispatcher constructs a Dispatcher for one named session. ocrEngine
// may be nil; OCR requests then reply not_supported.
func NewDispatcher(sessionName string, ocrEngine ocr.Engine) *Dispatcher {
	return &Dispatcher{
		sessionName: sessionName,
		ocrEngine:   ocrEngine,
		startedAt:   time.Now(),
		shutdownCh:  make(chan struct{}),
	}
}

// Shutdown signals once the dispatcher has handled a `shutdown`
// request; cmd/agent-rdpd's serve loop selects on it to exit after the
// reply is flushed.
func (d *Dispatcher) Shutdown() <-chan struct{} {
	return d.shutdownCh
}

// Session exposes the live session (nil if not connected) so the
// viewer handler can attach to the same connection the CLI drives.
func (d *Dispatcher) Session() *session.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sess
}

// Handle dispatches one Request and returns its Response. It never
// panics: handler errors are converted to structured failures, per
// spec.md §7's "per-request errors are turned into structured replies
// without tearing the session down".
func (d *Dispatcher) Handle(req *Request) Response {
	switch req.Type {
	case "connect":
		return d.handleConnect(req)
	case "disconnect":
		return d.handleDisconnect()
	case "screenshot":
		return d.handleScreenshot(req)
	case "mouse":
		return d.handleMouse(req)
	case "keyboard":
		return d.handleKeyboard(req)
	case "scroll":
		return d.handleScroll(req)
	case "clipboard":
		return d.handleClipboard(req)
	case "drive":
		return d.handleDrive(req)
	case "ocr":
		return d.handleOCR(req)
	case "session_info":
		return d.handleSessionInfo()
	case "ping":
		return okWith(map[string]any{"pong": true})
	case "shutdown":
		d.shutdownOnce.Do(func() { close(d.shutdownCh) })
		return ok()
	default:
		return fail(New(ErrInvalidRequest, "unrecognised request type %q", req.Type))
	}
}

func (d *Dispatcher) activeSession() (*session.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sess == nil {
		return nil, session.ErrNotConnected
	}
	return d.sess, nil
}

func (d *Dispatcher) handleConnect(req *Request) Response {
	d.mu.Lock()
	if d.sess != nil && d.sess.Status() != session.StatusDisconnected {
		d.mu.Unlock()
		return fail(session.ErrAlreadyConnected)
	}
	d.mu.Unlock()

	drives := make([]session.DriveMapping, 0, len(req.Drives))
	for _, dm := range req.Drives {
		drives = append(drives, session.DriveMapping{Name: dm.Name, Path: dm.Path})
	}

	cfg := session.Config{
		Host:       req.Host,
		Port:       req.Port,
		Username:   req.Username,
		Password:   req.Password,
		Domain:     req.Domain,
		Width:      req.Width,
		Height:     req.Height,
		Drives:     drives,
		Automation: req.Automation,
	}

	sess, err := session.Connect(cfg)
	if err != nil {
		return fail(err)
	}

	width, height, _ := sess.Snapshot()

	d.mu.Lock()
	d.sess = sess
	d.host = req.Host
	d.width, d.height = width, height
	d.drives = req.Drives
	d.mu.Unlock()

	return okWith(map[string]any{
		"host":   req.Host,
		"width":  d.width,
		"height": d.height,
	})
}

func (d *Dispatcher) handleDisconnect() Response {
	d.mu.Lock()
	sess := d.sess
	d.sess = nil
	d.mu.Unlock()

	if sess == nil {
		return ok()
	}
	if err := sess.Shutdown(); err != nil {
		return fail(err)
	}
	return ok()
}

func (d *Dispatcher) handleScreenshot(req *Request) Response {
	sess, err := d.activeSession()
	if err != nil {
		return fail(err)
	}

	format := screenshot.Format(req.Format)
	if format == "" {
		format = screenshot.FormatPNG
	}

	width, height, rgba := sess.Snapshot()
	encoded, err := screenshot.EncodeBase64(format, width, height, rgba)
	if err != nil {
		return fail(New(ErrInternalError, "%v", err))
	}

	return okWith(map[string]any{
		"width":  width,
		"height": height,
		"format": string(format),
		"base64": encoded,
	})
}

// handleOCR recognises text in the current frame via the configured
// ocr.Engine. No engine is bundled (spec.md leaves the OCR service
// out of scope); a Dispatcher started without one reports
// not_supported rather than ever invoking a nil collaborator.
func (d *Dispatcher) handleOCR(req *Request) Response {
	if d.ocrEngine == nil {
		return fail(New(ErrNotSupported, "no OCR engine configured for this daemon"))
	}

	sess, err := d.activeSession()
	if err != nil {
		return fail(err)
	}

	width, height, rgba := sess.Snapshot()
	png, err := screenshot.Encode(screenshot.FormatPNG, width, height, rgba)
	if err != nil {
		return fail(New(ErrInternalError, "%v", err))
	}

	lines, err := d.ocrEngine.Recognize(png)
	if err != nil {
		return fail(New(ErrInternalError, "%v", err))
	}

	results := make([]map[string]any, 0, len(lines))
	for _, l := range lines {
		results = append(results, map[string]any{
			"text":   l.Text,
			"left":   l.Left,
			"top":    l.Top,
			"right":  l.Right,
			"bottom": l.Bottom,
			"center": map[string]any{"x": l.Center.X, "y": l.Center.Y},
		})
	}
	return okWith(map[string]any{"lines": results})
}

func (d *Dispatcher) handleMouse(req *Request) Response {
	sess, err := d.activeSession()
	if err != nil {
		return fail(err)
	}

	var steps []input.Step
	switch req.Action {
	case "move":
		steps = input.MouseMove(req.X, req.Y)
	case "click":
		steps = input.MouseClick(input.ButtonLeft, req.X, req.Y)
	case "right_click":
		steps = input.MouseClick(input.ButtonRight, req.X, req.Y)
	case "middle_click":
		steps = input.MouseClick(input.ButtonMiddle, req.X, req.Y)
	case "double_click":
		steps = input.MouseDoubleClick(buttonFromName(req.Button), req.X, req.Y)
	case "drag":
		steps = input.MouseDrag(buttonFromName(req.Button), req.FromX, req.FromY, req.ToX, req.ToY)
	case "button_down":
		steps = input.MouseButtonDown(buttonFromName(req.Button), req.X, req.Y)
	case "button_up":
		steps = input.MouseButtonUp(buttonFromName(req.Button), req.X, req.Y)
	default:
		return fail(New(ErrInvalidRequest, "unrecognised mouse action %q", req.Action))
	}

	if err := sendSteps(sess, steps); err != nil {
		return fail(err)
	}
	return ok()
}

func buttonFromName(name string) input.MouseButton {
	switch name {
	case "right":
		return input.ButtonRight
	case "middle":
		return input.ButtonMiddle
	default:
		return input.ButtonLeft
	}
}

func (d *Dispatcher) handleKeyboard(req *Request) Response {
	sess, err := d.activeSession()
	if err != nil {
		return fail(err)
	}

	var steps []input.Step
	switch req.Action {
	case "type":
		steps = input.TypeText(req.Text)
	case "press":
		steps, err = input.PressCombo(req.Keys)
	case "key_down":
		steps, err = input.KeyDown(req.Key)
	case "key_up":
		steps, err = input.KeyUp(req.Key)
	default:
		return fail(New(ErrInvalidRequest, "unrecognised keyboard action %q", req.Action))
	}
	if err != nil {
		return fail(New(ErrInvalidRequest, "%v", err))
	}

	if err := sendSteps(sess, steps); err != nil {
		return fail(err)
	}
	return ok()
}

func (d *Dispatcher) handleScroll(req *Request) Response {
	sess, err := d.activeSession()
	if err != nil {
		return fail(err)
	}

	steps, err := input.Scroll(input.ScrollDirection(req.Direction), req.Amount, req.X, req.Y)
	if err != nil {
		return fail(New(ErrInvalidRequest, "%v", err))
	}

	if err := sendSteps(sess, steps); err != nil {
		return fail(err)
	}
	return ok()
}

func (d *Dispatcher) handleClipboard(req *Request) Response {
	sess, err := d.activeSession()
	if err != nil {
		return fail(err)
	}

	switch req.Action {
	case "get":
		text, err := sess.ClipboardGet()
		if err != nil {
			return fail(err)
		}
		return okWith(map[string]any{"text": text})
	case "set":
		if err := sess.ClipboardSet(req.Text); err != nil {
			return fail(err)
		}
		return ok()
	default:
		return fail(New(ErrInvalidRequest, "unrecognised clipboard action %q", req.Action))
	}
}

func (d *Dispatcher) handleDrive(req *Request) Response {
	switch req.Action {
	case "list":
		d.mu.Lock()
		drives := d.drives
		d.mu.Unlock()

		list := make([]map[string]any, 0, len(drives))
		for _, dm := range drives {
			list = append(list, map[string]any{"name": dm.Name, "path": dm.Path})
		}
		return okWith(map[string]any{"drives": list})
	default:
		return fail(New(ErrInvalidRequest, "unrecognised drive action %q", req.Action))
	}
}

func (d *Dispatcher) handleSessionInfo() Response {
	d.mu.Lock()
	sess := d.sess
	host, width, height := d.host, d.width, d.height
	d.mu.Unlock()

	state := "disconnected"
	if sess != nil {
		switch sess.Status() {
		case session.StatusConnecting:
			state = "connecting"
		case session.StatusConnected:
			state = "connected"
		case session.StatusDisconnected:
			state = "disconnected"
		}
	}

	data := map[string]any{
		"name":        d.sessionName,
		"state":       state,
		"pid":         pid(),
		"uptime_secs": uint64(time.Since(d.startedAt).Seconds()),
	}
	if sess != nil && state == "connected" {
		data["host"] = host
		data["width"] = width
		data["height"] = height
	}
	return okWith(data)
}

// sendSteps funnels a translated input sequence through the session's
// command channel one event at a time, honouring each Step's delay —
// the ordering and timing contract spec.md §4.3 requires.
func sendSteps(sess *session.Session, steps []input.Step) error {
	for _, step := range steps {
		if step.Delay > 0 {
			time.Sleep(step.Delay)
		}
		if err := sess.SendInput([]fastpath.InputEvent{step.Event}); err != nil {
			return err
		}
	}
	return nil
}

func pid() int {
	return os.Getpid()
}
