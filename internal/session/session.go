package session

import (
	"fmt"
	"sync"

	"github.com/rcarmo/agent-rdp/internal/automation"
	"github.com/rcarmo/agent-rdp/internal/clipboard"
	"github.com/rcarmo/agent-rdp/internal/framebuffer"
	"github.com/rcarmo/agent-rdp/internal/logging"
	"github.com/rcarmo/agent-rdp/internal/protocol/fastpath"
	"github.com/rcarmo/agent-rdp/internal/rdp"
	"github.com/rcarmo/agent-rdp/internal/rdpdr"
)

// Status is the lifecycle state of a Session, reported back to IPC
// callers without exposing rdp.Client internals.
type Status int

const (
	StatusConnecting Status = iota
	StatusConnected
	StatusDisconnected
)

// Session owns one live RDP connection plus everything that hangs off
// it: the framebuffer a viewer reads, the clipboard/automation/drive
// side channels, and the command goroutine that serializes every
// outbound wire write.
//
// Two goroutines drive a Session after Connect returns: readLoop is
// the framebuffer's sole writer, looping on client.GetUpdate and
// decoding whatever it gets into pixels; commandLoop is the only
// thing that calls client.SendInputEvents or touches the clipboard
// engine, serialized by cmdCh. Both goroutines may write to the wire
// concurrently (input events vs. clipboard/automation replies); that
// ordering is serialized inside rdp.Client itself, not here.
type Session struct {
	client *rdp.Client
	fb     *framebuffer.Framebuffer

	clip       *clipboard.Engine
	automation *automation.SharedState
	drives     *rdpdr.Backend

	cmdCh chan *command
	done  chan struct{}

	mu      sync.Mutex
	status  Status
	lastErr error
}

// Connect dials the server described by cfg, performs the full RDP
// handshake, and starts the session's reader and command goroutines.
// The returned Session is ready for SendInput/ClipboardGet/ClipboardSet
// calls immediately; framebuffer pixels populate as updates arrive.
func Connect(cfg Config) (*Session, error) {
	cfg.applyDefaults()

	username := cfg.Username
	if cfg.Domain != "" {
		username = cfg.Domain + "\\" + cfg.Username
	}

	client, err := rdp.NewClient(
		fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		username, cfg.Password,
		int(cfg.Width), int(cfg.Height),
		32,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	client.SetTLSConfig(cfg.SkipTLSValidation, cfg.Host)
	client.SetUseNLA(true)
	client.SetEnableRFX(cfg.EnableRFX)

	s := &Session{
		client: client,
		fb:     framebuffer.New(cfg.Width, cfg.Height),
		cmdCh:  make(chan *command, 32),
		done:   make(chan struct{}),
		status: StatusConnecting,
	}

	for _, d := range cfg.Drives {
		if s.drives == nil {
			s.drives = client.EnableDriveRedirection(nextDriveID(), d.Name, d.Path)
			continue
		}
		s.drives.AddDrive(nextDriveID(), d.Name, d.Path)
	}

	s.clip = client.EnableClipboard()

	if cfg.Automation {
		s.automation = client.EnableAutomation()
	}

	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	s.setStatus(StatusConnected)

	go s.readLoop()
	go s.commandLoop()

	return s, nil
}

var driveIDCounter uint32 = 1

// nextDriveID hands out the sequential RDPDR device IDs the teacher's
// rdpdr.Backend expects; one Session never redirects enough drives for
// this to wrap.
func nextDriveID() uint32 {
	id := driveIDCounter
	driveIDCounter++
	return id
}

func (s *Session) setStatus(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

// Status reports the session's current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Snapshot returns a copy of the current framebuffer contents, safe to
// hand to a screenshot encoder or a viewer frame broadcaster.
func (s *Session) Snapshot() (width, height uint16, rgba []byte) {
	return s.fb.Snapshot()
}

// readLoop is the framebuffer's sole writer. It terminates the session
// on the first GetUpdate error, which for this client always means the
// connection is gone.
func (s *Session) readLoop() {
	defer s.terminate(nil)

	for {
		select {
		case <-s.done:
			return
		default:
		}

		upd, err := s.client.GetUpdate()
		if err != nil {
			s.terminate(fmt.Errorf("%w: %v", ErrConnectionFailed, err))
			return
		}

		if err := applyUpdate(s.fb, upd); err != nil {
			logging.Warn("session: dropping update: %v", err)
			continue
		}
	}
}

// commandLoop is the only goroutine that calls client.SendInputEvents
// or touches the clipboard engine, so every outbound command from CLI
// callers lands on the wire in the order it was issued.
func (s *Session) commandLoop() {
	for {
		select {
		case <-s.done:
			return
		case cmd := <-s.cmdCh:
			s.dispatch(cmd)
		}
	}
}

func (s *Session) dispatch(cmd *command) {
	switch cmd.kind {
	case cmdSendInput:
		err := s.client.SendInputEvents(cmd.events)
		cmd.reply <- commandResult{err: err}

	case cmdClipboardSet:
		s.clip.SetLocalText(cmd.text)
		cmd.reply <- commandResult{}

	case cmdClipboardGet:
		text, err := s.clip.RequestRemoteText(commandTimeout)
		if err != nil {
			cmd.reply <- commandResult{err: fmt.Errorf("%w: %v", ErrClipboardError, err)}
			return
		}
		if text == nil {
			cmd.reply <- commandResult{}
			return
		}
		cmd.reply <- commandResult{text: *text}

	case cmdShutdown:
		cmd.reply <- commandResult{}
	}
}

// SendInput pushes an ordered sequence of Fast-Path input events
// through the command goroutine and waits for them to be written.
func (s *Session) SendInput(events []fastpath.InputEvent) error {
	if s.Status() != StatusConnected {
		return ErrNotConnected
	}

	reply := make(chan commandResult, 1)
	select {
	case s.cmdCh <- &command{kind: cmdSendInput, events: events, reply: reply}:
	case <-s.done:
		return ErrShuttingDown
	}

	select {
	case res := <-reply:
		return res.err
	case <-s.done:
		return ErrShuttingDown
	}
}

// ClipboardSet pushes text onto the guest clipboard.
func (s *Session) ClipboardSet(text string) error {
	if s.Status() != StatusConnected {
		return ErrNotConnected
	}

	reply := make(chan commandResult, 1)
	select {
	case s.cmdCh <- &command{kind: cmdClipboardSet, text: text, reply: reply}:
	case <-s.done:
		return ErrShuttingDown
	}

	select {
	case res := <-reply:
		return res.err
	case <-s.done:
		return ErrShuttingDown
	}
}

// ClipboardGet retrieves the guest clipboard's current text, blocking
// up to commandTimeout for the round trip.
func (s *Session) ClipboardGet() (string, error) {
	if s.Status() != StatusConnected {
		return "", ErrNotConnected
	}

	reply := make(chan commandResult, 1)
	select {
	case s.cmdCh <- &command{kind: cmdClipboardGet, reply: reply}:
	case <-s.done:
		return "", ErrShuttingDown
	}

	select {
	case res := <-reply:
		return res.text, res.err
	case <-s.done:
		return "", ErrShuttingDown
	}
}

// Automation exposes the session's automation.SharedState, or nil if
// the session wasn't configured with Automation: true. Callers use
// automation.WaitForHandshake and SendRequest directly against it;
// bringing the in-guest agent up in the first place is outside the
// session's scope.
func (s *Session) Automation() *automation.SharedState {
	return s.automation
}

// Shutdown tears the session down: stops both goroutines and closes
// the underlying connection. Safe to call more than once.
func (s *Session) Shutdown() error {
	s.terminate(nil)
	return s.client.Close()
}

func (s *Session) terminate(err error) {
	s.mu.Lock()
	if s.status == StatusDisconnected {
		s.mu.Unlock()
		return
	}
	s.status = StatusDisconnected
	s.lastErr = err
	s.mu.Unlock()

	close(s.done)

	if s.clip != nil {
		s.clip.Close()
	}
}

// LastError reports the error that ended the session, if any.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
