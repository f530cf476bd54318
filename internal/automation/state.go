// Package automation implements the host side of the DVC automation
// channel contract: correlation-id routing of request/response pairs,
// a handshake gate, dead-channel detection, and the backoff polling
// loop used while waiting for the in-guest agent to connect. Grounded
// on the session's DvcSharedState/AutomationBootstrap pair, reworked
// from an Arc<Mutex<..>> + oneshot idiom into channel-based Go.
package automation

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rcarmo/agent-rdp/internal/logging"
	wire "github.com/rcarmo/agent-rdp/internal/protocol/automation"
)

// Handshake captures what the in-guest agent announced on connect.
type Handshake struct {
	Version      string
	AgentPID     uint32
	Capabilities []string
}

// Response is delivered to a pending request's waiter.
type Response struct {
	Success bool
	Data    json.RawMessage
	Error   *wire.Error
}

// deadChannelThreshold is the number of consecutive failures (lost
// replies or timeouts) after which SendRequest reports the channel as
// dead rather than retrying silently.
const deadChannelThreshold = 3

// DefaultRequestTimeout is the wait applied to SendRequest when the
// caller does not override it.
const DefaultRequestTimeout = 10 * time.Second

// SharedState is the correlation and handshake state shared between
// the DVC channel handler (receiving inbound bytes) and callers
// issuing requests. Out carries outbound wire bytes; the session actor
// owns the stream and performs the actual DVC send.
type SharedState struct {
	mu sync.Mutex

	channelID *uint32
	handshake *Handshake
	pending   map[string]chan Response

	consecutiveFailures int

	Out chan []byte
}

// NewSharedState creates an idle automation state.
func NewSharedState() *SharedState {
	return &SharedState{
		pending: make(map[string]chan Response),
		Out:     make(chan []byte, 8),
	}
}

func (s *SharedState) send(data []byte) {
	select {
	case s.Out <- data:
	default:
		logging.Warn("Automation: outbound queue full, dropping message")
	}
}

// OnChannelStart records the server-assigned dynamic channel id.
func (s *SharedState) OnChannelStart(channelID uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelID = &channelID
}

// OnChannelClose drops channel/handshake state and fails every pending
// request with a channel_closed error.
func (s *SharedState) OnChannelClose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.channelID = nil
	s.handshake = nil

	for id, waiter := range s.pending {
		delete(s.pending, id)
		waiter <- Response{Error: &wire.Error{Code: "channel_closed", Message: "DVC channel was closed"}}
		close(waiter)
	}
}

// HandleInbound decodes and routes one complete DVC payload.
func (s *SharedState) HandleInbound(payload []byte) {
	msg, err := wire.Decode(payload)
	if err != nil {
		logging.Warn("Automation: %v", err)
		return
	}

	switch msg.Type {
	case wire.TypeHandshake:
		s.onHandshake(msg)
	case wire.TypeResponse:
		s.onResponse(msg)
	case wire.TypeRequest:
		logging.Warn("Automation: received unexpected request message from agent")
	case wire.TypePoll:
		logging.Debug("Automation: received legacy poll, ignoring")
	default:
		logging.Debug("Automation: ignoring message type %q", msg.Type)
	}
}

func (s *SharedState) onHandshake(msg *wire.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handshake = &Handshake{Version: msg.Version, AgentPID: msg.AgentPID, Capabilities: msg.Capabilities}
	logging.Info("Automation: handshake received version=%s pid=%d capabilities=%v", msg.Version, msg.AgentPID, msg.Capabilities)
}

func (s *SharedState) onResponse(msg *wire.Message) {
	s.mu.Lock()
	waiter, ok := s.pending[msg.ID]
	if ok {
		delete(s.pending, msg.ID)
	}
	s.mu.Unlock()

	if !ok {
		logging.Warn("Automation: response for unknown request id %q", msg.ID)
		return
	}

	waiter <- Response{Success: msg.Success, Data: msg.Data, Error: msg.Error}
	close(waiter)
}

// IsReady reports whether the handshake has completed.
func (s *SharedState) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handshake != nil
}

// HandshakeInfo returns a copy of the captured handshake, if any.
func (s *SharedState) HandshakeInfo() (Handshake, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handshake == nil {
		return Handshake{}, false
	}
	return *s.handshake, true
}

var requestCounter uint32
var requestCounterMu sync.Mutex

func nextRequestID() string {
	requestCounterMu.Lock()
	defer requestCounterMu.Unlock()
	requestCounter++
	return fmt.Sprintf("%08x", requestCounter)
}

// SendRequest issues command/params to the agent and waits up to
// timeout for a correlated response. Dead-channel detection escalates
// after deadChannelThreshold consecutive failures (lost replies or
// timeouts).
func (s *SharedState) SendRequest(command string, params json.RawMessage, timeout time.Duration) (Response, error) {
	id := nextRequestID()
	waiter := make(chan Response, 1)

	s.mu.Lock()
	s.pending[id] = waiter
	s.mu.Unlock()

	payload, err := wire.EncodeRequest(id, command, params)
	if err != nil {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return Response{}, fmt.Errorf("automation: encode request: %w", err)
	}
	s.send(payload)

	select {
	case resp, ok := <-waiter:
		if !ok || (resp.Error != nil && resp.Error.Code == "channel_closed") {
			return s.recordFailure()
		}
		s.recordSuccess()
		return resp, nil
	case <-time.After(timeout):
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return s.recordFailure()
	}
}

func (s *SharedState) recordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveFailures = 0
}

func (s *SharedState) recordFailure() (Response, error) {
	s.mu.Lock()
	s.consecutiveFailures++
	dead := s.consecutiveFailures >= deadChannelThreshold
	s.mu.Unlock()

	if dead {
		return Response{}, fmt.Errorf("automation: channel appears dead, please reconnect")
	}
	return Response{}, fmt.Errorf("automation: request timed out or channel closed")
}

// WaitForHandshake polls IsReady with exponential backoff (500ms,
// factor 1.5, cap 5s), up to maxAttempts times.
func WaitForHandshake(state *SharedState, maxAttempts int) error {
	delay := 500 * time.Millisecond
	const maxDelay = 5 * time.Second

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if state.IsReady() {
			return nil
		}
		if attempt < maxAttempts {
			time.Sleep(delay)
			delay = delay * 3 / 2
			if delay > maxDelay {
				delay = maxDelay
			}
		}
	}
	return fmt.Errorf("automation: agent handshake timed out after %d attempts", maxAttempts)
}
