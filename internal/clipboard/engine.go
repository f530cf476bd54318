// Package clipboard implements the CLIPRDR client-side clipboard engine:
// bidirectional format-list announcement, on-demand format-data
// request/response, and completion of pending read requests. Grounded
// on the session's static clipboard channel backend.
package clipboard

import (
	"fmt"
	"sync"
	"time"

	"github.com/rcarmo/agent-rdp/internal/logging"
	"github.com/rcarmo/agent-rdp/internal/protocol/cliprdr"
)

// GetResult is delivered to a pending clipboard read.
type GetResult struct {
	Text *string
}

// State is the clipboard data shared between the session actor and the
// CLIPRDR channel backend.
type State struct {
	mu            sync.Mutex
	localText     *string
	remoteText    *string
	remoteFormats []cliprdr.FormatListEntry
	pendingGet    chan GetResult
	changeNotify  chan<- struct{}
}

// Engine drives the CLIPRDR state machine. Outbound wire bytes (not yet
// wrapped in vchannel framing) are written to Out; the session actor
// owns the stream and is responsible for the actual send.
type Engine struct {
	state State
	Out   chan []byte
}

// NewEngine creates a clipboard engine. changeNotify, if non-nil, is
// signalled (non-blocking) whenever the remote announces new formats.
func NewEngine(changeNotify chan<- struct{}) *Engine {
	return &Engine{
		state: State{changeNotify: changeNotify},
		Out:   make(chan []byte, 8),
	}
}

func (e *Engine) send(data []byte) {
	select {
	case e.Out <- data:
	default:
		logging.Warn("Clipboard: outbound queue full, dropping message")
	}
}

// SetLocalText stores the text that will be served when the remote
// requests CF_UNICODETEXT, and announces the format.
func (e *Engine) SetLocalText(text string) {
	e.state.mu.Lock()
	e.state.localText = &text
	e.state.mu.Unlock()

	e.send(cliprdr.BuildFormatList([]cliprdr.FormatListEntry{{FormatID: cliprdr.FormatIDUnicodeText}}))
}

// RequestRemoteText returns the cached remote clipboard text if present,
// otherwise issues a format-data request and waits (up to timeout) for
// the response.
func (e *Engine) RequestRemoteText(timeout time.Duration) (*string, error) {
	e.state.mu.Lock()
	if e.state.remoteText != nil {
		text := *e.state.remoteText
		e.state.mu.Unlock()
		return &text, nil
	}
	if e.state.pendingGet != nil {
		e.state.mu.Unlock()
		return nil, fmt.Errorf("clipboard: a read is already pending")
	}
	reply := make(chan GetResult, 1)
	e.state.pendingGet = reply
	e.state.mu.Unlock()

	e.send(cliprdr.BuildFormatDataRequest(cliprdr.FormatIDUnicodeText))

	select {
	case result := <-reply:
		return result.Text, nil
	case <-time.After(timeout):
		e.state.mu.Lock()
		e.state.pendingGet = nil
		e.state.mu.Unlock()
		return nil, fmt.Errorf("clipboard: remote read timed out")
	}
}

// HandleInbound processes one decoded CLIPRDR PDU from the remote and
// returns any reply bytes that should be sent back (may be nil).
func (e *Engine) HandleInbound(pdu *cliprdr.PDU) []byte {
	switch pdu.Header.MsgType {
	case cliprdr.MsgTypeMonitorReady:
		return e.onMonitorReady()
	case cliprdr.MsgTypeFormatList:
		return e.onFormatList(pdu.Body)
	case cliprdr.MsgTypeFormatDataRequest:
		return e.onFormatDataRequest(pdu.Body)
	case cliprdr.MsgTypeFormatDataResponse:
		e.onFormatDataResponse(pdu)
		return nil
	case cliprdr.MsgTypeFileContentsReq:
		return cliprdr.Build(cliprdr.MsgTypeFileContentsResp, cliprdr.FlagResponseFail, nil)
	case cliprdr.MsgTypeLockClipData, cliprdr.MsgTypeUnlockClipData:
		return nil
	default:
		logging.Debug("Clipboard: ignoring message type 0x%04X", pdu.Header.MsgType)
		return nil
	}
}

func (e *Engine) onMonitorReady() []byte {
	caps := buildClipCaps()
	e.state.mu.Lock()
	hasLocal := e.state.localText != nil
	e.state.mu.Unlock()

	out := caps
	if hasLocal {
		out = append(out, cliprdr.BuildFormatList([]cliprdr.FormatListEntry{{FormatID: cliprdr.FormatIDUnicodeText}})...)
	} else {
		out = append(out, cliprdr.BuildFormatList(nil)...)
	}
	return out
}

func buildClipCaps() []byte {
	// General Capability Set (MS-RDPECLIP 2.2.2.1.1): capabilitySetType=1,
	// lengthCapability=12, version=2, generalFlags=USE_LONG_FORMAT_NAMES.
	body := make([]byte, 2+12)
	body[0], body[1] = 0x01, 0x00 // cCapabilitiesSets = 1
	setType := uint16(1)
	setLen := uint16(12)
	version := uint32(2)
	flags := cliprdr.GeneralCapsUseLongFormatNames
	putU16 := func(b []byte, off int, v uint16) { b[off], b[off+1] = byte(v), byte(v>>8) }
	putU32 := func(b []byte, off int, v uint32) {
		b[off], b[off+1], b[off+2], b[off+3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	}
	putU16(body, 2, setType)
	putU16(body, 4, setLen)
	putU32(body, 6, version)
	putU32(body, 10, flags)

	return cliprdr.Build(cliprdr.MsgTypeClipCaps, 0, body)
}

func (e *Engine) onFormatList(body []byte) []byte {
	entries, _ := cliprdr.ParseFormatList(body)

	e.state.mu.Lock()
	e.state.remoteFormats = entries
	e.state.remoteText = nil
	notify := e.state.changeNotify
	e.state.mu.Unlock()

	if notify != nil {
		select {
		case notify <- struct{}{}:
		default:
		}
	}

	return cliprdr.Build(cliprdr.MsgTypeFormatListResponse, cliprdr.FlagResponseOK, nil)
}

func (e *Engine) onFormatDataRequest(body []byte) []byte {
	formatID, err := cliprdr.ParseFormatDataRequest(body)
	if err != nil || formatID != cliprdr.FormatIDUnicodeText {
		return cliprdr.Build(cliprdr.MsgTypeFormatDataResponse, cliprdr.FlagResponseFail, nil)
	}

	e.state.mu.Lock()
	local := e.state.localText
	e.state.mu.Unlock()

	if local == nil {
		return cliprdr.Build(cliprdr.MsgTypeFormatDataResponse, cliprdr.FlagResponseFail, nil)
	}

	return cliprdr.Build(cliprdr.MsgTypeFormatDataResponse, cliprdr.FlagResponseOK, cliprdr.EncodeUnicodeText(*local))
}

func (e *Engine) onFormatDataResponse(pdu *cliprdr.PDU) {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()

	pending := e.state.pendingGet
	e.state.pendingGet = nil

	if pdu.Header.MsgFlags&cliprdr.FlagResponseFail != 0 {
		e.state.remoteText = nil
		if pending != nil {
			pending <- GetResult{Text: nil}
		}
		return
	}

	text := cliprdr.DecodeUnicodeText(pdu.Body)
	e.state.remoteText = &text
	if pending != nil {
		pending <- GetResult{Text: &text}
	}
}

// Close drains any pending read with a nil result, as if the channel
// had closed.
func (e *Engine) Close() {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()
	if e.state.pendingGet != nil {
		e.state.pendingGet <- GetResult{Text: nil}
		e.state.pendingGet = nil
	}
}
