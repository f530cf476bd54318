// Package automation implements the JSON message framing carried over
// the "AgentRdp::Automation" dynamic virtual channel: a tagged union of
// handshake/request/response/poll messages exchanged with the in-guest
// automation agent. Framing rides unmodified over
// internal/protocol/drdynvc; each message is one complete DVC payload
// (no additional length prefix).
package automation

import (
	"encoding/json"
	"fmt"
)

// ChannelName is the dynamic virtual channel name the server creates
// on behalf of the in-guest automation agent.
const ChannelName = "AgentRdp::Automation"

// Type discriminates the tagged union carried in the "type" field.
type Type string

const (
	TypeHandshake Type = "handshake"
	TypeRequest   Type = "request"
	TypeResponse  Type = "response"
	TypePoll      Type = "poll"
)

// Error is the structured error payload of a failed Response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Message is the full wire shape; unused fields are omitted by json
// depending on Type.
type Message struct {
	Type Type `json:"type"`

	// Handshake fields.
	Version      string   `json:"version,omitempty"`
	AgentPID     uint32   `json:"agent_pid,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`

	// Request/Response fields.
	ID      string          `json:"id,omitempty"`
	Command string          `json:"command,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Success bool            `json:"success,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Decode parses one DVC payload into a Message, tolerating a leading
// UTF-8 BOM (PowerShell's default encoding for redirected stdout/file
// writes).
func Decode(payload []byte) (*Message, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("automation: empty payload")
	}
	payload = stripBOM(payload)

	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("automation: decode: %w", err)
	}
	return &msg, nil
}

func stripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}

// EncodeRequest builds a Request message for the given correlation id,
// command, and already-marshaled params.
func EncodeRequest(id, command string, params json.RawMessage) ([]byte, error) {
	msg := Message{Type: TypeRequest, ID: id, Command: command, Params: params}
	return json.Marshal(msg)
}
