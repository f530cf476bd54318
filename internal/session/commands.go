package session

import (
	"time"

	"github.com/rcarmo/agent-rdp/internal/protocol/fastpath"
)

type commandKind int

const (
	cmdSendInput commandKind = iota
	cmdClipboardSet
	cmdClipboardGet
	cmdShutdown
)

// command is one request handed to the session's command goroutine. It
// is the only thing that goroutine ever reads from besides the done
// channel, which keeps every client.SendInputEvents/clipboard call on a
// single serialized path per spec.md §5.
type command struct {
	kind   commandKind
	events []fastpath.InputEvent
	text   string
	reply  chan commandResult
}

type commandResult struct {
	text string
	err  error
}

const commandTimeout = 10 * time.Second
