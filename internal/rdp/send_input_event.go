package rdp

import "github.com/rcarmo/agent-rdp/internal/protocol/fastpath"

// SendInputEvents sends one or more FastPath input events (mouse, keyboard,
// or unicode text) to the server in a single PDU.
func (c *Client) SendInputEvents(events []fastpath.InputEvent) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.fastPath.Send(events)
}
