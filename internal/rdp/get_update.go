package rdp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/rcarmo/agent-rdp/internal/automation"
	"github.com/rcarmo/agent-rdp/internal/logging"
	wireautomation "github.com/rcarmo/agent-rdp/internal/protocol/automation"
	"github.com/rcarmo/agent-rdp/internal/protocol/cliprdr"
	"github.com/rcarmo/agent-rdp/internal/protocol/drdynvc"
	"github.com/rcarmo/agent-rdp/internal/protocol/pdu"
	wirerdpdr "github.com/rcarmo/agent-rdp/internal/protocol/rdpdr"
	"github.com/rcarmo/agent-rdp/internal/protocol/vchannel"
)

var updateCounter int

// UpdateKind distinguishes the wire shape Update.Data carries, since
// slow-path and fast-path graphics updates are framed differently
// (MS-RDPBCGR 2.2.9.1.1.3 vs 2.2.9.1.2.1).
type UpdateKind int

const (
	UpdateKindFastPath UpdateKind = iota
	UpdateKindSlowPathOrders
	UpdateKindSlowPathBitmap
	UpdateKindSlowPathPalette
	UpdateKindSlowPathSynchronize
)

// Update represents an RDP screen update that can be sent to a client.
// This provides a public interface without exposing internal protocol details.
type Update struct {
	Kind UpdateKind
	Data []byte
}

// Slow-path update types (MS-RDPBCGR 2.2.9.1.1.3.1).
const (
	SlowPathUpdateTypeOrders      uint16 = 0x0000
	SlowPathUpdateTypeBitmap      uint16 = 0x0001
	SlowPathUpdateTypePalette     uint16 = 0x0002
	SlowPathUpdateTypeSynchronize uint16 = 0x0003
)

func (c *Client) GetUpdate() (*Update, error) {
	// If we have a pending slow-path update, return it first.
	c.mu.Lock()
	pending := c.pendingSlowPathUpdate
	c.pendingSlowPathUpdate = nil
	c.mu.Unlock()
	if pending != nil {
		return pending, nil
	}

	protocol, err := receiveProtocol(c.buffReader)
	if err != nil {
		return nil, err
	}

	updateCounter++

	if protocol.IsX224() {
		update, err := c.getX224Update()
		switch {
		case err == nil:
			if update != nil {
				return update, nil
			}
			// Consumed by a virtual channel or an info PDU; try again.
			return c.GetUpdate()
		case errors.Is(err, pdu.ErrDeactivateAll):
			return nil, err
		default:
			return nil, fmt.Errorf("get X.224 update: %w", err)
		}
	}

	fpUpdate, err := c.fastPath.Receive()
	if err != nil {
		return nil, err
	}

	return &Update{Kind: UpdateKindFastPath, Data: fpUpdate.Data}, nil
}

func (c *Client) getX224Update() (*Update, error) {
	channelID, wire, err := c.mcsLayer.Receive()
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	cliprdrID, hasCliprdr := c.channelIDMap[cliprdr.ChannelName]
	rdpdrID, hasRdpdr := c.channelIDMap[wirerdpdr.ChannelName]
	drdynvcID, hasDrdynvc := c.channelIDMap[drdynvc.ChannelName]
	c.mu.RUnlock()

	switch {
	case hasCliprdr && channelID == cliprdrID:
		return nil, c.handleCliprdrChannel(wire)
	case hasRdpdr && channelID == rdpdrID:
		return nil, c.handleRdpdrChannel(wire)
	case hasDrdynvc && channelID == drdynvcID:
		return nil, c.handleDrdynvcChannel(wire)
	}

	// Read ShareControlHeader first to check PDU type
	var shareControlHeader pdu.ShareControlHeader
	if err = shareControlHeader.Deserialize(wire); err != nil {
		return nil, err
	}

	if shareControlHeader.PDUType.IsDeactivateAll() {
		return nil, pdu.ErrDeactivateAll
	}

	// Read ShareDataHeader fields
	var shareID uint32
	var padding uint8
	var streamID uint8
	var uncompressedLength uint16
	var pduType2 pdu.Type2
	var compressedType uint8
	var compressedLength uint16

	binary.Read(wire, binary.LittleEndian, &shareID)
	binary.Read(wire, binary.LittleEndian, &padding)
	binary.Read(wire, binary.LittleEndian, &streamID)
	binary.Read(wire, binary.LittleEndian, &uncompressedLength)
	binary.Read(wire, binary.LittleEndian, &pduType2)
	binary.Read(wire, binary.LittleEndian, &compressedType)
	binary.Read(wire, binary.LittleEndian, &compressedLength)

	// Handle bitmap updates (PDUTYPE2_UPDATE = 0x02)
	if pduType2.IsUpdate() {
		return c.handleSlowPathGraphicsUpdate(wire)
	}

	// Handle error info
	if pduType2.IsErrorInfo() {
		var errorInfo pdu.ErrorInfoPDUData
		if err := errorInfo.Deserialize(wire); err == nil {
			logging.Info("received error info: %s", errorInfo.String())
		}
	}

	return nil, nil
}

func (c *Client) handleSlowPathGraphicsUpdate(wire io.Reader) (*Update, error) {
	// Read updateType (2 bytes) - [MS-RDPBCGR] 2.2.9.1.1.3 Slow-Path Graphics Update
	var updateType uint16
	if err := binary.Read(wire, binary.LittleEndian, &updateType); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, wire); err != nil && err != io.EOF {
		return nil, err
	}
	updateData := buf.Bytes()

	var kind UpdateKind
	switch updateType {
	case SlowPathUpdateTypeOrders:
		kind = UpdateKindSlowPathOrders
	case SlowPathUpdateTypeBitmap:
		kind = UpdateKindSlowPathBitmap
	case SlowPathUpdateTypePalette:
		kind = UpdateKindSlowPathPalette
	case SlowPathUpdateTypeSynchronize:
		kind = UpdateKindSlowPathSynchronize
	default:
		logging.Debug("slow-path update: unknown updateType 0x%04x, skipping", updateType)
		return nil, nil
	}

	return &Update{Kind: kind, Data: updateData}, nil
}

// handleCliprdrChannel defragments one CLIPRDR channel PDU and feeds it
// to the clipboard engine, sending back whatever reply it produces.
func (c *Client) handleCliprdrChannel(wire io.Reader) error {
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, wire); err != nil && err != io.EOF {
		return err
	}

	chunk, err := vchannel.ParseChunk(raw.Bytes())
	if err != nil {
		return fmt.Errorf("cliprdr: %w", err)
	}

	c.mu.Lock()
	payload, complete := c.cliprdrDefrag.Process(chunk)
	engine := c.clipboard
	c.mu.Unlock()
	if !complete || engine == nil {
		return nil
	}

	pduMsg, err := cliprdr.Parse(payload)
	if err != nil {
		logging.Warn("cliprdr: %v", err)
		return nil
	}

	if reply := engine.HandleInbound(pduMsg); reply != nil {
		return c.sendCliprdrData(reply)
	}
	return nil
}

// sendCliprdrData fragments and sends a CLIPRDR PDU over the cliprdr SVC.
func (c *Client) sendCliprdrData(pduBody []byte) error {
	for _, chunk := range vchannel.Build(pduBody) {
		if err := c.sendChannelData(cliprdr.ChannelName, chunk); err != nil {
			return err
		}
	}
	return nil
}

// handleDrdynvcChannel defragments one DRDYNVC SVC chunk and routes the
// resulting control/data PDU.
func (c *Client) handleDrdynvcChannel(wire io.Reader) error {
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, wire); err != nil && err != io.EOF {
		return err
	}

	chunk, err := vchannel.ParseChunk(raw.Bytes())
	if err != nil {
		return fmt.Errorf("drdynvc: %w", err)
	}

	c.mu.Lock()
	payload, complete := c.drdynvcDefrag.Process(chunk)
	c.mu.Unlock()
	if !complete {
		return nil
	}

	if len(payload) < 1 {
		return fmt.Errorf("drdynvc: empty PDU")
	}
	var header drdynvc.Header
	header.Deserialize(payload[0])
	cmd, cbChID, rest := header.Cmd, header.CbChID, payload[1:]

	switch cmd {
	case drdynvc.CmdCapability:
		logging.Debug("drdynvc: capability negotiation received")
		return nil
	case drdynvc.CmdCreate:
		return c.handleDVCCreate(cbChID, rest)
	case drdynvc.CmdDataFirst:
		return c.handleDVCDataFirst(header.Sp, cbChID, rest)
	case drdynvc.CmdData:
		return c.handleDVCData(cbChID, rest)
	case drdynvc.CmdClose:
		channelID, _, err := drdynvc.ReadChannelID(rest, cbChID)
		if err == nil {
			c.onDVCClose(channelID)
		}
		return nil
	default:
		logging.Debug("drdynvc: ignoring command 0x%02x", cmd)
		return nil
	}
}

func (c *Client) handleDVCCreate(cbChID uint8, rest []byte) error {
	channelID, nameBytes, err := drdynvc.ReadChannelID(rest, cbChID)
	if err != nil {
		return fmt.Errorf("drdynvc create: %w", err)
	}
	name := string(bytes.TrimRight(nameBytes, "\x00"))

	c.mu.Lock()
	state := c.automationState
	isAutomation := state != nil && name == wireautomation.ChannelName
	if isAutomation {
		c.automationDVCID = &channelID
	}
	c.mu.Unlock()

	result := drdynvc.CreateResultNoListener
	if isAutomation {
		result = drdynvc.CreateResultOK
		state.OnChannelStart(channelID)
	}

	resp := drdynvc.CreateResponsePDU{ChannelID: channelID, CreationCode: result}
	return c.sendDVCControl(buildCreateResponse(resp, cbChID))
}

// buildCreateResponse serializes DYNVC_CREATE_RSP with the same channel
// id width the server used on the request.
func buildCreateResponse(resp drdynvc.CreateResponsePDU, cbChID uint8) []byte {
	var buf bytes.Buffer
	header := drdynvc.Header{CbChID: cbChID, Sp: 0, Cmd: drdynvc.CmdCreate}
	buf.WriteByte(header.Serialize())
	switch cbChID {
	case 0:
		buf.WriteByte(byte(resp.ChannelID))
	case 1:
		_ = binary.Write(&buf, binary.LittleEndian, uint16(resp.ChannelID))
	default:
		_ = binary.Write(&buf, binary.LittleEndian, resp.ChannelID)
	}
	_ = binary.Write(&buf, binary.LittleEndian, resp.CreationCode)
	return buf.Bytes()
}

// dvcLengthFieldSize returns the byte width of DYNVC_DATA_FIRST's Length
// field for a given Sp value (MS-RDPEDYC 2.2.3.1), mirroring
// Header.ChannelIDSize's encoding.
func dvcLengthFieldSize(sp uint8) int {
	switch sp {
	case 0:
		return 1
	case 1:
		return 2
	default:
		return 4
	}
}

func (c *Client) handleDVCDataFirst(sp, cbChID uint8, rest []byte) error {
	channelID, afterChID, err := drdynvc.ReadChannelID(rest, cbChID)
	if err != nil {
		return fmt.Errorf("drdynvc data-first: %w", err)
	}

	lenSize := dvcLengthFieldSize(sp)
	if len(afterChID) < lenSize {
		return fmt.Errorf("drdynvc data-first: missing length field")
	}
	body := afterChID[lenSize:]

	c.mu.Lock()
	c.dvcBuffers[channelID] = append([]byte{}, body...)
	c.mu.Unlock()
	return nil
}

func (c *Client) handleDVCData(cbChID uint8, rest []byte) error {
	channelID, body, err := drdynvc.ReadChannelID(rest, cbChID)
	if err != nil {
		return fmt.Errorf("drdynvc data: %w", err)
	}

	c.mu.Lock()
	buffered, ok := c.dvcBuffers[channelID]
	if ok {
		delete(c.dvcBuffers, channelID)
	}
	automationID := c.automationDVCID
	state := c.automationState
	c.mu.Unlock()

	full := append(buffered, body...)

	switch {
	case automationID != nil && channelID == *automationID && state != nil:
		state.HandleInbound(full)
	case !ok:
		logging.Debug("drdynvc: data on unrecognized channel %d (%d bytes)", channelID, len(full))
	}
	return nil
}

func (c *Client) onDVCClose(channelID uint32) {
	c.mu.Lock()
	delete(c.dvcBuffers, channelID)
	var state *automation.SharedState
	if c.automationDVCID != nil && channelID == *c.automationDVCID {
		c.automationDVCID = nil
		state = c.automationState
	}
	c.mu.Unlock()
	if state != nil {
		state.OnChannelClose()
	}
}

// sendDVCControl wraps a DRDYNVC control PDU in the drdynvc SVC framing.
func (c *Client) sendDVCControl(data []byte) error {
	return c.sendChannelData(drdynvc.ChannelName, vchannel.BuildSingle(data))
}

// handleRdpdrChannel defragments one RDPDR SVC chunk and dispatches the
// resulting control or I/O request PDU.
func (c *Client) handleRdpdrChannel(wire io.Reader) error {
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, wire); err != nil && err != io.EOF {
		return err
	}

	chunk, err := vchannel.ParseChunk(raw.Bytes())
	if err != nil {
		return fmt.Errorf("rdpdr: %w", err)
	}

	c.mu.Lock()
	payload, complete := c.rdpdrDefrag.Process(chunk)
	backend := c.driveRedirection
	c.mu.Unlock()
	if !complete {
		return nil
	}
	if len(payload) < 4 {
		return fmt.Errorf("rdpdr: short PDU")
	}

	packetID := binary.LittleEndian.Uint16(payload[2:4])
	body := payload[4:]

	switch packetID {
	case wirerdpdr.PacketIDServerAnnounce:
		return c.onRdpdrServerAnnounce(body)
	case wirerdpdr.PacketIDServerCapability:
		types, _ := wirerdpdr.ParseServerCapabilityTypes(body)
		logging.Debug("rdpdr: server capability request, types=%v", types)
		return c.sendRdpdrData(wirerdpdr.BuildClientCapabilityResponse())
	case wirerdpdr.PacketIDDeviceReply:
		reply, err := wirerdpdr.ParseDeviceReply(body)
		if err == nil {
			logging.Debug("rdpdr: device %d announce result=0x%08x", reply.DeviceID, reply.ResultCode)
		}
		return nil
	case wirerdpdr.PacketIDUserLoggedOn:
		return nil
	case wirerdpdr.PacketIDDeviceIORequest:
		if backend == nil {
			return nil
		}
		req, reqBody, err := wirerdpdr.ParseIoRequest(payload)
		if err != nil {
			return fmt.Errorf("rdpdr: %w", err)
		}
		return c.sendRdpdrData(backend.Dispatch(req, reqBody))
	default:
		logging.Debug("rdpdr: ignoring packetId 0x%04x", packetID)
		return nil
	}
}

func (c *Client) onRdpdrServerAnnounce(body []byte) error {
	announce, err := wirerdpdr.ParseServerAnnounceRequest(body)
	if err != nil {
		return fmt.Errorf("rdpdr: %w", err)
	}

	if err := c.sendRdpdrData(wirerdpdr.BuildClientAnnounceReply(announce.VersionMajor, announce.VersionMinor, announce.ClientID)); err != nil {
		return err
	}
	if err := c.sendRdpdrData(wirerdpdr.BuildClientNameRequest(rdpdrClientName())); err != nil {
		return err
	}

	c.mu.RLock()
	backend := c.driveRedirection
	c.mu.RUnlock()
	if backend == nil {
		return nil
	}

	var announces [][]byte
	for _, d := range backend.Drives() {
		announces = append(announces, d.DeviceAnnounce())
	}
	if len(announces) == 0 {
		return nil
	}
	return c.sendRdpdrData(wirerdpdr.BuildClientDeviceListAnnounce(announces))
}

// sendRdpdrData fragments and sends an RDPDR PDU over the rdpdr SVC.
func (c *Client) sendRdpdrData(pduBody []byte) error {
	for _, chunk := range vchannel.Build(pduBody) {
		if err := c.sendChannelData(wirerdpdr.ChannelName, chunk); err != nil {
			return err
		}
	}
	return nil
}

func rdpdrClientName() string {
	return "agent-rdp"
}
