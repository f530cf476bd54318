package fastpath

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Fast-Path input header constants (MS-RDPBCGR 2.2.8.1.2).
const (
	fastPathActionInput uint8 = 0x00

	inputEventCodeScancode uint8 = 0x0
	inputEventCodeMouse    uint8 = 0x1
	inputEventCodeMouseX   uint8 = 0x2
	inputEventCodeSync     uint8 = 0x3
	inputEventCodeUnicode  uint8 = 0x4
)

// Keyboard event flags (fastpathNumericCode << 5).
const (
	KbdFlagRelease  uint8 = 0x01
	KbdFlagExtended uint8 = 0x02
)

// Pointer (mouse) event flags, MS-RDPBCGR 2.2.8.1.2.2.3.
const (
	PtrFlagMove       uint16 = 0x0800
	PtrFlagButton1    uint16 = 0x1000 // left
	PtrFlagButton2    uint16 = 0x2000 // right
	PtrFlagButton3    uint16 = 0x4000 // middle
	PtrFlagDown       uint16 = 0x8000
	PtrFlagWheel      uint16 = 0x0200
	PtrFlagHWheel     uint16 = 0x0400
	PtrFlagWheelNeg   uint16 = 0x0100
	WheelRotationMask uint16 = 0x01FF
)

// InputEvent is a single Fast-Path client input event ready to be
// serialized onto the wire.
type InputEvent interface {
	eventCode() uint8
	eventFlags() uint8
	serializeBody() []byte
}

// KeyboardEvent is a scancode keyboard press or release.
type KeyboardEvent struct {
	Scancode uint8
	Extended bool
	Release  bool
}

func (k KeyboardEvent) eventCode() uint8 { return inputEventCodeScancode }

func (k KeyboardEvent) eventFlags() uint8 {
	var f uint8
	if k.Release {
		f |= KbdFlagRelease
	}
	if k.Extended {
		f |= KbdFlagExtended
	}
	return f
}

func (k KeyboardEvent) serializeBody() []byte {
	return []byte{k.Scancode}
}

// UnicodeKeyboardEvent carries a UTF-16 code unit, used for typed text
// so that characters outside the US scancode table still arrive intact.
type UnicodeKeyboardEvent struct {
	Code    uint16
	Release bool
}

func (u UnicodeKeyboardEvent) eventCode() uint8 { return inputEventCodeUnicode }

func (u UnicodeKeyboardEvent) eventFlags() uint8 {
	if u.Release {
		return KbdFlagRelease
	}
	return 0
}

func (u UnicodeKeyboardEvent) serializeBody() []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, u.Code)
	return buf
}

// MouseEvent is a pointer move/button/wheel event.
type MouseEvent struct {
	Flags uint16
	X, Y  uint16
}

func (m MouseEvent) eventCode() uint8  { return inputEventCodeMouse }
func (m MouseEvent) eventFlags() uint8 { return 0 }

func (m MouseEvent) serializeBody() []byte {
	buf := make([]byte, 6)
	binary.LittleEndian.PutUint16(buf[0:2], m.Flags)
	binary.LittleEndian.PutUint16(buf[2:4], m.X)
	binary.LittleEndian.PutUint16(buf[4:6], m.Y)
	return buf
}

func serializeInputEvent(e InputEvent) []byte {
	header := (e.eventFlags() << 5) | (e.eventCode() & 0x1F)
	return append([]byte{header}, e.serializeBody()...)
}

// EncodeInputEventPDU builds a complete Fast-Path Input Event PDU
// (MS-RDPBCGR 2.2.8.1.2) carrying the given events in order.
func EncodeInputEventPDU(events []InputEvent) ([]byte, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("fastpath: no input events to encode")
	}
	if len(events) > 15 {
		return nil, fmt.Errorf("fastpath: at most 15 input events per PDU, got %d", len(events))
	}

	var body bytes.Buffer
	for _, e := range events {
		body.Write(serializeInputEvent(e))
	}

	numEvents := uint8(len(events))
	header := fastPathActionInput | (numEvents << 2)

	bodyLen := body.Len()
	totalLen := 2 + bodyLen // header + 1-byte length assumed first

	var pdu bytes.Buffer
	pdu.WriteByte(header)
	if totalLen < 0x80 {
		pdu.WriteByte(byte(totalLen))
	} else {
		// Recompute with a 2-byte length field.
		totalLen = 1 + 2 + bodyLen
		lenField := uint16(totalLen) | 0x8000
		var lb [2]byte
		binary.BigEndian.PutUint16(lb[:], lenField)
		pdu.Write(lb[:])
	}
	pdu.Write(body.Bytes())

	return pdu.Bytes(), nil
}

// Send writes a Fast-Path Input Event PDU containing the given events.
func (p *Protocol) Send(events []InputEvent) error {
	pdu, err := EncodeInputEventPDU(events)
	if err != nil {
		return err
	}
	_, err = p.conn.Write(pdu)
	return err
}
