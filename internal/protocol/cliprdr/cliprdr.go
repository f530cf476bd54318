// Package cliprdr implements the client side of the RDP clipboard virtual
// channel protocol (MS-RDPECLIP), carried over the static "cliprdr"
// channel using the generic vchannel framing.
package cliprdr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// ChannelName is the static virtual channel name registered at MCS
// connect time.
const ChannelName = "cliprdr"

// Message types (MS-RDPECLIP 2.2.2).
const (
	MsgTypeMonitorReady       uint16 = 0x0001
	MsgTypeFormatList         uint16 = 0x0002
	MsgTypeFormatListResponse uint16 = 0x0003
	MsgTypeFormatDataRequest  uint16 = 0x0004
	MsgTypeFormatDataResponse uint16 = 0x0005
	MsgTypeTempDirectory      uint16 = 0x0006
	MsgTypeClipCaps           uint16 = 0x0007
	MsgTypeFileContentsReq    uint16 = 0x0008
	MsgTypeFileContentsResp   uint16 = 0x0009
	MsgTypeLockClipData       uint16 = 0x000A
	MsgTypeUnlockClipData     uint16 = 0x000B
)

// Message flags (MS-RDPECLIP 2.2.1).
const (
	FlagResponseOK   uint16 = 0x0001
	FlagResponseFail uint16 = 0x0002
	FlagASCIINames   uint16 = 0x0004
)

// General capability flags (MS-RDPECLIP 2.2.2.1.1).
const (
	GeneralCapsUseLongFormatNames uint32 = 0x00000002
)

// FormatIDUnicodeText is the standard Windows clipboard format for
// null-terminated UTF-16LE text (CF_UNICODETEXT).
const FormatIDUnicodeText uint32 = 13

// Header is the CLIPRDR_HEADER present on every PDU.
type Header struct {
	MsgType  uint16
	MsgFlags uint16
	DataLen  uint32
}

func (h *Header) Serialize() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint16(buf[0:2], h.MsgType)
	binary.LittleEndian.PutUint16(buf[2:4], h.MsgFlags)
	binary.LittleEndian.PutUint32(buf[4:8], h.DataLen)
	return buf
}

func (h *Header) Deserialize(r *bytes.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, &h.MsgType); err != nil {
		return fmt.Errorf("cliprdr header msgType: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.MsgFlags); err != nil {
		return fmt.Errorf("cliprdr header msgFlags: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.DataLen); err != nil {
		return fmt.Errorf("cliprdr header dataLen: %w", err)
	}
	return nil
}

// PDU is a decoded CLIPRDR message: header plus raw body bytes.
type PDU struct {
	Header Header
	Body   []byte
}

// Parse decodes a complete (defragmented) CLIPRDR PDU.
func Parse(data []byte) (*PDU, error) {
	r := bytes.NewReader(data)
	var h Header
	if err := h.Deserialize(r); err != nil {
		return nil, err
	}
	body := make([]byte, r.Len())
	if _, err := r.Read(body); err != nil && len(body) > 0 {
		return nil, fmt.Errorf("cliprdr body: %w", err)
	}
	return &PDU{Header: h, Body: body}, nil
}

// Build serializes a CLIPRDR message.
func Build(msgType, msgFlags uint16, body []byte) []byte {
	h := Header{MsgType: msgType, MsgFlags: msgFlags, DataLen: uint32(len(body))}
	return append(h.Serialize(), body...)
}

// FormatListEntry is one entry in a Format List PDU (long format name
// variant, MS-RDPECLIP 2.2.3.1.2).
type FormatListEntry struct {
	FormatID uint32
	Name     string // empty for standard clipboard formats
}

// BuildFormatList encodes a CB_FORMAT_LIST PDU announcing the given
// formats using long format names.
func BuildFormatList(entries []FormatListEntry) []byte {
	var body bytes.Buffer
	for _, e := range entries {
		var idBuf [4]byte
		binary.LittleEndian.PutUint32(idBuf[:], e.FormatID)
		body.Write(idBuf[:])

		for _, r := range utf16.Encode([]rune(e.Name)) {
			var rb [2]byte
			binary.LittleEndian.PutUint16(rb[:], r)
			body.Write(rb[:])
		}
		body.Write([]byte{0x00, 0x00}) // terminating null
	}
	return Build(MsgTypeFormatList, 0, body.Bytes())
}

// ParseFormatList decodes a CB_FORMAT_LIST body of long format name
// entries.
func ParseFormatList(body []byte) ([]FormatListEntry, error) {
	var entries []FormatListEntry
	for len(body) >= 4 {
		id := binary.LittleEndian.Uint32(body[0:4])
		body = body[4:]

		var units []uint16
		for len(body) >= 2 {
			u := binary.LittleEndian.Uint16(body[0:2])
			body = body[2:]
			if u == 0 {
				break
			}
			units = append(units, u)
		}

		entries = append(entries, FormatListEntry{
			FormatID: id,
			Name:     string(utf16.Decode(units)),
		})
	}
	return entries, nil
}

// EncodeUnicodeText encodes text as null-terminated UTF-16LE, the body
// of a successful CB_FORMAT_DATA_RESPONSE for CF_UNICODETEXT.
func EncodeUnicodeText(text string) []byte {
	var buf bytes.Buffer
	for _, r := range utf16.Encode([]rune(text)) {
		var rb [2]byte
		binary.LittleEndian.PutUint16(rb[:], r)
		buf.Write(rb[:])
	}
	buf.Write([]byte{0x00, 0x00})
	return buf.Bytes()
}

// DecodeUnicodeText decodes a null-terminated (or not) UTF-16LE buffer,
// stripping any trailing NUL.
func DecodeUnicodeText(data []byte) string {
	n := len(data) / 2
	units := make([]uint16, 0, n)
	for i := 0; i+1 < len(data); i += 2 {
		u := binary.LittleEndian.Uint16(data[i : i+2])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

// BuildFormatDataRequest encodes a CB_FORMAT_DATA_REQUEST for formatID.
func BuildFormatDataRequest(formatID uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], formatID)
	return Build(MsgTypeFormatDataRequest, 0, buf[:])
}

// ParseFormatDataRequest extracts the requested format id.
func ParseFormatDataRequest(body []byte) (uint32, error) {
	if len(body) < 4 {
		return 0, fmt.Errorf("cliprdr: short format data request")
	}
	return binary.LittleEndian.Uint32(body[0:4]), nil
}
