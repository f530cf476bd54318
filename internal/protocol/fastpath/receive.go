package fastpath

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrUnexpectedX224 is returned when a server sends a slow-path (X.224)
// PDU where a Fast-Path update was expected. Callers fall back to the
// slow-path reader in that case.
var ErrUnexpectedX224 = errors.New("fastpath: unexpected X.224 action")

// UpdatePDUAction is the two-bit action field of the Fast-Path output
// header (MS-RDPBCGR 2.2.9.1.2.1).
type UpdatePDUAction uint8

const (
	UpdatePDUActionFastPath UpdatePDUAction = 0x0
	UpdatePDUActionX224     UpdatePDUAction = 0x3
)

// UpdatePDUFlag is the two-bit flags field of the Fast-Path output
// header.
type UpdatePDUFlag uint8

const (
	UpdatePDUFlagSecureChecksum UpdatePDUFlag = 0x1
	UpdatePDUFlagEncrypted      UpdatePDUFlag = 0x2
)

const maxUpdatePDULength = 0x4000

// UpdatePDU is one Fast-Path Server Update PDU: the outer header plus
// its undecoded payload. Data may contain one or more fastpath Update
// structures back to back.
type UpdatePDU struct {
	Action UpdatePDUAction
	Flags  UpdatePDUFlag
	Data   []byte
}

// Deserialize reads one Fast-Path output header and its length-prefixed
// payload from wire. The repo carries no transport security (TLS
// termination happens below fastpath), so encrypted or checksummed
// PDUs are rejected rather than decoded.
func (p *UpdatePDU) Deserialize(wire io.Reader) error {
	var header uint8
	if err := binary.Read(wire, binary.LittleEndian, &header); err != nil {
		return err
	}

	p.Action = UpdatePDUAction(header & 0x3)
	p.Flags = UpdatePDUFlag((header >> 6) & 0x3)

	if p.Action == UpdatePDUActionX224 {
		return ErrUnexpectedX224
	}

	if p.Flags&UpdatePDUFlagEncrypted != 0 {
		return fmt.Errorf("fastpath: encryption not supported")
	}
	if p.Flags&UpdatePDUFlagSecureChecksum != 0 {
		return fmt.Errorf("fastpath: secure checksum not supported")
	}

	length, err := readLength(wire)
	if err != nil {
		return err
	}
	if length > maxUpdatePDULength {
		return fmt.Errorf("fastpath: too big packet: %d bytes", length)
	}

	if cap(p.Data) >= int(length) {
		p.Data = p.Data[:length]
	} else {
		p.Data = make([]byte, length)
	}
	if length > 0 {
		if _, err := io.ReadFull(wire, p.Data); err != nil {
			return err
		}
	}
	return nil
}

// readLength reads the Fast-Path variable-length length field: one byte
// when the high bit is clear, two big-endian bytes (high bit masked
// off) otherwise.
func readLength(wire io.Reader) (uint16, error) {
	var first uint8
	if err := binary.Read(wire, binary.LittleEndian, &first); err != nil {
		return 0, err
	}
	if first&0x80 == 0 {
		return uint16(first), nil
	}

	var second uint8
	if err := binary.Read(wire, binary.LittleEndian, &second); err != nil {
		return 0, err
	}
	return (uint16(first&0x7f) << 8) | uint16(second), nil
}

// Receive reads and validates one Fast-Path Update PDU from the
// underlying connection.
func (p *Protocol) Receive() (*UpdatePDU, error) {
	pdu := &UpdatePDU{}
	if err := pdu.Deserialize(p.conn); err != nil {
		return nil, err
	}
	return pdu, nil
}

// Fragment is the two-bit fragmentation field of a fastpath Update
// header (MS-RDPBCGR 2.2.9.1.2.1.1).
type Fragment uint8

const (
	FragmentSingle Fragment = 0x0
	FragmentLast   Fragment = 0x1
	FragmentFirst  Fragment = 0x2
	FragmentNext   Fragment = 0x3
)

// Compression is the two-bit compression field of a fastpath Update
// header.
type Compression uint8

const CompressionUsed Compression = 0x2

// UpdateCode identifies the kind of graphics update carried by an
// Update (MS-RDPBCGR 2.2.9.1.1.3.1.1 updateType, reused verbatim as the
// Fast-Path updateCode).
type UpdateCode uint8

const (
	UpdateCodeOrders       UpdateCode = 0x0
	UpdateCodeBitmap       UpdateCode = 0x1
	UpdateCodePalette      UpdateCode = 0x2
	UpdateCodeSynchronize  UpdateCode = 0x3
	UpdateCodeSurfCMDs     UpdateCode = 0x4
	UpdateCodePTRNull      UpdateCode = 0x5
	UpdateCodePTRDefault   UpdateCode = 0x6
	UpdateCodePTRPosition  UpdateCode = 0x8
	UpdateCodeColor        UpdateCode = 0x9
	UpdateCodeCached       UpdateCode = 0xa
	UpdateCodePointer      UpdateCode = 0xb
	UpdateCodeLargePointer UpdateCode = 0xc
)

// Update is one decoded entry from a UpdatePDU's Data: a fastpath
// update header (updateCode, fragmentation, compression) followed by
// its payload.
type Update struct {
	UpdateCode    UpdateCode
	fragmentation Fragment
	compression   Compression
	size          uint16
	Data          []byte
}

// Deserialize reads one fastpath Update (MS-RDPBCGR 2.2.9.1.2.1.1).
// When compression is signalled, the compressionFlags byte is consumed
// but not interpreted; Data holds the payload exactly as received and
// no bulk decompression is applied to it.
func (u *Update) Deserialize(wire io.Reader) error {
	var header uint8
	if err := binary.Read(wire, binary.LittleEndian, &header); err != nil {
		return err
	}

	u.UpdateCode = UpdateCode(header & 0xf)
	u.fragmentation = Fragment((header >> 4) & 0x3)
	u.compression = Compression((header >> 6) & 0x3)

	if u.compression == CompressionUsed {
		var compressionFlags uint8
		if err := binary.Read(wire, binary.LittleEndian, &compressionFlags); err != nil {
			return err
		}
	}

	var size uint16
	if err := binary.Read(wire, binary.LittleEndian, &size); err != nil {
		return err
	}
	u.size = size

	u.Data = make([]byte, size)
	if size > 0 {
		if _, err := io.ReadFull(wire, u.Data); err != nil {
			return err
		}
	}
	return nil
}
