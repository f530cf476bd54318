// Package vchannel implements the generic static virtual channel PDU
// framing shared by every SVC (MS-RDPBCGR 2.2.6.1): a chunk header
// carrying the total uncompressed length and first/last fragmentation
// flags, plus a defragmenter that reassembles a complete channel PDU
// from one or more chunks.
package vchannel

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Channel PDU flags (MS-RDPBCGR 2.2.6.1).
const (
	FlagFirst         uint32 = 0x00000001
	FlagLast          uint32 = 0x00000002
	FlagShowProtocol  uint32 = 0x00000010
	FlagSuspend       uint32 = 0x00000020
	FlagResume        uint32 = 0x00000040
	FlagCompress      uint32 = 0x00200000
	FlagPacketAt      uint32 = 0x00100000
	FlagPacketFlushed uint32 = 0x00080000
)

// ChunkMaxLength is the largest payload a single channel chunk may carry
// before the data must be fragmented across multiple PDUs.
const ChunkMaxLength = 1600

// Header is the virtual channel PDU header.
type Header struct {
	Length uint32 // total length of the uncompressed channel data
	Flags  uint32
}

func (h *Header) Serialize() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], h.Length)
	binary.LittleEndian.PutUint32(buf[4:8], h.Flags)
	return buf
}

func (h *Header) Deserialize(r io.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, &h.Length); err != nil {
		return fmt.Errorf("channel header length: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.Flags); err != nil {
		return fmt.Errorf("channel header flags: %w", err)
	}
	return nil
}

func (h *Header) IsFirst() bool    { return h.Flags&FlagFirst != 0 }
func (h *Header) IsLast() bool     { return h.Flags&FlagLast != 0 }
func (h *Header) IsComplete() bool { return h.IsFirst() && h.IsLast() }

// Chunk is one fragment of virtual channel data.
type Chunk struct {
	Header Header
	Data   []byte
}

// Defragmenter reassembles a sequence of chunks into a complete PDU.
type Defragmenter struct {
	buffer    bytes.Buffer
	receiving bool
}

// Process consumes a chunk and returns the complete payload once the
// final fragment has arrived.
func (d *Defragmenter) Process(chunk *Chunk) ([]byte, bool) {
	if chunk.Header.IsFirst() {
		d.buffer.Reset()
		d.receiving = true
	}

	if !d.receiving {
		return nil, false
	}

	d.buffer.Write(chunk.Data)

	if chunk.Header.IsLast() {
		d.receiving = false
		return d.buffer.Bytes(), true
	}

	return nil, false
}

// ParseChunk parses a raw channel PDU into its header and payload.
func ParseChunk(data []byte) (*Chunk, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("vchannel: chunk too short: %d bytes", len(data))
	}

	chunk := &Chunk{}
	if err := chunk.Header.Deserialize(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	chunk.Data = data[8:]
	return chunk, nil
}

// Build wraps a complete (already-serialized) PDU body into one or more
// channel chunks, fragmenting at ChunkMaxLength.
func Build(data []byte) [][]byte {
	if len(data) <= ChunkMaxLength {
		h := Header{Length: uint32(len(data)), Flags: FlagFirst | FlagLast}
		return [][]byte{append(h.Serialize(), data...)}
	}

	var chunks [][]byte
	for offset := 0; offset < len(data); offset += ChunkMaxLength {
		end := offset + ChunkMaxLength
		if end > len(data) {
			end = len(data)
		}

		var flags uint32
		if offset == 0 {
			flags |= FlagFirst
		}
		if end == len(data) {
			flags |= FlagLast
		}

		h := Header{Length: uint32(len(data)), Flags: flags}
		chunks = append(chunks, append(h.Serialize(), data[offset:end]...))
	}
	return chunks
}

// BuildSingle wraps data that is never expected to fragment (the common
// case for CLIPRDR/RDPDR control PDUs).
func BuildSingle(data []byte) []byte {
	h := Header{Length: uint32(len(data)), Flags: FlagFirst | FlagLast}
	return append(h.Serialize(), data...)
}
