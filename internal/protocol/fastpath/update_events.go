package fastpath

import (
	"bytes"
	"encoding/binary"
	"io"
)

// PaletteEntry is one RGB triple from a palette update
// (MS-RDPBCGR 2.2.9.1.1.3.1.1.1).
type PaletteEntry struct {
	Red, Green, Blue uint8
}

func (e *PaletteEntry) Deserialize(wire io.Reader) error {
	buf := make([]byte, 3)
	if _, err := io.ReadFull(wire, buf); err != nil {
		return err
	}
	e.Red, e.Green, e.Blue = buf[0], buf[1], buf[2]
	return nil
}

// paletteUpdateData is the body of a palette update
// (MS-RDPBCGR 2.2.9.1.1.3.1.1.1).
type paletteUpdateData struct {
	PaletteEntries []PaletteEntry
}

func (d *paletteUpdateData) Deserialize(wire io.Reader) error {
	var updateType, pad uint16
	if err := binary.Read(wire, binary.LittleEndian, &updateType); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &pad); err != nil {
		return err
	}

	var numberColors uint16
	if err := binary.Read(wire, binary.LittleEndian, &numberColors); err != nil {
		return err
	}

	d.PaletteEntries = make([]PaletteEntry, 0, numberColors)
	for i := uint16(0); i < numberColors; i++ {
		var entry PaletteEntry
		if err := entry.Deserialize(wire); err != nil {
			return err
		}
		d.PaletteEntries = append(d.PaletteEntries, entry)
	}
	return nil
}

// CompressedDataHeader precedes compressed bitmap data when
// NO_BITMAP_COMPRESSION_HDR is not set (MS-RDPBCGR 2.2.9.1.1.3.1.2.3).
type CompressedDataHeader struct {
	CbCompFirstRowSize uint16
	CbCompMainBodySize uint16
	CbScanWidth        uint16
	CbUncompressedSize uint16
}

func (h *CompressedDataHeader) Deserialize(wire io.Reader) error {
	fields := []*uint16{&h.CbCompFirstRowSize, &h.CbCompMainBodySize, &h.CbScanWidth, &h.CbUncompressedSize}
	for _, f := range fields {
		if err := binary.Read(wire, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	return nil
}

// BitmapDataFlag is the Flags field of a TS_BITMAP_DATA structure.
type BitmapDataFlag uint16

const (
	BitmapDataFlagCompression BitmapDataFlag = 0x0001
	BitmapDataFlagNoHDR       BitmapDataFlag = 0x0400
)

// BitmapData is one TS_BITMAP_DATA rectangle (MS-RDPBCGR 2.2.9.1.1.3.1.2).
type BitmapData struct {
	DestLeft, DestTop, DestRight, DestBottom uint16
	Width, Height                            uint16
	BitsPerPixel                             uint16
	Flags                                    BitmapDataFlag
	BitmapLength                             uint16
	ComprHdr                                 *CompressedDataHeader
	Data                                     []byte
}

func (b *BitmapData) Deserialize(wire io.Reader) error {
	fields := []*uint16{&b.DestLeft, &b.DestTop, &b.DestRight, &b.DestBottom, &b.Width, &b.Height, &b.BitsPerPixel}
	for _, f := range fields {
		if err := binary.Read(wire, binary.LittleEndian, f); err != nil {
			return err
		}
	}

	var flags uint16
	if err := binary.Read(wire, binary.LittleEndian, &flags); err != nil {
		return err
	}
	b.Flags = BitmapDataFlag(flags)

	if err := binary.Read(wire, binary.LittleEndian, &b.BitmapLength); err != nil {
		return err
	}

	streamLength := b.BitmapLength
	hasHdr := b.Flags&BitmapDataFlagCompression != 0 && b.Flags&BitmapDataFlagNoHDR == 0
	if hasHdr {
		hdr := &CompressedDataHeader{}
		if err := hdr.Deserialize(wire); err != nil {
			return err
		}
		b.ComprHdr = hdr
		if streamLength >= 8 {
			streamLength -= 8
		}
	}

	b.Data = make([]byte, streamLength)
	if streamLength > 0 {
		if _, err := io.ReadFull(wire, b.Data); err != nil {
			return err
		}
	}
	return nil
}

// IsCompressed reports whether the rectangle's stream is RLE-compressed.
func (b *BitmapData) IsCompressed() bool {
	return b.Flags&BitmapDataFlagCompression != 0
}

// bitmapUpdateData is the body of a slow-path/Fast-Path bitmap update
// (MS-RDPBCGR 2.2.9.1.1.3.1.2).
type bitmapUpdateData struct {
	Rectangles []BitmapData
}

func (d *bitmapUpdateData) Deserialize(wire io.Reader) error {
	var updateType, numberRectangles uint16
	if err := binary.Read(wire, binary.LittleEndian, &updateType); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &numberRectangles); err != nil {
		return err
	}

	d.Rectangles = make([]BitmapData, 0, numberRectangles)
	for i := uint16(0); i < numberRectangles; i++ {
		var rect BitmapData
		if err := rect.Deserialize(wire); err != nil {
			return err
		}
		d.Rectangles = append(d.Rectangles, rect)
	}
	return nil
}

// ParseBitmapRectangles parses the rectangle list that follows the
// updateType field of a TS_UPDATE_BITMAP_DATA structure
// (MS-RDPBCGR 2.2.9.1.1.3.1.2): numberRectangles followed by that many
// TS_BITMAP_DATA entries. Callers that already consumed updateType
// themselves (the slow-path reader strips it while classifying the
// update) pass the remaining bytes here.
func ParseBitmapRectangles(data []byte) ([]BitmapData, error) {
	wire := bytes.NewReader(data)

	var numberRectangles uint16
	if err := binary.Read(wire, binary.LittleEndian, &numberRectangles); err != nil {
		return nil, err
	}

	rects := make([]BitmapData, 0, numberRectangles)
	for i := uint16(0); i < numberRectangles; i++ {
		var rect BitmapData
		if err := rect.Deserialize(wire); err != nil {
			return nil, err
		}
		rects = append(rects, rect)
	}
	return rects, nil
}

// pointerPositionUpdateData is the body of a PTR_POSITION update
// (MS-RDPBCGR 2.2.9.1.1.4.2).
type pointerPositionUpdateData struct {
	xPos, yPos uint16
}

func (d *pointerPositionUpdateData) Deserialize(wire io.Reader) error {
	if err := binary.Read(wire, binary.LittleEndian, &d.xPos); err != nil {
		return err
	}
	return binary.Read(wire, binary.LittleEndian, &d.yPos)
}

// colorPointerUpdateData is the body of a color pointer update
// (MS-RDPBCGR 2.2.9.1.1.4.4).
type colorPointerUpdateData struct {
	cacheIndex                   uint16
	xPos, yPos                   uint16
	width, height                uint16
	lengthAndMask, lengthXorMask uint16
	xorMaskData, andMaskData     []byte
}

func (d *colorPointerUpdateData) Deserialize(wire io.Reader) error {
	fields := []*uint16{&d.cacheIndex, &d.xPos, &d.yPos, &d.width, &d.height, &d.lengthAndMask, &d.lengthXorMask}
	for _, f := range fields {
		if err := binary.Read(wire, binary.LittleEndian, f); err != nil {
			return err
		}
	}

	d.xorMaskData = make([]byte, d.lengthXorMask)
	if d.lengthXorMask > 0 {
		if _, err := io.ReadFull(wire, d.xorMaskData); err != nil {
			return err
		}
	}

	d.andMaskData = make([]byte, d.lengthAndMask)
	if d.lengthAndMask > 0 {
		if _, err := io.ReadFull(wire, d.andMaskData); err != nil {
			return err
		}
	}

	var pad uint8
	return binary.Read(wire, binary.LittleEndian, &pad)
}
