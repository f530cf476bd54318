package pdu

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// CapabilitySetType identifies the kind of a capability set entry carried in
// a Demand Active or Confirm Active PDU (MS-RDPBCGR 2.2.1.13).
type CapabilitySetType uint16

const (
	CapabilitySetTypeGeneral                CapabilitySetType = 0x0001
	CapabilitySetTypeBitmap                 CapabilitySetType = 0x0002
	CapabilitySetTypeOrder                  CapabilitySetType = 0x0003
	CapabilitySetTypeBitmapCache            CapabilitySetType = 0x0004
	CapabilitySetTypeControl                CapabilitySetType = 0x0005
	CapabilitySetTypeActivation             CapabilitySetType = 0x0007
	CapabilitySetTypePointer                CapabilitySetType = 0x0008
	CapabilitySetTypeShare                  CapabilitySetType = 0x0009
	CapabilitySetTypeColorCache             CapabilitySetType = 0x000A
	CapabilitySetTypeSound                  CapabilitySetType = 0x000C
	CapabilitySetTypeInput                  CapabilitySetType = 0x000D
	CapabilitySetTypeFont                   CapabilitySetType = 0x000E
	CapabilitySetTypeBrush                  CapabilitySetType = 0x000F
	CapabilitySetTypeGlyphCache             CapabilitySetType = 0x0010
	CapabilitySetTypeOffscreenBitmapCache   CapabilitySetType = 0x0011
	CapabilitySetTypeBitmapCacheHostSupport CapabilitySetType = 0x0012
	CapabilitySetTypeBitmapCacheRev2        CapabilitySetType = 0x0013
	CapabilitySetTypeVirtualChannel         CapabilitySetType = 0x0014
	CapabilitySetTypeDrawNineGridCache      CapabilitySetType = 0x0015
	CapabilitySetTypeDrawGDIPlus            CapabilitySetType = 0x0016
	CapabilitySetTypeRail                   CapabilitySetType = 0x0017
	CapabilitySetTypeWindow                 CapabilitySetType = 0x0018
	CapabilitySetTypeDesktopComposition     CapabilitySetType = 0x0019
	CapabilitySetTypeMultifragmentUpdate    CapabilitySetType = 0x001A
	CapabilitySetTypeLargePointer           CapabilitySetType = 0x001B
	CapabilitySetTypeSurfaceCommands        CapabilitySetType = 0x001C
	CapabilitySetTypeBitmapCodecs           CapabilitySetType = 0x001D
	CapabilitySetTypeFrameAcknowledge       CapabilitySetType = 0x001E
)

// CapabilitySet is a tagged union over every TS_*_CAPABILITYSET structure
// exchanged during capability negotiation. Exactly one of the embedded
// pointers is populated, selected by CapabilitySetType.
type CapabilitySet struct {
	CapabilitySetType CapabilitySetType

	GeneralCapabilitySet                *GeneralCapabilitySet
	BitmapCapabilitySet                 *BitmapCapabilitySet
	OrderCapabilitySet                  *OrderCapabilitySet
	BitmapCacheCapabilitySetRev1        *BitmapCacheCapabilitySetRev1
	BitmapCacheCapabilitySetRev2        *BitmapCacheCapabilitySetRev2
	ColorCacheCapabilitySet             *ColorCacheCapabilitySet
	ControlCapabilitySet                *ControlCapabilitySet
	WindowActivationCapabilitySet       *WindowActivationCapabilitySet
	ShareCapabilitySet                  *ShareCapabilitySet
	PointerCapabilitySet                *PointerCapabilitySet
	InputCapabilitySet                  *InputCapabilitySet
	FontCapabilitySet                   *FontCapabilitySet
	BrushCapabilitySet                  *BrushCapabilitySet
	GlyphCacheCapabilitySet             *GlyphCacheCapabilitySet
	OffscreenBitmapCacheCapabilitySet   *OffscreenBitmapCacheCapabilitySet
	BitmapCacheHostSupportCapabilitySet *BitmapCacheHostSupportCapabilitySet
	VirtualChannelCapabilitySet         *VirtualChannelCapabilitySet
	DrawNineGridCacheCapabilitySet      *DrawNineGridCacheCapabilitySet
	DrawGDIPlusCapabilitySet            *DrawGDIPlusCapabilitySet
	RailCapabilitySet                   *RailCapabilitySet
	WindowListCapabilitySet             *WindowListCapabilitySet
	DesktopCompositionCapabilitySet     *DesktopCompositionCapabilitySet
	MultifragmentUpdateCapabilitySet    *MultifragmentUpdateCapabilitySet
	LargePointerCapabilitySet           *LargePointerCapabilitySet
	SurfaceCommandsCapabilitySet        *SurfaceCommandsCapabilitySet
	BitmapCodecsCapabilitySet           *BitmapCodecsCapabilitySet
	FrameAcknowledgeCapabilitySet       *FrameAcknowledgeCapabilitySet
	SoundCapabilitySet                  *SoundCapabilitySet

	// Raw carries the undecoded body for capability set types this client
	// doesn't model explicitly (e.g. ones only the server ever sends).
	Raw []byte
}

// body returns the serialized payload for whichever capability set is set.
func (s *CapabilitySet) body() []byte {
	switch {
	case s.GeneralCapabilitySet != nil:
		return s.GeneralCapabilitySet.Serialize()
	case s.BitmapCapabilitySet != nil:
		return s.BitmapCapabilitySet.Serialize()
	case s.OrderCapabilitySet != nil:
		return s.OrderCapabilitySet.Serialize()
	case s.BitmapCacheCapabilitySetRev1 != nil:
		return s.BitmapCacheCapabilitySetRev1.Serialize()
	case s.BitmapCacheCapabilitySetRev2 != nil:
		return s.BitmapCacheCapabilitySetRev2.Serialize()
	case s.ColorCacheCapabilitySet != nil:
		return s.ColorCacheCapabilitySet.Serialize()
	case s.ControlCapabilitySet != nil:
		return s.ControlCapabilitySet.Serialize()
	case s.WindowActivationCapabilitySet != nil:
		return s.WindowActivationCapabilitySet.Serialize()
	case s.ShareCapabilitySet != nil:
		return s.ShareCapabilitySet.Serialize()
	case s.PointerCapabilitySet != nil:
		return s.PointerCapabilitySet.Serialize()
	case s.InputCapabilitySet != nil:
		return s.InputCapabilitySet.Serialize()
	case s.FontCapabilitySet != nil:
		return s.FontCapabilitySet.Serialize()
	case s.BrushCapabilitySet != nil:
		return s.BrushCapabilitySet.Serialize()
	case s.GlyphCacheCapabilitySet != nil:
		return s.GlyphCacheCapabilitySet.Serialize()
	case s.OffscreenBitmapCacheCapabilitySet != nil:
		return s.OffscreenBitmapCacheCapabilitySet.Serialize()
	case s.VirtualChannelCapabilitySet != nil:
		return s.VirtualChannelCapabilitySet.Serialize()
	case s.DrawNineGridCacheCapabilitySet != nil:
		return s.DrawNineGridCacheCapabilitySet.Serialize()
	case s.DrawGDIPlusCapabilitySet != nil:
		return s.DrawGDIPlusCapabilitySet.Serialize()
	case s.RailCapabilitySet != nil:
		return s.RailCapabilitySet.Serialize()
	case s.WindowListCapabilitySet != nil:
		return s.WindowListCapabilitySet.Serialize()
	case s.MultifragmentUpdateCapabilitySet != nil:
		return s.MultifragmentUpdateCapabilitySet.Serialize()
	case s.SurfaceCommandsCapabilitySet != nil:
		return s.SurfaceCommandsCapabilitySet.Serialize()
	case s.BitmapCodecsCapabilitySet != nil:
		return s.BitmapCodecsCapabilitySet.Serialize()
	case s.FrameAcknowledgeCapabilitySet != nil:
		return s.FrameAcknowledgeCapabilitySet.Serialize()
	case s.SoundCapabilitySet != nil:
		return s.SoundCapabilitySet.Serialize()
	case s.LargePointerCapabilitySet != nil:
		return s.LargePointerCapabilitySet.Serialize()
	case s.DesktopCompositionCapabilitySet != nil:
		return s.DesktopCompositionCapabilitySet.Serialize()
	case s.BitmapCacheHostSupportCapabilitySet != nil:
		return s.BitmapCacheHostSupportCapabilitySet.Serialize()
	default:
		return s.Raw
	}
}

// Serialize encodes the capability set header and body to wire format.
func (s *CapabilitySet) Serialize() []byte {
	body := s.body()

	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, uint16(s.CapabilitySetType))
	_ = binary.Write(buf, binary.LittleEndian, uint16(4+len(body))) // #nosec G115
	buf.Write(body)

	return buf.Bytes()
}

// Deserialize decodes the capability set header and, for known types,
// dispatches the body to the matching sub-structure.
func (s *CapabilitySet) Deserialize(wire io.Reader) error {
	var (
		capType   uint16
		capLength uint16
	)

	if err := binary.Read(wire, binary.LittleEndian, &capType); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &capLength); err != nil {
		return err
	}
	if capLength < 4 {
		return fmt.Errorf("capability set length too small: %d", capLength)
	}

	body := make([]byte, capLength-4)
	if _, err := io.ReadFull(wire, body); err != nil {
		return err
	}

	s.CapabilitySetType = CapabilitySetType(capType)
	r := bytes.NewReader(body)

	switch s.CapabilitySetType {
	case CapabilitySetTypeGeneral:
		s.GeneralCapabilitySet = &GeneralCapabilitySet{}
		return s.GeneralCapabilitySet.Deserialize(r)
	case CapabilitySetTypeBitmap:
		s.BitmapCapabilitySet = &BitmapCapabilitySet{}
		return s.BitmapCapabilitySet.Deserialize(r)
	case CapabilitySetTypeOrder:
		s.OrderCapabilitySet = &OrderCapabilitySet{}
		return s.OrderCapabilitySet.Deserialize(r)
	case CapabilitySetTypeBitmapCache:
		s.BitmapCacheCapabilitySetRev1 = &BitmapCacheCapabilitySetRev1{}
		return s.BitmapCacheCapabilitySetRev1.Deserialize(r)
	case CapabilitySetTypeBitmapCacheRev2:
		s.BitmapCacheCapabilitySetRev2 = &BitmapCacheCapabilitySetRev2{}
		return s.BitmapCacheCapabilitySetRev2.Deserialize(r)
	case CapabilitySetTypeColorCache:
		s.ColorCacheCapabilitySet = &ColorCacheCapabilitySet{}
		return s.ColorCacheCapabilitySet.Deserialize(r)
	case CapabilitySetTypeControl:
		s.ControlCapabilitySet = &ControlCapabilitySet{}
		return s.ControlCapabilitySet.Deserialize(r)
	case CapabilitySetTypeActivation:
		s.WindowActivationCapabilitySet = &WindowActivationCapabilitySet{}
		return s.WindowActivationCapabilitySet.Deserialize(r)
	case CapabilitySetTypeShare:
		s.ShareCapabilitySet = &ShareCapabilitySet{}
		return s.ShareCapabilitySet.Deserialize(r)
	case CapabilitySetTypePointer:
		s.PointerCapabilitySet = &PointerCapabilitySet{lengthCapability: capLength}
		return s.PointerCapabilitySet.Deserialize(r)
	case CapabilitySetTypeInput:
		s.InputCapabilitySet = &InputCapabilitySet{}
		return s.InputCapabilitySet.Deserialize(r)
	case CapabilitySetTypeFont:
		s.FontCapabilitySet = &FontCapabilitySet{}
		return s.FontCapabilitySet.Deserialize(r)
	case CapabilitySetTypeBrush:
		s.BrushCapabilitySet = &BrushCapabilitySet{}
		return s.BrushCapabilitySet.Deserialize(r)
	case CapabilitySetTypeGlyphCache:
		s.GlyphCacheCapabilitySet = &GlyphCacheCapabilitySet{}
		return s.GlyphCacheCapabilitySet.Deserialize(r)
	case CapabilitySetTypeOffscreenBitmapCache:
		s.OffscreenBitmapCacheCapabilitySet = &OffscreenBitmapCacheCapabilitySet{}
		return s.OffscreenBitmapCacheCapabilitySet.Deserialize(r)
	case CapabilitySetTypeBitmapCacheHostSupport:
		s.BitmapCacheHostSupportCapabilitySet = &BitmapCacheHostSupportCapabilitySet{}
		return s.BitmapCacheHostSupportCapabilitySet.Deserialize(r)
	case CapabilitySetTypeVirtualChannel:
		s.VirtualChannelCapabilitySet = &VirtualChannelCapabilitySet{}
		return s.VirtualChannelCapabilitySet.Deserialize(r)
	case CapabilitySetTypeDrawNineGridCache:
		s.DrawNineGridCacheCapabilitySet = &DrawNineGridCacheCapabilitySet{}
		return s.DrawNineGridCacheCapabilitySet.Deserialize(r)
	case CapabilitySetTypeDrawGDIPlus:
		s.DrawGDIPlusCapabilitySet = &DrawGDIPlusCapabilitySet{}
		return s.DrawGDIPlusCapabilitySet.Deserialize(r)
	case CapabilitySetTypeDesktopComposition:
		s.DesktopCompositionCapabilitySet = &DesktopCompositionCapabilitySet{}
		return s.DesktopCompositionCapabilitySet.Deserialize(r)
	case CapabilitySetTypeMultifragmentUpdate:
		s.MultifragmentUpdateCapabilitySet = &MultifragmentUpdateCapabilitySet{}
		return s.MultifragmentUpdateCapabilitySet.Deserialize(r)
	case CapabilitySetTypeLargePointer:
		s.LargePointerCapabilitySet = &LargePointerCapabilitySet{}
		return s.LargePointerCapabilitySet.Deserialize(r)
	case CapabilitySetTypeSurfaceCommands:
		s.SurfaceCommandsCapabilitySet = &SurfaceCommandsCapabilitySet{}
		return s.SurfaceCommandsCapabilitySet.Deserialize(r)
	case CapabilitySetTypeBitmapCodecs:
		s.BitmapCodecsCapabilitySet = &BitmapCodecsCapabilitySet{}
		return s.BitmapCodecsCapabilitySet.Deserialize(r)
	case CapabilitySetTypeFrameAcknowledge:
		s.FrameAcknowledgeCapabilitySet = &FrameAcknowledgeCapabilitySet{}
		return s.FrameAcknowledgeCapabilitySet.Deserialize(r)
	case CapabilitySetTypeSound:
		s.SoundCapabilitySet = &SoundCapabilitySet{}
		return s.SoundCapabilitySet.Deserialize(r)
	default:
		s.Raw = body
		return nil
	}
}

// DeserializeQuick reads only the capability set header, leaving the
// CapabilitySetType populated without decoding the body. Used by callers
// that only need to recognize which capability sets a peer advertised.
func (s *CapabilitySet) DeserializeQuick(wire io.Reader) error {
	var (
		capType   uint16
		capLength uint16
	)

	if err := binary.Read(wire, binary.LittleEndian, &capType); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &capLength); err != nil {
		return err
	}
	if capLength < 4 {
		return fmt.Errorf("capability set length too small: %d", capLength)
	}

	s.CapabilitySetType = CapabilitySetType(capType)
	_, err := io.CopyN(io.Discard, wire, int64(capLength-4))
	return err
}

// Serialize encodes the capability set to wire format.
func (s *LargePointerCapabilitySet) Serialize() []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, s.LargePointerSupportFlags)
	return buf.Bytes()
}

// Serialize encodes the capability set to wire format.
func (s *DesktopCompositionCapabilitySet) Serialize() []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, s.CompDeskSupportLevel)
	return buf.Bytes()
}

// Serialize encodes the capability set to wire format.
func (s *BitmapCacheHostSupportCapabilitySet) Serialize() []byte {
	buf := new(bytes.Buffer)

	_ = binary.Write(buf, binary.LittleEndian, uint8(1))  // cacheVersion
	_ = binary.Write(buf, binary.LittleEndian, uint8(0))  // pad1
	_ = binary.Write(buf, binary.LittleEndian, uint16(0)) // pad2

	return buf.Bytes()
}

// FrameAcknowledgeCapabilitySet represents the TS_FRAME_ACKNOWLEDGE_CAPABILITYSET
// structure (MS-RDPBCGR 2.2.7.2.7).
type FrameAcknowledgeCapabilitySet struct {
	MaxUnacknowledgedFrames uint32
}

// NewFrameAcknowledgeCapabilitySet creates a Frame Acknowledge Capability Set.
func NewFrameAcknowledgeCapabilitySet() CapabilitySet {
	return CapabilitySet{
		CapabilitySetType: CapabilitySetTypeFrameAcknowledge,
		FrameAcknowledgeCapabilitySet: &FrameAcknowledgeCapabilitySet{
			MaxUnacknowledgedFrames: 2,
		},
	}
}

// Serialize encodes the capability set to wire format.
func (s *FrameAcknowledgeCapabilitySet) Serialize() []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, s.MaxUnacknowledgedFrames)
	return buf.Bytes()
}

// Deserialize decodes the capability set from wire format.
func (s *FrameAcknowledgeCapabilitySet) Deserialize(wire io.Reader) error {
	return binary.Read(wire, binary.LittleEndian, &s.MaxUnacknowledgedFrames)
}

// NewBitmapCodecsWithRFXCapabilitySet creates a capability set advertising
// both NSCodec and RemoteFX support, used when RemoteFX is enabled.
func NewBitmapCodecsWithRFXCapabilitySet() CapabilitySet {
	nscodecProps := NSCodecCapabilitySet{
		FAllowDynamicFidelity: 1,
		FAllowSubsampling:     1,
		ColorLossLevel:        3,
	}

	return CapabilitySet{
		CapabilitySetType: CapabilitySetTypeBitmapCodecs,
		BitmapCodecsCapabilitySet: &BitmapCodecsCapabilitySet{
			BitmapCodecArray: []BitmapCodec{
				{
					CodecGUID:       NSCodecGUID,
					CodecID:         1,
					CodecProperties: nscodecProps.Serialize(),
				},
				{
					CodecGUID:       remoteFXGUID,
					CodecID:         2,
					CodecProperties: []byte{},
				},
			},
		},
	}
}

// remoteFXGUID is the GUID for RemoteFX (76772F12-BD72-4463-AFB3-B73C9C6F7886).
var remoteFXGUID = [16]byte{
	0x12, 0x2F, 0x77, 0x76, 0x72, 0xBD, 0x63, 0x44,
	0xAF, 0xB3, 0xB7, 0x3C, 0x9C, 0x6F, 0x78, 0x86,
}

// ServerDemandActive represents the TS_DEMAND_ACTIVE_PDU sent by the server
// to begin the capabilities exchange (MS-RDPBCGR 2.2.1.13.1).
type ServerDemandActive struct {
	ShareID          uint32
	SourceDescriptor string
	CapabilitySets   []CapabilitySet
}

// Deserialize decodes the PDU, including its share control header, from wire format.
func (d *ServerDemandActive) Deserialize(wire io.Reader) error {
	var header ShareControlHeader
	if err := header.Deserialize(wire); err != nil {
		return err
	}

	if err := binary.Read(wire, binary.LittleEndian, &d.ShareID); err != nil {
		return err
	}

	var lengthSourceDescriptor, lengthCombinedCapabilities uint16
	if err := binary.Read(wire, binary.LittleEndian, &lengthSourceDescriptor); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &lengthCombinedCapabilities); err != nil {
		return err
	}

	sourceDescriptor := make([]byte, lengthSourceDescriptor)
	if _, err := io.ReadFull(wire, sourceDescriptor); err != nil {
		return err
	}
	d.SourceDescriptor = string(sourceDescriptor)

	var numberCapabilities, pad2Octets uint16
	if err := binary.Read(wire, binary.LittleEndian, &numberCapabilities); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &pad2Octets); err != nil {
		return err
	}

	d.CapabilitySets = make([]CapabilitySet, numberCapabilities)
	for i := range d.CapabilitySets {
		if err := d.CapabilitySets[i].Deserialize(wire); err != nil {
			return fmt.Errorf("capability set %d: %w", i, err)
		}
	}

	// sessionId trails the PDU; ignore if absent.
	var sessionID uint32
	_ = binary.Read(wire, binary.LittleEndian, &sessionID)

	return nil
}

// ClientConfirmActive represents the TS_CONFIRM_ACTIVE_PDU sent by the
// client in response to a Demand Active PDU (MS-RDPBCGR 2.2.1.13.2).
type ClientConfirmActive struct {
	ShareID          uint32
	OriginatorID     uint16
	SourceDescriptor string
	CapabilitySets   []CapabilitySet
}

const clientConfirmActiveSourceDescriptor = "MSTSC"

// NewClientConfirmActive builds the standard set of capability sets a
// client advertises back to the server, optionally including the Remote
// Programs (RAIL) capability sets when remote application mode is requested.
func NewClientConfirmActive(shareID uint32, userID uint16, desktopWidth, desktopHeight uint16, remoteApp bool) *ClientConfirmActive {
	sets := []CapabilitySet{
		NewGeneralCapabilitySet(),
		NewBitmapCapabilitySet(desktopWidth, desktopHeight),
		NewOrderCapabilitySet(),
		NewBitmapCacheCapabilitySetRev1(),
		NewPointerCapabilitySet(),
		NewInputCapabilitySet(),
		NewBrushCapabilitySet(),
		NewGlyphCacheCapabilitySet(),
		NewOffscreenBitmapCacheCapabilitySet(),
		NewVirtualChannelCapabilitySet(),
		NewSoundCapabilitySet(),
		NewFrameAcknowledgeCapabilitySet(),
	}

	if remoteApp {
		sets = append(sets, NewRailCapabilitySet(), NewWindowListCapabilitySet())
	}

	return &ClientConfirmActive{
		ShareID:          shareID,
		OriginatorID:     userID,
		SourceDescriptor: clientConfirmActiveSourceDescriptor,
		CapabilitySets:   sets,
	}
}

// Serialize encodes the PDU, including its share control header, to wire format.
func (c *ClientConfirmActive) Serialize() []byte {
	capsBuf := new(bytes.Buffer)
	for _, set := range c.CapabilitySets {
		capsBuf.Write(set.Serialize())
	}

	sourceDescriptor := []byte(c.SourceDescriptor)

	body := new(bytes.Buffer)
	_ = binary.Write(body, binary.LittleEndian, c.ShareID)
	_ = binary.Write(body, binary.LittleEndian, c.OriginatorID)
	_ = binary.Write(body, binary.LittleEndian, uint16(len(sourceDescriptor))) // #nosec G115
	_ = binary.Write(body, binary.LittleEndian, uint16(4+capsBuf.Len()))       // #nosec G115
	body.Write(sourceDescriptor)
	_ = binary.Write(body, binary.LittleEndian, uint16(len(c.CapabilitySets))) // #nosec G115
	_ = binary.Write(body, binary.LittleEndian, uint16(0))                     // pad2Octets
	body.Write(capsBuf.Bytes())

	header := ShareControlHeader{
		TotalLength: uint16(6 + body.Len()), // #nosec G115
		PDUType:     TypeConfirmActive,
		PDUSource:   c.OriginatorID,
	}

	buf := new(bytes.Buffer)
	buf.Write(header.Serialize())
	buf.Write(body.Bytes())

	return buf.Bytes()
}

// Deserialize decodes the PDU, including its share control header, from wire format.
func (c *ClientConfirmActive) Deserialize(wire io.Reader) error {
	var header ShareControlHeader
	if err := header.Deserialize(wire); err != nil {
		return err
	}

	if err := binary.Read(wire, binary.LittleEndian, &c.ShareID); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &c.OriginatorID); err != nil {
		return err
	}

	var lengthSourceDescriptor, lengthCombinedCapabilities uint16
	if err := binary.Read(wire, binary.LittleEndian, &lengthSourceDescriptor); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &lengthCombinedCapabilities); err != nil {
		return err
	}

	sourceDescriptor := make([]byte, lengthSourceDescriptor)
	if _, err := io.ReadFull(wire, sourceDescriptor); err != nil {
		return err
	}
	c.SourceDescriptor = string(sourceDescriptor)

	var numberCapabilities, pad2Octets uint16
	if err := binary.Read(wire, binary.LittleEndian, &numberCapabilities); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &pad2Octets); err != nil {
		return err
	}

	c.CapabilitySets = make([]CapabilitySet, numberCapabilities)
	for i := range c.CapabilitySets {
		if err := c.CapabilitySets[i].Deserialize(wire); err != nil {
			return fmt.Errorf("capability set %d: %w", i, err)
		}
	}

	return nil
}
