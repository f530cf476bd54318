// Package rdpdr implements the wire types of the RDP device redirection
// protocol (MS-RDPEFS) needed to expose local directories as redirected
// drives over \\TSCLIENT\<name>. Framing follows the teacher's
// byte-packing idiom (explicit Serialize/Deserialize pairs, fixed-size
// headers read with encoding/binary).
package rdpdr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// ChannelName is the static virtual channel name registered at MCS
// connect time.
const ChannelName = "rdpdr"

// RDPDR_HEADER component/packet ids (MS-RDPEFS 2.2.1).
const (
	ComponentCore uint16 = 0x4472

	PacketIDServerAnnounce     uint16 = 0x496E
	PacketIDClientIDConfirm    uint16 = 0x4343
	PacketIDClientName         uint16 = 0x434E
	PacketIDDeviceListAnnounce uint16 = 0x4441
	PacketIDDeviceReply        uint16 = 0x6472
	PacketIDDeviceIORequest    uint16 = 0x4952
	PacketIDDeviceIOCompletion uint16 = 0x4943
	PacketIDServerCapability   uint16 = 0x5350
	PacketIDClientCapability   uint16 = 0x4350
	PacketIDDeviceListRemove   uint16 = 0x444D
	PacketIDUserLoggedOn       uint16 = 0x4755
)

// DeviceType for filesystem redirection.
const DeviceTypeFileSystem uint32 = 0x00000008

// IRP major function codes (MS-RDPEFS 2.2.1.4.5).
const (
	MajorCreate           uint32 = 0x00000000
	MajorClose            uint32 = 0x00000002
	MajorRead             uint32 = 0x00000003
	MajorWrite            uint32 = 0x00000004
	MajorQueryInformation uint32 = 0x00000005
	MajorSetInformation   uint32 = 0x00000006
	MajorQueryVolumeInfo  uint32 = 0x0000000A
	MajorDirectoryControl uint32 = 0x0000000C
	MajorDeviceControl    uint32 = 0x0000000E
	MajorLockControl      uint32 = 0x00000011
)

// Minor function codes for MajorDirectoryControl.
const (
	MinorQueryDirectory        uint32 = 0x00000001
	MinorNotifyChangeDirectory uint32 = 0x00000002
)

// NTSTATUS codes used in replies (MS-RDPEFS, [MS-ERREF]).
const (
	StatusSuccess             uint32 = 0x00000000
	StatusUnsuccessful        uint32 = 0xC0000001
	StatusNoSuchFile          uint32 = 0xC000000F
	StatusNotADirectory       uint32 = 0xC0000103
	StatusNoMoreFiles         uint32 = 0x80000006
	StatusObjectNameCollision uint32 = 0xC0000035
	StatusDirectoryNotEmpty   uint32 = 0xC0000101
	StatusNotSupported        uint32 = 0xC00000BB
)

// CreateDisposition values (MS-RDPEFS 2.2.1.4.1 / [MS-SMB2]).
const (
	FileSupersede   uint32 = 0
	FileOpen        uint32 = 1
	FileCreate      uint32 = 2
	FileOpenIf      uint32 = 3
	FileOverwrite   uint32 = 4
	FileOverwriteIf uint32 = 5
)

// CreateOptions bits relevant to directory/delete-on-close semantics.
const (
	FileDirectoryFile    uint32 = 0x00000001
	FileNonDirectoryFile uint32 = 0x00000040
	FileDeleteOnClose    uint32 = 0x00001000
)

// Create response Information values (MS-RDPEFS 2.2.1.5.1).
const (
	FileSuperseded  uint8 = 0
	FileOpened      uint8 = 1
	FileCreated     uint8 = 2
	FileOverwritten uint8 = 3
)

// File attribute bits (subset needed by query-info / directory listing).
const (
	AttrReadonly  uint32 = 0x00000001
	AttrHidden    uint32 = 0x00000002
	AttrDirectory uint32 = 0x00000010
	AttrArchive   uint32 = 0x00000020
	AttrNormal    uint32 = 0x00000080
)

// FsInformationClass values used by query/set information requests.
const (
	FileBasicInformation         uint32 = 4
	FileStandardInformation      uint32 = 5
	FileRenameInformation        uint32 = 10
	FileDispositionInformation   uint32 = 13
	FileAllocationInformation    uint32 = 19
	FileEndOfFileInformation     uint32 = 20
	FileBothDirectoryInformation uint32 = 3
	FileAttributeTagInformation  uint32 = 35

	FileFsVolumeInformation    uint32 = 1
	FileFsSizeInformation      uint32 = 3
	FileFsAttributeInformation uint32 = 5
	FileFsFullSizeInformation  uint32 = 7
)

// Header is the common RDPDR_HEADER.
type Header struct {
	Component uint16
	PacketID  uint16
}

func (h *Header) Serialize() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint16(buf[0:2], h.Component)
	binary.LittleEndian.PutUint16(buf[2:4], h.PacketID)
	return buf
}

func (h *Header) Deserialize(r *bytes.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, &h.Component); err != nil {
		return err
	}
	return binary.Read(r, binary.LittleEndian, &h.PacketID)
}

// IoRequest is the DR_DEVICE_IOREQUEST header that precedes every
// server-initiated filesystem request.
type IoRequest struct {
	DeviceID      uint32
	FileID        uint32
	CompletionID  uint32
	MajorFunction uint32
	MinorFunction uint32
}

// ParseIoRequest reads the RDPDR header plus the IO request header from
// a complete channel PDU and returns the remaining body.
func ParseIoRequest(data []byte) (*IoRequest, []byte, error) {
	r := bytes.NewReader(data)
	var h Header
	if err := h.Deserialize(r); err != nil {
		return nil, nil, fmt.Errorf("rdpdr header: %w", err)
	}
	if h.PacketID != PacketIDDeviceIORequest {
		return nil, nil, fmt.Errorf("rdpdr: expected IOREQUEST, got packetId 0x%04X", h.PacketID)
	}

	req := &IoRequest{}
	for _, f := range []*uint32{&req.DeviceID, &req.FileID, &req.CompletionID, &req.MajorFunction, &req.MinorFunction} {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return nil, nil, fmt.Errorf("rdpdr ioRequest: %w", err)
		}
	}

	body := make([]byte, r.Len())
	_, _ = r.Read(body)
	return req, body, nil
}

// BuildIoCompletion wraps a reply body with the RDPDR + IO completion
// headers.
func BuildIoCompletion(deviceID, completionID, ioStatus uint32, body []byte) []byte {
	var buf bytes.Buffer
	h := Header{Component: ComponentCore, PacketID: PacketIDDeviceIOCompletion}
	buf.Write(h.Serialize())

	var fixed [12]byte
	binary.LittleEndian.PutUint32(fixed[0:4], deviceID)
	binary.LittleEndian.PutUint32(fixed[4:8], completionID)
	binary.LittleEndian.PutUint32(fixed[8:12], ioStatus)
	buf.Write(fixed[:])

	buf.Write(body)
	return buf.Bytes()
}

func utf16LEBytes(s string) []byte {
	var buf bytes.Buffer
	for _, r := range utf16.Encode([]rune(s)) {
		var rb [2]byte
		binary.LittleEndian.PutUint16(rb[:], r)
		buf.Write(rb[:])
	}
	buf.Write([]byte{0, 0})
	return buf.Bytes()
}

func utf16LEString(data []byte) string {
	units := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		u := binary.LittleEndian.Uint16(data[i : i+2])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

// CreateRequest decodes a DR_CREATE_REQ body.
type CreateRequest struct {
	DesiredAccess     uint32
	AllocationSize    uint64
	FileAttributes    uint32
	SharedAccess      uint32
	CreateDisposition uint32
	CreateOptions     uint32
	Path              string
}

func ParseCreateRequest(body []byte) (*CreateRequest, error) {
	if len(body) < 32 {
		return nil, fmt.Errorf("rdpdr: short create request")
	}
	r := bytes.NewReader(body)
	req := &CreateRequest{}
	binary.Read(r, binary.LittleEndian, &req.DesiredAccess)
	binary.Read(r, binary.LittleEndian, &req.AllocationSize)
	binary.Read(r, binary.LittleEndian, &req.FileAttributes)
	binary.Read(r, binary.LittleEndian, &req.SharedAccess)
	binary.Read(r, binary.LittleEndian, &req.CreateDisposition)
	binary.Read(r, binary.LittleEndian, &req.CreateOptions)
	var pathLen uint32
	binary.Read(r, binary.LittleEndian, &pathLen)
	pathBytes := make([]byte, pathLen)
	if _, err := r.Read(pathBytes); err != nil && pathLen > 0 {
		return nil, fmt.Errorf("rdpdr create path: %w", err)
	}
	req.Path = utf16LEString(pathBytes)
	return req, nil
}

// BuildCreateResponse encodes a DR_CREATE_RSP body (FileId + Information).
func BuildCreateResponse(fileID uint32, information uint8) []byte {
	buf := make([]byte, 5)
	binary.LittleEndian.PutUint32(buf[0:4], fileID)
	buf[4] = information
	return buf
}

// ReadRequest decodes a DR_READ_REQ body.
type ReadRequest struct {
	Length uint32
	Offset uint64
}

func ParseReadRequest(body []byte) (*ReadRequest, error) {
	if len(body) < 12 {
		return nil, fmt.Errorf("rdpdr: short read request")
	}
	return &ReadRequest{
		Length: binary.LittleEndian.Uint32(body[0:4]),
		Offset: binary.LittleEndian.Uint64(body[4:12]),
	}, nil
}

// BuildReadResponse encodes a DR_READ_RSP body.
func BuildReadResponse(data []byte) []byte {
	buf := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(data)))
	copy(buf[4:], data)
	return buf
}

// WriteRequest decodes a DR_WRITE_REQ body.
type WriteRequest struct {
	Length uint32
	Offset uint64
	Data   []byte
}

func ParseWriteRequest(body []byte) (*WriteRequest, error) {
	if len(body) < 32 {
		return nil, fmt.Errorf("rdpdr: short write request")
	}
	length := binary.LittleEndian.Uint32(body[0:4])
	offset := binary.LittleEndian.Uint64(body[4:12])
	// bytes 12:32 are padding (20 bytes)
	if len(body) < int(32+length) {
		return nil, fmt.Errorf("rdpdr: write request data truncated")
	}
	return &WriteRequest{Length: length, Offset: offset, Data: body[32 : 32+length]}, nil
}

// BuildWriteResponse encodes a DR_WRITE_RSP body.
func BuildWriteResponse(written uint32) []byte {
	buf := make([]byte, 5)
	binary.LittleEndian.PutUint32(buf[0:4], written)
	return buf
}

// QueryDirectoryRequest decodes a DR_QUERY_DIRECTORY_REQ body.
type QueryDirectoryRequest struct {
	FsInformationClass uint32
	InitialQuery       bool
	Path               string
}

func ParseQueryDirectoryRequest(body []byte) (*QueryDirectoryRequest, error) {
	if len(body) < 32 {
		return nil, fmt.Errorf("rdpdr: short query directory request")
	}
	class := binary.LittleEndian.Uint32(body[0:4])
	initial := body[4] != 0
	pathLen := binary.LittleEndian.Uint32(body[5:9])
	// bytes 9:32 are padding (23 bytes)
	pathStart := 32
	if len(body) < pathStart+int(pathLen) {
		return nil, fmt.Errorf("rdpdr: query directory path truncated")
	}
	return &QueryDirectoryRequest{
		FsInformationClass: class,
		InitialQuery:       initial,
		Path:               utf16LEString(body[pathStart : pathStart+int(pathLen)]),
	}, nil
}

// DirectoryEntry is one FILE_BOTH_DIRECTORY_INFORMATION entry.
type DirectoryEntry struct {
	CreationTime, LastAccessTime, LastWriteTime, ChangeTime uint64
	EndOfFile, AllocationSize                               uint64
	FileAttributes                                          uint32
	FileName                                                string
}

// BuildDirectoryEntry encodes one FILE_BOTH_DIRECTORY_INFORMATION entry
// (MS-FSCC 2.4.8), with NextEntryOffset left at 0 (single-entry replies).
func BuildDirectoryEntry(e DirectoryEntry) []byte {
	name := utf16LEBytes(e.FileName)
	name = name[:len(name)-2] // FILE_BOTH_DIRECTORY_INFORMATION's name field is not null-terminated
	fixed := make([]byte, 93)
	binary.LittleEndian.PutUint64(fixed[8:16], e.CreationTime)
	binary.LittleEndian.PutUint64(fixed[16:24], e.LastAccessTime)
	binary.LittleEndian.PutUint64(fixed[24:32], e.LastWriteTime)
	binary.LittleEndian.PutUint64(fixed[32:40], e.ChangeTime)
	binary.LittleEndian.PutUint64(fixed[40:48], e.EndOfFile)
	binary.LittleEndian.PutUint64(fixed[48:56], e.AllocationSize)
	binary.LittleEndian.PutUint32(fixed[56:60], e.FileAttributes)
	binary.LittleEndian.PutUint32(fixed[60:64], uint32(len(name)))
	// EaSize(64:68)=0, ShortNameLength(68)=0, Reserved(69)=0, ShortName(70:93) zeroed
	return append(fixed, name...)
}

// BuildQueryDirectoryResponse wraps a single directory entry body.
func BuildQueryDirectoryResponse(entry []byte) []byte {
	buf := make([]byte, 4+len(entry))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(entry)))
	copy(buf[4:], entry)
	return buf
}

// QueryInformationRequest decodes a DR_QUERY_INFORMATION_REQ body.
type QueryInformationRequest struct {
	FsInformationClass uint32
}

func ParseQueryInformationRequest(body []byte) (*QueryInformationRequest, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("rdpdr: short query information request")
	}
	return &QueryInformationRequest{FsInformationClass: binary.LittleEndian.Uint32(body[0:4])}, nil
}

// FileBasicInfo matches FILE_BASIC_INFORMATION.
type FileBasicInfo struct {
	CreationTime, LastAccessTime, LastWriteTime, ChangeTime uint64
	FileAttributes                                          uint32
}

func (i FileBasicInfo) Serialize() []byte {
	buf := make([]byte, 36)
	binary.LittleEndian.PutUint64(buf[0:8], i.CreationTime)
	binary.LittleEndian.PutUint64(buf[8:16], i.LastAccessTime)
	binary.LittleEndian.PutUint64(buf[16:24], i.LastWriteTime)
	binary.LittleEndian.PutUint64(buf[24:32], i.ChangeTime)
	binary.LittleEndian.PutUint32(buf[32:36], i.FileAttributes)
	return buf
}

// FileStandardInfo matches FILE_STANDARD_INFORMATION.
type FileStandardInfo struct {
	AllocationSize, EndOfFile uint64
	NumberOfLinks             uint32
	DeletePending, Directory  bool
}

func (i FileStandardInfo) Serialize() []byte {
	buf := make([]byte, 22)
	binary.LittleEndian.PutUint64(buf[0:8], i.AllocationSize)
	binary.LittleEndian.PutUint64(buf[8:16], i.EndOfFile)
	binary.LittleEndian.PutUint32(buf[16:20], i.NumberOfLinks)
	if i.DeletePending {
		buf[20] = 1
	}
	if i.Directory {
		buf[21] = 1
	}
	return buf
}

// FileAttributeTagInfo matches FILE_ATTRIBUTE_TAG_INFORMATION.
type FileAttributeTagInfo struct {
	FileAttributes uint32
	ReparseTag     uint32
}

func (i FileAttributeTagInfo) Serialize() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], i.FileAttributes)
	binary.LittleEndian.PutUint32(buf[4:8], i.ReparseTag)
	return buf
}

// BuildQueryInformationResponse wraps a query-information reply buffer.
func BuildQueryInformationResponse(buf []byte) []byte {
	out := make([]byte, 4+len(buf))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(buf)))
	copy(out[4:], buf)
	return out
}

// SetInformationRequest decodes the fixed portion of a DR_SET_INFORMATION_REQ.
type SetInformationRequest struct {
	FsInformationClass uint32
	Buffer             []byte
}

func ParseSetInformationRequest(body []byte) (*SetInformationRequest, error) {
	if len(body) < 32 {
		return nil, fmt.Errorf("rdpdr: short set information request")
	}
	class := binary.LittleEndian.Uint32(body[0:4])
	length := binary.LittleEndian.Uint32(body[4:8])
	if len(body) < int(32+length) {
		return nil, fmt.Errorf("rdpdr: set information buffer truncated")
	}
	return &SetInformationRequest{FsInformationClass: class, Buffer: body[32 : 32+length]}, nil
}

// ParseRenameInformation decodes FILE_RENAME_INFORMATION.
func ParseRenameInformation(buf []byte) (newName string, err error) {
	if len(buf) < 6 {
		return "", fmt.Errorf("rdpdr: short rename information")
	}
	nameLen := binary.LittleEndian.Uint32(buf[2:6])
	if len(buf) < int(6+nameLen) {
		return "", fmt.Errorf("rdpdr: rename name truncated")
	}
	return utf16LEString(buf[6 : 6+nameLen]), nil
}

// BuildSetInformationResponse echoes the request length.
func BuildSetInformationResponse(length uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, length)
	return buf
}

// QueryVolumeInformationRequest decodes a DR_QUERY_VOLUME_INFORMATION_REQ.
type QueryVolumeInformationRequest struct {
	FsInformationClass uint32
}

func ParseQueryVolumeInformationRequest(body []byte) (*QueryVolumeInformationRequest, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("rdpdr: short query volume information request")
	}
	return &QueryVolumeInformationRequest{FsInformationClass: binary.LittleEndian.Uint32(body[0:4])}, nil
}

// FileFsFullSizeInfo matches FILE_FS_FULL_SIZE_INFORMATION.
type FileFsFullSizeInfo struct {
	TotalAllocationUnits, CallerAvailableAllocationUnits, ActualAvailableAllocationUnits uint64
	SectorsPerAllocationUnit, BytesPerSector                                             uint32
}

func (i FileFsFullSizeInfo) Serialize() []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint64(buf[0:8], i.TotalAllocationUnits)
	binary.LittleEndian.PutUint64(buf[8:16], i.CallerAvailableAllocationUnits)
	binary.LittleEndian.PutUint64(buf[16:24], i.ActualAvailableAllocationUnits)
	binary.LittleEndian.PutUint32(buf[24:28], i.SectorsPerAllocationUnit)
	binary.LittleEndian.PutUint32(buf[28:32], i.BytesPerSector)
	return buf
}

// FileFsSizeInfo matches FILE_FS_SIZE_INFORMATION.
type FileFsSizeInfo struct {
	TotalAllocationUnits, AvailableAllocationUnits uint64
	SectorsPerAllocationUnit, BytesPerSector       uint32
}

func (i FileFsSizeInfo) Serialize() []byte {
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint64(buf[0:8], i.TotalAllocationUnits)
	binary.LittleEndian.PutUint64(buf[8:16], i.AvailableAllocationUnits)
	binary.LittleEndian.PutUint32(buf[16:20], i.SectorsPerAllocationUnit)
	binary.LittleEndian.PutUint32(buf[20:24], i.BytesPerSector)
	return buf
}

// FileFsAttributeInfo matches FILE_FS_ATTRIBUTE_INFORMATION.
type FileFsAttributeInfo struct {
	FileSystemAttributes    uint32
	MaximumComponentNameLen uint32
	FileSystemName          string
}

func (i FileFsAttributeInfo) Serialize() []byte {
	name := utf16LEBytes(i.FileSystemName)
	name = name[:len(name)-2]
	buf := make([]byte, 12+len(name))
	binary.LittleEndian.PutUint32(buf[0:4], i.FileSystemAttributes)
	binary.LittleEndian.PutUint32(buf[4:8], i.MaximumComponentNameLen)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(name)))
	copy(buf[12:], name)
	return buf
}

// FileFsVolumeInfo matches FILE_FS_VOLUME_INFORMATION.
type FileFsVolumeInfo struct {
	VolumeCreationTime uint64
	VolumeSerialNumber uint32
	VolumeLabel        string
}

func (i FileFsVolumeInfo) Serialize() []byte {
	label := utf16LEBytes(i.VolumeLabel)
	label = label[:len(label)-2]
	buf := make([]byte, 18+len(label))
	binary.LittleEndian.PutUint64(buf[0:8], i.VolumeCreationTime)
	binary.LittleEndian.PutUint32(buf[8:12], i.VolumeSerialNumber)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(len(label)))
	// SupportsObjects(16)=0, Reserved(17)=0
	copy(buf[18:], label)
	return buf
}

// BuildQueryVolumeInformationResponse wraps a volume-info reply buffer.
func BuildQueryVolumeInformationResponse(buf []byte) []byte {
	out := make([]byte, 4+len(buf))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(buf)))
	copy(out[4:], buf)
	return out
}

// Capability set ids (MS-RDPEFS 2.2.1.2).
const (
	CapGeneral        uint16 = 0x0001
	CapPrinter        uint16 = 0x0002
	CapPort           uint16 = 0x0003
	CapDrive          uint16 = 0x0004
	CapSmartcard      uint16 = 0x0005
	generalCapVersion uint32 = 0x00000002
)

// ServerAnnounceRequest is DR_CORE_SERVER_ANNOUNCE_REQ, the first PDU the
// server sends once the rdpdr channel is established.
type ServerAnnounceRequest struct {
	VersionMajor uint16
	VersionMinor uint16
	ClientID     uint32
}

func ParseServerAnnounceRequest(body []byte) (*ServerAnnounceRequest, error) {
	if len(body) < 8 {
		return nil, fmt.Errorf("rdpdr: short server announce")
	}
	return &ServerAnnounceRequest{
		VersionMajor: binary.LittleEndian.Uint16(body[0:2]),
		VersionMinor: binary.LittleEndian.Uint16(body[2:4]),
		ClientID:     binary.LittleEndian.Uint32(body[4:8]),
	}, nil
}

// BuildClientAnnounceReply builds DR_CORE_CLIENTID_CONFIRM.
func BuildClientAnnounceReply(versionMajor, versionMinor uint16, clientID uint32) []byte {
	h := Header{Component: ComponentCore, PacketID: PacketIDClientIDConfirm}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint16(buf[0:2], versionMajor)
	binary.LittleEndian.PutUint16(buf[2:4], versionMinor)
	binary.LittleEndian.PutUint32(buf[4:8], clientID)
	return append(h.Serialize(), buf...)
}

// BuildClientNameRequest builds DR_CORE_CLIENT_NAME_REQ, announcing the
// client machine name (ASCII, as the teacher's other name fields use
// UnicodeFlag=0).
func BuildClientNameRequest(computerName string) []byte {
	h := Header{Component: ComponentCore, PacketID: PacketIDClientName}
	name := append([]byte(computerName), 0)

	var buf bytes.Buffer
	buf.Write(h.Serialize())
	_ = binary.Write(&buf, binary.LittleEndian, uint32(0)) // UnicodeFlag = ASCII
	_ = binary.Write(&buf, binary.LittleEndian, uint32(0)) // CodePage
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(name)))
	buf.Write(name)
	return buf.Bytes()
}

// parseCapabilityHeader reads one CAPABILITY_HEADER (MS-RDPEFS 2.2.1.2.1)
// together with its CapabilityData and returns the remainder.
func parseCapabilityHeader(r *bytes.Reader) (capType, capLength uint16, rest []byte, err error) {
	if err := binary.Read(r, binary.LittleEndian, &capType); err != nil {
		return 0, 0, nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &capLength); err != nil {
		return 0, 0, nil, err
	}
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return 0, 0, nil, err
	}
	if capLength < 8 {
		return capType, capLength, nil, fmt.Errorf("rdpdr: short capability")
	}
	data := make([]byte, capLength-8)
	if _, err := r.Read(data); err != nil {
		return 0, 0, nil, err
	}
	return capType, capLength, data, nil
}

// ParseServerCapabilityTypes reads DR_CORE_CAPABILITY_REQ and returns the
// capability type ids the server advertised, for logging.
func ParseServerCapabilityTypes(body []byte) ([]uint16, error) {
	r := bytes.NewReader(body)
	var numCapabilities, padding uint16
	if err := binary.Read(r, binary.LittleEndian, &numCapabilities); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &padding); err != nil {
		return nil, err
	}

	types := make([]uint16, 0, numCapabilities)
	for i := uint16(0); i < numCapabilities; i++ {
		capType, _, _, err := parseCapabilityHeader(r)
		if err != nil {
			break
		}
		types = append(types, capType)
	}
	return types, nil
}

// BuildClientCapabilityResponse echoes a minimal General+Drive capability
// set back to the server (DR_CORE_CAPABILITY_RSP).
func BuildClientCapabilityResponse() []byte {
	h := Header{Component: ComponentCore, PacketID: PacketIDClientCapability}

	general := make([]byte, 8+36)
	binary.LittleEndian.PutUint16(general[0:2], CapGeneral)
	binary.LittleEndian.PutUint16(general[2:4], uint16(len(general)))
	binary.LittleEndian.PutUint32(general[4:8], generalCapVersion)
	binary.LittleEndian.PutUint32(general[8:12], DeviceTypeFileSystem)
	// osType/osVersion/protocolMajor/protocolMinor left zero; ioCode1
	// advertises the operations this client actually implements.
	binary.LittleEndian.PutUint32(general[24:28], 0x0000FFFF) // ioCode1 (all)
	binary.LittleEndian.PutUint32(general[28:32], generalCapVersion)

	drive := make([]byte, 8)
	binary.LittleEndian.PutUint16(drive[0:2], CapDrive)
	binary.LittleEndian.PutUint16(drive[2:4], uint16(len(drive)))
	binary.LittleEndian.PutUint32(drive[4:8], 1)

	var buf bytes.Buffer
	buf.Write(h.Serialize())
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2)) // numCapabilities
	_ = binary.Write(&buf, binary.LittleEndian, uint16(0)) // padding
	buf.Write(general)
	buf.Write(drive)
	return buf.Bytes()
}

// BuildClientDeviceListAnnounce builds DR_CORE_DEVICELIST_ANNOUNCE from a
// set of already-serialized DR_DEVICE_ANNOUNCE entries.
func BuildClientDeviceListAnnounce(deviceAnnounces [][]byte) []byte {
	h := Header{Component: ComponentCore, PacketID: PacketIDDeviceListAnnounce}

	var buf bytes.Buffer
	buf.Write(h.Serialize())
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(deviceAnnounces)))
	for _, d := range deviceAnnounces {
		buf.Write(d)
	}
	return buf.Bytes()
}

// DeviceReply is DR_CORE_DEVICE_REPLY, the server's per-device ack after
// DR_CORE_DEVICELIST_ANNOUNCE.
type DeviceReply struct {
	DeviceID   uint32
	ResultCode uint32
}

func ParseDeviceReply(body []byte) (*DeviceReply, error) {
	if len(body) < 8 {
		return nil, fmt.Errorf("rdpdr: short device reply")
	}
	return &DeviceReply{
		DeviceID:   binary.LittleEndian.Uint32(body[0:4]),
		ResultCode: binary.LittleEndian.Uint32(body[4:8]),
	}, nil
}
