// Package rdpdr implements the drive redirection backend: it answers
// MS-RDPEFS IRPs against one or more local directories exposed as
// \\TSCLIENT\<name> drives. Grounded on the session's multi-drive
// filesystem backend, reworked from fs::File handles to *os.File and
// from the Rust Result idiom to explicit NTSTATUS replies.
package rdpdr

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rcarmo/agent-rdp/internal/logging"
	wire "github.com/rcarmo/agent-rdp/internal/protocol/rdpdr"
)

// Drive is one local directory exposed over a device id.
type Drive struct {
	DeviceID uint32
	Name     string
	Path     string
}

type openEntry struct {
	path     string
	deviceID uint32
	file     *os.File // nil for directories
}

type dirCursor struct {
	entries []os.DirEntry
	pos     int
}

// Backend answers device IO requests against the registered drives.
type Backend struct {
	mu sync.Mutex

	nextFileID    uint32
	drives        map[uint32]Drive
	open          map[uint32]*openEntry
	dirs          map[uint32]*dirCursor
	deleteOnClose map[uint32]bool
}

// NewBackend creates an empty backend; drives are registered with AddDrive.
func NewBackend() *Backend {
	return &Backend{
		drives:        make(map[uint32]Drive),
		open:          make(map[uint32]*openEntry),
		dirs:          make(map[uint32]*dirCursor),
		deleteOnClose: make(map[uint32]bool),
	}
}

// AddDrive registers a local directory under deviceID.
func (b *Backend) AddDrive(deviceID uint32, name, path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drives[deviceID] = Drive{DeviceID: deviceID, Name: name, Path: path}
	logging.Info("Rdpdr: registered drive %q -> %s (device %d)", name, path, deviceID)
}

// Drives returns the registered drives, for building the device list
// announce sent once the server's core handshake completes.
func (b *Backend) Drives() []Drive {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Drive, 0, len(b.drives))
	for _, d := range b.drives {
		out = append(out, d)
	}
	return out
}

func (b *Backend) nextID() uint32 {
	id := b.nextFileID
	b.nextFileID++
	return id
}

func resolvePath(base, reqPath string) string {
	clean := strings.ReplaceAll(reqPath, "\\", "/")
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" {
		return base
	}
	return filepath.Join(base, clean)
}

// Dispatch handles one decoded DR_DEVICE_IOREQUEST and returns the
// complete wire reply (RDPDR header + IO completion) to send back.
func (b *Backend) Dispatch(req *wire.IoRequest, body []byte) []byte {
	switch req.MajorFunction {
	case wire.MajorCreate:
		return b.handleCreate(req, body)
	case wire.MajorClose:
		return b.handleClose(req)
	case wire.MajorRead:
		return b.handleRead(req, body)
	case wire.MajorWrite:
		return b.handleWrite(req, body)
	case wire.MajorQueryInformation:
		return b.handleQueryInformation(req, body)
	case wire.MajorSetInformation:
		return b.handleSetInformation(req, body)
	case wire.MajorQueryVolumeInfo:
		return b.handleQueryVolumeInformation(req, body)
	case wire.MajorDirectoryControl:
		if req.MinorFunction == wire.MinorQueryDirectory {
			return b.handleQueryDirectory(req, body)
		}
		// notify-change-directory: no local inotify bridge, ack empty.
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusSuccess, nil)
	case wire.MajorDeviceControl:
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusSuccess, []byte{0, 0, 0, 0})
	case wire.MajorLockControl:
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusSuccess, nil)
	default:
		logging.Debug("Rdpdr: unsupported major function 0x%X", req.MajorFunction)
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusNotSupported, nil)
	}
}

func (b *Backend) handleCreate(req *wire.IoRequest, body []byte) []byte {
	create, err := wire.ParseCreateRequest(body)
	if err != nil {
		logging.Warn("Rdpdr: malformed create request: %v", err)
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusUnsuccessful, wire.BuildCreateResponse(0, 0))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	drive, ok := b.drives[req.DeviceID]
	if !ok {
		logging.Warn("Rdpdr: create on unregistered device %d", req.DeviceID)
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusUnsuccessful, wire.BuildCreateResponse(0, 0))
	}

	fileID := b.nextID()
	path := resolvePath(drive.Path, create.Path)

	info, statErr := os.Stat(path)
	switch {
	case statErr == nil && info.IsDir():
		if create.CreateDisposition == wire.FileCreate {
			return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusUnsuccessful, wire.BuildCreateResponse(0, 0))
		}
		if create.CreateOptions&wire.FileNonDirectoryFile != 0 {
			return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusUnsuccessful, wire.BuildCreateResponse(0, 0))
		}
		b.open[fileID] = &openEntry{path: path, deviceID: req.DeviceID}
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusSuccess,
			wire.BuildCreateResponse(fileID, dispositionInformation(create.CreateDisposition)))

	case statErr == nil && create.CreateOptions&wire.FileDirectoryFile != 0:
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusNotADirectory, wire.BuildCreateResponse(0, 0))

	case statErr != nil && create.CreateOptions&wire.FileDirectoryFile != 0:
		if create.CreateDisposition == wire.FileCreate || create.CreateDisposition == wire.FileOpenIf {
			if err := os.MkdirAll(path, 0o755); err == nil {
				b.open[fileID] = &openEntry{path: path, deviceID: req.DeviceID}
				return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusSuccess,
					wire.BuildCreateResponse(fileID, dispositionInformation(create.CreateDisposition)))
			}
		}
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusUnsuccessful, wire.BuildCreateResponse(0, 0))
	}

	f, err := openWithDisposition(path, create.CreateDisposition)
	if err != nil {
		logging.Warn("Rdpdr: open %q failed: %v", path, err)
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusUnsuccessful, wire.BuildCreateResponse(0, 0))
	}

	b.open[fileID] = &openEntry{path: path, deviceID: req.DeviceID, file: f}
	return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusSuccess,
		wire.BuildCreateResponse(fileID, dispositionInformation(create.CreateDisposition)))
}

func dispositionInformation(disposition uint32) uint8 {
	switch disposition {
	case wire.FileCreate, wire.FileSupersede, wire.FileOpen, wire.FileOverwrite:
		return wire.FileSuperseded
	case wire.FileOpenIf:
		return wire.FileOpened
	case wire.FileOverwriteIf:
		return wire.FileOverwritten
	default:
		return 0
	}
}

func openWithDisposition(path string, disposition uint32) (*os.File, error) {
	switch disposition {
	case wire.FileOpenIf:
		return os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	case wire.FileCreate:
		return os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	case wire.FileSupersede:
		return os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	case wire.FileOpen:
		return os.OpenFile(path, os.O_RDONLY, 0)
	case wire.FileOverwrite:
		return os.OpenFile(path, os.O_RDWR|os.O_TRUNC, 0o644)
	case wire.FileOverwriteIf:
		return os.OpenFile(path, os.O_RDWR|os.O_TRUNC|os.O_CREATE, 0o644)
	default:
		return os.OpenFile(path, os.O_RDWR, 0o644)
	}
}

func (b *Backend) handleClose(req *wire.IoRequest) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.open[req.FileID]
	if ok && entry.file != nil {
		_ = entry.file.Sync()
		_ = entry.file.Close()
	}

	shouldDelete := b.deleteOnClose[req.FileID]
	delete(b.deleteOnClose, req.FileID)
	delete(b.open, req.FileID)
	delete(b.dirs, req.FileID)

	if ok && shouldDelete {
		if err := os.Remove(entry.path); err != nil {
			logging.Warn("Rdpdr: delete-on-close failed for %q: %v", entry.path, err)
		}
	}

	return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusSuccess, nil)
}

func (b *Backend) handleRead(req *wire.IoRequest, body []byte) []byte {
	readReq, err := wire.ParseReadRequest(body)
	if err != nil {
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusUnsuccessful, wire.BuildReadResponse(nil))
	}

	b.mu.Lock()
	entry, ok := b.open[req.FileID]
	b.mu.Unlock()
	if !ok || entry.file == nil {
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusNoSuchFile, wire.BuildReadResponse(nil))
	}

	buf := make([]byte, readReq.Length)
	n, err := entry.file.ReadAt(buf, int64(readReq.Offset))
	if err != nil && n == 0 {
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusUnsuccessful, wire.BuildReadResponse(nil))
	}
	return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusSuccess, wire.BuildReadResponse(buf[:n]))
}

func (b *Backend) handleWrite(req *wire.IoRequest, body []byte) []byte {
	writeReq, err := wire.ParseWriteRequest(body)
	if err != nil {
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusUnsuccessful, wire.BuildWriteResponse(0))
	}

	b.mu.Lock()
	entry, ok := b.open[req.FileID]
	b.mu.Unlock()
	if !ok || entry.file == nil {
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusNoSuchFile, wire.BuildWriteResponse(0))
	}

	n, err := entry.file.WriteAt(writeReq.Data, int64(writeReq.Offset))
	if err != nil {
		logging.Warn("Rdpdr: write to %q failed: %v", entry.path, err)
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusUnsuccessful, wire.BuildWriteResponse(0))
	}
	_ = entry.file.Sync()
	return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusSuccess, wire.BuildWriteResponse(uint32(n)))
}

func fileAttributes(info os.FileInfo) uint32 {
	if info.IsDir() {
		return wire.AttrDirectory
	}
	attrs := wire.AttrArchive
	if strings.HasPrefix(info.Name(), ".") {
		attrs |= wire.AttrHidden
	}
	if info.Mode().Perm()&0o222 == 0 {
		attrs |= wire.AttrReadonly
	}
	return attrs
}

func toFiletime(t time.Time) uint64 {
	const epochDiff = 116444736000000000 // 1601-01-01 to 1970-01-01, in 100ns units
	return uint64(t.UnixNano()/100) + epochDiff
}

func (b *Backend) handleQueryInformation(req *wire.IoRequest, body []byte) []byte {
	q, err := wire.ParseQueryInformationRequest(body)
	if err != nil {
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusUnsuccessful, wire.BuildQueryInformationResponse(nil))
	}

	b.mu.Lock()
	entry, ok := b.open[req.FileID]
	b.mu.Unlock()
	if !ok {
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusNoSuchFile, wire.BuildQueryInformationResponse(nil))
	}

	info, err := os.Stat(entry.path)
	if err != nil {
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusUnsuccessful, wire.BuildQueryInformationResponse(nil))
	}
	attrs := fileAttributes(info)

	switch q.FsInformationClass {
	case wire.FileBasicInformation:
		ft := toFiletime(info.ModTime())
		out := wire.FileBasicInfo{CreationTime: ft, LastAccessTime: ft, LastWriteTime: ft, ChangeTime: ft, FileAttributes: attrs}.Serialize()
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusSuccess, wire.BuildQueryInformationResponse(out))
	case wire.FileStandardInformation:
		out := wire.FileStandardInfo{
			AllocationSize: uint64(info.Size()),
			EndOfFile:      uint64(info.Size()),
			NumberOfLinks:  1,
			Directory:      info.IsDir(),
		}.Serialize()
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusSuccess, wire.BuildQueryInformationResponse(out))
	case wire.FileAttributeTagInformation:
		out := wire.FileAttributeTagInfo{FileAttributes: attrs}.Serialize()
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusSuccess, wire.BuildQueryInformationResponse(out))
	default:
		logging.Debug("Rdpdr: unsupported query information class %d", q.FsInformationClass)
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusUnsuccessful, wire.BuildQueryInformationResponse(nil))
	}
}

func (b *Backend) handleSetInformation(req *wire.IoRequest, body []byte) []byte {
	set, err := wire.ParseSetInformationRequest(body)
	if err != nil {
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusUnsuccessful, wire.BuildSetInformationResponse(0))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.open[req.FileID]
	if !ok {
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusNoSuchFile, wire.BuildSetInformationResponse(0))
	}

	switch set.FsInformationClass {
	case wire.FileRenameInformation:
		newName, err := wire.ParseRenameInformation(set.Buffer)
		if err != nil {
			return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusUnsuccessful, wire.BuildSetInformationResponse(0))
		}
		drive, ok := b.drives[entry.deviceID]
		if !ok {
			return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusUnsuccessful, wire.BuildSetInformationResponse(0))
		}
		to := resolvePath(drive.Path, newName)
		if err := os.Rename(entry.path, to); err != nil {
			logging.Warn("Rdpdr: rename %q -> %q failed: %v", entry.path, to, err)
			return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusUnsuccessful, wire.BuildSetInformationResponse(0))
		}
		entry.path = to

	case wire.FileDispositionInformation:
		delPending := len(set.Buffer) == 0 || set.Buffer[0] != 0
		if delPending {
			b.deleteOnClose[req.FileID] = true
		} else {
			delete(b.deleteOnClose, req.FileID)
		}

	case wire.FileEndOfFileInformation:
		if entry.file == nil {
			return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusNoSuchFile, wire.BuildSetInformationResponse(0))
		}
		if len(set.Buffer) < 8 {
			return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusUnsuccessful, wire.BuildSetInformationResponse(0))
		}
		size := int64(set.Buffer[0]) | int64(set.Buffer[1])<<8 | int64(set.Buffer[2])<<16 | int64(set.Buffer[3])<<24 |
			int64(set.Buffer[4])<<32 | int64(set.Buffer[5])<<40 | int64(set.Buffer[6])<<48 | int64(set.Buffer[7])<<56
		if err := entry.file.Truncate(size); err != nil {
			return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusUnsuccessful, wire.BuildSetInformationResponse(0))
		}

	case wire.FileAllocationInformation:
		// no-op: allocation-size hints have no portable equivalent

	default:
		logging.Debug("Rdpdr: unsupported set information class %d", set.FsInformationClass)
	}

	return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusSuccess, wire.BuildSetInformationResponse(uint32(len(set.Buffer))))
}

func (b *Backend) handleQueryVolumeInformation(req *wire.IoRequest, body []byte) []byte {
	q, err := wire.ParseQueryVolumeInformationRequest(body)
	if err != nil {
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusUnsuccessful, wire.BuildQueryVolumeInformationResponse(nil))
	}

	b.mu.Lock()
	entry, ok := b.open[req.FileID]
	drive := b.drives[req.DeviceID]
	b.mu.Unlock()
	if !ok {
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusNoSuchFile, wire.BuildQueryVolumeInformationResponse(nil))
	}

	const bytesPerSector = 512
	const sectorsPerUnit = 8
	totalBytes, freeBytes := diskSpace(drive.Path)
	bytesPerUnit := uint64(bytesPerSector * sectorsPerUnit)
	totalUnits := totalBytes / bytesPerUnit
	freeUnits := freeBytes / bytesPerUnit

	switch q.FsInformationClass {
	case wire.FileFsFullSizeInformation:
		out := wire.FileFsFullSizeInfo{
			TotalAllocationUnits:           totalUnits,
			CallerAvailableAllocationUnits: freeUnits,
			ActualAvailableAllocationUnits: freeUnits,
			SectorsPerAllocationUnit:       sectorsPerUnit,
			BytesPerSector:                 bytesPerSector,
		}.Serialize()
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusSuccess, wire.BuildQueryVolumeInformationResponse(out))
	case wire.FileFsSizeInformation:
		out := wire.FileFsSizeInfo{
			TotalAllocationUnits:     totalUnits,
			AvailableAllocationUnits: freeUnits,
			SectorsPerAllocationUnit: sectorsPerUnit,
			BytesPerSector:           bytesPerSector,
		}.Serialize()
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusSuccess, wire.BuildQueryVolumeInformationResponse(out))
	case wire.FileFsAttributeInformation:
		out := wire.FileFsAttributeInfo{
			FileSystemAttributes:    0x0000000C, // CASE_SENSITIVE_SEARCH | CASE_PRESERVED_NAMES
			MaximumComponentNameLen: 260,
			FileSystemName:          "NTFS",
		}.Serialize()
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusSuccess, wire.BuildQueryVolumeInformationResponse(out))
	case wire.FileFsVolumeInformation:
		info, _ := os.Stat(entry.path)
		var created time.Time
		if info != nil {
			created = info.ModTime()
		}
		out := wire.FileFsVolumeInfo{
			VolumeCreationTime: toFiletime(created),
			VolumeSerialNumber: 0x12345678,
			VolumeLabel:        "AGENT_RDP",
		}.Serialize()
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusSuccess, wire.BuildQueryVolumeInformationResponse(out))
	default:
		logging.Debug("Rdpdr: unsupported volume information class %d", q.FsInformationClass)
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusUnsuccessful, wire.BuildQueryVolumeInformationResponse(nil))
	}
}

func diskSpace(path string) (total, free uint64) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 100 * 1024 * 1024 * 1024, 50 * 1024 * 1024 * 1024
	}
	total = uint64(stat.Bsize) * stat.Blocks
	free = uint64(stat.Bsize) * stat.Bavail
	return total, free
}

func (b *Backend) handleQueryDirectory(req *wire.IoRequest, body []byte) []byte {
	q, err := wire.ParseQueryDirectoryRequest(body)
	if err != nil {
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusUnsuccessful, nil)
	}
	if q.FsInformationClass != wire.FileBothDirectoryInformation {
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusNotSupported, nil)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.open[req.FileID]
	if !ok {
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusNoSuchFile, nil)
	}
	drive, ok := b.drives[req.DeviceID]
	if !ok {
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusNoSuchFile, nil)
	}

	var matchPath string
	if q.InitialQuery {
		if strings.HasSuffix(q.Path, "*") {
			dirRel := strings.TrimSuffix(q.Path, "*")
			dirPath := resolvePath(drive.Path, dirRel)
			entries, err := os.ReadDir(dirPath)
			if err == nil {
				cursor := &dirCursor{entries: entries}
				for cursor.pos < len(entries) {
					name := entries[cursor.pos].Name()
					cursor.pos++
					if name != "." && name != ".." {
						matchPath = filepath.Join(dirPath, name)
						break
					}
				}
				b.dirs[req.FileID] = cursor
			}
		} else {
			matchPath = resolvePath(drive.Path, q.Path)
		}
		return b.buildDirectoryEntryReply(req, matchPath, true)
	}

	cursor, ok := b.dirs[req.FileID]
	if ok {
		for cursor.pos < len(cursor.entries) {
			name := cursor.entries[cursor.pos].Name()
			cursor.pos++
			if name != "." && name != ".." {
				matchPath = filepath.Join(drive.Path, name)
				break
			}
		}
	}
	return b.buildDirectoryEntryReply(req, matchPath, false)
}

func (b *Backend) buildDirectoryEntryReply(req *wire.IoRequest, matchPath string, initial bool) []byte {
	notFound := wire.StatusNoMoreFiles
	if initial {
		notFound = wire.StatusNoSuchFile
	}
	if matchPath == "" {
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, notFound, nil)
	}

	info, err := os.Stat(matchPath)
	if err != nil {
		return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, notFound, nil)
	}

	ft := toFiletime(info.ModTime())
	entry := wire.BuildDirectoryEntry(wire.DirectoryEntry{
		CreationTime:   ft,
		LastAccessTime: ft,
		LastWriteTime:  ft,
		ChangeTime:     ft,
		EndOfFile:      uint64(info.Size()),
		AllocationSize: uint64(info.Size()),
		FileAttributes: fileAttributes(info),
		FileName:       filepath.Base(matchPath),
	})
	return wire.BuildIoCompletion(req.DeviceID, req.CompletionID, wire.StatusSuccess, wire.BuildQueryDirectoryResponse(entry))
}

// DeviceAnnounce returns the DR_DEVICE_ANNOUNCE body for a registered drive
// (MS-RDPEFS 2.2.3.1), advertised to the server once the CLIENTID_CONFIRM
// handshake completes.
func (d Drive) DeviceAnnounce() []byte {
	nameBytes := []byte(d.Name)
	if len(nameBytes) > 7 {
		nameBytes = nameBytes[:7]
	}
	var dosName [8]byte
	copy(dosName[:], nameBytes)

	data := []byte(d.Name + "\x00")

	buf := make([]byte, 20+len(data))
	putU32 := func(off int, v uint32) {
		buf[off], buf[off+1], buf[off+2], buf[off+3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	}
	putU32(0, wire.DeviceTypeFileSystem)
	putU32(4, d.DeviceID)
	copy(buf[8:16], dosName[:])
	putU32(16, uint32(len(data)))
	copy(buf[20:], data)
	return buf
}

// ErrUnknownDrive indicates a device id with no registered drive.
var ErrUnknownDrive = fmt.Errorf("rdpdr: unknown drive")
