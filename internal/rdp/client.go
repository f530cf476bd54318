// Package rdp implements a Remote Desktop Protocol client supporting RDP 5+
// with NLA authentication, bitmap updates, and virtual channels.
package rdp

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rcarmo/agent-rdp/internal/automation"
	"github.com/rcarmo/agent-rdp/internal/clipboard"
	"github.com/rcarmo/agent-rdp/internal/logging"
	"github.com/rcarmo/agent-rdp/internal/protocol/drdynvc"
	"github.com/rcarmo/agent-rdp/internal/protocol/fastpath"
	"github.com/rcarmo/agent-rdp/internal/protocol/mcs"
	"github.com/rcarmo/agent-rdp/internal/protocol/pdu"
	"github.com/rcarmo/agent-rdp/internal/protocol/tpkt"
	"github.com/rcarmo/agent-rdp/internal/protocol/vchannel"
	"github.com/rcarmo/agent-rdp/internal/protocol/x224"
	"github.com/rcarmo/agent-rdp/internal/rdpdr"
)

// Client represents an RDP client connection to a remote desktop server.
type Client struct {
	mu sync.RWMutex

	// writeMu serialises every write to the wire: input events from the
	// session actor and backend-driven channel sends (clipboard,
	// automation) can originate from different goroutines, and RDP
	// requires a strict total order over stream writes.
	writeMu sync.Mutex

	conn       net.Conn
	buffReader *bufio.Reader
	tpktLayer  *tpkt.Protocol
	x224Layer  *x224.Protocol
	mcsLayer   mcs.MCSLayer
	fastPath   *fastpath.Protocol

	domain   string
	username string
	password string

	desktopWidth, desktopHeight uint16
	colorDepth                  int

	serverCapabilitySets []pdu.CapabilitySet

	selectedProtocol       pdu.NegotiationProtocol
	serverNegotiationFlags pdu.NegotiationResponseFlag
	channels               []string
	channelIDMap           map[string]uint16
	skipChannelJoin        bool
	shareID                uint32
	userID                 uint16

	// TLS configuration
	skipTLSValidation bool
	tlsServerName     string

	// NLA configuration
	useNLA bool

	// enableRFX advertises RemoteFX in the bitmap codecs capability set.
	enableRFX bool

	// Clipboard (CLIPRDR) engine, present once EnableClipboard has been called.
	clipboard *clipboard.Engine

	// Drive redirection (RDPDR) backend, present once a drive has been added.
	driveRedirection *rdpdr.Backend

	// Automation (DRDYNVC) shared state, present once EnableAutomation has
	// been called.
	automationState *automation.SharedState
	// automationDVCID is the dynamic channel id the server assigned to
	// the automation DVC once DYNVC_CREATE_REQ arrives for it.
	automationDVCID *uint32

	// Per-SVC reassembly state for the channels this client terminates
	// directly (cliprdr/rdpdr/drdynvc all ride the generic channel PDU
	// framing; drdynvc additionally fragments its own payloads with
	// DYNVC_DATA_FIRST/DYNVC_DATA, tracked in dvcBuffers).
	cliprdrDefrag vchannel.Defragmenter
	rdpdrDefrag   vchannel.Defragmenter
	drdynvcDefrag vchannel.Defragmenter
	dvcBuffers    map[uint32][]byte

	// Pending slow-path update (per-client, not global)
	pendingSlowPathUpdate *Update
}

const (
	tcpConnectionTimeout = 5 * time.Second
	readBufferSize       = 64 * 1024
)

// NewClient creates a new RDP client and establishes a TCP connection to the server.
func NewClient(
	hostname, username, password string,
	desktopWidth, desktopHeight int,
	colorDepth int,
) (*Client, error) {
	// Add default RDP port if not specified
	if !strings.Contains(hostname, ":") {
		hostname = hostname + ":3389"
	}

	c := Client{
		domain:   "",
		username: username,
		password: password,

		dvcBuffers: make(map[uint32][]byte),

		desktopWidth:  uint16(desktopWidth),
		desktopHeight: uint16(desktopHeight),
		colorDepth:    colorDepth,

		selectedProtocol: pdu.NegotiationProtocolSSL,
		// Default TLS configuration - can be overridden with SetTLSConfig
		skipTLSValidation: false,
		tlsServerName:     "",
	}

	var err error

	c.conn, err = net.DialTimeout("tcp", hostname, tcpConnectionTimeout)
	if err != nil {
		return nil, fmt.Errorf("tcp connect: %w", err)
	}

	c.buffReader = bufio.NewReaderSize(c.conn, readBufferSize)

	c.tpktLayer = tpkt.New(&c)
	c.x224Layer = x224.New(c.tpktLayer)
	c.mcsLayer = mcs.New(c.x224Layer)
	c.fastPath = fastpath.New(&c)

	return &c, nil
}

// SetTLSConfig allows setting TLS configuration for the RDP client
func (c *Client) SetTLSConfig(skipValidation bool, serverName string) {
	c.skipTLSValidation = skipValidation
	c.tlsServerName = serverName
}

// SetUseNLA enables or disables Network Level Authentication
func (c *Client) SetUseNLA(useNLA bool) {
	c.useNLA = useNLA
	if useNLA {
		c.selectedProtocol = pdu.NegotiationProtocolHybrid
	} else {
		c.selectedProtocol = pdu.NegotiationProtocolSSL
	}
}

// SetEnableRFX toggles whether RemoteFX is advertised in the bitmap
// codecs capability set during capabilitiesExchange.
func (c *Client) SetEnableRFX(enable bool) {
	c.enableRFX = enable
}

// Known codec GUIDs (stored in wire format per MS-RDPBCGR)
// GUID Data1 is 32-bit LE, Data2 is 16-bit LE, Data3 is 16-bit LE, Data4 is 8 bytes BE
var (
	// NSCodec: CA8D1BB9-000F-154F-589F-AE2D1A87E2D6
	guidNSCodec = [16]byte{0xB9, 0x1B, 0x8D, 0xCA, 0x0F, 0x00, 0x4F, 0x15, 0x58, 0x9F, 0xAE, 0x2D, 0x1A, 0x87, 0xE2, 0xD6}
	// RemoteFX: 76772F12-BD72-4463-AFB3-B73C9C6F7886
	guidRemoteFX = [16]byte{0x12, 0x2F, 0x77, 0x76, 0x72, 0xBD, 0x63, 0x44, 0xAF, 0xB3, 0xB7, 0x3C, 0x9C, 0x6F, 0x78, 0x86}
	// RemoteFX Image: 2744CCD4-9D8A-4E74-803C-0ECBEAA19C54
	guidImageRemoteFX = [16]byte{0xD4, 0xCC, 0x44, 0x27, 0x8A, 0x9D, 0x74, 0x4E, 0x80, 0x3C, 0x0E, 0xCB, 0xEA, 0xA1, 0x9C, 0x54}
	// ClearCodec: A6971CE3-8D58-425B-AC18-E09B7D42C7D5
	guidClearCodec = [16]byte{0xE3, 0x1C, 0x97, 0xA6, 0x58, 0x8D, 0x5B, 0x42, 0xAC, 0x18, 0xE0, 0x9B, 0x7D, 0x42, 0xC7, 0xD5}
	// Ignore: 9C4351A6-3535-42AE-910C-CDFCE5760B58
	guidIgnore = [16]byte{0xA6, 0x51, 0x43, 0x9C, 0x35, 0x35, 0xAE, 0x42, 0x91, 0x0C, 0xCD, 0xFC, 0xE5, 0x76, 0x0B, 0x58}
	// RemoteFX Progressive: E329E05D-9B18-4F9D-8EC3-4E4DD1EB3DC1
	guidRemoteFXProgressive = [16]byte{0x5D, 0xE0, 0x29, 0xE3, 0x18, 0x9B, 0x9D, 0x4F, 0x8E, 0xC3, 0x4E, 0x4D, 0xD1, 0xEB, 0x3D, 0xC1}
)

func codecGUIDToName(guid [16]byte) string {
	switch guid {
	case guidNSCodec:
		return "NSCodec"
	case guidRemoteFX:
		return "RemoteFX"
	case guidImageRemoteFX:
		return "RemoteFX-Image"
	case guidClearCodec:
		return "ClearCodec"
	case guidIgnore:
		return "Ignore"
	case guidRemoteFXProgressive:
		return "RemoteFX-Progressive"
	default:
		return fmt.Sprintf("Unknown(%x)", guid[:4])
	}
}

// ServerCapabilityInfo contains a summary of server capabilities for logging
type ServerCapabilityInfo struct {
	BitmapCodecs      []string
	SurfaceCommands   bool
	ColorDepth        int
	DesktopSize       string
	GeneralFlags      uint16
	OrderFlags        uint32
	MultifragmentSize uint32
	LargePointer      bool
	FrameAcknowledge  bool
	// Connection info
	UseNLA            bool
	ClipboardEnabled  bool
	DriveRedirection  bool
	AutomationEnabled bool
	Channels          []string
}

// GetServerCapabilities returns a summary of the server's capabilities
func (c *Client) GetServerCapabilities() *ServerCapabilityInfo {
	info := &ServerCapabilityInfo{
		BitmapCodecs:      []string{},
		UseNLA:            c.useNLA,
		ClipboardEnabled:  c.clipboard != nil,
		DriveRedirection:  c.driveRedirection != nil,
		AutomationEnabled: c.automationState != nil,
		Channels:          c.channels,
	}

	for _, capSet := range c.serverCapabilitySets {
		switch capSet.CapabilitySetType {
		case pdu.CapabilitySetTypeBitmap:
			if capSet.BitmapCapabilitySet != nil {
				info.ColorDepth = int(capSet.BitmapCapabilitySet.PreferredBitsPerPixel)
				info.DesktopSize = fmt.Sprintf("%dx%d",
					capSet.BitmapCapabilitySet.DesktopWidth,
					capSet.BitmapCapabilitySet.DesktopHeight)
			}
		case pdu.CapabilitySetTypeGeneral:
			if capSet.GeneralCapabilitySet != nil {
				info.GeneralFlags = capSet.GeneralCapabilitySet.ExtraFlags
			}
		case pdu.CapabilitySetTypeOrder:
			if capSet.OrderCapabilitySet != nil {
				info.OrderFlags = uint32(capSet.OrderCapabilitySet.OrderFlags)
			}
		case pdu.CapabilitySetTypeSurfaceCommands:
			info.SurfaceCommands = true
		case pdu.CapabilitySetTypeBitmapCodecs:
			if capSet.BitmapCodecsCapabilitySet != nil {
				for _, codec := range capSet.BitmapCodecsCapabilitySet.BitmapCodecArray {
					info.BitmapCodecs = append(info.BitmapCodecs, codecGUIDToName(codec.CodecGUID))
				}
			}
		case pdu.CapabilitySetTypeMultifragmentUpdate:
			if capSet.MultifragmentUpdateCapabilitySet != nil {
				info.MultifragmentSize = capSet.MultifragmentUpdateCapabilitySet.MaxRequestSize
			}
		case pdu.CapabilitySetTypeLargePointer:
			info.LargePointer = true
		case pdu.CapabilitySetTypeFrameAcknowledge:
			info.FrameAcknowledge = true
		}
	}

	return info
}

// EnableClipboard registers the "cliprdr" static channel and returns the
// clipboard engine that will drive it once the channel is established.
func (c *Client) EnableClipboard() *clipboard.Engine {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.clipboard != nil {
		return c.clipboard
	}
	c.channels = append(c.channels, "cliprdr")
	c.clipboard = clipboard.NewEngine(nil)
	engine := c.clipboard

	go func() {
		for payload := range engine.Out {
			if err := c.sendCliprdrData(payload); err != nil {
				logging.Warn("Clipboard: send failed: %v", err)
			}
		}
	}()

	return engine
}

// EnableDriveRedirection registers the "rdpdr" static channel and adds a
// local directory as a redirected drive.
func (c *Client) EnableDriveRedirection(deviceID uint32, name, path string) *rdpdr.Backend {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.driveRedirection == nil {
		c.channels = append(c.channels, "rdpdr")
		c.driveRedirection = rdpdr.NewBackend()
	}
	c.driveRedirection.AddDrive(deviceID, name, path)
	return c.driveRedirection
}

// EnableAutomation registers the dynamic virtual channel transport
// (drdynvc) and returns the automation shared state used to exchange
// JSON request/response pairs with the in-guest agent.
func (c *Client) EnableAutomation() *automation.SharedState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.automationState != nil {
		return c.automationState
	}
	for _, ch := range c.channels {
		if ch == "drdynvc" {
			c.automationState = automation.NewSharedState()
			return c.automationState
		}
	}
	c.channels = append(c.channels, "drdynvc")
	c.automationState = automation.NewSharedState()
	state := c.automationState

	go func() {
		for payload := range state.Out {
			if err := c.sendAutomationPayload(payload); err != nil {
				logging.Warn("Automation: send failed: %v", err)
			}
		}
	}()

	return state
}

// sendAutomationPayload wraps one automation JSON message in a DYNVC_DATA
// PDU and sends it over the drdynvc SVC.
func (c *Client) sendAutomationPayload(payload []byte) error {
	c.mu.RLock()
	channelID := c.automationDVCID
	c.mu.RUnlock()
	if channelID == nil {
		return fmt.Errorf("automation: dynamic channel not yet established")
	}

	dataPDU := drdynvc.DataPDU{ChannelID: *channelID, Data: payload}
	for _, chunk := range vchannel.Build(dataPDU.Serialize()) {
		if err := c.sendChannelData("drdynvc", chunk); err != nil {
			return err
		}
	}
	return nil
}

// sendChannelData sends raw bytes over an established static virtual
// channel by name.
func (c *Client) sendChannelData(channelName string, data []byte) error {
	c.mu.RLock()
	channelID, ok := c.channelIDMap[channelName]
	userID := c.userID
	mcsLayer := c.mcsLayer
	c.mu.RUnlock()

	if !ok {
		return fmt.Errorf("channel %q not established", channelName)
	}
	if mcsLayer == nil {
		return fmt.Errorf("MCS layer not initialized")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return mcsLayer.Send(userID, channelID, data)
}
