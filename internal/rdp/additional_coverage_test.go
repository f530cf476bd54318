package rdp

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/rcarmo/agent-rdp/internal/protocol/pdu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test handleSlowPathGraphicsUpdate with various data sizes
func TestClient_handleSlowPathGraphicsUpdate_DataSizes(t *testing.T) {
	tests := []struct {
		name       string
		updateType uint16
		dataSize   int
	}{
		{"bitmap empty", SlowPathUpdateTypeBitmap, 0},
		{"bitmap small", SlowPathUpdateTypeBitmap, 10},
		{"bitmap medium", SlowPathUpdateTypeBitmap, 1000},
		{"bitmap large", SlowPathUpdateTypeBitmap, 10000},
		{"palette small", SlowPathUpdateTypePalette, 100},
		{"synchronize", SlowPathUpdateTypeSynchronize, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			_ = binary.Write(buf, binary.LittleEndian, tt.updateType)
			buf.Write(make([]byte, tt.dataSize))

			client := &Client{}
			result, err := client.handleSlowPathGraphicsUpdate(buf)

			require.NoError(t, err)
			assert.NotNil(t, result)
		})
	}
}

// Test ServerCapabilities with all capability types
func TestClient_GetServerCapabilities_Complete(t *testing.T) {
	client := &Client{
		serverCapabilitySets: []pdu.CapabilitySet{
			{
				CapabilitySetType: pdu.CapabilitySetTypeBitmap,
				BitmapCapabilitySet: &pdu.BitmapCapabilitySet{
					PreferredBitsPerPixel: 32,
					DesktopWidth:          1920,
					DesktopHeight:         1080,
				},
			},
			{
				CapabilitySetType: pdu.CapabilitySetTypeGeneral,
				GeneralCapabilitySet: &pdu.GeneralCapabilitySet{
					ExtraFlags: 0x1234,
				},
			},
			{
				CapabilitySetType: pdu.CapabilitySetTypeOrder,
				OrderCapabilitySet: &pdu.OrderCapabilitySet{
					OrderFlags: 0x5678,
				},
			},
			{
				CapabilitySetType: pdu.CapabilitySetTypeSurfaceCommands,
			},
			{
				CapabilitySetType: pdu.CapabilitySetTypeLargePointer,
			},
			{
				CapabilitySetType: pdu.CapabilitySetTypeFrameAcknowledge,
			},
			{
				CapabilitySetType: pdu.CapabilitySetTypeMultifragmentUpdate,
				MultifragmentUpdateCapabilitySet: &pdu.MultifragmentUpdateCapabilitySet{
					MaxRequestSize: 0x100000,
				},
			},
			{
				CapabilitySetType: pdu.CapabilitySetTypeBitmapCodecs,
				BitmapCodecsCapabilitySet: &pdu.BitmapCodecsCapabilitySet{
					BitmapCodecArray: []pdu.BitmapCodec{
						{CodecGUID: guidNSCodec},
						{CodecGUID: guidRemoteFX},
						{CodecGUID: guidImageRemoteFX},
						{CodecGUID: guidClearCodec},
					},
				},
			},
		},
	}

	info := client.GetServerCapabilities()

	require.NotNil(t, info)
	assert.Equal(t, 32, info.ColorDepth)
	assert.Equal(t, "1920x1080", info.DesktopSize)
	assert.Equal(t, uint16(0x1234), info.GeneralFlags)
	assert.Equal(t, uint32(0x5678), info.OrderFlags)
	assert.True(t, info.SurfaceCommands)
	assert.True(t, info.LargePointer)
	assert.True(t, info.FrameAcknowledge)
	assert.Equal(t, uint32(0x100000), info.MultifragmentSize)
	assert.Len(t, info.BitmapCodecs, 4)
}

// Test PDU types
func TestPDU_Types(t *testing.T) {
	// Test Type constants
	assert.Equal(t, pdu.Type(0x11), pdu.TypeDemandActive)
	assert.Equal(t, pdu.Type(0x13), pdu.TypeConfirmActive)
	assert.Equal(t, pdu.Type(0x16), pdu.TypeDeactivateAll)
	assert.Equal(t, pdu.Type(0x17), pdu.TypeData)

	// Test Type2 constants
	assert.Equal(t, pdu.Type2(0x02), pdu.Type2Update)
	assert.Equal(t, pdu.Type2(0x14), pdu.Type2Control)
	assert.Equal(t, pdu.Type2(0x1F), pdu.Type2Synchronize)
	assert.Equal(t, pdu.Type2(0x28), pdu.Type2Fontmap)
	assert.Equal(t, pdu.Type2(0x2F), pdu.Type2ErrorInfo)
}

// Test Type methods
func TestType_Methods(t *testing.T) {
	assert.True(t, pdu.TypeDemandActive.IsDemandActive())
	assert.True(t, pdu.TypeConfirmActive.IsConfirmActive())
	assert.True(t, pdu.TypeDeactivateAll.IsDeactivateAll())
	assert.True(t, pdu.TypeData.IsData())

	// Negative cases
	assert.False(t, pdu.TypeData.IsDemandActive())
	assert.False(t, pdu.TypeData.IsDeactivateAll())
}

// Test Type2 methods
func TestType2_Methods_Extended(t *testing.T) {
	assert.True(t, pdu.Type2Update.IsUpdate())
	assert.True(t, pdu.Type2Control.IsControl())
	assert.True(t, pdu.Type2Synchronize.IsSynchronize())
	assert.True(t, pdu.Type2Fontmap.IsFontmap())
	assert.True(t, pdu.Type2ErrorInfo.IsErrorInfo())

	// Negative cases
	assert.False(t, pdu.Type2Update.IsControl())
	assert.False(t, pdu.Type2Control.IsSynchronize())
}

// Test NewClient with various configurations
func TestClient_NewClient_Extended(t *testing.T) {
	tests := []struct {
		name        string
		hostname    string
		expectError bool
	}{
		{"localhost unreachable", "127.0.0.1:13389", true},
		{"invalid port", "localhost:99999", true},
		{"missing port", "localhost", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.hostname, "user", "pass", 1024, 768, 16)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, client)
			}
		})
	}
}
