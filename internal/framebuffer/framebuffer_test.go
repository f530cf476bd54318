package framebuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ByteLengthInvariant(t *testing.T) {
	fb := New(800, 600)
	w, h, rgba := fb.Snapshot()
	assert.Equal(t, uint16(800), w)
	assert.Equal(t, uint16(600), h)
	assert.Equal(t, 800*600*4, len(rgba))
}

func TestResize_ByteLengthInvariant(t *testing.T) {
	fb := New(800, 600)
	fb.Resize(1024, 768)
	w, h, rgba := fb.Snapshot()
	assert.Equal(t, uint16(1024), w)
	assert.Equal(t, uint16(768), h)
	assert.Equal(t, 1024*768*4, len(rgba))
}

func TestWritePixels_RoundTrip(t *testing.T) {
	fb := New(4, 4)
	rect := make([]byte, 2*2*4)
	for i := range rect {
		rect[i] = byte(i + 1)
	}

	require.NoError(t, fb.WritePixels(1, 1, 2, 2, rect))

	_, _, rgba := fb.Snapshot()
	stride := 4 * 4
	got := make([]byte, 0, 16)
	for row := 0; row < 2; row++ {
		off := (1+row)*stride + 1*4
		got = append(got, rgba[off:off+8]...)
	}
	assert.Equal(t, rect, got)
}

func TestWritePixels_WrongLength(t *testing.T) {
	fb := New(4, 4)
	err := fb.WritePixels(0, 0, 2, 2, []byte{1, 2, 3})
	assert.Error(t, err)
}

func TestWritePixels_OutOfBounds(t *testing.T) {
	fb := New(4, 4)
	rect := make([]byte, 4*4*4)
	err := fb.WritePixels(2, 2, 4, 4, rect)
	assert.Error(t, err)
}

func TestFill(t *testing.T) {
	fb := New(2, 2)
	require.NoError(t, fb.Fill(0, 0, 2, 2, 0x11, 0x22, 0x33, 0xFF))

	_, _, rgba := fb.Snapshot()
	for i := 0; i < len(rgba); i += 4 {
		assert.Equal(t, []byte{0x11, 0x22, 0x33, 0xFF}, rgba[i:i+4])
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	fb := New(2, 2)
	_, _, rgba := fb.Snapshot()
	rgba[0] = 0xFF

	_, _, again := fb.Snapshot()
	assert.Equal(t, byte(0), again[0])
}
