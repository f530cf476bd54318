// Package screenshot encodes a raw RGBA framebuffer into the PNG/JPEG
// bytes the IPC screenshot verb and the WebSocket viewer hand back to
// callers. It never touches the framebuffer itself — callers pass in
// whatever (width, height, rgba) Session.Snapshot returned.
package screenshot

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
)

// Format is one of the two encodings the IPC screenshot verb accepts.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// DefaultJPEGQuality matches the teacher's own codec defaults: good
// enough for a debug viewer, small enough to broadcast at 10 FPS.
const DefaultJPEGQuality = 80

// toImage wraps a raw RGBA buffer as an image.Image without copying it.
func toImage(width, height uint16, rgba []byte) (*image.RGBA, error) {
	want := int(width) * int(height) * 4
	if len(rgba) != want {
		return nil, fmt.Errorf("screenshot: expected %d RGBA bytes for %dx%d, got %d", want, width, height, len(rgba))
	}
	return &image.RGBA{
		Pix:    rgba,
		Stride: int(width) * 4,
		Rect:   image.Rect(0, 0, int(width), int(height)),
	}, nil
}

// Encode renders the given framebuffer snapshot to the requested
// format and returns the raw (not base64-encoded) bytes.
func Encode(format Format, width, height uint16, rgba []byte) ([]byte, error) {
	img, err := toImage(width, height, rgba)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch format {
	case FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("screenshot: png encode: %w", err)
		}
	case FormatJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: DefaultJPEGQuality}); err != nil {
			return nil, fmt.Errorf("screenshot: jpeg encode: %w", err)
		}
	default:
		return nil, fmt.Errorf("screenshot: unsupported format %q", format)
	}
	return buf.Bytes(), nil
}

// EncodeBase64 is Encode followed by standard base64 encoding, the
// shape the IPC `screenshot` response and the viewer's frame envelope
// both need.
func EncodeBase64(format Format, width, height uint16, rgba []byte) (string, error) {
	data, err := Encode(format, width, height, rgba)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
