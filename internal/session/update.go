package session

import (
	"bytes"
	"fmt"

	"github.com/rcarmo/agent-rdp/internal/codec"
	"github.com/rcarmo/agent-rdp/internal/framebuffer"
	"github.com/rcarmo/agent-rdp/internal/protocol/fastpath"
	"github.com/rcarmo/agent-rdp/internal/rdp"
)

// applyUpdate decodes one rdp.Update and, if it carries pixel data,
// writes it into fb. Update kinds the session doesn't render (orders,
// palette, synchronize) are acknowledged and dropped: the framebuffer
// only models RGBA32 pixels, not drawing orders.
func applyUpdate(fb *framebuffer.Framebuffer, upd *rdp.Update) error {
	switch upd.Kind {
	case rdp.UpdateKindSlowPathBitmap:
		rects, err := fastpath.ParseBitmapRectangles(upd.Data)
		if err != nil {
			return fmt.Errorf("session: slow-path bitmap: %w", err)
		}
		return applyRectangles(fb, rects)

	case rdp.UpdateKindFastPath:
		return applyFastPathData(fb, upd.Data)

	default:
		return nil
	}
}

// applyFastPathData walks one or more fastpath.Update entries packed
// back to back in a Fast-Path output PDU's Data and applies whichever
// ones carry bitmap pixels.
func applyFastPathData(fb *framebuffer.Framebuffer, data []byte) error {
	wire := bytes.NewReader(data)
	for wire.Len() > 0 {
		var u fastpath.Update
		if err := u.Deserialize(wire); err != nil {
			return fmt.Errorf("session: fastpath update: %w", err)
		}

		if u.UpdateCode != fastpath.UpdateCodeBitmap {
			// Orders, palette, pointer and surface-command updates
			// don't change framebuffer pixels through this path.
			continue
		}

		rects, err := fastpath.ParseBitmapRectangles(u.Data)
		if err != nil {
			return fmt.Errorf("session: fastpath bitmap: %w", err)
		}
		if err := applyRectangles(fb, rects); err != nil {
			return err
		}
	}
	return nil
}

func applyRectangles(fb *framebuffer.Framebuffer, rects []fastpath.BitmapData) error {
	for _, rect := range rects {
		bpp := int(rect.BitsPerPixel)
		bytesPerPixel := bpp / 8
		if bytesPerPixel == 0 {
			continue
		}

		rowDelta := int(rect.Width) * bytesPerPixel
		rgba := codec.ProcessBitmap(rect.Data, int(rect.Width), int(rect.Height), bpp, rect.IsCompressed(), rowDelta)
		if rgba == nil {
			return fmt.Errorf("session: failed to decode %dx%d bitmap rectangle at (%d,%d)",
				rect.Width, rect.Height, rect.DestLeft, rect.DestTop)
		}

		if err := fb.WritePixels(rect.DestLeft, rect.DestTop, rect.Width, rect.Height, rgba); err != nil {
			return fmt.Errorf("session: apply bitmap rectangle: %w", err)
		}
	}
	return nil
}
