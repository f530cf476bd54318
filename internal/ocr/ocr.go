// Package ocr declares the collaborator interface for optical
// character recognition over rendered frames. It intentionally ships
// no implementation: spec.md names the OCR service as out-of-scope,
// an "external collaborator" whose wire/API contract matters but whose
// engine does not belong in this daemon.
package ocr

// Point is a pixel coordinate in the frame the recognised line came
// from.
type Point struct {
	X, Y int
}

// Line is one recognised line of text plus its bounding box and
// centre point, the shape a caller needs to click on what it read.
type Line struct {
	Text          string
	Left, Top     int
	Right, Bottom int
	Center        Point
}

// Engine recognises text in a rendered frame. internal/ipc holds an
// Engine by reference (nil until a caller wires one in) and returns
// not_supported when asked to run OCR without one configured.
type Engine interface {
	Recognize(png []byte) ([]Line, error)
}
