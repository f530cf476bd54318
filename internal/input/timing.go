package input

import "time"

// Timing constants from spec.md §4.3. These gaps are part of the
// contract, not a tuning knob — typing faster drops characters on many
// Windows targets.
const (
	TypingGap     = 100 * time.Millisecond
	ComboPressGap = 10 * time.Millisecond
	ComboHoldTime = 50 * time.Millisecond
	ClickGap      = 20 * time.Millisecond
	DragSettle    = 50 * time.Millisecond

	// WheelNotch is the wheel-delta unit per spec.md §4.3: one scroll
	// notch corresponds to 120 units.
	WheelNotch uint16 = 120
)
