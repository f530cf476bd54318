package input

import (
	"fmt"
	"strings"
	"time"

	"github.com/rcarmo/agent-rdp/internal/protocol/fastpath"
)

// Step is one FastPath input event paired with the delay that must
// elapse before it is sent. The translator is a pure function of the
// input verb: it never touches the framebuffer, and callers are
// responsible for funnelling Steps through the session actor's command
// channel so ordering with frame processing stays strict.
type Step struct {
	Delay time.Duration
	Event fastpath.InputEvent
}

// MouseButton identifies which pointer button an action applies to.
type MouseButton int

const (
	ButtonLeft MouseButton = iota
	ButtonRight
	ButtonMiddle
)

func buttonFlag(b MouseButton) uint16 {
	switch b {
	case ButtonRight:
		return fastpath.PtrFlagButton2
	case ButtonMiddle:
		return fastpath.PtrFlagButton3
	default:
		return fastpath.PtrFlagButton1
	}
}

// TypeText maps each rune in text to a Unicode-key press/release pair
// with a 100ms gap, per spec.md §4.3.
func TypeText(text string) []Step {
	steps := make([]Step, 0, len(text)*2)
	for _, r := range text {
		code := uint16(r)
		steps = append(steps, Step{Event: fastpath.UnicodeKeyboardEvent{Code: code}})
		steps = append(steps, Step{Delay: TypingGap, Event: fastpath.UnicodeKeyboardEvent{Code: code, Release: true}})
	}
	return steps
}

// PressCombo presses every key in combo in order with a 10ms gap, holds
// for 50ms, then releases in reverse order with a 10ms gap.
func PressCombo(combo string) ([]Step, error) {
	keys, err := ParseCombo(combo)
	if err != nil {
		return nil, err
	}

	steps := make([]Step, 0, len(keys)*2)
	for i, k := range keys {
		delay := time.Duration(0)
		if i > 0 {
			delay = ComboPressGap
		}
		steps = append(steps, Step{Delay: delay, Event: fastpath.KeyboardEvent{Scancode: k.Scancode, Extended: k.Extended}})
	}

	for i := len(keys) - 1; i >= 0; i-- {
		delay := ComboPressGap
		if i == len(keys)-1 {
			delay = ComboHoldTime
		}
		k := keys[i]
		steps = append(steps, Step{Delay: delay, Event: fastpath.KeyboardEvent{Scancode: k.Scancode, Extended: k.Extended, Release: true}})
	}
	return steps, nil
}

// KeyDown presses a single named key without releasing it.
func KeyDown(name string) ([]Step, error) {
	k, err := LookupKey(name)
	if err != nil {
		return nil, err
	}
	return []Step{{Event: fastpath.KeyboardEvent{Scancode: k.Scancode, Extended: k.Extended}}}, nil
}

// KeyUp releases a single named key.
func KeyUp(name string) ([]Step, error) {
	k, err := LookupKey(name)
	if err != nil {
		return nil, err
	}
	return []Step{{Event: fastpath.KeyboardEvent{Scancode: k.Scancode, Extended: k.Extended, Release: true}}}, nil
}

// MouseMove emits one pointer-move event.
func MouseMove(x, y uint16) []Step {
	return []Step{{Event: fastpath.MouseEvent{Flags: fastpath.PtrFlagMove, X: x, Y: y}}}
}

// MouseButtonDown presses a button at the given coordinates without
// releasing it.
func MouseButtonDown(button MouseButton, x, y uint16) []Step {
	return []Step{{Event: fastpath.MouseEvent{Flags: buttonFlag(button) | fastpath.PtrFlagDown, X: x, Y: y}}}
}

// MouseButtonUp releases a button at the given coordinates.
func MouseButtonUp(button MouseButton, x, y uint16) []Step {
	return []Step{{Event: fastpath.MouseEvent{Flags: buttonFlag(button), X: x, Y: y}}}
}

// MouseClick is a press+release pair with a 20ms gap.
func MouseClick(button MouseButton, x, y uint16) []Step {
	flag := buttonFlag(button)
	return []Step{
		{Event: fastpath.MouseEvent{Flags: flag | fastpath.PtrFlagDown, X: x, Y: y}},
		{Delay: ClickGap, Event: fastpath.MouseEvent{Flags: flag, X: x, Y: y}},
	}
}

// MouseDoubleClick emits two press-release pairs.
func MouseDoubleClick(button MouseButton, x, y uint16) []Step {
	steps := MouseClick(button, x, y)
	second := MouseClick(button, x, y)
	second[0].Delay = ClickGap
	return append(steps, second...)
}

// MouseDrag moves to (fromX, fromY), presses, waits 50ms, moves to
// (toX, toY), then releases.
func MouseDrag(button MouseButton, fromX, fromY, toX, toY uint16) []Step {
	flag := buttonFlag(button)
	return []Step{
		{Event: fastpath.MouseEvent{Flags: fastpath.PtrFlagMove, X: fromX, Y: fromY}},
		{Event: fastpath.MouseEvent{Flags: flag | fastpath.PtrFlagDown, X: fromX, Y: fromY}},
		{Delay: DragSettle, Event: fastpath.MouseEvent{Flags: fastpath.PtrFlagMove, X: toX, Y: toY}},
		{Event: fastpath.MouseEvent{Flags: flag, X: toX, Y: toY}},
	}
}

// ScrollDirection is one of the four scroll verbs from the CLI grammar.
type ScrollDirection string

const (
	ScrollUp    ScrollDirection = "up"
	ScrollDown  ScrollDirection = "down"
	ScrollLeft  ScrollDirection = "left"
	ScrollRight ScrollDirection = "right"
)

// Scroll emits amount wheel events of WheelNotch units each. Amount 0
// emits nothing, per spec.md §8's boundary behaviour. Horizontal and
// vertical directions use distinct flag bits; down/left carry the
// wheel-negative flag.
func Scroll(direction ScrollDirection, amount int, x, y uint16) ([]Step, error) {
	if amount < 0 {
		return nil, fmt.Errorf("input: scroll amount must be non-negative, got %d", amount)
	}

	var base uint16
	switch ScrollDirection(strings.ToLower(string(direction))) {
	case ScrollUp:
		base = fastpath.PtrFlagWheel
	case ScrollDown:
		base = fastpath.PtrFlagWheel | fastpath.PtrFlagWheelNeg
	case ScrollRight:
		base = fastpath.PtrFlagHWheel
	case ScrollLeft:
		base = fastpath.PtrFlagHWheel | fastpath.PtrFlagWheelNeg
	default:
		return nil, fmt.Errorf("input: unrecognised scroll direction %q", direction)
	}

	steps := make([]Step, 0, amount)
	for i := 0; i < amount; i++ {
		steps = append(steps, Step{Event: fastpath.MouseEvent{Flags: base | WheelNotch, X: x, Y: y}})
	}
	return steps, nil
}
