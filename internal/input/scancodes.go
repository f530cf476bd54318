// Package input translates CLI-level input verbs (typed text, key
// combinations, mouse actions, scroll) into ordered sequences of
// FastPath input events. Grounded on spec.md §4.3's scancode table and
// timing contract.
package input

import (
	"fmt"
	"strings"
)

// Key is a single scancode entry: a PC/AT Set-1 scancode plus whether
// it belongs to the extended (0xE0-prefixed) set.
type Key struct {
	Scancode uint8
	Extended bool
}

// scancodes is the fixed US-layout key-name table. Right-hand modifier
// variants and the navigation cluster/arrows/num-pad-divide are marked
// extended per spec.md §4.3.
var scancodes = map[string]Key{
	// Modifiers
	"ctrl":   {0x1D, false},
	"lctrl":  {0x1D, false},
	"rctrl":  {0x1D, true},
	"alt":    {0x38, false},
	"lalt":   {0x38, false},
	"ralt":   {0x38, true},
	"shift":  {0x2A, false},
	"lshift": {0x2A, false},
	"rshift": {0x36, false},
	"win":    {0x5B, true},
	"super":  {0x5B, true},
	"meta":   {0x5B, true},
	"rwin":   {0x5C, true},
	"menu":   {0x5D, true},

	// Function keys
	"f1": {0x3B, false}, "f2": {0x3C, false}, "f3": {0x3D, false}, "f4": {0x3E, false},
	"f5": {0x3F, false}, "f6": {0x40, false}, "f7": {0x41, false}, "f8": {0x42, false},
	"f9": {0x43, false}, "f10": {0x44, false}, "f11": {0x57, false}, "f12": {0x58, false},

	// Navigation cluster
	"insert": {0x52, true}, "delete": {0x53, true},
	"home": {0x47, true}, "end": {0x4F, true},
	"pageup": {0x49, true}, "pagedown": {0x51, true},

	// Arrows
	"up": {0x48, true}, "down": {0x50, true}, "left": {0x4B, true}, "right": {0x4D, true},

	// Standalone keys
	"enter": {0x1C, false}, "tab": {0x0F, false}, "backspace": {0x0E, false},
	"escape": {0x01, false}, "space": {0x39, false}, "capslock": {0x3A, false},
	"printscreen": {0x37, true}, "scrolllock": {0x46, false}, "pause": {0x45, false},
	"numpaddivide": {0x35, true},

	// Digit row
	"1": {0x02, false}, "2": {0x03, false}, "3": {0x04, false}, "4": {0x05, false},
	"5": {0x06, false}, "6": {0x07, false}, "7": {0x08, false}, "8": {0x09, false},
	"9": {0x0A, false}, "0": {0x0B, false},

	// Letters
	"a": {0x1E, false}, "b": {0x30, false}, "c": {0x2E, false}, "d": {0x20, false},
	"e": {0x12, false}, "f": {0x21, false}, "g": {0x22, false}, "h": {0x23, false},
	"i": {0x17, false}, "j": {0x24, false}, "k": {0x25, false}, "l": {0x26, false},
	"m": {0x32, false}, "n": {0x31, false}, "o": {0x18, false}, "p": {0x19, false},
	"q": {0x10, false}, "r": {0x13, false}, "s": {0x1F, false}, "t": {0x14, false},
	"u": {0x16, false}, "v": {0x2F, false}, "w": {0x11, false}, "x": {0x2D, false},
	"y": {0x15, false}, "z": {0x2C, false},

	// Punctuation
	"-": {0x0C, false}, "=": {0x0D, false}, "[": {0x1A, false}, "]": {0x1B, false},
	";": {0x27, false}, "'": {0x28, false}, "`": {0x29, false}, "\\": {0x2B, false},
	",": {0x33, false}, ".": {0x34, false}, "/": {0x35, false},
}

// LookupKey resolves a key-name token (case-insensitive) to its
// scancode. Unknown tokens are the grammar's invalid_request case.
func LookupKey(name string) (Key, error) {
	key, ok := scancodes[strings.ToLower(name)]
	if !ok {
		return Key{}, fmt.Errorf("input: unrecognised key name %q", name)
	}
	return key, nil
}

// ParseCombo splits a '+'-delimited key combination (e.g.
// "ctrl+shift+a") into its ordered physical keys.
func ParseCombo(combo string) ([]Key, error) {
	if strings.TrimSpace(combo) == "" {
		return nil, fmt.Errorf("input: empty key combination")
	}

	tokens := strings.Split(combo, "+")
	keys := make([]Key, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			return nil, fmt.Errorf("input: empty token in key combination %q", combo)
		}
		key, err := LookupKey(tok)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}
