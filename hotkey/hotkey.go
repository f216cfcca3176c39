// Package hotkey parses hotkey descriptors and bridges OS-level hotkey
// notifications into key events for the coordinator.
package hotkey

import (
	"fmt"
	"hash/fnv"
	"strings"

	"go.aimuz.me/rimay/internal/types"
)

// Modifier is a set of modifier keys.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModAlt
	ModShift
	ModSuper
)

var modifierOrder = []struct {
	mod  Modifier
	name string
}{
	{ModCtrl, "Ctrl"},
	{ModAlt, "Alt"},
	{ModShift, "Shift"},
	{ModSuper, "Super"},
}

var modifierNames = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"shift":   ModShift,
	"super":   ModSuper,
	"cmd":     ModSuper,
	"command": ModSuper,
	"meta":    ModSuper,
	"win":     ModSuper,
	"windows": ModSuper,
}

func (m Modifier) String() string {
	var parts []string
	for _, o := range modifierOrder {
		if m&o.mod != 0 {
			parts = append(parts, o.name)
		}
	}
	return strings.Join(parts, "+")
}

// Hotkey is a physical key plus a modifier set.
type Hotkey struct {
	Mods Modifier
	Key  string // canonical key name, see Parse
}

// Binding maps a hotkey to the options used for sessions it starts.
type Binding struct {
	Key     Hotkey
	Options types.TranscribeOptions
}

// String returns the canonical form, e.g. "Ctrl+Shift+space".
func (h Hotkey) String() string {
	if h.Mods == 0 {
		return h.Key
	}
	return h.Mods.String() + "+" + h.Key
}

// ID identifies the hotkey. Descriptors that differ only in spelling
// ("cmd+;" and "Super+Semicolon") resolve to the same ID.
func (h Hotkey) ID() uint32 {
	f := fnv.New32a()
	f.Write([]byte(h.String()))
	return f.Sum32()
}

// Parse reads a descriptor such as "Super+;" or "Ctrl+Alt+F1".
// Modifiers are case-insensitive and the last element is the key.
func Parse(s string) (Hotkey, error) {
	parts := strings.Split(strings.TrimSpace(s), "+")
	if len(parts) == 0 || strings.TrimSpace(parts[len(parts)-1]) == "" {
		return Hotkey{}, fmt.Errorf("parse hotkey %q: missing key", s)
	}

	var h Hotkey
	for _, p := range parts[:len(parts)-1] {
		name := strings.ToLower(strings.TrimSpace(p))
		mod, ok := modifierNames[name]
		if !ok {
			return Hotkey{}, fmt.Errorf("parse hotkey %q: unknown modifier %q", s, p)
		}
		if h.Mods&mod != 0 {
			return Hotkey{}, fmt.Errorf("parse hotkey %q: repeated modifier %q", s, p)
		}
		h.Mods |= mod
	}

	key, ok := canonicalKey(strings.TrimSpace(parts[len(parts)-1]))
	if !ok {
		return Hotkey{}, fmt.Errorf("parse hotkey %q: unknown key %q", s, parts[len(parts)-1])
	}
	h.Key = key
	return h, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Hotkey {
	h, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return h
}

var keyAliases = map[string]string{
	"return":       "enter",
	"esc":          "escape",
	"del":          "delete",
	"semicolon":    ";",
	"comma":        ",",
	"period":       ".",
	"slash":        "/",
	"quote":        "'",
	"bracketleft":  "[",
	"bracketright": "]",
	"backslash":    "\\",
	"minus":        "-",
	"equal":        "=",
	"backquote":    "`",
	"grave":        "`",
	"arrowup":      "up",
	"arrowdown":    "down",
	"arrowleft":    "left",
	"arrowright":   "right",
	"pgup":         "pageup",
	"pgdn":         "pagedown",
}

var namedKeys = map[string]bool{
	"space": true, "enter": true, "tab": true, "escape": true,
	"backspace": true, "delete": true, "insert": true,
	"home": true, "end": true, "pageup": true, "pagedown": true,
	"up": true, "down": true, "left": true, "right": true,
	";": true, ",": true, ".": true, "/": true, "'": true,
	"[": true, "]": true, "\\": true, "-": true, "=": true, "`": true,
}

func canonicalKey(s string) (string, bool) {
	k := strings.ToLower(s)
	// Accept W3C code names such as "KeyA" and "Digit1".
	if rest, ok := strings.CutPrefix(k, "key"); ok && len(rest) == 1 {
		k = rest
	} else if rest, ok := strings.CutPrefix(k, "digit"); ok && len(rest) == 1 {
		k = rest
	}
	if a, ok := keyAliases[k]; ok {
		k = a
	}

	switch {
	case len(k) == 1 && (k[0] >= 'a' && k[0] <= 'z' || k[0] >= '0' && k[0] <= '9'):
		return k, true
	case namedKeys[k]:
		return k, true
	case isFunctionKey(k):
		return k, true
	}
	return "", false
}

func isFunctionKey(k string) bool {
	var n int
	if _, err := fmt.Sscanf(k, "f%d", &n); err != nil {
		return false
	}
	return n >= 1 && n <= 24 && k == fmt.Sprintf("f%d", n)
}
