//go:build darwin

package hotkey

import xhotkey "golang.design/x/hotkey"

var registerModifierMap = map[Modifier]xhotkey.Modifier{
	ModCtrl:  xhotkey.ModCtrl,
	ModAlt:   xhotkey.ModOption,
	ModShift: xhotkey.ModShift,
	ModSuper: xhotkey.ModCmd,
}

// Virtual key codes (kVK_ANSI_*) of punctuation keys on an ANSI layout.
var registerPunctuation = map[string]xhotkey.Key{
	";":  0x29,
	"'":  0x27,
	",":  0x2B,
	".":  0x2F,
	"/":  0x2C,
	"[":  0x21,
	"]":  0x1E,
	"\\": 0x2A,
	"-":  0x1B,
	"=":  0x18,
	"`":  0x32,
}
