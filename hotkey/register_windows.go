//go:build windows

package hotkey

import xhotkey "golang.design/x/hotkey"

var registerModifierMap = map[Modifier]xhotkey.Modifier{
	ModCtrl:  xhotkey.ModCtrl,
	ModAlt:   xhotkey.ModAlt,
	ModShift: xhotkey.ModShift,
	ModSuper: xhotkey.ModWin,
}

// VK_OEM_* codes of punctuation keys on a US layout.
var registerPunctuation = map[string]xhotkey.Key{
	";":  0xBA,
	"'":  0xDE,
	",":  0xBC,
	".":  0xBE,
	"/":  0xBF,
	"[":  0xDB,
	"]":  0xDD,
	"\\": 0xDC,
	"-":  0xBD,
	"=":  0xBB,
	"`":  0xC0,
}
