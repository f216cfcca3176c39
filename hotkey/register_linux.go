//go:build linux

package hotkey

import xhotkey "golang.design/x/hotkey"

// X11 reports Alt as Mod1 and Super as Mod4 on common layouts.
var registerModifierMap = map[Modifier]xhotkey.Modifier{
	ModCtrl:  xhotkey.ModCtrl,
	ModAlt:   xhotkey.Mod1,
	ModShift: xhotkey.ModShift,
	ModSuper: xhotkey.Mod4,
}

// X11 keysyms of punctuation keys.
var registerPunctuation = map[string]xhotkey.Key{
	";":  0x003b,
	"'":  0x0027,
	",":  0x002c,
	".":  0x002e,
	"/":  0x002f,
	"[":  0x005b,
	"]":  0x005d,
	"\\": 0x005c,
	"-":  0x002d,
	"=":  0x003d,
	"`":  0x0060,
}
