//go:build darwin

package clipboard

import "github.com/micmonay/keybd_event"

const deviceSettle = 0

// setPasteModifier selects Cmd+V.
func setPasteModifier(kb *keybd_event.KeyBonding) {
	kb.HasSuper(true)
}
