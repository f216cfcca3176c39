//go:build !darwin && !linux

package clipboard

import "github.com/micmonay/keybd_event"

const deviceSettle = 0

// setPasteModifier selects Ctrl+V.
func setPasteModifier(kb *keybd_event.KeyBonding) {
	kb.HasCTRL(true)
}
