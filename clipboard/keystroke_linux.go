//go:build linux

package clipboard

import (
	"time"

	"github.com/micmonay/keybd_event"
)

// A new uinput device is ignored by the desktop for a short while.
const deviceSettle = 2 * time.Second

// setPasteModifier selects Ctrl+V.
func setPasteModifier(kb *keybd_event.KeyBonding) {
	kb.HasCTRL(true)
}
