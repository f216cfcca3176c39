//go:build darwin || linux || windows

package hotkey

import (
	"fmt"

	xhotkey "golang.design/x/hotkey"
)

func registerModifiers(m Modifier) ([]xhotkey.Modifier, error) {
	var mods []xhotkey.Modifier
	for _, o := range modifierOrder {
		if m&o.mod == 0 {
			continue
		}
		xm, ok := registerModifierMap[o.mod]
		if !ok {
			return nil, fmt.Errorf("modifier %s not supported", o.name)
		}
		mods = append(mods, xm)
	}
	return mods, nil
}

// NewDelivery returns the delivery for a backend name. The default is OS
// registration.
func NewDelivery(backend string) (Delivery, error) {
	switch backend {
	case "", BackendRegister:
		return NewRegisterDelivery(), nil
	case BackendHook:
		return NewHookDelivery(), nil
	default:
		return nil, fmt.Errorf("unknown hotkey backend %q", backend)
	}
}
