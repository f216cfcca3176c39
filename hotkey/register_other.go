//go:build !darwin && !linux && !windows

package hotkey

import "fmt"

// NewDelivery returns the delivery for a backend name. Only the keyboard
// hook is available on this platform.
func NewDelivery(backend string) (Delivery, error) {
	switch backend {
	case "", BackendHook:
		return NewHookDelivery(), nil
	case BackendRegister:
		return nil, fmt.Errorf("hotkey backend %q not supported on this platform", backend)
	default:
		return nil, fmt.Errorf("unknown hotkey backend %q", backend)
	}
}
