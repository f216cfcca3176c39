package hotkey

import (
	"context"

	"go.aimuz.me/rimay/internal/types"
)

// Event is a raw notification from a Delivery.
type Event struct {
	ID    uint32
	State types.KeyState
}

// Delivery is an OS-level hotkey source.
//
// Register claims every hotkey and fails if any of them cannot be claimed.
// Receive blocks until the next press or release of a registered hotkey,
// or until ctx is done. Close releases the registrations.
type Delivery interface {
	Register(keys []Hotkey) error
	Receive(ctx context.Context) (Event, error)
	Close() error
}

// Backend names accepted by NewDelivery.
const (
	BackendHook     = "hook"
	BackendRegister = "register"
)
