package hotkey

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"go.aimuz.me/rimay/internal/types"
)

// Listen registers every binding with d and forwards press and release
// notifications to out as key events, in the order d delivers them.
//
// Listen blocks on its own OS thread. It returns an error if registration
// or the delivery fails, and nil once ctx is done.
func Listen(ctx context.Context, bindings []Binding, d Delivery, out chan<- types.KeyEvent) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	keys := make([]Hotkey, 0, len(bindings))
	byID := make(map[uint32]types.TranscribeOptions, len(bindings))
	for _, b := range bindings {
		keys = append(keys, b.Key)
		byID[b.Key.ID()] = b.Options
	}

	if err := d.Register(keys); err != nil {
		return fmt.Errorf("register hotkeys: %w", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			slog.Warn("close hotkey delivery", "error", err)
		}
	}()

	for _, b := range bindings {
		slog.Info("hotkey registered", "hotkey", b.Key, "id", b.Key.ID(), "opts", b.Options)
	}

	for {
		ev, err := d.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receive hotkey event: %w", err)
		}

		opts, ok := byID[ev.ID]
		if !ok {
			continue
		}

		var ke types.KeyEvent
		switch ev.State {
		case types.KeyPressed:
			ke = types.Pressed(ev.ID, opts)
		case types.KeyReleased:
			ke = types.Released(ev.ID)
		default:
			continue
		}

		// Blocks while the coordinator is busy; presses are human-paced.
		select {
		case out <- ke:
		case <-ctx.Done():
			return nil
		}
	}
}
