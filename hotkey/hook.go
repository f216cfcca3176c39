package hotkey

import (
	"context"
	"errors"
	"fmt"
	"sync"

	hook "github.com/robotn/gohook"
	"go.aimuz.me/rimay/internal/types"
)

var errHookStopped = errors.New("keyboard hook stopped")

// hookKeyNames lists gohook key names for a canonical key, most specific
// first.
var hookKeyNames = map[string][]string{
	"enter":     {"enter", "return"},
	"escape":    {"esc", "escape"},
	"backspace": {"backspace"},
	"delete":    {"delete", "del"},
	"pageup":    {"pageup", "page up"},
	"pagedown":  {"pagedown", "page down"},
	"=":         {"=", "+"},
}

var hookModifierNames = map[Modifier][]string{
	ModCtrl:  {"ctrl", "control"},
	ModAlt:   {"alt", "ralt"},
	ModShift: {"shift", "rshift"},
	ModSuper: {"cmd", "command", "rcmd", "meta", "super"},
}

// libuiohook scan codes of right-hand modifiers, which gohook's name
// table does not cover.
const (
	hookRightCtrl  uint16 = 0x0E1D
	hookRightShift uint16 = 0x0036
	hookRightAlt   uint16 = 0x0E38
	hookLeftMeta   uint16 = 0x0E5B
	hookRightMeta  uint16 = 0x0E5C
)

var hookRawModifiers = map[uint16]Modifier{
	hookRightCtrl:  ModCtrl,
	hookRightShift: ModShift,
	hookRightAlt:   ModAlt,
	hookLeftMeta:   ModSuper,
	hookRightMeta:  ModSuper,
}

// hookModifiers maps gohook keycodes of modifier keys, left and right, to
// their modifier.
var hookModifiers = sync.OnceValue(func() map[uint16]Modifier {
	m := make(map[uint16]Modifier)
	for code, mod := range hookRawModifiers {
		m[code] = mod
	}
	for mod, names := range hookModifierNames {
		for _, n := range names {
			if code, ok := hook.Keycode[n]; ok {
				m[code] = mod
			}
		}
	}
	return m
})

func hookKeycode(key string) (uint16, error) {
	names, ok := hookKeyNames[key]
	if !ok {
		names = []string{key}
	}
	for _, n := range names {
		if code, ok := hook.Keycode[n]; ok {
			return code, nil
		}
	}
	return 0, fmt.Errorf("key %q not supported by keyboard hook", key)
}

type hookCombo struct {
	id   uint32
	mods Modifier
}

// HookDelivery watches the global keyboard hook and reports presses and
// releases of registered hotkeys. It observes keys rather than claiming
// them, so registration only fails for keys the hook cannot name.
type HookDelivery struct {
	events <-chan hook.Event
	combos map[uint16][]hookCombo // main keycode -> hotkeys using it
	held   map[uint16]Modifier    // modifier keys currently down
	active map[uint16]uint32      // main keycode -> pressed hotkey
}

// NewHookDelivery creates a delivery backed by gohook.
func NewHookDelivery() *HookDelivery {
	return &HookDelivery{
		combos: make(map[uint16][]hookCombo),
		held:   make(map[uint16]Modifier),
		active: make(map[uint16]uint32),
	}
}

// Register implements Delivery.
func (d *HookDelivery) Register(keys []Hotkey) error {
	if err := d.bind(keys); err != nil {
		return err
	}
	d.events = hook.Start()
	return nil
}

func (d *HookDelivery) bind(keys []Hotkey) error {
	for _, k := range keys {
		code, err := hookKeycode(k.Key)
		if err != nil {
			return fmt.Errorf("register %s: %w", k, err)
		}
		d.combos[code] = append(d.combos[code], hookCombo{id: k.ID(), mods: k.Mods})
	}
	return nil
}

// Receive implements Delivery.
func (d *HookDelivery) Receive(ctx context.Context) (Event, error) {
	for {
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case ev, ok := <-d.events:
			if !ok {
				return Event{}, errHookStopped
			}
			if out, ok := d.handle(ev); ok {
				return out, nil
			}
		}
	}
}

// Close implements Delivery.
func (d *HookDelivery) Close() error {
	hook.End()
	return nil
}

// handle folds one hook event into the key state. gohook reports a
// physical press as KeyHold (repeated while held) and a release as KeyUp;
// KeyDown carries typed characters and is ignored.
func (d *HookDelivery) handle(ev hook.Event) (Event, bool) {
	switch ev.Kind {
	case hook.KeyHold:
		if mod, ok := hookModifiers()[ev.Keycode]; ok {
			d.held[ev.Keycode] = mod
		}
		if _, down := d.active[ev.Keycode]; down {
			return Event{}, false
		}
		mods := d.mods()
		for _, c := range d.combos[ev.Keycode] {
			if c.mods == mods {
				d.active[ev.Keycode] = c.id
				return Event{ID: c.id, State: types.KeyPressed}, true
			}
		}
	case hook.KeyUp:
		delete(d.held, ev.Keycode)
		if id, down := d.active[ev.Keycode]; down {
			delete(d.active, ev.Keycode)
			return Event{ID: id, State: types.KeyReleased}, true
		}
	}
	return Event{}, false
}

func (d *HookDelivery) mods() Modifier {
	var m Modifier
	for _, mod := range d.held {
		m |= mod
	}
	return m
}
