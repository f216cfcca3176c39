//go:build darwin || linux || windows

package hotkey

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	xhotkey "golang.design/x/hotkey"
	"go.aimuz.me/rimay/internal/types"
)

var registerKeys = map[string]xhotkey.Key{
	"a": xhotkey.KeyA, "b": xhotkey.KeyB, "c": xhotkey.KeyC, "d": xhotkey.KeyD,
	"e": xhotkey.KeyE, "f": xhotkey.KeyF, "g": xhotkey.KeyG, "h": xhotkey.KeyH,
	"i": xhotkey.KeyI, "j": xhotkey.KeyJ, "k": xhotkey.KeyK, "l": xhotkey.KeyL,
	"m": xhotkey.KeyM, "n": xhotkey.KeyN, "o": xhotkey.KeyO, "p": xhotkey.KeyP,
	"q": xhotkey.KeyQ, "r": xhotkey.KeyR, "s": xhotkey.KeyS, "t": xhotkey.KeyT,
	"u": xhotkey.KeyU, "v": xhotkey.KeyV, "w": xhotkey.KeyW, "x": xhotkey.KeyX,
	"y": xhotkey.KeyY, "z": xhotkey.KeyZ,
	"0": xhotkey.Key0, "1": xhotkey.Key1, "2": xhotkey.Key2, "3": xhotkey.Key3,
	"4": xhotkey.Key4, "5": xhotkey.Key5, "6": xhotkey.Key6, "7": xhotkey.Key7,
	"8": xhotkey.Key8, "9": xhotkey.Key9,
	"space":  xhotkey.KeySpace,
	"enter":  xhotkey.KeyReturn,
	"escape": xhotkey.KeyEscape,
	"delete": xhotkey.KeyDelete,
	"tab":    xhotkey.KeyTab,
	"left":   xhotkey.KeyLeft,
	"right":  xhotkey.KeyRight,
	"up":     xhotkey.KeyUp,
	"down":   xhotkey.KeyDown,
	"f1":     xhotkey.KeyF1, "f2": xhotkey.KeyF2, "f3": xhotkey.KeyF3, "f4": xhotkey.KeyF4,
	"f5": xhotkey.KeyF5, "f6": xhotkey.KeyF6, "f7": xhotkey.KeyF7, "f8": xhotkey.KeyF8,
	"f9": xhotkey.KeyF9, "f10": xhotkey.KeyF10, "f11": xhotkey.KeyF11, "f12": xhotkey.KeyF12,
	"f13": xhotkey.KeyF13, "f14": xhotkey.KeyF14, "f15": xhotkey.KeyF15, "f16": xhotkey.KeyF16,
	"f17": xhotkey.KeyF17, "f18": xhotkey.KeyF18, "f19": xhotkey.KeyF19, "f20": xhotkey.KeyF20,
}

// RegisterDelivery claims hotkeys through the operating system's hotkey
// registration, so a combination already owned by another application
// fails at Register.
type RegisterDelivery struct {
	hotkeys  []*xhotkey.Hotkey
	events   chan Event
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
	debounce time.Duration
}

// releaseDebounce is how long a key-up waits for a repeated key-down before
// it counts as a release.
const releaseDebounce = 30 * time.Millisecond

// NewRegisterDelivery creates a delivery backed by golang.design/x/hotkey.
func NewRegisterDelivery() *RegisterDelivery {
	return &RegisterDelivery{
		events:   make(chan Event),
		done:     make(chan struct{}),
		debounce: releaseDebounce,
	}
}

// Register implements Delivery. On failure every hotkey registered so far
// is released again.
func (d *RegisterDelivery) Register(keys []Hotkey) error {
	for _, k := range keys {
		hk, err := d.register(k)
		if err != nil {
			d.unregisterAll()
			return err
		}
		d.hotkeys = append(d.hotkeys, hk)

		d.wg.Add(1)
		go d.forward(k.ID(), hk.Keydown(), hk.Keyup())
	}
	return nil
}

func registerKey(name string) (xhotkey.Key, bool) {
	if key, ok := registerKeys[name]; ok {
		return key, true
	}
	key, ok := registerPunctuation[name]
	return key, ok
}

func (d *RegisterDelivery) register(k Hotkey) (*xhotkey.Hotkey, error) {
	key, ok := registerKey(k.Key)
	if !ok {
		return nil, fmt.Errorf("register %s: key not supported by OS registration, use the hook backend", k)
	}
	mods, err := registerModifiers(k.Mods)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", k, err)
	}

	hk := xhotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return nil, fmt.Errorf("register %s: %w", k, err)
	}
	return hk, nil
}

// forward turns one hotkey's down and up notifications into events. An up
// followed by a down within the debounce window is auto-repeat (X11 sends
// Keyup continuously while a key is held) and does not end the press.
func (d *RegisterDelivery) forward(id uint32, down, up <-chan xhotkey.Event) {
	defer d.wg.Done()

	var (
		pressed bool
		timer   *time.Timer
		release <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-d.done:
			return
		case _, ok := <-down:
			if !ok {
				return
			}
			if release != nil {
				timer.Stop()
				release = nil
				continue
			}
			if pressed {
				continue
			}
			pressed = true
			if !d.send(Event{ID: id, State: types.KeyPressed}) {
				return
			}
		case _, ok := <-up:
			if !ok {
				return
			}
			if !pressed || release != nil {
				continue
			}
			timer = time.NewTimer(d.debounce)
			release = timer.C
		case <-release:
			release = nil
			pressed = false
			if !d.send(Event{ID: id, State: types.KeyReleased}) {
				return
			}
		}
	}
}

func (d *RegisterDelivery) send(ev Event) bool {
	select {
	case d.events <- ev:
		return true
	case <-d.done:
		return false
	}
}

// Receive implements Delivery.
func (d *RegisterDelivery) Receive(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case <-d.done:
		return Event{}, errors.New("hotkey delivery closed")
	case ev := <-d.events:
		return ev, nil
	}
}

// Close implements Delivery.
func (d *RegisterDelivery) Close() error {
	var err error
	d.once.Do(func() {
		close(d.done)
		err = d.unregisterAll()
		d.wg.Wait()
	})
	return err
}

func (d *RegisterDelivery) unregisterAll() error {
	var errs []error
	for _, hk := range d.hotkeys {
		if err := hk.Unregister(); err != nil {
			errs = append(errs, err)
		}
	}
	d.hotkeys = nil
	return errors.Join(errs...)
}
