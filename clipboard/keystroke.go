package clipboard

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/micmonay/keybd_event"
)

// pasteKey sends the paste shortcut through a virtual keyboard that is
// created on first use and kept for later pastes. Callers serialize access.
type pasteKey struct {
	kb *keybd_event.KeyBonding

	// settle is waited once after the keyboard is created, before its
	// first key event.
	settle     time.Duration
	sleep      func(time.Duration)
	newBonding func() (*keybd_event.KeyBonding, error)
	launch     func(kb *keybd_event.KeyBonding) error
}

func newPasteKey() *pasteKey {
	return &pasteKey{
		settle: deviceSettle,
		sleep:  time.Sleep,
		newBonding: func() (*keybd_event.KeyBonding, error) {
			kb, err := keybd_event.NewKeyBonding()
			if err != nil {
				return nil, err
			}
			return &kb, nil
		},
		launch: func(kb *keybd_event.KeyBonding) error {
			return kb.Launching()
		},
	}
}

func (p *pasteKey) press() error {
	if p.kb == nil {
		kb, err := p.newBonding()
		if err != nil {
			return fmt.Errorf("create virtual keyboard: %w", err)
		}
		setPasteModifier(kb)
		kb.SetKeys(keybd_event.VK_V)
		p.kb = kb

		if p.settle > 0 {
			slog.Debug("waiting for virtual keyboard", "settle", p.settle)
			p.sleep(p.settle)
		}
	}
	return p.launch(p.kb)
}
