// Package clipboard injects text into the focused application by placing
// it on the system clipboard and sending the paste keystroke.
package clipboard

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/atotto/clipboard"
)

// Injector types text into whatever application has keyboard focus.
type Injector interface {
	Inject(text string) error
}

// Options configures a Paster.
type Options struct {
	// RestoreClipboard puts the previous clipboard text back after pasting.
	RestoreClipboard bool
	// Settle is waited after writing the clipboard and again after the
	// keystroke, so the target application reads the new contents.
	Settle time.Duration
}

// Paster is the clipboard-and-keystroke Injector.
type Paster struct {
	opts Options

	mu        sync.Mutex
	readAll   func() (string, error)
	writeAll  func(string) error
	keystroke func() error
	sleep     func(time.Duration)
}

// NewPaster creates a Paster using the system clipboard and keyboard.
func NewPaster(opts Options) *Paster {
	return &Paster{
		opts:      opts,
		readAll:   clipboard.ReadAll,
		writeAll:  clipboard.WriteAll,
		keystroke: newPasteKey().press,
		sleep:     time.Sleep,
	}
}

// Inject implements Injector.
func (p *Paster) Inject(text string) error {
	if text == "" {
		return errors.New("inject: empty text")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	var (
		prev    string
		restore bool
	)
	if p.opts.RestoreClipboard {
		s, err := p.readAll()
		if err != nil {
			// Non-text or empty clipboard; nothing to put back.
			slog.Debug("read clipboard", "error", err)
		} else {
			prev, restore = s, true
		}
	}

	if err := p.writeAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	p.sleep(p.opts.Settle)

	if err := p.keystroke(); err != nil {
		return fmt.Errorf("send paste keystroke: %w", err)
	}

	if restore {
		p.sleep(p.opts.Settle)
		if err := p.writeAll(prev); err != nil {
			return fmt.Errorf("restore clipboard: %w", err)
		}
	}
	return nil
}
