// Package app runs the dictation coordinator: the single owner of the
// recording session, driven by hotkey events.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"go.aimuz.me/rimay/audiocapture"
	"go.aimuz.me/rimay/clipboard"
	"go.aimuz.me/rimay/history"
	"go.aimuz.me/rimay/internal/types"
	"go.aimuz.me/rimay/langdetect"
	"go.aimuz.me/rimay/stt"
	"go.aimuz.me/rimay/tray"
)

// Recorder stores finished transcripts.
type Recorder interface {
	Record(e history.Entry) (history.Entry, error)
}

// Options configures a Coordinator. Device, Transcriber, Injector and
// Tray are required.
type Options struct {
	Device      audiocapture.Device
	Transcriber stt.Transcriber
	Injector    clipboard.Injector
	Tray        chan<- tray.Command

	// History, if set, receives every injected transcript.
	History Recorder
	// Detect, if set, labels history entries with the detected language.
	Detect func(text string) (code, name string)
}

// Coordinator turns key events into recording sessions. All of its state
// is owned by the goroutine calling Run.
type Coordinator struct {
	opts Options

	active    bool
	activeKey uint32
	session   *audiocapture.Session
	sessionID uuid.UUID
	sessOpts  types.TranscribeOptions
	started   time.Time
}

// New creates a Coordinator.
func New(opts Options) *Coordinator {
	return &Coordinator{opts: opts}
}

// Run handles events until ctx is done, in which case it returns nil, or
// until a fatal error arrives on fatal or occurs while handling an event,
// in which case it returns that error. A pending fatal error is taken
// before any pending event. An open session is closed before Run returns.
func (c *Coordinator) Run(ctx context.Context, events <-chan types.KeyEvent, fatal <-chan error) error {
	defer c.teardown()

	for {
		select {
		case err := <-fatal:
			return err
		default:
		}

		select {
		case <-ctx.Done():
			return nil
		case err := <-fatal:
			return err
		case ev, ok := <-events:
			if !ok {
				return NewFatal("receive key event", errors.New("event channel closed"))
			}
			if err := c.handle(ctx, ev); err != nil {
				return err
			}
		}
	}
}

func (c *Coordinator) handle(ctx context.Context, ev types.KeyEvent) error {
	switch ev.State {
	case types.KeyPressed:
		return c.press(ctx, ev)
	case types.KeyReleased:
		c.release(ctx, ev)
	}
	return nil
}

func (c *Coordinator) press(ctx context.Context, ev types.KeyEvent) error {
	if c.active {
		slog.Debug("ignore press while recording", "key", ev.ID, "active", c.activeKey)
		return nil
	}

	s, err := audiocapture.Open(c.opts.Device)
	if err != nil {
		return NewFatal("open audio session", err)
	}
	if err := s.Start(); err != nil {
		if cerr := s.Close(); cerr != nil {
			slog.Warn("close audio session", "error", cerr)
		}
		return NewFatal("start audio session", err)
	}

	c.active = true
	c.activeKey = ev.ID
	c.session = s
	c.sessionID = uuid.New()
	c.sessOpts = ev.Options
	c.started = time.Now()

	f := s.Format()
	slog.Info("recording started",
		"session", c.sessionID,
		"key", ev.ID,
		"sample_rate", f.SampleRate,
		"channels", f.Channels,
		"opts", ev.Options)
	c.setTray(ctx, true)
	return nil
}

func (c *Coordinator) release(ctx context.Context, ev types.KeyEvent) {
	if !c.active || ev.ID != c.activeKey {
		slog.Debug("ignore release", "key", ev.ID, "recording", c.active)
		return
	}

	c.active = false
	c.setTray(ctx, false)

	s, id, opts := c.session, c.sessionID, c.sessOpts
	c.session = nil

	samples := s.Drain()
	f := s.Format()
	if err := s.Close(); err != nil {
		c.report(id, NewRecoverable("close audio session", err))
	}
	slog.Info("recording stopped",
		"session", id,
		"samples", len(samples),
		"elapsed", time.Since(c.started).Round(time.Millisecond))

	c.finish(ctx, id, samples, f, opts)
}

// finish encodes, transcribes and injects one recording. Every failure
// here is recoverable.
func (c *Coordinator) finish(ctx context.Context, id uuid.UUID, samples []float32, f audiocapture.Format, opts types.TranscribeOptions) {
	clip, err := audiocapture.EncodeWAV(samples, f.SampleRate, f.Channels)
	if errors.Is(err, audiocapture.ErrTooShort) {
		slog.Info("recording too short, skipped", "session", id, "samples", len(samples))
		return
	}
	if err != nil {
		c.report(id, NewRecoverable("encode clip", err))
		return
	}
	slog.Info("clip encoded", "session", id, "size", formatSize(len(clip)))

	text, err := c.opts.Transcriber.Transcribe(ctx, clip, opts)
	if err != nil {
		c.report(id, NewRecoverable("transcribe", err))
		return
	}
	if text == "" {
		slog.Info("empty transcript", "session", id)
		return
	}
	slog.Info("transcribed", "session", id, "chars", len([]rune(text)))

	if err := c.opts.Injector.Inject(text); err != nil {
		c.report(id, NewRecoverable("inject text", err))
		return
	}

	c.record(id, text, opts)
}

func (c *Coordinator) record(id uuid.UUID, text string, opts types.TranscribeOptions) {
	if c.opts.History == nil {
		return
	}
	e := history.Entry{
		ID:       id.String(),
		Text:     text,
		Model:    opts.Model,
		Language: opts.Language,
	}
	if c.opts.Detect != nil {
		if code, _ := c.opts.Detect(text); code != langdetect.Auto {
			e.Detected = code
		}
	}
	if _, err := c.opts.History.Record(e); err != nil {
		c.report(id, NewRecoverable("record transcript", err))
	}
}

func (c *Coordinator) setTray(ctx context.Context, active bool) {
	select {
	case c.opts.Tray <- tray.Command{Active: active}:
	case <-ctx.Done():
	}
}

func (c *Coordinator) report(id uuid.UUID, err *Error) {
	slog.Error(err.Op, "session", id, "severity", err.Severity, "error", err.Err)
}

// teardown closes a session left open by shutdown or a fatal error.
func (c *Coordinator) teardown() {
	if c.session == nil {
		return
	}
	slog.Info("closing in-flight recording", "session", c.sessionID)
	if err := c.session.Close(); err != nil {
		slog.Warn("close audio session", "session", c.sessionID, "error", err)
	}
	c.session = nil
	c.active = false
}

func formatSize(n int) string {
	kb := float64(n) / 1024
	if kb < 1024 {
		return fmt.Sprintf("%.2f KB", kb)
	}
	return fmt.Sprintf("%.2f MB", kb/1024)
}
