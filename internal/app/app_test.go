package app

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"go.aimuz.me/rimay/audiocapture"
	"go.aimuz.me/rimay/history"
	"go.aimuz.me/rimay/internal/types"
	"go.aimuz.me/rimay/tray"
)

type fakeStream struct {
	dev     *fakeDevice
	deliver func([]float32)
	paused  int
	closed  int
}

func (s *fakeStream) Start() error {
	if s.dev.startErr != nil {
		return s.dev.startErr
	}
	s.deliver(s.dev.samples)
	return nil
}

func (s *fakeStream) Pause() error {
	s.paused++
	return nil
}

func (s *fakeStream) Close() error {
	s.closed++
	return nil
}

// fakeDevice delivers samples in one chunk when the stream starts.
type fakeDevice struct {
	format   audiocapture.Format
	samples  []float32
	openErr  error
	startErr error
	streams  []*fakeStream
}

func (d *fakeDevice) OpenDefault(onChunk func([]float32)) (audiocapture.Stream, audiocapture.Format, error) {
	if d.openErr != nil {
		return nil, audiocapture.Format{}, d.openErr
	}
	s := &fakeStream{dev: d, deliver: onChunk}
	d.streams = append(d.streams, s)
	return s, d.format, nil
}

func newDevice(seconds float64, rate, channels int) *fakeDevice {
	n := int(seconds * float64(rate) * float64(channels))
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = 0.25
	}
	return &fakeDevice{
		format:  audiocapture.Format{SampleRate: rate, Channels: channels},
		samples: samples,
	}
}

type transcribeCall struct {
	clip []byte
	opts types.TranscribeOptions
}

type fakeTranscriber struct {
	text  string
	err   error
	calls []transcribeCall
}

func (f *fakeTranscriber) Transcribe(_ context.Context, clip []byte, opts types.TranscribeOptions) (string, error) {
	f.calls = append(f.calls, transcribeCall{clip: clip, opts: opts})
	return f.text, f.err
}

type fakeInjector struct {
	err   error
	texts []string
}

func (f *fakeInjector) Inject(text string) error {
	f.texts = append(f.texts, text)
	return f.err
}

type fakeRecorder struct {
	entries []history.Entry
}

func (f *fakeRecorder) Record(e history.Entry) (history.Entry, error) {
	f.entries = append(f.entries, e)
	return e, nil
}

type harness struct {
	c    *Coordinator
	dev  *fakeDevice
	stt  *fakeTranscriber
	inj  *fakeInjector
	hist *fakeRecorder
	tray chan tray.Command
}

func newHarness(dev *fakeDevice, text string, sttErr error) *harness {
	h := &harness{
		dev:  dev,
		stt:  &fakeTranscriber{text: text, err: sttErr},
		inj:  &fakeInjector{},
		hist: &fakeRecorder{},
		tray: make(chan tray.Command, 32),
	}
	h.c = New(Options{
		Device:      h.dev,
		Transcriber: h.stt,
		Injector:    h.inj,
		Tray:        h.tray,
		History:     h.hist,
		Detect:      func(string) (string, string) { return "en", "English" },
	})
	return h
}

func (h *harness) trayStates() []bool {
	var states []bool
	for {
		select {
		case cmd := <-h.tray:
			states = append(states, cmd.Active)
		default:
			return states
		}
	}
}

var testOpts = types.TranscribeOptions{Model: "whisper-large-v3-turbo", Language: "en", Prompt: "rimay"}

func TestDictation(t *testing.T) {
	tests := []struct {
		name       string
		dev        *fakeDevice
		text       string
		sttErr     error
		wantCalls  int
		wantInject []string
	}{
		{
			name:       "one second mono",
			dev:        newDevice(1, 16000, 1),
			text:       "hello",
			wantCalls:  1,
			wantInject: []string{"hello"},
		},
		{
			name:       "stereo",
			dev:        newDevice(1, 48000, 2),
			text:       "hello",
			wantCalls:  1,
			wantInject: []string{"hello"},
		},
		{
			name: "too short",
			dev:  newDevice(0.2, 16000, 1),
			text: "hello",
		},
		{
			name:      "transcription fails",
			dev:       newDevice(1, 16000, 1),
			sttErr:    errors.New("503 service unavailable"),
			wantCalls: 1,
		},
		{
			name:      "empty transcript",
			dev:       newDevice(1, 16000, 1),
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(tt.dev, tt.text, tt.sttErr)
			ctx := context.Background()

			if err := h.c.handle(ctx, types.Pressed(7, testOpts)); err != nil {
				t.Fatalf("press: %v", err)
			}
			if err := h.c.handle(ctx, types.Released(7)); err != nil {
				t.Fatalf("release: %v", err)
			}

			if len(h.stt.calls) != tt.wantCalls {
				t.Fatalf("transcribe calls = %d, want %d", len(h.stt.calls), tt.wantCalls)
			}
			if tt.wantCalls > 0 {
				call := h.stt.calls[0]
				if call.opts != testOpts {
					t.Errorf("transcribe opts = %v, want %v", call.opts, testOpts)
				}
				if !bytes.HasPrefix(call.clip, []byte("RIFF")) {
					t.Error("clip is not a RIFF file")
				}
			}
			if len(h.inj.texts) != len(tt.wantInject) {
				t.Fatalf("injected %v, want %v", h.inj.texts, tt.wantInject)
			}
			for i := range tt.wantInject {
				if h.inj.texts[i] != tt.wantInject[i] {
					t.Errorf("injected[%d] = %q, want %q", i, h.inj.texts[i], tt.wantInject[i])
				}
			}
			if len(h.hist.entries) != len(tt.wantInject) {
				t.Errorf("history entries = %d, want %d", len(h.hist.entries), len(tt.wantInject))
			}

			states := h.trayStates()
			if len(states) != 2 || !states[0] || states[1] {
				t.Errorf("tray states = %v, want [true false]", states)
			}
			if s := h.dev.streams[0]; s.paused != 1 || s.closed != 1 {
				t.Errorf("stream paused %d closed %d times, want 1 and 1", s.paused, s.closed)
			}
			if h.c.active || h.c.session != nil {
				t.Error("coordinator still recording after release")
			}
		})
	}
}

func TestHistoryEntry(t *testing.T) {
	h := newHarness(newDevice(1, 16000, 1), "hello", nil)
	ctx := context.Background()
	h.c.handle(ctx, types.Pressed(7, testOpts))
	h.c.handle(ctx, types.Released(7))

	if len(h.hist.entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(h.hist.entries))
	}
	e := h.hist.entries[0]
	if e.Text != "hello" || e.Model != testOpts.Model || e.Language != "en" || e.Detected != "en" || e.ID == "" {
		t.Errorf("history entry = %+v", e)
	}
}

func TestStateMachine(t *testing.T) {
	h := newHarness(newDevice(1, 16000, 1), "hello", nil)
	ctx := context.Background()

	steps := []struct {
		ev         types.KeyEvent
		wantActive bool
		wantKey    uint32
		wantOpens  int
	}{
		{types.Released(1), false, 0, 0},
		{types.Pressed(1, testOpts), true, 1, 1},
		{types.Pressed(2, testOpts), true, 1, 1},
		{types.Pressed(1, testOpts), true, 1, 1},
		{types.Released(2), true, 1, 1},
		{types.Released(1), false, 1, 1},
		{types.Released(1), false, 1, 1},
		{types.Pressed(2, testOpts), true, 2, 2},
		{types.Released(2), false, 2, 2},
	}

	for i, s := range steps {
		if err := h.c.handle(ctx, s.ev); err != nil {
			t.Fatalf("step %d (%v): %v", i, s.ev, err)
		}
		if h.c.active != s.wantActive {
			t.Errorf("step %d (%v): active = %v, want %v", i, s.ev, h.c.active, s.wantActive)
		}
		if h.c.active && h.c.activeKey != s.wantKey {
			t.Errorf("step %d (%v): active key = %d, want %d", i, s.ev, h.c.activeKey, s.wantKey)
		}
		if len(h.dev.streams) != s.wantOpens {
			t.Errorf("step %d (%v): sessions opened = %d, want %d", i, s.ev, len(h.dev.streams), s.wantOpens)
		}
	}
	if len(h.inj.texts) != 2 {
		t.Errorf("injections = %d, want 2", len(h.inj.texts))
	}
}

func TestFailedTranscriptionRecovers(t *testing.T) {
	h := newHarness(newDevice(1, 16000, 1), "", errors.New("timeout"))
	ctx := context.Background()

	h.c.handle(ctx, types.Pressed(1, testOpts))
	h.c.handle(ctx, types.Released(1))
	if len(h.inj.texts) != 0 {
		t.Fatalf("injected %v after failed transcription", h.inj.texts)
	}

	h.stt.err = nil
	h.stt.text = "second try"
	h.c.handle(ctx, types.Pressed(1, testOpts))
	h.c.handle(ctx, types.Released(1))
	if len(h.inj.texts) != 1 || h.inj.texts[0] != "second try" {
		t.Errorf("injected %v, want [second try]", h.inj.texts)
	}
}

func TestInjectFailureIsRecoverable(t *testing.T) {
	h := newHarness(newDevice(1, 16000, 1), "hello", nil)
	h.inj.err = errors.New("no accessibility permission")
	ctx := context.Background()

	h.c.handle(ctx, types.Pressed(1, testOpts))
	if err := h.c.handle(ctx, types.Released(1)); err != nil {
		t.Fatalf("release: %v", err)
	}
	if len(h.hist.entries) != 0 {
		t.Error("failed injection was recorded in history")
	}
}

func TestOpenFailureIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		openErr  error
		startErr error
		want     error
	}{
		{"no device", audiocapture.ErrNoDevice, nil, audiocapture.ErrNoDevice},
		{"start fails", nil, errors.New("device busy"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newDevice(1, 16000, 1)
			dev.openErr = tt.openErr
			dev.startErr = tt.startErr
			h := newHarness(dev, "hello", nil)

			err := h.c.handle(context.Background(), types.Pressed(1, testOpts))
			if !IsFatal(err) {
				t.Fatalf("press error = %v, want fatal", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("press error = %v, want %v", err, tt.want)
			}
			if tt.startErr != nil && !errors.Is(err, tt.startErr) {
				t.Errorf("press error = %v, want %v", err, tt.startErr)
			}
			if h.c.active {
				t.Error("coordinator active after failed open")
			}
			for _, s := range dev.streams {
				if s.closed != 1 {
					t.Errorf("stream closed %d times after failed start, want 1", s.closed)
				}
			}
		})
	}
}

func TestRunFatalWins(t *testing.T) {
	h := newHarness(newDevice(1, 16000, 1), "hello", nil)
	events := make(chan types.KeyEvent, 1)
	fatal := make(chan error, 1)

	boom := NewFatal("hotkey listener", errors.New("hook died"))
	events <- types.Pressed(1, testOpts)
	fatal <- boom

	err := h.c.Run(context.Background(), events, fatal)
	if !errors.Is(err, boom) {
		t.Fatalf("Run = %v, want %v", err, boom)
	}
	if len(h.dev.streams) != 0 {
		t.Error("pending event handled before fatal error")
	}
}

func TestRunShutdownClosesSession(t *testing.T) {
	h := newHarness(newDevice(1, 16000, 1), "hello", nil)
	events := make(chan types.KeyEvent, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.c.Run(ctx, events, make(chan error)) }()

	events <- types.Pressed(1, testOpts)
	select {
	case cmd := <-h.tray:
		if !cmd.Active {
			t.Fatal("first tray command is not active")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("recording did not start")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run after cancel = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if s := h.dev.streams[0]; s.paused != 1 || s.closed != 1 {
		t.Errorf("stream paused %d closed %d times, want 1 and 1", s.paused, s.closed)
	}
	if len(h.stt.calls) != 0 {
		t.Error("in-flight recording was transcribed on shutdown")
	}
}

func TestRunOpenFailure(t *testing.T) {
	dev := newDevice(1, 16000, 1)
	dev.openErr = audiocapture.ErrNoDevice
	h := newHarness(dev, "", nil)

	events := make(chan types.KeyEvent, 1)
	events <- types.Pressed(1, testOpts)

	err := h.c.Run(context.Background(), events, make(chan error))
	if !IsFatal(err) || !errors.Is(err, audiocapture.ErrNoDevice) {
		t.Errorf("Run = %v, want fatal ErrNoDevice", err)
	}
}

func TestRunEventsClosed(t *testing.T) {
	h := newHarness(newDevice(1, 16000, 1), "", nil)
	events := make(chan types.KeyEvent)
	close(events)

	if err := h.c.Run(context.Background(), events, make(chan error)); !IsFatal(err) {
		t.Errorf("Run = %v, want fatal", err)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{512, "0.50 KB"},
		{32044, "31.29 KB"},
		{3 * 1024 * 1024, "3.00 MB"},
	}
	for _, tt := range tests {
		if got := formatSize(tt.n); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
