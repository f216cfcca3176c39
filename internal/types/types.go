// Package types provides shared type definitions for the application.
package types

import (
	"fmt"
	"strings"
)

// promptPreviewRunes is how much of a prompt TranscribeOptions.String shows.
const promptPreviewRunes = 10

// TranscribeOptions configures one transcription request.
// Loaded once from configuration and copied into every session.
type TranscribeOptions struct {
	Model    string `json:"model"`              // Required model identifier, e.g. "whisper-large-v3-turbo"
	Language string `json:"language,omitempty"` // ISO-639-1 code, empty for auto-detect
	Prompt   string `json:"prompt,omitempty"`   // Guidance for style and spelling
}

// String renders the options for logging. The prompt is reduced to a short
// preview and must never be used to build a request.
func (o TranscribeOptions) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "model=%q", o.Model)
	if o.Language != "" {
		fmt.Fprintf(&b, ", language=%q", o.Language)
	}
	if o.Prompt != "" {
		fmt.Fprintf(&b, ", preview=%q", previewPrompt(o.Prompt))
	}
	return b.String()
}

func previewPrompt(p string) string {
	runes := []rune(p)
	if len(runes) > promptPreviewRunes {
		runes = runes[:promptPreviewRunes]
	}
	return string(runes) + "..."
}

// KeyState is the physical state reported for a hotkey.
type KeyState uint8

const (
	KeyPressed KeyState = iota
	KeyReleased
)

func (s KeyState) String() string {
	switch s {
	case KeyPressed:
		return "pressed"
	case KeyReleased:
		return "released"
	default:
		return fmt.Sprintf("KeyState(%d)", uint8(s))
	}
}

// KeyEvent is sent by the hotkey listener to the coordinator.
// Options is only populated for KeyPressed.
type KeyEvent struct {
	State   KeyState
	ID      uint32
	Options TranscribeOptions
}

func (e KeyEvent) String() string {
	if e.State == KeyPressed {
		return fmt.Sprintf("KeyPressed(%d)", e.ID)
	}
	return fmt.Sprintf("KeyReleased(%d)", e.ID)
}

// Pressed builds a press event for id.
func Pressed(id uint32, opts TranscribeOptions) KeyEvent {
	return KeyEvent{State: KeyPressed, ID: id, Options: opts}
}

// Released builds a release event for id.
func Released(id uint32) KeyEvent {
	return KeyEvent{State: KeyReleased, ID: id}
}
