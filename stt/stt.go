// Package stt provides the speech-to-text client used to transcribe
// recorded clips.
package stt

import (
	"context"

	"go.aimuz.me/rimay/internal/types"
)

// Transcriber converts an encoded clip to text.
//
// clip is a complete WAV file. Implementations return the transcript with
// surrounding whitespace removed; an empty string means nothing was said.
type Transcriber interface {
	Transcribe(ctx context.Context, clip []byte, opts types.TranscribeOptions) (string, error)
}
