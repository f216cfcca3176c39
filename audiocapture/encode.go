package audiocapture

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/orcaman/writerseeker"
)

// ErrTooShort is returned by EncodeWAV for clips below MinClipSeconds.
// It marks an accidental activation, not a failure.
var ErrTooShort = errors.New("clip too short")

// MinClipSeconds is the shortest clip worth transcribing.
const MinClipSeconds = 0.5

const (
	pcmBitDepth  = 16
	wavFormatPCM = 1
	pcmScale     = 32767
)

// EncodeWAV downmixes interleaved samples to mono and wraps them as a
// 16-bit little-endian PCM WAV at sampleRate. Clips with fewer than
// sampleRate*MinClipSeconds samples yield ErrTooShort.
// The output depends only on the input.
func EncodeWAV(samples []float32, sampleRate, channels int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("encode wav: invalid sample rate %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("encode wav: invalid channel count %d", channels)
	}

	minSamples := float64(sampleRate) * MinClipSeconds
	if float64(len(samples)) < minSamples {
		return nil, ErrTooShort
	}

	mono := Downmix(samples, channels)
	data := make([]int, len(mono))
	for i, s := range mono {
		data[i] = int(ToPCM16(s))
	}

	out := &writerseeker.WriterSeeker{}
	enc := wav.NewEncoder(out, sampleRate, pcmBitDepth, 1, wavFormatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: pcmBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("write wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}

	clip, err := io.ReadAll(out.BytesReader())
	if err != nil {
		return nil, fmt.Errorf("read wav: %w", err)
	}
	return clip, nil
}

// Downmix averages every group of channels interleaved values into one
// sample. A trailing partial frame is averaged over the values present.
// With one channel it returns a copy.
func Downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out
	}

	out := make([]float32, 0, (len(samples)+channels-1)/channels)
	for i := 0; i < len(samples); i += channels {
		end := min(i+channels, len(samples))
		var sum float32
		for _, s := range samples[i:end] {
			sum += s
		}
		out = append(out, sum/float32(end-i))
	}
	return out
}

// ToPCM16 converts a sample in [-1, 1] to signed 16-bit PCM.
// Out-of-range input saturates instead of wrapping; NaN maps to silence.
func ToPCM16(s float32) int16 {
	v := float64(s)
	if math.IsNaN(v) {
		return 0
	}
	v = max(-1, min(1, v)) * pcmScale
	return int16(max(math.MinInt16, min(math.MaxInt16, v)))
}
