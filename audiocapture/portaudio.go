package audiocapture

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

// defaultMaxChannels caps the channel count requested from devices that
// expose many inputs; everything is downmixed to mono anyway.
const defaultMaxChannels = 2

// PortAudio opens the system default input device through PortAudio.
type PortAudio struct {
	// MaxChannels caps the requested channel count. Zero means 2.
	MaxChannels int
}

// OpenDefault implements Device.
func (p PortAudio) OpenDefault(onChunk func(samples []float32)) (Stream, Format, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, Format{}, fmt.Errorf("portaudio init: %w", err)
	}

	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		_ = portaudio.Terminate()
		return nil, Format{}, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	if dev == nil || dev.MaxInputChannels < 1 {
		_ = portaudio.Terminate()
		return nil, Format{}, ErrNoDevice
	}

	maxChannels := p.MaxChannels
	if maxChannels <= 0 {
		maxChannels = defaultMaxChannels
	}

	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = min(dev.MaxInputChannels, maxChannels)

	ps := &paStream{device: dev.Name}
	stream, err := portaudio.OpenStream(params, func(in []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
		if flags&portaudio.InputOverflow != 0 {
			ps.overflows.Add(1)
		}
		onChunk(in)
	})
	if err != nil {
		_ = portaudio.Terminate()
		return nil, Format{}, fmt.Errorf("open stream on %q: %w", dev.Name, err)
	}
	ps.stream = stream

	format := Format{
		SampleRate: int(params.SampleRate),
		Channels:   params.Input.Channels,
	}
	slog.Debug("input stream opened", "device", dev.Name, "sample_rate", format.SampleRate, "channels", format.Channels)

	return ps, format, nil
}

// paStream adapts a PortAudio stream to Stream.
type paStream struct {
	stream    *portaudio.Stream
	device    string
	started   atomic.Bool
	overflows atomic.Int64
}

func (s *paStream) Start() error {
	if err := s.stream.Start(); err != nil {
		return err
	}
	s.started.Store(true)
	return nil
}

// Pause stops delivery. Pausing a stream that never started is a no-op.
func (s *paStream) Pause() error {
	if !s.started.Swap(false) {
		return nil
	}
	return s.stream.Stop()
}

func (s *paStream) Close() error {
	// Overflows are reported by the device while running and only degrade
	// quality, so they are logged rather than failing the session.
	if n := s.overflows.Load(); n > 0 {
		slog.Warn("input overflow during recording", "device", s.device, "count", n)
	}
	err := s.stream.Close()
	if terr := portaudio.Terminate(); err == nil && terr != nil {
		err = fmt.Errorf("portaudio terminate: %w", terr)
	}
	return err
}
