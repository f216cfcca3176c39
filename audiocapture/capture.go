// Package audiocapture records microphone audio for one dictation session
// and encodes it for upload.
package audiocapture

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNoDevice is returned when no usable input device exists.
var ErrNoDevice = errors.New("no input device found")

// Format is the stream layout chosen when a session is opened.
// It stays fixed for the lifetime of the session.
type Format struct {
	SampleRate int
	Channels   int
}

// Stream is an opened hardware input stream.
type Stream interface {
	Start() error
	Pause() error
	Close() error
}

// Device opens the default input stream with its default configuration.
// onChunk is called from the audio thread with interleaved samples and
// must not retain the slice.
type Device interface {
	OpenDefault(onChunk func(samples []float32)) (Stream, Format, error)
}

// Session owns one input stream for the duration of a recording.
// It is used by a single goroutine; only the audio callback runs elsewhere
// and it only touches the queue.
type Session struct {
	stream Stream
	format Format
	queue  *ChunkQueue

	closeOnce sync.Once
	closeErr  error
}

// Open opens the default input stream of dev and routes every delivered
// chunk into the session queue. The stream is not started.
func Open(dev Device) (*Session, error) {
	queue := NewChunkQueue()

	stream, format, err := dev.OpenDefault(func(samples []float32) {
		// Best effort: a closed queue drops the chunk.
		queue.Push(samples)
	})
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}

	if format.SampleRate <= 0 || format.Channels <= 0 {
		_ = stream.Close()
		return nil, fmt.Errorf("open input stream: invalid format %d Hz, %d channels", format.SampleRate, format.Channels)
	}

	return &Session{
		stream: stream,
		format: format,
		queue:  queue,
	}, nil
}

// Start begins delivery of audio into the session.
func (s *Session) Start() error {
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("start input stream: %w", err)
	}
	return nil
}

// Format returns the sample rate and channel count of the session.
func (s *Session) Format() Format {
	return s.format
}

// Drain returns every sample queued so far without blocking.
// The stream keeps running.
func (s *Session) Drain() []float32 {
	return s.queue.Drain()
}

// Close pauses the stream and releases it. It runs on every exit path,
// including after a failed Start, and is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.queue.Close()

		var errs []error
		if err := s.stream.Pause(); err != nil {
			errs = append(errs, fmt.Errorf("pause input stream: %w", err))
		}
		if err := s.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close input stream: %w", err))
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// ChunkQueue is an unbounded queue of sample chunks fed by the audio
// callback and drained by the session owner.
type ChunkQueue struct {
	mu     sync.Mutex
	chunks [][]float32
	count  int // samples queued
	closed bool
}

// NewChunkQueue creates an empty queue.
func NewChunkQueue() *ChunkQueue {
	return &ChunkQueue{}
}

// Push appends a copy of samples. It reports false when the queue is
// closed and the chunk was dropped.
func (q *ChunkQueue) Push(samples []float32) bool {
	if len(samples) == 0 {
		return true
	}

	chunk := make([]float32, len(samples))
	copy(chunk, samples)

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.chunks = append(q.chunks, chunk)
	q.count += len(chunk)
	return true
}

// TryPop removes the oldest chunk. ok is false when the queue is empty.
func (q *ChunkQueue) TryPop() (chunk []float32, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.chunks) == 0 {
		return nil, false
	}
	chunk = q.chunks[0]
	q.chunks[0] = nil
	q.chunks = q.chunks[1:]
	q.count -= len(chunk)
	return chunk, true
}

// Drain pops chunks until the queue reports empty and returns them
// concatenated in arrival order.
func (q *ChunkQueue) Drain() []float32 {
	samples := make([]float32, 0, q.Len())
	for {
		chunk, ok := q.TryPop()
		if !ok {
			return samples
		}
		samples = append(samples, chunk...)
	}
}

// Close stops the queue from accepting chunks. Queued chunks stay
// available to Drain.
func (q *ChunkQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// Len returns the number of samples currently queued.
func (q *ChunkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}
