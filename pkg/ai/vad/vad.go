// Package vad implements voice activity detection: a single-owner, stateful
// detector that consumes 10ms audio frames and emits SpeechStart/SpeechEnd
// events with hangover-smoothed thresholds.
package vad

import (
	"time"

	"github.com/goldvox/agentcore/pkg/ai"
	"github.com/goldvox/agentcore/pkg/audio"
)

var (
	// ErrRecoverable indicates a temporary VAD failure that may succeed if retried.
	ErrRecoverable = ai.ErrRecoverable
	// ErrFatal indicates a permanent VAD failure that will not succeed if retried.
	ErrFatal = ai.ErrFatal
)

// EventType distinguishes the two events a VAD can raise.
type EventType int

const (
	SpeechStart EventType = iota
	SpeechEnd
)

func (t EventType) String() string {
	switch t {
	case SpeechStart:
		return "speech_start"
	case SpeechEnd:
		return "speech_end"
	default:
		return "unknown"
	}
}

// Event is emitted by Push when a threshold+hangover transition completes.
type Event struct {
	Type       EventType
	Timestamp  time.Time
	CaptureTS  int64 // microseconds, copied from the triggering frame
	Smoothed   float32
}

// Config controls the enter/exit thresholds and hangover durations.
// NewEngine replaces the whole Config with NewConfig() when both thresholds
// are zero; other zero fields are kept as given.
type Config struct {
	EnterThreshold  float32
	ExitThreshold   float32
	EnterHangover   time.Duration
	ExitHangover    time.Duration
	SmoothingAlpha  float32
}

// NewConfig returns the spec-default configuration: enter at 0.6, exit at
// 0.35, 30ms enter hangover, 200ms exit hangover, alpha 0.6.
func NewConfig() Config {
	return Config{
		EnterThreshold: 0.6,
		ExitThreshold:  0.35,
		EnterHangover:  30 * time.Millisecond,
		ExitHangover:   200 * time.Millisecond,
		SmoothingAlpha: 0.6,
	}
}

// Capabilities describes what a VAD provider supports.
type Capabilities struct {
	SampleRate        int
	MinSpeechDuration time.Duration
	MinSilenceDuration time.Duration
}

// VAD is a single-owner, stateful frame consumer. Push must only ever be
// called by one goroutine at a time; internal state is protected by a
// single critical section and model inference runs outside that lock, so
// a slow classifier never blocks the struct's own bookkeeping.
type VAD interface {
	// Push feeds one 10ms frame and returns an event if a threshold
	// transition just completed, or nil if the VAD is still accumulating
	// evidence.
	Push(frame *audio.Frame) (*Event, error)
	Capabilities() Capabilities
	// Reset clears smoothing/hangover state, e.g. between sessions.
	Reset()
}

// Classifier produces a raw speech probability in [0,1] for one frame. The
// concrete ONNX-backed implementation wraps a neural model; tests and the
// fake provider can substitute a trivial function.
type Classifier func(frame *audio.Frame) (float32, error)
