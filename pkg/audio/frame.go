// Package audio provides the canonical fixed-stride audio primitives shared
// by every pipeline component: 10ms/160-sample mono f32 frames at 16kHz, a
// lock-free single-producer/single-consumer ring buffer, and a bounded mpmc
// channel wrapper used on every inter-component edge.
package audio

import (
	"fmt"
	"math"
)

// SampleRate is the one sample rate every component in the pipeline agrees
// on. Transport adapters resample at ingress/egress; nothing downstream
// ever sees another rate.
const SampleRate = 16000

// FrameSamples is the fixed stride: 10ms at SampleRate.
const FrameSamples = SampleRate / 100

// FrameDurationMs is the wall-clock duration a Frame represents, in
// milliseconds.
const FrameDurationMs = 10

// Frame is an immutable 10ms slice of mono PCM audio in [-1, 1]. Frames are
// shared across many readers and must never be mutated after construction;
// CaptureTS is a monotonic microsecond timestamp taken at transport ingress.
type Frame struct {
	Samples   [FrameSamples]float32
	CaptureTS int64 // microseconds, monotonic, set once at ingress
}

// NewFrame builds a Frame from a slice of exactly FrameSamples samples.
func NewFrame(samples []float32, captureTS int64) (*Frame, error) {
	if len(samples) != FrameSamples {
		return nil, fmt.Errorf("audio: frame must carry %d samples, got %d", FrameSamples, len(samples))
	}
	f := &Frame{CaptureTS: captureTS}
	copy(f.Samples[:], samples)
	return f, nil
}

// Clone returns a deep copy, for the rare consumer that needs to mutate.
func (f *Frame) Clone() *Frame {
	c := *f
	return &c
}

// RMS returns the root-mean-square amplitude of the frame, used by the
// echo-guard and rate-estimation logic in the orchestrator.
func (f *Frame) RMS() float32 {
	var sum float64
	for _, s := range f.Samples {
		sum += float64(s) * float64(s)
	}
	mean := sum / float64(len(f.Samples))
	return float32(math.Sqrt(mean))
}
