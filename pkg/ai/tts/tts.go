// Package tts implements streaming speech synthesis with word-granular
// cancellation: text is split into words and streamed as PCM chunks of at
// most 30ms so a barge-in can stop playout cleanly at a word boundary
// instead of mid-phoneme.
package tts

import (
	"context"

	"github.com/goldvox/agentcore/pkg/ai"
)

var (
	// ErrRecoverable indicates a temporary TTS failure that may succeed if retried.
	ErrRecoverable = ai.ErrRecoverable
	// ErrFatal indicates a permanent TTS failure that will not succeed if retried.
	ErrFatal = ai.ErrFatal
)

// Request parameterizes one synthesis call.
type Request struct {
	Text     string
	Voice    string
	Language string
	Speed    float32
	Pitch    float32
}

// Chunk is one segment of synthesized PCM, tagged with the source word
// index so the orchestrator can log exactly where a barge-in cut playout.
type Chunk struct {
	Samples  []float32 // 16kHz mono f32, at most 30ms
	WordIdx  int
	LastWord bool
}

// Capabilities describes what a provider supports.
type Capabilities struct {
	SupportedLanguages   []string
	SupportedVoices      []string
	SupportsSSML         bool
	SupportsSpeedControl bool
}

// TTS synthesizes streaming audio.
type TTS interface {
	// Synthesize starts producing audio. The returned Stream must be
	// cancelled via CancelAfterCurrentWord or by cancelling ctx; either way
	// Events() closes cleanly with no partial-word click.
	Synthesize(ctx context.Context, req Request) (Stream, error)
	Capabilities() Capabilities
}

// Stream is one in-flight synthesis.
type Stream interface {
	Chunks() <-chan Chunk
	// CancelAfterCurrentWord requests the synthesizer finish the in-flight
	// word, then close the stream. It is safe to call more than once.
	CancelAfterCurrentWord()
}
