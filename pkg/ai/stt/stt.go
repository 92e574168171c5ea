// Package stt implements a streaming speech-to-text decoder: it accepts
// audio frames between a SpeechStart and a SpeechEnd and emits interim
// partials plus exactly one final transcript, tagged with one of the
// supported languages (Hindi, English, Hinglish code-mixed, Tamil, Telugu,
// Kannada, Malayalam).
package stt

import (
	"context"

	"github.com/goldvox/agentcore/pkg/ai"
	"github.com/goldvox/agentcore/pkg/audio"
)

var (
	// ErrRecoverable indicates a temporary STT failure that may succeed if retried.
	ErrRecoverable = ai.ErrRecoverable
	// ErrFatal indicates a permanent STT failure that will not succeed if retried.
	ErrFatal = ai.ErrFatal
)

// Language is one of the seven tags this decoder is allowed to emit.
type Language string

const (
	LangHindi    Language = "hi"
	LangEnglish  Language = "en"
	LangHinglish Language = "hi-en"
	LangTamil    Language = "ta"
	LangTelugu   Language = "te"
	LangKannada  Language = "kn"
	LangMalayalam Language = "ml"
)

// StreamConfig configures one streaming session.
type StreamConfig struct {
	Lang      string // preferred language, empty to auto-detect
	BeamWidth int    // default 4
}

// EventType distinguishes interim and final transcripts.
type EventType int

const (
	Interim EventType = iota
	Final
)

// Event is one decode-step output. A Final event with LowConfidence set
// carries empty Text: the hallucination guard rejected the hypothesis.
type Event struct {
	Type          EventType
	Text          string
	Revision      bool // true if this partial replaces rather than extends the last one
	Language      Language
	Confidence    float32
	LowConfidence bool
	EmittedAt     int64 // microseconds
}

// Capabilities describes what a provider supports.
type Capabilities struct {
	SupportedLanguages []Language
	BeamWidth          int
}

// STT creates streaming sessions.
type STT interface {
	NewStream(ctx context.Context, cfg StreamConfig) (Stream, error)
	Capabilities() Capabilities
}

// Stream is one active decoding session, bounded by a SpeechStart/SpeechEnd
// pair from the VAD. Push must be called in frame order; CloseSend signals
// SpeechEnd and guarantees exactly one further Final event on Events().
type Stream interface {
	Push(frame *audio.Frame) error
	Events() <-chan Event
	CloseSend() error
}
