// Package fake provides a scripted STT provider for tests and CLI demo mode.
package fake

import (
	"context"
	"time"

	"github.com/goldvox/agentcore/pkg/ai/stt"
	"github.com/goldvox/agentcore/pkg/audio"
)

// DefaultTranscript is used when no transcript is scripted.
const DefaultTranscript = "mujhe loan ke baare mein jaankari chahiye"

// FakeSTT emits a fixed transcript, growing one word per Push, then a
// Final on CloseSend.
type FakeSTT struct {
	transcript string
	language   stt.Language
	lowConf    bool
}

// New creates a fake STT provider with a fixed transcript and language tag.
func New(transcript string, language stt.Language) *FakeSTT {
	if transcript == "" {
		transcript = DefaultTranscript
	}
	if language == "" {
		language = stt.LangHinglish
	}
	return &FakeSTT{transcript: transcript, language: language}
}

// WithLowConfidence makes the Final of every stream created after this call
// trip the hallucination guard, for testing that consumers handle an empty, low-confidence final.
func (f *FakeSTT) WithLowConfidence() *FakeSTT {
	f.lowConf = true
	return f
}

func (f *FakeSTT) NewStream(ctx context.Context, cfg stt.StreamConfig) (stt.Stream, error) {
	return &fakeStream{
		words:    splitWords(f.transcript),
		language: f.language,
		lowConf:  f.lowConf,
		events:   make(chan stt.Event, 16),
	}, nil
}

func (f *FakeSTT) Capabilities() stt.Capabilities {
	return stt.Capabilities{
		SupportedLanguages: []stt.Language{
			stt.LangHindi, stt.LangEnglish, stt.LangHinglish,
			stt.LangTamil, stt.LangTelugu, stt.LangKannada, stt.LangMalayalam,
		},
		BeamWidth: 4,
	}
}

type fakeStream struct {
	words    []string
	language stt.Language
	lowConf  bool
	emitted  int
	events   chan stt.Event
	closed   bool
}

func (s *fakeStream) Push(frame *audio.Frame) error {
	if s.closed {
		return nil
	}
	if s.emitted >= len(s.words) {
		return nil
	}
	s.emitted++
	text := joinWords(s.words[:s.emitted])
	s.events <- stt.Event{
		Type:       stt.Interim,
		Text:       text,
		Language:   s.language,
		Confidence: 0.9,
		EmittedAt:  time.Now().UnixMicro(),
	}
	return nil
}

func (s *fakeStream) Events() <-chan stt.Event {
	return s.events
}

func (s *fakeStream) CloseSend() error {
	if s.closed {
		return nil
	}
	s.closed = true
	final := stt.Event{
		Type:       stt.Final,
		Text:       joinWords(s.words),
		Language:   s.language,
		Confidence: 0.9,
		EmittedAt:  time.Now().UnixMicro(),
	}
	if s.lowConf {
		final.Text = ""
		final.Confidence = 0.1
		final.LowConfidence = true
	}
	s.events <- final
	close(s.events)
	return nil
}

func splitWords(s string) []string {
	var words []string
	word := ""
	for _, r := range s {
		if r == ' ' {
			if word != "" {
				words = append(words, word)
				word = ""
			}
			continue
		}
		word += string(r)
	}
	if word != "" {
		words = append(words, word)
	}
	return words
}

func joinWords(words []string) string {
	out := ""
	for i, w := range words {
		if i > 0 {
			out += " "
		}
		out += w
	}
	return out
}

var _ stt.STT = (*FakeSTT)(nil)
