package tts

import (
	"context"
	"strings"
	"sync/atomic"
)

// Synthesizer turns one word into a slice of f32 PCM samples. A concrete
// vendor backend implements this; the chunking/cancellation logic around it
// is vendor-neutral.
type Synthesizer func(word string, req Request) ([]float32, error)

// Engine streams audio word by word, honoring word-granular cancellation.
type Engine struct {
	synth Synthesizer
}

// NewEngine builds a chunking engine around a word-level Synthesizer.
func NewEngine(synth Synthesizer) *Engine {
	return &Engine{synth: synth}
}

func (e *Engine) Synthesize(ctx context.Context, req Request) (Stream, error) {
	words := prosodicWords(req.Text)
	s := &stream{
		ctx:    ctx,
		words:  words,
		synth:  e.synth,
		req:    req,
		chunks: make(chan Chunk),
	}
	go s.run()
	return s, nil
}

func (e *Engine) Capabilities() Capabilities {
	return Capabilities{SupportsSSML: false, SupportsSpeedControl: true}
}

type stream struct {
	ctx       context.Context
	words     []string
	synth     Synthesizer
	req       Request
	chunks    chan Chunk
	cancelled atomic.Bool
}

func (s *stream) run() {
	defer close(s.chunks)
	for i, w := range s.words {
		if s.ctx.Err() != nil {
			return
		}
		samples, err := s.synth(w, s.req)
		if err != nil {
			return
		}
		// Split each word's audio into chunks of at most 480 samples (30ms
		// at 16kHz) so the playout side can stop within one chunk of a
		// barge-in; a word's last chunk holds the remainder and can be
		// shorter.
		const chunkSize = 480
		for start := 0; start < len(samples); start += chunkSize {
			end := min(start+chunkSize, len(samples))
			select {
			case s.chunks <- Chunk{
				Samples: samples[start:end],
				WordIdx: i,
				LastWord: i == len(s.words)-1 && end == len(samples),
			}:
			case <-s.ctx.Done():
				return
			}
		}
		if s.cancelled.Load() {
			return
		}
	}
}

func (s *stream) Chunks() <-chan Chunk {
	return s.chunks
}

func (s *stream) CancelAfterCurrentWord() {
	s.cancelled.Store(true)
}

// prosodicWords splits text on whitespace only; punctuation stays attached
// to the word it follows.
func prosodicWords(text string) []string {
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f)
	}
	return out
}
