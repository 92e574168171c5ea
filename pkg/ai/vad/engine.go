package vad

import (
	"fmt"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/goldvox/agentcore/pkg/audio"
)

// melFeatureWindowMs is the feature window the classifier looks at per call.
const melFeatureWindowMs = 32

// Engine is the ONNX-backed VAD. All mutable bookkeeping (rolling feature
// window, smoothed probability, hangover counters, current mode) lives
// behind a single mutex; Classify (model inference) runs outside the lock
// so a slow model never blocks frame ingestion from anyone polling state.
type Engine struct {
	cfg      Config
	classify Classifier

	mu       sync.Mutex
	window   []*audio.Frame // rolling melFeatureWindowMs/10 frames
	smoothed float32
	speaking bool
	enterRun time.Duration
	exitRun  time.Duration
}

// NewEngine builds a VAD engine around any Classifier (for example one
// returned by NewONNXClassifier). A cfg whose enter and exit thresholds are
// both zero is replaced whole by NewConfig().
func NewEngine(cfg Config, classify Classifier) *Engine {
	if cfg.EnterThreshold == 0 && cfg.ExitThreshold == 0 {
		cfg = NewConfig()
	}
	framesInWindow := melFeatureWindowMs / audio.FrameDurationMs
	return &Engine{
		cfg:      cfg,
		classify: classify,
		window:   make([]*audio.Frame, 0, framesInWindow),
	}
}

func (e *Engine) Capabilities() Capabilities {
	return Capabilities{
		SampleRate:         audio.SampleRate,
		MinSpeechDuration:  e.cfg.EnterHangover,
		MinSilenceDuration: e.cfg.ExitHangover,
	}
}

func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.window = e.window[:0]
	e.smoothed = 0
	e.speaking = false
	e.enterRun = 0
	e.exitRun = 0
}

func (e *Engine) Push(frame *audio.Frame) (*Event, error) {
	e.mu.Lock()
	e.window = append(e.window, frame)
	framesInWindow := melFeatureWindowMs / audio.FrameDurationMs
	if len(e.window) > framesInWindow {
		e.window = e.window[len(e.window)-framesInWindow:]
	}
	windowSnapshot := append([]*audio.Frame(nil), e.window...)
	e.mu.Unlock()

	prob, err := e.classify(frame)
	if err != nil {
		return nil, fmt.Errorf("vad: classify frame: %w", err)
	}
	_ = windowSnapshot // the classifier closure owns its own feature extraction

	e.mu.Lock()
	defer e.mu.Unlock()

	e.smoothed = e.cfg.SmoothingAlpha*prob + (1-e.cfg.SmoothingAlpha)*e.smoothed

	const frameDur = audio.FrameDurationMs * time.Millisecond

	if !e.speaking {
		if e.smoothed >= e.cfg.EnterThreshold {
			e.enterRun += frameDur
		} else {
			e.enterRun = 0
		}
		if e.enterRun >= e.cfg.EnterHangover {
			e.speaking = true
			e.enterRun = 0
			e.exitRun = 0
			return &Event{
				Type:      SpeechStart,
				Timestamp: time.Now(),
				CaptureTS: frame.CaptureTS,
				Smoothed:  e.smoothed,
			}, nil
		}
		return nil, nil
	}

	if e.smoothed <= e.cfg.ExitThreshold {
		e.exitRun += frameDur
	} else {
		e.exitRun = 0
	}
	if e.exitRun >= e.cfg.ExitHangover {
		e.speaking = false
		e.exitRun = 0
		return &Event{
			Type:      SpeechEnd,
			Timestamp: time.Now(),
			CaptureTS: frame.CaptureTS,
			Smoothed:  e.smoothed,
		}, nil
	}
	return nil, nil
}

// NewONNXClassifier loads an ONNX session lazily on first use and returns a
// Classifier closure that extracts a Mel-style feature vector from the
// frame and runs one forward pass. featureFn is factored out so tests can
// substitute a cheap deterministic transform.
func NewONNXClassifier(modelPath string, featureFn func(*audio.Frame) []float32) Classifier {
	var (
		once    sync.Once
		session *ort.Session[float32]
		loadErr error
	)

	load := func() error {
		once.Do(func() {
			opts, err := ort.NewSessionOptions()
			if err != nil {
				loadErr = fmt.Errorf("vad: create session options: %w", err)
				return
			}
			defer opts.Destroy()

			inputShape := ort.NewShape(1, int64(len(featureFn(&audio.Frame{}))))
			dummyIn, err := ort.NewEmptyTensor[float32](inputShape)
			if err != nil {
				loadErr = fmt.Errorf("vad: create input tensor: %w", err)
				return
			}
			defer dummyIn.Destroy()

			outShape := ort.NewShape(1, 1)
			dummyOut, err := ort.NewEmptyTensor[float32](outShape)
			if err != nil {
				loadErr = fmt.Errorf("vad: create output tensor: %w", err)
				return
			}
			defer dummyOut.Destroy()

			session, loadErr = ort.NewSession[float32](
				modelPath,
				[]string{"mel_features"},
				[]string{"speech_prob"},
				[]*ort.Tensor[float32]{dummyIn},
				[]*ort.Tensor[float32]{dummyOut},
			)
		})
		return loadErr
	}

	return func(frame *audio.Frame) (float32, error) {
		if err := load(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrFatal, err)
		}
		features := featureFn(frame)
		shape := ort.NewShape(1, int64(len(features)))
		in, err := ort.NewTensor(shape, features)
		if err != nil {
			return 0, fmt.Errorf("%w: build input tensor: %v", ErrRecoverable, err)
		}
		defer in.Destroy()

		outShape := ort.NewShape(1, 1)
		out, err := ort.NewEmptyTensor[float32](outShape)
		if err != nil {
			return 0, fmt.Errorf("%w: build output tensor: %v", ErrRecoverable, err)
		}
		defer out.Destroy()

		if err := session.Run(); err != nil {
			return 0, fmt.Errorf("%w: inference: %v", ErrRecoverable, err)
		}
		data := out.GetData()
		if len(data) == 0 {
			return 0, fmt.Errorf("%w: empty output", ErrRecoverable)
		}
		return data[0], nil
	}
}
