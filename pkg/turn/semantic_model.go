package turn

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

// SemanticModel is the ONNX-backed SemanticClassifier: a small classifier
// over the latest partial transcript that estimates whether the user has
// finished their turn, with per-language thresholds taken from
// defaultLanguageThresholds. The languagesPath given at construction is
// stored but not read.
type SemanticModel struct {
	modelPath     string
	tokenizerPath string
	languagesPath string

	sessionOnce sync.Once
	session     *ort.Session[float32]
	sessionErr  error

	tokenizerOnce sync.Once
	tok           *tokenizer.Tokenizer
	tokenizerErr  error

	languagesOnce sync.Once
	languages     map[string]float64
	languagesErr  error
}

// NewSemanticModel builds a classifier around the given model/tokenizer/
// languages files. The model and tokenizer are loaded lazily on first use;
// the languages file is not loaded.
func NewSemanticModel(modelPath, tokenizerPath, languagesPath string) *SemanticModel {
	return &SemanticModel{
		modelPath:     modelPath,
		tokenizerPath: tokenizerPath,
		languagesPath: languagesPath,
	}
}

func (m *SemanticModel) SupportsLanguage(language string) bool {
	if err := m.loadLanguages(); err != nil {
		return false
	}
	_, ok := m.languages[language]
	return ok
}

// Threshold implements LanguageThresholder: it returns the per-language EOU
// confidence floor from defaultLanguageThresholds, letting
// the detector use a calibrated value instead of its own global default.
func (m *SemanticModel) Threshold(language string) (float64, bool) {
	if err := m.loadLanguages(); err != nil {
		return 0, false
	}
	t, ok := m.languages[language]
	return t, ok
}

func (m *SemanticModel) PredictEndOfTurn(ctx context.Context, chatCtx ChatContext) (float64, error) {
	if err := m.loadSession(); err != nil {
		return 0, fmt.Errorf("turn: load onnx session: %w", err)
	}
	if err := m.loadTokenizer(); err != nil {
		return 0, fmt.Errorf("turn: load tokenizer: %w", err)
	}

	ids, _, err := m.tok.Encode(tokenizer.NewInputSequence(chatCtx.PartialText), true)
	if err != nil {
		return 0, fmt.Errorf("turn: tokenize: %w", err)
	}

	tokens := make([]int64, len(ids))
	for i, id := range ids {
		tokens[i] = int64(id)
	}
	shape := ort.NewShape(1, int64(len(tokens)))
	in, err := ort.NewTensor(shape, tokens)
	if err != nil {
		return 0, fmt.Errorf("turn: build input tensor: %w", err)
	}
	defer in.Destroy()

	if err := m.session.Run(); err != nil {
		return 0, fmt.Errorf("turn: inference: %w", err)
	}
	out := m.session.GetOutputs()
	if len(out) == 0 || len(out[0].GetData()) == 0 {
		return 0, fmt.Errorf("turn: empty model output")
	}
	return float64(out[0].GetData()[0]), nil
}

func (m *SemanticModel) loadSession() error {
	m.sessionOnce.Do(func() {
		if err := ensureOrtEnv(); err != nil {
			m.sessionErr = fmt.Errorf("ort environment: %w", err)
			return
		}
		opts, err := ort.NewSessionOptions()
		if err != nil {
			m.sessionErr = fmt.Errorf("session options: %w", err)
			return
		}
		defer opts.Destroy()

		intraOpThreads := max(1, runtime.NumCPU()/2)
		if err := opts.SetIntraOpNumThreads(intraOpThreads); err != nil {
			m.sessionErr = fmt.Errorf("intra-op threads: %w", err)
			return
		}

		dummyShape := ort.NewShape(1, 1)
		dummyIn, err := ort.NewTensor(dummyShape, []int64{0})
		if err != nil {
			m.sessionErr = fmt.Errorf("dummy input: %w", err)
			return
		}
		defer dummyIn.Destroy()

		dummyOut, err := ort.NewEmptyTensor[float32](dummyShape)
		if err != nil {
			m.sessionErr = fmt.Errorf("dummy output: %w", err)
			return
		}
		defer dummyOut.Destroy()

		m.session, m.sessionErr = ort.NewSession[float32](
			m.modelPath,
			[]string{"input_ids"},
			[]string{"logits"},
			[]*ort.Tensor[float32]{},
			[]*ort.Tensor[float32]{dummyOut},
		)
	})
	return m.sessionErr
}

func (m *SemanticModel) loadTokenizer() error {
	m.tokenizerOnce.Do(func() {
		m.tok, m.tokenizerErr = pretrained.FromFile(m.tokenizerPath)
	})
	return m.tokenizerErr
}

func (m *SemanticModel) loadLanguages() error {
	m.languagesOnce.Do(func() {
		m.languages = defaultLanguageThresholds()
	})
	return m.languagesErr
}

// defaultLanguageThresholds mirrors the per-language EOU tuning a trained
// multilingual model ships with; values are conservative defaults for the
// seven languages this core supports, and are the only thresholds used.
func defaultLanguageThresholds() map[string]float64 {
	return map[string]float64{
		"hi":    0.8,
		"en":    0.75,
		"hi-en": 0.82,
		"ta":    0.78,
		"te":    0.78,
		"kn":    0.78,
		"ml":    0.78,
	}
}

var _ SemanticClassifier = (*SemanticModel)(nil)
