// Package fake provides a scripted semantic classifier for tests and CLI
// demo mode.
package fake

import (
	"context"

	"github.com/goldvox/agentcore/pkg/turn"
)

// FakeClassifier returns a fixed probability for every call.
type FakeClassifier struct {
	probability float64
	supported   bool
}

// New creates a fake classifier that always reports probability.
func New(probability float64) *FakeClassifier {
	return &FakeClassifier{probability: probability, supported: true}
}

// Unsupported makes SupportsLanguage return false, to exercise the
// silence-only fallback path.
func (f *FakeClassifier) Unsupported() *FakeClassifier {
	f.supported = false
	return f
}

func (f *FakeClassifier) SupportsLanguage(language string) bool {
	return f.supported
}

func (f *FakeClassifier) PredictEndOfTurn(ctx context.Context, chatCtx turn.ChatContext) (float64, error) {
	return f.probability, nil
}

var _ turn.SemanticClassifier = (*FakeClassifier)(nil)
