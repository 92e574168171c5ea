// Package fake provides a deterministic VAD for tests and CLI demo mode.
package fake

import (
	"math/rand"

	"github.com/goldvox/agentcore/pkg/ai/vad"
	"github.com/goldvox/agentcore/pkg/audio"
)

// DefaultSeed is the deterministic seed used when none is supplied, so test
// runs are reproducible.
const DefaultSeed = 42

// FakeVAD wraps a real vad.Engine with default thresholds and feeds it
// scripted probabilities: callers push them directly via Script, or let it
// fall back to a seeded RNG.
type FakeVAD struct {
	engine *vad.Engine
	rng    *rand.Rand
	script []float32
	next   int
}

// New creates a fake VAD that classifies frames using a seeded RNG biased
// toward speechProbability.
func New(speechProbability float32, seed int64) *FakeVAD {
	f := &FakeVAD{rng: rand.New(rand.NewSource(seed))}
	classify := func(*audio.Frame) (float32, error) {
		if f.next < len(f.script) {
			p := f.script[f.next]
			f.next++
			return p, nil
		}
		if f.rng.Float32() < speechProbability {
			return 0.9, nil
		}
		return 0.05, nil
	}
	f.engine = vad.NewEngine(vad.NewConfig(), classify)
	return f
}

// WithScript replaces the probability source with a fixed sequence,
// returned one value per Push call, for deterministic scenario tests.
func (f *FakeVAD) WithScript(probs []float32) *FakeVAD {
	f.script = probs
	f.next = 0
	return f
}

func (f *FakeVAD) Push(frame *audio.Frame) (*vad.Event, error) {
	return f.engine.Push(frame)
}

func (f *FakeVAD) Capabilities() vad.Capabilities {
	return f.engine.Capabilities()
}

func (f *FakeVAD) Reset() {
	f.engine.Reset()
	f.next = 0
}

var _ vad.VAD = (*FakeVAD)(nil)
