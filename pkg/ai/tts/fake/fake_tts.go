// Package fake provides a deterministic TTS provider for tests and demo mode.
package fake

import (
	"github.com/goldvox/agentcore/pkg/ai/tts"
)

// New builds a fake TTS engine that synthesizes 320+80*len(word) silent
// samples per word (len in bytes), which the engine splits into chunks of
// at most 480 samples: enough to exercise chunk counting and word-granular
// cancellation in tests without needing real audio.
func New() *tts.Engine {
	return tts.NewEngine(func(word string, req tts.Request) ([]float32, error) {
		return make([]float32, 320*len(word)/4+320), nil
	})
}
