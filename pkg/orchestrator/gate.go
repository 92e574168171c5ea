package orchestrator

import "sync/atomic"

// AudioGate tracks whether inbound mic frames should be discarded as an
// echo guard. The gate is open (discarding) while TTS is playing and closes
// the instant a barge-in is detected, so the new user utterance is not
// itself discarded.
type AudioGate struct {
	ttsPlaying atomic.Bool
}

func NewAudioGate() *AudioGate {
	return &AudioGate{}
}

func (g *AudioGate) SetTTSPlaying(playing bool) {
	g.ttsPlaying.Store(playing)
}

func (g *AudioGate) ShouldDiscardAudio() bool {
	return g.ttsPlaying.Load()
}
