package fake

import (
	"testing"

	"github.com/goldvox/agentcore/pkg/ai/vad"
	"github.com/goldvox/agentcore/pkg/audio"
)

func pushSilentFrames(t *testing.T, f *FakeVAD, n int) *vad.Event {
	t.Helper()
	var last *vad.Event
	for i := 0; i < n; i++ {
		frame, err := audio.NewFrame(make([]float32, audio.FrameSamples), int64(i*10000))
		if err != nil {
			t.Fatalf("NewFrame() error = %v", err)
		}
		ev, err := f.Push(frame)
		if err != nil {
			t.Fatalf("Push() error = %v", err)
		}
		if ev != nil {
			last = ev
		}
	}
	return last
}

func TestFakeVADScriptedSpeechStart(t *testing.T) {
	f := New(0, DefaultSeed).WithScript([]float32{0.9, 0.9, 0.9, 0.9, 0.9})

	ev := pushSilentFrames(t, f, 5)
	if ev == nil {
		t.Fatal("expected a SpeechStart event after sustained high probability")
	}
	if ev.Type != vad.SpeechStart {
		t.Errorf("event type = %v, want SpeechStart", ev.Type)
	}
}

func TestFakeVADScriptedSpeechEnd(t *testing.T) {
	script := append([]float32{0.9, 0.9, 0.9, 0.9}, make([]float32, 25)...) // 25 frames of ~0 after speech
	f := New(0, DefaultSeed).WithScript(script)

	pushSilentFrames(t, f, 4) // triggers SpeechStart
	ev := pushSilentFrames(t, f, 25)
	if ev == nil {
		t.Fatal("expected a SpeechEnd event after sustained low probability")
	}
	if ev.Type != vad.SpeechEnd {
		t.Errorf("event type = %v, want SpeechEnd", ev.Type)
	}
}

func TestFakeVADReset(t *testing.T) {
	f := New(0, DefaultSeed).WithScript([]float32{0.9, 0.9, 0.9, 0.9})
	pushSilentFrames(t, f, 4)
	f.Reset()

	frame, _ := audio.NewFrame(make([]float32, audio.FrameSamples), 0)
	ev, err := f.Push(frame)
	if err != nil {
		t.Fatalf("Push() after Reset error = %v", err)
	}
	if ev != nil {
		t.Errorf("expected no event immediately after Reset, got %v", ev)
	}
}
