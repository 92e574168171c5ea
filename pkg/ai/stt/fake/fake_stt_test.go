package fake

import (
	"context"
	"testing"

	"github.com/goldvox/agentcore/pkg/ai/stt"
	"github.com/goldvox/agentcore/pkg/audio"
)

func newSilentFrame(t *testing.T) *audio.Frame {
	t.Helper()
	f, err := audio.NewFrame(make([]float32, audio.FrameSamples), 0)
	if err != nil {
		t.Fatalf("NewFrame() error = %v", err)
	}
	return f
}

func TestFakeSTTEmitsGrowingPartials(t *testing.T) {
	f := New("namaste aapka din shubh ho", stt.LangHinglish)
	s, err := f.NewStream(context.Background(), stt.StreamConfig{})
	if err != nil {
		t.Fatalf("NewStream() error = %v", err)
	}

	frame := newSilentFrame(t)
	var lastText string
	for i := 0; i < 4; i++ {
		if err := s.Push(frame); err != nil {
			t.Fatalf("Push() error = %v", err)
		}
		ev := <-s.Events()
		if ev.Type != stt.Interim {
			t.Fatalf("event %d type = %v, want Interim", i, ev.Type)
		}
		if len(ev.Text) <= len(lastText) {
			t.Errorf("partial %d did not grow: %q -> %q", i, lastText, ev.Text)
		}
		lastText = ev.Text
	}

	if err := s.CloseSend(); err != nil {
		t.Fatalf("CloseSend() error = %v", err)
	}
	final := <-s.Events()
	if final.Type != stt.Final {
		t.Fatalf("final event type = %v, want Final", final.Type)
	}
	if final.Text != "namaste aapka din shubh ho" {
		t.Errorf("final text = %q", final.Text)
	}
	if _, ok := <-s.Events(); ok {
		t.Error("Events() channel should be closed after Final")
	}
}

func TestFakeSTTLowConfidenceGuard(t *testing.T) {
	f := New("test", stt.LangEnglish).WithLowConfidence()
	s, _ := f.NewStream(context.Background(), stt.StreamConfig{})

	if err := s.CloseSend(); err != nil {
		t.Fatalf("CloseSend() error = %v", err)
	}
	final := <-s.Events()
	if !final.LowConfidence {
		t.Error("expected LowConfidence = true")
	}
	if final.Text != "" {
		t.Errorf("expected empty text under the hallucination guard, got %q", final.Text)
	}
}
