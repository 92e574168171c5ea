package tts

import (
	"context"
	"testing"
)

func TestEngineStreamsAllWords(t *testing.T) {
	e := NewEngine(func(word string, req Request) ([]float32, error) {
		return make([]float32, 480), nil
	})

	s, err := e.Synthesize(context.Background(), Request{Text: "ek lakh rupaye"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	wordsSeen := map[int]bool{}
	sawLast := false
	for chunk := range s.Chunks() {
		wordsSeen[chunk.WordIdx] = true
		if chunk.LastWord {
			sawLast = true
		}
	}
	if len(wordsSeen) != 3 {
		t.Errorf("saw %d distinct words, want 3", len(wordsSeen))
	}
	if !sawLast {
		t.Error("never saw a chunk flagged LastWord")
	}
}

func TestEngineCancelAfterCurrentWord(t *testing.T) {
	e := NewEngine(func(word string, req Request) ([]float32, error) {
		return make([]float32, 480), nil
	})

	s, _ := e.Synthesize(context.Background(), Request{Text: "one two three four five"})
	cs := s.(*stream)

	first := <-cs.Chunks()
	cs.CancelAfterCurrentWord()

	count := 1
	for range cs.Chunks() {
		count++
	}
	if count >= 5 {
		t.Errorf("expected cancellation to stop well before all 5 words, saw %d chunks covering word %d", count, first.WordIdx)
	}
}
