package llm

import (
	"context"
	"testing"
	"time"

	"github.com/goldvox/agentcore/pkg/ai/llm/fake"
)

func TestExecutorSLMFirstAcceptsGoodSLM(t *testing.T) {
	slm := fake.New("aapka loan approved hai")
	llmBackend := fake.New("should not be used")
	exec := NewExecutor(slm, llmBackend, NewQualityEstimator(DefaultQualityConfig()), 50*time.Millisecond)

	res, err := exec.Run(context.Background(), SLMFirst, []Message{{Role: RoleUser, Content: "hi"}}, Params{}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.UsedModel != "slm" {
		t.Errorf("UsedModel = %q, want slm", res.UsedModel)
	}
}

func TestExecutorSLMFirstFallsBackOnLowQuality(t *testing.T) {
	slm := fake.New("i don't know")
	llmBackend := fake.New("yahan aapke liye complete jaankari hai")
	exec := NewExecutor(slm, llmBackend, NewQualityEstimator(DefaultQualityConfig()), 50*time.Millisecond)

	res, err := exec.Run(context.Background(), SLMFirst, []Message{{Role: RoleUser, Content: "hi"}}, Params{}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.UsedModel != "llm" {
		t.Errorf("UsedModel = %q, want llm (SLM answer should fail the quality bar)", res.UsedModel)
	}
}

func TestExecutorDraftVerifyAlwaysUsesLLM(t *testing.T) {
	slm := fake.New("draft that must be discarded")
	llmBackend := fake.New("final judged answer")
	exec := NewExecutor(slm, llmBackend, NewQualityEstimator(DefaultQualityConfig()), 50*time.Millisecond)

	res, err := exec.Run(context.Background(), DraftVerify, []Message{{Role: RoleUser, Content: "hi"}}, Params{}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.UsedModel != "llm" {
		t.Error("DraftVerify must always surface the LLM's answer, never the discarded draft")
	}
	if res.Text == "draft that must be discarded" {
		t.Error("DraftVerify leaked the discarded SLM draft into the final result")
	}
}

func TestEstimateTokensDevanagariUsesGraphemesNotBytes(t *testing.T) {
	ascii := "hello there"
	devanagari := "नमस्ते आपका स्वागत है"

	asciiTokens := EstimateTokens(ascii)
	devTokens := EstimateTokens(devanagari)

	if asciiTokens == 0 || devTokens == 0 {
		t.Fatalf("expected nonzero estimates, got ascii=%d devanagari=%d", asciiTokens, devTokens)
	}
	// A byte-based estimate would wildly overcount Devanagari because each
	// grapheme cluster spans multiple bytes; the grapheme-aware estimate
	// must stay in a plausible token-count range instead of scaling with
	// raw byte length.
	if devTokens > len([]rune(devanagari)) {
		t.Errorf("grapheme-based estimate %d exceeds rune count %d; looks byte-driven", devTokens, len([]rune(devanagari)))
	}
}

func TestQualityEstimatorRejectsStopPhrase(t *testing.T) {
	q := NewQualityEstimator(DefaultQualityConfig())
	if q.Acceptable("I don't know, sorry", 0) {
		t.Error("expected stop-phrase answer to be rejected")
	}
}

func TestQualityEstimatorDoesNotPenalizeShortAnswers(t *testing.T) {
	q := NewQualityEstimator(DefaultQualityConfig())
	if !q.Acceptable("haan", 0.9) {
		t.Error("a short but valid answer must not be rejected for length alone")
	}
}
