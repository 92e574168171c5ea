// Package fake provides a scripted streaming LLM backend for tests and CLI
// demo mode.
package fake

import (
	"context"
	"strings"

	"github.com/goldvox/agentcore/pkg/ai/llm"
)

// FakeBackend streams a fixed response one word at a time, cycling through
// responses across calls.
type FakeBackend struct {
	responses []string
	calls     int
	delay     bool

	// functionCall, when set, is emitted once as the entire first call's
	// output instead of any scripted response text, then cleared so the
	// next call streams text normally. Lets a test exercise one tool-call
	// hop without scripting a whole fake provider.
	functionCall *llm.FunctionCall
}

// New creates a fake backend; with no responses it returns a default
// sales-appropriate line.
func New(responses ...string) *FakeBackend {
	if len(responses) == 0 {
		responses = []string{"aapka loan eligible hai, main details share karta hoon"}
	}
	return &FakeBackend{responses: responses}
}

// WithFunctionCall makes the next Generate call return a single
// FunctionCall token instead of scripted text, for exercising the
// orchestrator's tool-calling hop loop.
func (f *FakeBackend) WithFunctionCall(call llm.FunctionCall) *FakeBackend {
	f.functionCall = &call
	return f
}

func (f *FakeBackend) Generate(ctx context.Context, messages []llm.Message, params llm.Params, handle llm.ContextHandle) (llm.Stream, error) {
	if f.functionCall != nil {
		call := f.functionCall
		f.functionCall = nil
		tokens := make(chan llm.Token, 1)
		sctx, cancel := context.WithCancel(ctx)
		go func() {
			defer close(tokens)
			select {
			case tokens <- llm.Token{FunctionCall: call, FinishReason: "function_call"}:
			case <-sctx.Done():
			}
		}()
		return &fakeStream{tokens: tokens, cancel: cancel}, nil
	}

	resp := f.responses[f.calls%len(f.responses)]
	f.calls++

	tokens := make(chan llm.Token, 32)
	sctx, cancel := context.WithCancel(ctx)
	go func() {
		defer close(tokens)
		words := strings.Fields(resp)
		for i, w := range words {
			text := w
			if i > 0 {
				text = " " + w
			}
			select {
			case tokens <- llm.Token{Text: text, Confidence: 0.8}:
			case <-sctx.Done():
				return
			}
		}
		select {
		case tokens <- llm.Token{FinishReason: "stop"}:
		case <-sctx.Done():
		}
	}()

	return &fakeStream{tokens: tokens, cancel: cancel}, nil
}

func (f *FakeBackend) Capabilities() llm.Capabilities {
	return llm.Capabilities{SupportsFunctions: true, MaxTokens: 8192, Models: []string{"fake-slm"}}
}

type fakeStream struct {
	tokens chan llm.Token
	cancel context.CancelFunc
}

func (s *fakeStream) Tokens() <-chan llm.Token      { return s.tokens }
func (s *fakeStream) Handle() llm.ContextHandle      { return nil }
func (s *fakeStream) Cancel()                        { s.cancel() }

var _ llm.Backend = (*FakeBackend)(nil)
