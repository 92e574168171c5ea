package llm

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Strategy selects how the SLM and LLM legs are combined for one turn.
type Strategy int

const (
	// SLMFirst calls the SLM with a timeout; if its output passes the
	// quality estimator, it is returned, else the LLM is called. Default
	// strategy, expected to serve most turns.
	SLMFirst Strategy = iota
	// Race dispatches both models in parallel; the first to produce a
	// complete, acceptable response wins and the other is cancelled.
	Race
	// Hybrid starts streaming the SLM to the caller and switches to the LLM
	// mid-stream if quality degrades, discarding the SLM remainder. The two
	// outputs are never concatenated into what the caller sees.
	Hybrid
	// DraftVerify is NOT a latency-reducing technique: the SLM drafts a
	// short response that is discarded, and only the LLM's judged/rewritten
	// answer is used. It exists to document the limitation explicitly
	// rather than imitate EAGLE-style speculation this backend interface
	// cannot support. Disabled by default.
	DraftVerify
)

// Executor runs one of the four strategies over an SLM/LLM pair.
type Executor struct {
	slm        Backend
	llm        Backend
	quality    *QualityEstimator
	slmTimeout time.Duration
}

// NewExecutor builds an executor. slmTimeout is T_slm from the SLM-First
// strategy, default 200ms.
func NewExecutor(slm, llmBackend Backend, quality *QualityEstimator, slmTimeout time.Duration) *Executor {
	if slmTimeout == 0 {
		slmTimeout = 200 * time.Millisecond
	}
	return &Executor{slm: slm, llm: llmBackend, quality: quality, slmTimeout: slmTimeout}
}

// Result is the final text plus which leg produced it, for observability.
type Result struct {
	Text      string
	Call      *FunctionCall
	Handle    ContextHandle
	UsedModel string // "slm" or "llm"
}

// Run executes strategy and returns the final assembled text. Token-by-token
// streaming for Hybrid is provided by RunHybridStream; Run is the simpler
// all-at-once path used by SLMFirst, Race, and DraftVerify.
func (e *Executor) Run(ctx context.Context, strategy Strategy, messages []Message, params Params, handle ContextHandle) (Result, error) {
	switch strategy {
	case SLMFirst:
		return e.runSLMFirst(ctx, messages, params, handle)
	case Race:
		return e.runRace(ctx, messages, params, handle)
	case DraftVerify:
		return e.runDraftVerify(ctx, messages, params, handle)
	case Hybrid:
		return e.runHybridCollected(ctx, messages, params, handle)
	default:
		return e.runSLMFirst(ctx, messages, params, handle)
	}
}

func (e *Executor) runSLMFirst(ctx context.Context, messages []Message, params Params, handle ContextHandle) (Result, error) {
	slmCtx, cancel := context.WithTimeout(ctx, e.slmTimeout)
	defer cancel()

	text, call, h, err := collect(slmCtx, e.slm, messages, params, handle)
	if err == nil && (call != nil || e.quality.Acceptable(text, 0)) {
		return Result{Text: text, Call: call, Handle: h, UsedModel: "slm"}, nil
	}

	text, call, h, err = collect(ctx, e.llm, messages, params, handle)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: text, Call: call, Handle: h, UsedModel: "llm"}, nil
}

func (e *Executor) runRace(ctx context.Context, messages []Message, params Params, handle ContextHandle) (Result, error) {
	raceCtx, cancelAll := context.WithCancel(ctx)
	defer cancelAll()

	type leg struct {
		name string
		res  Result
	}
	winner := make(chan leg, 1)
	g, gctx := errgroup.WithContext(raceCtx)

	run := func(name string, backend Backend) {
		g.Go(func() error {
			text, call, h, err := collect(gctx, backend, messages, params, handle)
			if err != nil {
				return nil // the other leg may still win
			}
			if call == nil && !e.quality.Acceptable(text, 0) {
				return nil
			}
			select {
			case winner <- leg{name: name, res: Result{Text: text, Call: call, Handle: h, UsedModel: name}}:
				cancelAll() // cancel the loser; no orphaned work
			default:
			}
			return nil
		})
	}
	run("slm", e.slm)
	run("llm", e.llm)

	done := make(chan struct{})
	go func() { g.Wait(); close(done) }()

	select {
	case w := <-winner:
		return w.res, nil
	case <-done:
		select {
		case w := <-winner:
			return w.res, nil
		default:
			return Result{}, ErrRecoverable
		}
	}
}

// runDraftVerify runs the SLM only to discard its output, then returns the
// LLM's answer. It is not a latency optimization; see the Strategy doc.
func (e *Executor) runDraftVerify(ctx context.Context, messages []Message, params Params, handle ContextHandle) (Result, error) {
	_, _, _, _ = collect(ctx, e.slm, messages, params, handle) // draft is discarded, never surfaced

	text, call, h, err := collect(ctx, e.llm, messages, params, handle)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: text, Call: call, Handle: h, UsedModel: "llm"}, nil
}

// runHybridCollected approximates the Hybrid strategy's switch-over
// decision for callers that want one final string rather than a live
// token stream; RunHybridStream below is the real streaming path.
func (e *Executor) runHybridCollected(ctx context.Context, messages []Message, params Params, handle ContextHandle) (Result, error) {
	text, call, h, err := collect(ctx, e.slm, messages, params, handle)
	if err == nil && (call != nil || e.quality.Acceptable(text, 0)) {
		return Result{Text: text, Call: call, Handle: h, UsedModel: "slm"}, nil
	}
	text, call, h, err = collect(ctx, e.llm, messages, params, handle)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: text, Call: call, Handle: h, UsedModel: "llm"}, nil
}

// RunHybridStream streams SLM tokens to out until quality degrades, then
// switches to the LLM and streams its tokens instead, closing out exactly
// once. The SLM remainder is never forwarded once the switch happens.
func (e *Executor) RunHybridStream(ctx context.Context, messages []Message, params Params, handle ContextHandle, out chan<- Token) error {
	defer close(out)

	slmStream, err := e.slm.Generate(ctx, messages, params, handle)
	if err != nil {
		return e.streamLLMOnly(ctx, messages, params, handle, out)
	}
	defer slmStream.Cancel()

	var produced strings.Builder
	switched := false
	for tok := range slmStream.Tokens() {
		produced.WriteString(tok.Text)
		if !e.quality.Acceptable(produced.String(), tok.Confidence) && produced.Len() > 0 {
			switched = true
			break
		}
		select {
		case out <- tok:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if !switched {
		return nil
	}

	slmStream.Cancel() // discard the SLM remainder cleanly
	return e.streamLLMOnly(ctx, messages, params, handle, out)
}

func (e *Executor) streamLLMOnly(ctx context.Context, messages []Message, params Params, handle ContextHandle, out chan<- Token) error {
	stream, err := e.llm.Generate(ctx, messages, params, handle)
	if err != nil {
		return err
	}
	defer stream.Cancel()
	for tok := range stream.Tokens() {
		select {
		case out <- tok:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func collect(ctx context.Context, backend Backend, messages []Message, params Params, handle ContextHandle) (string, *FunctionCall, ContextHandle, error) {
	stream, err := backend.Generate(ctx, messages, params, handle)
	if err != nil {
		return "", nil, nil, err
	}
	defer stream.Cancel()

	var sb strings.Builder
	var call *FunctionCall
	for tok := range stream.Tokens() {
		sb.WriteString(tok.Text)
		if tok.FunctionCall != nil {
			call = tok.FunctionCall
		}
	}
	if ctx.Err() != nil {
		return "", nil, nil, ctx.Err()
	}
	return sb.String(), call, stream.Handle(), nil
}
