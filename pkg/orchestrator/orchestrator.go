// Package orchestrator owns the per-session event loop: routing audio
// frames transport → VAD → STT, driving the agent FSM on end-of-turn,
// speaking the reply through TTS once generation completes, and handling
// barge-in.
package orchestrator

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goldvox/agentcore/pkg/agent"
	"github.com/goldvox/agentcore/pkg/ai/llm"
	"github.com/goldvox/agentcore/pkg/ai/stt"
	"github.com/goldvox/agentcore/pkg/ai/tts"
	"github.com/goldvox/agentcore/pkg/ai/vad"
	"github.com/goldvox/agentcore/pkg/audio"
	"github.com/goldvox/agentcore/pkg/observe"
	"github.com/goldvox/agentcore/pkg/retrieval"
	"github.com/goldvox/agentcore/pkg/tools"
	"github.com/goldvox/agentcore/pkg/turn"

	"github.com/google/jsonschema-go/jsonschema"
)

// personaPreamble opens every assembled prompt; it's the fixed part of
// §4.7's "persona preamble" section.
const personaPreamble = "You are a helpful, concise voice sales agent for a gold-loan company. " +
	"Match the caller's language (Hindi, Hinglish, or English) and keep responses short enough to speak aloud naturally."

// maxToolHops bounds how many tool-call/re-generate round trips one
// assistant turn may take before it is forced to answer in text, so a
// model that keeps requesting tools can never hang the turn.
const maxToolHops = 3

// AudioSink receives outbound PCM destined for the transport.
type AudioSink interface {
	SendAudio(*audio.Frame) error
}

// EventSink receives outbound control-channel events (transcripts,
// responses, status).
type EventSink interface {
	SendEvent(kind string, payload any) error
}

// Config wires every component a session's event loop drives.
type Config struct {
	VAD          vad.VAD
	STT          stt.STT
	TurnDetector *turn.Detector
	LLM          *llm.Executor
	// Strategy selects which of Executor's four strategies drives each
	// turn (spec §4.7/§6's `llm.strategy`); zero value is llm.SLMFirst,
	// the spec's default. Hybrid's tokens are consumed as they arrive, but
	// for every strategy the reply text is passed to TTS only after
	// generation ends.
	Strategy llm.Strategy
	TTS      tts.TTS
	Session  *agent.Session

	// Tools is consulted per turn for the current stage's allowed tools
	// (agent.StageDefinition.AllowedTools); nil disables function calling
	// entirely.
	Tools   *tools.Registry
	Metrics *observe.Metrics

	// Retriever runs end-of-turn dense+sparse+rerank search; nil disables
	// retrieval entirely (no snippets are added to the prompt).
	Retriever *retrieval.Retriever
	// Prefetch, if set, is consulted first on end-of-turn so a result
	// speculatively computed from an interim STT partial can be reused
	// instead of re-running Retriever.Search from scratch.
	Prefetch *retrieval.PrefetchCache
	// SessionID keys the prefetch cache and is passed through to every
	// retrieval.Query.
	SessionID string
	// PromptBudgetTokens overrides llm.DefaultPromptBudgetTokens when > 0.
	PromptBudgetTokens int

	AudioOut AudioSink
	Events   EventSink

	Language string
}

// Session drives one conversation's event loop. It owns the single-
// in-flight-assistant-response invariant and barge-in handling.
type Session struct {
	cfg Config

	gate *AudioGate

	mu           sync.Mutex
	sttStream    stt.Stream
	silenceSince time.Time
	speaking     bool // user is currently speaking, per VAD

	responding atomic.Bool // true while an assistant response is in flight
	ttsStream  atomic.Pointer[tts.Stream]
	llmCancel  atomic.Pointer[context.CancelFunc]

	heardSoFar atomic.Pointer[string]

	shutdownOnce sync.Once
	done         chan struct{}
}

// NewSession builds an orchestrator session ready to run.
func NewSession(cfg Config) *Session {
	return &Session{
		cfg:  cfg,
		gate: NewAudioGate(),
		done: make(chan struct{}),
	}
}

// Run drives the session until ctx is cancelled or Close is called. No
// panic from any component escapes this loop; errors are logged and the
// loop continues unless the error is unrecoverable for the whole session.
func (s *Session) Run(ctx context.Context, micIn <-chan *audio.Frame) error {
	stream, err := s.cfg.STT.NewStream(ctx, stt.StreamConfig{Lang: stt.Language(s.cfg.Language)})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sttStream = stream
	s.mu.Unlock()

	sttEvents := stream.Events()

	safely := func(handle func()) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("recovered panic in session event loop", slog.Any("panic", r))
			}
		}()
		handle()
	}

	for {
		select {
		case <-ctx.Done():
			s.Close()
			return ctx.Err()
		case <-s.done:
			return nil
		case frame, ok := <-micIn:
			if !ok {
				return nil
			}
			safely(func() { s.handleFrame(ctx, frame) })
		case ev, ok := <-sttEvents:
			if !ok {
				return nil
			}
			safely(func() { s.handleSTTEvent(ctx, ev) })
		}
	}
}

func (s *Session) handleFrame(ctx context.Context, frame *audio.Frame) {
	// VAD always runs, even during TTS playback: its enter-hangover already
	// debounces transient echo spikes, and genuine barge-in must still be
	// detected while the assistant is speaking.
	vadEvent, err := s.cfg.VAD.Push(frame)
	if err != nil {
		slog.Warn("vad push failed", slog.Any("error", err))
		return
	}
	if vadEvent != nil {
		switch vadEvent.Type {
		case vad.SpeechStart:
			s.mu.Lock()
			s.speaking = true
			s.mu.Unlock()
			if s.responding.Load() {
				s.bargeIn(ctx)
			}
		case vad.SpeechEnd:
			s.mu.Lock()
			s.speaking = false
			s.silenceSince = time.Now()
			s.mu.Unlock()
		}
	}

	// Echo guard: while TTS plays the gate is open (discarding) until a
	// barge-in closes it, and frames are not fed to STT, so playback audio never gets transcribed
	// as if the user said it.
	if s.gate.ShouldDiscardAudio() {
		return
	}

	s.mu.Lock()
	stream := s.sttStream
	s.mu.Unlock()
	if stream != nil {
		_ = stream.Push(frame)
	}
}

func (s *Session) handleSTTEvent(ctx context.Context, ev stt.Event) {
	if ev.Type == stt.Interim {
		partial := ev.Text
		s.heardSoFar.Store(&partial)
		if s.cfg.Prefetch != nil {
			s.cfg.Prefetch.PrefetchPartial(ctx, s.cfg.SessionID, ev.Text, len(strings.Fields(ev.Text)))
		}
	}
	if ev.Type != stt.Final {
		return
	}

	s.mu.Lock()
	silenceSince := time.Since(s.silenceSince)
	s.mu.Unlock()

	dec, err := s.cfg.TurnDetector.Evaluate(ctx, silenceSince, turn.ChatContext{
		PartialText: ev.Text,
		Language:    string(ev.Language),
	})
	if err != nil || !dec.EndOfTurn {
		return
	}

	s.cfg.Events.SendEvent("transcript", ev.Text)
	s.runAssistantTurn(ctx, ev.Text)
}

// bargeIn implements the barge-in contract: signal TTS to cancel after the
// current word, cancel in-flight LLM generation, discard not-yet-spoken
// text, and leave a truncation marker in conversation history reflecting
// only what was actually heard.
func (s *Session) bargeIn(ctx context.Context) {
	if ttsPtr := s.ttsStream.Load(); ttsPtr != nil {
		(*ttsPtr).CancelAfterCurrentWord()
	}
	if cancelPtr := s.llmCancel.Load(); cancelPtr != nil {
		(*cancelPtr)()
	}

	heard := ""
	if p := s.heardSoFar.Load(); p != nil {
		heard = *p
	}
	s.cfg.Session.TruncateLastAssistantTurn(heard)
	s.cfg.Events.SendEvent("status", "interrupted")

	s.gate.SetTTSPlaying(false)
	s.responding.Store(false)
}

// runAssistantTurn enforces the single-in-flight-assistant-response
// invariant via an atomic compare-and-swap, then drives the FSM, LLM
// streaming executor, and TTS in sequence.
func (s *Session) runAssistantTurn(ctx context.Context, transcript string) {
	if !s.responding.CompareAndSwap(false, true) {
		slog.Warn("dropped turn: assistant response already in flight")
		return
	}

	turnResult := s.cfg.Session.ProcessUserTurn(ctx, transcript)
	if len(turnResult.MissingSlots) > 0 || len(turnResult.MissingIntents) > 0 {
		slog.Debug("stage requirements not yet satisfied",
			slog.Any("missing_intents", turnResult.MissingIntents),
			slog.Any("missing_slots", turnResult.MissingSlots))
	}

	llmCtx, cancel := context.WithCancel(ctx)
	s.llmCancel.Store(&cancel)
	defer cancel()

	functions := s.allowedFunctions()
	snippets := s.retrievalSnippets(llmCtx, transcript)

	s.gate.SetTTSPlaying(true)
	defer func() {
		s.gate.SetTTSPlaying(false)
		s.responding.Store(false)
	}()

	var full string
	for hop := 0; hop <= maxToolHops; hop++ {
		messages := llm.AssemblePrompt(llm.PromptInputs{
			Persona:         personaPreamble,
			StageGuidance:   s.cfg.Session.StageDefinition().GuidancePrompt,
			ToolCatalog:     catalogText(functions),
			EpisodicSummary: s.cfg.Session.EpisodicSummary(),
			SemanticFacts:   factValues(s.cfg.Session.SemanticFacts()),
			WorkingTurns:    s.cfg.Session.WorkingTurns(),
			Retrieval:       snippets,
			BudgetTokens:    s.cfg.PromptBudgetTokens,
		})
		params := llm.Params{}
		if hop < maxToolHops {
			params.Functions = functions
		}

		var call *llm.FunctionCall
		var text string
		if s.cfg.Strategy == llm.Hybrid {
			tokenCh := make(chan llm.Token, 32)
			go func() {
				// RunHybridStream closes tokenCh itself on return.
				if err := s.cfg.LLM.RunHybridStream(llmCtx, messages, params, nil, tokenCh); err != nil {
					slog.Warn("llm generation failed", slog.Any("error", err))
				}
			}()

			for tok := range tokenCh {
				if tok.FunctionCall != nil {
					call = tok.FunctionCall
					continue
				}
				if tok.Text == "" {
					continue
				}
				text += tok.Text
			}
		} else {
			// SLMFirst, Race, and DraftVerify run to completion rather than
			// streaming live; the configured strategy (spec §4.7/§6) is
			// dispatched here instead of always racing/hybridizing.
			result, err := s.cfg.LLM.Run(llmCtx, s.cfg.Strategy, messages, params, nil)
			if err != nil {
				slog.Warn("llm generation failed", slog.Any("error", err))
			}
			text = result.Text
			call = result.Call
		}

		if call == nil {
			full = text
			if text != "" {
				s.streamToTTS(ctx, text)
			}
			break
		}

		s.invokeTool(llmCtx, *call)
	}

	s.cfg.Session.RecordAssistantTurn(ctx, full)
	s.cfg.Events.SendEvent("response", full)
}

// allowedFunctions advertises the current stage's allowed tools to the
// model, per agent.StageDefinition.AllowedTools. Returns nil if no tool
// registry is configured or the stage allows none.
func (s *Session) allowedFunctions() []llm.FunctionDefinition {
	if s.cfg.Tools == nil {
		return nil
	}
	allowed := make(map[string]bool)
	for _, name := range s.cfg.Session.StageDefinition().AllowedTools {
		allowed[name] = true
	}
	if len(allowed) == 0 {
		return nil
	}

	var out []llm.FunctionDefinition
	for _, def := range s.cfg.Tools.Definitions() {
		if !allowed[def.Name] {
			continue
		}
		out = append(out, llm.FunctionDefinition{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  schemaToMap(def.InputSchema),
		})
	}
	return out
}

// retrievalSnippets resolves the retrieval hits grounding the current
// turn: a prefetch hit from the partial STT transcript is reused if it's
// still close enough (see retrieval.PrefetchCache.Resolve), otherwise
// Search is re-run against the finalized transcript. Returns nil with no
// Retriever configured.
func (s *Session) retrievalSnippets(ctx context.Context, transcript string) []llm.RetrievalSnippet {
	if s.cfg.Retriever == nil {
		return nil
	}

	var hits []retrieval.FusedHit
	if s.cfg.Prefetch != nil {
		if cached, ok := s.cfg.Prefetch.Resolve(ctx, s.cfg.SessionID, transcript); ok {
			hits = cached
		}
	}
	if hits == nil {
		var err error
		hits, err = s.cfg.Retriever.Search(ctx, retrieval.Query{SessionID: s.cfg.SessionID, Text: transcript, TopK: 50})
		if err != nil {
			slog.Warn("retrieval search failed", slog.Any("error", err))
			return nil
		}
	}

	out := make([]llm.RetrievalSnippet, len(hits))
	for i, h := range hits {
		out[i] = llm.RetrievalSnippet{DocID: h.DocID, Text: h.Text}
	}
	return out
}

// catalogText renders the advertised function catalog as the tool-catalog
// section of the prompt.
func catalogText(functions []llm.FunctionDefinition) string {
	if len(functions) == 0 {
		return ""
	}
	var b strings.Builder
	for i, f := range functions {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Description)
	}
	return b.String()
}

// factValues flattens a session's semantic facts to the plain
// map[string]string the prompt assembler expects.
func factValues(facts map[string]agent.SemanticFact) map[string]string {
	out := make(map[string]string, len(facts))
	for k, f := range facts {
		out[k] = f.Value
	}
	return out
}

// invokeTool runs one model-requested tool call and records its result (or
// failure) back into the session as a tool-role message, so the next
// generation call in the hop loop sees it in context.
func (s *Session) invokeTool(ctx context.Context, call llm.FunctionCall) {
	start := time.Now()
	var args map[string]any
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		s.cfg.Session.RecordToolTurn(ctx, call.Name, `{"error":"malformed arguments"}`)
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.RecordToolCall(ctx, call.Name, "malformed_args")
		}
		return
	}

	res, toolErr := s.cfg.Tools.Invoke(ctx, call.Name, args)
	if s.cfg.Metrics != nil {
		status := "ok"
		if toolErr != nil {
			status = "error"
		}
		s.cfg.Metrics.RecordToolCall(ctx, call.Name, status)
		s.cfg.Metrics.ToolExecutionLatency.Record(ctx, time.Since(start).Seconds())
	}

	if toolErr != nil {
		s.cfg.Session.RecordToolTurn(ctx, call.Name, toolErr.Error())
		return
	}
	s.cfg.Session.RecordToolTurn(ctx, call.Name, resultToText(res))
}

// resultToText flattens a tool Result's content blocks into one string for
// the tool-role message fed back to the model; JSON blocks are re-encoded
// verbatim rather than summarized.
func resultToText(res tools.Result) string {
	var out string
	for _, c := range res.Content {
		switch c.Type {
		case tools.ContentText:
			out += c.Text
		case tools.ContentJSON:
			if raw, err := json.Marshal(c.JSON); err == nil {
				out += string(raw)
			}
		}
	}
	return out
}

// schemaToMap converts a tool's JSON Schema to the plain map[string]any
// shape llm.FunctionDefinition.Parameters expects. Returns nil for an
// undeclared schema rather than an empty map, so a backend that checks
// len(Parameters) sees "no schema" distinctly from "empty schema".
func schemaToMap(schema *jsonschema.Schema) map[string]any {
	if schema == nil {
		return nil
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// frameBuffer accumulates TTS PCM chunks (20-40ms, arbitrary length) into
// fixed audio.FrameSamples-sized frames for the transport, since TTS and
// the wire format use different strides.
type frameBuffer struct {
	pending []float32
}

func (b *frameBuffer) push(samples []float32) [][]float32 {
	b.pending = append(b.pending, samples...)
	var frames [][]float32
	for len(b.pending) >= audio.FrameSamples {
		frames = append(frames, append([]float32(nil), b.pending[:audio.FrameSamples]...))
		b.pending = b.pending[audio.FrameSamples:]
	}
	return frames
}

func (s *Session) streamToTTS(ctx context.Context, text string) {
	stream, err := s.cfg.TTS.Synthesize(ctx, tts.Request{Text: text, Language: s.cfg.Language})
	if err != nil {
		slog.Warn("tts synthesize failed", slog.Any("error", err))
		return
	}
	s.ttsStream.Store(&stream)

	var buf frameBuffer
	for chunk := range stream.Chunks() {
		for _, samples := range buf.push(chunk.Samples) {
			frame, err := audio.NewFrame(samples, 0)
			if err != nil {
				continue
			}
			if err := s.cfg.AudioOut.SendAudio(frame); err != nil {
				return
			}
		}
	}
}

// Close propagates a session-wide shutdown: components drain/cancel
// deterministically and no panic escapes.
func (s *Session) Close() {
	s.shutdownOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.sttStream != nil {
			_ = s.sttStream.CloseSend()
		}
	})
}
