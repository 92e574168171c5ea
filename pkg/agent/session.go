package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/goldvox/agentcore/pkg/ai/llm"
)

// Session is the per-conversation aggregate: current stage, slot store,
// intent history, and the three-tier memory. It owns all of this state
// exclusively, per the ownership rule that a Session's FSM and memory are
// never shared across conversations.
type Session struct {
	mu sync.Mutex

	graph   StageGraph
	stage   Stage
	slots   *SlotStore
	memory  *Memory
	intents *IntentClassifier

	seenIntents map[string]bool
	language    string
	turnCount   int
}

// NewSession builds a session entering at StageGreeting, per the declared
// entry state.
func NewSession(graph StageGraph, intents *IntentClassifier, summarize Summarizer, language string) *Session {
	return &Session{
		graph:       graph,
		stage:       StageGreeting,
		slots:       NewSlotStore(),
		memory:      NewMemory(summarize),
		intents:     intents,
		seenIntents: make(map[string]bool),
		language:    language,
	}
}

func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// Turn is the outcome of processing one user utterance: the classified
// intent, any slots it yielded, and whether it advanced the stage.
type Turn struct {
	Intent         Intent
	ExtractedSlots []Slot
	StageBefore    Stage
	StageAfter     Stage
	MissingIntents []string
	MissingSlots   []string
}

// ProcessUserTurn classifies intent, extracts slots, records the turn in
// memory, and attempts the stage's declared forward transition if its
// requirements are now satisfied. It never forces a transition: if
// requirements aren't met, the caller gets back exactly what's missing so
// the agent can elicit it.
func (s *Session) ProcessUserTurn(ctx context.Context, transcript string) Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turnCount++
	turnID := s.turnCount

	intent := s.intents.Classify(transcript, turnID)
	s.seenIntents[intent.Name] = true

	extractor := NewSlotExtractor()
	slots := extractor.ExtractSlots(transcript, turnID)
	for _, slot := range slots {
		s.slots.Set(slot)
	}

	s.memory.Append(ctx, ConversationTurn{
		Role:      llm.RoleUser,
		Content:   transcript,
		Timestamp: time.Now(),
	})

	before := s.stage
	missingIntents, missingSlots := s.graph.Satisfied(s.stage, s.seenIntents, s.slots)

	result := Turn{
		Intent:         intent,
		ExtractedSlots: slots,
		StageBefore:    before,
		StageAfter:     before,
		MissingIntents: missingIntents,
		MissingSlots:   missingSlots,
	}

	if len(missingIntents) == 0 && len(missingSlots) == 0 {
		if next, ok := s.nextStage(before); ok {
			s.stage = next
			result.StageAfter = next
		}
	}

	return result
}

// nextStage picks the declared forward transition out of `from`. When a
// stage has more than one legal outbound target (e.g. Discovery can go to
// ObjectionHandling or Qualification), the caller is expected to have
// already driven that branch through TransitionTo with intent-specific
// logic; nextStage here only auto-advances stages with exactly one legal
// target, since anything else can't be an unambiguous default.
func (s *Session) nextStage(from Stage) (Stage, bool) {
	targets := legalTransitions[from]
	if len(targets) == 1 {
		return targets[0], true
	}
	return from, false
}

// TransitionTo attempts an explicit, caller-chosen stage change, e.g. when
// the orchestrator decides the user raised an objection. It enforces
// invariant 5: an illegal transition is rejected and logged, never
// silently applied.
func (s *Session) TransitionTo(to Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !CanTransition(s.stage, to) {
		slog.Warn("rejected illegal stage transition",
			slog.String("from", s.stage.String()),
			slog.String("to", to.String()))
		return fmt.Errorf("illegal stage transition: %s -> %s", s.stage, to)
	}
	s.stage = to
	return nil
}

// RecordAssistantTurn appends the agent's reply to working memory.
func (s *Session) RecordAssistantTurn(ctx context.Context, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory.Append(ctx, ConversationTurn{Role: llm.RoleAssistant, Content: content, Timestamp: time.Now()})
}

// RecordToolTurn appends a tool invocation's result to working memory as a
// RoleTool message, so the next generation call sees it in context.
func (s *Session) RecordToolTurn(ctx context.Context, name, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory.Append(ctx, ConversationTurn{Role: llm.RoleTool, Name: name, Content: content, Timestamp: time.Now()})
}

// TruncateLastAssistantTurn replaces the most recent assistant turn's
// content with whatever was actually heard before a barge-in cut it off,
// per the orchestrator's truncation-marker requirement.
func (s *Session) TruncateLastAssistantTurn(heardContent string) {
	s.memory.TruncateLastAssistant(heardContent + " [interrupted]")
}

// Messages returns the LLM-ready message history for the current turn,
// with no persona, stage guidance, or retrieval context layered in. It
// exists for callers (and tests) that only need the raw conversation
// history; the orchestrator builds the full prompt from WorkingTurns,
// EpisodicSummary, and SemanticFacts via llm.AssemblePrompt instead.
func (s *Session) Messages() []llm.Message {
	return s.memory.BuildMessages()
}

// WorkingTurns returns the verbatim recency window as LLM messages, oldest
// first, for the prompt assembler to place after the system preamble.
func (s *Session) WorkingTurns() []llm.Message {
	working := s.memory.Working()
	msgs := make([]llm.Message, len(working))
	for i, t := range working {
		msgs[i] = llm.Message{Role: t.Role, Name: t.Name, Content: t.Content}
	}
	return msgs
}

// EpisodicSummary returns the concatenation of every episodic summary
// produced so far, oldest first, for the prompt assembler to fold into the
// compressed-memory section of the prompt.
func (s *Session) EpisodicSummary() string {
	episodic := s.memory.Episodic()
	if len(episodic) == 0 {
		return ""
	}
	out := episodic[0]
	for _, e := range episodic[1:] {
		out += " — " + e
	}
	return out
}

// SemanticFacts returns a snapshot of every durable fact recorded so far.
func (s *Session) SemanticFacts() map[string]SemanticFact {
	return s.memory.Facts()
}

// StageDefinition returns the current stage's configured guidance prompt
// and allowed tools.
func (s *Session) StageDefinition() StageDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph[s.stage]
}

// Slots returns a snapshot of every slot captured so far.
func (s *Session) Slots() map[string]Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots.All()
}

// SetSemanticFact records a durable fact (name, city, loan amount) in the
// session's semantic memory tier.
func (s *Session) SetSemanticFact(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory.SetFact(key, value)
}

func (s *Session) Language() string {
	return s.language
}
