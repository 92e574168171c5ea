package agent

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rivo/uniseg"

	"github.com/goldvox/agentcore/pkg/ai/llm"
)

// Role mirrors llm.Role so a ConversationTurn can round-trip straight into
// an llm.Message without this package importing llm for every call site.
type Role = llm.Role

// ConversationTurn is one entry in a session's verbatim history. Name is
// set only for Role == llm.RoleTool, carrying the tool name per the
// function-calling message shape.
type ConversationTurn struct {
	Role      Role
	Name      string
	Content   string
	Timestamp time.Time
	Tokens    int
}

const (
	workingMemoryCapacity   = 8 // N in the spec's "last N≈8 turns verbatim"
	summarizeBatchSize      = 4 // M: how many of the oldest turns get folded into one episodic entry
	episodicSummaryMaxRunes = 600
)

// SemanticFact is one durable extracted fact (name, city, loan amount...),
// distinct from a per-turn Slot in that it survives for the life of the
// session regardless of which turn produced it.
type SemanticFact struct {
	Key   string
	Value string
}

// Summarizer condenses a batch of working-memory turns into one episodic
// summary, normally backed by a background LLM call.
type Summarizer func(ctx context.Context, turns []ConversationTurn) (string, error)

// Memory is the three-tier store a Session keeps: Working (verbatim
// recency window), Episodic (LLM-or-fallback summaries of what aged out of
// Working), and Semantic (extracted durable facts). Memory guards its own
// state with an internal mutex, distinct from Session's, so that appending
// a turn and kicking off a background summary never requires a caller to
// hold any lock across the summarizer's LLM call.
type Memory struct {
	mu sync.Mutex

	working  []ConversationTurn
	episodic []string
	semantic map[string]SemanticFact

	summarize  Summarizer
	summarized bool // true while a background summarization is in flight
}

// NewMemory builds an empty three-tier memory. summarize may be nil, in
// which case the deterministic fallback condenser is always used.
func NewMemory(summarize Summarizer) *Memory {
	return &Memory{semantic: make(map[string]SemanticFact), summarize: summarize}
}

// Append adds a turn to working memory. Once the window exceeds
// workingMemoryCapacity (the summarization watermark), it carves off the
// oldest batch and summarizes it in a background goroutine — Append itself
// never blocks on the summarizer, per the rule that the foreground turn
// path must never wait on an LLM call, and m.mu is never held across that
// call.
func (m *Memory) Append(ctx context.Context, turn ConversationTurn) {
	m.mu.Lock()
	m.working = append(m.working, turn)

	if len(m.working) <= workingMemoryCapacity || m.summarized {
		m.mu.Unlock()
		return
	}

	batch := summarizeBatchSize
	toSummarize := make([]ConversationTurn, batch)
	copy(toSummarize, m.working[:batch])
	m.working = m.working[batch:]
	m.summarized = true
	m.mu.Unlock()

	go m.runBackgroundSummarize(context.WithoutCancel(ctx), toSummarize)
}

// runBackgroundSummarize produces the episodic summary for a batch of
// aged-out turns off the foreground path, then appends it under lock. It
// is always run in its own goroutine; it never holds m.mu while awaiting
// the summarizer.
func (m *Memory) runBackgroundSummarize(ctx context.Context, turns []ConversationTurn) {
	summary := m.summarizeWithFallback(ctx, turns)

	m.mu.Lock()
	m.episodic = append(m.episodic, summary)
	m.summarized = false
	m.mu.Unlock()
}

// summarizeWithFallback tries the configured LLM summarizer and falls back
// to a deterministic condenser if it is unavailable, errors, or is too
// slow. The fallback is explicitly a fallback: it never runs when the
// primary path succeeds in time. It holds no lock: callers must not call
// this while holding m.mu.
func (m *Memory) summarizeWithFallback(ctx context.Context, turns []ConversationTurn) string {
	if m.summarize == nil {
		return deterministicCondense(turns)
	}

	const summarizeTimeout = 1500 * time.Millisecond
	callCtx, cancel := context.WithTimeout(ctx, summarizeTimeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		text, err := m.summarize(callCtx, turns)
		done <- outcome{text, err}
	}()

	select {
	case <-callCtx.Done():
		return deterministicCondense(turns)
	case out := <-done:
		if out.err != nil || strings.TrimSpace(out.text) == "" {
			return deterministicCondense(turns)
		}
		return truncateGraphemes(out.text, episodicSummaryMaxRunes)
	}
}

// deterministicCondense is the fallback path: it concatenates each turn's
// role and a grapheme-safe prefix of its content. It never truncates
// mid-grapheme, even for combining-mark-heavy scripts like Devanagari.
func deterministicCondense(turns []ConversationTurn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(string(t.Role))
		b.WriteString(": ")
		b.WriteString(truncateGraphemes(t.Content, 120))
	}
	return truncateGraphemes(b.String(), episodicSummaryMaxRunes)
}

// truncateGraphemes cuts s to at most maxClusters grapheme clusters,
// never splitting a cluster (e.g. a Devanagari consonant plus its matras)
// across the boundary.
func truncateGraphemes(s string, maxClusters int) string {
	if maxClusters <= 0 {
		return ""
	}
	gr := uniseg.NewGraphemes(s)
	var b strings.Builder
	count := 0
	for gr.Next() {
		if count >= maxClusters {
			break
		}
		b.WriteString(gr.Str())
		count++
	}
	return b.String()
}

// SetFact records or overwrites a durable semantic fact.
func (m *Memory) SetFact(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.semantic[key] = SemanticFact{Key: key, Value: value}
}

func (m *Memory) Fact(key string) (SemanticFact, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.semantic[key]
	return f, ok
}

// Facts returns a snapshot of every semantic fact recorded so far.
func (m *Memory) Facts() map[string]SemanticFact {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]SemanticFact, len(m.semantic))
	for k, v := range m.semantic {
		out[k] = v
	}
	return out
}

// Working returns the verbatim recency window, oldest first.
func (m *Memory) Working() []ConversationTurn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ConversationTurn, len(m.working))
	copy(out, m.working)
	return out
}

// Episodic returns every summary produced so far, oldest first.
func (m *Memory) Episodic() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.episodic))
	copy(out, m.episodic)
	return out
}

// TruncateLastAssistant replaces the most recent assistant turn's content,
// for when a barge-in cuts a response short and the caller needs to
// record only what was actually heard.
func (m *Memory) TruncateLastAssistant(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.working) - 1; i >= 0; i-- {
		if m.working[i].Role == llm.RoleAssistant {
			m.working[i].Content = content
			return
		}
	}
}

// BuildMessages assembles the LLM-ready message list: episodic summaries
// folded into one system-style context message, followed by the verbatim
// working-memory turns in order.
func (m *Memory) BuildMessages() []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buildMessagesLocked()
}

func (m *Memory) buildMessagesLocked() []llm.Message {
	msgs := make([]llm.Message, 0, len(m.working)+1)
	if len(m.episodic) > 0 {
		msgs = append(msgs, llm.Message{
			Role:    llm.RoleSystem,
			Content: "Earlier in this call: " + strings.Join(m.episodic, " — "),
		})
	}
	for _, t := range m.working {
		msgs = append(msgs, llm.Message{Role: t.Role, Name: t.Name, Content: t.Content})
	}
	return msgs
}
