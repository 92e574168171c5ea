package llm

import (
	"sort"
	"strings"
)

// RetrievalSnippet is the minimal shape the prompt assembler needs from a
// retrieval hit: just enough to render it as grounding context, without
// this package importing pkg/retrieval (which would create an import
// cycle back through pkg/agent).
type RetrievalSnippet struct {
	DocID string
	Text  string
}

// PromptInputs is everything §4.7 prompt assembly folds into one message
// list: a persona preamble, the current stage's guidance, the advertised
// tool catalog, the three memory tiers, retrieval snippets, and the
// current user turn. All fields are plain data so any caller can build one
// without importing pkg/agent.
type PromptInputs struct {
	Persona         string
	StageGuidance   string
	ToolCatalog     string
	EpisodicSummary string
	SemanticFacts   map[string]string
	WorkingTurns    []Message
	Retrieval       []RetrievalSnippet
	UserTurn        string
	BudgetTokens    int
}

// DefaultPromptBudgetTokens is used when a caller leaves BudgetTokens unset
// (<=0); it's a conservative context window for a voice-latency turn that
// still leaves headroom for the generated response.
const DefaultPromptBudgetTokens = 3000

// AssemblePrompt builds the full message list for one generation call and
// enforces the documented context-window budget: if the assembled prompt
// is over budget, it drops the oldest working turns first, then retrieval
// snippets (lowest-ranked, i.e. last in the list, first), and never drops
// the system preamble (persona + stage guidance + tool catalog + compressed
// memory). Token counts are computed with EstimateMessagesTokens, which is
// grapheme-aware rather than byte-based so Devanagari text isn't
// miscounted by its byte length.
func AssemblePrompt(in PromptInputs) []Message {
	budget := in.BudgetTokens
	if budget <= 0 {
		budget = DefaultPromptBudgetTokens
	}

	working := make([]Message, len(in.WorkingTurns))
	copy(working, in.WorkingTurns)
	retrieval := make([]RetrievalSnippet, len(in.Retrieval))
	copy(retrieval, in.Retrieval)

	for {
		msgs := buildMessages(in, working, retrieval)
		if EstimateMessagesTokens(msgs) <= budget {
			return msgs
		}
		switch {
		case len(working) > 0:
			working = working[1:]
		case len(retrieval) > 0:
			retrieval = retrieval[:len(retrieval)-1]
		default:
			// Nothing droppable remains; the preamble is sent as-is even
			// over budget rather than silently truncated, since the
			// system preamble must never be dropped.
			return msgs
		}
	}
}

func buildMessages(in PromptInputs, working []Message, retrieval []RetrievalSnippet) []Message {
	msgs := make([]Message, 0, len(working)+4)

	var system strings.Builder
	if in.Persona != "" {
		system.WriteString(in.Persona)
	}
	if in.StageGuidance != "" {
		writeSection(&system, "Current objective", in.StageGuidance)
	}
	if in.ToolCatalog != "" {
		writeSection(&system, "Available tools", in.ToolCatalog)
	}
	if in.EpisodicSummary != "" {
		writeSection(&system, "Earlier in this call", in.EpisodicSummary)
	}
	if len(in.SemanticFacts) > 0 {
		writeSection(&system, "Known facts", formatFacts(in.SemanticFacts))
	}
	if len(retrieval) > 0 {
		writeSection(&system, "Relevant reference material", formatSnippets(retrieval))
	}
	if system.Len() > 0 {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system.String()})
	}

	msgs = append(msgs, working...)

	if in.UserTurn != "" {
		msgs = append(msgs, Message{Role: RoleUser, Content: in.UserTurn})
	}

	return msgs
}

func writeSection(b *strings.Builder, title, body string) {
	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	b.WriteString(title)
	b.WriteString(":\n")
	b.WriteString(body)
}

func formatFacts(facts map[string]string) string {
	names := make([]string, 0, len(facts))
	for k := range facts {
		names = append(names, k)
	}
	sort.Strings(names)
	var b strings.Builder
	for i, k := range names {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(facts[k])
	}
	return b.String()
}

func formatSnippets(snippets []RetrievalSnippet) string {
	var b strings.Builder
	for i, s := range snippets {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(s.Text)
	}
	return b.String()
}
