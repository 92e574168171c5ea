// Package tools implements the JSON-Schema-validated tool registry and
// invocation path: EligibilityCheck, SavingsCalculator, LeadCapture,
// AppointmentScheduler, and BranchLocator, all declared from configuration
// rather than hard-coded, plus a bounded execution-history ring.
package tools

import (
	"context"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// ContentType distinguishes the variants a tool result's content blocks
// carry.
type ContentType int

const (
	ContentText ContentType = iota
	ContentJSON
	ContentAudio
)

// Content is one block of a tool's output.
type Content struct {
	Type ContentType
	Text string
	JSON any
}

// Definition declares one tool's shape, loaded from configuration.
type Definition struct {
	Name        string
	Description string
	InputSchema  *jsonschema.Schema
	OutputSchema *jsonschema.Schema
	Timeout     time.Duration
	Category    string
	Idempotent  bool
}

// Result is a successful invocation's output.
type Result struct {
	Content []Content
}

// ErrorKind distinguishes tool failure modes.
type ErrorKind int

const (
	ErrValidation ErrorKind = iota
	ErrMalformedResult
	ErrTimeout
	ErrExecution
)

// Error is returned by Invoke on failure.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Handler executes one tool given validated input arguments.
type Handler func(ctx context.Context, args map[string]any) (Result, error)

// Registry holds tool definitions and handlers and enforces the
// invocation contract: schema validation in, schema validation out,
// per-tool timeout, bounded execution history.
type Registry struct {
	entries map[string]*registryEntry
	history *historyRing
}

type registryEntry struct {
	def     Definition
	handler Handler
}

// NewRegistry creates an empty registry with a history ring of the given
// capacity.
func NewRegistry(historyCapacity int) *Registry {
	return &Registry{
		entries: make(map[string]*registryEntry),
		history: newHistoryRing(historyCapacity),
	}
}

// Register adds a tool. Definitions come from configuration; nothing in
// this package hard-codes a tool list.
func (r *Registry) Register(def Definition, handler Handler) {
	if def.Timeout == 0 {
		def.Timeout = 30 * time.Second
	}
	r.entries[def.Name] = &registryEntry{def: def, handler: handler}
}

// Definitions returns every registered tool's declaration, e.g. for
// advertising to the LLM as its function catalog.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.def)
	}
	return out
}

// HistoryEntry is one completed invocation record.
type HistoryEntry struct {
	ToolName  string
	Args      map[string]any
	Err       *Error
	Duration  time.Duration
	StartedAt time.Time
}

// History returns the bounded execution history, oldest first.
func (r *Registry) History() []HistoryEntry {
	return r.history.all()
}
