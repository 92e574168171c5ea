// Package llm implements the streaming LLM backend contract and the
// speculative-execution strategies (SLM-First, Race, Hybrid, and a
// documented Draft-Verify limitation) that pick between a small and large
// model per turn.
package llm

import (
	"context"

	"github.com/goldvox/agentcore/pkg/ai"
)

var (
	// ErrRecoverable indicates a temporary LLM failure that may succeed if retried.
	ErrRecoverable = ai.ErrRecoverable
	// ErrFatal indicates a permanent LLM failure that will not succeed if retried.
	ErrFatal = ai.ErrFatal
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn in the prompt.
type Message struct {
	Role    Role
	Content string
	Name    string // tool name, for Role == RoleTool
}

// FunctionDefinition advertises one callable tool to the model.
type FunctionDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Params controls one generation call.
type Params struct {
	MaxTokens   int
	Temperature float32
	TopP        float32
	Functions   []FunctionDefinition
	// KeepAlive is how long the backend should keep model weights resident
	// after this call, for backends that support it.
	KeepAlive int64 // seconds, 0 = backend default
}

// ContextHandle is an opaque KV-cache continuation token returned by a
// generation and re-supplied on the next call of the same session. The
// OpenAI backend (a stateless HTTP API) always returns nil and ignores it
// on input; it exists so a future local-inference backend can use it
// without changing this interface.
type ContextHandle any

// Token is one streamed unit of output.
type Token struct {
	Text         string
	FunctionCall *FunctionCall
	FinishReason string
	Confidence   float32 // 0 if the backend does not expose token-level confidence
}

// FunctionCall is a tool invocation requested by the model.
type FunctionCall struct {
	Name      string
	Arguments string // JSON-encoded
}

// Capabilities describes what a backend supports.
type Capabilities struct {
	SupportsFunctions bool
	MaxTokens         int
	Models            []string
}

// Backend is the streaming contract every provider implements.
type Backend interface {
	// Generate streams tokens for messages. The returned Stream's Cancel
	// must stop the underlying request promptly; no orphaned work may
	// continue after Cancel returns.
	Generate(ctx context.Context, messages []Message, params Params, handle ContextHandle) (Stream, error)
	Capabilities() Capabilities
}

// Stream is one in-flight generation.
type Stream interface {
	Tokens() <-chan Token
	// Handle returns the context handle for session continuation, valid
	// only after the stream has closed.
	Handle() ContextHandle
	Cancel()
}
