package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIBackend implements Backend against the OpenAI chat completions API.
// Because that API is stateless, Handle always returns nil: there is no
// KV-cache to continue across calls.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

// NewOpenAIBackend builds a backend for the given model id. The same type
// is used for both the "LLM" leg and, with a smaller model id such as
// "gpt-4o-mini", the "SLM" leg of the speculative executor.
func NewOpenAIBackend(apiKey, model string) *OpenAIBackend {
	return &OpenAIBackend{client: openai.NewClient(apiKey), model: model}
}

func (b *OpenAIBackend) Generate(ctx context.Context, messages []Message, params Params, handle ContextHandle) (Stream, error) {
	req := openai.ChatCompletionRequest{
		Model:       b.model,
		Messages:    toOpenAIMessages(messages),
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		Stream:      true,
	}
	if len(params.Functions) > 0 {
		req.Tools = toOpenAITools(params.Functions)
	}

	sctx, cancel := context.WithCancel(ctx)
	streamResp, err := b.client.CreateChatCompletionStream(sctx, req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: create stream: %v", ErrRecoverable, err)
	}

	s := &openaiStream{
		resp:   streamResp,
		tokens: make(chan Token, 16),
		cancel: cancel,
	}
	go s.run()
	return s, nil
}

func (b *OpenAIBackend) Capabilities() Capabilities {
	return Capabilities{
		SupportsFunctions: true,
		MaxTokens:         128000,
		Models:            []string{"gpt-4o", "gpt-4o-mini", "gpt-4-turbo"},
	}
}

type openaiStream struct {
	resp   *openai.ChatCompletionStream
	tokens chan Token
	cancel context.CancelFunc
}

func (s *openaiStream) run() {
	defer close(s.tokens)
	defer s.resp.Close()
	for {
		chunk, err := s.resp.Recv()
		if err != nil {
			return
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		tok := Token{
			Text:         choice.Delta.Content,
			FinishReason: string(choice.FinishReason),
		}
		if len(choice.Delta.ToolCalls) > 0 {
			tc := choice.Delta.ToolCalls[0]
			tok.FunctionCall = &FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			}
		}
		s.tokens <- tok
		if choice.FinishReason != "" {
			return
		}
	}
}

func (s *openaiStream) Tokens() <-chan Token { return s.tokens }
func (s *openaiStream) Handle() ContextHandle { return nil }
func (s *openaiStream) Cancel()               { s.cancel() }

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
			Name:    m.Name,
		}
	}
	return out
}

func toOpenAITools(fns []FunctionDefinition) []openai.Tool {
	out := make([]openai.Tool, len(fns))
	for i, fn := range fns {
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  fn.Parameters,
			},
		}
	}
	return out
}

var _ Backend = (*OpenAIBackend)(nil)
