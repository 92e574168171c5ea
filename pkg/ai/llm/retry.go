package llm

import (
	"context"
	"math/rand"
	"time"

	"github.com/goldvox/agentcore/pkg/ai"
)

// RetryingBackend wraps a Backend with exponential backoff on transport
// errors, capped at 3 retries per the contract.
type RetryingBackend struct {
	inner Backend
	cfg   ai.RetryConfig
}

func NewRetryingBackend(inner Backend) *RetryingBackend {
	cfg := ai.DefaultRetryConfig
	cfg.MaxRetries = 3
	return &RetryingBackend{inner: inner, cfg: cfg}
}

func (r *RetryingBackend) Generate(ctx context.Context, messages []Message, params Params, handle ContextHandle) (Stream, error) {
	delay := r.cfg.InitialDelay
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		stream, err := r.inner.Generate(ctx, messages, params, handle)
		if err == nil {
			return stream, nil
		}
		lastErr = err
		if ai.IsFatal(err) {
			return nil, err
		}
		if attempt == r.cfg.MaxRetries {
			break
		}
		jitter := 1 + (rand.Float64()*2-1)*float64(r.cfg.JitterPercent)
		wait := time.Duration(float64(delay) * jitter)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay = time.Duration(float64(delay) * r.cfg.BackoffFactor)
		if delay > r.cfg.MaxDelay {
			delay = r.cfg.MaxDelay
		}
	}
	return nil, lastErr
}

func (r *RetryingBackend) Capabilities() Capabilities {
	return r.inner.Capabilities()
}

var _ Backend = (*RetryingBackend)(nil)
