// Package observe provides the OpenTelemetry metrics surface for the agent
// core: latency histograms per pipeline stage, tool/provider call counters,
// and session gauges. It defines metric instruments only; no tracing spans
// are created. A Prometheus exporter bridge is available via InitProvider so
// the instrument set can be scraped at /metrics; the exporter itself (and
// any OTLP pipeline) is out of scope per spec §1.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for every instrument this
// package creates.
const meterName = "github.com/goldvox/agentcore"

// Metrics holds every OpenTelemetry instrument the pipeline records
// against. All fields are safe for concurrent use; the underlying OTel
// types handle their own synchronization.
type Metrics struct {
	// --- Latency histograms per pipeline stage (spec §2 component table) ---

	VADLatency       metric.Float64Histogram
	STTPartialLatency metric.Float64Histogram
	STTFinalLatency  metric.Float64Histogram
	TurnDetectLatency metric.Float64Histogram
	RetrievalLatency metric.Float64Histogram
	LLMFirstTokenLatency metric.Float64Histogram
	TTSFirstChunkLatency metric.Float64Histogram
	ToolExecutionLatency metric.Float64Histogram
	EndToEndLatency  metric.Float64Histogram // capture_ts of last user frame -> first reply sample

	// --- Counters ---

	ToolCalls        metric.Int64Counter // attrs: tool, status
	LLMCalls         metric.Int64Counter // attrs: leg (slm|llm), strategy, status
	BargeIns         metric.Int64Counter
	StageTransitions metric.Int64Counter // attrs: from, to
	InferenceErrors  metric.Int64Counter // attrs: component
	RetrievalPrefetchReuse metric.Int64Counter // attrs: outcome (reused|discarded)

	// --- Gauges ---

	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets are bucket boundaries in seconds, tuned for the ≤500ms
// end-to-end budget this pipeline is held to.
var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.15, 0.2, 0.3, 0.5, 1, 2}

// NewMetrics creates a fully initialized Metrics using the given
// MeterProvider. Returns an error if any instrument fails to register.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	hist := func(name, desc string) (metric.Float64Histogram, error) {
		return m.Float64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...),
		)
	}

	if met.VADLatency, err = hist("agentcore.vad.latency", "VAD per-frame push-to-event latency."); err != nil {
		return nil, err
	}
	if met.STTPartialLatency, err = hist("agentcore.stt.partial.latency", "Latency from frame ingress to partial transcript emission."); err != nil {
		return nil, err
	}
	if met.STTFinalLatency, err = hist("agentcore.stt.final.latency", "Latency from SpeechEnd to final transcript emission."); err != nil {
		return nil, err
	}
	if met.TurnDetectLatency, err = hist("agentcore.turn.detect.latency", "Latency from last speech frame to EndOfTurn decision."); err != nil {
		return nil, err
	}
	if met.RetrievalLatency, err = hist("agentcore.retrieval.latency", "End-to-end retriever+reranker latency."); err != nil {
		return nil, err
	}
	if met.LLMFirstTokenLatency, err = hist("agentcore.llm.first_token.latency", "Latency from EndOfTurn to first generated token."); err != nil {
		return nil, err
	}
	if met.TTSFirstChunkLatency, err = hist("agentcore.tts.first_chunk.latency", "Latency from synthesize() call to first PCM chunk."); err != nil {
		return nil, err
	}
	if met.ToolExecutionLatency, err = hist("agentcore.tool.execution.latency", "Tool invocation latency."); err != nil {
		return nil, err
	}
	if met.EndToEndLatency, err = hist("agentcore.e2e.latency", "End-to-end latency from last spoken syllable to first reply sample."); err != nil {
		return nil, err
	}

	if met.ToolCalls, err = m.Int64Counter("agentcore.tool.calls",
		metric.WithDescription("Total tool invocations by tool name and status.")); err != nil {
		return nil, err
	}
	if met.LLMCalls, err = m.Int64Counter("agentcore.llm.calls",
		metric.WithDescription("Total SLM/LLM calls by leg, strategy, and status.")); err != nil {
		return nil, err
	}
	if met.BargeIns, err = m.Int64Counter("agentcore.barge_ins",
		metric.WithDescription("Total barge-in events across all sessions.")); err != nil {
		return nil, err
	}
	if met.StageTransitions, err = m.Int64Counter("agentcore.stage.transitions",
		metric.WithDescription("Total agent FSM stage transitions by from/to.")); err != nil {
		return nil, err
	}
	if met.InferenceErrors, err = m.Int64Counter("agentcore.inference.errors",
		metric.WithDescription("Total per-step inference failures by component.")); err != nil {
		return nil, err
	}
	if met.RetrievalPrefetchReuse, err = m.Int64Counter("agentcore.retrieval.prefetch_reuse",
		metric.WithDescription("Total prefetch cache lookups by whether the cached result was reused.")); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("agentcore.sessions.active",
		metric.WithDescription("Number of currently live voice sessions.")); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level Metrics instance, built from
// otel.GetMeterProvider() on first call. Panics if instrument creation
// fails, which should not happen against the global provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordToolCall records one tool-invocation counter increment.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string) {
	m.ToolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("status", status),
	))
}

// RecordLLMCall records one SLM/LLM call counter increment.
func (m *Metrics) RecordLLMCall(ctx context.Context, leg, strategy, status string) {
	m.LLMCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("leg", leg),
		attribute.String("strategy", strategy),
		attribute.String("status", status),
	))
}

// RecordStageTransition records one FSM stage transition.
func (m *Metrics) RecordStageTransition(ctx context.Context, from, to string) {
	m.StageTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// RecordInferenceError records one recoverable per-step inference failure.
func (m *Metrics) RecordInferenceError(ctx context.Context, component string) {
	m.InferenceErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("component", component)))
}

// RecordPrefetchReuse records whether a retrieval prefetch cache entry was
// reused at finalization or discarded and re-issued.
func (m *Metrics) RecordPrefetchReuse(ctx context.Context, reused bool) {
	status := "discarded"
	if reused {
		status = "reused"
	}
	m.RetrievalPrefetchReuse.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", status)))
}
