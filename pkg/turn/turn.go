// Package turn implements hybrid end-of-turn detection: a silence rule
// (time since the last speech frame) combined with a semantic rule (a
// classifier over the latest partial transcript) so the agent neither cuts
// users off mid-sentence nor waits needlessly after a clearly finished
// utterance.
package turn

import (
	"context"
	"time"
)

// Config controls the decision policy's thresholds. NewDetector replaces
// the whole Config with NewConfig() when SilenceEOU is zero; other zero
// fields are kept as given.
type Config struct {
	SilenceEOU          time.Duration // default 700ms: silence alone declares EndOfTurn
	SemanticSilenceFloor time.Duration // default 200ms: minimum silence before the semantic rule can fire
	SemanticConfidence  float64       // default 0.75
}

func NewConfig() Config {
	return Config{
		SilenceEOU:           700 * time.Millisecond,
		SemanticSilenceFloor: 200 * time.Millisecond,
		SemanticConfidence:   0.75,
	}
}

// SemanticClassifier scores whether the latest partial transcript reads as
// a complete utterance. Implementations wrap an ONNX session; the fallback
// path (classifier unavailable) uses silence alone per the contract.
type SemanticClassifier interface {
	// PredictEndOfTurn returns a probability in [0,1] that ctx represents a
	// complete utterance.
	PredictEndOfTurn(ctx context.Context, chatCtx ChatContext) (float64, error)
	SupportsLanguage(language string) bool
}

// ChatContext is the recent conversation state the semantic classifier
// reasons over.
type ChatContext struct {
	PartialText string
	Language    string
}

// LanguageThresholder is an optional capability a SemanticClassifier can
// implement to override Config.SemanticConfidence with a per-language
// value, since a multilingual model's probability calibration rarely
// tracks true end-of-turn identically across languages.
type LanguageThresholder interface {
	Threshold(language string) (float64, bool)
}

// Decision is the hybrid policy's per-evaluation verdict.
type Decision struct {
	EndOfTurn          bool
	SemanticConfidence float64
	SilenceSince       time.Duration
	UsedFallback       bool // true if the semantic classifier was unavailable
}

// Detector runs the hybrid policy. It is not safe for concurrent use by
// more than one goroutine at a time; it is driven from the same task as STT
// finalization, per the contract.
type Detector struct {
	cfg        Config
	classifier SemanticClassifier
}

// NewDetector builds a hybrid detector. classifier may be nil, in which
// case the silence rule alone decides EndOfTurn.
func NewDetector(cfg Config, classifier SemanticClassifier) *Detector {
	if cfg.SilenceEOU == 0 {
		cfg = NewConfig()
	}
	return &Detector{cfg: cfg, classifier: classifier}
}

// Evaluate applies the decision policy: EndOfTurn when semantic confidence
// >= threshold AND silence >= SemanticSilenceFloor, OR silence >=
// SilenceEOU regardless of the semantic signal.
func (d *Detector) Evaluate(ctx context.Context, silenceSince time.Duration, chat ChatContext) (Decision, error) {
	dec := Decision{SilenceSince: silenceSince}

	if silenceSince >= d.cfg.SilenceEOU {
		dec.EndOfTurn = true
		return dec, nil
	}

	if d.classifier == nil || !d.classifier.SupportsLanguage(chat.Language) {
		dec.UsedFallback = true
		return dec, nil
	}

	conf, err := d.classifier.PredictEndOfTurn(ctx, chat)
	if err != nil {
		dec.UsedFallback = true
		return dec, nil
	}
	dec.SemanticConfidence = conf

	threshold := d.cfg.SemanticConfidence
	if lt, ok := d.classifier.(LanguageThresholder); ok {
		if t, ok := lt.Threshold(chat.Language); ok {
			threshold = t
		}
	}

	if conf >= threshold && silenceSince >= d.cfg.SemanticSilenceFloor {
		dec.EndOfTurn = true
	}
	return dec, nil
}
