package llm

import "strings"

// QualityConfig holds the thresholds the quality estimator compares
// against; these are configuration, not hard-coded, so operators can tune
// them per deployment.
type QualityConfig struct {
	MinConfidence       float32
	MaxRepetitionScore  float32
	StopPhrases         []string
}

// DefaultQualityConfig returns reasonable starting thresholds.
func DefaultQualityConfig() QualityConfig {
	return QualityConfig{
		MinConfidence:      0.5,
		MaxRepetitionScore: 0.4,
		StopPhrases: []string{
			"i don't know", "i do not know", "mujhe nahi pata", "i'm not sure",
		},
	}
}

// QualityEstimator judges whether a completed/partial response is
// acceptable, combining token confidence, n-gram repetition, and stop
// phrase detection. It must never penalize a short-but-valid answer by
// length alone.
type QualityEstimator struct {
	cfg QualityConfig
}

func NewQualityEstimator(cfg QualityConfig) *QualityEstimator {
	return &QualityEstimator{cfg: cfg}
}

// Acceptable reports whether text (with an optional average token
// confidence, 0 meaning "not available") passes the quality bar.
func (q *QualityEstimator) Acceptable(text string, avgConfidence float32) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if avgConfidence > 0 && avgConfidence < q.cfg.MinConfidence {
		return false
	}
	lower := strings.ToLower(text)
	for _, phrase := range q.cfg.StopPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	if repetitionScore(text) > q.cfg.MaxRepetitionScore {
		return false
	}
	return true
}

// repetitionScore estimates how repetitive text is by the fraction of
// trigrams that are duplicates of an earlier trigram.
func repetitionScore(text string) float32 {
	words := strings.Fields(text)
	if len(words) < 6 {
		return 0 // too short to meaningfully score, and must not be penalized for it
	}
	seen := make(map[string]int)
	trigrams := 0
	repeats := 0
	for i := 0; i+2 < len(words); i++ {
		tri := words[i] + " " + words[i+1] + " " + words[i+2]
		seen[tri]++
		trigrams++
		if seen[tri] > 1 {
			repeats++
		}
	}
	if trigrams == 0 {
		return 0
	}
	return float32(repeats) / float32(trigrams)
}
