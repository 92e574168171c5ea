package agent

import (
	"regexp"
	"strings"
)

// IntentDefinition declares one recognizable intent: keyword/synonym lists
// and compiled patterns, loaded from configuration rather than hard-coded
// per intent.
type IntentDefinition struct {
	Name     string
	Keywords []string // includes configured Hindi/Hinglish synonyms
	Patterns []string // regexes compiled once at registry construction
}

// Intent is the classifier's verdict for one user turn: one primary intent
// and its confidence. Classify does not fill ExtractedSlots; slots come from
// SlotExtractor.
type Intent struct {
	Name           string
	Confidence     float64
	ExtractedSlots []Slot
}

type compiledIntent struct {
	def      IntentDefinition
	keywords []string // lower-cased
	patterns []*regexp.Regexp
}

// IntentClassifier matches an utterance against the configured intent
// definitions using keyword containment and compiled regex patterns. The
// compiled patterns are held on the classifier and actually evaluated in
// Classify — the declared regexes are not just decoration.
type IntentClassifier struct {
	intents []compiledIntent
}

// NewIntentClassifier compiles every declared intent's patterns once.
// A pattern that fails to compile is skipped rather than panicking, since
// bad configuration should degrade to keyword-only matching for that
// intent, not bring the classifier down.
func NewIntentClassifier(defs []IntentDefinition) *IntentClassifier {
	c := &IntentClassifier{intents: make([]compiledIntent, 0, len(defs))}
	for _, def := range defs {
		ci := compiledIntent{def: def}
		for _, kw := range def.Keywords {
			ci.keywords = append(ci.keywords, strings.ToLower(kw))
		}
		for _, p := range def.Patterns {
			if re, err := regexp.Compile(p); err == nil {
				ci.patterns = append(ci.patterns, re)
			}
		}
		c.intents = append(c.intents, ci)
	}
	return c
}

// Classify scores every configured intent against text and returns the
// single best match. A regex match counts for more than a keyword hit
// since it demonstrates structural evidence, not just vocabulary overlap.
func (c *IntentClassifier) Classify(text string, sourceTurnID int) Intent {
	lower := strings.ToLower(text)

	var best Intent
	bestScore := 0.0

	for _, ci := range c.intents {
		score := 0.0
		for _, kw := range ci.keywords {
			if kw != "" && strings.Contains(lower, kw) {
				score += 0.3
			}
		}
		for _, re := range ci.patterns {
			if re.MatchString(text) {
				score += 0.6
			}
		}
		if score > 1.0 {
			score = 1.0
		}
		if score > bestScore {
			bestScore = score
			best = Intent{Name: ci.def.Name, Confidence: score}
		}
	}

	if bestScore == 0 {
		return Intent{Name: "unknown", Confidence: 0}
	}
	return best
}
