package agent

import "testing"

func TestIntentClassifierKeywordAndPatternScoring(t *testing.T) {
	defs := []IntentDefinition{
		{
			Name:     "loan_interest",
			Keywords: []string{"loan", "gold loan", "swarna rin", "सोना"},
			Patterns: []string{`(?i)\bloan\b.*\b(chahiye|lena)\b`},
		},
		{
			Name:     "objection_rate",
			Keywords: []string{"interest rate", "byaj", "ब्याज"},
		},
	}
	c := NewIntentClassifier(defs)

	got := c.Classify("mujhe gold loan lena hai, interest kya hai", 1)
	if got.Name != "loan_interest" {
		t.Errorf("Classify() = %q, want loan_interest (pattern match should dominate)", got.Name)
	}

	got = c.Classify("aapka byaj dar kitna hai", 2)
	if got.Name != "objection_rate" {
		t.Errorf("Classify() = %q, want objection_rate", got.Name)
	}
}

func TestIntentClassifierUnknownWhenNoMatch(t *testing.T) {
	c := NewIntentClassifier([]IntentDefinition{{Name: "loan_interest", Keywords: []string{"loan"}}})
	got := c.Classify("what is the weather today", 1)
	if got.Name != "unknown" {
		t.Errorf("Classify() = %q, want unknown", got.Name)
	}
}

func TestIntentClassifierSkipsInvalidPattern(t *testing.T) {
	defs := []IntentDefinition{{Name: "broken", Keywords: []string{"loan"}, Patterns: []string{"("}}}
	c := NewIntentClassifier(defs)
	got := c.Classify("i want a loan", 1)
	if got.Name != "broken" {
		t.Errorf("Classify() = %q, want broken (keyword match should still work despite bad pattern)", got.Name)
	}
}
