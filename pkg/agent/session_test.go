package agent

import (
	"context"
	"testing"
)

func testGraph() StageGraph {
	return StageGraph{
		StageGreeting: StageDefinition{
			GuidancePrompt: "Greet the caller warmly in their language.",
		},
		StageDiscovery: StageDefinition{
			RequiredIntents: []string{"loan_interest"},
			RequiredSlots:   []string{"quantity"},
			GuidancePrompt:  "Find out how much gold they have and why they need the loan.",
		},
	}
}

func testClassifier() *IntentClassifier {
	return NewIntentClassifier([]IntentDefinition{
		{Name: "loan_interest", Keywords: []string{"loan", "gold"}},
	})
}

func TestSessionEntersAtGreeting(t *testing.T) {
	s := NewSession(testGraph(), testClassifier(), nil, "hi")
	if s.Stage() != StageGreeting {
		t.Errorf("Stage() = %v, want StageGreeting", s.Stage())
	}
}

func TestSessionAutoAdvancesWhenRequirementsMet(t *testing.T) {
	s := NewSession(testGraph(), testClassifier(), nil, "hi")

	turn := s.ProcessUserTurn(context.Background(), "mujhe 2 lakh ka gold loan chahiye")
	if len(turn.MissingIntents) != 0 || len(turn.MissingSlots) != 0 {
		t.Fatalf("expected no missing requirements, got intents=%v slots=%v", turn.MissingIntents, turn.MissingSlots)
	}
	if turn.StageAfter != StageDiscovery {
		t.Errorf("StageAfter = %v, want StageDiscovery", turn.StageAfter)
	}
	if s.Stage() != StageDiscovery {
		t.Errorf("Stage() after turn = %v, want StageDiscovery", s.Stage())
	}
}

func TestSessionStaysPutWhenRequirementsMissing(t *testing.T) {
	s := NewSession(testGraph(), testClassifier(), nil, "hi")
	if err := s.TransitionTo(StageDiscovery); err != nil {
		t.Fatalf("TransitionTo(StageDiscovery) error = %v", err)
	}
	turn := s.ProcessUserTurn(context.Background(), "hello")
	if len(turn.MissingIntents) == 0 || len(turn.MissingSlots) == 0 {
		t.Errorf("missing intents=%v slots=%v, want Discovery's requirements reported", turn.MissingIntents, turn.MissingSlots)
	}
	if turn.StageAfter != StageDiscovery {
		t.Errorf("StageAfter = %v, want StageDiscovery (no intent/slot satisfied yet)", turn.StageAfter)
	}
}

func TestTransitionToRejectsIllegalMove(t *testing.T) {
	s := NewSession(testGraph(), testClassifier(), nil, "hi")
	if err := s.TransitionTo(StageClosing); err == nil {
		t.Error("expected TransitionTo(StageClosing) from Greeting to be rejected")
	}
	if s.Stage() != StageGreeting {
		t.Errorf("Stage() = %v, want unchanged StageGreeting after rejected transition", s.Stage())
	}
}

func TestTransitionToFarewellAlwaysLegal(t *testing.T) {
	s := NewSession(testGraph(), testClassifier(), nil, "hi")
	if err := s.TransitionTo(StageFarewell); err != nil {
		t.Errorf("TransitionTo(StageFarewell) error = %v, want nil", err)
	}
}

func TestRecordToolTurnAppearsWithNameInMessages(t *testing.T) {
	s := NewSession(testGraph(), testClassifier(), nil, "hi")
	s.RecordToolTurn(context.Background(), "EligibilityCheck", `{"max_amount":150000}`)

	msgs := s.Messages()
	last := msgs[len(msgs)-1]
	if last.Name != "EligibilityCheck" {
		t.Errorf("last message name = %q, want EligibilityCheck", last.Name)
	}
	if last.Content != `{"max_amount":150000}` {
		t.Errorf("last message content = %q, want tool result JSON", last.Content)
	}
}

func TestRecordAndTruncateAssistantTurn(t *testing.T) {
	s := NewSession(testGraph(), testClassifier(), nil, "hi")
	s.RecordAssistantTurn(context.Background(), "Sure, let me explain our gold loan rates in detail")
	s.TruncateLastAssistantTurn("Sure, let me explain our gold")

	msgs := s.Messages()
	last := msgs[len(msgs)-1]
	if last.Content != "Sure, let me explain our gold [interrupted]" {
		t.Errorf("last message content = %q, want truncation marker applied", last.Content)
	}
}
