package agent

import "testing"

func TestCanTransitionFollowsDeclaredGraph(t *testing.T) {
	cases := []struct {
		from, to Stage
		want     bool
	}{
		{StageGreeting, StageDiscovery, true},
		{StageGreeting, StageClosing, false},
		{StageDiscovery, StageObjectionHandling, true},
		{StageObjectionHandling, StageDiscovery, true},
		{StagePresentation, StageObjectionHandling, true},
		{StageObjectionHandling, StagePresentation, true},
		{StageQualification, StageDiscovery, false},
		{StageClosing, StageFarewell, true},
		{StageGreeting, StageFarewell, true},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestStageGraphSatisfied(t *testing.T) {
	graph := StageGraph{
		StageDiscovery: StageDefinition{
			RequiredIntents: []string{"loan_interest"},
			RequiredSlots:   []string{"phone"},
		},
	}
	slots := NewSlotStore()

	missingIntents, missingSlots := graph.Satisfied(StageDiscovery, map[string]bool{}, slots)
	if len(missingIntents) != 1 || len(missingSlots) != 1 {
		t.Fatalf("expected both missing, got intents=%v slots=%v", missingIntents, missingSlots)
	}

	slots.Set(Slot{CanonicalName: "phone", Value: "9876543210", Confidence: 1})
	_, missingSlots = graph.Satisfied(StageDiscovery, map[string]bool{"loan_interest": true}, slots)
	if len(missingSlots) != 0 {
		t.Errorf("expected no missing slots once phone is set, got %v", missingSlots)
	}
}
