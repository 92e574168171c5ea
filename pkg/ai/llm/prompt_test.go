package llm

import (
	"strings"
	"testing"
)

func TestAssemblePromptIncludesPersonaStageGuidanceAndRetrieval(t *testing.T) {
	msgs := AssemblePrompt(PromptInputs{
		Persona:       "You are a gold-loan sales agent.",
		StageGuidance: "Ask about the customer's current outstanding loan.",
		ToolCatalog:   "SavingsCalculator(outstanding_amount, current_annual_rate, months)",
		Retrieval:     []RetrievalSnippet{{DocID: "d1", Text: "House rate is 9.5% per annum."}},
		UserTurn:      "mera 5 lakh ka loan hai",
	})

	if len(msgs) == 0 || msgs[0].Role != RoleSystem {
		t.Fatalf("expected first message to be the system preamble, got %+v", msgs)
	}
	system := msgs[0].Content
	for _, want := range []string{"gold-loan sales agent", "outstanding loan", "SavingsCalculator", "House rate is 9.5"} {
		if !strings.Contains(system, want) {
			t.Errorf("system preamble missing %q:\n%s", want, system)
		}
	}
	last := msgs[len(msgs)-1]
	if last.Role != RoleUser || last.Content != "mera 5 lakh ka loan hai" {
		t.Errorf("last message = %+v, want the current user turn", last)
	}
}

func TestAssemblePromptDropsOldestWorkingTurnsBeforeRetrieval(t *testing.T) {
	longRetrieval := strings.Repeat("reference text ", 50)
	working := make([]Message, 0, 20)
	for i := 0; i < 20; i++ {
		working = append(working, Message{Role: RoleUser, Content: strings.Repeat("turn content ", 20)})
	}

	in := PromptInputs{
		Persona:      "persona",
		WorkingTurns: working,
		Retrieval:    []RetrievalSnippet{{DocID: "d1", Text: longRetrieval}},
		UserTurn:     "current turn",
		BudgetTokens: 80,
	}
	msgs := AssemblePrompt(in)

	if EstimateMessagesTokens(msgs) > 80 {
		// Over budget is only acceptable once nothing droppable remains;
		// with 20 working turns plus a big retrieval blob, dropping
		// should get comfortably under budget here.
		t.Errorf("EstimateMessagesTokens(msgs) = %d, want <= 80", EstimateMessagesTokens(msgs))
	}

	workingTurnsLeft := 0
	for _, m := range msgs {
		if m.Role == RoleUser && strings.Contains(m.Content, "turn content") {
			workingTurnsLeft++
		}
	}
	if workingTurnsLeft == len(working) {
		t.Error("expected at least some working turns to be dropped under a tight budget")
	}
}

func TestAssemblePromptNeverDropsSystemPreamble(t *testing.T) {
	in := PromptInputs{
		Persona:       strings.Repeat("persona text ", 200),
		StageGuidance: "guidance",
		BudgetTokens:  1,
	}
	msgs := AssemblePrompt(in)
	if len(msgs) == 0 || msgs[0].Role != RoleSystem {
		t.Fatal("expected the system preamble to still be present even impossibly over budget")
	}
	if !strings.Contains(msgs[0].Content, "persona text") {
		t.Error("system preamble content was altered/truncated; it must never be dropped")
	}
}

func TestAssemblePromptOmitsEmptySections(t *testing.T) {
	msgs := AssemblePrompt(PromptInputs{UserTurn: "hello"})
	for _, m := range msgs {
		if m.Role == RoleSystem {
			t.Errorf("expected no system message when every optional section is empty, got %q", m.Content)
		}
	}
	if len(msgs) != 1 || msgs[0].Content != "hello" {
		t.Errorf("msgs = %+v, want exactly the user turn", msgs)
	}
}
