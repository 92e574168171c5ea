// Package agent implements the sales conversation state machine: stage
// transitions, intent classification, slot extraction, and the three-tier
// memory a session keeps across turns.
package agent

import "fmt"

// Stage is one point in the sales conversation's directed graph.
type Stage int

const (
	StageGreeting Stage = iota
	StageDiscovery
	StageObjectionHandling
	StageQualification
	StagePresentation
	StageClosing
	StageFarewell
)

func (s Stage) String() string {
	switch s {
	case StageGreeting:
		return "Greeting"
	case StageDiscovery:
		return "Discovery"
	case StageObjectionHandling:
		return "ObjectionHandling"
	case StageQualification:
		return "Qualification"
	case StagePresentation:
		return "Presentation"
	case StageClosing:
		return "Closing"
	case StageFarewell:
		return "Farewell"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// legalTransitions is the declared transition graph. Farewell is reachable
// from every stage and is handled separately in CanTransition rather than
// listed under each entry.
var legalTransitions = map[Stage][]Stage{
	StageGreeting:          {StageDiscovery},
	StageDiscovery:         {StageObjectionHandling, StageQualification},
	StageObjectionHandling: {StageDiscovery, StagePresentation},
	StageQualification:     {StagePresentation},
	StagePresentation:      {StageObjectionHandling, StageClosing},
	StageClosing:           {},
	StageFarewell:          {},
}

// CanTransition reports whether moving from `from` to `to` appears in the
// declared transition set. Any stage may transition to Farewell.
func CanTransition(from, to Stage) bool {
	if to == StageFarewell {
		return true
	}
	for _, s := range legalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StageDefinition declares what must be satisfied before a stage's
// outbound transitions may fire, and what the agent is allowed to do while
// in it. Populated from configuration, never hard-coded per stage.
type StageDefinition struct {
	RequiredIntents []string
	RequiredSlots   []string
	GuidancePrompt  string
	AllowedTools    []string
}

// StageGraph is the full configured set of stage definitions, keyed by
// stage.
type StageGraph map[Stage]StageDefinition

// Satisfied reports whether the given intents and slot store satisfy
// stage's required_intents and required_slots.
func (g StageGraph) Satisfied(stage Stage, seenIntents map[string]bool, slots *SlotStore) (missingIntents, missingSlots []string) {
	def := g[stage]
	for _, want := range def.RequiredIntents {
		if !seenIntents[want] {
			missingIntents = append(missingIntents, want)
		}
	}
	for _, want := range def.RequiredSlots {
		if _, ok := slots.Get(want); !ok {
			missingSlots = append(missingSlots, want)
		}
	}
	return missingIntents, missingSlots
}
