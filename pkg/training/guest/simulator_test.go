package guest

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"vas-training-be/internal/apperror"
	"vas-training-be/pkg/llm/stub"
	"vas-training-be/pkg/store"
)

var testPersona = &store.Persona{
	Name:              "Morgan Reyes",
	Background:        "Business traveler with an early meeting.",
	PersonalityTraits: []string{"direct", "impatient"},
	HiddenMotivations: []string{"wants an upgrade"},
	EmotionalArc:      []string{"frustrated", "skeptical", "neutral", "satisfied"},
}

var testScenario = &store.Scenario{
	Title:       "Double-Booked Suite",
	Description: "The prepaid suite was given away.",
}

func newSim(provider *stub.StubProvider) *Simulator {
	return NewSimulator(provider, log.New(io.Discard, "", 0), 5*time.Second)
}

func TestNextTurnStay(t *testing.T) {
	sim := newSim(stub.New())

	turn := sim.NextTurn(context.Background(), testPersona, testScenario, nil, "frustrated")
	if turn.Reply == "" {
		t.Error("expected a reply")
	}
	if turn.Emotion != "frustrated" {
		t.Errorf("Emotion = %q, want unchanged", turn.Emotion)
	}
}

func TestNextTurnAdvancesOneStep(t *testing.T) {
	provider := stub.New()
	provider.Responses["<guest_turn_request>"] = `{"reply":"Alright, that helps.","emotion_shift":"advance"}`
	sim := newSim(provider)

	turn := sim.NextTurn(context.Background(), testPersona, testScenario, nil, "frustrated")
	if turn.Emotion != "skeptical" {
		t.Errorf("Emotion = %q, want skeptical (one step forward)", turn.Emotion)
	}

	// Advancing at the end of the arc stays at the end.
	turn = sim.NextTurn(context.Background(), testPersona, testScenario, nil, "satisfied")
	if turn.Emotion != "satisfied" {
		t.Errorf("Emotion = %q, want satisfied (end of arc)", turn.Emotion)
	}
}

func TestNextTurnDegradesOnFailure(t *testing.T) {
	provider := stub.New().Fail(apperror.GenerationTimeout)
	sim := newSim(provider)

	turn := sim.NextTurn(context.Background(), testPersona, testScenario, nil, "skeptical")
	if turn.Reply == "" {
		t.Error("expected a deflection line, not an empty reply")
	}
	if turn.Emotion != "skeptical" {
		t.Errorf("Emotion = %q, want unchanged on failure", turn.Emotion)
	}
}

func TestNextTurnBlocksHiddenMotivationLeak(t *testing.T) {
	provider := stub.New()
	provider.Responses["<guest_turn_request>"] = `{"reply":"Honestly I just wants an upgrade.","emotion_shift":"advance"}`
	sim := newSim(provider)

	turn := sim.NextTurn(context.Background(), testPersona, testScenario, nil, "frustrated")
	if turn.Reply == "Honestly I just wants an upgrade." {
		t.Error("verbatim hidden motivation must not reach the trainee")
	}
	if turn.Emotion != "frustrated" {
		t.Errorf("Emotion = %q, want unchanged when reply is replaced", turn.Emotion)
	}
}

func TestOpeningLineDeterministic(t *testing.T) {
	a := OpeningLine(testPersona, testScenario)
	b := OpeningLine(testPersona, testScenario)
	if a != b {
		t.Error("opening line must be deterministic for the same scenario/persona")
	}
	if a == "" {
		t.Error("opening line must not be empty")
	}
}
