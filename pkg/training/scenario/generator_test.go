package scenario

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"vas-training-be/internal/apperror"
	"vas-training-be/pkg/llm/stub"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestGenerate(t *testing.T) {
	provider := stub.New()
	gen := NewGenerator(provider, nil, testLogger(), 5*time.Second)

	scn, err := gen.Generate(context.Background(), Request{
		TrainingObjective: "Practice overbooking recovery",
		Difficulty:        "beginner",
		Category:          "overbooking",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if scn.Title == "" {
		t.Error("expected a non-empty title")
	}
	if len(scn.RequiredSteps) == 0 {
		t.Error("expected required steps")
	}
	if scn.TimePressure < 1 || scn.TimePressure > 10 {
		t.Errorf("time pressure %d outside [1,10]", scn.TimePressure)
	}
}

func TestGenerateAppliesDefaults(t *testing.T) {
	provider := stub.New()
	provider.Responses["<scenario_request>"] = `{"description":"something went wrong","required_steps":["fix it"],"time_pressure":42}`
	gen := NewGenerator(provider, nil, testLogger(), 5*time.Second)

	scn, err := gen.Generate(context.Background(), Request{TrainingObjective: "x"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if scn.Title != "Untitled Scenario" {
		t.Errorf("Title = %q, want default", scn.Title)
	}
	if scn.TimePressure != 10 {
		t.Errorf("TimePressure = %d, want clamped 10", scn.TimePressure)
	}
	if scn.CriticalErrors == nil {
		t.Error("CriticalErrors should default to empty, not nil")
	}
}

func TestGenerateRejectsEmptyScenario(t *testing.T) {
	provider := stub.New()
	provider.Responses["<scenario_request>"] = `{"title":"Just a title"}`
	gen := NewGenerator(provider, nil, testLogger(), 5*time.Second)

	_, err := gen.Generate(context.Background(), Request{TrainingObjective: "x"})

	var genErr *apperror.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if genErr.Kind != apperror.GenerationInvalidResponse {
		t.Errorf("Kind = %q, want invalid_response", genErr.Kind)
	}
}

func TestGeneratePropagatesProviderFailure(t *testing.T) {
	provider := stub.New().Fail(apperror.GenerationUnavailable)
	gen := NewGenerator(provider, nil, testLogger(), 5*time.Second)

	_, err := gen.Generate(context.Background(), Request{TrainingObjective: "x"})

	var genErr *apperror.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
}

func TestFallback(t *testing.T) {
	tests := []struct {
		difficulty string
		category   string
	}{
		{"beginner", "booking"},
		{"intermediate", "complaint"},
		{"advanced", "overbooking"},
		{"beginner", "general"},
		{"beginner", "unknown-category"},
	}

	for _, tt := range tests {
		t.Run(tt.difficulty+"/"+tt.category, func(t *testing.T) {
			scn := Fallback(tt.difficulty, tt.category)
			if scn.Title == "" || len(scn.RequiredSteps) == 0 {
				t.Error("fallback scenario must be complete")
			}
			if scn.TimePressure < 1 || scn.TimePressure > 10 {
				t.Errorf("time pressure %d outside [1,10]", scn.TimePressure)
			}
		})
	}

	// Fallbacks must be independent copies.
	a := Fallback("beginner", "booking")
	a.RequiredSteps[0] = "mutated"
	b := Fallback("beginner", "booking")
	if b.RequiredSteps[0] == "mutated" {
		t.Error("fallback shares backing array with catalog")
	}
}
