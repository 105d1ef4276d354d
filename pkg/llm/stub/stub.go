// Package stub provides a deterministic offline Provider used by unit tests
// and cmd/simulate. It pattern-matches the stage marker embedded in each
// prompt and returns canned structured output, so a full training session
// can run without any model backend.
package stub

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"vas-training-be/internal/apperror"
	"vas-training-be/pkg/llm"
)

type StubProvider struct {
	mu sync.Mutex

	// Responses maps a substring of the prompt to a canned reply. Checked
	// before the built-in stage defaults.
	Responses map[string]string

	// FailWith, when set, makes every call fail with this error.
	FailWith error

	// Calls records every prompt received, in order.
	Calls []string
}

var _ llm.Provider = &StubProvider{}

func New() *StubProvider {
	return &StubProvider{Responses: make(map[string]string)}
}

// Fail configures the provider to reject all calls with a generation error.
func (s *StubProvider) Fail(kind apperror.GenerationKind) *StubProvider {
	s.FailWith = apperror.NewGeneration("stub", kind, fmt.Errorf("stubbed failure"))
	return s
}

func (s *StubProvider) Chat(ctx context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	if len(history) == 0 {
		return "", apperror.NewGeneration("stub", apperror.GenerationInvalidResponse, fmt.Errorf("empty history"))
	}
	return s.Generate(ctx, history[len(history)-1].Content)
}

func (s *StubProvider) Generate(ctx context.Context, prompt string, _ ...llm.Option) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls = append(s.Calls, prompt)

	if s.FailWith != nil {
		return "", s.FailWith
	}
	if err := ctx.Err(); err != nil {
		return "", apperror.NewGeneration("stub", apperror.GenerationTimeout, err)
	}

	for marker, reply := range s.Responses {
		if strings.Contains(prompt, marker) {
			return reply, nil
		}
	}

	switch {
	case strings.Contains(prompt, "<scenario_request>"):
		return defaultScenarioJSON, nil
	case strings.Contains(prompt, "<persona_request>"):
		return defaultPersonaJSON, nil
	case strings.Contains(prompt, "<guest_turn_request>"):
		return defaultGuestJSON, nil
	case strings.Contains(prompt, "<feedback_request>"):
		return defaultFeedbackJSON, nil
	}
	return "", apperror.NewGeneration("stub", apperror.GenerationInvalidResponse, fmt.Errorf("no canned response for prompt"))
}

const defaultScenarioJSON = `Here is your scenario:
{
  "title": "Double-Booked Suite",
  "description": "A guest arrives at midnight to find their prepaid suite was given away.",
  "required_steps": ["acknowledge the problem", "apologize sincerely", "offer an alternative room", "confirm the resolution"],
  "critical_errors": ["blame the guest", "hang up"],
  "time_pressure": 7
}`

const defaultPersonaJSON = `{
  "name": "Morgan Reyes",
  "background": "Business traveler with an early meeting, loyal member of the rewards program.",
  "personality_traits": ["direct", "impatient", "fair when treated honestly"],
  "hidden_motivations": ["wants an upgrade", "considering switching hotel chains"],
  "communication_style": "curt but professional",
  "emotional_arc": ["frustrated", "skeptical", "neutral", "satisfied"]
}`

const defaultGuestJSON = `{
  "reply": "I have been traveling for fourteen hours. What exactly are you going to do about my room?",
  "emotion_shift": "stay"
}`

const defaultFeedbackJSON = `{
  "summary": "Handled the core complaint but missed a chance to rebuild trust early.",
  "dimensions": [
    {"dimension": "policy_adherence", "trend": "steady", "strengths": ["followed rebooking procedure"], "weaknesses": [], "improvements": ["cite the compensation policy explicitly"]}
  ],
  "recommendations": ["Acknowledge the inconvenience before proposing solutions"],
  "resources": ["SOP: Overbooking Recovery"],
  "next_steps": ["Practice an advanced overbooking scenario"]
}`
