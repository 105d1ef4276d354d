// Package persona produces guest personas consistent with a scenario.
package persona

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"vas-training-be/internal/apperror"
	"vas-training-be/pkg/lenient"
	"vas-training-be/pkg/llm"
	"vas-training-be/pkg/store"
)

const stageName = "persona"

// Generator is the PersonaStage: one generation call parsed leniently with
// schema defaults.
type Generator struct {
	provider llm.Provider
	logger   *log.Logger
	timeout  time.Duration
}

func NewGenerator(provider llm.Provider, logger *log.Logger, timeout time.Duration) *Generator {
	return &Generator{
		provider: provider,
		logger:   logger,
		timeout:  timeout,
	}
}

type personaPayload struct {
	Name               string   `json:"name"`
	Background         string   `json:"background"`
	PersonalityTraits  []string `json:"personality_traits"`
	HiddenMotivations  []string `json:"hidden_motivations"`
	CommunicationStyle string   `json:"communication_style"`
	EmotionalArc       []string `json:"emotional_arc"`
}

// Generate produces a Persona for the scenario. Generation failures propagate
// as GenerationError; malformed output falls back to schema defaults.
func (g *Generator) Generate(ctx context.Context, scn *store.Scenario) (*store.Persona, error) {
	prompt := g.buildPrompt(scn)

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.provider.Generate(callCtx, prompt, llm.WithTemperature(0.9))
	if err != nil {
		var genErr *apperror.GenerationError
		if errors.As(err, &genErr) {
			return nil, err
		}
		return nil, apperror.NewGeneration(stageName, apperror.GenerationUnavailable, err)
	}

	var payload personaPayload
	if err := lenient.Decode(raw, &payload); err != nil {
		return nil, apperror.NewGeneration(stageName, apperror.GenerationInvalidResponse, err)
	}

	// A persona without a background or traits gives the guest simulator
	// nothing to stay in character with.
	if payload.Background == "" && len(payload.PersonalityTraits) == 0 {
		return nil, apperror.NewGeneration(stageName, apperror.GenerationInvalidResponse, fmt.Errorf("persona has no background and no traits"))
	}

	return applyDefaults(payload), nil
}

func (g *Generator) buildPrompt(scn *store.Scenario) string {
	var prompt strings.Builder

	prompt.WriteString("<persona_request>\n")
	prompt.WriteString("Create the guest character for this training scenario:\n")
	prompt.WriteString(fmt.Sprintf("Title: %s\n", scn.Title))
	prompt.WriteString(fmt.Sprintf("Situation: %s\n", scn.Description))
	prompt.WriteString(fmt.Sprintf("Time pressure: %d/10\n", scn.TimePressure))
	prompt.WriteString("</persona_request>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with a single JSON object:\n")
	prompt.WriteString(`{"name": string, "background": string, "personality_traits": [string], "hidden_motivations": [string], "communication_style": string, "emotional_arc": [string]}`)
	prompt.WriteString("\nemotional_arc lists the emotions the guest may move through, worst first.\n")
	prompt.WriteString("hidden_motivations are never shown to the trainee; the guest hints at them but never states them outright.\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

func applyDefaults(p personaPayload) *store.Persona {
	persona := &store.Persona{
		Name:               p.Name,
		Background:         p.Background,
		PersonalityTraits:  p.PersonalityTraits,
		HiddenMotivations:  p.HiddenMotivations,
		CommunicationStyle: p.CommunicationStyle,
		EmotionalArc:       p.EmotionalArc,
	}
	if persona.Name == "" {
		persona.Name = "Alex Guest"
	}
	if persona.CommunicationStyle == "" {
		persona.CommunicationStyle = "direct"
	}
	if len(persona.EmotionalArc) == 0 {
		persona.EmotionalArc = []string{"frustrated", "neutral", "satisfied"}
	}
	if persona.PersonalityTraits == nil {
		persona.PersonalityTraits = []string{}
	}
	if persona.HiddenMotivations == nil {
		persona.HiddenMotivations = []string{}
	}
	return persona
}

// Fallback returns a fixed persona usable without any external call.
func Fallback(scn *store.Scenario) *store.Persona {
	return &store.Persona{
		Name:               "Jordan Avery",
		Background:         fmt.Sprintf("A frequent traveler caught in: %s", scn.Description),
		PersonalityTraits:  []string{"assertive", "detail-oriented", "reasonable when heard"},
		HiddenMotivations:  []string{"wants compensation", "will post a review either way"},
		CommunicationStyle: "firm but polite",
		EmotionalArc:       []string{"frustrated", "skeptical", "neutral", "satisfied"},
	}
}
