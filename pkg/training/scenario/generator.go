// Package scenario produces training scenarios from an objective, optionally
// grounded in retrieved SOP references.
package scenario

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
	"vas-training-be/pkg/retrieval"
	"vas-training-be/pkg/store"
)

const stageName = "scenario"

// Request carries the caller's training parameters.
type Request struct {
	TrainingObjective string
	Difficulty        string // beginner | intermediate | advanced
	Category          string // booking | complaint | overbooking | general
}

// Generator is the ScenarioStage: one generation call, tolerant parse,
// schema defaults. It never retries internally.
type Generator struct {
	provider  llm.Provider
	retriever retrieval.Retriever // optional
	logger    *log.Logger
	timeout   time.Duration
}

func NewGenerator(provider llm.Provider, retriever retrieval.Retriever, logger *log.Logger, timeout time.Duration) *Generator {
	return &Generator{
		provider:  provider,
		retriever: retriever,
		logger:    logger,
		timeout:   timeout,
	}
}

type scenarioPayload struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	RequiredSteps  []string `json:"required_steps"`
	CriticalErrors []string `json:"critical_errors"`
	TimePressure   int      `json:"time_pressure"`
}

// Generate produces a Scenario for the request. Retrieval failures degrade to
// an ungrounded prompt; generation failures propagate as GenerationError.
func (g *Generator) Generate(ctx context.Context, req Request) (*store.Scenario, error) {
	refs := g.lookupReferences(ctx, req)

	prompt := g.buildPrompt(req, refs)

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.provider.Generate(callCtx, prompt, llm.WithTemperature(0.8))
	if err != nil {
		var genErr *apperror.GenerationError
		if errors.As(err, &genErr) {
			return nil, err
		}
		return nil, apperror.NewGeneration(stageName, apperror.GenerationUnavailable, err)
	}

	var payload scenarioPayload
	if err := lenient.Decode(raw, &payload); err != nil {
		return nil, apperror.NewGeneration(stageName, apperror.GenerationInvalidResponse, err)
	}

	// Structural validation: a scenario with neither a description nor any
	// required steps has no trainable content and cannot be defaulted into one.
	if payload.Description == "" && len(payload.RequiredSteps) == 0 {
		return nil, apperror.NewGeneration(stageName, apperror.GenerationInvalidResponse, fmt.Errorf("scenario has no description and no required steps"))
	}

	return applyDefaults(payload), nil
}

func (g *Generator) lookupReferences(ctx context.Context, req Request) []retrieval.Reference {
	if g.retriever == nil {
		return nil
	}
	refs, err := g.retriever.Retrieve(ctx, req.TrainingObjective, retrieval.Filter{Category: req.Category})
	if err != nil {
		g.logger.Printf("[SCENARIO] retrieval degraded: %v", err)
		return nil
	}
	return refs
}

func (g *Generator) buildPrompt(req Request, refs []retrieval.Reference) string {
	var prompt strings.Builder

	prompt.WriteString("<scenario_request>\n")
	prompt.WriteString("You design guest-service training scenarios for hotel virtual assistants.\n")
	prompt.WriteString(fmt.Sprintf("Training objective: %s\n", req.TrainingObjective))
	prompt.WriteString(fmt.Sprintf("Difficulty: %s\n", req.Difficulty))
	prompt.WriteString(fmt.Sprintf("Category: %s\n", req.Category))
	prompt.WriteString("</scenario_request>\n\n")

	if len(refs) > 0 {
		prompt.WriteString("<policy_references>\n")
		prompt.WriteString("Ground the scenario in these SOP passages:\n")
		for _, ref := range refs {
			prompt.WriteString(fmt.Sprintf("--- %s ---\n%s\n", ref.Source, ref.Content))
		}
		prompt.WriteString("</policy_references>\n\n")
	}

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with a single JSON object:\n")
	prompt.WriteString(`{"title": string, "description": string, "required_steps": [string], "critical_errors": [string], "time_pressure": integer 1-10}`)
	prompt.WriteString("\nrequired_steps are the ordered actions the trainee must complete.\n")
	prompt.WriteString("critical_errors are trainee utterances that end the session immediately.\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

func applyDefaults(p scenarioPayload) *store.Scenario {
	scn := &store.Scenario{
		Title:          p.Title,
		Description:    p.Description,
		RequiredSteps:  p.RequiredSteps,
		CriticalErrors: p.CriticalErrors,
		TimePressure:   p.TimePressure,
	}
	if scn.Title == "" {
		scn.Title = "Untitled Scenario"
	}
	if scn.RequiredSteps == nil {
		scn.RequiredSteps = []string{}
	}
	if scn.CriticalErrors == nil {
		scn.CriticalErrors = []string{}
	}
	if scn.TimePressure < 1 {
		scn.TimePressure = 1
	}
	if scn.TimePressure > 10 {
		scn.TimePressure = 10
	}
	return scn
}
