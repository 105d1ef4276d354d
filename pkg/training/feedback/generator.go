// Package feedback synthesizes the final structured report for a session.
// This stage always succeeds: generation and retrieval failures degrade to
// the minimal report so feedback can never block session completion.
package feedback

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"vas-training-be/pkg/lenient"
	"vas-training-be/pkg/llm"
	"vas-training-be/pkg/retrieval"
	"vas-training-be/pkg/store"
)

// Generator is the FeedbackStage.
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

type feedbackPayload struct {
	Summary    string `json:"summary"`
	Dimensions []struct {
		Dimension    string   `json:"dimension"`
		Trend        string   `json:"trend"`
		Strengths    []string `json:"strengths"`
		Weaknesses   []string `json:"weaknesses"`
		Improvements []string `json:"improvements"`
	} `json:"dimensions"`
	Recommendations []string `json:"recommendations"`
	Resources       []string `json:"resources"`
	NextSteps       []string `json:"next_steps"`
}

// Generate builds the feedback report. It never returns an error.
func (g *Generator) Generate(ctx context.Context, transcript []store.Message, scores store.ScoringMetrics, scn *store.Scenario, persona *store.Persona) *store.FeedbackReport {
	report := Minimal(scores, scn)
	report.Citations = g.lookupCitations(ctx, scn)

	prompt := g.buildPrompt(transcript, scores, scn, persona)

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.provider.Generate(callCtx, prompt, llm.WithTemperature(0.4))
	if err != nil {
		g.logger.Printf("[FEEDBACK] generation degraded to minimal report: %v", err)
		return report
	}

	var payload feedbackPayload
	if err := lenient.Decode(raw, &payload); err != nil {
		g.logger.Printf("[FEEDBACK] unparseable report, keeping minimal: %v", err)
		return report
	}

	merge(report, payload, scores)
	return report
}

// merge overlays the generated narrative on the computed skeleton. Scores
// and the grade always come from the metrics, never from the model.
func merge(report *store.FeedbackReport, payload feedbackPayload, scores store.ScoringMetrics) {
	if payload.Summary != "" {
		report.Summary = payload.Summary
	}
	if len(payload.Recommendations) > 0 {
		report.Recommendations = payload.Recommendations
	}
	if len(payload.Resources) > 0 {
		report.Resources = payload.Resources
	}
	if len(payload.NextSteps) > 0 {
		report.NextSteps = payload.NextSteps
	}

	byName := dimensionScores(scores)
	for _, d := range payload.Dimensions {
		score, ok := byName[d.Dimension]
		if !ok {
			continue
		}
		for i := range report.Dimensions {
			if report.Dimensions[i].Dimension != d.Dimension {
				continue
			}
			report.Dimensions[i].Score = score
			if d.Trend != "" {
				report.Dimensions[i].Trend = d.Trend
			}
			if len(d.Strengths) > 0 {
				report.Dimensions[i].Strengths = d.Strengths
			}
			if len(d.Weaknesses) > 0 {
				report.Dimensions[i].Weaknesses = d.Weaknesses
			}
			if len(d.Improvements) > 0 {
				report.Dimensions[i].Improvements = d.Improvements
			}
		}
	}
}

func (g *Generator) lookupCitations(ctx context.Context, scn *store.Scenario) []store.PolicyCitation {
	if g.retriever == nil || scn == nil {
		return nil
	}
	refs, err := g.retriever.Retrieve(ctx, scn.Title+" "+scn.Description, retrieval.Filter{})
	if err != nil {
		g.logger.Printf("[FEEDBACK] citation retrieval degraded: %v", err)
		return nil
	}

	citations := make([]store.PolicyCitation, 0, len(refs))
	for _, ref := range refs {
		citations = append(citations, store.PolicyCitation{
			Source:  ref.Source,
			Excerpt: excerpt(ref.Content, 200),
		})
	}
	return citations
}

// Minimal builds the guaranteed baseline report from scores alone: overall
// score, grade, one strength, one improvement. Also used by the session
// store when force-completing stale sessions.
func Minimal(scores store.ScoringMetrics, scn *store.Scenario) *store.FeedbackReport {
	overall := scores.Overall()

	best, worst := extremes(scores)

	report := &store.FeedbackReport{
		OverallScore: overall,
		Grade:        store.GradeFor(overall),
		Summary:      fmt.Sprintf("Session scored %d overall (grade %s).", overall, store.GradeFor(overall)),
		Recommendations: []string{
			fmt.Sprintf("Focus your next session on %s.", worst),
		},
	}
	if scn != nil {
		report.NextSteps = []string{fmt.Sprintf("Retry the %q scenario at a higher difficulty.", scn.Title)}
	}

	for name, score := range dimensionScores(scores) {
		analysis := store.DimensionAnalysis{
			Dimension: name,
			Score:     score,
			Trend:     "steady",
		}
		if name == best {
			analysis.Strengths = []string{fmt.Sprintf("%s was your strongest dimension.", name)}
		}
		if name == worst {
			analysis.Improvements = []string{fmt.Sprintf("%s has the most room to grow.", name)}
		}
		report.Dimensions = append(report.Dimensions, analysis)
	}

	// Map iteration order is random; keep the report stable for callers.
	sortDimensions(report.Dimensions)
	return report
}

var dimensionOrder = []string{
	"policy_adherence",
	"empathy_index",
	"completeness",
	"escalation_judgment",
	"time_efficiency",
}

func dimensionScores(m store.ScoringMetrics) map[string]int {
	return map[string]int{
		"policy_adherence":    m.PolicyAdherence,
		"empathy_index":       m.EmpathyIndex,
		"completeness":        m.Completeness,
		"escalation_judgment": m.EscalationJudgment,
		"time_efficiency":     m.TimeEfficiency,
	}
}

func sortDimensions(dims []store.DimensionAnalysis) {
	pos := make(map[string]int, len(dimensionOrder))
	for i, name := range dimensionOrder {
		pos[name] = i
	}
	for i := 1; i < len(dims); i++ {
		for j := i; j > 0 && pos[dims[j].Dimension] < pos[dims[j-1].Dimension]; j-- {
			dims[j], dims[j-1] = dims[j-1], dims[j]
		}
	}
}

func extremes(m store.ScoringMetrics) (best, worst string) {
	scores := dimensionScores(m)
	best, worst = dimensionOrder[0], dimensionOrder[0]
	for _, name := range dimensionOrder {
		if scores[name] > scores[best] {
			best = name
		}
		if scores[name] < scores[worst] {
			worst = name
		}
	}
	return best, worst
}

func excerpt(content string, limit int) string {
	if len(content) <= limit {
		return content
	}
	return content[:limit] + "..."
}

func (g *Generator) buildPrompt(transcript []store.Message, scores store.ScoringMetrics, scn *store.Scenario, persona *store.Persona) string {
	var prompt strings.Builder

	prompt.WriteString("<feedback_request>\n")
	prompt.WriteString("You are a guest-service training coach writing the final session review.\n")
	if scn != nil {
		prompt.WriteString(fmt.Sprintf("Scenario: %s - %s\n", scn.Title, scn.Description))
	}
	if persona != nil {
		prompt.WriteString(fmt.Sprintf("Guest persona: %s (%s)\n", persona.Name, persona.CommunicationStyle))
	}
	prompt.WriteString("Final scores:\n")
	for _, name := range dimensionOrder {
		prompt.WriteString(fmt.Sprintf("- %s: %d\n", name, dimensionScores(scores)[name]))
	}
	prompt.WriteString("</feedback_request>\n\n")

	prompt.WriteString("<transcript>\n")
	for _, msg := range transcript {
		prompt.WriteString(fmt.Sprintf("%s: %s\n", msg.Role, msg.Content))
	}
	prompt.WriteString("</transcript>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with a single JSON object:\n")
	prompt.WriteString(`{"summary": string, "dimensions": [{"dimension": string, "trend": "improving"|"steady"|"declining", "strengths": [string], "weaknesses": [string], "improvements": [string]}], "recommendations": [string], "resources": [string], "next_steps": [string]}`)
	prompt.WriteString("\nUse the dimension names exactly as listed above. Do not invent scores; they are computed separately.\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}
