package feedback

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vas-training-be/internal/apperror"
	"vas-training-be/pkg/llm/stub"
	"vas-training-be/pkg/store"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func sampleScores() store.ScoringMetrics {
	return store.ScoringMetrics{
		PolicyAdherence:    80,
		EmpathyIndex:       92,
		Completeness:       75,
		EscalationJudgment: 70,
		TimeEfficiency:     60,
	}
}

func sampleScenario() *store.Scenario {
	return &store.Scenario{
		Title:         "Double-Booked Suite",
		Description:   "Two guests hold confirmations for the same suite.",
		RequiredSteps: []string{"acknowledge the problem", "offer an alternative room"},
		TimePressure:  7,
	}
}

func TestGenerateMergesNarrativeOverSkeleton(t *testing.T) {
	provider := stub.New()
	provider.Responses["<feedback_request>"] = `{
		"summary": "Strong empathy, slow resolution.",
		"dimensions": [
			{"dimension": "empathy_index", "trend": "improving", "strengths": ["warm tone throughout"]},
			{"dimension": "made_up_dimension", "strengths": ["should be dropped"]}
		],
		"recommendations": ["practice faster room reassignment"],
		"next_steps": ["shadow a senior agent"]
	}`

	gen := NewGenerator(provider, nil, testLogger(), time.Second)
	report := gen.Generate(context.Background(), nil, sampleScores(), sampleScenario(), nil)

	require.NotNil(t, report)
	assert.Equal(t, "Strong empathy, slow resolution.", report.Summary)
	assert.Equal(t, []string{"practice faster room reassignment"}, report.Recommendations)
	assert.Equal(t, []string{"shadow a senior agent"}, report.NextSteps)

	// Scores and grade stay computed, never model-supplied.
	assert.Equal(t, 75, report.OverallScore)
	assert.Equal(t, "C", report.Grade)

	require.Len(t, report.Dimensions, 5)
	for _, d := range report.Dimensions {
		assert.NotEqual(t, "made_up_dimension", d.Dimension)
		if d.Dimension == "empathy_index" {
			assert.Equal(t, 92, d.Score)
			assert.Equal(t, "improving", d.Trend)
			assert.Equal(t, []string{"warm tone throughout"}, d.Strengths)
		}
	}
}

func TestGenerateDegradesToMinimalOnProviderFailure(t *testing.T) {
	provider := stub.New()
	provider.Fail(apperror.GenerationUnavailable)

	gen := NewGenerator(provider, nil, testLogger(), time.Second)
	report := gen.Generate(context.Background(), nil, sampleScores(), sampleScenario(), nil)

	require.NotNil(t, report)
	assert.Equal(t, 75, report.OverallScore)
	assert.Equal(t, "C", report.Grade)
	assert.NotEmpty(t, report.Summary)
	assert.NotEmpty(t, report.Recommendations)
	assert.Len(t, report.Dimensions, 5)
}

func TestGenerateDegradesToMinimalOnUnparseableOutput(t *testing.T) {
	provider := stub.New()
	provider.Responses["<feedback_request>"] = "the session went fine, no notes"

	gen := NewGenerator(provider, nil, testLogger(), time.Second)
	report := gen.Generate(context.Background(), nil, sampleScores(), sampleScenario(), nil)

	require.NotNil(t, report)
	assert.Equal(t, 75, report.OverallScore)
	assert.NotEmpty(t, report.Summary)
}

func TestMinimalReportNamesBestAndWorstDimensions(t *testing.T) {
	report := Minimal(sampleScores(), sampleScenario())

	require.Len(t, report.Dimensions, 5)

	var bestStrengths, worstImprovements []string
	for _, d := range report.Dimensions {
		if d.Dimension == "empathy_index" {
			bestStrengths = d.Strengths
		}
		if d.Dimension == "time_efficiency" {
			worstImprovements = d.Improvements
		}
	}
	assert.NotEmpty(t, bestStrengths)
	assert.NotEmpty(t, worstImprovements)
	assert.Contains(t, report.Recommendations[0], "time_efficiency")
}

func TestMinimalDimensionOrderIsStable(t *testing.T) {
	want := []string{
		"policy_adherence",
		"empathy_index",
		"completeness",
		"escalation_judgment",
		"time_efficiency",
	}
	for i := 0; i < 20; i++ {
		report := Minimal(sampleScores(), nil)
		require.Len(t, report.Dimensions, 5)
		for j, d := range report.Dimensions {
			assert.Equal(t, want[j], d.Dimension)
		}
	}
}
