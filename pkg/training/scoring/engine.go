// Package scoring computes per-turn and cumulative scoring metrics from the
// transcript. The heuristic itself is a pluggable Strategy; the engine
// enforces the contract around it: completedSteps grow monotonically,
// criticalErrors are append-only, and every dimension is clamped to [0,100].
package scoring

import (
	"vas-training-be/pkg/store"
)

// Result is one scoring pass over a transcript prefix.
type Result struct {
	Metrics        store.ScoringMetrics
	CompletedSteps []string // superset of the prior completed set
	CriticalErrors []string // critical errors matched in the latest trainee turn
	Evidence       []string
}

// Strategy computes raw metrics and step/error detection. Implementations
// must be deterministic: the same transcript prefix yields the same result.
type Strategy interface {
	Score(transcript []store.Message, scn *store.Scenario, prior *store.ScoringMetrics, completed []string) Result
}

// Engine wraps a Strategy and enforces monotonicity and clamping.
type Engine struct {
	strategy Strategy
}

func NewEngine(strategy Strategy) *Engine {
	if strategy == nil {
		strategy = NewLexicalStrategy()
	}
	return &Engine{strategy: strategy}
}

// Score runs the strategy and normalizes its output. completed is the
// session's current completed set; the returned set always contains it.
func (e *Engine) Score(transcript []store.Message, scn *store.Scenario, prior *store.ScoringMetrics, completed []string) Result {
	res := e.strategy.Score(transcript, scn, prior, completed)

	res.Metrics.PolicyAdherence = store.ClampScore(res.Metrics.PolicyAdherence)
	res.Metrics.EmpathyIndex = store.ClampScore(res.Metrics.EmpathyIndex)
	res.Metrics.Completeness = store.ClampScore(res.Metrics.Completeness)
	res.Metrics.EscalationJudgment = store.ClampScore(res.Metrics.EscalationJudgment)
	res.Metrics.TimeEfficiency = store.ClampScore(res.Metrics.TimeEfficiency)

	res.CompletedSteps = mergeOrdered(scn, completed, res.CompletedSteps)
	return res
}

// mergeOrdered unions prior and detected completed steps, restricted to the
// scenario's required steps and kept in the scenario's order.
func mergeOrdered(scn *store.Scenario, prior, detected []string) []string {
	seen := make(map[string]bool, len(prior)+len(detected))
	for _, s := range prior {
		seen[s] = true
	}
	for _, s := range detected {
		seen[s] = true
	}

	merged := make([]string, 0, len(seen))
	for _, step := range scn.RequiredSteps {
		if seen[step] {
			merged = append(merged, step)
		}
	}
	return merged
}
