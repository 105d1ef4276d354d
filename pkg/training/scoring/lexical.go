package scoring

import (
	"fmt"
	"strings"

	"vas-training-be/pkg/store"
)

// LexicalStrategy is the default deterministic heuristic: keyword coverage
// for required steps, substring match for critical errors, lexicon scoring
// for empathy and escalation, and a turn budget for time efficiency.
type LexicalStrategy struct {
	empathyLexicon    []string
	escalationLexicon []string
}

var _ Strategy = &LexicalStrategy{}

func NewLexicalStrategy() *LexicalStrategy {
	return &LexicalStrategy{
		empathyLexicon: []string{
			"sorry", "apologize", "apologies", "understand", "appreciate",
			"thank you", "i hear you", "that must be",
		},
		escalationLexicon: []string{
			"supervisor", "manager", "escalate", "duty manager",
		},
	}
}

func (s *LexicalStrategy) Score(transcript []store.Message, scn *store.Scenario, prior *store.ScoringMetrics, completed []string) Result {
	traineeText := collectText(transcript, store.RoleTrainee)
	lastTrainee := lastMessage(transcript, store.RoleTrainee)

	res := Result{}

	for _, step := range scn.RequiredSteps {
		if stepCovered(traineeText, step) {
			res.CompletedSteps = append(res.CompletedSteps, step)
			res.Evidence = append(res.Evidence, fmt.Sprintf("step covered: %s", step))
		}
	}

	for _, phrase := range scn.CriticalErrors {
		if phrase != "" && strings.Contains(lastTrainee, strings.ToLower(phrase)) {
			res.CriticalErrors = append(res.CriticalErrors, phrase)
			res.Evidence = append(res.Evidence, fmt.Sprintf("critical error: %s", phrase))
		}
	}

	stepsDone := len(mergeCount(completed, res.CompletedSteps))
	total := len(scn.RequiredSteps)
	ratio := 0.0
	if total > 0 {
		ratio = float64(stepsDone) / float64(total)
	}

	traineeTurns := countTurns(transcript, store.RoleTrainee)

	res.Metrics = store.ScoringMetrics{
		PolicyAdherence:    50 + store.RoundHalfUp(50*ratio) - 40*len(res.CriticalErrors),
		EmpathyIndex:       s.empathyScore(transcript),
		Completeness:       store.RoundHalfUp(100 * ratio),
		EscalationJudgment: s.escalationScore(traineeText, scn),
		TimeEfficiency:     timeEfficiency(traineeTurns, total),
	}
	return res
}

// stepCovered checks whether at least half of the step's significant words
// (longer than 3 runes) appear in the trainee's combined text.
func stepCovered(traineeText, step string) bool {
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(step)) {
		if len(word) > 3 {
			keywords = append(keywords, word)
		}
	}
	if len(keywords) == 0 {
		return false
	}

	hits := 0
	for _, kw := range keywords {
		if strings.Contains(traineeText, kw) {
			hits++
		}
	}
	return hits*2 >= len(keywords)
}

func (s *LexicalStrategy) empathyScore(transcript []store.Message) int {
	score := 40
	for _, msg := range transcript {
		if msg.Role != store.RoleTrainee {
			continue
		}
		lower := strings.ToLower(msg.Content)
		for _, term := range s.empathyLexicon {
			if strings.Contains(lower, term) {
				score += 12
				break // one credit per message, not per term
			}
		}
	}
	return score
}

// escalationScore rewards escalation under high time pressure and penalizes
// reflexive escalation when pressure is low.
func (s *LexicalStrategy) escalationScore(traineeText string, scn *store.Scenario) int {
	escalated := false
	for _, term := range s.escalationLexicon {
		if strings.Contains(traineeText, term) {
			escalated = true
			break
		}
	}

	switch {
	case escalated && scn.TimePressure >= 7:
		return 90
	case escalated && scn.TimePressure <= 3:
		return 50
	case escalated:
		return 75
	default:
		return 70
	}
}

// timeEfficiency gives full credit within the turn budget (one turn per
// required step plus two for greeting and wrap-up) and decays past it.
func timeEfficiency(traineeTurns, totalSteps int) int {
	budget := totalSteps + 2
	if traineeTurns <= budget {
		return 100
	}
	return 100 - 10*(traineeTurns-budget)
}

func collectText(transcript []store.Message, role string) string {
	var b strings.Builder
	for _, msg := range transcript {
		if msg.Role == role {
			b.WriteString(strings.ToLower(msg.Content))
			b.WriteString(" ")
		}
	}
	return b.String()
}

func lastMessage(transcript []store.Message, role string) string {
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == role {
			return strings.ToLower(transcript[i].Content)
		}
	}
	return ""
}

func countTurns(transcript []store.Message, role string) int {
	n := 0
	for _, msg := range transcript {
		if msg.Role == role {
			n++
		}
	}
	return n
}

func mergeCount(a, b []string) map[string]bool {
	m := make(map[string]bool, len(a)+len(b))
	for _, s := range a {
		m[s] = true
	}
	for _, s := range b {
		m[s] = true
	}
	return m
}
