package store

import (
	"math"
	"time"
)

// Session status values
const (
	StatusCreating = "creating"
	StatusActive   = "active"
	StatusPaused   = "paused"
	StatusComplete = "complete"
)

// Message roles
const (
	RoleTrainee = "trainee"
	RoleGuest   = "guest"
)

// Scenario is the training situation presented to the trainee.
// Immutable once attached to a Session.
type Scenario struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	RequiredSteps  []string `json:"required_steps"`
	CriticalErrors []string `json:"critical_errors"`
	TimePressure   int      `json:"time_pressure"` // 1..10
}

// Persona is the simulated guest's character profile.
// HiddenMotivations are never surfaced to the trainee.
type Persona struct {
	Name               string   `json:"name"`
	Background         string   `json:"background"`
	PersonalityTraits  []string `json:"personality_traits"`
	HiddenMotivations  []string `json:"hidden_motivations"`
	CommunicationStyle string   `json:"communication_style"`
	EmotionalArc       []string `json:"emotional_arc"` // forward-only progression
}

// EmotionIndex returns the position of emotion in the persona's arc, -1 if absent.
func (p *Persona) EmotionIndex(emotion string) int {
	for i, e := range p.EmotionalArc {
		if e == emotion {
			return i
		}
	}
	return -1
}

// ScoringMetrics holds the five scoring dimensions, each clamped to [0,100].
// Overall is derived, never stored.
type ScoringMetrics struct {
	PolicyAdherence    int `json:"policy_adherence"`
	EmpathyIndex       int `json:"empathy_index"`
	Completeness       int `json:"completeness"`
	EscalationJudgment int `json:"escalation_judgment"`
	TimeEfficiency     int `json:"time_efficiency"`
}

// Overall derives the aggregate score: round-half-up of the mean of the five
// dimensions. It is computed on demand so it can never drift from its inputs.
func (m ScoringMetrics) Overall() int {
	sum := m.PolicyAdherence + m.EmpathyIndex + m.Completeness + m.EscalationJudgment + m.TimeEfficiency
	return RoundHalfUp(float64(sum) / 5.0)
}

// Message is a single conversation entry. Append-only per session.
type Message struct {
	Role      string    `json:"role"` // "trainee" | "guest"
	Content   string    `json:"content"`
	TurnIndex int       `json:"turn_index"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the mutable in-flight training session state.
type Session struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"owner_id"`
	Status         string          `json:"status"`
	Scenario       *Scenario       `json:"scenario,omitempty"`
	Persona        *Persona        `json:"persona,omitempty"`
	CurrentEmotion string          `json:"current_emotion,omitempty"`
	Messages       []Message       `json:"messages"`
	TurnCount      int             `json:"turn_count"`
	CompletedSteps []string        `json:"completed_steps"`
	CriticalErrors []string        `json:"critical_errors"`
	Scores         *ScoringMetrics `json:"scores,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	LastActivityAt time.Time       `json:"last_activity_at"`
}

// HasCompletedStep reports whether step is already in the completed set.
func (s *Session) HasCompletedStep(step string) bool {
	for _, done := range s.CompletedSteps {
		if done == step {
			return true
		}
	}
	return false
}

// CompletionPercentage is the integer percentage of required steps satisfied,
// 0 when the scenario defines no required steps.
func (s *Session) CompletionPercentage() int {
	if s.Scenario == nil || len(s.Scenario.RequiredSteps) == 0 {
		return 0
	}
	return RoundHalfUp(100 * float64(len(s.CompletedSteps)) / float64(len(s.Scenario.RequiredSteps)))
}

// Clone returns a deep copy so readers never observe a partial merge.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Messages = append([]Message(nil), s.Messages...)
	cp.CompletedSteps = append([]string(nil), s.CompletedSteps...)
	cp.CriticalErrors = append([]string(nil), s.CriticalErrors...)
	if s.Scores != nil {
		scores := *s.Scores
		cp.Scores = &scores
	}
	return &cp
}

// CompletedSession is the immutable archive snapshot of a terminal session.
type CompletedSession struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	Scenario    *Scenario       `json:"scenario"`
	Persona     *Persona        `json:"persona"`
	Transcript  []Message       `json:"transcript"`
	FinalScores ScoringMetrics  `json:"final_scores"`
	Feedback    *FeedbackReport `json:"feedback"`
	DurationMs  int64           `json:"duration_ms"`
	CompletedAt time.Time       `json:"completed_at"`
}

// DimensionAnalysis is the per-dimension breakdown inside a feedback report.
type DimensionAnalysis struct {
	Dimension    string   `json:"dimension"`
	Score        int      `json:"score"`
	Trend        string   `json:"trend"` // "improving" | "steady" | "declining"
	Strengths    []string `json:"strengths"`
	Weaknesses   []string `json:"weaknesses"`
	Improvements []string `json:"improvements"`
}

// PolicyCitation references a retrieved SOP passage used in feedback.
type PolicyCitation struct {
	Source  string `json:"source"`
	Excerpt string `json:"excerpt"`
}

// FeedbackReport is the final structured feedback for a completed session.
type FeedbackReport struct {
	OverallScore    int                 `json:"overall_score"`
	Grade           string              `json:"grade"`
	Summary         string              `json:"summary"`
	Dimensions      []DimensionAnalysis `json:"dimensions"`
	Citations       []PolicyCitation    `json:"citations,omitempty"`
	Recommendations []string            `json:"recommendations"`
	Resources       []string            `json:"resources,omitempty"`
	NextSteps       []string            `json:"next_steps,omitempty"`
}

// GradeFor maps an overall score to a letter grade using the fixed
// threshold table: >=90 A, >=80 B, >=70 C, >=60 D, else F.
func GradeFor(overall int) string {
	switch {
	case overall >= 90:
		return "A"
	case overall >= 80:
		return "B"
	case overall >= 70:
		return "C"
	case overall >= 60:
		return "D"
	default:
		return "F"
	}
}

// RoundHalfUp rounds to the nearest integer with halves rounding up.
func RoundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// ClampScore bounds a score to [0,100].
func ClampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
