package store

import "testing"

func TestOverallDerivation(t *testing.T) {
	tests := []struct {
		name    string
		metrics ScoringMetrics
		want    int
	}{
		{
			name:    "uniform scores",
			metrics: ScoringMetrics{80, 80, 80, 80, 80},
			want:    80,
		},
		{
			name:    "mean 70.4 rounds down",
			metrics: ScoringMetrics{70, 70, 70, 70, 72}, // 352/5
			want:    70,
		},
		{
			name:    "mean 70.6 rounds up",
			metrics: ScoringMetrics{71, 71, 71, 70, 70}, // 353/5
			want:    71,
		},
		{
			name:    "zeros",
			metrics: ScoringMetrics{},
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.metrics.Overall(); got != tt.want {
				t.Errorf("Overall() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0.4, 0},
		{0.5, 1},
		{70.5, 71},
		{99.49, 99},
		{100.0, 100},
	}
	for _, tt := range tests {
		if got := RoundHalfUp(tt.in); got != tt.want {
			t.Errorf("RoundHalfUp(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestGradeFor(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{100, "A"},
		{90, "A"},
		{89, "B"},
		{80, "B"},
		{79, "C"},
		{70, "C"},
		{69, "D"},
		{60, "D"},
		{59, "F"},
		{0, "F"},
	}
	for _, tt := range tests {
		if got := GradeFor(tt.score); got != tt.want {
			t.Errorf("GradeFor(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestCompletionPercentage(t *testing.T) {
	scn := &Scenario{RequiredSteps: []string{"a", "b", "c"}}

	tests := []struct {
		name    string
		session Session
		want    int
	}{
		{
			name:    "no scenario",
			session: Session{},
			want:    0,
		},
		{
			name:    "empty required steps",
			session: Session{Scenario: &Scenario{}},
			want:    0,
		},
		{
			name:    "none completed",
			session: Session{Scenario: scn},
			want:    0,
		},
		{
			name:    "one of three",
			session: Session{Scenario: scn, CompletedSteps: []string{"a"}},
			want:    33,
		},
		{
			name:    "two of three",
			session: Session{Scenario: scn, CompletedSteps: []string{"a", "b"}},
			want:    67,
		},
		{
			name:    "all completed",
			session: Session{Scenario: scn, CompletedSteps: []string{"a", "b", "c"}},
			want:    100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.session.CompletionPercentage(); got != tt.want {
				t.Errorf("CompletionPercentage() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSessionClone(t *testing.T) {
	orig := &Session{
		ID:             "s1",
		Status:         StatusActive,
		Messages:       []Message{{Role: RoleTrainee, Content: "hi"}},
		CompletedSteps: []string{"a"},
		Scores:         &ScoringMetrics{PolicyAdherence: 50},
	}

	cp := orig.Clone()
	cp.Messages[0].Content = "changed"
	cp.CompletedSteps[0] = "changed"
	cp.Scores.PolicyAdherence = 99

	if orig.Messages[0].Content != "hi" {
		t.Error("clone shares messages backing array")
	}
	if orig.CompletedSteps[0] != "a" {
		t.Error("clone shares completed steps backing array")
	}
	if orig.Scores.PolicyAdherence != 50 {
		t.Error("clone shares scores pointer")
	}
}

func TestEmotionIndex(t *testing.T) {
	p := &Persona{EmotionalArc: []string{"frustrated", "neutral", "satisfied"}}

	if idx := p.EmotionIndex("neutral"); idx != 1 {
		t.Errorf("EmotionIndex(neutral) = %d, want 1", idx)
	}
	if idx := p.EmotionIndex("euphoric"); idx != -1 {
		t.Errorf("EmotionIndex(unknown) = %d, want -1", idx)
	}
}
