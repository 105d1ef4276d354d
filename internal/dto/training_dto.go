package dto

import (
	"time"

	"vas-training-be/pkg/store"
)

type StartSessionRequest struct {
	TrainingObjective string `json:"training_objective" validate:"required,min=1,max=500"`
	Difficulty        string `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	Category          string `json:"category" validate:"omitempty,oneof=booking complaint overbooking general"`
	UserId            string `json:"user_id" validate:"omitempty,max=100"`
}

// ScenarioView omits critical_errors so the trainee cannot game them.
type ScenarioView struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	RequiredSteps []string `json:"required_steps"`
	TimePressure  int      `json:"time_pressure"`
}

// PersonaView omits hidden_motivations and the emotional arc.
type PersonaView struct {
	Name               string `json:"name"`
	Background         string `json:"background"`
	CommunicationStyle string `json:"communication_style"`
}

type StartSessionResponse struct {
	SessionId   string       `json:"session_id"`
	Scenario    ScenarioView `json:"scenario"`
	Persona     PersonaView  `json:"persona"`
	OpeningLine string       `json:"opening_line"`
	Status      string       `json:"status"`
}

type RespondRequest struct {
	UserResponse string `json:"user_response" validate:"required"`
}

type FeedbackSummary struct {
	OverallScore    int      `json:"overall_score"`
	Grade           string   `json:"grade"`
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
}

type RespondResponse struct {
	SessionId     string           `json:"session_id"`
	SessionStatus string           `json:"session_status"`
	CurrentTurn   int              `json:"current_turn"`
	GuestResponse string           `json:"guest_response,omitempty"`
	Feedback      *FeedbackSummary `json:"feedback,omitempty"`
}

type SessionProgress struct {
	CurrentTurn          int      `json:"current_turn"`
	CompletedSteps       []string `json:"completed_steps"`
	RequiredSteps        []string `json:"required_steps"`
	CompletionPercentage int      `json:"completion_percentage"`
}

type StatusResponse struct {
	SessionId       string                `json:"session_id"`
	SessionStatus   string                `json:"session_status"`
	Scenario        *ScenarioView         `json:"scenario,omitempty"`
	Persona         *PersonaView          `json:"persona,omitempty"`
	Progress        SessionProgress       `json:"progress"`
	Scores          *store.ScoringMetrics `json:"scores,omitempty"`
	SessionDuration int64                 `json:"session_duration_ms"`
	LastActivity    time.Time             `json:"last_activity"`
	CriticalErrors  []string              `json:"critical_errors"`
}

type SessionSummary struct {
	SessionId     string    `json:"session_id"`
	SessionStatus string    `json:"session_status"`
	ScenarioTitle string    `json:"scenario_title,omitempty"`
	CurrentTurn   int       `json:"current_turn"`
	CreatedAt     time.Time `json:"created_at"`
}

type StoreStatsResponse struct {
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

func NewScenarioView(scn *store.Scenario) ScenarioView {
	if scn == nil {
		return ScenarioView{}
	}
	return ScenarioView{
		Title:         scn.Title,
		Description:   scn.Description,
		RequiredSteps: scn.RequiredSteps,
		TimePressure:  scn.TimePressure,
	}
}

func NewPersonaView(p *store.Persona) PersonaView {
	if p == nil {
		return PersonaView{}
	}
	return PersonaView{
		Name:               p.Name,
		Background:         p.Background,
		CommunicationStyle: p.CommunicationStyle,
	}
}
