package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"vas-training-be/internal/apperror"
	"vas-training-be/internal/config"
	"vas-training-be/internal/dto"
	"vas-training-be/internal/pkg/logger"
	"vas-training-be/internal/repository/memory"
	"vas-training-be/pkg/events"
	"vas-training-be/pkg/store"
	"vas-training-be/pkg/training/feedback"
	"vas-training-be/pkg/training/guest"
	"vas-training-be/pkg/training/persona"
	"vas-training-be/pkg/training/scenario"
	"vas-training-be/pkg/training/scoring"
)

// ProgressNotifier pushes live session frames to watchers. The websocket hub
// implements it; tests pass nil.
type ProgressNotifier interface {
	Push(sessionID string, frameType string, payload interface{})
}

// EventPublisher sends domain events to the NATS bus. Optional; nil skips
// event emission.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

const (
	frameSessionUpdate   = "session_update"
	frameSessionComplete = "session_complete"
)

type ITrainingService interface {
	Start(ctx context.Context, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error)
	Respond(ctx context.Context, sessionID, userResponse string) (*dto.RespondResponse, error)
	End(ctx context.Context, sessionID string) (*store.CompletedSession, error)
	Status(sessionID string) (*dto.StatusResponse, error)
	Pause(sessionID string) bool
	Resume(sessionID string) bool
	ListSessions() ([]dto.SessionSummary, dto.StoreStatsResponse)
	GetFeedback(sessionID string) (*store.FeedbackReport, error)
	RunSweeper(ctx context.Context)
}

// trainingService is the orchestrator: it drives a session through
// creating, active, paused and complete, calling one stage at a time.
type trainingService struct {
	sessions     *memory.SessionStore
	scenarioGen  *scenario.Generator
	personaGen   *persona.Generator
	guestSim     *guest.Simulator
	scoringEng   *scoring.Engine
	feedbackGen  *feedback.Generator
	publisher    IPublisherService
	eventBus     EventPublisher
	notifier     ProgressNotifier
	sysLogger    logger.ILogger
	trainingConf config.TrainingConfig
}

func NewTrainingService(
	sessions *memory.SessionStore,
	scenarioGen *scenario.Generator,
	personaGen *persona.Generator,
	guestSim *guest.Simulator,
	scoringEng *scoring.Engine,
	feedbackGen *feedback.Generator,
	publisher IPublisherService,
	eventBus EventPublisher,
	notifier ProgressNotifier,
	sysLogger logger.ILogger,
	trainingConf config.TrainingConfig,
) ITrainingService {
	return &trainingService{
		sessions:     sessions,
		scenarioGen:  scenarioGen,
		personaGen:   personaGen,
		guestSim:     guestSim,
		scoringEng:   scoringEng,
		feedbackGen:  feedbackGen,
		publisher:    publisher,
		eventBus:     eventBus,
		notifier:     notifier,
		sysLogger:    sysLogger,
		trainingConf: trainingConf,
	}
}

func (s *trainingService) Start(ctx context.Context, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error) {
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = "beginner"
	}
	category := req.Category
	if category == "" {
		category = "general"
	}

	session := s.sessions.Create(req.UserId)

	scn, err := s.scenarioGen.Generate(ctx, scenario.Request{
		TrainingObjective: req.TrainingObjective,
		Difficulty:        difficulty,
		Category:          category,
	})
	if err != nil {
		// Session stays in creating; the caller decides whether to retry.
		s.sysLogger.Error("Training", "Scenario generation failed", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
		return nil, err
	}

	per, err := s.personaGen.Generate(ctx, scn)
	if err != nil {
		s.sysLogger.Error("Training", "Persona generation failed", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
		return nil, err
	}

	opening := guest.OpeningLine(per, scn)
	currentEmotion := ""
	if len(per.EmotionalArc) > 0 {
		currentEmotion = per.EmotionalArc[0]
	}

	activeStatus := store.StatusActive
	err = s.sessions.Update(session.ID, memory.SessionPatch{
		Status:         &activeStatus,
		Scenario:       scn,
		Persona:        per,
		CurrentEmotion: &currentEmotion,
		Messages: []store.Message{{
			Role:      store.RoleGuest,
			Content:   opening,
			TurnIndex: 0,
			Timestamp: time.Now(),
		}},
	})
	if err != nil {
		return nil, err
	}

	s.sysLogger.Info("Training", "Session started", map[string]interface{}{
		"session_id": session.ID,
		"scenario":   scn.Title,
		"difficulty": difficulty,
		"category":   category,
	})
	s.push(session.ID, frameSessionUpdate, map[string]interface{}{
		"session_id": session.ID,
		"status":     store.StatusActive,
	})

	return &dto.StartSessionResponse{
		SessionId:   session.ID,
		Scenario:    dto.NewScenarioView(scn),
		Persona:     dto.NewPersonaView(per),
		OpeningLine: opening,
		Status:      "ready",
	}, nil
}

func (s *trainingService) Respond(ctx context.Context, sessionID, userResponse string) (*dto.RespondResponse, error) {
	trimmed := strings.TrimSpace(userResponse)
	if len(trimmed) == 0 {
		return nil, apperror.NewValidation("user_response", "must not be empty")
	}
	if utf8.RuneCountInString(trimmed) > 2000 {
		return nil, apperror.NewValidation("user_response", "must be at most 2000 characters")
	}

	unlock := s.sessions.LockSession(sessionID)
	defer unlock()

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		// A completed session still exists in the archive; distinguish it
		// from one that was never created.
		if _, archErr := s.sessions.GetCompleted(sessionID); archErr == nil {
			return nil, apperror.NewInvalidState(sessionID, store.StatusComplete, "respond")
		}
		return nil, err
	}
	if session.Status != store.StatusActive {
		return nil, apperror.NewInvalidState(sessionID, session.Status, "respond")
	}

	turnCount := session.TurnCount + 1
	traineeMsg := store.Message{
		Role:      store.RoleTrainee,
		Content:   trimmed,
		TurnIndex: turnCount,
		Timestamp: time.Now(),
	}
	transcript := append(append([]store.Message(nil), session.Messages...), traineeMsg)

	result := s.scoringEng.Score(transcript, session.Scenario, session.Scores, session.CompletedSteps)
	criticalHit := len(result.CriticalErrors) > 0
	criticalErrors := mergeAppend(session.CriticalErrors, result.CriticalErrors)

	newSteps := make([]string, 0, len(result.CompletedSteps))
	for _, step := range result.CompletedSteps {
		if !session.HasCompletedStep(step) {
			newSteps = append(newSteps, step)
		}
	}

	newMessages := []store.Message{traineeMsg}
	currentEmotion := session.CurrentEmotion
	guestReply := ""

	// A critical error ends the session immediately; the guest gets no turn.
	if !criticalHit {
		turn := s.guestSim.NextTurn(ctx, session.Persona, session.Scenario, transcript, currentEmotion)
		guestReply = turn.Reply
		currentEmotion = turn.Emotion
		guestMsg := store.Message{
			Role:      store.RoleGuest,
			Content:   turn.Reply,
			TurnIndex: turnCount,
			Timestamp: time.Now(),
		}
		newMessages = append(newMessages, guestMsg)
		transcript = append(transcript, guestMsg)
	}

	allSteps := session.Scenario != nil &&
		len(session.Scenario.RequiredSteps) > 0 &&
		len(result.CompletedSteps) == len(session.Scenario.RequiredSteps)
	terminal := criticalHit || allSteps || turnCount >= s.trainingConf.MaxTurns

	err = s.sessions.Update(sessionID, memory.SessionPatch{
		Messages:       newMessages,
		TurnCount:      &turnCount,
		CompletedSteps: result.CompletedSteps,
		CriticalErrors: criticalErrors,
		Scores:         &result.Metrics,
		CurrentEmotion: &currentEmotion,
	})
	if err != nil {
		return nil, err
	}

	if !terminal {
		s.push(sessionID, frameSessionUpdate, map[string]interface{}{
			"session_id":      sessionID,
			"current_turn":    turnCount,
			"completed_steps": result.CompletedSteps,
			"new_steps":       newSteps,
		})
		return &dto.RespondResponse{
			SessionId:     sessionID,
			SessionStatus: store.StatusActive,
			CurrentTurn:   turnCount,
			GuestResponse: guestReply,
		}, nil
	}

	completed, err := s.finishSession(ctx, sessionID, transcript, result.Metrics, session.Scenario, session.Persona)
	if err != nil {
		return nil, err
	}

	resp := &dto.RespondResponse{
		SessionId:     sessionID,
		SessionStatus: store.StatusComplete,
		CurrentTurn:   turnCount,
		GuestResponse: guestReply,
	}
	if completed.Feedback != nil {
		resp.Feedback = &dto.FeedbackSummary{
			OverallScore:    completed.Feedback.OverallScore,
			Grade:           completed.Feedback.Grade,
			Summary:         completed.Feedback.Summary,
			Recommendations: completed.Feedback.Recommendations,
		}
	}
	return resp, nil
}

func (s *trainingService) End(ctx context.Context, sessionID string) (*store.CompletedSession, error) {
	unlock := s.sessions.LockSession(sessionID)
	defer unlock()

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		// A paused session can still be ended; bring it back first.
		if !s.sessions.Resume(sessionID) {
			return nil, err
		}
		session, err = s.sessions.Get(sessionID)
		if err != nil {
			return nil, err
		}
	}
	// A session that never finished starting has nothing to close.
	if session.Status == store.StatusCreating {
		return nil, apperror.NewNotFound("session", sessionID)
	}

	var metrics store.ScoringMetrics
	if session.Scores != nil {
		metrics = *session.Scores
	}

	return s.finishSession(ctx, sessionID, session.Messages, metrics, session.Scenario, session.Persona)
}

// finishSession runs the feedback stage, archives the session, and fans the
// completion out. Callers must hold the session lock.
func (s *trainingService) finishSession(ctx context.Context, sessionID string, transcript []store.Message, metrics store.ScoringMetrics, scn *store.Scenario, per *store.Persona) (*store.CompletedSession, error) {
	report := s.feedbackGen.Generate(ctx, transcript, metrics, scn, per)

	completed, err := s.sessions.Complete(sessionID, report)
	if err != nil {
		return nil, err
	}

	s.sysLogger.Info("Training", "Session completed", map[string]interface{}{
		"session_id":    sessionID,
		"overall_score": report.OverallScore,
		"grade":         report.Grade,
		"turns":         len(transcript),
	})

	s.publishCompleted(ctx, completed)
	s.push(sessionID, frameSessionComplete, map[string]interface{}{
		"session_id":    sessionID,
		"overall_score": report.OverallScore,
		"grade":         report.Grade,
	})

	return completed, nil
}

func (s *trainingService) publishCompleted(ctx context.Context, completed *store.CompletedSession) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(completed)
	if err != nil {
		s.sysLogger.Error("Training", "Failed to marshal completed session", map[string]interface{}{
			"session_id": completed.ID,
			"error":      err.Error(),
		})
		return
	}
	if err := s.publisher.Publish(ctx, payload); err != nil {
		// Persistence is best-effort; the archive still holds the session.
		s.sysLogger.Error("Training", "Failed to publish completed session", map[string]interface{}{
			"session_id": completed.ID,
			"error":      err.Error(),
		})
	}
}

func (s *trainingService) Status(sessionID string) (*dto.StatusResponse, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		// Completed sessions still answer status from the archive.
		completed, archErr := s.sessions.GetCompleted(sessionID)
		if archErr != nil {
			return nil, err
		}
		return completedStatus(completed), nil
	}

	resp := &dto.StatusResponse{
		SessionId:     session.ID,
		SessionStatus: session.Status,
		Progress: dto.SessionProgress{
			CurrentTurn:          session.TurnCount,
			CompletedSteps:       session.CompletedSteps,
			CompletionPercentage: session.CompletionPercentage(),
		},
		Scores:          session.Scores,
		SessionDuration: time.Since(session.CreatedAt).Milliseconds(),
		LastActivity:    session.LastActivityAt,
		CriticalErrors:  session.CriticalErrors,
	}
	if session.Scenario != nil {
		view := dto.NewScenarioView(session.Scenario)
		resp.Scenario = &view
		resp.Progress.RequiredSteps = session.Scenario.RequiredSteps
	}
	if session.Persona != nil {
		view := dto.NewPersonaView(session.Persona)
		resp.Persona = &view
	}
	return resp, nil
}

func completedStatus(completed *store.CompletedSession) *dto.StatusResponse {
	resp := &dto.StatusResponse{
		SessionId:       completed.ID,
		SessionStatus:   store.StatusComplete,
		SessionDuration: completed.DurationMs,
		LastActivity:    completed.CompletedAt,
		CriticalErrors:  []string{},
		Scores:          &completed.FinalScores,
	}
	if completed.Scenario != nil {
		view := dto.NewScenarioView(completed.Scenario)
		resp.Scenario = &view
		resp.Progress.RequiredSteps = completed.Scenario.RequiredSteps
	}
	if completed.Persona != nil {
		view := dto.NewPersonaView(completed.Persona)
		resp.Persona = &view
	}
	return resp
}

func (s *trainingService) Pause(sessionID string) bool {
	ok := s.sessions.Pause(sessionID)
	if ok {
		s.push(sessionID, frameSessionUpdate, map[string]interface{}{
			"session_id": sessionID,
			"status":     store.StatusPaused,
		})
	}
	return ok
}

func (s *trainingService) Resume(sessionID string) bool {
	ok := s.sessions.Resume(sessionID)
	if ok {
		s.push(sessionID, frameSessionUpdate, map[string]interface{}{
			"session_id": sessionID,
			"status":     store.StatusActive,
		})
	}
	return ok
}

func (s *trainingService) ListSessions() ([]dto.SessionSummary, dto.StoreStatsResponse) {
	live := s.sessions.ListSessions()

	summaries := make([]dto.SessionSummary, 0, len(live))
	for _, session := range live {
		summary := dto.SessionSummary{
			SessionId:     session.ID,
			SessionStatus: session.Status,
			CurrentTurn:   session.TurnCount,
			CreatedAt:     session.CreatedAt,
		}
		if session.Scenario != nil {
			summary.ScenarioTitle = session.Scenario.Title
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
	})

	stats := s.sessions.Stats()
	return summaries, dto.StoreStatsResponse{
		Active:    stats.Active,
		Completed: stats.Completed,
		Total:     stats.Total,
	}
}

func (s *trainingService) GetFeedback(sessionID string) (*store.FeedbackReport, error) {
	completed, err := s.sessions.GetCompleted(sessionID)
	if err != nil {
		return nil, err
	}
	if completed.Feedback == nil {
		return nil, apperror.NewNotFound("feedback", sessionID)
	}
	return completed.Feedback, nil
}

// RunSweeper force-completes idle sessions on a fixed interval until the
// context is cancelled.
func (s *trainingService) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.trainingConf.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *trainingService) sweepOnce(ctx context.Context) {
	var expiredIDs []string
	count := s.sessions.ExpireStale(s.trainingConf.StaleThreshold, func(session *store.Session) *store.FeedbackReport {
		expiredIDs = append(expiredIDs, session.ID)
		var metrics store.ScoringMetrics
		if session.Scores != nil {
			metrics = *session.Scores
		}
		return feedback.Minimal(metrics, session.Scenario)
	})
	if count == 0 {
		return
	}

	s.sysLogger.Warn("Training", "Expired stale sessions", map[string]interface{}{
		"count": count,
	})

	for _, id := range expiredIDs {
		completed, err := s.sessions.GetCompleted(id)
		if err != nil {
			continue
		}
		s.publishCompleted(ctx, completed)
		if s.eventBus != nil {
			if err := s.eventBus.Publish(ctx, events.NewSessionExpired(completed.ID, completed.OwnerID)); err != nil {
				s.sysLogger.Warn("Training", "Failed to publish expiry event", map[string]interface{}{
					"session_id": id,
					"error":      err.Error(),
				})
			}
		}
		s.push(id, frameSessionComplete, map[string]interface{}{
			"session_id": id,
			"expired":    true,
		})
	}
}

func (s *trainingService) push(sessionID, frameType string, payload interface{}) {
	if s.notifier == nil {
		return
	}
	s.notifier.Push(sessionID, frameType, payload)
}

func mergeAppend(existing, incoming []string) []string {
	merged := append([]string(nil), existing...)
	for _, item := range incoming {
		seen := false
		for _, have := range merged {
			if have == item {
				seen = true
				break
			}
		}
		if !seen {
			merged = append(merged, item)
		}
	}
	return merged
}
