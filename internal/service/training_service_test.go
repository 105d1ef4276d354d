package service

import (
	"context"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vas-training-be/internal/apperror"
	"vas-training-be/internal/config"
	"vas-training-be/internal/dto"
	"vas-training-be/internal/repository/memory"
	"vas-training-be/pkg/llm/stub"
	"vas-training-be/pkg/store"
	"vas-training-be/pkg/training/feedback"
	"vas-training-be/pkg/training/guest"
	"vas-training-be/pkg/training/persona"
	"vas-training-be/pkg/training/scenario"
	"vas-training-be/pkg/training/scoring"
)

type fakePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (f *fakePublisher) Publish(_ context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

type fakeNotifier struct {
	mu       sync.Mutex
	frames   []string
	payloads []interface{}
}

func (f *fakeNotifier) Push(sessionID, frameType string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frameType)
	f.payloads = append(f.payloads, payload)
}

func (f *fakeNotifier) lastPayload() map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		return nil
	}
	payload, _ := f.payloads[len(f.payloads)-1].(map[string]interface{})
	return payload
}

type noopLogger struct{}

func (noopLogger) Debug(string, string, map[string]interface{}) {}
func (noopLogger) Info(string, string, map[string]interface{})  {}
func (noopLogger) Warn(string, string, map[string]interface{})  {}
func (noopLogger) Error(string, string, map[string]interface{}) {}
func (noopLogger) Sync() error                                  { return nil }

type harness struct {
	svc       ITrainingService
	sessions  *memory.SessionStore
	provider  *stub.StubProvider
	publisher *fakePublisher
	notifier  *fakeNotifier
}

func newHarness(t *testing.T, maxTurns int) *harness {
	t.Helper()

	provider := stub.New()
	stageLogger := log.New(io.Discard, "", 0)
	timeout := time.Second

	sessions := memory.NewSessionStore(time.Hour)
	publisher := &fakePublisher{}
	notifier := &fakeNotifier{}

	svc := NewTrainingService(
		sessions,
		scenario.NewGenerator(provider, nil, stageLogger, timeout),
		persona.NewGenerator(provider, stageLogger, timeout),
		guest.NewSimulator(provider, stageLogger, timeout),
		scoring.NewEngine(nil),
		feedback.NewGenerator(provider, nil, stageLogger, timeout),
		publisher,
		nil,
		notifier,
		noopLogger{},
		config.TrainingConfig{
			MaxTurns:       maxTurns,
			StageTimeout:   timeout,
			StaleThreshold: 30 * time.Minute,
			SweepInterval:  time.Minute,
		},
	)

	return &harness{
		svc:       svc,
		sessions:  sessions,
		provider:  provider,
		publisher: publisher,
		notifier:  notifier,
	}
}

func startSession(t *testing.T, h *harness) *dto.StartSessionResponse {
	t.Helper()
	res, err := h.svc.Start(context.Background(), &dto.StartSessionRequest{
		TrainingObjective: "recover an overbooked reservation",
		Difficulty:        "intermediate",
		Category:          "overbooking",
		UserId:            "trainee-1",
	})
	require.NoError(t, err)
	return res
}

// Script lines covering the stub scenario's four required steps in order.
var stepLines = []string{
	"I completely acknowledge the problem with your suite, and I want to fix this right now.",
	"I apologize sincerely for the inconvenience, this is not the arrival you deserved.",
	"Let me offer an alternative room on a higher floor, upgraded at no charge.",
	"I will confirm the resolution by email within the hour so everything is in writing.",
}

func TestStartReturnsReadySessionWithSanitizedViews(t *testing.T) {
	h := newHarness(t, 12)
	res := startSession(t, h)

	assert.Equal(t, "ready", res.Status)
	assert.NotEmpty(t, res.SessionId)
	assert.Equal(t, "Double-Booked Suite", res.Scenario.Title)
	assert.Len(t, res.Scenario.RequiredSteps, 4)
	assert.Equal(t, "Morgan Reyes", res.Persona.Name)
	assert.NotEmpty(t, res.OpeningLine)

	// Opening line is deterministic for the same scenario and persona.
	res2 := startSession(t, h)
	assert.Equal(t, res.OpeningLine, res2.OpeningLine)

	session, err := h.sessions.Get(res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, store.StatusActive, session.Status)
	assert.Equal(t, "frustrated", session.CurrentEmotion)
	require.Len(t, session.Messages, 1)
	assert.Equal(t, store.RoleGuest, session.Messages[0].Role)
}

func TestStartPropagatesGenerationFailure(t *testing.T) {
	h := newHarness(t, 12)
	h.provider.Fail(apperror.GenerationUnavailable)

	_, err := h.svc.Start(context.Background(), &dto.StartSessionRequest{
		TrainingObjective: "handle a late checkout complaint",
	})

	var genErr *apperror.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, apperror.GenerationUnavailable, genErr.Kind)
}

func TestRespondValidatesUserResponseLength(t *testing.T) {
	h := newHarness(t, 12)
	res := startSession(t, h)

	var valErr *apperror.ValidationError

	_, err := h.svc.Respond(context.Background(), res.SessionId, "   ")
	require.ErrorAs(t, err, &valErr)

	_, err = h.svc.Respond(context.Background(), res.SessionId, strings.Repeat("a", 2001))
	require.ErrorAs(t, err, &valErr)

	// The bound counts characters, not bytes: 1500 two-byte runes pass.
	_, err = h.svc.Respond(context.Background(), res.SessionId, strings.Repeat("é", 1500))
	require.NoError(t, err)

	_, err = h.svc.Respond(context.Background(), res.SessionId, strings.Repeat("é", 2001))
	require.ErrorAs(t, err, &valErr)

	// Exactly 2000 characters after trim is accepted.
	_, err = h.svc.Respond(context.Background(), res.SessionId, strings.Repeat("a", 2000)+"  ")
	require.NoError(t, err)
}

func TestRespondDistinguishesNotFoundFromInvalidState(t *testing.T) {
	h := newHarness(t, 12)

	var notFound *apperror.NotFoundError
	_, err := h.svc.Respond(context.Background(), "no-such-session", "hello, how can I help?")
	require.ErrorAs(t, err, &notFound)

	// A session still in creating is retrievable but not respondable.
	creating := h.sessions.Create("trainee-1")
	var stateErr *apperror.InvalidStateError
	_, err = h.svc.Respond(context.Background(), creating.ID, "hello, how can I help?")
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, store.StatusCreating, stateErr.Status)
}

func TestRespondProducesGuestTurnAndProgress(t *testing.T) {
	h := newHarness(t, 12)
	res := startSession(t, h)

	resp, err := h.svc.Respond(context.Background(), res.SessionId, stepLines[0])
	require.NoError(t, err)

	assert.Equal(t, store.StatusActive, resp.SessionStatus)
	assert.Equal(t, 1, resp.CurrentTurn)
	assert.NotEmpty(t, resp.GuestResponse)
	assert.Nil(t, resp.Feedback)

	status, err := h.svc.Status(res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Progress.CurrentTurn)
	assert.Equal(t, []string{"acknowledge the problem"}, status.Progress.CompletedSteps)
	assert.Equal(t, 25, status.Progress.CompletionPercentage)
}

func TestRespondReportsOnlyNewlyCompletedSteps(t *testing.T) {
	h := newHarness(t, 12)
	res := startSession(t, h)

	_, err := h.svc.Respond(context.Background(), res.SessionId, stepLines[0])
	require.NoError(t, err)
	payload := h.notifier.lastPayload()
	require.NotNil(t, payload)
	assert.Equal(t, []string{"acknowledge the problem"}, payload["new_steps"])

	// Repeating a covered step announces nothing new.
	_, err = h.svc.Respond(context.Background(), res.SessionId, stepLines[0])
	require.NoError(t, err)
	payload = h.notifier.lastPayload()
	require.NotNil(t, payload)
	assert.Empty(t, payload["new_steps"])
	assert.Equal(t, []string{"acknowledge the problem"}, payload["completed_steps"])
}

func TestRespondCompletesWhenAllStepsCovered(t *testing.T) {
	h := newHarness(t, 12)
	res := startSession(t, h)

	var last *dto.RespondResponse
	for _, line := range stepLines {
		var err error
		last, err = h.svc.Respond(context.Background(), res.SessionId, line)
		require.NoError(t, err)
	}

	require.NotNil(t, last)
	assert.Equal(t, store.StatusComplete, last.SessionStatus)
	assert.Equal(t, 4, last.CurrentTurn)
	require.NotNil(t, last.Feedback)
	assert.NotEmpty(t, last.Feedback.Grade)
	assert.Greater(t, last.Feedback.OverallScore, 0)

	// The session moved to the archive and a persistence message went out.
	completed, err := h.sessions.GetCompleted(res.SessionId)
	require.NoError(t, err)
	assert.NotNil(t, completed.Feedback)
	assert.Equal(t, 1, h.publisher.count())

	// The session still exists, so responding again is a state error,
	// not a missing session.
	var stateErr *apperror.InvalidStateError
	_, err = h.svc.Respond(context.Background(), res.SessionId, "anything else?")
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, store.StatusComplete, stateErr.Status)
}

func TestCriticalErrorTerminatesWithoutGuestTurn(t *testing.T) {
	h := newHarness(t, 12)
	res := startSession(t, h)

	resp, err := h.svc.Respond(context.Background(), res.SessionId, "Frankly, I blame the guest for this whole mix-up.")
	require.NoError(t, err)

	assert.Equal(t, store.StatusComplete, resp.SessionStatus)
	assert.Empty(t, resp.GuestResponse)
	require.NotNil(t, resp.Feedback)

	completed, err := h.sessions.GetCompleted(res.SessionId)
	require.NoError(t, err)
	// Transcript ends on the trainee's message; the guest never replied.
	require.NotEmpty(t, completed.Transcript)
	assert.Equal(t, store.RoleTrainee, completed.Transcript[len(completed.Transcript)-1].Role)
}

func TestRespondTerminatesAtMaxTurns(t *testing.T) {
	h := newHarness(t, 3)
	res := startSession(t, h)

	neutral := "Could you walk me through what happened when you arrived tonight?"

	for i := 0; i < 2; i++ {
		resp, err := h.svc.Respond(context.Background(), res.SessionId, neutral)
		require.NoError(t, err)
		assert.Equal(t, store.StatusActive, resp.SessionStatus)
	}

	resp, err := h.svc.Respond(context.Background(), res.SessionId, neutral)
	require.NoError(t, err)
	assert.Equal(t, store.StatusComplete, resp.SessionStatus)
	assert.Equal(t, 3, resp.CurrentTurn)
	assert.NotNil(t, resp.Feedback)
}

func TestEmotionAdvancesAtMostOneStepPerTurn(t *testing.T) {
	h := newHarness(t, 12)
	h.provider.Responses["<guest_turn_request>"] = `{"reply": "Fine. Go on.", "emotion_shift": "advance"}`
	res := startSession(t, h)

	want := []string{"skeptical", "neutral", "satisfied", "satisfied"}
	neutral := "Thank you for your patience while I check the system for options."

	for _, expected := range want {
		_, err := h.svc.Respond(context.Background(), res.SessionId, neutral)
		require.NoError(t, err)

		session, err := h.sessions.Get(res.SessionId)
		require.NoError(t, err)
		assert.Equal(t, expected, session.CurrentEmotion)
	}
}

func TestEndCompletesActiveAndPausedSessions(t *testing.T) {
	h := newHarness(t, 12)
	res := startSession(t, h)

	_, err := h.svc.Respond(context.Background(), res.SessionId, stepLines[0])
	require.NoError(t, err)

	require.True(t, h.svc.Pause(res.SessionId))

	completed, err := h.svc.End(context.Background(), res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, res.SessionId, completed.ID)
	assert.NotNil(t, completed.Feedback)
	assert.Len(t, completed.Transcript, 3) // opening + trainee + guest

	var notFound *apperror.NotFoundError
	_, err = h.svc.End(context.Background(), res.SessionId)
	require.ErrorAs(t, err, &notFound)
}

func TestEndRejectsSessionStillCreating(t *testing.T) {
	h := newHarness(t, 12)
	creating := h.sessions.Create("trainee-1")

	var notFound *apperror.NotFoundError
	_, err := h.svc.End(context.Background(), creating.ID)
	require.ErrorAs(t, err, &notFound)

	// The session was not completed behind the caller's back.
	_, err = h.sessions.GetCompleted(creating.ID)
	require.Error(t, err)
}

func TestPauseBlocksRespondUntilResume(t *testing.T) {
	h := newHarness(t, 12)
	res := startSession(t, h)

	require.True(t, h.svc.Pause(res.SessionId))

	var notFound *apperror.NotFoundError
	_, err := h.svc.Respond(context.Background(), res.SessionId, stepLines[0])
	require.ErrorAs(t, err, &notFound)

	require.True(t, h.svc.Resume(res.SessionId))
	_, err = h.svc.Respond(context.Background(), res.SessionId, stepLines[0])
	require.NoError(t, err)
}

func TestStatusIsReadOnly(t *testing.T) {
	h := newHarness(t, 12)
	res := startSession(t, h)

	before, err := h.sessions.Get(res.SessionId)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := h.svc.Status(res.SessionId)
		require.NoError(t, err)
	}

	after, err := h.sessions.Get(res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, before.LastActivityAt, after.LastActivityAt)
	assert.Equal(t, before.TurnCount, after.TurnCount)
}

func TestStatusAnswersFromArchiveAfterCompletion(t *testing.T) {
	h := newHarness(t, 12)
	res := startSession(t, h)

	_, err := h.svc.End(context.Background(), res.SessionId)
	require.NoError(t, err)

	status, err := h.svc.Status(res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, store.StatusComplete, status.SessionStatus)
}

func TestGetFeedbackOnlyAfterCompletion(t *testing.T) {
	h := newHarness(t, 12)
	res := startSession(t, h)

	var notFound *apperror.NotFoundError
	_, err := h.svc.GetFeedback(res.SessionId)
	require.ErrorAs(t, err, &notFound)

	_, err = h.svc.End(context.Background(), res.SessionId)
	require.NoError(t, err)

	report, err := h.svc.GetFeedback(res.SessionId)
	require.NoError(t, err)
	assert.NotEmpty(t, report.Grade)
}

func TestSweepForceCompletesStaleSessions(t *testing.T) {
	h := newHarness(t, 12)
	res := startSession(t, h)

	svc := h.svc.(*trainingService)
	svc.trainingConf.StaleThreshold = 0
	time.Sleep(5 * time.Millisecond)

	svc.sweepOnce(context.Background())

	completed, err := h.sessions.GetCompleted(res.SessionId)
	require.NoError(t, err)
	require.NotNil(t, completed.Feedback)
	assert.NotEmpty(t, completed.Feedback.Summary)
	assert.Equal(t, 1, h.publisher.count())
}

func TestListSessionsReflectsStoreState(t *testing.T) {
	h := newHarness(t, 12)
	a := startSession(t, h)
	b := startSession(t, h)

	_, err := h.svc.End(context.Background(), a.SessionId)
	require.NoError(t, err)

	summaries, stats := h.svc.ListSessions()
	require.Len(t, summaries, 1)
	assert.Equal(t, b.SessionId, summaries[0].SessionId)
	assert.Equal(t, store.StatusActive, summaries[0].SessionStatus)
	assert.Equal(t, "Double-Booked Suite", summaries[0].ScenarioTitle)
	assert.Equal(t, 0, summaries[0].CurrentTurn)
	assert.Equal(t, dto.StoreStatsResponse{Active: 1, Completed: 1, Total: 2}, stats)
}
