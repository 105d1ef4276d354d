package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vas-training-be/internal/apperror"
	"vas-training-be/pkg/store"
)

func newTestStore() *SessionStore {
	return NewSessionStore(time.Hour)
}

func activate(t *testing.T, s *SessionStore, id string) {
	t.Helper()
	status := store.StatusActive
	require.NoError(t, s.Update(id, SessionPatch{Status: &status}))
}

func TestCreateAllocatesUniqueCreatingSessions(t *testing.T) {
	s := newTestStore()

	a := s.Create("trainee-1")
	b := s.Create("trainee-1")

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, store.StatusCreating, a.Status)
	assert.Equal(t, "trainee-1", a.OwnerID)
	assert.False(t, a.CreatedAt.IsZero())
	assert.Equal(t, a.CreatedAt, a.LastActivityAt)
}

func TestGetHidesPausedAndUnknownSessions(t *testing.T) {
	s := newTestStore()
	session := s.Create("trainee-1")
	activate(t, s, session.ID)

	got, err := s.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusActive, got.Status)

	require.True(t, s.Pause(session.ID))
	_, err = s.Get(session.ID)
	var notFound *apperror.NotFoundError
	require.ErrorAs(t, err, &notFound)

	_, err = s.Get("no-such-id")
	require.ErrorAs(t, err, &notFound)
}

func TestGetReturnsIndependentCopy(t *testing.T) {
	s := newTestStore()
	session := s.Create("trainee-1")

	got, err := s.Get(session.ID)
	require.NoError(t, err)
	got.Messages = append(got.Messages, store.Message{Role: store.RoleTrainee, Content: "mutated copy"})
	got.Status = store.StatusComplete

	again, err := s.Get(session.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Messages)
	assert.Equal(t, store.StatusCreating, again.Status)
}

func TestUpdateAppendsMessagesAndReplacesSteps(t *testing.T) {
	s := newTestStore()
	session := s.Create("trainee-1")
	activate(t, s, session.ID)

	require.NoError(t, s.Update(session.ID, SessionPatch{
		Messages:       []store.Message{{Role: store.RoleTrainee, Content: "hello", TurnIndex: 0}},
		CompletedSteps: []string{"acknowledge the problem"},
	}))
	require.NoError(t, s.Update(session.ID, SessionPatch{
		Messages:       []store.Message{{Role: store.RoleGuest, Content: "finally", TurnIndex: 0}},
		CompletedSteps: []string{"acknowledge the problem", "apologize sincerely"},
	}))

	got, err := s.Get(session.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "hello", got.Messages[0].Content)
	assert.Equal(t, "finally", got.Messages[1].Content)
	assert.Equal(t, []string{"acknowledge the problem", "apologize sincerely"}, got.CompletedSteps)
}

func TestUpdateRefreshesActivityAndSkipsNilFields(t *testing.T) {
	s := newTestStore()
	session := s.Create("trainee-1")
	activate(t, s, session.ID)

	emotion := "frustrated"
	require.NoError(t, s.Update(session.ID, SessionPatch{CurrentEmotion: &emotion}))

	got, err := s.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, "frustrated", got.CurrentEmotion)
	assert.Equal(t, store.StatusActive, got.Status)
	assert.True(t, got.LastActivityAt.After(session.LastActivityAt) || got.LastActivityAt.Equal(session.LastActivityAt))

	err = s.Update("no-such-id", SessionPatch{CurrentEmotion: &emotion})
	var notFound *apperror.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestPauseResumeLifecycle(t *testing.T) {
	s := newTestStore()
	session := s.Create("trainee-1")

	// Only active sessions can pause.
	assert.False(t, s.Pause(session.ID))

	activate(t, s, session.ID)
	assert.True(t, s.Pause(session.ID))
	assert.False(t, s.Pause(session.ID))

	assert.True(t, s.Resume(session.ID))
	assert.False(t, s.Resume(session.ID))
	assert.False(t, s.Resume("no-such-id"))

	got, err := s.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusActive, got.Status)
}

func TestCompleteSnapshotsAndRejectsDoubleComplete(t *testing.T) {
	s := newTestStore()
	session := s.Create("trainee-1")
	activate(t, s, session.ID)
	require.NoError(t, s.Update(session.ID, SessionPatch{
		Messages: []store.Message{{Role: store.RoleTrainee, Content: "hello"}},
		Scores:   &store.ScoringMetrics{PolicyAdherence: 80, EmpathyIndex: 80, Completeness: 80, EscalationJudgment: 80, TimeEfficiency: 80},
	}))

	feedback := &store.FeedbackReport{OverallScore: 80, Grade: "B"}
	completed, err := s.Complete(session.ID, feedback)
	require.NoError(t, err)
	assert.Equal(t, session.ID, completed.ID)
	assert.Equal(t, "trainee-1", completed.OwnerID)
	assert.Len(t, completed.Transcript, 1)
	assert.Equal(t, 80, completed.FinalScores.PolicyAdherence)
	assert.Same(t, feedback, completed.Feedback)
	assert.GreaterOrEqual(t, completed.DurationMs, int64(0))

	var notFound *apperror.NotFoundError
	_, err = s.Complete(session.ID, feedback)
	require.ErrorAs(t, err, &notFound)

	_, err = s.Get(session.ID)
	require.ErrorAs(t, err, &notFound)

	archived, err := s.GetCompleted(session.ID)
	require.NoError(t, err)
	assert.Equal(t, completed.ID, archived.ID)
}

func TestCompleteWorksOnPausedSessions(t *testing.T) {
	s := newTestStore()
	session := s.Create("trainee-1")
	activate(t, s, session.ID)
	require.True(t, s.Pause(session.ID))

	_, err := s.Complete(session.ID, nil)
	require.NoError(t, err)
}

func TestExpireStaleForceCompletesIdleSessions(t *testing.T) {
	s := newTestStore()

	idle := s.Create("trainee-1")
	activate(t, s, idle.ID)
	paused := s.Create("trainee-2")
	activate(t, s, paused.ID)
	require.True(t, s.Pause(paused.ID))
	creating := s.Create("trainee-3")

	time.Sleep(5 * time.Millisecond)

	synthesized := 0
	count := s.ExpireStale(0, func(session *store.Session) *store.FeedbackReport {
		synthesized++
		return &store.FeedbackReport{Summary: "session expired"}
	})

	assert.Equal(t, 2, count)
	assert.Equal(t, 2, synthesized)

	// Active and paused sessions were archived with the synthesized report.
	for _, id := range []string{idle.ID, paused.ID} {
		archived, err := s.GetCompleted(id)
		require.NoError(t, err)
		assert.Equal(t, "session expired", archived.Feedback.Summary)
	}

	// Sessions still in creating are left alone.
	got, err := s.Get(creating.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCreating, got.Status)
}

func TestExpireStaleSkipsRecentlyActiveSessions(t *testing.T) {
	s := newTestStore()
	session := s.Create("trainee-1")
	activate(t, s, session.ID)

	count := s.ExpireStale(time.Hour, nil)
	assert.Equal(t, 0, count)

	_, err := s.Get(session.ID)
	require.NoError(t, err)
}

func TestStatsAndListSessions(t *testing.T) {
	s := newTestStore()

	a := s.Create("trainee-1")
	activate(t, s, a.ID)
	b := s.Create("trainee-2")

	_, err := s.Complete(a.ID, nil)
	require.NoError(t, err)

	stats := s.Stats()
	assert.Equal(t, Stats{Active: 1, Completed: 1, Total: 2}, stats)

	live := s.ListSessions()
	require.Len(t, live, 1)
	assert.Equal(t, b.ID, live[0].ID)
	assert.Equal(t, store.StatusCreating, live[0].Status)
}

func TestListSessionsIncludesPausedAndReturnsCopies(t *testing.T) {
	s := newTestStore()

	session := s.Create("trainee-1")
	activate(t, s, session.ID)
	require.True(t, s.Pause(session.ID))

	live := s.ListSessions()
	require.Len(t, live, 1)
	assert.Equal(t, store.StatusPaused, live[0].Status)

	// Mutating the snapshot must not touch the stored session.
	live[0].Status = store.StatusComplete
	require.True(t, s.Resume(session.ID))
}

func TestConcurrentUpdatesStaySerialized(t *testing.T) {
	s := newTestStore()
	session := s.Create("trainee-1")
	activate(t, s, session.ID)

	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				unlock := s.LockSession(session.ID)
				got, err := s.Get(session.ID)
				if err != nil {
					unlock()
					return
				}
				next := got.TurnCount + 1
				_ = s.Update(session.ID, SessionPatch{
					TurnCount: &next,
					Messages:  []store.Message{{Role: store.RoleTrainee, Content: "turn", TurnIndex: next}},
				})
				unlock()
			}
		}()
	}
	wg.Wait()

	got, err := s.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, writers*perWriter, got.TurnCount)
	assert.Len(t, got.Messages, writers*perWriter)
}
