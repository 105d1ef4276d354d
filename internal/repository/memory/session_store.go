// Package memory holds the in-process session store. Active sessions live in
// an encapsulated map; completed sessions move to a go-cache archive with a
// retention TTL. No caller ever reaches the maps directly.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"vas-training-be/internal/apperror"
	"vas-training-be/pkg/store"
)

// SessionPatch is a partial update. Nil fields are left untouched; Messages
// are appended, all other slices replace the existing value wholesale.
type SessionPatch struct {
	Status         *string
	Scenario       *store.Scenario
	Persona        *store.Persona
	CurrentEmotion *string
	Messages       []store.Message
	TurnCount      *int
	CompletedSteps []string
	CriticalErrors []string
	Scores         *store.ScoringMetrics
}

// Stats is a point-in-time census of the store.
type Stats struct {
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*store.Session

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex

	archive *cache.Cache
}

// NewSessionStore creates a store whose completed-session archive retains
// entries for retention and purges expired ones every ten minutes.
func NewSessionStore(retention time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*store.Session),
		locks:    make(map[string]*sync.Mutex),
		archive:  cache.New(retention, 10*time.Minute),
	}
}

// LockSession serializes multi-step mutations on one session id. It returns
// the unlock func; callers must not hold the lock across another session.
func (s *SessionStore) LockSession(sessionID string) func() {
	s.lockMu.Lock()
	m, ok := s.locks[sessionID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[sessionID] = m
	}
	s.lockMu.Unlock()

	m.Lock()
	return m.Unlock
}

func (s *SessionStore) Create(ownerID string) *store.Session {
	now := time.Now()
	session := &store.Session{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		Status:         store.StatusCreating,
		Messages:       []store.Message{},
		CompletedSteps: []string{},
		CriticalErrors: []string{},
		CreatedAt:      now,
		LastActivityAt: now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return session.Clone()
}

// Get returns a deep copy of the session when its status is creating or
// active. Paused and archived sessions are invisible here. Reading does not
// refresh the activity timestamp.
func (s *SessionStore) Get(sessionID string) (*store.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok || (session.Status != store.StatusCreating && session.Status != store.StatusActive) {
		return nil, apperror.NewNotFound("session", sessionID)
	}
	return session.Clone(), nil
}

// Update merges the patch into the stored session and refreshes
// lastActivityAt. It fails when the session is absent, paused, or archived.
func (s *SessionStore) Update(sessionID string, patch SessionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok || (session.Status != store.StatusCreating && session.Status != store.StatusActive) {
		return apperror.NewNotFound("session", sessionID)
	}

	if patch.Status != nil {
		session.Status = *patch.Status
	}
	if patch.Scenario != nil {
		session.Scenario = patch.Scenario
	}
	if patch.Persona != nil {
		session.Persona = patch.Persona
	}
	if patch.CurrentEmotion != nil {
		session.CurrentEmotion = *patch.CurrentEmotion
	}
	if len(patch.Messages) > 0 {
		session.Messages = append(session.Messages, patch.Messages...)
	}
	if patch.TurnCount != nil {
		session.TurnCount = *patch.TurnCount
	}
	if patch.CompletedSteps != nil {
		session.CompletedSteps = append([]string(nil), patch.CompletedSteps...)
	}
	if patch.CriticalErrors != nil {
		session.CriticalErrors = append([]string(nil), patch.CriticalErrors...)
	}
	if patch.Scores != nil {
		scores := *patch.Scores
		session.Scores = &scores
	}

	session.LastActivityAt = time.Now()
	return nil
}

// Pause hides an active session without deleting its state.
func (s *SessionStore) Pause(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok || session.Status != store.StatusActive {
		return false
	}
	session.Status = store.StatusPaused
	session.LastActivityAt = time.Now()
	return true
}

// Resume makes a paused session visible again. Unknown ids return false.
func (s *SessionStore) Resume(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok || session.Status != store.StatusPaused {
		return false
	}
	session.Status = store.StatusActive
	session.LastActivityAt = time.Now()
	return true
}

// Complete snapshots the session into the archive and removes it from the
// live set. A second call for the same id fails with NotFoundError.
func (s *SessionStore) Complete(sessionID string, feedback *store.FeedbackReport) (*store.CompletedSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completeLocked(sessionID, feedback, time.Now())
}

func (s *SessionStore) completeLocked(sessionID string, feedback *store.FeedbackReport, now time.Time) (*store.CompletedSession, error) {
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, apperror.NewNotFound("session", sessionID)
	}

	var finalScores store.ScoringMetrics
	if session.Scores != nil {
		finalScores = *session.Scores
	}

	completed := &store.CompletedSession{
		ID:          session.ID,
		OwnerID:     session.OwnerID,
		Scenario:    session.Scenario,
		Persona:     session.Persona,
		Transcript:  append([]store.Message(nil), session.Messages...),
		FinalScores: finalScores,
		Feedback:    feedback,
		DurationMs:  now.Sub(session.CreatedAt).Milliseconds(),
		CompletedAt: now,
	}

	s.archive.Set(sessionID, completed, cache.DefaultExpiration)
	delete(s.sessions, sessionID)

	s.lockMu.Lock()
	delete(s.locks, sessionID)
	s.lockMu.Unlock()

	return completed, nil
}

func (s *SessionStore) GetCompleted(sessionID string) (*store.CompletedSession, error) {
	if x, found := s.archive.Get(sessionID); found {
		return x.(*store.CompletedSession), nil
	}
	return nil, apperror.NewNotFound("completed session", sessionID)
}

// FeedbackSynthesizer produces the minimal report attached to a session that
// is being force-completed by the expiry sweep.
type FeedbackSynthesizer func(session *store.Session) *store.FeedbackReport

// ExpireStale force-completes every active or paused session idle longer
// than threshold and returns how many it removed. Sessions never disappear
// silently; each one ends with synthesized feedback in the archive.
func (s *SessionStore) ExpireStale(threshold time.Duration, synthesize FeedbackSynthesizer) int {
	now := time.Now()

	s.mu.RLock()
	var stale []string
	for id, session := range s.sessions {
		if session.Status != store.StatusActive && session.Status != store.StatusPaused {
			continue
		}
		if now.Sub(session.LastActivityAt) > threshold {
			stale = append(stale, id)
		}
	}
	s.mu.RUnlock()

	expired := 0
	for _, id := range stale {
		unlock := s.LockSession(id)

		s.mu.Lock()
		session, ok := s.sessions[id]
		// A live respond/end may have completed it between the scan and now.
		if !ok || now.Sub(session.LastActivityAt) <= threshold {
			s.mu.Unlock()
			unlock()
			continue
		}
		var feedback *store.FeedbackReport
		if synthesize != nil {
			feedback = synthesize(session.Clone())
		}
		if _, err := s.completeLocked(id, feedback, time.Now()); err == nil {
			expired++
		}
		s.mu.Unlock()
		unlock()
	}
	return expired
}

func (s *SessionStore) Stats() Stats {
	s.mu.RLock()
	active := len(s.sessions)
	s.mu.RUnlock()

	completed := s.archive.ItemCount()
	return Stats{
		Active:    active,
		Completed: completed,
		Total:     active + completed,
	}
}

// ListSessions returns a snapshot of every live session, whatever its status.
func (s *SessionStore) ListSessions() []*store.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*store.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session.Clone())
	}
	return sessions
}
