package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxquiz/voxquiz-backend/internal/model"
)

type fakeSessionStore struct {
	sessions map[uuid.UUID]*model.QuizSession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[uuid.UUID]*model.QuizSession{}}
}

func (f *fakeSessionStore) GetByID(_ context.Context, id uuid.UUID) (*model.QuizSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *s
	return &clone, nil
}

func (f *fakeSessionStore) MarkAbandoned(_ context.Context, id uuid.UUID) error {
	s, ok := f.sessions[id]
	if !ok {
		return nil
	}
	if s.Status == model.SessionStatusActive || s.Status == model.SessionStatusPaused {
		s.Status = model.SessionStatusAbandoned
	}
	return nil
}

type fakeTurnCounter struct {
	answered map[uuid.UUID]int
}

func (f *fakeTurnCounter) CountAnswered(_ context.Context, sessionID uuid.UUID) (int, error) {
	return f.answered[sessionID], nil
}

func newTestRecoveryService(store *fakeSessionStore, answered map[uuid.UUID]int, timeout time.Duration, clock func() time.Time) *RecoveryService {
	svc := NewRecoveryService(store, &fakeTurnCounter{answered: answered}, timeout, zerolog.Nop())
	if clock != nil {
		svc.now = clock
	}
	return svc
}

func TestEvaluateReconnectionResumesWithinTimeout(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeSessionStore()
	sessionID := uuid.New()
	store.sessions[sessionID] = &model.QuizSession{
		ID:                   sessionID,
		PlayerID:             7,
		Status:               model.SessionStatusActive,
		TotalScore:           120,
		CurrentQuestionIndex: 4,
		LastActivityAt:       base,
	}

	svc := newTestRecoveryService(store, map[uuid.UUID]int{sessionID: 3}, 30*time.Minute,
		func() time.Time { return base.Add(10 * time.Minute) })

	result, err := svc.EvaluateReconnection(context.Background(), sessionID, 7)
	require.NoError(t, err)
	assert.True(t, result.CanResume)
	require.NotNil(t, result.SessionState)
	assert.Equal(t, 120, result.SessionState.TotalScore)
	assert.Equal(t, 3, result.SessionState.QuestionsAnswered)
}

func TestEvaluateReconnectionTimeoutBoundary(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	timeout := 30 * time.Minute

	tests := []struct {
		name      string
		idle      time.Duration
		canResume bool
	}{
		{"exactly at timeout", timeout, true},
		{"one second beyond", timeout + time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeSessionStore()
			sessionID := uuid.New()
			store.sessions[sessionID] = &model.QuizSession{
				ID:             sessionID,
				PlayerID:       7,
				Status:         model.SessionStatusActive,
				LastActivityAt: base,
			}
			svc := newTestRecoveryService(store, nil, timeout,
				func() time.Time { return base.Add(tt.idle) })

			result, err := svc.EvaluateReconnection(context.Background(), sessionID, 7)
			require.NoError(t, err)
			assert.Equal(t, tt.canResume, result.CanResume)
			if !tt.canResume {
				assert.Equal(t, model.SuggestedActionStartNew, result.SuggestedAction)
				assert.Equal(t, model.SessionStatusAbandoned, store.sessions[sessionID].Status)
			}
		})
	}
}

func TestEvaluateReconnectionCompletedSession(t *testing.T) {
	store := newFakeSessionStore()
	sessionID := uuid.New()
	store.sessions[sessionID] = &model.QuizSession{
		ID:         sessionID,
		PlayerID:   7,
		Status:     model.SessionStatusCompleted,
		TotalScore: 450,
	}

	svc := newTestRecoveryService(store, map[uuid.UUID]int{sessionID: 10}, 30*time.Minute, nil)

	result, err := svc.EvaluateReconnection(context.Background(), sessionID, 7)
	require.NoError(t, err)
	assert.False(t, result.CanResume)
	assert.Equal(t, model.SuggestedActionViewResults, result.SuggestedAction)
	require.NotNil(t, result.SessionState)
	assert.Equal(t, 450, result.SessionState.TotalScore)
	assert.Equal(t, 10, result.SessionState.QuestionsAnswered)
}

func TestEvaluateReconnectionHidesForeignSessions(t *testing.T) {
	store := newFakeSessionStore()
	sessionID := uuid.New()
	store.sessions[sessionID] = &model.QuizSession{
		ID:       sessionID,
		PlayerID: 7,
		Status:   model.SessionStatusActive,
	}

	svc := newTestRecoveryService(store, nil, 30*time.Minute, nil)

	// Another player probing this id gets the same error as a missing session.
	_, err := svc.EvaluateReconnection(context.Background(), sessionID, 8)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.EvaluateReconnection(context.Background(), uuid.New(), 8)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestEvaluateReconnectionAbandonedSession(t *testing.T) {
	store := newFakeSessionStore()
	sessionID := uuid.New()
	store.sessions[sessionID] = &model.QuizSession{
		ID:       sessionID,
		PlayerID: 7,
		Status:   model.SessionStatusAbandoned,
	}

	svc := newTestRecoveryService(store, nil, 30*time.Minute, nil)

	result, err := svc.EvaluateReconnection(context.Background(), sessionID, 7)
	require.NoError(t, err)
	assert.False(t, result.CanResume)
	assert.Equal(t, model.SuggestedActionStartNew, result.SuggestedAction)
	assert.Nil(t, result.SessionState)
}
