package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/voxquiz/voxquiz-backend/internal/model"
)

// ErrSessionNotFound covers both a genuinely missing session and a session
// owned by another player, so a reconnect probe cannot be used to discover
// foreign session ids.
var ErrSessionNotFound = errors.New("session not found")

// recoverySessionStore is the session surface the coordinator needs.
// *repository.SessionRepository satisfies it.
type recoverySessionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.QuizSession, error)
	MarkAbandoned(ctx context.Context, id uuid.UUID) error
}

// recoveryTurnStore is the per-turn surface the coordinator needs.
// *repository.SessionQuestionRepository satisfies it.
type recoveryTurnStore interface {
	CountAnswered(ctx context.Context, sessionID uuid.UUID) (int, error)
}

// RecoveryService decides what happens when a player reconnects after a
// dropped connection: resume the session, show final results, or start over.
type RecoveryService struct {
	sessions recoverySessionStore
	turns    recoveryTurnStore
	timeout  time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// NewRecoveryService creates a new RecoveryService. timeout is the maximum
// idle gap after which an active session is considered abandoned.
func NewRecoveryService(sessions recoverySessionStore, turns recoveryTurnStore, timeout time.Duration, log zerolog.Logger) *RecoveryService {
	return &RecoveryService{
		sessions: sessions,
		turns:    turns,
		timeout:  timeout,
		now:      time.Now,
		log:      log.With().Str("component", "recovery_service").Logger(),
	}
}

// EvaluateReconnection classifies a reconnect attempt against the session's
// durable state. Idle time is measured from last_activity_at; a gap of
// exactly the timeout still resumes, one beyond it abandons the session
// before answering.
func (s *RecoveryService) EvaluateReconnection(ctx context.Context, sessionID uuid.UUID, playerID int) (*model.ReconnectionResult, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session.PlayerID != playerID {
		return nil, ErrSessionNotFound
	}

	switch session.Status {
	case model.SessionStatusCompleted:
		snapshot, err := s.snapshot(ctx, session)
		if err != nil {
			return nil, err
		}
		return &model.ReconnectionResult{
			CanResume:       false,
			SuggestedAction: model.SuggestedActionViewResults,
			SessionState:    snapshot,
		}, nil

	case model.SessionStatusAbandoned:
		return &model.ReconnectionResult{
			CanResume:       false,
			SuggestedAction: model.SuggestedActionStartNew,
		}, nil
	}

	idle := s.now().Sub(session.LastActivityAt)
	if idle > s.timeout {
		if err := s.sessions.MarkAbandoned(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("abandon expired session: %w", err)
		}
		s.log.Info().
			Str("session_id", sessionID.String()).
			Dur("idle", idle).
			Msg("session abandoned on reconnect")
		return &model.ReconnectionResult{
			CanResume:       false,
			SuggestedAction: model.SuggestedActionStartNew,
		}, nil
	}

	snapshot, err := s.snapshot(ctx, session)
	if err != nil {
		return nil, err
	}
	return &model.ReconnectionResult{
		CanResume:       true,
		SuggestedAction: model.SuggestedActionResume,
		SessionState:    snapshot,
	}, nil
}

func (s *RecoveryService) snapshot(ctx context.Context, session *model.QuizSession) (*model.SessionSnapshot, error) {
	answered, err := s.turns.CountAnswered(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("count answered turns: %w", err)
	}
	return &model.SessionSnapshot{
		ID:                   session.ID,
		Status:               session.Status,
		TotalScore:           session.TotalScore,
		CurrentQuestionIndex: session.CurrentQuestionIndex,
		QuestionsAnswered:    answered,
	}, nil
}
