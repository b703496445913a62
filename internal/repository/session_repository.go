package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/voxquiz/voxquiz-backend/internal/model"
)

// SessionRepository handles quiz session data access. All mutations are
// single statements so a failed action never leaves a partial session state.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, player_id, status, total_score, current_question_index, started_at, completed_at, last_activity_at`

func scanSession(row interface{ Scan(...any) error }) (*model.QuizSession, error) {
	s := &model.QuizSession{}
	err := row.Scan(&s.ID, &s.PlayerID, &s.Status, &s.TotalScore,
		&s.CurrentQuestionIndex, &s.StartedAt, &s.CompletedAt, &s.LastActivityAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a session by id.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.QuizSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM quiz_sessions WHERE id = $1`, id))
}

// GetActiveByPlayer retrieves the player's active session, if any.
func (r *SessionRepository) GetActiveByPlayer(ctx context.Context, playerID int) (*model.QuizSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM quiz_sessions
		 WHERE player_id = $1 AND status = $2
		 ORDER BY started_at DESC
		 LIMIT 1`, playerID, model.SessionStatusActive))
}

// Create inserts a new active session.
func (r *SessionRepository) Create(ctx context.Context, s *model.QuizSession) error {
	s.ID = uuid.New()
	s.Status = model.SessionStatusActive
	return r.pool.QueryRow(ctx,
		`INSERT INTO quiz_sessions (id, player_id, status)
		 VALUES ($1, $2, $3)
		 RETURNING started_at, last_activity_at, total_score, current_question_index`,
		s.ID, s.PlayerID, s.Status,
	).Scan(&s.StartedAt, &s.LastActivityAt, &s.TotalScore, &s.CurrentQuestionIndex)
}

// TouchActivity refreshes the session's durable activity clock. Every
// accepted action routes through this so the recovery coordinator's idle
// check stays accurate even though phase itself is in-memory only.
func (r *SessionRepository) TouchActivity(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE quiz_sessions SET last_activity_at = NOW() WHERE id = $1`, id)
	return err
}

// AddScore increments the session total and touches the activity clock in
// one statement.
func (r *SessionRepository) AddScore(ctx context.Context, id uuid.UUID, delta int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE quiz_sessions
		 SET total_score = total_score + $1, last_activity_at = NOW()
		 WHERE id = $2`, delta, id)
	return err
}

// SetCurrentIndex advances the session's question cursor.
func (r *SessionRepository) SetCurrentIndex(ctx context.Context, id uuid.UUID, index int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE quiz_sessions
		 SET current_question_index = $1, last_activity_at = NOW()
		 WHERE id = $2`, index, id)
	return err
}

// Complete marks an active or paused session as completed.
func (r *SessionRepository) Complete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE quiz_sessions
		 SET status = $1, completed_at = NOW(), last_activity_at = NOW()
		 WHERE id = $2 AND status IN ($3, $4)`,
		model.SessionStatusCompleted, id, model.SessionStatusActive, model.SessionStatusPaused)
	return err
}

// MarkAbandoned transitions an active or paused session to abandoned. The
// conditional WHERE makes repeated calls a no-op, so retries and concurrent
// sweeps are always safe.
func (r *SessionRepository) MarkAbandoned(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE quiz_sessions
		 SET status = $1
		 WHERE id = $2 AND status IN ($3, $4)`,
		model.SessionStatusAbandoned, id, model.SessionStatusActive, model.SessionStatusPaused)
	return err
}

// AbandonIdle bulk-abandons active sessions idle longer than the timeout.
// Used by the session sweeper worker; returns the affected session ids.
func (r *SessionRepository) AbandonIdle(ctx context.Context, idleSeconds int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE quiz_sessions
		 SET status = $1
		 WHERE status = $2
		   AND last_activity_at < NOW() - make_interval(secs => $3)
		 RETURNING id`,
		model.SessionStatusAbandoned, model.SessionStatusActive, idleSeconds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
