package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/voxquiz/voxquiz-backend/internal/model"
)

// SessionQuestionRepository handles per-turn data access. Turn rows are
// append-then-settle: one INSERT at presentation and exactly one UPDATE at
// answer time.
type SessionQuestionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionQuestionRepository creates a new SessionQuestionRepository.
func NewSessionQuestionRepository(pool *pgxpool.Pool) *SessionQuestionRepository {
	return &SessionQuestionRepository{pool: pool}
}

const sessionQuestionColumns = `id, session_id, question_id, order_num, presented_at, answered_at, answered, submitted_answer, is_correct, points_earned, response_time_ms`

func scanSessionQuestion(row interface{ Scan(...any) error }) (*model.SessionQuestion, error) {
	sq := &model.SessionQuestion{}
	err := row.Scan(&sq.ID, &sq.SessionID, &sq.QuestionID, &sq.OrderNum,
		&sq.PresentedAt, &sq.AnsweredAt, &sq.Answered, &sq.SubmittedAnswer,
		&sq.IsCorrect, &sq.PointsEarned, &sq.ResponseTimeMs)
	if err != nil {
		return nil, err
	}
	return sq, nil
}

// GetByID retrieves a turn by id.
func (r *SessionQuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.SessionQuestion, error) {
	return scanSessionQuestion(r.pool.QueryRow(ctx,
		`SELECT `+sessionQuestionColumns+` FROM session_questions WHERE id = $1`, id))
}

// Create records a newly presented question occurrence. The unique
// (session_id, order_num) index rejects a duplicate presentation racing in
// from a second writer.
func (r *SessionQuestionRepository) Create(ctx context.Context, sq *model.SessionQuestion) error {
	sq.ID = uuid.New()
	return r.pool.QueryRow(ctx,
		`INSERT INTO session_questions (id, session_id, question_id, order_num)
		 VALUES ($1, $2, $3, $4)
		 RETURNING presented_at`,
		sq.ID, sq.SessionID, sq.QuestionID, sq.OrderNum,
	).Scan(&sq.PresentedAt)
}

// CurrentTurn returns the latest unanswered turn of a session, or
// pgx.ErrNoRows when there is no open turn.
func (r *SessionQuestionRepository) CurrentTurn(ctx context.Context, sessionID uuid.UUID) (*model.SessionQuestion, error) {
	return scanSessionQuestion(r.pool.QueryRow(ctx,
		`SELECT `+sessionQuestionColumns+`
		 FROM session_questions
		 WHERE session_id = $1 AND answered = FALSE
		 ORDER BY order_num DESC
		 LIMIT 1`, sessionID))
}

// CountAnswered returns how many turns of the session have been settled.
func (r *SessionQuestionRepository) CountAnswered(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM session_questions WHERE session_id = $1 AND answered = TRUE`,
		sessionID).Scan(&count)
	return count, err
}

// RecordAnswer settles a turn. The answered = FALSE guard makes the write
// first-wins: a second settlement attempt affects zero rows and returns
// pgx.ErrNoRows instead of overwriting the original outcome.
func (r *SessionQuestionRepository) RecordAnswer(ctx context.Context, id uuid.UUID, submitted string, correct bool, points int, responseTimeMs *int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE session_questions
		 SET answered = TRUE, answered_at = NOW(), submitted_answer = $2,
		     is_correct = $3, points_earned = $4, response_time_ms = $5
		 WHERE id = $1 AND answered = FALSE`,
		id, submitted, correct, points, responseTimeMs)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// TrailingCorrect counts consecutive correct answers at the tail of the
// session's answered history. Used to rebuild the streak counter after a
// reconnect.
func (r *SessionQuestionRepository) TrailingCorrect(ctx context.Context, sessionID uuid.UUID) (int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT is_correct
		 FROM session_questions
		 WHERE session_id = $1 AND answered = TRUE
		 ORDER BY order_num DESC`, sessionID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	streak := 0
	for rows.Next() {
		var correct *bool
		if err := rows.Scan(&correct); err != nil {
			return 0, err
		}
		if correct == nil || !*correct {
			break
		}
		streak++
	}
	return streak, rows.Err()
}

// ListBySession returns all turns of a session in presentation order.
func (r *SessionQuestionRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.SessionQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionQuestionColumns+`
		 FROM session_questions
		 WHERE session_id = $1
		 ORDER BY order_num ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []model.SessionQuestion
	for rows.Next() {
		sq, err := scanSessionQuestion(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, *sq)
	}
	return turns, rows.Err()
}
