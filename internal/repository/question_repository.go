package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/voxquiz/voxquiz-backend/internal/model"
)

// QuestionRepository handles question catalog data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const questionColumns = `id, prompt, answer, alt_answers, category, difficulty, base_points, time_limit_seconds, active, created_at`

func scanQuestion(row interface{ Scan(...any) error }) (*model.Question, error) {
	q := &model.Question{}
	err := row.Scan(&q.ID, &q.Prompt, &q.Answer, &q.AltAnswers, &q.Category,
		&q.Difficulty, &q.BasePoints, &q.TimeLimitSeconds, &q.Active, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// GetByID retrieves a question by id.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	return scanQuestion(r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
}

// PickUnseen selects a random active question the session has not played yet.
// Returns pgx.ErrNoRows when the catalog is exhausted for this session.
func (r *QuestionRepository) PickUnseen(ctx context.Context, sessionID uuid.UUID) (*model.Question, error) {
	return scanQuestion(r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+`
		 FROM questions q
		 WHERE q.active
		   AND NOT EXISTS (
		     SELECT 1 FROM session_questions sq
		     WHERE sq.session_id = $1 AND sq.question_id = q.id
		   )
		 ORDER BY random()
		 LIMIT 1`, sessionID))
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	q.ID = uuid.New()
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (id, prompt, answer, alt_answers, category, difficulty, base_points, time_limit_seconds, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		q.ID, q.Prompt, q.Answer, q.AltAnswers, q.Category,
		q.Difficulty, q.BasePoints, q.TimeLimitSeconds, q.Active,
	).Scan(&q.CreatedAt)
}

// Update replaces all mutable fields of a question.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE questions
		 SET prompt = $2, answer = $3, alt_answers = $4, category = $5,
		     difficulty = $6, base_points = $7, time_limit_seconds = $8, active = $9
		 WHERE id = $1`,
		q.ID, q.Prompt, q.Answer, q.AltAnswers, q.Category,
		q.Difficulty, q.BasePoints, q.TimeLimitSeconds, q.Active)
	return err
}

// Delete removes a question from the catalog. Played occurrences keep their
// session_questions rows; the FK is ON DELETE RESTRICT, so deletion fails
// for questions that have already been played.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	return err
}

// List returns a page of questions with an optional category filter.
func (r *QuestionRepository) List(ctx context.Context, page, perPage int, category *string) ([]model.Question, int64, error) {
	offset := (page - 1) * perPage

	baseQuery := ` FROM questions WHERE TRUE`
	args := []any{}

	if category != nil && *category != "" {
		args = append(args, *category)
		baseQuery += fmt.Sprintf(" AND category = $%d", len(args))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*)"+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + questionColumns + baseQuery +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, perPage, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, 0, err
		}
		questions = append(questions, *q)
	}
	return questions, total, rows.Err()
}
