package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/voxquiz/voxquiz-backend/internal/model"
)

// TimingEventRepository persists immutable turn lifecycle timestamps.
type TimingEventRepository struct {
	pool *pgxpool.Pool
}

// NewTimingEventRepository creates a new TimingEventRepository.
func NewTimingEventRepository(pool *pgxpool.Pool) *TimingEventRepository {
	return &TimingEventRepository{pool: pool}
}

const timingEventColumns = `id, session_question_id, event_type, server_timestamp, client_timestamp, latency_ms, metadata`

func scanTimingEvent(row interface{ Scan(...any) error }) (*model.TimingEvent, error) {
	e := &model.TimingEvent{}
	err := row.Scan(&e.ID, &e.SessionQuestionID, &e.EventType, &e.ServerTimestamp,
		&e.ClientTimestamp, &e.LatencyMs, &e.Metadata)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// InsertOrGet writes a timing event unless one already exists for the same
// (session_question_id, event_type). The unique index plus ON CONFLICT DO
// NOTHING decides the race inside PostgreSQL; on conflict the surviving row
// is fetched and returned, so callers always see the first event's identity
// and timestamp. The boolean reports whether this call inserted the row.
func (r *TimingEventRepository) InsertOrGet(ctx context.Context, e *model.TimingEvent) (*model.TimingEvent, bool, error) {
	id := uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO timing_events (id, session_question_id, event_type, server_timestamp, client_timestamp, latency_ms, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (session_question_id, event_type) DO NOTHING
		 RETURNING `+timingEventColumns,
		id, e.SessionQuestionID, e.EventType, e.ServerTimestamp,
		e.ClientTimestamp, e.LatencyMs, e.Metadata,
	).Scan(&e.ID, &e.SessionQuestionID, &e.EventType, &e.ServerTimestamp,
		&e.ClientTimestamp, &e.LatencyMs, &e.Metadata)
	if err == nil {
		return e, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	existing, err := r.GetByTurnAndType(ctx, e.SessionQuestionID, e.EventType)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetByTurnAndType fetches the unique event of a given type for a turn.
func (r *TimingEventRepository) GetByTurnAndType(ctx context.Context, sessionQuestionID uuid.UUID, eventType model.TimingEventType) (*model.TimingEvent, error) {
	return scanTimingEvent(r.pool.QueryRow(ctx,
		`SELECT `+timingEventColumns+`
		 FROM timing_events
		 WHERE session_question_id = $1 AND event_type = $2`,
		sessionQuestionID, eventType))
}

// ListBySessionQuestion returns all recorded events of a turn in capture
// order.
func (r *TimingEventRepository) ListBySessionQuestion(ctx context.Context, sessionQuestionID uuid.UUID) ([]model.TimingEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+timingEventColumns+`
		 FROM timing_events
		 WHERE session_question_id = $1
		 ORDER BY server_timestamp ASC`, sessionQuestionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.TimingEvent
	for rows.Next() {
		e, err := scanTimingEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}
