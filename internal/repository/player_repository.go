package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/voxquiz/voxquiz-backend/internal/model"
)

// PlayerRepository handles player data access.
type PlayerRepository struct {
	pool *pgxpool.Pool
}

// NewPlayerRepository creates a new PlayerRepository.
func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{pool: pool}
}

// GetByID retrieves a player by id.
func (r *PlayerRepository) GetByID(ctx context.Context, id int) (*model.Player, error) {
	p := &model.Player{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, handle, display_name, password_hash, career_points, created_at, updated_at
		 FROM players
		 WHERE id = $1`, id,
	).Scan(&p.ID, &p.Handle, &p.DisplayName, &p.PasswordHash, &p.CareerPoints, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByHandle retrieves a player by their unique handle.
func (r *PlayerRepository) GetByHandle(ctx context.Context, handle string) (*model.Player, error) {
	p := &model.Player{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, handle, display_name, password_hash, career_points, created_at, updated_at
		 FROM players
		 WHERE handle = $1`, handle,
	).Scan(&p.ID, &p.Handle, &p.DisplayName, &p.PasswordHash, &p.CareerPoints, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new player account.
func (r *PlayerRepository) Create(ctx context.Context, p *model.Player) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO players (handle, display_name, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, career_points, created_at, updated_at`,
		p.Handle, p.DisplayName, p.PasswordHash,
	).Scan(&p.ID, &p.CareerPoints, &p.CreatedAt, &p.UpdatedAt)
}

// AddCareerPoints increments a player's career points in one statement.
func (r *PlayerRepository) AddCareerPoints(ctx context.Context, playerID int, delta int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE players
		 SET career_points = career_points + $1, updated_at = NOW()
		 WHERE id = $2`,
		delta, playerID)
	return err
}

// GetByIDs retrieves players in bulk. Missing ids are skipped silently.
func (r *PlayerRepository) GetByIDs(ctx context.Context, ids []int) ([]model.Player, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, handle, display_name, password_hash, career_points, created_at, updated_at
		 FROM players
		 WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []model.Player
	for rows.Next() {
		var p model.Player
		if err := rows.Scan(&p.ID, &p.Handle, &p.DisplayName, &p.PasswordHash, &p.CareerPoints, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// TopPlayers returns the leaderboard ordered by career points. This is the
// PostgreSQL fallback behind the Redis sorted set.
func (r *PlayerRepository) TopPlayers(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, handle, display_name, career_points
		 FROM players
		 ORDER BY career_points DESC, updated_at ASC
		 LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	rank := 0
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.PlayerID, &e.Handle, &e.DisplayName, &e.Points); err != nil {
			return nil, err
		}
		rank++
		e.Rank = rank
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
