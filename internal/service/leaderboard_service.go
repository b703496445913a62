package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/voxquiz/voxquiz-backend/internal/config"
	"github.com/voxquiz/voxquiz-backend/internal/model"
)

// leaderboardPlayerStore is the player surface the leaderboard needs.
// *repository.PlayerRepository satisfies it.
type leaderboardPlayerStore interface {
	TopPlayers(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
	GetByIDs(ctx context.Context, ids []int) ([]model.Player, error)
}

// LeaderboardService serves the career-points leaderboard from a Redis
// sorted set, with PostgreSQL as the authoritative fallback, and feeds the
// score persistence queue.
type LeaderboardService struct {
	players leaderboardPlayerStore
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewLeaderboardService creates a new LeaderboardService.
func NewLeaderboardService(players leaderboardPlayerStore, rdb *redis.Client, log zerolog.Logger) *LeaderboardService {
	return &LeaderboardService{
		players: players,
		rdb:     rdb,
		log:     log.With().Str("component", "leaderboard_service").Logger(),
	}
}

// Top returns the highest-scoring players. The sorted set is the fast path;
// an empty or unreachable set falls back to the players table, which is
// always correct because career points are written there first.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	members, err := s.rdb.ZRevRangeWithScores(ctx, config.CacheKey.LeaderboardKey(), 0, int64(limit-1)).Result()
	if err != nil || len(members) == 0 {
		if err != nil {
			s.log.Warn().Err(err).Msg("leaderboard cache read failed, falling back to database")
		}
		return s.players.TopPlayers(ctx, limit)
	}

	ids := make([]int, 0, len(members))
	for _, m := range members {
		id, err := strconv.Atoi(fmt.Sprint(m.Member))
		if err != nil {
			s.log.Warn().Interface("member", m.Member).Msg("malformed leaderboard member, falling back to database")
			return s.players.TopPlayers(ctx, limit)
		}
		ids = append(ids, id)
	}

	players, err := s.players.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate leaderboard players: %w", err)
	}
	byID := make(map[int]*model.Player, len(players))
	for i := range players {
		byID[players[i].ID] = &players[i]
	}

	entries := make([]model.LeaderboardEntry, 0, len(members))
	for _, m := range members {
		id, _ := strconv.Atoi(fmt.Sprint(m.Member))
		p, ok := byID[id]
		if !ok {
			// Deleted player still in the cache; the next rebuild drops it.
			continue
		}
		entries = append(entries, model.LeaderboardEntry{
			Rank:        len(entries) + 1,
			PlayerID:    p.ID,
			Handle:      p.Handle,
			DisplayName: p.DisplayName,
			Points:      int64(m.Score),
		})
	}
	return entries, nil
}

// EnqueueScore queues a career-points increment for the persistence worker.
func (s *LeaderboardService) EnqueueScore(ctx context.Context, playerID int, delta int64) error {
	payload, err := json.Marshal(model.ScoreDelta{
		PlayerID: playerID,
		Delta:    delta,
		QueuedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal score delta: %w", err)
	}
	return s.rdb.RPush(ctx, config.WorkerKey.PersistScoresQueue, payload).Err()
}

// Rebuild repopulates the sorted set from the players table. Called at
// startup so the cache never serves stale ranks across a deploy.
func (s *LeaderboardService) Rebuild(ctx context.Context, size int) error {
	entries, err := s.players.TopPlayers(ctx, size)
	if err != nil {
		return fmt.Errorf("load top players: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	members := make([]redis.Z, len(entries))
	for i, e := range entries {
		members[i] = redis.Z{Score: float64(e.Points), Member: strconv.Itoa(e.PlayerID)}
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.LeaderboardKey())
	pipe.ZAdd(ctx, config.CacheKey.LeaderboardKey(), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rebuild leaderboard cache: %w", err)
	}

	s.log.Info().Int("players", len(entries)).Msg("leaderboard cache rebuilt")
	return nil
}
