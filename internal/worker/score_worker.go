package worker

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/voxquiz/voxquiz-backend/internal/config"
	"github.com/voxquiz/voxquiz-backend/internal/model"
)

const (
	ScoreBatchSize    = 50
	ScoreBatchTimeout = 2 * time.Second
	ScorePollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ScoreWorker consumes queued score deltas and applies them to career
// points: the players table first (authoritative), then the leaderboard
// sorted set as a cache mirror.
type ScoreWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewScoreWorker creates a new ScoreWorker.
func NewScoreWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ScoreWorker {
	return &ScoreWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "score_worker").Logger(),
	}
}

// Start begins the worker loop with batching. Call in a goroutine.
func (w *ScoreWorker) Start(ctx context.Context) {
	w.log.Info().Msg("score worker started")

	batch := make([]*model.ScoreDelta, 0, ScoreBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ScoreBatchSize || time.Since(lastFlush) >= ScoreBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("shutdown requested, flushing remaining batch")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ScorePollTimeout, config.WorkerKey.PersistScoresQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			var d model.ScoreDelta
			if err := json.Unmarshal([]byte(item[1]), &d); err != nil {
				w.log.Error().Err(err).Msg("invalid score delta payload")
				continue
			}
			batch = append(batch, &d)
		}
	}
}

func (w *ScoreWorker) flushSafe(ctx context.Context, batch []*model.ScoreDelta) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkAddPoints(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk career-points update failed, using fallback")

		for _, d := range batch {
			if err := w.persistSingle(ctx, d); err != nil {
				w.log.Error().Err(err).Int("player_id", d.PlayerID).Msg("single persist failed, requeueing")
				raw, _ := json.Marshal(d)
				w.rdb.RPush(ctx, config.WorkerKey.PersistScoresQueue, raw)
			}
		}
		return
	}

	w.mirrorToLeaderboard(ctx, batch)
}

// bulkAddPoints applies all deltas in one UPDATE using UNNEST. Deltas for
// the same player are summed first so the single-statement update stays
// correct.
func (w *ScoreWorker) bulkAddPoints(ctx context.Context, batch []*model.ScoreDelta) error {
	totals := make(map[int]int64, len(batch))
	for _, d := range batch {
		totals[d.PlayerID] += d.Delta
	}

	playerIDs := make([]int, 0, len(totals))
	deltas := make([]int64, 0, len(totals))
	for id, delta := range totals {
		playerIDs = append(playerIDs, id)
		deltas = append(deltas, delta)
	}

	_, err := w.pool.Exec(ctx, `
		UPDATE players AS p
		SET career_points = p.career_points + t.delta,
		    updated_at = NOW()
		FROM (
			SELECT u.player_id, u.delta
			FROM UNNEST($1::int[], $2::bigint[]) AS u (player_id, delta)
		) AS t
		WHERE p.id = t.player_id`,
		playerIDs, deltas)
	return err
}

func (w *ScoreWorker) persistSingle(ctx context.Context, d *model.ScoreDelta) error {
	_, err := w.pool.Exec(ctx,
		`UPDATE players
		 SET career_points = career_points + $1, updated_at = NOW()
		 WHERE id = $2`,
		d.Delta, d.PlayerID)
	if err != nil {
		return err
	}
	w.rdb.ZIncrBy(ctx, config.CacheKey.LeaderboardKey(), float64(d.Delta), strconv.Itoa(d.PlayerID))
	return nil
}

// mirrorToLeaderboard increments the sorted set after a successful bulk
// update. Cache errors are logged only; the next Rebuild repairs the set.
func (w *ScoreWorker) mirrorToLeaderboard(ctx context.Context, batch []*model.ScoreDelta) {
	pipe := w.rdb.Pipeline()
	for _, d := range batch {
		pipe.ZIncrBy(ctx, config.CacheKey.LeaderboardKey(), float64(d.Delta), strconv.Itoa(d.PlayerID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Warn().Err(err).Msg("leaderboard cache mirror failed")
	}
}
