package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/voxquiz/voxquiz-backend/internal/repository"
)

// SweepInterval is how often the sweeper scans for idle sessions.
const SweepInterval = time.Minute

// SweeperWorker abandons active sessions whose players silently vanished.
// The recovery coordinator catches timeouts at reconnect; the sweeper
// catches the players who never come back, so their sessions don't stay
// active forever.
type SweeperWorker struct {
	sessions *repository.SessionRepository
	timeout  time.Duration
	log      zerolog.Logger
}

// NewSweeperWorker creates a new SweeperWorker.
func NewSweeperWorker(sessions *repository.SessionRepository, timeout time.Duration, log zerolog.Logger) *SweeperWorker {
	return &SweeperWorker{
		sessions: sessions,
		timeout:  timeout,
		log:      log.With().Str("component", "sweeper_worker").Logger(),
	}
}

// Start begins the sweep loop. Call in a goroutine.
func (w *SweeperWorker) Start(ctx context.Context) {
	w.log.Info().Dur("timeout", w.timeout).Msg("session sweeper started")

	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("session sweeper stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SweeperWorker) sweep(ctx context.Context) {
	ids, err := w.sessions.AbandonIdle(ctx, int(w.timeout.Seconds()))
	if err != nil {
		w.log.Error().Err(err).Msg("sweep failed")
		return
	}
	if len(ids) > 0 {
		w.log.Info().Int("count", len(ids)).Msg("abandoned idle sessions")
	}
}
