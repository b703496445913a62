package model

import "time"

// ScoreDelta is one queued career-points increment, produced when an answer
// scores and consumed by the persistence worker in batches.
type ScoreDelta struct {
	PlayerID int       `json:"player_id"`
	Delta    int64     `json:"delta"`
	QueuedAt time.Time `json:"queued_at"`
}
