package scoring

import (
	"time"

	"github.com/voxquiz/voxquiz-backend/internal/model"
)

// Streak bonus tiers: a non-decreasing step function of consecutive-correct
// count, capped at the top tier. The streak count passed to ComputeScore is
// the number of consecutive correct answers before the current one.
const (
	streakTier1Count = 2
	streakTier2Count = 4
	streakTier3Count = 6
	streakTier4Count = 8

	streakTier1Bonus = 5
	streakTier2Bonus = 10
	streakTier3Bonus = 15
	streakTier4Bonus = 20
)

// difficultyBonusPercent is the share of base points awarded per difficulty
// step above 1, so harder questions strictly dominate easier ones at equal
// timing and correctness.
const difficultyBonusPercent = 15

// ScoreResult is the full points award with its per-component breakdown.
// The breakdown is a public contract: the client displays each component.
type ScoreResult struct {
	BasePoints      int `json:"base_pts"`
	TimeBonus       int `json:"time_bonus_pts"`
	StreakBonus     int `json:"streak_bonus_pts"`
	DifficultyBonus int `json:"difficulty_bonus_pts"`
	Total           int `json:"total"`
}

// ComputeScore converts timing, question metadata, streak count, and match
// classification into a points award.
//
// Timing gaps degrade reward, they never block scoring: a missing timer
// start or answer timestamp simply yields a zero time bonus.
func ComputeScore(q *model.Question, breakdown *model.TimingBreakdown, streakCount int, match MatchResult) ScoreResult {
	if !match.Scorable() {
		return ScoreResult{}
	}

	base := q.BasePoints
	timeBonus := computeTimeBonus(base, breakdown, q.TimeLimit())
	difficultyBonus := base * difficultyBonusPercent * (q.Difficulty - 1) / 100
	streakBonus := StreakBonus(streakCount)

	return ScoreResult{
		BasePoints:      base,
		TimeBonus:       timeBonus,
		StreakBonus:     streakBonus,
		DifficultyBonus: difficultyBonus,
		Total:           base + timeBonus + streakBonus + difficultyBonus,
	}
}

// computeTimeBonus decays linearly from the full base points at an instant
// answer down to exactly zero once responseTime >= timeLimit.
func computeTimeBonus(base int, breakdown *model.TimingBreakdown, limit time.Duration) int {
	if breakdown == nil || breakdown.ResponseTime == nil || limit <= 0 {
		return 0
	}

	rt := *breakdown.ResponseTime
	if rt < 0 {
		rt = 0
	}
	if rt >= limit {
		return 0
	}

	remaining := float64(limit-rt) / float64(limit)
	return int(float64(base) * remaining)
}

// StreakBonus returns the step bonus for the given consecutive-correct count.
func StreakBonus(streakCount int) int {
	switch {
	case streakCount >= streakTier4Count:
		return streakTier4Bonus
	case streakCount >= streakTier3Count:
		return streakTier3Bonus
	case streakCount >= streakTier2Count:
		return streakTier2Bonus
	case streakCount >= streakTier1Count:
		return streakTier1Bonus
	default:
		return 0
	}
}
