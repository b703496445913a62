package scoring

import (
	"testing"
	"time"

	"github.com/voxquiz/voxquiz-backend/internal/model"
)

func testQuestion(basePoints, difficulty, limitSeconds int) *model.Question {
	return &model.Question{
		BasePoints:       basePoints,
		Difficulty:       difficulty,
		TimeLimitSeconds: limitSeconds,
	}
}

func breakdownWithResponseTime(rt time.Duration) *model.TimingBreakdown {
	return &model.TimingBreakdown{ResponseTime: &rt}
}

func TestComputeScoreIncorrectYieldsZero(t *testing.T) {
	q := testQuestion(10, 5, 30)
	got := ComputeScore(q, breakdownWithResponseTime(time.Second), 7, MatchResult{Type: MatchNone})
	if got.Total != 0 || got.BasePoints != 0 || got.TimeBonus != 0 || got.StreakBonus != 0 || got.DifficultyBonus != 0 {
		t.Errorf("incorrect answer must score zero on every component, got %+v", got)
	}
}

func TestTimeBonusBoundaries(t *testing.T) {
	q := testQuestion(10, 1, 30)

	// responseTime == 0 → maximal bonus for this question.
	instant := ComputeScore(q, breakdownWithResponseTime(0), 0, MatchResult{Type: MatchExact, Similarity: 1})
	if instant.TimeBonus != q.BasePoints {
		t.Errorf("instant answer time bonus = %d, want %d", instant.TimeBonus, q.BasePoints)
	}

	// responseTime == timeLimit → exactly zero.
	atLimit := ComputeScore(q, breakdownWithResponseTime(30*time.Second), 0, MatchResult{Type: MatchExact, Similarity: 1})
	if atLimit.TimeBonus != 0 {
		t.Errorf("at-limit time bonus = %d, want 0", atLimit.TimeBonus)
	}

	// responseTime beyond the limit stays zero.
	late := ComputeScore(q, breakdownWithResponseTime(2*time.Minute), 0, MatchResult{Type: MatchExact, Similarity: 1})
	if late.TimeBonus != 0 {
		t.Errorf("late time bonus = %d, want 0", late.TimeBonus)
	}
}

func TestTimeBonusMonotonicallyDecreasing(t *testing.T) {
	q := testQuestion(100, 1, 60)
	prev := -1
	for rt := 60 * time.Second; rt >= 0; rt -= 5 * time.Second {
		got := ComputeScore(q, breakdownWithResponseTime(rt), 0, MatchResult{Type: MatchExact, Similarity: 1})
		if got.TimeBonus < prev {
			t.Fatalf("time bonus decreased from %d to %d as response time shrank to %s", prev, got.TimeBonus, rt)
		}
		prev = got.TimeBonus
	}
}

func TestMissingTimingDefaultsToZeroBonus(t *testing.T) {
	q := testQuestion(10, 3, 30)

	// A nil breakdown (no events at all) must not block scoring.
	got := ComputeScore(q, nil, 0, MatchResult{Type: MatchExact, Similarity: 1})
	if got.TimeBonus != 0 {
		t.Errorf("nil breakdown time bonus = %d, want 0", got.TimeBonus)
	}
	if got.Total == 0 {
		t.Error("missing timing must degrade reward, not block scoring")
	}

	// A breakdown with no derivable response time behaves the same.
	got = ComputeScore(q, &model.TimingBreakdown{}, 0, MatchResult{Type: MatchExact, Similarity: 1})
	if got.TimeBonus != 0 {
		t.Errorf("empty breakdown time bonus = %d, want 0", got.TimeBonus)
	}
}

func TestDifficultyStrictlyDominates(t *testing.T) {
	rt := 5 * time.Second
	prevTotal := -1
	for difficulty := 1; difficulty <= 5; difficulty++ {
		q := testQuestion(100, difficulty, 30)
		got := ComputeScore(q, breakdownWithResponseTime(rt), 0, MatchResult{Type: MatchExact, Similarity: 1})
		if got.Total <= prevTotal {
			t.Fatalf("difficulty %d total %d does not dominate difficulty %d total %d", difficulty, got.Total, difficulty-1, prevTotal)
		}
		prevTotal = got.Total
	}
}

func TestStreakBonusMonotonicWithCap(t *testing.T) {
	prev := 0
	for n := 0; n <= 12; n++ {
		bonus := StreakBonus(n)
		if bonus < prev {
			t.Fatalf("StreakBonus(%d) = %d < StreakBonus(%d) = %d", n, bonus, n-1, prev)
		}
		prev = bonus
	}

	if StreakBonus(streakTier4Count) != streakTier4Bonus {
		t.Errorf("cap tier bonus = %d, want %d", StreakBonus(streakTier4Count), streakTier4Bonus)
	}
	if StreakBonus(100) != streakTier4Bonus {
		t.Errorf("bonus beyond cap = %d, want %d", StreakBonus(100), streakTier4Bonus)
	}
}

func TestStreakResetsOnIncorrect(t *testing.T) {
	q := testQuestion(10, 2, 30)
	got := ComputeScore(q, breakdownWithResponseTime(time.Second), 9, MatchResult{Type: MatchNone})
	if got.StreakBonus != 0 {
		t.Errorf("incorrect answer streak bonus = %d, want 0", got.StreakBonus)
	}
}

// A correct 5s answer on a 30s, difficulty-3, 10-point question must beat
// the bare base points: nonzero time bonus plus nonzero difficulty bonus.
func TestFastCorrectAnswerBeatsBasePoints(t *testing.T) {
	q := testQuestion(10, 3, 30)
	got := ComputeScore(q, breakdownWithResponseTime(5*time.Second), 0, MatchResult{Type: MatchExact, Similarity: 1})

	if got.Total <= q.BasePoints {
		t.Errorf("total = %d, want strictly greater than base %d", got.Total, q.BasePoints)
	}
	if got.TimeBonus == 0 {
		t.Error("expected nonzero time bonus for a 5s answer on a 30s limit")
	}
	if got.DifficultyBonus == 0 {
		t.Error("expected nonzero difficulty bonus at difficulty 3")
	}
	if sum := got.BasePoints + got.TimeBonus + got.StreakBonus + got.DifficultyBonus; sum != got.Total {
		t.Errorf("breakdown sum %d != total %d", sum, got.Total)
	}
}
