package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxquiz/voxquiz-backend/internal/model"
	"github.com/voxquiz/voxquiz-backend/internal/phase"
)

// memStore is an in-memory implementation of the orchestrator's session,
// turn, and question store interfaces with the same semantics as the pgx
// repositories.
type memStore struct {
	sessions  map[uuid.UUID]*model.QuizSession
	turns     map[uuid.UUID]*model.SessionQuestion
	questions map[uuid.UUID]*model.Question
	now       func() time.Time
}

func newMemStore(clock func() time.Time) *memStore {
	if clock == nil {
		clock = time.Now
	}
	return &memStore{
		sessions:  map[uuid.UUID]*model.QuizSession{},
		turns:     map[uuid.UUID]*model.SessionQuestion{},
		questions: map[uuid.UUID]*model.Question{},
		now:       clock,
	}
}

func (m *memStore) addQuestion(q model.Question) uuid.UUID {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	q.Active = true
	m.questions[q.ID] = &q
	return q.ID
}

// session store

func (m *memStore) Create(ctx context.Context, s *model.QuizSession) error {
	s.ID = uuid.New()
	s.Status = model.SessionStatusActive
	s.StartedAt = m.now()
	s.LastActivityAt = s.StartedAt
	m.sessions[s.ID] = s
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id uuid.UUID) (*model.QuizSession, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *s
	return &clone, nil
}

func (m *memStore) GetActiveByPlayer(ctx context.Context, playerID int) (*model.QuizSession, error) {
	for _, s := range m.sessions {
		if s.PlayerID == playerID && s.Status == model.SessionStatusActive {
			clone := *s
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStore) AddScore(ctx context.Context, id uuid.UUID, delta int) error {
	m.sessions[id].TotalScore += delta
	m.sessions[id].LastActivityAt = m.now()
	return nil
}

func (m *memStore) SetCurrentIndex(ctx context.Context, id uuid.UUID, index int) error {
	m.sessions[id].CurrentQuestionIndex = index
	m.sessions[id].LastActivityAt = m.now()
	return nil
}

func (m *memStore) TouchActivity(ctx context.Context, id uuid.UUID) error {
	m.sessions[id].LastActivityAt = m.now()
	return nil
}

func (m *memStore) Complete(ctx context.Context, id uuid.UUID) error {
	s := m.sessions[id]
	if s.Status == model.SessionStatusActive || s.Status == model.SessionStatusPaused {
		now := m.now()
		s.Status = model.SessionStatusCompleted
		s.CompletedAt = &now
	}
	return nil
}

func (m *memStore) MarkAbandoned(ctx context.Context, id uuid.UUID) error {
	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	if s.Status == model.SessionStatusActive || s.Status == model.SessionStatusPaused {
		s.Status = model.SessionStatusAbandoned
	}
	return nil
}

// turn store

func (m *memStore) CreateTurn(ctx context.Context, sq *model.SessionQuestion) error {
	sq.ID = uuid.New()
	sq.PresentedAt = m.now()
	clone := *sq
	m.turns[sq.ID] = &clone
	return nil
}

func (m *memStore) GetTurnByID(ctx context.Context, id uuid.UUID) (*model.SessionQuestion, error) {
	sq, ok := m.turns[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *sq
	return &clone, nil
}

func (m *memStore) sessionTurns(sessionID uuid.UUID) []*model.SessionQuestion {
	var out []*model.SessionQuestion
	for _, sq := range m.turns {
		if sq.SessionID == sessionID {
			out = append(out, sq)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNum < out[j].OrderNum })
	return out
}

func (m *memStore) CurrentTurn(ctx context.Context, sessionID uuid.UUID) (*model.SessionQuestion, error) {
	turns := m.sessionTurns(sessionID)
	for i := len(turns) - 1; i >= 0; i-- {
		if !turns[i].Answered {
			clone := *turns[i]
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStore) CountAnswered(ctx context.Context, sessionID uuid.UUID) (int, error) {
	count := 0
	for _, sq := range m.turns {
		if sq.SessionID == sessionID && sq.Answered {
			count++
		}
	}
	return count, nil
}

func (m *memStore) RecordAnswer(ctx context.Context, id uuid.UUID, submitted string, correct bool, points int, responseTimeMs *int64) error {
	sq, ok := m.turns[id]
	if !ok || sq.Answered {
		return pgx.ErrNoRows
	}
	now := m.now()
	sq.Answered = true
	sq.AnsweredAt = &now
	sq.SubmittedAnswer = &submitted
	sq.IsCorrect = &correct
	sq.PointsEarned = points
	sq.ResponseTimeMs = responseTimeMs
	return nil
}

func (m *memStore) TrailingCorrect(ctx context.Context, sessionID uuid.UUID) (int, error) {
	turns := m.sessionTurns(sessionID)
	streak := 0
	for i := len(turns) - 1; i >= 0; i-- {
		if !turns[i].Answered {
			continue
		}
		if turns[i].IsCorrect == nil || !*turns[i].IsCorrect {
			break
		}
		streak++
	}
	return streak, nil
}

// question store

func (m *memStore) GetQuestionByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q, ok := m.questions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *q
	return &clone, nil
}

func (m *memStore) PickUnseen(ctx context.Context, sessionID uuid.UUID) (*model.Question, error) {
	seen := map[uuid.UUID]bool{}
	for _, sq := range m.turns {
		if sq.SessionID == sessionID {
			seen[sq.QuestionID] = true
		}
	}

	var ids []uuid.UUID
	for id := range m.questions {
		if m.questions[id].Active && !seen[id] {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, pgx.ErrNoRows
	}
	// Deterministic pick for tests.
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	clone := *m.questions[ids[0]]
	return &clone, nil
}

// turnAdapter maps memStore's turn methods onto the orchestratorTurnStore
// names, which collide with the session store's on a single struct.
type turnAdapter struct{ m *memStore }

func (a turnAdapter) Create(ctx context.Context, sq *model.SessionQuestion) error {
	return a.m.CreateTurn(ctx, sq)
}
func (a turnAdapter) GetByID(ctx context.Context, id uuid.UUID) (*model.SessionQuestion, error) {
	return a.m.GetTurnByID(ctx, id)
}
func (a turnAdapter) CurrentTurn(ctx context.Context, sessionID uuid.UUID) (*model.SessionQuestion, error) {
	return a.m.CurrentTurn(ctx, sessionID)
}
func (a turnAdapter) CountAnswered(ctx context.Context, sessionID uuid.UUID) (int, error) {
	return a.m.CountAnswered(ctx, sessionID)
}
func (a turnAdapter) RecordAnswer(ctx context.Context, id uuid.UUID, submitted string, correct bool, points int, responseTimeMs *int64) error {
	return a.m.RecordAnswer(ctx, id, submitted, correct, points, responseTimeMs)
}
func (a turnAdapter) TrailingCorrect(ctx context.Context, sessionID uuid.UUID) (int, error) {
	return a.m.TrailingCorrect(ctx, sessionID)
}

type questionAdapter struct{ m *memStore }

func (a questionAdapter) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	return a.m.GetQuestionByID(ctx, id)
}
func (a questionAdapter) PickUnseen(ctx context.Context, sessionID uuid.UUID) (*model.Question, error) {
	return a.m.PickUnseen(ctx, sessionID)
}

type fakeLeaderboard struct {
	entries  []model.LeaderboardEntry
	enqueued []int64
}

func (f *fakeLeaderboard) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if len(f.entries) > limit {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func (f *fakeLeaderboard) EnqueueScore(ctx context.Context, playerID int, delta int64) error {
	f.enqueued = append(f.enqueued, delta)
	return nil
}

type capturedEvent struct {
	routingKey string
	payload    any
}

type fakePublisher struct {
	events []capturedEvent
}

func (f *fakePublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	f.events = append(f.events, capturedEvent{routingKey, payload})
	return nil
}

// harness wires a full orchestrator over in-memory stores with a manual clock.
type harness struct {
	store     *memStore
	timing    *TimingService
	board     *fakeLeaderboard
	publisher *fakePublisher
	orch      *SessionOrchestrator
	clock     time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		board:     &fakeLeaderboard{},
		publisher: &fakePublisher{},
	}
	now := func() time.Time { return h.clock }

	h.store = newMemStore(now)
	h.timing = newTestTimingService(newFakeTimingStore(), now)

	recovery := NewRecoveryService(h.store, turnAdapter{h.store}, 30*time.Minute, zerolog.Nop())
	recovery.now = now

	h.orch = NewSessionOrchestrator(
		h.store,
		turnAdapter{h.store},
		questionAdapter{h.store},
		h.timing,
		recovery,
		h.board,
		h.board,
		h.publisher,
		10,
		time.Hour,
		zerolog.Nop(),
	)
	h.orch.now = now
	return h
}

func (h *harness) advance(d time.Duration) { h.clock = h.clock.Add(d) }

func (h *harness) seedQuestions(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		h.store.addQuestion(model.Question{
			Prompt:           "prompt",
			Answer:           "paris",
			Difficulty:       1,
			BasePoints:       10,
			TimeLimitSeconds: 30,
		})
	}
}

// startAndListen starts a session and plays the turn up to the listening
// phase (tts_end delivered).
func (h *harness) startAndListen(t *testing.T, playerID int) uuid.UUID {
	t.Helper()
	start, err := h.orch.StartSession(context.Background(), playerID)
	require.NoError(t, err)
	require.NotNil(t, start.Question)

	_, ph, err := h.orch.HandleTimingSignal(context.Background(), playerID, start.Session.ID, model.TimingTTSEnd, nil, nil)
	require.NoError(t, err)
	require.Equal(t, phase.PhaseListening, ph)
	return start.Session.ID
}

func TestStartSessionPresentsFirstQuestion(t *testing.T) {
	h := newHarness(t)
	h.seedQuestions(t, 3)

	start, err := h.orch.StartSession(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, phase.PhaseAsking, start.Phase)
	require.NotNil(t, start.Question)
	assert.Equal(t, 1, start.Question.OrderNum)

	require.Len(t, h.publisher.events, 1)
	assert.Equal(t, EventSessionStarted, h.publisher.events[0].routingKey)
}

func TestStartSessionIsIdempotentForActiveSession(t *testing.T) {
	h := newHarness(t)
	h.seedQuestions(t, 3)

	first, err := h.orch.StartSession(context.Background(), 1)
	require.NoError(t, err)

	// A retried start must reattach, not open a second session.
	second, err := h.orch.StartSession(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, first.Session.ID, second.Session.ID)
	require.NotNil(t, second.Question)
	assert.Equal(t, first.Question.SessionQuestionID, second.Question.SessionQuestionID)
	assert.Len(t, h.store.sessions, 1)
}

func TestToolCallsGatedByPhase(t *testing.T) {
	h := newHarness(t)
	h.seedQuestions(t, 3)

	start, err := h.orch.StartSession(context.Background(), 1)
	require.NoError(t, err)
	sessionID := start.Session.ID

	// Asking phase: answering before the question is read must be denied.
	_, err = h.orch.SubmitAnswer(context.Background(), 1, sessionID, "paris")
	var denied *ToolDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, phase.ToolSubmitAnswer, denied.Tool)
	assert.Equal(t, phase.PhaseAsking, denied.Phase)
	assert.Empty(t, denied.Allowed)

	// nextQuestion is also invalid mid-question.
	_, err = h.orch.NextQuestion(context.Background(), 1, sessionID)
	require.ErrorAs(t, err, &denied)

	// After tts_end the answer goes through.
	_, _, err = h.orch.HandleTimingSignal(context.Background(), 1, sessionID, model.TimingTTSEnd, nil, nil)
	require.NoError(t, err)
	outcome, err := h.orch.SubmitAnswer(context.Background(), 1, sessionID, "paris")
	require.NoError(t, err)
	assert.Equal(t, phase.PhasePostScore, outcome.Phase)

	// Post-score: a second answer for the same turn is denied.
	_, err = h.orch.SubmitAnswer(context.Background(), 1, sessionID, "paris")
	require.ErrorAs(t, err, &denied)
	assert.ElementsMatch(t,
		[]string{"nextQuestion", "finishSession", "getLeaderboard"},
		denied.AllowedNames())
}

func TestSubmitAnswerScoresWithTiming(t *testing.T) {
	h := newHarness(t)
	h.seedQuestions(t, 1)

	sessionID := h.startAndListen(t, 1)

	// Answer 15s into a 30s limit: half the time bonus remains.
	h.advance(15 * time.Second)
	outcome, err := h.orch.SubmitAnswer(context.Background(), 1, sessionID, "Paris")
	require.NoError(t, err)

	assert.True(t, outcome.Correct)
	assert.Equal(t, 10, outcome.Score.BasePoints)
	assert.Equal(t, 5, outcome.Score.TimeBonus)
	assert.Equal(t, 15, outcome.Score.Total)
	require.NotNil(t, outcome.ResponseTimeMs)
	assert.Equal(t, int64(15000), *outcome.ResponseTimeMs)
	assert.Equal(t, 15, outcome.SessionTotal)
	assert.Equal(t, 1, outcome.Streak)

	// The score delta was queued for career-points persistence.
	assert.Equal(t, []int64{15}, h.board.enqueued)

	// And the scored event went out.
	var keys []string
	for _, e := range h.publisher.events {
		keys = append(keys, e.routingKey)
	}
	assert.Contains(t, keys, EventAnswerScored)
}

func TestSubmitAnswerIncorrectResetsStreak(t *testing.T) {
	h := newHarness(t)
	h.seedQuestions(t, 3)

	sessionID := h.startAndListen(t, 1)

	outcome, err := h.orch.SubmitAnswer(context.Background(), 1, sessionID, "paris")
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Streak)

	_, err = h.orch.NextQuestion(context.Background(), 1, sessionID)
	require.NoError(t, err)
	_, _, err = h.orch.HandleTimingSignal(context.Background(), 1, sessionID, model.TimingTTSEnd, nil, nil)
	require.NoError(t, err)

	outcome, err = h.orch.SubmitAnswer(context.Background(), 1, sessionID, "completely wrong")
	require.NoError(t, err)
	assert.False(t, outcome.Correct)
	assert.Equal(t, 0, outcome.Score.Total)
	assert.Equal(t, 0, outcome.Streak)
}

func TestInfoLookupForfeitsTurn(t *testing.T) {
	h := newHarness(t)
	h.seedQuestions(t, 2)

	sessionID := h.startAndListen(t, 1)

	outcome, err := h.orch.InfoLookup(context.Background(), 1, sessionID, "what category is this")
	require.NoError(t, err)
	assert.False(t, outcome.Correct)
	assert.Equal(t, 0, outcome.SessionTotal)
	assert.Equal(t, phase.PhasePostScore, outcome.Phase)
	assert.Equal(t, "paris", outcome.CorrectAnswer)

	// The turn is settled as incorrect in durable state.
	answered, err := h.store.CountAnswered(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, answered)
}

func TestNextQuestionExhaustsCatalog(t *testing.T) {
	h := newHarness(t)
	h.seedQuestions(t, 1)

	sessionID := h.startAndListen(t, 1)
	_, err := h.orch.SubmitAnswer(context.Background(), 1, sessionID, "paris")
	require.NoError(t, err)

	_, err = h.orch.NextQuestion(context.Background(), 1, sessionID)
	assert.ErrorIs(t, err, ErrNoQuestionsLeft)
}

func TestFinishSessionCompletesAndResets(t *testing.T) {
	h := newHarness(t)
	h.seedQuestions(t, 1)

	sessionID := h.startAndListen(t, 1)
	_, err := h.orch.SubmitAnswer(context.Background(), 1, sessionID, "paris")
	require.NoError(t, err)

	summary, err := h.orch.FinishSession(context.Background(), 1, sessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.QuestionsAnswered)
	assert.Equal(t, phase.PhaseGreeting, summary.Phase)
	assert.Equal(t, model.SessionStatusCompleted, h.store.sessions[sessionID].Status)

	// Completed sessions accept no further tool calls.
	_, err = h.orch.NextQuestion(context.Background(), 1, sessionID)
	assert.ErrorIs(t, err, ErrSessionNotActive)
}

func TestHandleTimingSignalAdvancesToListeningOnce(t *testing.T) {
	h := newHarness(t)
	h.seedQuestions(t, 1)

	start, err := h.orch.StartSession(context.Background(), 1)
	require.NoError(t, err)
	sessionID := start.Session.ID

	_, ph, err := h.orch.HandleTimingSignal(context.Background(), 1, sessionID, model.TimingTTSStart, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, phase.PhaseAsking, ph)

	_, ph, err = h.orch.HandleTimingSignal(context.Background(), 1, sessionID, model.TimingTTSEnd, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, phase.PhaseListening, ph)

	// A duplicate tts_end is idempotent and leaves the phase alone.
	_, ph, err = h.orch.HandleTimingSignal(context.Background(), 1, sessionID, model.TimingTTSEnd, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, phase.PhaseListening, ph)
}

func TestResumeSessionReseedsListeningState(t *testing.T) {
	h := newHarness(t)
	h.seedQuestions(t, 2)

	sessionID := h.startAndListen(t, 1)

	// Connection drops; in-memory state is lost.
	h.orch.states = map[uuid.UUID]*sessionState{}
	h.advance(5 * time.Minute)

	result, ph, err := h.orch.ResumeSession(context.Background(), 1, sessionID)
	require.NoError(t, err)
	assert.True(t, result.CanResume)
	assert.Equal(t, phase.PhaseListening, ph)

	// The reseeded state still points at the open turn.
	outcome, err := h.orch.SubmitAnswer(context.Background(), 1, sessionID, "paris")
	require.NoError(t, err)
	assert.True(t, outcome.Correct)
}

func TestResumeSessionAfterTimeoutStartsNew(t *testing.T) {
	h := newHarness(t)
	h.seedQuestions(t, 2)

	sessionID := h.startAndListen(t, 1)
	h.orch.states = map[uuid.UUID]*sessionState{}
	h.advance(31 * time.Minute)

	result, ph, err := h.orch.ResumeSession(context.Background(), 1, sessionID)
	require.NoError(t, err)
	assert.False(t, result.CanResume)
	assert.Equal(t, model.SuggestedActionStartNew, result.SuggestedAction)
	assert.Equal(t, phase.PhaseGreeting, ph)
	assert.Equal(t, model.SessionStatusAbandoned, h.store.sessions[sessionID].Status)
}

func TestResumeRecountsStreakFromHistory(t *testing.T) {
	h := newHarness(t)
	h.seedQuestions(t, 4)

	sessionID := h.startAndListen(t, 1)

	// Two correct answers back to back.
	for i := 0; i < 2; i++ {
		_, err := h.orch.SubmitAnswer(context.Background(), 1, sessionID, "paris")
		require.NoError(t, err)
		_, err = h.orch.NextQuestion(context.Background(), 1, sessionID)
		require.NoError(t, err)
		_, _, err = h.orch.HandleTimingSignal(context.Background(), 1, sessionID, model.TimingTTSEnd, nil, nil)
		require.NoError(t, err)
	}

	// Drop state mid-turn and resume: the streak of 2 must survive, so the
	// next correct answer earns the first streak tier.
	h.orch.states = map[uuid.UUID]*sessionState{}
	_, _, err := h.orch.ResumeSession(context.Background(), 1, sessionID)
	require.NoError(t, err)

	outcome, err := h.orch.SubmitAnswer(context.Background(), 1, sessionID, "paris")
	require.NoError(t, err)
	assert.Equal(t, 5, outcome.Score.StreakBonus)
	assert.Equal(t, 3, outcome.Streak)
}

func TestSessionOwnershipHidden(t *testing.T) {
	h := newHarness(t)
	h.seedQuestions(t, 1)

	sessionID := h.startAndListen(t, 1)

	// Player 2 probing player 1's session sees NOT_FOUND everywhere.
	_, err := h.orch.SubmitAnswer(context.Background(), 2, sessionID, "paris")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, _, err = h.orch.HandleTimingSignal(context.Background(), 2, sessionID, model.TimingSpeechStart, nil, nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, _, err = h.orch.ResumeSession(context.Background(), 2, sessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestGetLeaderboardPhaseNeutral(t *testing.T) {
	h := newHarness(t)
	h.seedQuestions(t, 1)
	h.board.entries = []model.LeaderboardEntry{{Rank: 1, PlayerID: 1, Points: 99}}

	// Works with no session at all.
	entries, err := h.orch.GetLeaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// And mid-question, where regular tools are locked out.
	_, err = h.orch.StartSession(context.Background(), 1)
	require.NoError(t, err)
	entries, err = h.orch.GetLeaderboard(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
