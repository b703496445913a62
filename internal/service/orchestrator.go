package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/voxquiz/voxquiz-backend/internal/model"
	"github.com/voxquiz/voxquiz-backend/internal/phase"
	"github.com/voxquiz/voxquiz-backend/internal/scoring"
)

// Domain Errors
var (
	ErrSessionNotActive = errors.New("session is not active")
	ErrNoQuestionsLeft  = errors.New("no unplayed questions remain")
	ErrNoCurrentTurn    = errors.New("no question is currently open")
)

// ToolDeniedError reports a tool call rejected by the phase gate. It carries
// the allowed set so the client can tell the player what they can do instead.
type ToolDeniedError struct {
	Tool    phase.Tool
	Phase   phase.Phase
	Reason  string
	Allowed []phase.Tool
}

func (e *ToolDeniedError) Error() string { return e.Reason }

// AllowedNames returns the allowed tool names for error payloads.
func (e *ToolDeniedError) AllowedNames() []string {
	names := make([]string, len(e.Allowed))
	for i, t := range e.Allowed {
		names[i] = string(t)
	}
	return names
}

// Event routing keys published to the voxquiz.events exchange.
const (
	EventSessionStarted   = "session.started"
	EventAnswerScored     = "answer.scored"
	EventSessionCompleted = "session.completed"
)

// Store surfaces the orchestrator needs. The pgx repositories satisfy all of
// them; tests substitute in-memory fakes.
type orchestratorSessionStore interface {
	Create(ctx context.Context, s *model.QuizSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.QuizSession, error)
	GetActiveByPlayer(ctx context.Context, playerID int) (*model.QuizSession, error)
	AddScore(ctx context.Context, id uuid.UUID, delta int) error
	SetCurrentIndex(ctx context.Context, id uuid.UUID, index int) error
	TouchActivity(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID) error
}

type orchestratorTurnStore interface {
	Create(ctx context.Context, sq *model.SessionQuestion) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.SessionQuestion, error)
	CurrentTurn(ctx context.Context, sessionID uuid.UUID) (*model.SessionQuestion, error)
	CountAnswered(ctx context.Context, sessionID uuid.UUID) (int, error)
	RecordAnswer(ctx context.Context, id uuid.UUID, submitted string, correct bool, points int, responseTimeMs *int64) error
	TrailingCorrect(ctx context.Context, sessionID uuid.UUID) (int, error)
}

type questionPicker interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
	PickUnseen(ctx context.Context, sessionID uuid.UUID) (*model.Question, error)
}

type turnTimer interface {
	RecordEvent(ctx context.Context, sessionQuestionID uuid.UUID, eventType model.TimingEventType, clientTimestampMs *int64, metadata map[string]string) (*model.TimingEvent, bool, error)
	Breakdown(ctx context.Context, sessionQuestionID uuid.UUID) (*model.TimingBreakdown, error)
}

type reconnectionEvaluator interface {
	EvaluateReconnection(ctx context.Context, sessionID uuid.UUID, playerID int) (*model.ReconnectionResult, error)
}

type leaderboardReader interface {
	Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

type scoreQueue interface {
	EnqueueScore(ctx context.Context, playerID int, delta int64) error
}

type eventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// sessionState is the in-memory, single-writer conversation state of one
// session. Everything here is rebuildable from PostgreSQL, so losing it on a
// restart only costs a phase reseed on the next action.
type sessionState struct {
	phase         phase.Phase
	streak        int
	currentTurnID uuid.UUID
	lastSeen      time.Time
}

// SessionOrchestrator is the composition root of a quiz conversation. It owns
// the phase gate, routes tool calls and timing signals, and guarantees a
// single writer per session via a per-session lock.
type SessionOrchestrator struct {
	sessions    orchestratorSessionStore
	turns       orchestratorTurnStore
	questions   questionPicker
	timing      turnTimer
	recovery    reconnectionEvaluator
	leaderboard leaderboardReader
	scores      scoreQueue
	events      eventPublisher

	leaderboardSize int
	stateTTL        time.Duration
	now             func() time.Time
	log             zerolog.Logger

	mu     sync.Mutex
	states map[uuid.UUID]*sessionState
	locks  sync.Map // uuid.UUID -> *sync.Mutex
}

// NewSessionOrchestrator creates a new SessionOrchestrator. events may be nil
// when no message broker is configured; publishing then becomes a no-op.
func NewSessionOrchestrator(
	sessions orchestratorSessionStore,
	turns orchestratorTurnStore,
	questions questionPicker,
	timing turnTimer,
	recovery reconnectionEvaluator,
	leaderboard leaderboardReader,
	scores scoreQueue,
	events eventPublisher,
	leaderboardSize int,
	stateTTL time.Duration,
	log zerolog.Logger,
) *SessionOrchestrator {
	return &SessionOrchestrator{
		sessions:        sessions,
		turns:           turns,
		questions:       questions,
		timing:          timing,
		recovery:        recovery,
		leaderboard:     leaderboard,
		scores:          scores,
		events:          events,
		leaderboardSize: leaderboardSize,
		stateTTL:        stateTTL,
		now:             time.Now,
		log:             log.With().Str("component", "session_orchestrator").Logger(),
		states:          map[uuid.UUID]*sessionState{},
	}
}

// lockSession serializes all writers of one session. Different sessions
// proceed in parallel.
func (o *SessionOrchestrator) lockSession(id uuid.UUID) func() {
	v, _ := o.locks.LoadOrStore(id, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// QuestionPrompt is the presentation payload for one turn.
type QuestionPrompt struct {
	SessionID         uuid.UUID `json:"session_id"`
	SessionQuestionID uuid.UUID `json:"session_question_id"`
	QuestionID        uuid.UUID `json:"question_id"`
	OrderNum          int       `json:"order_num"`
	Prompt            string    `json:"prompt"`
	Category          string    `json:"category"`
	Difficulty        int       `json:"difficulty"`
	TimeLimitSeconds  int       `json:"time_limit_seconds"`
}

// SessionStart is the startSession payload: the session plus its first (or
// currently open) question.
type SessionStart struct {
	Session  *model.QuizSession `json:"session"`
	Question *QuestionPrompt    `json:"question,omitempty"`
	Phase    phase.Phase        `json:"phase"`
}

// AnswerOutcome is the submitAnswer payload: correctness, the full score
// breakdown, and the session running totals.
type AnswerOutcome struct {
	Correct        bool                `json:"correct"`
	Match          scoring.MatchResult `json:"match"`
	Score          scoring.ScoreResult `json:"score"`
	CorrectAnswer  string              `json:"correct_answer"`
	ResponseTimeMs *int64              `json:"response_time_ms,omitempty"`
	Streak         int                 `json:"streak"`
	SessionTotal   int                 `json:"session_total"`
	Phase          phase.Phase         `json:"phase"`
}

// SessionSummary is the finishSession payload.
type SessionSummary struct {
	SessionID         uuid.UUID   `json:"session_id"`
	TotalScore        int         `json:"total_score"`
	QuestionsAnswered int         `json:"questions_answered"`
	Phase             phase.Phase `json:"phase"`
}

// ─── Tool calls ──────────────────────────────────────────────────────────────

// StartSession begins a quiz run for the player, presenting the first
// question. Calling it while an active session exists does not error: the
// existing session is resumed instead, so a retried "start" after a flaky
// connection never strands the player.
func (o *SessionOrchestrator) StartSession(ctx context.Context, playerID int) (*SessionStart, error) {
	existing, err := o.sessions.GetActiveByPlayer(ctx, playerID)
	switch {
	case err == nil:
		return o.resumeExisting(ctx, existing)
	case errors.Is(err, pgx.ErrNoRows):
		// No active session; fall through to create one.
	default:
		return nil, fmt.Errorf("check active session: %w", err)
	}

	session := &model.QuizSession{PlayerID: playerID}
	if err := o.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	unlock := o.lockSession(session.ID)
	defer unlock()

	o.putState(session.ID, &sessionState{phase: phase.PhaseGreeting})

	prompt, err := o.presentNext(ctx, session)
	if err != nil {
		return nil, err
	}

	o.publish(ctx, EventSessionStarted, map[string]any{
		"session_id": session.ID,
		"player_id":  playerID,
		"started_at": session.StartedAt,
	})

	return &SessionStart{Session: session, Question: prompt, Phase: phase.PhaseAsking}, nil
}

// resumeExisting reattaches a startSession call to the player's live session.
func (o *SessionOrchestrator) resumeExisting(ctx context.Context, session *model.QuizSession) (*SessionStart, error) {
	unlock := o.lockSession(session.ID)
	defer unlock()

	state, err := o.stateFor(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	start := &SessionStart{Session: session, Phase: state.phase}
	if state.currentTurnID != uuid.Nil {
		turn, err := o.turns.GetByID(ctx, state.currentTurnID)
		if err != nil {
			return nil, fmt.Errorf("load open turn: %w", err)
		}
		question, err := o.questions.GetByID(ctx, turn.QuestionID)
		if err != nil {
			return nil, fmt.Errorf("load open question: %w", err)
		}
		start.Question = promptFor(session.ID, turn, question)
	}
	return start, nil
}

// NextQuestion presents the next unplayed question. Valid from the greeting
// phase (a resumed session with no open turn) and from post-score.
func (o *SessionOrchestrator) NextQuestion(ctx context.Context, playerID int, sessionID uuid.UUID) (*QuestionPrompt, error) {
	unlock := o.lockSession(sessionID)
	defer unlock()

	session, state, err := o.gate(ctx, playerID, sessionID, phase.ToolNextQuestion)
	if err != nil {
		return nil, err
	}

	prompt, err := o.presentNext(ctx, session)
	if err != nil {
		return nil, err
	}
	state.phase = phase.PhaseAsking
	state.lastSeen = o.now()
	return prompt, nil
}

// ReportIntent acknowledges a mid-listening conversational signal such as
// "let me think". It refreshes the activity clock and changes nothing else.
func (o *SessionOrchestrator) ReportIntent(ctx context.Context, playerID int, sessionID uuid.UUID, intent string) (phase.Phase, error) {
	unlock := o.lockSession(sessionID)
	defer unlock()

	_, state, err := o.gate(ctx, playerID, sessionID, phase.ToolReportIntent)
	if err != nil {
		return "", err
	}

	if err := o.sessions.TouchActivity(ctx, sessionID); err != nil {
		return "", fmt.Errorf("touch activity: %w", err)
	}
	state.lastSeen = o.now()

	o.log.Debug().
		Str("session_id", sessionID.String()).
		Str("intent", intent).
		Msg("player intent reported")
	return state.phase, nil
}

// SubmitAnswer settles the open turn: it records the answer_received timing
// event, classifies the transcribed answer, computes the score, and persists
// the outcome. The phase moves to post-score whether or not the answer was
// correct.
func (o *SessionOrchestrator) SubmitAnswer(ctx context.Context, playerID int, sessionID uuid.UUID, answer string) (*AnswerOutcome, error) {
	unlock := o.lockSession(sessionID)
	defer unlock()

	session, state, err := o.gate(ctx, playerID, sessionID, phase.ToolSubmitAnswer)
	if err != nil {
		return nil, err
	}
	if state.currentTurnID == uuid.Nil {
		return nil, ErrNoCurrentTurn
	}

	turn, err := o.turns.GetByID(ctx, state.currentTurnID)
	if err != nil {
		return nil, fmt.Errorf("load open turn: %w", err)
	}
	question, err := o.questions.GetByID(ctx, turn.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("load question: %w", err)
	}

	if _, _, err := o.timing.RecordEvent(ctx, turn.ID, model.TimingAnswerReceived, nil, nil); err != nil {
		return nil, err
	}
	breakdown, err := o.timing.Breakdown(ctx, turn.ID)
	if err != nil {
		return nil, err
	}

	match := scoring.ClassifyAnswer(answer, question.Answer, question.AltAnswers)
	score := scoring.ComputeScore(question, breakdown, state.streak, match)
	correct := match.Scorable()

	if err := o.turns.RecordAnswer(ctx, turn.ID, answer, correct, score.Total, breakdown.ResponseTimeMs()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Already settled by an earlier delivery of the same answer.
			return nil, ErrNoCurrentTurn
		}
		return nil, fmt.Errorf("record answer: %w", err)
	}

	if correct {
		state.streak++
	} else {
		state.streak = 0
	}

	if score.Total > 0 {
		if err := o.sessions.AddScore(ctx, sessionID, score.Total); err != nil {
			return nil, fmt.Errorf("add session score: %w", err)
		}
		session.TotalScore += score.Total
		if err := o.scores.EnqueueScore(ctx, playerID, int64(score.Total)); err != nil {
			// Career points catch up from PostgreSQL on the next rebuild;
			// the session outcome is already durable.
			o.log.Error().Err(err).
				Str("session_id", sessionID.String()).
				Msg("failed to enqueue score delta")
		}
	} else if err := o.sessions.TouchActivity(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("touch activity: %w", err)
	}

	state.currentTurnID = uuid.Nil
	state.phase = phase.PhasePostScore
	state.lastSeen = o.now()

	o.publish(ctx, EventAnswerScored, map[string]any{
		"session_id":  sessionID,
		"player_id":   playerID,
		"question_id": question.ID,
		"match_type":  match.Type,
		"points":      score.Total,
		"streak":      state.streak,
	})

	return &AnswerOutcome{
		Correct:        correct,
		Match:          match,
		Score:          score,
		CorrectAnswer:  question.Answer,
		ResponseTimeMs: breakdown.ResponseTimeMs(),
		Streak:         state.streak,
		SessionTotal:   session.TotalScore,
		Phase:          phase.PhasePostScore,
	}, nil
}

// InfoLookup answers a player's side question ("what category is this?")
// at the cost of the turn: the open question is settled as incorrect with
// zero points and the streak resets, closing the cheat channel where a
// lookup buys unbounded thinking time.
func (o *SessionOrchestrator) InfoLookup(ctx context.Context, playerID int, sessionID uuid.UUID, query string) (*AnswerOutcome, error) {
	unlock := o.lockSession(sessionID)
	defer unlock()

	session, state, err := o.gate(ctx, playerID, sessionID, phase.ToolInfoLookup)
	if err != nil {
		return nil, err
	}
	if state.currentTurnID == uuid.Nil {
		return nil, ErrNoCurrentTurn
	}

	turn, err := o.turns.GetByID(ctx, state.currentTurnID)
	if err != nil {
		return nil, fmt.Errorf("load open turn: %w", err)
	}
	question, err := o.questions.GetByID(ctx, turn.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("load question: %w", err)
	}

	forfeit := "[info lookup] " + strings.TrimSpace(query)
	if err := o.turns.RecordAnswer(ctx, turn.ID, forfeit, false, 0, nil); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoCurrentTurn
		}
		return nil, fmt.Errorf("forfeit turn: %w", err)
	}
	if err := o.sessions.TouchActivity(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("touch activity: %w", err)
	}

	state.streak = 0
	state.currentTurnID = uuid.Nil
	state.phase = phase.PhasePostScore
	state.lastSeen = o.now()

	return &AnswerOutcome{
		Correct:       false,
		Match:         scoring.MatchResult{Type: scoring.MatchNone},
		CorrectAnswer: question.Answer,
		SessionTotal:  session.TotalScore,
		Phase:         phase.PhasePostScore,
	}, nil
}

// FinishSession completes the quiz run and returns the final summary. The
// conversation drops back to greeting, ready for a fresh start.
func (o *SessionOrchestrator) FinishSession(ctx context.Context, playerID int, sessionID uuid.UUID) (*SessionSummary, error) {
	unlock := o.lockSession(sessionID)
	defer unlock()

	session, _, err := o.gate(ctx, playerID, sessionID, phase.ToolFinishSession)
	if err != nil {
		return nil, err
	}

	if err := o.sessions.Complete(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("complete session: %w", err)
	}
	answered, err := o.turns.CountAnswered(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("count answered turns: %w", err)
	}

	o.dropState(sessionID)

	o.publish(ctx, EventSessionCompleted, map[string]any{
		"session_id":  sessionID,
		"player_id":   playerID,
		"total_score": session.TotalScore,
		"answered":    answered,
	})

	return &SessionSummary{
		SessionID:         sessionID,
		TotalScore:        session.TotalScore,
		QuestionsAnswered: answered,
		Phase:             phase.PhaseGreeting,
	}, nil
}

// GetLeaderboard returns the career-points leaderboard. The read is
// phase-neutral and works even without any session.
func (o *SessionOrchestrator) GetLeaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	return o.leaderboard.Top(ctx, o.leaderboardSize)
}

// ─── Timing and recovery ─────────────────────────────────────────────────────

// HandleTimingSignal records a lifecycle timestamp for the open turn. A
// tts_end while the question is being read advances the conversation to
// listening; every other event leaves the phase alone.
func (o *SessionOrchestrator) HandleTimingSignal(ctx context.Context, playerID int, sessionID uuid.UUID, eventType model.TimingEventType, clientTimestampMs *int64, metadata map[string]string) (*model.TimingEvent, phase.Phase, error) {
	unlock := o.lockSession(sessionID)
	defer unlock()

	session, state, err := o.loadOwned(ctx, playerID, sessionID)
	if err != nil {
		return nil, "", err
	}
	if session.Status != model.SessionStatusActive {
		return nil, "", ErrSessionNotActive
	}
	if state.currentTurnID == uuid.Nil {
		return nil, "", ErrNoCurrentTurn
	}

	event, _, err := o.timing.RecordEvent(ctx, state.currentTurnID, eventType, clientTimestampMs, metadata)
	if err != nil {
		return nil, "", err
	}

	if eventType == model.TimingTTSEnd && state.phase == phase.PhaseAsking {
		if phase.IsValidTransition(state.phase, phase.PhaseListening) {
			state.phase = phase.PhaseListening
		} else {
			o.log.Warn().
				Str("session_id", sessionID.String()).
				Str("phase", string(state.phase)).
				Msg("tts_end received but listening transition rejected")
		}
	}
	state.lastSeen = o.now()

	return event, state.phase, nil
}

// ResumeSession evaluates a reconnect and, when the session is resumable,
// reseeds the in-memory conversation state from the database.
func (o *SessionOrchestrator) ResumeSession(ctx context.Context, playerID int, sessionID uuid.UUID) (*model.ReconnectionResult, phase.Phase, error) {
	unlock := o.lockSession(sessionID)
	defer unlock()

	result, err := o.recovery.EvaluateReconnection(ctx, sessionID, playerID)
	if err != nil {
		return nil, "", err
	}
	if !result.CanResume {
		o.dropState(sessionID)
		return result, phase.PhaseGreeting, nil
	}

	state, err := o.reseed(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	o.putState(sessionID, state)

	if err := o.sessions.TouchActivity(ctx, sessionID); err != nil {
		return nil, "", fmt.Errorf("touch activity: %w", err)
	}

	return result, state.phase, nil
}

// ─── Internal helpers ────────────────────────────────────────────────────────

// gate loads the session, verifies ownership and liveness, and runs the tool
// through the phase gate.
func (o *SessionOrchestrator) gate(ctx context.Context, playerID int, sessionID uuid.UUID, tool phase.Tool) (*model.QuizSession, *sessionState, error) {
	session, state, err := o.loadOwned(ctx, playerID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if session.Status != model.SessionStatusActive {
		return nil, nil, ErrSessionNotActive
	}

	decision := phase.CheckToolCall(state.phase, tool)
	if !decision.Allowed {
		return nil, nil, &ToolDeniedError{
			Tool:    tool,
			Phase:   state.phase,
			Reason:  decision.Reason,
			Allowed: phase.AllowedTools(state.phase),
		}
	}
	return session, state, nil
}

func (o *SessionOrchestrator) loadOwned(ctx context.Context, playerID int, sessionID uuid.UUID) (*model.QuizSession, *sessionState, error) {
	session, err := o.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("load session: %w", err)
	}
	if session.PlayerID != playerID {
		return nil, nil, ErrSessionNotFound
	}

	state, err := o.stateFor(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return session, state, nil
}

// stateFor returns the in-memory state of a session, reseeding it from the
// database after a restart or eviction.
func (o *SessionOrchestrator) stateFor(ctx context.Context, sessionID uuid.UUID) (*sessionState, error) {
	o.mu.Lock()
	state, ok := o.states[sessionID]
	o.mu.Unlock()
	if ok {
		return state, nil
	}

	state, err := o.reseed(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	o.putState(sessionID, state)
	return state, nil
}

// reseed rebuilds conversation state from durable rows: an open turn puts
// the session in listening, a settled history in post-score, and an empty
// session back in greeting. The streak is recounted from the answer history.
func (o *SessionOrchestrator) reseed(ctx context.Context, sessionID uuid.UUID) (*sessionState, error) {
	state := &sessionState{phase: phase.PhaseGreeting, lastSeen: o.now()}

	streak, err := o.turns.TrailingCorrect(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("recount streak: %w", err)
	}
	state.streak = streak

	turn, err := o.turns.CurrentTurn(ctx, sessionID)
	switch {
	case err == nil:
		// Resuming into listening skips the already-played question audio.
		state.currentTurnID = turn.ID
		state.phase = phase.PhaseListening
		return state, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("load open turn: %w", err)
	}

	answered, err := o.turns.CountAnswered(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("count answered turns: %w", err)
	}
	if answered > 0 {
		state.phase = phase.PhasePostScore
	}
	return state, nil
}

// presentNext picks an unseen question and opens a turn for it. Caller holds
// the session lock.
func (o *SessionOrchestrator) presentNext(ctx context.Context, session *model.QuizSession) (*QuestionPrompt, error) {
	question, err := o.questions.PickUnseen(ctx, session.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoQuestionsLeft
		}
		return nil, fmt.Errorf("pick question: %w", err)
	}

	answered, err := o.turns.CountAnswered(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("count answered turns: %w", err)
	}

	turn := &model.SessionQuestion{
		SessionID:  session.ID,
		QuestionID: question.ID,
		OrderNum:   answered + 1,
	}
	if err := o.turns.Create(ctx, turn); err != nil {
		return nil, fmt.Errorf("open turn: %w", err)
	}
	if err := o.sessions.SetCurrentIndex(ctx, session.ID, turn.OrderNum); err != nil {
		return nil, fmt.Errorf("advance question index: %w", err)
	}

	state, err := o.stateFor(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	state.currentTurnID = turn.ID
	state.phase = phase.PhaseAsking
	state.lastSeen = o.now()

	return promptFor(session.ID, turn, question), nil
}

func promptFor(sessionID uuid.UUID, turn *model.SessionQuestion, q *model.Question) *QuestionPrompt {
	return &QuestionPrompt{
		SessionID:         sessionID,
		SessionQuestionID: turn.ID,
		QuestionID:        q.ID,
		OrderNum:          turn.OrderNum,
		Prompt:            q.Prompt,
		Category:          q.Category,
		Difficulty:        q.Difficulty,
		TimeLimitSeconds:  q.TimeLimitSeconds,
	}
}

func (o *SessionOrchestrator) putState(sessionID uuid.UUID, state *sessionState) {
	o.mu.Lock()
	o.states[sessionID] = state
	o.mu.Unlock()
}

func (o *SessionOrchestrator) dropState(sessionID uuid.UUID) {
	o.mu.Lock()
	delete(o.states, sessionID)
	o.mu.Unlock()
	o.locks.Delete(sessionID)
}

func (o *SessionOrchestrator) publish(ctx context.Context, routingKey string, payload any) {
	if o.events == nil {
		return
	}
	if err := o.events.Publish(ctx, routingKey, payload); err != nil {
		o.log.Error().Err(err).Str("routing_key", routingKey).Msg("event publish failed")
	}
}

// StartJanitor evicts in-memory state for sessions idle past the state TTL.
// Evicted sessions reseed from PostgreSQL on their next action, so eviction
// is invisible to players; it only bounds memory.
func (o *SessionOrchestrator) StartJanitor(ctx context.Context) {
	interval := o.stateTTL / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.evictIdle()
			}
		}
	}()
}

func (o *SessionOrchestrator) evictIdle() {
	cutoff := o.now().Add(-o.stateTTL)

	o.mu.Lock()
	var evicted []uuid.UUID
	for id, state := range o.states {
		if state.lastSeen.Before(cutoff) {
			delete(o.states, id)
			evicted = append(evicted, id)
		}
	}
	o.mu.Unlock()

	for _, id := range evicted {
		o.locks.Delete(id)
	}
	if len(evicted) > 0 {
		o.log.Debug().Int("count", len(evicted)).Msg("evicted idle session state")
	}
}
