package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates quiz session states.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusPaused    SessionStatus = "paused"
	SessionStatusAbandoned SessionStatus = "abandoned"
)

// QuizSession represents one player's quiz run. The conversational phase is
// deliberately not part of this record; it lives in the orchestrator's
// in-memory state, while last_activity_at is the durable clock the
// recovery coordinator reads.
type QuizSession struct {
	ID                   uuid.UUID     `json:"id"`
	PlayerID             int           `json:"player_id"`
	Status               SessionStatus `json:"status"`
	TotalScore           int           `json:"total_score"`
	CurrentQuestionIndex int           `json:"current_question_index"`
	StartedAt            time.Time     `json:"started_at"`
	CompletedAt          *time.Time    `json:"completed_at,omitempty"`
	LastActivityAt       time.Time     `json:"last_activity_at"`
}

// SessionSnapshot is the resume payload surfaced to reconnecting clients.
type SessionSnapshot struct {
	ID                   uuid.UUID     `json:"id"`
	Status               SessionStatus `json:"status"`
	TotalScore           int           `json:"total_score"`
	CurrentQuestionIndex int           `json:"current_question_index"`
	QuestionsAnswered    int           `json:"questions_answered"`
}

// ReconnectionResult is the outcome of a resume attempt.
type ReconnectionResult struct {
	CanResume       bool             `json:"can_resume"`
	SuggestedAction string           `json:"suggested_action"`
	SessionState    *SessionSnapshot `json:"session_state,omitempty"`
}

// Suggested actions returned by the recovery coordinator.
const (
	SuggestedActionResume      = "resume"
	SuggestedActionViewResults = "view_results"
	SuggestedActionStartNew    = "start_new"
)
