package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionQuestion links a session to one question occurrence (a "turn").
// Created when the question is presented, mutated exactly once at answer
// time, never deleted.
type SessionQuestion struct {
	ID              uuid.UUID  `json:"id"`
	SessionID       uuid.UUID  `json:"session_id"`
	QuestionID      uuid.UUID  `json:"question_id"`
	OrderNum        int        `json:"order_num"`
	PresentedAt     time.Time  `json:"presented_at"`
	AnsweredAt      *time.Time `json:"answered_at,omitempty"`
	Answered        bool       `json:"answered"`
	SubmittedAnswer *string    `json:"submitted_answer,omitempty"`
	IsCorrect       *bool      `json:"is_correct,omitempty"`
	PointsEarned    int        `json:"points_earned"`
	ResponseTimeMs  *int64     `json:"response_time_ms,omitempty"`
}
