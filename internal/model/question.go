package model

import (
	"time"

	"github.com/google/uuid"
)

// Question represents a single trivia question read aloud by the assistant.
type Question struct {
	ID               uuid.UUID `json:"id"`
	Prompt           string    `json:"prompt"`
	Answer           string    `json:"answer"`
	AltAnswers       []string  `json:"alt_answers,omitempty"`
	Category         string    `json:"category"`
	Difficulty       int       `json:"difficulty"`
	BasePoints       int       `json:"base_points"`
	TimeLimitSeconds int       `json:"time_limit_seconds"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"created_at"`
}

// TimeLimit returns the question's time limit as a duration.
func (q *Question) TimeLimit() time.Duration {
	return time.Duration(q.TimeLimitSeconds) * time.Second
}

// CreateQuestionRequest is the payload for adding a question to the catalog.
type CreateQuestionRequest struct {
	Prompt           string   `json:"prompt" binding:"required,min=1,max=2000"`
	Answer           string   `json:"answer" binding:"required,min=1,max=500"`
	AltAnswers       []string `json:"alt_answers" binding:"omitempty,dive,min=1,max=500"`
	Category         string   `json:"category" binding:"required,min=2,max=64"`
	Difficulty       int      `json:"difficulty" binding:"required,min=1,max=5"`
	BasePoints       int      `json:"base_points" binding:"required,min=1,max=1000"`
	TimeLimitSeconds int      `json:"time_limit_seconds" binding:"required,min=5,max=300"`
}

// UpdateQuestionRequest is the payload for updating an existing question.
type UpdateQuestionRequest struct {
	Prompt           string   `json:"prompt" binding:"required,min=1,max=2000"`
	Answer           string   `json:"answer" binding:"required,min=1,max=500"`
	AltAnswers       []string `json:"alt_answers" binding:"omitempty,dive,min=1,max=500"`
	Category         string   `json:"category" binding:"required,min=2,max=64"`
	Difficulty       int      `json:"difficulty" binding:"required,min=1,max=5"`
	BasePoints       int      `json:"base_points" binding:"required,min=1,max=1000"`
	TimeLimitSeconds int      `json:"time_limit_seconds" binding:"required,min=5,max=300"`
	Active           *bool    `json:"active" binding:"required"`
}
