package model

import "time"

// Host permission codes embedded in host JWTs.
const (
	PermissionQuestionsRead  = "questions:read"
	PermissionQuestionsWrite = "questions:write"
	PermissionSessionsRead   = "sessions:read"
)

// Host represents an operator account that manages the question catalog.
type Host struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Permissions  []string  `json:"permissions"`
	CreatedAt    time.Time `json:"created_at"`
}

// HostLoginRequest is the payload for host authentication.
type HostLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}
