package model

import "time"

// Player represents a registered trivia participant.
type Player struct {
	ID           int       `json:"id"`
	Handle       string    `json:"handle"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	CareerPoints int64     `json:"career_points"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LeaderboardEntry is one row of the career-points leaderboard.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	PlayerID    int    `json:"player_id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	Points      int64  `json:"points"`
}

// PlayerLoginRequest is the payload for player authentication.
type PlayerLoginRequest struct {
	Handle   string `json:"handle" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}

// RegisterPlayerRequest is the payload for creating a new player account.
type RegisterPlayerRequest struct {
	Handle      string `json:"handle" binding:"required,min=3,max=32,alphanum"`
	DisplayName string `json:"display_name" binding:"required,min=2,max=64"`
	Password    string `json:"password" binding:"required,min=6,max=128"`
}
