package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// PlayerLoginKey returns the cache key holding a player's active JWT JTI.
func (r *CacheKeyStruct) PlayerLoginKey(playerID int) string {
	return fmt.Sprintf("login:%d", playerID)
}

// LeaderboardKey returns the Redis sorted-set key of the global leaderboard.
func (r *CacheKeyStruct) LeaderboardKey() string {
	return "leaderboard:career_points"
}

var CacheKey = NewCacheKeyStruct()
