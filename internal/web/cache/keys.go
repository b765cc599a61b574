package cache

import "fmt"

// Key prefixes for cached aggregates
const (
	StatsPrefix       = "stats:"
	LeaderboardPrefix = "leaderboard:"
	CatalogKey        = "achievements:catalog"
)

// StatsKey is the cache key of a user's stats
func StatsKey(userID string) string {
	return StatsPrefix + userID
}

// LeaderboardKey is the cache key of a leaderboard page
func LeaderboardKey(limit int) string {
	return fmt.Sprintf("%s%d", LeaderboardPrefix, limit)
}
