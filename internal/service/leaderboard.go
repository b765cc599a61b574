package service

import (
	"context"

	"github.com/habitnation/habitnation/internal/store"
	"github.com/habitnation/habitnation/internal/web/cache"
)

// Leaderboard returns the top limit users by XP
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]store.LeaderboardEntry, error) {
	return cache.Fetch(ctx, s.cache, cache.LeaderboardKey(limit), s.ttl.LeaderboardTTL, func(ctx context.Context) ([]store.LeaderboardEntry, error) {
		entries, err := s.store.Leaderboard(ctx, limit)
		if err != nil {
			return nil, err
		}
		if entries == nil {
			entries = []store.LeaderboardEntry{}
		}
		return entries, nil
	})
}

// PromoteUser grants or revokes administrator rights by email
func (s *Service) PromoteUser(ctx context.Context, email string, admin bool) error {
	return s.store.SetAdmin(ctx, normalizeEmail(email), admin)
}
