package game

import (
	"context"

	"github.com/perkygames/perky-jump/perkyjump/database/models"
	"github.com/perkygames/perky-jump/perkyjump/database/repositories"
)

const recentSessionLimit = 10

// AccountStats is the read-side snapshot for one player.
type AccountStats struct {
	Account          *models.Account
	RecentSessions   []*models.GameSession
	AchievementCount int
}

// Stats serves per-account read queries.
type Stats struct {
	accounts repositories.AccountRepository
	sessions repositories.SessionRepository
	unlocks  repositories.AchievementRepository
}

func NewStats(accounts repositories.AccountRepository, sessions repositories.SessionRepository, unlocks repositories.AchievementRepository) *Stats {
	return &Stats{accounts: accounts, sessions: sessions, unlocks: unlocks}
}

// Get returns the account's stats. An unknown external id yields a zeroed
// snapshot rather than an error, so clients can render a fresh profile
// without a prior write.
func (s *Stats) Get(ctx context.Context, externalID string) (*AccountStats, error) {
	acc, err := s.accounts.GetByExternalID(ctx, externalID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return &AccountStats{
				Account: &models.Account{
					ExternalID:    externalID,
					Customization: models.DefaultCustomization(),
				},
			}, nil
		}
		return nil, err
	}

	recent, err := s.sessions.GetRecentByAccount(ctx, acc.ID, recentSessionLimit)
	if err != nil {
		return nil, err
	}

	count, err := s.unlocks.CountForAccount(ctx, acc.ID)
	if err != nil {
		return nil, err
	}

	return &AccountStats{
		Account:          acc,
		RecentSessions:   recent,
		AchievementCount: count,
	}, nil
}
