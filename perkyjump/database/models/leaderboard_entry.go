package models

import (
	"sort"
	"time"

	"github.com/uptrace/bun"
)

// LeaderboardEntry is the read projection of an account's ranking fields.
// It is derived from the accounts table on every aggregate change and has
// no mutation path of its own.
type LeaderboardEntry struct {
	bun.BaseModel `bun:"table:leaderboard_entries,alias:le"`

	AccountID  int64  `bun:"account_id,pk"`
	ExternalID string `bun:"external_id,notnull"`
	Username   string `bun:"username"`
	FirstName  string `bun:"first_name"`

	BestHeight  int64 `bun:"best_height,notnull,default:0"`
	TotalCoffee int64 `bun:"total_coffee,notnull,default:0"`
	TotalScore  int64 `bun:"total_score,notnull,default:0"`

	AccountCreatedAt time.Time `bun:"account_created_at,notnull"`
	LastUpdated      time.Time `bun:"last_updated,notnull"`
}

// ProjectLeaderboardEntry derives the projection row from an account.
func ProjectLeaderboardEntry(a *Account) *LeaderboardEntry {
	return &LeaderboardEntry{
		AccountID:        a.ID,
		ExternalID:       a.ExternalID,
		Username:         a.Username,
		FirstName:        a.FirstName,
		BestHeight:       a.BestHeight,
		TotalCoffee:      a.TotalCoffee,
		TotalScore:       a.TotalScore,
		AccountCreatedAt: a.CreatedAt,
		LastUpdated:      time.Now(),
	}
}

// CompareEntries is the canonical leaderboard ordering: total_score
// descending, best_height descending, then earliest account creation.
// It returns a negative value when a ranks before b.
func CompareEntries(a, b *LeaderboardEntry) int {
	if a.TotalScore != b.TotalScore {
		if a.TotalScore > b.TotalScore {
			return -1
		}
		return 1
	}
	if a.BestHeight != b.BestHeight {
		if a.BestHeight > b.BestHeight {
			return -1
		}
		return 1
	}
	switch {
	case a.AccountCreatedAt.Before(b.AccountCreatedAt):
		return -1
	case a.AccountCreatedAt.After(b.AccountCreatedAt):
		return 1
	}
	return 0
}

// SortLeaderboard orders entries by the canonical ordering regardless of
// the order the store returned them in.
func SortLeaderboard(entries []*LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return CompareEntries(entries[i], entries[j]) < 0
	})
}
