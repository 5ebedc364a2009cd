package game

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/perkygames/perky-jump/perkyjump/database/models"
	"github.com/perkygames/perky-jump/perkyjump/database/repositories"
)

// AchievementDef is one entry of the fixed achievement catalog. Satisfied
// reports whether the achievement's condition holds given the post-session
// account snapshot and the session that produced it.
type AchievementDef struct {
	ID          string
	Name        string
	Description string
	RewardCoins int64
	Satisfied   func(acc *models.Account, session *models.GameSession) bool
}

// Catalog is ordered; evaluation and listings always walk it in this order.
var Catalog = []AchievementDef{
	{
		ID:          "first_game",
		Name:        "First Steps",
		Description: "Play your first game",
		RewardCoins: 10,
		Satisfied: func(acc *models.Account, _ *models.GameSession) bool {
			return acc.GamesPlayed >= 1
		},
	},
	{
		ID:          "coffee_collector_10",
		Name:        "Coffee Break",
		Description: "Collect 10 coffees in a single game",
		RewardCoins: 25,
		Satisfied: func(_ *models.Account, session *models.GameSession) bool {
			return session.CoffeeCollected >= 10
		},
	},
	{
		ID:          "coffee_collector_50",
		Name:        "Caffeine Rush",
		Description: "Collect 50 coffees in a single game",
		RewardCoins: 50,
		Satisfied: func(_ *models.Account, session *models.GameSession) bool {
			return session.CoffeeCollected >= 50
		},
	},
	{
		ID:          "height_master_50",
		Name:        "Getting High",
		Description: "Reach height 50 in a single game",
		RewardCoins: 30,
		Satisfied: func(_ *models.Account, session *models.GameSession) bool {
			return session.Height >= 50
		},
	},
	{
		ID:          "height_master_100",
		Name:        "Sky Walker",
		Description: "Reach height 100 in a single game",
		RewardCoins: 75,
		Satisfied: func(_ *models.Account, session *models.GameSession) bool {
			return session.Height >= 100
		},
	},
	{
		ID:          "score_master_500",
		Name:        "Point Hunter",
		Description: "Score 500 points in a single game",
		RewardCoins: 40,
		Satisfied: func(_ *models.Account, session *models.GameSession) bool {
			return session.Score >= 500
		},
	},
	{
		ID:          "games_played_10",
		Name:        "Regular",
		Description: "Play 10 games",
		RewardCoins: 60,
		Satisfied: func(acc *models.Account, _ *models.GameSession) bool {
			return acc.GamesPlayed >= 10
		},
	},
	{
		ID:          "total_coffee_100",
		Name:        "Coffee Hoarder",
		Description: "Collect 100 coffees in total",
		RewardCoins: 80,
		Satisfied: func(acc *models.Account, _ *models.GameSession) bool {
			return acc.TotalCoffee >= 100
		},
	},
}

// LookupAchievement finds a catalog entry by id.
func LookupAchievement(id string) (AchievementDef, bool) {
	for _, def := range Catalog {
		if def.ID == id {
			return def, true
		}
	}
	return AchievementDef{}, false
}

// AchievementStatus is one catalog entry annotated with an account's
// unlock state.
type AchievementStatus struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	RewardCoins int64  `json:"reward_coins"`
	Unlocked    bool   `json:"unlocked"`
}

// Ledger evaluates and unlocks achievements against the catalog. The
// underlying store makes unlocks idempotent, so evaluating the same
// session twice can never double-award.
type Ledger struct {
	unlocks repositories.AchievementRepository
}

func NewLedger(unlocks repositories.AchievementRepository) *Ledger {
	return &Ledger{unlocks: unlocks}
}

// Evaluate walks the catalog against the post-session account snapshot and
// unlocks every satisfied achievement that is not already held. Returns
// the definitions newly unlocked by this call, in catalog order.
func (l *Ledger) Evaluate(ctx context.Context, acc *models.Account, session *models.GameSession) ([]AchievementDef, error) {
	var newly []AchievementDef
	for _, def := range Catalog {
		if !def.Satisfied(acc, session) {
			continue
		}
		unlocked, err := l.unlocks.UnlockWithReward(ctx, acc.ID, def.ID, def.RewardCoins)
		if err != nil {
			return newly, fmt.Errorf("failed to unlock %s: %w", def.ID, err)
		}
		if unlocked {
			acc.Coins += def.RewardCoins
			newly = append(newly, def)
			slog.Info("Achievement unlocked",
				slog.String("type", "game"),
				slog.Int64("account_id", acc.ID),
				slog.String("achievement", def.ID))
		}
	}
	return newly, nil
}

// Unlock grants a single achievement directly, for unlock conditions the
// backend cannot observe (client-side events). The id must exist in the
// catalog. Returns the definition and whether this call performed the
// unlock.
func (l *Ledger) Unlock(ctx context.Context, accountID int64, achievementID string) (AchievementDef, bool, error) {
	def, ok := LookupAchievement(achievementID)
	if !ok {
		return AchievementDef{}, false, &ValidationError{Field: "achievement_id", Reason: fmt.Sprintf("%q is not in the catalog", achievementID)}
	}
	unlocked, err := l.unlocks.UnlockWithReward(ctx, accountID, def.ID, def.RewardCoins)
	if err != nil {
		return AchievementDef{}, false, err
	}
	return def, unlocked, nil
}

// Status returns the full catalog annotated with the account's unlocks.
func (l *Ledger) Status(ctx context.Context, accountID int64) ([]AchievementStatus, error) {
	unlocks, err := l.unlocks.GetUnlocked(ctx, accountID)
	if err != nil {
		return nil, err
	}

	held := make(map[string]bool, len(unlocks))
	for _, u := range unlocks {
		held[u.AchievementID] = true
	}

	statuses := make([]AchievementStatus, 0, len(Catalog))
	for _, def := range Catalog {
		statuses = append(statuses, AchievementStatus{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			RewardCoins: def.RewardCoins,
			Unlocked:    held[def.ID],
		})
	}
	return statuses, nil
}
