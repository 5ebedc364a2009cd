package repositories

import (
	"context"
	"time"

	"github.com/perkygames/perky-jump/perkyjump/database/models"
	"github.com/uptrace/bun"
)

type AchievementRepository interface {
	// Unlock attempts the ledger insert and reports whether it landed.
	// "Row already exists" is the documented idempotence mechanism, not an
	// error: the first caller gets true, everyone after gets false.
	Unlock(ctx context.Context, accountID int64, achievementID string) (bool, error)
	// UnlockWithReward additionally credits reward coins to the account,
	// atomically with the insert, so the reward is granted at most once
	// even under concurrent evaluation.
	UnlockWithReward(ctx context.Context, accountID int64, achievementID string, rewardCoins int64) (bool, error)
	GetUnlocked(ctx context.Context, accountID int64) ([]*models.AchievementUnlock, error)
	CountForAccount(ctx context.Context, accountID int64) (int, error)
}

type achievementRepository struct {
	*BaseRepository
}

func NewAchievementRepository(db *bun.DB) AchievementRepository {
	return &achievementRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *achievementRepository) Unlock(ctx context.Context, accountID int64, achievementID string) (bool, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	unlock := &models.AchievementUnlock{
		AccountID:     accountID,
		AchievementID: achievementID,
		UnlockedAt:    time.Now(),
	}

	res, err := r.db.NewInsert().
		Model(unlock).
		On("CONFLICT (account_id, achievement_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, r.HandleErrorWithID("Unlock", "achievement_unlock", achievementID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *achievementRepository) UnlockWithReward(ctx context.Context, accountID int64, achievementID string, rewardCoins int64) (bool, error) {
	unlocked := false

	err := r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		unlock := &models.AchievementUnlock{
			AccountID:     accountID,
			AchievementID: achievementID,
			UnlockedAt:    time.Now(),
		}

		res, err := tx.NewInsert().
			Model(unlock).
			On("CONFLICT (account_id, achievement_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		unlocked = true

		if rewardCoins > 0 {
			if _, err := tx.NewUpdate().
				Model((*models.Account)(nil)).
				Set("coins = coins + ?", rewardCoins).
				Set("updated_at = ?", time.Now()).
				Where("id = ?", accountID).
				Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, r.HandleErrorWithID("UnlockWithReward", "achievement_unlock", achievementID, err)
	}

	return unlocked, nil
}

func (r *achievementRepository) GetUnlocked(ctx context.Context, accountID int64) ([]*models.AchievementUnlock, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var unlocks []*models.AchievementUnlock
	err := r.db.NewSelect().
		Model(&unlocks).
		Where("account_id = ?", accountID).
		Order("unlocked_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("GetUnlocked", "achievement_unlock", accountID, err)
	}
	return unlocks, nil
}

func (r *achievementRepository) CountForAccount(ctx context.Context, accountID int64) (int, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	return r.db.NewSelect().
		Model((*models.AchievementUnlock)(nil)).
		Where("account_id = ?", accountID).
		Count(ctx)
}
