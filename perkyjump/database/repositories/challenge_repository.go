package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/perkygames/perky-jump/perkyjump/database/models"
	"github.com/uptrace/bun"
)

type ChallengeRepository interface {
	// GetForDate returns nil, nil when no challenge row exists for the
	// account on that date.
	GetForDate(ctx context.Context, accountID int64, date string) (*models.DailyChallenge, error)
	// CreateIfMissing inserts the challenge unless a row for the same
	// (account, date) already exists, and returns whichever row won.
	CreateIfMissing(ctx context.Context, challenge *models.DailyChallenge) (*models.DailyChallenge, error)
	// AddProgress folds delta into the day's counter under a row lock,
	// credits the reward exactly once on the completion transition, and
	// reports whether this call completed the challenge.
	AddProgress(ctx context.Context, accountID int64, date string, delta int64) (*models.DailyChallenge, bool, error)
	// RaiseProgress lifts the counter to value if that beats the stored
	// progress, evaluated against the freshly locked row so concurrent
	// best-of-day updates never sum.
	RaiseProgress(ctx context.Context, accountID int64, date string, value int64) (*models.DailyChallenge, bool, error)
	GetCompletedCount(ctx context.Context, accountID int64) (int, error)
}

type challengeRepository struct {
	*BaseRepository
}

func NewChallengeRepository(db *bun.DB) ChallengeRepository {
	return &challengeRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *challengeRepository) GetForDate(ctx context.Context, accountID int64, date string) (*models.DailyChallenge, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	challenge := new(models.DailyChallenge)
	err := r.db.NewSelect().
		Model(challenge).
		Where("account_id = ?", accountID).
		Where("challenge_date = ?", date).
		Scan(ctx)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, r.HandleErrorWithID("GetForDate", "daily_challenge", accountID, err)
	}
	return challenge, nil
}

func (r *challengeRepository) CreateIfMissing(ctx context.Context, challenge *models.DailyChallenge) (*models.DailyChallenge, error) {
	now := time.Now()
	challenge.CreatedAt = now
	challenge.UpdatedAt = now

	insertCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.db.NewInsert().
		Model(challenge).
		On("CONFLICT (account_id, challenge_date) DO NOTHING").
		Exec(insertCtx)
	if err != nil {
		return nil, r.HandleErrorWithID("CreateIfMissing", "daily_challenge", challenge.AccountID, err)
	}

	// Losing the insert race is fine; re-read so the caller always sees the
	// row that actually exists.
	existing, err := r.GetForDate(ctx, challenge.AccountID, challenge.ChallengeDate)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &NotFoundError{Entity: "daily_challenge", ID: challenge.AccountID}
	}
	return existing, nil
}

func (r *challengeRepository) AddProgress(ctx context.Context, accountID int64, date string, delta int64) (*models.DailyChallenge, bool, error) {
	return r.updateLocked(ctx, accountID, date, func(dc *models.DailyChallenge) bool {
		return dc.ApplyProgress(delta)
	})
}

func (r *challengeRepository) RaiseProgress(ctx context.Context, accountID int64, date string, value int64) (*models.DailyChallenge, bool, error) {
	return r.updateLocked(ctx, accountID, date, func(dc *models.DailyChallenge) bool {
		return dc.RaiseProgress(value)
	})
}

// updateLocked selects the day's row FOR UPDATE, applies the mutation to
// the locked snapshot, persists the counter and credits the reward exactly
// once on the completion transition. All progress folding goes through
// here so the decision always runs against current data, never a stale
// read from before the lock.
func (r *challengeRepository) updateLocked(ctx context.Context, accountID int64, date string, apply func(*models.DailyChallenge) bool) (*models.DailyChallenge, bool, error) {
	challenge := new(models.DailyChallenge)
	completed := false

	err := r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(challenge).
			Where("account_id = ?", accountID).
			Where("challenge_date = ?", date).
			For("UPDATE").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Entity: "daily_challenge", ID: accountID}
		}
		if err != nil {
			return err
		}

		completed = apply(challenge)
		challenge.UpdatedAt = time.Now()

		if _, err := tx.NewUpdate().
			Model(challenge).
			Column("current_progress", "completed", "updated_at").
			WherePK().
			Exec(ctx); err != nil {
			return err
		}

		if completed && challenge.RewardCoins > 0 {
			if _, err := tx.NewUpdate().
				Model((*models.Account)(nil)).
				Set("coins = coins + ?", challenge.RewardCoins).
				Set("updated_at = ?", time.Now()).
				Where("id = ?", accountID).
				Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, r.HandleErrorWithID("updateLocked", "daily_challenge", accountID, err)
	}

	return challenge, completed, nil
}

func (r *challengeRepository) GetCompletedCount(ctx context.Context, accountID int64) (int, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	return r.db.NewSelect().
		Model((*models.DailyChallenge)(nil)).
		Where("account_id = ?", accountID).
		Where("completed = TRUE").
		Count(ctx)
}
