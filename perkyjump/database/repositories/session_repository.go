package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/perkygames/perky-jump/perkyjump/database/models"
	"github.com/uptrace/bun"
)

type SessionRepository interface {
	// Record inserts the immutable session row and folds it into the
	// account's aggregates as one atomic unit, returning the post-update
	// account snapshot.
	Record(ctx context.Context, session *models.GameSession) (*models.Account, error)
	GetRecentByAccount(ctx context.Context, accountID int64, limit int) ([]*models.GameSession, error)
	CountForAccount(ctx context.Context, accountID int64) (int, error)
}

type sessionRepository struct {
	*BaseRepository
}

func NewSessionRepository(db *bun.DB) SessionRepository {
	return &sessionRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *sessionRepository) Record(ctx context.Context, session *models.GameSession) (*models.Account, error) {
	account := new(models.Account)

	err := r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		session.CreatedAt = time.Now()
		if _, err := tx.NewInsert().Model(session).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}

		// Fold the session into the aggregates. GREATEST keeps the maxima
		// monotonic; the additive columns serialize on the row lock the
		// UPDATE takes, so concurrent sessions for one account never lose
		// an update.
		res, err := tx.NewUpdate().
			Model(account).
			Set("total_coffee = total_coffee + ?", session.CoffeeCollected).
			Set("games_played = games_played + 1").
			Set("best_height = GREATEST(best_height, ?)", session.Height).
			Set("best_coffee = GREATEST(best_coffee, ?)", session.CoffeeCollected).
			Set("coins = coins + ?", session.CoinsEarned).
			Set("last_active = ?", time.Now()).
			Set("updated_at = ?", time.Now()).
			Where("id = ?", session.AccountID).
			Returning("*").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update aggregates: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return &NotFoundError{Entity: "account", ID: session.AccountID}
		}

		account.TotalScore = models.ComputeTotalScore(account.BestHeight, account.TotalCoffee)
		if _, err := tx.NewUpdate().
			Model((*models.Account)(nil)).
			Set("total_score = ?", account.TotalScore).
			Where("id = ?", account.ID).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to update total score: %w", err)
		}

		// Refresh the leaderboard projection from the same snapshot so it
		// can never diverge from the account it derives from.
		entry := models.ProjectLeaderboardEntry(account)
		if _, err := tx.NewInsert().
			Model(entry).
			On("CONFLICT (account_id) DO UPDATE").
			Set("username = EXCLUDED.username").
			Set("first_name = EXCLUDED.first_name").
			Set("best_height = EXCLUDED.best_height").
			Set("total_coffee = EXCLUDED.total_coffee").
			Set("total_score = EXCLUDED.total_score").
			Set("last_updated = EXCLUDED.last_updated").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to refresh leaderboard entry: %w", err)
		}

		return nil
	})
	if err != nil {
		slog.Error("Failed to record session",
			slog.String("type", "db"),
			slog.String("operation", "Record"),
			slog.Int64("account_id", session.AccountID),
			slog.Any("error", err))
		return nil, r.HandleErrorWithID("Record", "game_session", session.AccountID, err)
	}

	account.Customization.Migrate()
	return account, nil
}

func (r *sessionRepository) GetRecentByAccount(ctx context.Context, accountID int64, limit int) ([]*models.GameSession, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var sessions []*models.GameSession
	err := r.db.NewSelect().
		Model(&sessions).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("GetRecentByAccount", "game_session", accountID, err)
	}
	return sessions, nil
}

func (r *sessionRepository) CountForAccount(ctx context.Context, accountID int64) (int, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	return r.db.NewSelect().
		Model((*models.GameSession)(nil)).
		Where("account_id = ?", accountID).
		Count(ctx)
}
