package repositories

import (
	"context"

	"github.com/perkygames/perky-jump/perkyjump/database/models"
	"github.com/uptrace/bun"
)

type LeaderboardRepository interface {
	Top(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)
	Upsert(ctx context.Context, entry *models.LeaderboardEntry) error
	UpsertTx(ctx context.Context, tx bun.Tx, entry *models.LeaderboardEntry) error
	Count(ctx context.Context) (int, error)
}

type leaderboardRepository struct {
	*BaseRepository
}

func NewLeaderboardRepository(db *bun.DB) LeaderboardRepository {
	return &leaderboardRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *leaderboardRepository) Top(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var entries []*models.LeaderboardEntry
	err := r.db.NewSelect().
		Model(&entries).
		Order("total_score DESC").
		Order("best_height DESC").
		Order("account_created_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("Top", "leaderboard_entry", err)
	}
	return entries, nil
}

func (r *leaderboardRepository) Upsert(ctx context.Context, entry *models.LeaderboardEntry) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := upsertQuery(r.db.NewInsert(), entry).Exec(ctx)
	return r.HandleErrorWithID("Upsert", "leaderboard_entry", entry.AccountID, err)
}

func (r *leaderboardRepository) UpsertTx(ctx context.Context, tx bun.Tx, entry *models.LeaderboardEntry) error {
	_, err := upsertQuery(tx.NewInsert(), entry).Exec(ctx)
	return err
}

func upsertQuery(q *bun.InsertQuery, entry *models.LeaderboardEntry) *bun.InsertQuery {
	return q.
		Model(entry).
		On("CONFLICT (account_id) DO UPDATE").
		Set("external_id = EXCLUDED.external_id").
		Set("username = EXCLUDED.username").
		Set("first_name = EXCLUDED.first_name").
		Set("best_height = EXCLUDED.best_height").
		Set("total_coffee = EXCLUDED.total_coffee").
		Set("total_score = EXCLUDED.total_score").
		Set("account_created_at = EXCLUDED.account_created_at").
		Set("last_updated = EXCLUDED.last_updated")
}

func (r *leaderboardRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	return r.db.NewSelect().
		Model((*models.LeaderboardEntry)(nil)).
		Count(ctx)
}
