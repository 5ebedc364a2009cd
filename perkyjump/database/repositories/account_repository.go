package repositories

import (
	"context"
	"log/slog"
	"time"

	"github.com/perkygames/perky-jump/perkyjump/database/models"
	"github.com/uptrace/bun"
)

// ProfileFields carries the identity fields supplied by the upstream
// transport on first contact. Empty fields never overwrite existing ones.
type ProfileFields struct {
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
}

type AccountRepository interface {
	GetOrCreate(ctx context.Context, externalID string, profile ProfileFields) (*models.Account, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.Account, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	SaveProgress(ctx context.Context, externalID string, coins int64, customization models.Customization) (*models.Account, error)
	AddCoins(ctx context.Context, accountID int64, delta int64) error
	AddCoinsTx(ctx context.Context, tx bun.Tx, accountID int64, delta int64) error
	GetAll(ctx context.Context) ([]*models.Account, error)
	Count(ctx context.Context) (int, error)
}

type accountRepository struct {
	*BaseRepository
}

func NewAccountRepository(db *bun.DB) AccountRepository {
	return &accountRepository{BaseRepository: NewBaseRepository(db)}
}

// GetOrCreate inserts a fresh account with zeroed aggregates and default
// customization, or touches last_active and profile fields on an existing
// one. Creation is the only place defaults are chosen. Concurrent calls
// for the same external id resolve through the unique constraint.
func (r *accountRepository) GetOrCreate(ctx context.Context, externalID string, profile ProfileFields) (*models.Account, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	now := time.Now()
	account := &models.Account{
		ExternalID:    externalID,
		Username:      profile.Username,
		FirstName:     profile.FirstName,
		LastName:      profile.LastName,
		LanguageCode:  profile.LanguageCode,
		Customization: models.DefaultCustomization(),
		CreatedAt:     now,
		LastActive:    now,
		UpdatedAt:     now,
	}

	_, err := r.db.NewInsert().
		Model(account).
		On("CONFLICT (external_id) DO UPDATE").
		Set("username = COALESCE(NULLIF(EXCLUDED.username, ''), accounts.username)").
		Set("first_name = COALESCE(NULLIF(EXCLUDED.first_name, ''), accounts.first_name)").
		Set("last_name = COALESCE(NULLIF(EXCLUDED.last_name, ''), accounts.last_name)").
		Set("language_code = COALESCE(NULLIF(EXCLUDED.language_code, ''), accounts.language_code)").
		Set("last_active = EXCLUDED.last_active").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		slog.Error("Failed to get or create account",
			slog.String("type", "db"),
			slog.String("operation", "GetOrCreate"),
			slog.String("external_id", externalID),
			slog.Any("error", err))
		return nil, r.HandleErrorWithID("GetOrCreate", "account", externalID, err)
	}

	account.Customization.Migrate()
	return account, nil
}

func (r *accountRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Account, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	account := new(models.Account)
	err := r.db.NewSelect().
		Model(account).
		Where("external_id = ?", externalID).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("GetByExternalID", "account", externalID, err)
	}

	account.Customization.Migrate()
	return account, nil
}

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	account := new(models.Account)
	err := r.db.NewSelect().
		Model(account).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("GetByID", "account", id, err)
	}

	account.Customization.Migrate()
	return account, nil
}

// SaveProgress overwrites the customization state and coin balance
// wholesale; the caller supplies the full resulting state. Aggregates are
// untouched.
func (r *accountRepository) SaveProgress(ctx context.Context, externalID string, coins int64, customization models.Customization) (*models.Account, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	customization.Version = models.CustomizationVersion

	account := new(models.Account)
	res, err := r.db.NewUpdate().
		Model(account).
		Set("coins = ?", coins).
		Set("customization = ?", customization).
		Set("last_active = ?", time.Now()).
		Set("updated_at = ?", time.Now()).
		Where("external_id = ?", externalID).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("SaveProgress", "account", externalID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, &NotFoundError{Entity: "account", ID: externalID}
	}

	return account, nil
}

func (r *accountRepository) AddCoins(ctx context.Context, accountID int64, delta int64) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.db.NewUpdate().
		Model((*models.Account)(nil)).
		Set("coins = coins + ?", delta).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", accountID).
		Exec(ctx)
	return r.HandleErrorWithID("AddCoins", "account", accountID, err)
}

func (r *accountRepository) AddCoinsTx(ctx context.Context, tx bun.Tx, accountID int64, delta int64) error {
	_, err := tx.NewUpdate().
		Model((*models.Account)(nil)).
		Set("coins = coins + ?", delta).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", accountID).
		Exec(ctx)
	return err
}

func (r *accountRepository) GetAll(ctx context.Context) ([]*models.Account, error) {
	ctx, cancel := r.WithBatchTimeout(ctx)
	defer cancel()

	var accounts []*models.Account
	err := r.db.NewSelect().
		Model(&accounts).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("GetAll", "account", err)
	}
	return accounts, nil
}

func (r *accountRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	return r.db.NewSelect().
		Model((*models.Account)(nil)).
		Count(ctx)
}
