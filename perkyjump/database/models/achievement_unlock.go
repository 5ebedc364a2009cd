package models

import (
	"time"

	"github.com/uptrace/bun"
)

// AchievementUnlock is one row in the milestone ledger. The unique
// (account_id, achievement_id) constraint is what makes unlocks idempotent:
// the insert either lands once or conflicts away.
type AchievementUnlock struct {
	bun.BaseModel `bun:"table:achievement_unlocks,alias:au"`

	ID            int64     `bun:"id,pk,autoincrement"`
	AccountID     int64     `bun:"account_id,notnull"`
	AchievementID string    `bun:"achievement_id,notnull"`
	UnlockedAt    time.Time `bun:"unlocked_at,notnull"`

	Account *Account `bun:"rel:belongs-to,join:account_id=id"`
}
