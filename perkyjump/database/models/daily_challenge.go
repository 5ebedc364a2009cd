package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ChallengeDateLayout is the canonical format for the per-day key.
const ChallengeDateLayout = "2006-01-02"

// DailyChallenge is an account's assigned target for one calendar day.
// Progress saturates at TargetValue and Completed flips false→true exactly
// once; one row per (account, date) is enforced by a unique index.
type DailyChallenge struct {
	bun.BaseModel `bun:"table:daily_challenges,alias:dc"`

	ID              int64  `bun:"id,pk,autoincrement"`
	AccountID       int64  `bun:"account_id,notnull"`
	ChallengeType   string `bun:"challenge_type,notnull"`
	TargetValue     int64  `bun:"target_value,notnull"`
	CurrentProgress int64  `bun:"current_progress,notnull,default:0"`
	Completed       bool   `bun:"completed,notnull,default:false"`
	RewardCoins     int64  `bun:"reward_coins,notnull,default:0"`
	ChallengeDate   string `bun:"challenge_date,notnull"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`

	Account *Account `bun:"rel:belongs-to,join:account_id=id"`
}

// ApplyProgress adds delta to the saturating counter and reports whether
// this call crossed the completion threshold. Calls after completion keep
// the counter clamped and never report completion again.
func (dc *DailyChallenge) ApplyProgress(delta int64) bool {
	progress := dc.CurrentProgress + delta
	if progress > dc.TargetValue {
		progress = dc.TargetValue
	}
	if progress < 0 {
		progress = 0
	}
	dc.CurrentProgress = progress

	if !dc.Completed && progress >= dc.TargetValue {
		dc.Completed = true
		return true
	}
	return false
}

// RaiseProgress lifts the counter to value when that beats the current
// progress and leaves it alone otherwise, reporting the completion
// transition like ApplyProgress. Used for best-of-day challenges where
// attempts must never sum.
func (dc *DailyChallenge) RaiseProgress(value int64) bool {
	if value <= dc.CurrentProgress {
		return false
	}
	return dc.ApplyProgress(value - dc.CurrentProgress)
}
