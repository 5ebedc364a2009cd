package models

import (
	"time"

	"github.com/uptrace/bun"
)

// GameMode enumerates the playable modes.
type GameMode string

const (
	ModeClassic GameMode = "classic"
	ModeTimed   GameMode = "timed"
	ModeNight   GameMode = "night"
	ModeExtreme GameMode = "extreme"
)

func (m GameMode) Valid() bool {
	switch m {
	case ModeClassic, ModeTimed, ModeNight, ModeExtreme:
		return true
	}
	return false
}

// GameSession is one completed play of the game. Rows are append-only and
// never mutated after insert.
type GameSession struct {
	bun.BaseModel `bun:"table:game_sessions,alias:gs"`

	ID        int64    `bun:"id,pk,autoincrement"`
	AccountID int64    `bun:"account_id,notnull"`
	Mode      GameMode `bun:"mode,notnull"`

	Height          int64 `bun:"height,notnull,default:0"`
	CoffeeCollected int64 `bun:"coffee_collected,notnull,default:0"`
	MaxCombo        int64 `bun:"max_combo,notnull,default:0"`
	Score           int64 `bun:"score,notnull,default:0"`
	TimePlayed      int64 `bun:"time_played,notnull,default:0"`
	CoinsEarned     int64 `bun:"coins_earned,notnull,default:0"`

	CreatedAt time.Time `bun:"created_at,notnull"`

	Account *Account `bun:"rel:belongs-to,join:account_id=id"`
}
