package models

import (
	"time"

	"github.com/uptrace/bun"
)

// CustomizationVersion is the current schema version of the customization
// blob. Bump it when the blob layout changes and handle the upgrade in
// Customization.Migrate.
const CustomizationVersion = 1

const (
	DefaultSkin   = "classic"
	DefaultEffect = "stars"
)

// Account is the canonical per-player record: identity, running aggregates
// and customization state. Aggregates only ever grow; they are folded in by
// the session recorder inside a single transaction.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID         int64  `bun:"id,pk,autoincrement"`
	ExternalID string `bun:"external_id,notnull,unique"`

	Username     string `bun:"username"`
	FirstName    string `bun:"first_name"`
	LastName     string `bun:"last_name"`
	LanguageCode string `bun:"language_code"`

	Coins       int64 `bun:"coins,notnull,default:0"`
	TotalCoffee int64 `bun:"total_coffee,notnull,default:0"`
	GamesPlayed int64 `bun:"games_played,notnull,default:0"`
	BestHeight  int64 `bun:"best_height,notnull,default:0"`
	BestCoffee  int64 `bun:"best_coffee,notnull,default:0"`
	TotalScore  int64 `bun:"total_score,notnull,default:0"`

	Customization Customization `bun:"customization,type:jsonb"`

	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
	LastActive time.Time `bun:"last_active,notnull"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`
}

// Customization is the wholesale-saved client state: cosmetics, owned item
// sets and upgrade levels. Stored as one versioned JSONB document.
type Customization struct {
	Version        int            `json:"version"`
	SelectedSkin   string         `json:"selected_skin"`
	SelectedEffect string         `json:"selected_effect"`
	OwnedSkins     []string       `json:"owned_skins"`
	OwnedEffects   []string       `json:"owned_effects"`
	Upgrades       map[string]int `json:"upgrades"`
	Settings       map[string]any `json:"settings"`
}

func DefaultCustomization() Customization {
	return Customization{
		Version:        CustomizationVersion,
		SelectedSkin:   DefaultSkin,
		SelectedEffect: DefaultEffect,
		OwnedSkins:     []string{DefaultSkin},
		OwnedEffects:   []string{DefaultEffect},
		Upgrades:       map[string]int{},
		Settings:       map[string]any{},
	}
}

// Migrate upgrades a customization blob read from an older row to the
// current version, filling defaults for fields that did not exist yet.
func (c *Customization) Migrate() {
	if c.Version >= CustomizationVersion {
		return
	}
	if c.SelectedSkin == "" {
		c.SelectedSkin = DefaultSkin
	}
	if c.SelectedEffect == "" {
		c.SelectedEffect = DefaultEffect
	}
	if len(c.OwnedSkins) == 0 {
		c.OwnedSkins = []string{DefaultSkin}
	}
	if len(c.OwnedEffects) == 0 {
		c.OwnedEffects = []string{DefaultEffect}
	}
	if c.Upgrades == nil {
		c.Upgrades = map[string]int{}
	}
	if c.Settings == nil {
		c.Settings = map[string]any{}
	}
	c.Version = CustomizationVersion
}

// ComputeTotalScore is the single authoritative total_score rule: the sum
// of the account's best height and lifetime coffee. The leaderboard and the
// session recorder both derive from it.
func ComputeTotalScore(bestHeight, totalCoffee int64) int64 {
	return bestHeight + totalCoffee
}

// DisplayName picks the name shown on leaderboards: first name, then
// username, then a generic fallback.
func (a *Account) DisplayName() string {
	if a.FirstName != "" {
		return a.FirstName
	}
	if a.Username != "" {
		return a.Username
	}
	return "Player"
}
