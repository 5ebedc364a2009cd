package models

import (
	"time"

	dbmodels "github.com/perkygames/perky-jump/perkyjump/database/models"
	"github.com/perkygames/perky-jump/perkyjump/game"
)

// SessionRequest is a finished-game submission from the client.
type SessionRequest struct {
	ExternalID      string `json:"external_id"`
	Username        string `json:"username"`
	FirstName       string `json:"first_name"`
	Mode            string `json:"mode"`
	Height          int64  `json:"height"`
	CoffeeCollected int64  `json:"coffee_collected"`
	MaxCombo        int64  `json:"max_combo"`
	Score           int64  `json:"score"`
	TimePlayed      int64  `json:"time_played"`
	CoinsEarned     int64  `json:"coins_earned"`
}

// ProgressRequest overwrites the client-owned progress state wholesale.
type ProgressRequest struct {
	ExternalID    string                 `json:"external_id"`
	Username      string                 `json:"username"`
	FirstName     string                 `json:"first_name"`
	Coins         int64                  `json:"coins"`
	Customization dbmodels.Customization `json:"customization"`
}

// UnlockRequest grants one achievement directly.
type UnlockRequest struct {
	ExternalID    string `json:"external_id"`
	AchievementID string `json:"achievement_id"`
}

// ChallengeProgressRequest advances today's challenge. Delta is additive
// for counting challenges and the height reached for reach_height.
type ChallengeProgressRequest struct {
	ExternalID string `json:"external_id"`
	Delta      int64  `json:"delta"`
}

// AccountView is the account snapshot returned to clients.
type AccountView struct {
	ExternalID    string                 `json:"external_id"`
	DisplayName   string                 `json:"display_name"`
	Coins         int64                  `json:"coins"`
	TotalCoffee   int64                  `json:"total_coffee"`
	GamesPlayed   int64                  `json:"games_played"`
	BestHeight    int64                  `json:"best_height"`
	BestCoffee    int64                  `json:"best_coffee"`
	TotalScore    int64                  `json:"total_score"`
	Customization dbmodels.Customization `json:"customization"`
	CreatedAt     time.Time              `json:"created_at"`
}

// NewAccountView projects an account into its client-facing shape.
func NewAccountView(a *dbmodels.Account) AccountView {
	return AccountView{
		ExternalID:    a.ExternalID,
		DisplayName:   a.DisplayName(),
		Coins:         a.Coins,
		TotalCoffee:   a.TotalCoffee,
		GamesPlayed:   a.GamesPlayed,
		BestHeight:    a.BestHeight,
		BestCoffee:    a.BestCoffee,
		TotalScore:    a.TotalScore,
		Customization: a.Customization,
		CreatedAt:     a.CreatedAt,
	}
}

// UnlockedAchievementView is one achievement granted by a request.
type UnlockedAchievementView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	RewardCoins int64  `json:"reward_coins"`
}

// SessionView summarizes one recorded session.
type SessionView struct {
	Mode            string    `json:"mode"`
	Height          int64     `json:"height"`
	CoffeeCollected int64     `json:"coffee_collected"`
	MaxCombo        int64     `json:"max_combo"`
	Score           int64     `json:"score"`
	TimePlayed      int64     `json:"time_played"`
	CoinsEarned     int64     `json:"coins_earned"`
	PlayedAt        time.Time `json:"played_at"`
}

func NewSessionView(s *dbmodels.GameSession) SessionView {
	return SessionView{
		Mode:            string(s.Mode),
		Height:          s.Height,
		CoffeeCollected: s.CoffeeCollected,
		MaxCombo:        s.MaxCombo,
		Score:           s.Score,
		TimePlayed:      s.TimePlayed,
		CoinsEarned:     s.CoinsEarned,
		PlayedAt:        s.CreatedAt,
	}
}

// SessionResponse is the result of accepting a session.
type SessionResponse struct {
	Account            AccountView               `json:"account"`
	Session            SessionView               `json:"session"`
	NewlyUnlocked      []UnlockedAchievementView `json:"newly_unlocked"`
	Challenge          *ChallengeView            `json:"challenge,omitempty"`
	ChallengeCompleted bool                      `json:"challenge_completed"`
}

// StatsResponse is the per-account read snapshot.
type StatsResponse struct {
	Account          AccountView   `json:"account"`
	RecentSessions   []SessionView `json:"recent_sessions"`
	AchievementCount int           `json:"achievement_count"`
}

// LeaderboardRow is one ranked entry.
type LeaderboardRow struct {
	Rank        int    `json:"rank"`
	ExternalID  string `json:"external_id"`
	DisplayName string `json:"display_name"`
	BestHeight  int64  `json:"best_height"`
	TotalCoffee int64  `json:"total_coffee"`
	TotalScore  int64  `json:"total_score"`
}

// NewLeaderboardRows ranks projection entries in their given order.
func NewLeaderboardRows(entries []*dbmodels.LeaderboardEntry) []LeaderboardRow {
	rows := make([]LeaderboardRow, 0, len(entries))
	for i, e := range entries {
		name := e.FirstName
		if name == "" {
			name = e.Username
		}
		if name == "" {
			name = "Player"
		}
		rows = append(rows, LeaderboardRow{
			Rank:        i + 1,
			ExternalID:  e.ExternalID,
			DisplayName: name,
			BestHeight:  e.BestHeight,
			TotalCoffee: e.TotalCoffee,
			TotalScore:  e.TotalScore,
		})
	}
	return rows
}

// ChallengeView is the client-facing daily challenge state.
type ChallengeView struct {
	Type            string `json:"type"`
	Description     string `json:"description"`
	TargetValue     int64  `json:"target_value"`
	CurrentProgress int64  `json:"current_progress"`
	Completed       bool   `json:"completed"`
	RewardCoins     int64  `json:"reward_coins"`
	Date            string `json:"date"`
}

func NewChallengeView(dc *dbmodels.DailyChallenge) *ChallengeView {
	if dc == nil {
		return nil
	}
	return &ChallengeView{
		Type:            dc.ChallengeType,
		Description:     game.ChallengeDescription(dc.ChallengeType, dc.TargetValue),
		TargetValue:     dc.TargetValue,
		CurrentProgress: dc.CurrentProgress,
		Completed:       dc.Completed,
		RewardCoins:     dc.RewardCoins,
		Date:            dc.ChallengeDate,
	}
}
