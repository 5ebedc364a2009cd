package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/perkygames/perky-jump/perkyjump"
	"github.com/perkygames/perky-jump/perkyjump/database"
	"github.com/perkygames/perky-jump/perkyjump/database/models"
	"github.com/perkygames/perky-jump/perkyjump/database/repositories"
	"github.com/perkygames/perky-jump/perkyjump/game"
	webmodels "github.com/perkygames/perky-jump/perkyjump/web/models"
	"github.com/perkygames/perky-jump/perkyjump/web/utils"
)

// WebApp represents the web application with all dependencies
type WebApp struct {
	Config      *perkyjump.Config
	DB          *database.DB
	Accounts    repositories.AccountRepository
	Recorder    *game.Recorder
	Stats       *game.Stats
	Ledger      *game.Ledger
	Challenges  *game.Challenges
	Leaderboard *game.Leaderboard
	Version     string
	Commit      string
}

// sendDomainError maps service errors onto the API error taxonomy.
func sendDomainError(c *fiber.Ctx, err error) error {
	switch {
	case game.IsValidation(err):
		return utils.SendBadRequest(c, err.Error(), nil)
	case repositories.IsNotFound(err):
		return utils.SendNotFound(c, err.Error())
	case repositories.IsConflict(err):
		return utils.SendConflict(c, err.Error(), nil)
	}
	return utils.SendInternalServerError(c, "something went wrong")
}

// HealthCheck reports service and database health
func HealthCheck(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := webmodels.NewHealthCheck(webApp.Version)

		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()

		if err := webApp.DB.Ping(ctx); err != nil {
			health.AddComponent("database", "unhealthy", err.Error(), nil)
			return utils.SendJSON(c, fiber.StatusServiceUnavailable, health)
		}
		health.AddComponent("database", "healthy", "", nil)

		return utils.SendJSON(c, fiber.StatusOK, health)
	}
}

// RecordSession accepts a finished game submission
func RecordSession(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req webmodels.SessionRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "invalid request body", nil)
		}

		result, err := webApp.Recorder.Record(c.Context(), game.SessionInput{
			ExternalID:      req.ExternalID,
			Username:        req.Username,
			FirstName:       req.FirstName,
			Mode:            models.GameMode(req.Mode),
			Height:          req.Height,
			CoffeeCollected: req.CoffeeCollected,
			MaxCombo:        req.MaxCombo,
			Score:           req.Score,
			TimePlayed:      req.TimePlayed,
			CoinsEarned:     req.CoinsEarned,
		})
		if err != nil {
			return sendDomainError(c, err)
		}

		unlocked := make([]webmodels.UnlockedAchievementView, 0, len(result.NewlyUnlocked))
		for _, def := range result.NewlyUnlocked {
			unlocked = append(unlocked, webmodels.UnlockedAchievementView{
				ID:          def.ID,
				Name:        def.Name,
				Description: def.Description,
				RewardCoins: def.RewardCoins,
			})
		}

		return utils.SendCreated(c, webmodels.SessionResponse{
			Account:            webmodels.NewAccountView(result.Account),
			Session:            webmodels.NewSessionView(result.Session),
			NewlyUnlocked:      unlocked,
			Challenge:          webmodels.NewChallengeView(result.Challenge),
			ChallengeCompleted: result.ChallengeCompleted,
		}, "session recorded")
	}
}

// GetStats returns the per-account snapshot
func GetStats(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		externalID := c.Params("externalID")
		if externalID == "" {
			return utils.SendBadRequest(c, "external id is required", nil)
		}

		stats, err := webApp.Stats.Get(c.Context(), externalID)
		if err != nil {
			return sendDomainError(c, err)
		}

		recent := make([]webmodels.SessionView, 0, len(stats.RecentSessions))
		for _, s := range stats.RecentSessions {
			recent = append(recent, webmodels.NewSessionView(s))
		}

		return utils.SendSuccess(c, webmodels.StatsResponse{
			Account:          webmodels.NewAccountView(stats.Account),
			RecentSessions:   recent,
			AchievementCount: stats.AchievementCount,
		}, "")
	}
}

// GetLeaderboard returns the ranked leaderboard
func GetLeaderboard(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				return utils.SendBadRequest(c, "limit must be an integer", nil)
			}
			limit = parsed
		}

		entries, err := webApp.Leaderboard.Top(c.Context(), limit)
		if err != nil {
			return sendDomainError(c, err)
		}

		return utils.SendSuccess(c, webmodels.NewLeaderboardRows(entries), "")
	}
}

// RebuildLeaderboard re-derives the full projection from accounts
func RebuildLeaderboard(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		count, err := webApp.Leaderboard.RebuildAll(c.Context())
		if err != nil {
			return sendDomainError(c, err)
		}
		return utils.SendSuccess(c, fiber.Map{"rebuilt": count}, "leaderboard rebuilt")
	}
}

// SaveProgress overwrites the client-owned progress state
func SaveProgress(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req webmodels.ProgressRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "invalid request body", nil)
		}
		if req.ExternalID == "" {
			return utils.SendBadRequest(c, "external id is required", nil)
		}
		if req.Coins < 0 {
			return utils.SendBadRequest(c, "coins must not be negative", nil)
		}

		if _, err := webApp.Accounts.GetOrCreate(c.Context(), req.ExternalID, repositories.ProfileFields{
			Username:  req.Username,
			FirstName: req.FirstName,
		}); err != nil {
			return sendDomainError(c, err)
		}

		account, err := webApp.Accounts.SaveProgress(c.Context(), req.ExternalID, req.Coins, req.Customization)
		if err != nil {
			return sendDomainError(c, err)
		}

		return utils.SendSuccess(c, webmodels.NewAccountView(account), "progress saved")
	}
}

// UnlockAchievement grants one achievement directly
func UnlockAchievement(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req webmodels.UnlockRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "invalid request body", nil)
		}
		if req.ExternalID == "" {
			return utils.SendBadRequest(c, "external id is required", nil)
		}

		account, err := webApp.Accounts.GetByExternalID(c.Context(), req.ExternalID)
		if err != nil {
			return sendDomainError(c, err)
		}

		def, unlocked, err := webApp.Ledger.Unlock(c.Context(), account.ID, req.AchievementID)
		if err != nil {
			return sendDomainError(c, err)
		}

		return utils.SendSuccess(c, fiber.Map{
			"achievement": webmodels.UnlockedAchievementView{
				ID:          def.ID,
				Name:        def.Name,
				Description: def.Description,
				RewardCoins: def.RewardCoins,
			},
			"unlocked": unlocked,
		}, "")
	}
}

// GetAchievements returns the catalog annotated with the account's unlocks
func GetAchievements(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		externalID := c.Params("externalID")
		if externalID == "" {
			return utils.SendBadRequest(c, "external id is required", nil)
		}

		account, err := webApp.Accounts.GetByExternalID(c.Context(), externalID)
		if err != nil {
			if repositories.IsNotFound(err) {
				// No account yet means nothing unlocked; still show the
				// catalog so clients can render the full list.
				statuses := make([]game.AchievementStatus, 0, len(game.Catalog))
				for _, def := range game.Catalog {
					statuses = append(statuses, game.AchievementStatus{
						ID:          def.ID,
						Name:        def.Name,
						Description: def.Description,
						RewardCoins: def.RewardCoins,
					})
				}
				return utils.SendSuccess(c, statuses, "")
			}
			return sendDomainError(c, err)
		}

		statuses, err := webApp.Ledger.Status(c.Context(), account.ID)
		if err != nil {
			return sendDomainError(c, err)
		}

		return utils.SendSuccess(c, statuses, "")
	}
}

// GetChallenge returns today's challenge, assigning one on first sight
func GetChallenge(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		externalID := c.Params("externalID")
		if externalID == "" {
			return utils.SendBadRequest(c, "external id is required", nil)
		}

		account, err := webApp.Accounts.GetOrCreate(c.Context(), externalID, repositories.ProfileFields{})
		if err != nil {
			return sendDomainError(c, err)
		}

		challenge, err := webApp.Challenges.AssignIfMissing(c.Context(), account, webApp.Challenges.Today())
		if err != nil {
			return sendDomainError(c, err)
		}

		return utils.SendSuccess(c, webmodels.NewChallengeView(challenge), "")
	}
}

// ChallengeProgress advances today's challenge by a client-reported value;
// for reach_height challenges the value is the height reached
func ChallengeProgress(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req webmodels.ChallengeProgressRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "invalid request body", nil)
		}
		if req.ExternalID == "" {
			return utils.SendBadRequest(c, "external id is required", nil)
		}
		if req.Delta < 0 {
			return utils.SendBadRequest(c, "delta must not be negative", nil)
		}

		account, err := webApp.Accounts.GetByExternalID(c.Context(), req.ExternalID)
		if err != nil {
			return sendDomainError(c, err)
		}

		challenge, completed, err := webApp.Challenges.AdvanceProgress(c.Context(), account, req.Delta)
		if err != nil {
			return sendDomainError(c, err)
		}

		return utils.SendSuccess(c, fiber.Map{
			"challenge": webmodels.NewChallengeView(challenge),
			"completed": completed,
		}, "")
	}
}
