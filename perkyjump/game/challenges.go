package game

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/perkygames/perky-jump/perkyjump/database/models"
	"github.com/perkygames/perky-jump/perkyjump/database/repositories"
)

// ChallengeDef is one challenge type with its target ladder. The assigned
// target is picked from Targets deterministically per account and day.
type ChallengeDef struct {
	Type        string
	Targets     []int64
	RewardCoins int64
}

var ChallengeCatalog = []ChallengeDef{
	{Type: "collect_coffee", Targets: []int64{20, 30, 50}, RewardCoins: 20},
	{Type: "reach_height", Targets: []int64{50, 100, 150}, RewardCoins: 25},
	{Type: "play_games", Targets: []int64{3, 5, 10}, RewardCoins: 15},
	{Type: "score_points", Targets: []int64{500, 1000, 1500}, RewardCoins: 30},
}

// ChallengeDescription renders the player-facing text for a challenge.
func ChallengeDescription(challengeType string, target int64) string {
	switch challengeType {
	case "collect_coffee":
		return fmt.Sprintf("Collect %d coffees today", target)
	case "reach_height":
		return fmt.Sprintf("Reach height %d today", target)
	case "play_games":
		return fmt.Sprintf("Play %d games today", target)
	case "score_points":
		return fmt.Sprintf("Score %d points today", target)
	}
	return ""
}

// Challenges assigns and advances each account's daily challenge.
type Challenges struct {
	challenges repositories.ChallengeRepository
	now        func() time.Time
}

func NewChallenges(challenges repositories.ChallengeRepository) *Challenges {
	return &Challenges{challenges: challenges, now: time.Now}
}

// Today returns the current challenge date key in UTC.
func (c *Challenges) Today() string {
	return c.now().UTC().Format(models.ChallengeDateLayout)
}

// pickChallenge derives the day's assignment from the account's external id
// and the date, so every node assigns the same challenge without
// coordination.
func pickChallenge(externalID, date string) (ChallengeDef, int64) {
	h := fnv.New64a()
	h.Write([]byte(externalID))
	h.Write([]byte{0})
	h.Write([]byte(date))
	sum := h.Sum64()

	def := ChallengeCatalog[sum%uint64(len(ChallengeCatalog))]
	target := def.Targets[(sum/uint64(len(ChallengeCatalog)))%uint64(len(def.Targets))]
	return def, target
}

// AssignIfMissing returns the account's challenge for the date, creating
// the deterministic assignment on first sight. Concurrent first calls
// converge on one row.
func (c *Challenges) AssignIfMissing(ctx context.Context, acc *models.Account, date string) (*models.DailyChallenge, error) {
	existing, err := c.challenges.GetForDate(ctx, acc.ID, date)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	def, target := pickChallenge(acc.ExternalID, date)
	challenge := &models.DailyChallenge{
		AccountID:     acc.ID,
		ChallengeType: def.Type,
		TargetValue:   target,
		RewardCoins:   def.RewardCoins,
		ChallengeDate: date,
	}

	created, err := c.challenges.CreateIfMissing(ctx, challenge)
	if err != nil {
		return nil, err
	}
	slog.Info("Daily challenge assigned",
		slog.String("type", "game"),
		slog.Int64("account_id", acc.ID),
		slog.String("challenge", created.ChallengeType),
		slog.Int64("target", created.TargetValue),
		slog.String("date", date))
	return created, nil
}

// sessionDelta maps a finished session onto an additive challenge counter.
// reach_height is not additive; it goes through RaiseProgress so the
// best-of-day comparison runs against the locked row, never a read from
// before the lock.
func sessionDelta(challengeType string, session *models.GameSession) int64 {
	switch challengeType {
	case "collect_coffee":
		return session.CoffeeCollected
	case "play_games":
		return 1
	case "score_points":
		return session.Score
	}
	return 0
}

// AdvanceProgress applies a client-reported value to the account's
// challenge for today, assigning one first if needed. Used by the direct
// progress endpoint for events the session recorder does not observe. For
// reach_height the value is the height reached, not an increment.
func (c *Challenges) AdvanceProgress(ctx context.Context, acc *models.Account, value int64) (*models.DailyChallenge, bool, error) {
	date := c.Today()
	challenge, err := c.AssignIfMissing(ctx, acc, date)
	if err != nil {
		return nil, false, err
	}
	if challenge.Completed || value == 0 {
		return challenge, false, nil
	}

	var updated *models.DailyChallenge
	var completed bool
	if challenge.ChallengeType == "reach_height" {
		updated, completed, err = c.challenges.RaiseProgress(ctx, acc.ID, date, value)
	} else {
		updated, completed, err = c.challenges.AddProgress(ctx, acc.ID, date, value)
	}
	if err != nil {
		return nil, false, err
	}
	if completed {
		acc.Coins += updated.RewardCoins
	}
	return updated, completed, nil
}

// RecordProgress folds a finished session into the account's challenge for
// today. Returns the updated challenge and whether this session completed
// it. The reward is credited by the store on the completion transition.
func (c *Challenges) RecordProgress(ctx context.Context, acc *models.Account, session *models.GameSession) (*models.DailyChallenge, bool, error) {
	date := c.Today()
	challenge, err := c.AssignIfMissing(ctx, acc, date)
	if err != nil {
		return nil, false, err
	}
	if challenge.Completed {
		return challenge, false, nil
	}

	var updated *models.DailyChallenge
	var completed bool
	if challenge.ChallengeType == "reach_height" {
		// Progress only moves up, so a height at or below the snapshot
		// cannot move it; anything higher is resolved under the row lock.
		if session.Height <= challenge.CurrentProgress {
			return challenge, false, nil
		}
		updated, completed, err = c.challenges.RaiseProgress(ctx, acc.ID, date, session.Height)
	} else {
		delta := sessionDelta(challenge.ChallengeType, session)
		if delta == 0 {
			return challenge, false, nil
		}
		updated, completed, err = c.challenges.AddProgress(ctx, acc.ID, date, delta)
	}
	if err != nil {
		return nil, false, err
	}
	if completed {
		acc.Coins += updated.RewardCoins
		slog.Info("Daily challenge completed",
			slog.String("type", "game"),
			slog.Int64("account_id", acc.ID),
			slog.String("challenge", updated.ChallengeType),
			slog.Int64("reward_coins", updated.RewardCoins))
	}
	return updated, completed, nil
}
