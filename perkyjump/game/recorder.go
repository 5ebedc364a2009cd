package game

import (
	"context"
	"log/slog"
	"time"

	"github.com/perkygames/perky-jump/perkyjump"
	"github.com/perkygames/perky-jump/perkyjump/database/models"
	"github.com/perkygames/perky-jump/perkyjump/database/repositories"
)

// SessionResult is everything a single accepted session changed.
type SessionResult struct {
	Account            *models.Account
	Session            *models.GameSession
	NewlyUnlocked      []AchievementDef
	Challenge          *models.DailyChallenge
	ChallengeCompleted bool
}

// Recorder is the write path for finished games: validate, persist the
// session with its aggregate fold, then run the achievement and challenge
// follow-ups against the fresh snapshot.
type Recorder struct {
	cfg         perkyjump.GameConfig
	accounts    repositories.AccountRepository
	sessions    repositories.SessionRepository
	ledger      *Ledger
	challenges  *Challenges
	leaderboard *Leaderboard
}

func NewRecorder(
	cfg perkyjump.GameConfig,
	accounts repositories.AccountRepository,
	sessions repositories.SessionRepository,
	ledger *Ledger,
	challenges *Challenges,
	leaderboard *Leaderboard,
) *Recorder {
	return &Recorder{
		cfg:         cfg,
		accounts:    accounts,
		sessions:    sessions,
		ledger:      ledger,
		challenges:  challenges,
		leaderboard: leaderboard,
	}
}

// Record accepts a finished game. An unknown external id creates the
// account on the spot; a submission outside the configured bounds is
// rejected before any write. Achievement and challenge follow-ups run
// after the session commit, so a failure there can delay unlocks but
// never lose the session itself.
func (r *Recorder) Record(ctx context.Context, in SessionInput) (*SessionResult, error) {
	start := time.Now()

	if err := Validate(in, r.cfg); err != nil {
		return nil, err
	}

	acc, err := r.accounts.GetOrCreate(ctx, in.ExternalID, repositories.ProfileFields{
		Username:  in.Username,
		FirstName: in.FirstName,
	})
	if err != nil {
		return nil, err
	}

	session := &models.GameSession{
		AccountID:       acc.ID,
		Mode:            in.Mode,
		Height:          in.Height,
		CoffeeCollected: in.CoffeeCollected,
		MaxCombo:        in.MaxCombo,
		Score:           in.Score,
		TimePlayed:      in.TimePlayed,
		CoinsEarned:     in.CoinsEarned,
	}

	acc, err = r.sessions.Record(ctx, session)
	if err != nil {
		return nil, err
	}
	r.leaderboard.Invalidate()

	newly, err := r.ledger.Evaluate(ctx, acc, session)
	if err != nil {
		slog.Error("Achievement evaluation failed after session commit",
			slog.String("type", "game"),
			slog.Int64("account_id", acc.ID),
			slog.Any("error", err))
		return nil, err
	}

	challenge, completed, err := r.challenges.RecordProgress(ctx, acc, session)
	if err != nil {
		slog.Error("Challenge progress failed after session commit",
			slog.String("type", "game"),
			slog.Int64("account_id", acc.ID),
			slog.Any("error", err))
		return nil, err
	}

	slog.Info("Session recorded",
		slog.String("type", "game"),
		slog.Int64("account_id", acc.ID),
		slog.String("mode", string(session.Mode)),
		slog.Int64("height", session.Height),
		slog.Int64("score", session.Score),
		slog.Int("unlocked", len(newly)),
		slog.Duration("took", time.Since(start)))

	return &SessionResult{
		Account:            acc,
		Session:            session,
		NewlyUnlocked:      newly,
		Challenge:          challenge,
		ChallengeCompleted: completed,
	}, nil
}
