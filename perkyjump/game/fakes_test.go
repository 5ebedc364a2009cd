package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/uptrace/bun"

	"github.com/perkygames/perky-jump/perkyjump"
	"github.com/perkygames/perky-jump/perkyjump/database/models"
	"github.com/perkygames/perky-jump/perkyjump/database/repositories"
)

// fakeStore is a mutex-guarded in-memory stand-in for the Postgres-backed
// repositories, mirroring their atomicity guarantees.
type fakeStore struct {
	mu sync.Mutex

	nextID        int64
	accountsByExt map[string]*models.Account
	accountsByID  map[int64]*models.Account
	sessions      map[int64][]*models.GameSession
	unlocks       map[int64][]*models.AchievementUnlock
	challenges    map[string]*models.DailyChallenge
	board         map[int64]*models.LeaderboardEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accountsByExt: make(map[string]*models.Account),
		accountsByID:  make(map[int64]*models.Account),
		sessions:      make(map[int64][]*models.GameSession),
		unlocks:       make(map[int64][]*models.AchievementUnlock),
		challenges:    make(map[string]*models.DailyChallenge),
		board:         make(map[int64]*models.LeaderboardEntry),
	}
}

func challengeKey(accountID int64, date string) string {
	return fmt.Sprintf("%d:%s", accountID, date)
}

func cloneAccount(a *models.Account) *models.Account {
	c := *a
	return &c
}

func cloneChallenge(dc *models.DailyChallenge) *models.DailyChallenge {
	c := *dc
	return &c
}

type fakeAccountRepo struct{ s *fakeStore }

var _ repositories.AccountRepository = (*fakeAccountRepo)(nil)

func (r *fakeAccountRepo) GetOrCreate(_ context.Context, externalID string, profile repositories.ProfileFields) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if acc, ok := r.s.accountsByExt[externalID]; ok {
		if profile.Username != "" {
			acc.Username = profile.Username
		}
		if profile.FirstName != "" {
			acc.FirstName = profile.FirstName
		}
		acc.LastActive = time.Now()
		return cloneAccount(acc), nil
	}

	r.s.nextID++
	now := time.Now()
	acc := &models.Account{
		ID:            r.s.nextID,
		ExternalID:    externalID,
		Username:      profile.Username,
		FirstName:     profile.FirstName,
		Customization: models.DefaultCustomization(),
		CreatedAt:     now,
		LastActive:    now,
		UpdatedAt:     now,
	}
	r.s.accountsByExt[externalID] = acc
	r.s.accountsByID[acc.ID] = acc
	return cloneAccount(acc), nil
}

func (r *fakeAccountRepo) GetByExternalID(_ context.Context, externalID string) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	acc, ok := r.s.accountsByExt[externalID]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "account", ID: externalID}
	}
	return cloneAccount(acc), nil
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id int64) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	acc, ok := r.s.accountsByID[id]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "account", ID: id}
	}
	return cloneAccount(acc), nil
}

func (r *fakeAccountRepo) SaveProgress(_ context.Context, externalID string, coins int64, customization models.Customization) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	acc, ok := r.s.accountsByExt[externalID]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "account", ID: externalID}
	}
	customization.Version = models.CustomizationVersion
	acc.Coins = coins
	acc.Customization = customization
	acc.UpdatedAt = time.Now()
	return cloneAccount(acc), nil
}

func (r *fakeAccountRepo) AddCoins(_ context.Context, accountID int64, delta int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if acc, ok := r.s.accountsByID[accountID]; ok {
		acc.Coins += delta
	}
	return nil
}

func (r *fakeAccountRepo) AddCoinsTx(ctx context.Context, _ bun.Tx, accountID int64, delta int64) error {
	return r.AddCoins(ctx, accountID, delta)
}

func (r *fakeAccountRepo) GetAll(_ context.Context) ([]*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	accounts := make([]*models.Account, 0, len(r.s.accountsByID))
	for _, acc := range r.s.accountsByID {
		accounts = append(accounts, cloneAccount(acc))
	}
	return accounts, nil
}

func (r *fakeAccountRepo) Count(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.accountsByID), nil
}

type fakeSessionRepo struct{ s *fakeStore }

var _ repositories.SessionRepository = (*fakeSessionRepo)(nil)

func (r *fakeSessionRepo) Record(_ context.Context, session *models.GameSession) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	acc, ok := r.s.accountsByID[session.AccountID]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "account", ID: session.AccountID}
	}

	session.CreatedAt = time.Now()
	stored := *session
	r.s.sessions[acc.ID] = append(r.s.sessions[acc.ID], &stored)

	acc.TotalCoffee += session.CoffeeCollected
	acc.GamesPlayed++
	if session.Height > acc.BestHeight {
		acc.BestHeight = session.Height
	}
	if session.CoffeeCollected > acc.BestCoffee {
		acc.BestCoffee = session.CoffeeCollected
	}
	acc.Coins += session.CoinsEarned
	acc.TotalScore = models.ComputeTotalScore(acc.BestHeight, acc.TotalCoffee)
	acc.LastActive = time.Now()
	acc.UpdatedAt = time.Now()

	r.s.board[acc.ID] = models.ProjectLeaderboardEntry(acc)

	return cloneAccount(acc), nil
}

func (r *fakeSessionRepo) GetRecentByAccount(_ context.Context, accountID int64, limit int) ([]*models.GameSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	all := r.s.sessions[accountID]
	recent := make([]*models.GameSession, 0, limit)
	for i := len(all) - 1; i >= 0 && len(recent) < limit; i-- {
		recent = append(recent, all[i])
	}
	return recent, nil
}

func (r *fakeSessionRepo) CountForAccount(_ context.Context, accountID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.sessions[accountID]), nil
}

type fakeAchievementRepo struct{ s *fakeStore }

var _ repositories.AchievementRepository = (*fakeAchievementRepo)(nil)

func (r *fakeAchievementRepo) held(accountID int64, achievementID string) bool {
	for _, u := range r.s.unlocks[accountID] {
		if u.AchievementID == achievementID {
			return true
		}
	}
	return false
}

func (r *fakeAchievementRepo) Unlock(_ context.Context, accountID int64, achievementID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.held(accountID, achievementID) {
		return false, nil
	}
	r.s.unlocks[accountID] = append(r.s.unlocks[accountID], &models.AchievementUnlock{
		AccountID:     accountID,
		AchievementID: achievementID,
		UnlockedAt:    time.Now(),
	})
	return true, nil
}

func (r *fakeAchievementRepo) UnlockWithReward(_ context.Context, accountID int64, achievementID string, rewardCoins int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.held(accountID, achievementID) {
		return false, nil
	}
	r.s.unlocks[accountID] = append(r.s.unlocks[accountID], &models.AchievementUnlock{
		AccountID:     accountID,
		AchievementID: achievementID,
		UnlockedAt:    time.Now(),
	})
	if acc, ok := r.s.accountsByID[accountID]; ok {
		acc.Coins += rewardCoins
	}
	return true, nil
}

func (r *fakeAchievementRepo) GetUnlocked(_ context.Context, accountID int64) ([]*models.AchievementUnlock, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	unlocks := make([]*models.AchievementUnlock, len(r.s.unlocks[accountID]))
	copy(unlocks, r.s.unlocks[accountID])
	return unlocks, nil
}

func (r *fakeAchievementRepo) CountForAccount(_ context.Context, accountID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.unlocks[accountID]), nil
}

type fakeChallengeRepo struct{ s *fakeStore }

var _ repositories.ChallengeRepository = (*fakeChallengeRepo)(nil)

func (r *fakeChallengeRepo) GetForDate(_ context.Context, accountID int64, date string) (*models.DailyChallenge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	dc, ok := r.s.challenges[challengeKey(accountID, date)]
	if !ok {
		return nil, nil
	}
	return cloneChallenge(dc), nil
}

func (r *fakeChallengeRepo) CreateIfMissing(_ context.Context, challenge *models.DailyChallenge) (*models.DailyChallenge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := challengeKey(challenge.AccountID, challenge.ChallengeDate)
	if existing, ok := r.s.challenges[key]; ok {
		return cloneChallenge(existing), nil
	}

	now := time.Now()
	stored := *challenge
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.s.challenges[key] = &stored
	return cloneChallenge(&stored), nil
}

func (r *fakeChallengeRepo) AddProgress(_ context.Context, accountID int64, date string, delta int64) (*models.DailyChallenge, bool, error) {
	return r.updateLocked(accountID, date, func(dc *models.DailyChallenge) bool {
		return dc.ApplyProgress(delta)
	})
}

func (r *fakeChallengeRepo) RaiseProgress(_ context.Context, accountID int64, date string, value int64) (*models.DailyChallenge, bool, error) {
	return r.updateLocked(accountID, date, func(dc *models.DailyChallenge) bool {
		return dc.RaiseProgress(value)
	})
}

// updateLocked mirrors the row-locked store: the mutation always sees the
// current counter, and the reward is credited on the transition only.
func (r *fakeChallengeRepo) updateLocked(accountID int64, date string, apply func(*models.DailyChallenge) bool) (*models.DailyChallenge, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	dc, ok := r.s.challenges[challengeKey(accountID, date)]
	if !ok {
		return nil, false, &repositories.NotFoundError{Entity: "daily_challenge", ID: accountID}
	}

	completed := apply(dc)
	dc.UpdatedAt = time.Now()

	if completed && dc.RewardCoins > 0 {
		if acc, ok := r.s.accountsByID[accountID]; ok {
			acc.Coins += dc.RewardCoins
		}
	}
	return cloneChallenge(dc), completed, nil
}

func (r *fakeChallengeRepo) GetCompletedCount(_ context.Context, accountID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	count := 0
	for _, dc := range r.s.challenges {
		if dc.AccountID == accountID && dc.Completed {
			count++
		}
	}
	return count, nil
}

type fakeLeaderboardRepo struct{ s *fakeStore }

var _ repositories.LeaderboardRepository = (*fakeLeaderboardRepo)(nil)

func (r *fakeLeaderboardRepo) Top(_ context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	entries := make([]*models.LeaderboardEntry, 0, len(r.s.board))
	for _, e := range r.s.board {
		entries = append(entries, e)
	}
	models.SortLeaderboard(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *fakeLeaderboardRepo) Upsert(_ context.Context, entry *models.LeaderboardEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.board[entry.AccountID] = entry
	return nil
}

func (r *fakeLeaderboardRepo) UpsertTx(ctx context.Context, _ bun.Tx, entry *models.LeaderboardEntry) error {
	return r.Upsert(ctx, entry)
}

func (r *fakeLeaderboardRepo) Count(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.board), nil
}

// testEnv wires the full game service stack over one fake store.
type testEnv struct {
	store       *fakeStore
	accounts    *fakeAccountRepo
	sessions    *fakeSessionRepo
	unlocks     *fakeAchievementRepo
	challenges  *fakeChallengeRepo
	board       *fakeLeaderboardRepo
	ledger      *Ledger
	daily       *Challenges
	leaderboard *Leaderboard
	recorder    *Recorder
	stats       *Stats
}

func testGameConfig() perkyjump.GameConfig {
	return perkyjump.GameConfig{
		MaxHeight:               10000,
		MaxCoffeePerGame:        200,
		LeaderboardSize:         100,
		LeaderboardCacheSeconds: 30,
	}
}

func newTestEnv() *testEnv {
	store := newFakeStore()
	env := &testEnv{
		store:      store,
		accounts:   &fakeAccountRepo{s: store},
		sessions:   &fakeSessionRepo{s: store},
		unlocks:    &fakeAchievementRepo{s: store},
		challenges: &fakeChallengeRepo{s: store},
		board:      &fakeLeaderboardRepo{s: store},
	}

	cfg := testGameConfig()
	env.ledger = NewLedger(env.unlocks)
	env.daily = NewChallenges(env.challenges)
	env.leaderboard = NewLeaderboard(env.board, env.accounts, 30*time.Second, cfg.LeaderboardSize)
	env.recorder = NewRecorder(cfg, env.accounts, env.sessions, env.ledger, env.daily, env.leaderboard)
	env.stats = NewStats(env.accounts, env.sessions, env.unlocks)
	return env
}
