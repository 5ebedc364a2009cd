package game

import (
	"context"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/perkygames/perky-jump/perkyjump/database/models"
	"github.com/perkygames/perky-jump/perkyjump/database/repositories"
)

const (
	defaultTopLimit    = 10
	leaderboardCacheSz = 16
	rebuildConcurrency = 8
)

type cachedBoard struct {
	entries   []*models.LeaderboardEntry
	fetchedAt time.Time
}

// Leaderboard serves ranked reads over the projection table with a short
// TTL cache in front. Staleness is bounded by the TTL; every accepted
// session invalidates the cache so rankings catch up immediately under
// normal load.
type Leaderboard struct {
	entries  repositories.LeaderboardRepository
	accounts repositories.AccountRepository
	cache    *lru.Cache
	ttl      time.Duration
	maxSize  int
}

func NewLeaderboard(entries repositories.LeaderboardRepository, accounts repositories.AccountRepository, cacheTTL time.Duration, maxSize int) *Leaderboard {
	cache, _ := lru.New(leaderboardCacheSz)
	if maxSize <= 0 {
		maxSize = 100
	}
	return &Leaderboard{
		entries:  entries,
		accounts: accounts,
		cache:    cache,
		ttl:      cacheTTL,
		maxSize:  maxSize,
	}
}

// Top returns the ranked leaderboard. A non-positive limit falls back to
// the default page size; anything above the policy maximum is clamped.
func (s *Leaderboard) Top(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}
	if limit > s.maxSize {
		limit = s.maxSize
	}

	if cached, ok := s.cache.Get(limit); ok {
		board := cached.(*cachedBoard)
		if time.Since(board.fetchedAt) < s.ttl {
			return board.entries, nil
		}
		s.cache.Remove(limit)
	}

	entries, err := s.entries.Top(ctx, limit)
	if err != nil {
		return nil, err
	}

	// The store already orders, but ranking correctness should not depend
	// on which store backs the repository.
	models.SortLeaderboard(entries)

	s.cache.Add(limit, &cachedBoard{entries: entries, fetchedAt: time.Now()})
	return entries, nil
}

// Invalidate drops all cached pages. Called after every accepted session.
func (s *Leaderboard) Invalidate() {
	s.cache.Purge()
}

// RebuildAll re-derives every projection row from the accounts table.
// Recovery path for a corrupted or freshly created projection; safe to run
// while the service takes traffic since each upsert is idempotent.
func (s *Leaderboard) RebuildAll(ctx context.Context) (int, error) {
	accounts, err := s.accounts.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	sem := semaphore.NewWeighted(rebuildConcurrency)
	g, gctx := errgroup.WithContext(ctx)

	for _, acc := range accounts {
		acc := acc
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			acc.TotalScore = models.ComputeTotalScore(acc.BestHeight, acc.TotalCoffee)
			return s.entries.Upsert(gctx, models.ProjectLeaderboardEntry(acc))
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	s.Invalidate()
	slog.Info("Leaderboard projection rebuilt",
		slog.String("type", "game"),
		slog.Int("accounts", len(accounts)))
	return len(accounts), nil
}
