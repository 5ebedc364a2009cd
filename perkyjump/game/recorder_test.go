package game

import (
	"context"
	"sync"
	"testing"

	"github.com/perkygames/perky-jump/perkyjump/database/models"
)

func TestRecorderAggregates(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	sessions := []SessionInput{
		{ExternalID: "ext-1", Mode: models.ModeClassic, Height: 80, CoffeeCollected: 5, Score: 100},
		{ExternalID: "ext-1", Mode: models.ModeTimed, Height: 150, CoffeeCollected: 3, Score: 250},
		{ExternalID: "ext-1", Mode: models.ModeClassic, Height: 60, CoffeeCollected: 9, Score: 90},
	}

	var last *SessionResult
	for _, in := range sessions {
		result, err := env.recorder.Record(ctx, in)
		if err != nil {
			t.Fatalf("Record() error: %v", err)
		}
		last = result
	}

	acc := last.Account
	if acc.GamesPlayed != 3 {
		t.Errorf("GamesPlayed = %d, want 3", acc.GamesPlayed)
	}
	if acc.BestHeight != 150 {
		t.Errorf("BestHeight = %d, want 150", acc.BestHeight)
	}
	if acc.TotalCoffee != 17 {
		t.Errorf("TotalCoffee = %d, want 17", acc.TotalCoffee)
	}
	if acc.BestCoffee != 9 {
		t.Errorf("BestCoffee = %d, want 9", acc.BestCoffee)
	}
	if want := models.ComputeTotalScore(150, 17); acc.TotalScore != want {
		t.Errorf("TotalScore = %d, want %d", acc.TotalScore, want)
	}
}

func TestRecorderCreatesAccountOnFirstSession(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	result, err := env.recorder.Record(ctx, SessionInput{
		ExternalID: "fresh",
		Username:   "newplayer",
		Mode:       models.ModeClassic,
		Height:     30,
	})
	if err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	if result.Account.ExternalID != "fresh" {
		t.Errorf("ExternalID = %q, want fresh", result.Account.ExternalID)
	}
	if result.Account.Customization.SelectedSkin != models.DefaultSkin {
		t.Errorf("new account should carry default customization, got %+v", result.Account.Customization)
	}

	count, _ := env.accounts.Count(ctx)
	if count != 1 {
		t.Errorf("account count = %d, want 1", count)
	}
}

func TestRecorderRejectsInvalidBeforeWrite(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.recorder.Record(ctx, SessionInput{
		ExternalID: "ext-1",
		Mode:       "bogus",
		Height:     10,
	})
	if err == nil {
		t.Fatal("Record() = nil error, want validation failure")
	}
	if !IsValidation(err) {
		t.Errorf("IsValidation(%v) = false, want true", err)
	}

	if count, _ := env.accounts.Count(ctx); count != 0 {
		t.Errorf("account count = %d, rejected session must not create accounts", count)
	}
	if count, _ := env.sessions.CountForAccount(ctx, 1); count != 0 {
		t.Errorf("session count = %d, rejected session must not be stored", count)
	}
}

func TestRecorderConcurrentSessions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	const workers = 50

	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.recorder.Record(ctx, SessionInput{
				ExternalID:      "ext-1",
				Mode:            models.ModeClassic,
				Height:          10,
				CoffeeCollected: 1,
			})
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent Record() error: %v", err)
	}

	acc, err := env.accounts.GetByExternalID(ctx, "ext-1")
	if err != nil {
		t.Fatalf("GetByExternalID() error: %v", err)
	}
	if acc.TotalCoffee != workers {
		t.Errorf("TotalCoffee = %d, want %d (no lost updates)", acc.TotalCoffee, workers)
	}
	if acc.GamesPlayed != workers {
		t.Errorf("GamesPlayed = %d, want %d", acc.GamesPlayed, workers)
	}
}

func TestRecorderUnlocksAchievements(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	result, err := env.recorder.Record(ctx, SessionInput{
		ExternalID:      "ext-1",
		Mode:            models.ModeClassic,
		Height:          60,
		CoffeeCollected: 12,
		Score:           600,
	})
	if err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	want := map[string]bool{
		"first_game":          true,
		"coffee_collector_10": true,
		"height_master_50":    true,
		"score_master_500":    true,
	}
	if len(result.NewlyUnlocked) != len(want) {
		t.Fatalf("NewlyUnlocked = %d entries, want %d: %+v", len(result.NewlyUnlocked), len(want), result.NewlyUnlocked)
	}
	for _, def := range result.NewlyUnlocked {
		if !want[def.ID] {
			t.Errorf("unexpected unlock %q", def.ID)
		}
	}

	// A weaker second session unlocks nothing new.
	result, err = env.recorder.Record(ctx, SessionInput{
		ExternalID:      "ext-1",
		Mode:            models.ModeClassic,
		Height:          55,
		CoffeeCollected: 11,
		Score:           550,
	})
	if err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if len(result.NewlyUnlocked) != 0 {
		t.Errorf("NewlyUnlocked = %+v, want none on repeat", result.NewlyUnlocked)
	}
}

func TestStatsUnknownAccount(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	stats, err := env.stats.Get(ctx, "never-seen")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if stats.Account.ExternalID != "never-seen" {
		t.Errorf("ExternalID = %q, want never-seen", stats.Account.ExternalID)
	}
	if stats.Account.GamesPlayed != 0 || stats.Account.Coins != 0 {
		t.Errorf("unknown account must be zeroed, got %+v", stats.Account)
	}
	if len(stats.RecentSessions) != 0 || stats.AchievementCount != 0 {
		t.Error("unknown account must have no history")
	}

	if count, _ := env.accounts.Count(ctx); count != 0 {
		t.Errorf("stats read must not create accounts, count = %d", count)
	}
}

func TestStatsAfterSessions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		if _, err := env.recorder.Record(ctx, SessionInput{
			ExternalID: "ext-1",
			Mode:       models.ModeClassic,
			Height:     int64(10 + i),
		}); err != nil {
			t.Fatalf("Record() error: %v", err)
		}
	}

	stats, err := env.stats.Get(ctx, "ext-1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if stats.Account.GamesPlayed != 12 {
		t.Errorf("GamesPlayed = %d, want 12", stats.Account.GamesPlayed)
	}
	if len(stats.RecentSessions) != 10 {
		t.Errorf("RecentSessions = %d, want capped at 10", len(stats.RecentSessions))
	}
	if stats.AchievementCount == 0 {
		t.Error("AchievementCount = 0, want at least first_game")
	}
}
