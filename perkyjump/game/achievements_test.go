package game

import (
	"context"
	"testing"

	"github.com/perkygames/perky-jump/perkyjump/database/models"
	"github.com/perkygames/perky-jump/perkyjump/database/repositories"
)

func TestCatalogIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, def := range Catalog {
		if seen[def.ID] {
			t.Errorf("duplicate catalog id %q", def.ID)
		}
		seen[def.ID] = true

		if def.RewardCoins <= 0 {
			t.Errorf("achievement %q has no reward", def.ID)
		}
		if def.Satisfied == nil {
			t.Errorf("achievement %q has no predicate", def.ID)
		}
	}
}

func TestLedgerEvaluateIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.accounts.GetOrCreate(ctx, "ext-1", repositories.ProfileFields{})
	if err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}

	acc := &models.Account{ID: created.ID, GamesPlayed: 1}
	session := &models.GameSession{AccountID: created.ID, CoffeeCollected: 15}

	first, err := env.ledger.Evaluate(ctx, acc, session)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("first Evaluate unlocked %d, want 2 (first_game, coffee_collector_10)", len(first))
	}

	second, err := env.ledger.Evaluate(ctx, acc, session)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second Evaluate unlocked %d, want 0", len(second))
	}

	count, _ := env.unlocks.CountForAccount(ctx, created.ID)
	if count != 2 {
		t.Errorf("stored unlocks = %d, want exactly 2", count)
	}
}

func TestLedgerRewardCreditedOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.accounts.GetOrCreate(ctx, "ext-1", repositories.ProfileFields{})
	if err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}

	def, unlocked, err := env.ledger.Unlock(ctx, created.ID, "first_game")
	if err != nil {
		t.Fatalf("Unlock() error: %v", err)
	}
	if !unlocked {
		t.Fatal("first Unlock should report true")
	}

	_, unlocked, err = env.ledger.Unlock(ctx, created.ID, "first_game")
	if err != nil {
		t.Fatalf("Unlock() error: %v", err)
	}
	if unlocked {
		t.Error("second Unlock should report false")
	}

	acc, _ := env.accounts.GetByID(ctx, created.ID)
	if acc.Coins != def.RewardCoins {
		t.Errorf("Coins = %d, want %d credited exactly once", acc.Coins, def.RewardCoins)
	}
}

func TestLedgerUnlockUnknownID(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, _, err := env.ledger.Unlock(ctx, 1, "made_up")
	if err == nil {
		t.Fatal("Unlock() = nil error for unknown id")
	}
	if !IsValidation(err) {
		t.Errorf("IsValidation(%v) = false, want true", err)
	}
}

func TestLedgerStatus(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.accounts.GetOrCreate(ctx, "ext-1", repositories.ProfileFields{})
	if err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}

	if _, _, err := env.ledger.Unlock(ctx, created.ID, "height_master_50"); err != nil {
		t.Fatalf("Unlock() error: %v", err)
	}

	statuses, err := env.ledger.Status(ctx, created.ID)
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if len(statuses) != len(Catalog) {
		t.Fatalf("Status() = %d entries, want full catalog of %d", len(statuses), len(Catalog))
	}

	for _, st := range statuses {
		wantUnlocked := st.ID == "height_master_50"
		if st.Unlocked != wantUnlocked {
			t.Errorf("achievement %q unlocked = %v, want %v", st.ID, st.Unlocked, wantUnlocked)
		}
	}
}
