package models

import (
	"testing"
	"time"
)

func TestCompareEntries(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b *LeaderboardEntry
		want int
	}{
		{
			"higher score ranks first",
			&LeaderboardEntry{TotalScore: 500},
			&LeaderboardEntry{TotalScore: 300},
			-1,
		},
		{
			"score tie broken by best height",
			&LeaderboardEntry{TotalScore: 300, BestHeight: 250},
			&LeaderboardEntry{TotalScore: 300, BestHeight: 150},
			-1,
		},
		{
			"full tie broken by earlier account",
			&LeaderboardEntry{TotalScore: 300, BestHeight: 150, AccountCreatedAt: base},
			&LeaderboardEntry{TotalScore: 300, BestHeight: 150, AccountCreatedAt: base.Add(time.Hour)},
			-1,
		},
		{
			"identical entries are equal",
			&LeaderboardEntry{TotalScore: 300, BestHeight: 150, AccountCreatedAt: base},
			&LeaderboardEntry{TotalScore: 300, BestHeight: 150, AccountCreatedAt: base},
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompareEntries(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("CompareEntries = %d, want %d", got, tt.want)
			}
			if tt.want != 0 {
				if rev := CompareEntries(tt.b, tt.a); rev != -tt.want {
					t.Errorf("CompareEntries reversed = %d, want %d", rev, -tt.want)
				}
			}
		})
	}
}

func TestSortLeaderboard(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	entries := []*LeaderboardEntry{
		{AccountID: 1, TotalScore: 300, BestHeight: 150, AccountCreatedAt: base.Add(time.Hour)},
		{AccountID: 2, TotalScore: 150, BestHeight: 90, AccountCreatedAt: base},
		{AccountID: 3, TotalScore: 300, BestHeight: 250, AccountCreatedAt: base},
		{AccountID: 4, TotalScore: 300, BestHeight: 150, AccountCreatedAt: base},
	}

	SortLeaderboard(entries)

	wantOrder := []int64{3, 4, 1, 2}
	for i, want := range wantOrder {
		if entries[i].AccountID != want {
			t.Errorf("position %d: got account %d, want %d", i, entries[i].AccountID, want)
		}
	}
}

func TestProjectLeaderboardEntry(t *testing.T) {
	created := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	acc := &Account{
		ID:          7,
		ExternalID:  "ext-7",
		Username:    "jumper",
		FirstName:   "Ava",
		BestHeight:  420,
		TotalCoffee: 88,
		TotalScore:  508,
		CreatedAt:   created,
	}

	entry := ProjectLeaderboardEntry(acc)

	if entry.AccountID != 7 || entry.ExternalID != "ext-7" {
		t.Errorf("identity fields not projected: %+v", entry)
	}
	if entry.BestHeight != 420 || entry.TotalCoffee != 88 || entry.TotalScore != 508 {
		t.Errorf("ranking fields not projected: %+v", entry)
	}
	if !entry.AccountCreatedAt.Equal(created) {
		t.Errorf("AccountCreatedAt = %v, want %v", entry.AccountCreatedAt, created)
	}
	if entry.LastUpdated.IsZero() {
		t.Error("LastUpdated should be set")
	}
}
