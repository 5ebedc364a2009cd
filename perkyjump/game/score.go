package game

import (
	"errors"
	"fmt"

	"github.com/perkygames/perky-jump/perkyjump"
	"github.com/perkygames/perky-jump/perkyjump/database/models"
)

// SessionInput is a finished-game submission before it has been accepted.
type SessionInput struct {
	ExternalID string
	Username   string
	FirstName  string

	Mode            models.GameMode
	Height          int64
	CoffeeCollected int64
	MaxCombo        int64
	Score           int64
	TimePlayed      int64
	CoinsEarned     int64
}

// ValidationError rejects a submission before any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid session: %s %s", e.Field, e.Reason)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks a submission against the configured gameplay bounds.
// Rejected sessions leave no trace in any store.
func Validate(in SessionInput, cfg perkyjump.GameConfig) error {
	if in.ExternalID == "" {
		return &ValidationError{Field: "external_id", Reason: "is required"}
	}
	if !in.Mode.Valid() {
		return &ValidationError{Field: "mode", Reason: fmt.Sprintf("%q is not a known game mode", in.Mode)}
	}
	if in.Height < 0 {
		return &ValidationError{Field: "height", Reason: "must not be negative"}
	}
	if in.Height > cfg.MaxHeight {
		return &ValidationError{Field: "height", Reason: fmt.Sprintf("exceeds maximum of %d", cfg.MaxHeight)}
	}
	if in.CoffeeCollected < 0 {
		return &ValidationError{Field: "coffee_collected", Reason: "must not be negative"}
	}
	if in.CoffeeCollected > cfg.MaxCoffeePerGame {
		return &ValidationError{Field: "coffee_collected", Reason: fmt.Sprintf("exceeds maximum of %d", cfg.MaxCoffeePerGame)}
	}
	if in.MaxCombo < 0 {
		return &ValidationError{Field: "max_combo", Reason: "must not be negative"}
	}
	if in.Score < 0 {
		return &ValidationError{Field: "score", Reason: "must not be negative"}
	}
	if in.TimePlayed < 0 {
		return &ValidationError{Field: "time_played", Reason: "must not be negative"}
	}
	if in.CoinsEarned < 0 {
		return &ValidationError{Field: "coins_earned", Reason: "must not be negative"}
	}
	return nil
}
