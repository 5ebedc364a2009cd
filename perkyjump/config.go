package perkyjump

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/perkygames/perky-jump/perkyjump/database"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	cfg := DefaultConfig()
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig returns a Config with the game defaults applied. Values in
// the TOML file override them.
func DefaultConfig() Config {
	return Config{
		Web: WebConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Game: GameConfig{
			MaxHeight:               10000,
			MaxCoffeePerGame:        200,
			LeaderboardSize:         100,
			LeaderboardCacheSeconds: 30,
			RateLimitPerMinute:      60,
		},
	}
}

type Config struct {
	Log  LogConfig         `toml:"log"`
	Web  WebConfig         `toml:"web"`
	DB   database.DBConfig `toml:"db"`
	Game GameConfig        `toml:"game"`
}

// LogConfig feeds the logger handler. Level decodes from the usual slog
// names ("debug", "info", "warn", "error") and defaults to info.
type LogConfig struct {
	Level slog.Level `toml:"level"`
}

type WebConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	AllowOrigins string `toml:"allow_origins"`
}

type GameConfig struct {
	// MaxHeight and MaxCoffeePerGame bound session submissions; anything
	// above is rejected as invalid before any write.
	MaxHeight        int64 `toml:"max_height"`
	MaxCoffeePerGame int64 `toml:"max_coffee_per_game"`

	// LeaderboardSize is the policy maximum for leaderboard reads.
	LeaderboardSize         int `toml:"leaderboard_size"`
	LeaderboardCacheSeconds int `toml:"leaderboard_cache_seconds"`

	RateLimitPerMinute int `toml:"rate_limit_per_minute"`
}
