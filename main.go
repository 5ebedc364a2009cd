package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/perkygames/perky-jump/perkyjump"
	"github.com/perkygames/perky-jump/perkyjump/database"
	"github.com/perkygames/perky-jump/perkyjump/database/repositories"
	"github.com/perkygames/perky-jump/perkyjump/game"
	"github.com/perkygames/perky-jump/perkyjump/logger"
	"github.com/perkygames/perky-jump/perkyjump/web/handlers"
	"github.com/perkygames/perky-jump/perkyjump/web/middleware"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := "config.toml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	// Initialize logger first; the configured level replaces the default
	// once the config file is read.
	slog.SetDefault(slog.New(logger.NewHandler("PerkyJump", slog.LevelInfo)))

	logger.LogSystem("Starting Perky Jump API",
		slog.String("version", version),
		slog.String("commit", commit))

	cfg, err := perkyjump.LoadConfig(configPath)
	if err != nil {
		logger.LogError("Failed to load config", err)
		os.Exit(1)
	}
	if cfg.Log.Level != slog.LevelInfo {
		slog.SetDefault(slog.New(logger.NewHandler("PerkyJump", cfg.Log.Level)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.LogSystem("Connecting to database...")
	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		logger.LogError("Failed to connect to database", err)
		os.Exit(1)
	}

	if err := db.InitializeSchema(ctx); err != nil {
		logger.LogError("Failed to initialize schema", err)
		os.Exit(1)
	}
	logger.LogSystem("Database connected successfully")

	// Initialize repositories
	accountRepo := repositories.NewAccountRepository(db.BunDB())
	sessionRepo := repositories.NewSessionRepository(db.BunDB())
	achievementRepo := repositories.NewAchievementRepository(db.BunDB())
	challengeRepo := repositories.NewChallengeRepository(db.BunDB())
	leaderboardRepo := repositories.NewLeaderboardRepository(db.BunDB())

	// Initialize game services
	ledger := game.NewLedger(achievementRepo)
	challenges := game.NewChallenges(challengeRepo)
	leaderboard := game.NewLeaderboard(
		leaderboardRepo,
		accountRepo,
		time.Duration(cfg.Game.LeaderboardCacheSeconds)*time.Second,
		cfg.Game.LeaderboardSize,
	)
	recorder := game.NewRecorder(cfg.Game, accountRepo, sessionRepo, ledger, challenges, leaderboard)
	stats := game.NewStats(accountRepo, sessionRepo, achievementRepo)

	// Initialize Fiber as API-only backend
	app := fiber.New(fiber.Config{
		AppName:      "Perky Jump API",
		ServerHeader: "PerkyJump",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(middleware.SecurityHeaders())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	allowOrigins := cfg.Web.AllowOrigins
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))
	app.Use(middleware.LoggingMiddleware())
	if cfg.Game.RateLimitPerMinute > 0 {
		app.Use(middleware.RateLimit(cfg.Game.RateLimitPerMinute, time.Minute))
	}

	webApp := &handlers.WebApp{
		Config:      cfg,
		DB:          db,
		Accounts:    accountRepo,
		Recorder:    recorder,
		Stats:       stats,
		Ledger:      ledger,
		Challenges:  challenges,
		Leaderboard: leaderboard,
		Version:     version,
		Commit:      commit,
	}

	setupRoutes(app, webApp)

	address := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	logger.LogSystem("Starting server", slog.String("address", address))

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := app.Listen(address); err != nil {
			logger.LogError("Failed to start server", err)
		}
	}()

	<-c
	logger.LogSystem("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.LogError("Server shutdown error", err)
	}

	db.Close()

	logger.LogSystem("Server shutdown complete")
}

// setupRoutes configures all application routes
func setupRoutes(app *fiber.App, webApp *handlers.WebApp) {
	app.Get("/health", handlers.HealthCheck(webApp))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Perky Jump API",
			"version": webApp.Version,
			"status":  "running",
		})
	})

	api := app.Group("/api")
	api.Post("/session", handlers.RecordSession(webApp))
	api.Get("/stats/:externalID", handlers.GetStats(webApp))
	api.Get("/leaderboard", handlers.GetLeaderboard(webApp))
	api.Post("/leaderboard/rebuild", handlers.RebuildLeaderboard(webApp))
	api.Post("/progress", handlers.SaveProgress(webApp))
	api.Get("/achievements/:externalID", handlers.GetAchievements(webApp))
	api.Post("/achievements/unlock", handlers.UnlockAchievement(webApp))
	api.Get("/challenge/:externalID", handlers.GetChallenge(webApp))
	api.Post("/challenge/progress", handlers.ChallengeProgress(webApp))

	app.Use(func(c *fiber.Ctx) error {
		slog.Warn("No route matched for request",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
		)
		return c.Status(404).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested endpoint does not exist",
		})
	})
}
