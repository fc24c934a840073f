package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ai-day-planner/internal/config"
	"ai-day-planner/internal/database"
	"ai-day-planner/internal/export"
	"ai-day-planner/internal/itinerary"
	"ai-day-planner/internal/llm"
	"ai-day-planner/internal/metrics"
	"ai-day-planner/internal/telegram"
	"ai-day-planner/internal/web"
	"ai-day-planner/internal/wizard"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.RequireTelegram(); err != nil {
		slog.Error("Telegram is not configured", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// 2. Initialize the model client
	textGen, err := llm.NewTextGenerator(cfg)
	if err != nil {
		slog.Error("Failed to create text generator", "error", err)
		os.Exit(1)
	}
	client := itinerary.NewClient(textGen, itinerary.Options{
		Temperature:          cfg.Temperature,
		ItineraryMaxTokens:   cfg.ItineraryMaxTokens,
		ReplacementMaxTokens: cfg.ReplacementMaxTokens,
	})

	// 3. Usage metrics
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	metricsStore := metrics.NewStore(db)
	defer metricsStore.Close()

	// 4. Sharing is optional
	share, err := export.NewShareCodec(cfg.ShareSecret, cfg.ShareTTL)
	if err != nil {
		slog.Warn("Share links disabled", "reason", err)
	}

	// 5. Sessions and bot
	sessions := telegram.NewSessionStore(cfg.SessionTTL, func() *wizard.Session {
		return wizard.New(client, cfg.Credentials(),
			wizard.WithUsageRecorder(metricsStore),
			wizard.WithLogger(logger),
		)
	})

	api, err := telegram.Connect(cfg)
	if err != nil {
		slog.Error("Failed to initialize Telegram Bot", "error", err)
		os.Exit(1)
	}
	bot := telegram.NewBot(cfg, api, sessions, metricsStore, share, logger)

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      web.NewServer(logger, bot, share, filepath.Dir(cfg.DatabasePath)).Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("Telegram Bot Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	// Closing the sessions cancels in-flight model calls.
	sessions.Close()
	bot.Wait()
	slog.Info("Server exiting")
}
