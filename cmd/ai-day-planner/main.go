package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"ai-day-planner/internal/config"
	"ai-day-planner/internal/console"
	"ai-day-planner/internal/database"
	"ai-day-planner/internal/export"
	"ai-day-planner/internal/itinerary"
	"ai-day-planner/internal/llm"
	"ai-day-planner/internal/metrics"
	"ai-day-planner/internal/render"
	"ai-day-planner/internal/wizard"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "plan":
		err = runPlan(ctx, cfg, logger)
	case "generate":
		err = runGenerate(ctx, cfg, logger, os.Args[2:])
	case "metrics":
		err = runMetrics(cfg)
	case "metrics-cleanup":
		err = runCleanup(cfg, os.Args[2:])
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: ai-day-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  plan               Plan a day interactively")
	fmt.Println("  generate           Plan a day from flags (see generate -h)")
	fmt.Println("  metrics            Show token usage for the last 7 days")
	fmt.Println("  metrics-cleanup    Remove old metric records")
}

// newSession wires a wizard session that records usage in the metrics store.
func newSession(cfg *config.Config, logger *slog.Logger) (*wizard.Session, func(), error) {
	textGen, err := llm.NewTextGenerator(cfg)
	if err != nil {
		return nil, nil, err
	}
	client := itinerary.NewClient(textGen, itinerary.Options{
		Temperature:          cfg.Temperature,
		ItineraryMaxTokens:   cfg.ItineraryMaxTokens,
		ReplacementMaxTokens: cfg.ReplacementMaxTokens,
	})

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	store := metrics.NewStore(db)

	session := wizard.New(client, cfg.Credentials(),
		wizard.WithUsageRecorder(store),
		wizard.WithLogger(logger),
	)
	return session, func() {
		session.Close()
		store.Close()
	}, nil
}

func runPlan(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	session, closeFn, err := newSession(cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()
	return console.Run(ctx, session, cfg.CredentialLabel(), os.Stdin, os.Stdout)
}

func runGenerate(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	city := fs.String("city", "", "Destination city")
	date := fs.String("date", time.Now().Format("2006-01-02"), "Trip date (YYYY-MM-DD)")
	start := fs.String("start", "09:00", "Start of the day (HH:MM)")
	end := fs.String("end", "20:00", "End of the day (HH:MM)")
	interests := fs.String("interests", "museums,food", "Comma-separated interest ids")
	pace := fs.String("pace", string(itinerary.PaceModerate), "relaxed, moderate or packed")
	budget := fs.String("budget", string(itinerary.BudgetMid), "budget, mid or luxury")
	walking := fs.String("walking", string(itinerary.WalkingNormal), "limited, normal or athletic")
	view := fs.String("view", string(wizard.ViewTimeline), "timeline or list")
	asJSON := fs.Bool("json", false, "Print the itinerary as JSON")
	icsPath := fs.String("ics", "", "Also write the day to this .ics file")
	fs.Parse(args)

	session, closeFn, err := newSession(cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	tripDate, err := time.Parse("2006-01-02", *date)
	if err != nil {
		return fmt.Errorf("invalid -date %q: %w", *date, err)
	}

	steps := []func() error{
		func() error { _, err := session.Next(); return err },
		func() error { return session.SetCity(*city) },
		func() error { _, err := session.Next(); return err },
		func() error { return session.SetDate(tripDate) },
		func() error { return session.SetTimeWindow(*start, *end) },
		func() error { _, err := session.Next(); return err },
		func() error { return setEnum(itinerary.ParsePace, session.SetPace, *pace) },
		func() error { return setEnum(itinerary.ParseBudget, session.SetBudget, *budget) },
		func() error { return setEnum(itinerary.ParseWalking, session.SetWalking, *walking) },
		func() error { return session.SetViewMode(wizard.ViewMode(*view)) },
	}
	for _, id := range strings.Split(*interests, ",") {
		id := strings.TrimSpace(id)
		if id != "" {
			steps = append(steps, func() error { return session.ToggleInterest(id) })
		}
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	if err := session.Generate(ctx); err != nil {
		return err
	}
	state := session.Snapshot()

	if *icsPath != "" {
		cal, err := export.ICS(state.Prefs, state.Itinerary)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*icsPath, []byte(cal), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", *icsPath, err)
		}
		slog.Info("Calendar written", "path", *icsPath)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(export.SharedTrip{Prefs: state.Prefs, Itinerary: state.Itinerary})
	}
	if state.ViewMode == wizard.ViewList {
		fmt.Println(render.Plain.List(state))
	} else {
		fmt.Println(render.Plain.Timeline(state))
	}
	return nil
}

func setEnum[T any](parse func(string) (T, error), set func(T) error, raw string) error {
	v, err := parse(raw)
	if err != nil {
		return err
	}
	return set(v)
}

func runMetrics(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	store := metrics.NewStore(db)
	defer store.Close()

	usage, err := store.GetDailyUsage(7)
	if err != nil {
		return err
	}
	fmt.Println("Token usage (last 7 days)")
	if len(usage) == 0 {
		fmt.Println("  no data yet")
	}
	for _, d := range usage {
		fmt.Printf("  %s  prompt=%d completion=%d calls=%d failed=%d\n",
			d.Date, d.TotalPrompt, d.TotalCompletion, d.TotalExecution, d.Failed)
	}
	fmt.Println()
	fmt.Println(metrics.GetSysHealth(filepath.Dir(cfg.DatabasePath)))
	return nil
}

func runCleanup(cfg *config.Config, args []string) error {
	cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
	days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
	cleanupCmd.Parse(args)

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	store := metrics.NewStore(db)
	defer store.Close()

	affected, err := store.Cleanup(*days)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	fmt.Printf("Successfully removed %d old metric records.\n", affected)
	return nil
}
