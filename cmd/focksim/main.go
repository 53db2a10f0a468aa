package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openphotonics/focksim/internal/config"
	"github.com/openphotonics/focksim/internal/database"
	"github.com/openphotonics/focksim/internal/results"
	"github.com/openphotonics/focksim/internal/scheduler"
	"github.com/openphotonics/focksim/internal/server"
	"github.com/openphotonics/focksim/internal/sweep"
	"github.com/openphotonics/focksim/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting focksim")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := results.InitSchema(db.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize schema")
	}

	repo := results.NewRepository(db.Conn(), log)

	// Record the run
	runID := uuid.New().String()
	run := &results.Run{
		ID:            runID,
		Overlaps:      formatOverlaps(cfg.Overlaps),
		ScenarioLower: cfg.ScenarioLower,
		ScenarioUpper: cfg.ScenarioUpper,
		Workers:       cfg.Workers,
	}
	if err := repo.CreateRun(run); err != nil {
		log.Fatal().Err(err).Msg("Failed to record run")
	}

	// Build the sweep
	scenarios := sweep.Enumerate(cfg.ScenarioLower, cfg.ScenarioUpper)
	if cfg.Shuffle {
		sweep.Shuffle(scenarios, cfg.ShuffleSeed)
	}

	runner := sweep.NewRunner(sweep.Config{
		Log:         log,
		Sink:        repo,
		Workers:     cfg.Workers,
		Overlaps:    cfg.Overlaps,
		AngleErrors: cfg.AngleErrors,
		Tolerance:   cfg.Tolerance,
	})

	// Initialize scheduler
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	// Register background jobs
	if err := registerJobs(sched, log, runner, repo, runID); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		Repo:    repo,
		Runner:  runner,
		RunID:   runID,
		DevMode: cfg.DevMode,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	log.Info().
		Int("port", cfg.Port).
		Str("run_id", runID).
		Int("scenarios", len(scenarios)).
		Int("workers", cfg.Workers).
		Msg("Sweep starting")

	// Cancel the sweep on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	status := results.StatusFinished
	if err := runner.Run(ctx, runID, scenarios); err != nil {
		status = results.StatusFailed
		log.Error().Err(err).Msg("Sweep aborted")
	}
	if err := repo.FinishRun(runID, status); err != nil {
		log.Error().Err(err).Msg("Failed to finalize run")
	}

	if summary, err := repo.Summary(runID); err == nil && summary.Rows > 0 {
		log.Info().
			Int("scenarios", summary.Scenarios).
			Float64("mean_fidelity", summary.MeanFidelity).
			Float64("total_success", summary.TotalSuccess).
			Msg("Sweep finished")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Stopped")
}

func registerJobs(sched *scheduler.Scheduler, log zerolog.Logger, runner *sweep.Runner, repo *results.Repository, runID string) error {
	if err := sched.AddJob("@every 30s", scheduler.NewProgressJob(log, runner, runID)); err != nil {
		return err
	}
	return sched.AddJob("@every 10m", scheduler.NewCheckpointJob(log, repo, runID))
}

func formatOverlaps(overlaps []float64) string {
	parts := make([]string, len(overlaps))
	for i, o := range overlaps {
		parts[i] = fmt.Sprintf("%g", o)
	}
	return strings.Join(parts, "|")
}
