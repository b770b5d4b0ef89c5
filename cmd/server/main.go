// Package main is the entry point for the qfolio QAOA portfolio selection service.
// It exposes an HTTP API that solves cardinality-constrained portfolio selection
// problems with a classical statevector simulation of the Quantum Approximate
// Optimization Algorithm, and keeps a history of past runs in SQLite.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/qfolio/internal/config"
	"github.com/aristath/qfolio/internal/database"
	"github.com/aristath/qfolio/internal/modules/qaoa"
	qaoahandlers "github.com/aristath/qfolio/internal/modules/qaoa/handlers"
	"github.com/aristath/qfolio/internal/modules/runs"
	runshandlers "github.com/aristath/qfolio/internal/modules/runs/handlers"
	"github.com/aristath/qfolio/internal/scheduler"
	"github.com/aristath/qfolio/internal/server"
	"github.com/aristath/qfolio/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting qfolio")

	// Runs database keeps the optimization history.
	runsDB, err := database.New(database.Config{
		Path: filepath.Join(cfg.DataDir, "runs.db"),
		Name: "runs",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open runs database")
	}
	defer runsDB.Close()

	runRepo := runs.NewRepository(runsDB.Conn(), log)
	if err := runRepo.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize runs schema")
	}

	// QAOA service with resource limits from config.
	limits := qaoa.Limits{
		MaxQubits:   cfg.MaxQubits,
		MemoryCheck: cfg.MemoryCheck,
	}
	service := qaoa.NewService(limits, log)

	qaoaHandler := qaoahandlers.NewHandler(service, runRepo, cfg.SearchWorkers, log)
	runsHandler := runshandlers.NewHandler(runRepo, log)

	// Background retention of old runs.
	sched := scheduler.New(log)
	retention := runs.NewRetentionJob(runRepo, time.Duration(cfg.RunRetentionDays)*24*time.Hour, log)
	if err := sched.AddJob("@daily", retention); err != nil {
		log.Fatal().Err(err).Msg("Failed to register retention job")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:         log,
		Config:      cfg,
		Port:        cfg.Port,
		DevMode:     cfg.DevMode,
		QAOAHandler: qaoaHandler,
		RunsHandler: runsHandler,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for shutdown signal or server failure.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatal().Err(err).Msg("HTTP server failed")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("qfolio stopped")
}
