// Praxis - Internship placement engine.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-finance/praxis/internal/api"
	"github.com/opensource-finance/praxis/internal/bus"
	"github.com/opensource-finance/praxis/internal/cache"
	"github.com/opensource-finance/praxis/internal/policy"
	"github.com/opensource-finance/praxis/internal/repository"
	"github.com/opensource-finance/praxis/internal/stats"
	"github.com/opensource-finance/praxis/internal/worker"
	"github.com/opensource-finance/praxis/internal/workflow"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("PRAXIS_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting praxis",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	statsSvc := stats.NewService(repo, cacheImpl, cfg.Cache.StatisticsTTL)

	// Policies are compiled per tenant on first use; configure them via POST /policies.
	registry, err := policy.NewRegistry(repo.ListPolicies, cfg.Policy.MaxWorkers)
	if err != nil {
		slog.Error("failed to initialize policy registry", "error", err)
		os.Exit(1)
	}
	defer registry.Close()

	assessor := policy.NewAssessor(cfg.Policy.RiskThreshold)
	slog.Info("policy engine initialized", "threshold", assessor.Threshold)

	flow := workflow.New(repo, busImpl, statsSvc, registry, assessor)

	var bg *worker.Worker
	if len(cfg.Worker.Tenants) > 0 {
		bg = worker.NewWorker(busImpl, statsSvc, flow, cacheImpl)
		if err := bg.Start(worker.Config{
			TenantIDs:     cfg.Worker.Tenants,
			SweepInterval: cfg.Worker.ExpirySweepInterval,
		}); err != nil {
			slog.Error("failed to start worker", "error", err)
		}
	} else {
		slog.Info("no tenants configured - worker disabled (set PRAXIS_TENANTS)")
	}

	srv := api.NewServer(cfg.Server, api.Deps{
		Repo:     repo,
		Cache:    cacheImpl,
		Bus:      busImpl,
		Workflow: flow,
		Stats:    statsSvc,
		Version:  Version,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("praxis is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)
	printBanner(cfg.Server.Host, cfg.Server.Port, string(cfg.Tier))

	<-ctx.Done()
	slog.Info("shutting down...")

	if bg != nil {
		if err := bg.Stop(); err != nil {
			slog.Error("failed to stop worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("praxis shutdown complete")
}

func printBanner(host string, port int, tier string) {
	fmt.Println()
	fmt.Println("  PRAXIS - internship placement engine")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  Tier:     %s\n", tier)
	fmt.Printf("  Server:   http://%s:%d\n", host, port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /batches                      - Create a batch")
	fmt.Println("    POST /internships                  - Create an internship")
	fmt.Println("    POST /internships/{id}/assign      - Assign student and company")
	fmt.Println("    POST /internships/{id}/assessment  - Run placement policies")
	fmt.Println("    POST /contracts                    - Draft a contract")
	fmt.Println("    POST /contracts/{id}/sign          - Sign as a party")
	fmt.Println("    POST /evaluations                  - Open an evaluation")
	fmt.Println("    POST /evaluations/{id}/scores      - Score criteria")
	fmt.Println("    GET  /batches/{id}/statistics      - Cohort statistics")
	fmt.Println("    POST /policies                     - Create a placement policy")
	fmt.Println("    GET  /health                       - Health check")
	fmt.Println()
}
