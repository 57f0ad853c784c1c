// Cloneplan is an HTTP service that turns a website URL into a clone planning
// document: it fetches and analyzes the page structure, generates narrative
// sections through AI backends and persists the result for polling clients.
//
// Configuration comes from an optional YAML file overridden by CLONEPLAN_*
// environment variables. See internal/config for details.
//
// Usage:
//
//	# Start with defaults (stub AI backends, sqlite in the working dir)
//	cloneplan
//
//	# Configure via environment
//	CLONEPLAN_SERVER_PORT=9000 CLONEPLAN_AI_API_KEY=sk-... cloneplan -config cloneplan.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cloneplan/internal/ai"
	"github.com/fyrsmithlabs/cloneplan/internal/config"
	"github.com/fyrsmithlabs/cloneplan/internal/export"
	"github.com/fyrsmithlabs/cloneplan/internal/fetcher"
	httpserver "github.com/fyrsmithlabs/cloneplan/internal/http"
	"github.com/fyrsmithlabs/cloneplan/internal/logging"
	"github.com/fyrsmithlabs/cloneplan/internal/metrics"
	"github.com/fyrsmithlabs/cloneplan/internal/pipeline"
	"github.com/fyrsmithlabs/cloneplan/internal/scheduler"
	"github.com/fyrsmithlabs/cloneplan/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	// A missing .env file is fine; explicit environment still applies.
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// run initializes all dependencies, starts the HTTP server and blocks until
// the context is cancelled, then shuts everything down in reverse order.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logging.Sync(logger)

	st, err := store.Open(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	m := metrics.New()

	registry, err := ai.NewRegistry(cfg.AI, usageRecorder{store: st, logger: logger}, logger)
	if err != nil {
		return err
	}

	f := fetcher.New(fetcher.Config{
		Timeout:       cfg.Fetcher.Timeout.Duration(),
		UserAgent:     cfg.Fetcher.UserAgent,
		RatePerSecond: cfg.Fetcher.RatePerSecond,
		Burst:         cfg.Fetcher.Burst,
	}, logger)

	runner, err := pipeline.New(st, f, registry, m, pipeline.Config{
		TextBackend:  cfg.AI.TextBackend,
		ImageBackend: cfg.AI.ImageBackend,
		IdeasBackend: cfg.AI.IdeasBackend,
	}, logger)
	if err != nil {
		return err
	}

	exports, err := export.New(st, cfg.Output.Dir, logger)
	if err != nil {
		return err
	}

	sched, err := scheduler.New(st, exports, scheduler.Config{
		Schedule:      cfg.Cleanup.Schedule,
		TaskRetention: cfg.Cleanup.TaskRetention.Duration(),
		FileMaxAge:    cfg.Output.TempMaxAge.Duration(),
	}, logger)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	server, err := httpserver.NewServer(runner, st, exports, sched, m, logger, &httpserver.Config{
		Host:             cfg.Server.Host,
		Port:             cfg.Server.Port,
		DefaultRetention: cfg.Cleanup.TaskRetention.Duration(),
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}

	// Let running pipelines finish their store writes before closing the DB.
	runner.Wait()

	return nil
}

// usageRecorder persists AI backend usage into the store.
type usageRecorder struct {
	store  *store.Store
	logger *zap.Logger
}

func (r usageRecorder) Record(ctx context.Context, usage ai.Usage) {
	err := r.store.RecordUsage(ctx, &store.APIUsage{
		APIType:   usage.APIType,
		Endpoint:  usage.Endpoint,
		TokensIn:  usage.TokensIn,
		TokensOut: usage.TokensOut,
		TaskID:    usage.TaskID,
	})
	if err != nil {
		r.logger.Warn("failed to record api usage", zap.Error(err))
	}
}
