package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"intraday-accounting/internal/engine"
	"intraday-accounting/internal/engine/engineobs"
	"intraday-accounting/internal/interfaces"
	"intraday-accounting/internal/journal"
	"intraday-accounting/internal/logger"
	"intraday-accounting/internal/store"
	"intraday-accounting/internal/trace"
	"intraday-accounting/internal/tradelog"
)

// initializeSystem initializes logger and tracer
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// compressOldLogs compresses old tradelog files if retention is configured
func compressOldLogs(ctx context.Context) {
	if v := os.Getenv("TRADER_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if err := tradelog.CompressOlder(n); err != nil {
			logger.Warn(ctx, "Failed to compress old logs", "error", err)
		}
	}
}

// initializeAccounting builds the engine with its journal, rebuilds state
// from prior sessions, and wraps it with observability middleware.
func initializeAccounting(ctx context.Context, cfg *store.Config) (interfaces.Accounting, error) {
	var jrnl *journal.SQLiteJournal
	if cfg.Journal.Enabled {
		var err error
		jrnl, err = journal.NewSQLite(cfg.Journal.Path)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to open journal", err, "path", cfg.Journal.Path)
			return nil, err
		}
		logger.Info(ctx, "Journal opened", "path", cfg.Journal.Path, "session_id", jrnl.SessionID())
	} else {
		logger.Warn(ctx, "Journaling disabled - state will not survive restarts")
	}

	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode")
	}

	acct := engineobs.Wrap(engine.New(cfg, jrnl))

	// Lots opened in prior sessions must come back before new fills are
	// booked, or today's exits would open phantom reversals.
	if err := acct.Rebuild(ctx); err != nil {
		logger.ErrorWithErr(ctx, "Failed to rebuild state from journal", err)
		return nil, err
	}
	return acct, nil
}
