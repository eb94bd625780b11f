package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/pcanham/gantry/internal/config"
	"github.com/pcanham/gantry/internal/index"
	"github.com/pcanham/gantry/internal/supervisor"
	"github.com/pcanham/gantry/internal/telemetry"
	"github.com/pcanham/gantry/internal/tracker"
	"github.com/pcanham/gantry/internal/vault"
)

// newLogger builds the process logger. Verbose lowers the level to
// debug; output goes to stderr so stdout stays clean for command
// results (and the MCP stdio transport).
func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openTracker loads config, opens the vault, runs a one-shot scan, and
// returns a ready tracker. One-shot CLI commands never start the
// watcher — they scan, act, and exit. The returned cleanup closes the
// telemetry emitter.
func openTracker(ctx context.Context) (*tracker.Tracker, config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, nil, fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(cfg)

	store, err := vault.Open(cfg.VaultRoot)
	if err != nil {
		return nil, cfg, nil, fmt.Errorf("opening vault at %s: %w", cfg.VaultRoot, err)
	}

	var emitter *telemetry.Emitter
	if cfg.Telemetry != "" {
		emitter, err = telemetry.NewEmitter(cfg.Telemetry)
		if err != nil {
			return nil, cfg, nil, fmt.Errorf("opening telemetry sink: %w", err)
		}
	}

	idx := index.New()
	sup := supervisor.New(store, idx, supervisor.Options{Emitter: emitter, Logger: logger})
	if err := sup.ScanVault(ctx); err != nil {
		emitter.Close()
		return nil, cfg, nil, fmt.Errorf("scanning vault: %w", err)
	}

	tr := tracker.New(store, idx, tracker.Options{Emitter: emitter, Logger: logger})
	cleanup := func() { emitter.Close() }
	return tr, cfg, cleanup, nil
}
