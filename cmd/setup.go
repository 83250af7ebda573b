package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/noctivagous/todotracker/internal/config"
	"github.com/noctivagous/todotracker/internal/engine"
	"github.com/noctivagous/todotracker/internal/project"
	"github.com/noctivagous/todotracker/internal/store"
	"github.com/noctivagous/todotracker/internal/telemetry"
)

// resolveDB returns the database path for this invocation: explicit config
// or flag first, then project discovery from the working directory.
func resolveDB(cfg config.Config) string {
	if cfg.DBPath != "" {
		return cfg.DBPath
	}
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return project.ResolveDatabase(wd)
}

// openEngine opens the project store and wraps it in an engine. The caller
// must invoke the returned cleanup func when done.
func openEngine(ctx context.Context, cfg config.Config) (*engine.Engine, *store.Store, func(), error) {
	dbPath := resolveDB(cfg)

	st, err := store.Open(ctx, dbPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database %s: %w", dbPath, err)
	}
	if err := st.CheckCompatibility(ctx); err != nil {
		st.Close()
		return nil, nil, nil, err
	}

	var emitter *telemetry.Emitter
	if cfg.TelemetryPath != "" {
		emitter, err = telemetry.NewEmitter(cfg.TelemetryPath)
		if err != nil {
			st.Close()
			return nil, nil, nil, fmt.Errorf("opening telemetry stream: %w", err)
		}
	}

	cleanup := func() {
		if emitter != nil {
			emitter.Close()
		}
		st.Close()
	}
	return engine.New(st, emitter), st, cleanup, nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
