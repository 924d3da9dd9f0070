// cmd/finopsctl/app.go
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ammerola/finops-console/internal/adapters/db"
	"github.com/ammerola/finops-console/internal/adapters/fixtures"
	"github.com/ammerola/finops-console/internal/core/services"
	"github.com/ammerola/finops-console/internal/pkg/config"
	"github.com/ammerola/finops-console/internal/pkg/logger"
)

const memoryDB = ":memory:"

// app holds the global flags and the services every command runs against
type app struct {
	configPath string
	dbPath     string
	logLevel   string
	logPath    string
	queries    int
	seed       uint64

	cfg    config.ConsoleConfig
	logger  *slog.Logger
	logFile *os.File
	store  *db.SQLiteStore
	recs   *services.RecommendationService
	views  *services.ViewService
}

// open loads the console settings and fixtures and replays stored
// resolutions. Callers must close the app.
func (a *app) open(ctx context.Context, logOut io.Writer) error {
	if a.logPath != "" {
		f, err := os.OpenFile(a.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		a.logFile = f
	}
	a.logger = a.newLogger(logOut)

	cfg, err := config.LoadOrCreateConsole(a.configPath)
	if err != nil {
		a.close()
		return err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	} else if cfg.DBPath != memoryDB && !filepath.IsAbs(cfg.DBPath) {
		cfg.DBPath = filepath.Join(filepath.Dir(a.configPath), cfg.DBPath)
	}
	a.cfg = cfg

	data, err := fixtures.NewLoader(a.logger,
		fixtures.WithQueryCount(a.queries),
		fixtures.WithSeed(a.seed),
	).Load(ctx)
	if err != nil {
		a.close()
		return fmt.Errorf("failed to load fixtures: %w", err)
	}

	store, err := db.OpenSQLite(ctx, cfg.DBPath, a.logger)
	if err != nil {
		a.close()
		return err
	}
	a.store = store

	a.recs = services.NewRecommendationService(data.Recommendations, store, a.logger)
	if err := a.recs.Restore(ctx); err != nil {
		a.close()
		return err
	}
	a.views = services.NewViewService(data, a.recs, a.logger)

	a.logger.Debug("console ready",
		slog.String("config", a.configPath),
		slog.String("db", cfg.DBPath))
	return nil
}

// newLogger writes text records to out and, with --log-file, a JSON copy to the file
func (a *app) newLogger(out io.Writer) *slog.Logger {
	opts := logger.Options{
		Level:       a.logLevel,
		Format:      "text",
		Output:      out,
		ServiceName: "finopsctl",
	}
	if a.logFile != nil {
		opts.Tee = a.logFile
	}
	return logger.New(opts)
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close store", slog.String("error", err.Error()))
		}
		a.store = nil
	}
	if a.logFile != nil {
		a.logFile.Close()
		a.logFile = nil
	}
}
