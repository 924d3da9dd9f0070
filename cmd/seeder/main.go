// cmd/seeder/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ammerola/finops-console/internal/bootstrap"
	"github.com/ammerola/finops-console/internal/core/services"
	"github.com/ammerola/finops-console/internal/pkg/logger"
)

// seederState records applied steps so reruns are incremental
type seederState struct {
	Applied    []string  `json:"applied"`
	LastUpdate time.Time `json:"last_update"`
}

func main() {
	var (
		planFile = flag.String("plan", "./resolutions.xlsx", "Workbook or YAML file listing recommendation status changes")
		store    = flag.String("store", "", "Resolution store to seed (postgres, sqlite); defaults to RESOLUTION_STORE")
		sqlite   = flag.String("sqlite", "", "SQLite file when -store=sqlite")
		state    = flag.String("state", "./.seed_state.json", "State file for tracking progress")
		logLevel = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		dryRun   = flag.Bool("dry-run", false, "Preview changes without modifying the store")
		force    = flag.Bool("force", false, "Reapply every step")
	)
	flag.Parse()

	log := logger.New(logger.Options{
		Level:       *logLevel,
		Format:      "json",
		ServiceName: "finops-seeder",
	})
	slog.SetDefault(log)

	ctx := context.Background()

	cfg, err := bootstrap.LoadConfig(ctx, log)
	if err != nil {
		log.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *store != "" {
		cfg.Store.Resolutions = *store
	}
	if *sqlite != "" {
		cfg.Store.SQLitePath = *sqlite
	}

	steps, err := LoadPlan(*planFile)
	if err != nil {
		log.Error("failed to load plan", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dataset, err := bootstrap.LoadDataset(ctx, cfg, log)
	if err != nil {
		log.Error("failed to load fixtures", slog.String("error", err.Error()))
		os.Exit(1)
	}

	resolutions, err := bootstrap.OpenResolutionStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open resolution store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer resolutions.Close()

	staged := newStagedStore(resolutions)
	recs := services.NewRecommendationService(dataset.Recommendations, staged, log)
	if err := recs.Restore(ctx); err != nil {
		log.Error("failed to restore resolutions", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var st seederState
	if !*force {
		if data, err := os.ReadFile(*state); err == nil {
			if err := json.Unmarshal(data, &st); err != nil {
				log.Warn("ignoring unreadable state file", slog.String("error", err.Error()))
			}
		}
	}
	done := make(map[string]bool, len(st.Applied))
	for _, k := range st.Applied {
		done[k] = true
	}

	res := Apply(ctx, recs, steps, done, *dryRun, log)

	if !*dryRun {
		written, err := staged.Commit(ctx)
		if err != nil {
			log.Error("plan not applied", slog.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info("plan committed", slog.Int("resolutions", written))

		st.Applied = st.Applied[:0]
		for k := range done {
			st.Applied = append(st.Applied, k)
		}
		st.LastUpdate = time.Now()
		data, _ := json.MarshalIndent(st, "", "  ")
		if err := os.WriteFile(*state, data, 0o644); err != nil {
			log.Warn("failed to write state file", slog.String("error", err.Error()))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("SEEDING SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Store:   %s\n", cfg.Store.Resolutions)
	fmt.Printf("Steps:   %d\n", len(steps))
	fmt.Printf("Applied: %d\n", len(res.Applied))
	fmt.Printf("Skipped: %d\n", len(res.Skipped))
	if len(res.Failed) > 0 {
		fmt.Printf("\nFailed steps (%d):\n", len(res.Failed))
		for _, k := range res.Failed {
			fmt.Printf("  - %s\n", k)
		}
	}

	log.Info("seed operation completed",
		slog.Int("applied", len(res.Applied)),
		slog.Int("skipped", len(res.Skipped)),
		slog.Int("failed", len(res.Failed)))

	if *dryRun {
		fmt.Println("\n[DRY RUN] No changes were made to the store")
	}
	if len(res.Failed) > 0 {
		os.Exit(1)
	}
}
