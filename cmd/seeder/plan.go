// cmd/seeder/plan.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tealeg/xlsx/v3"
	"gopkg.in/yaml.v3"

	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
)

// Action is a status change applied to one recommendation
type Action string

const (
	ActionResolve Action = "resolve"
	ActionDismiss Action = "dismiss"
	ActionReopen  Action = "reopen"
)

// Step is one row of a seed plan
type Step struct {
	RecommendationID string `yaml:"id"`
	Action           Action `yaml:"action"`
}

func (s Step) key() string {
	return s.RecommendationID + ":" + string(s.Action)
}

// LoadPlan reads a seed plan from an .xlsx workbook or a .yaml file
func LoadPlan(path string) ([]Step, error) {
	var (
		steps []Step
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		steps, err = loadWorkbook(path)
	case ".yaml", ".yml":
		steps, err = loadYAML(path)
	default:
		return nil, fmt.Errorf("unsupported plan file %q", path)
	}
	if err != nil {
		return nil, err
	}

	for i, s := range steps {
		switch s.Action {
		case ActionResolve, ActionDismiss, ActionReopen:
		default:
			return nil, fmt.Errorf("plan row %d: unknown action %q", i+1, s.Action)
		}
		if s.RecommendationID == "" {
			return nil, fmt.Errorf("plan row %d: missing recommendation id", i+1)
		}
	}
	return steps, nil
}

func loadYAML(path string) ([]Step, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	var steps []Step
	if err := yaml.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}
	for i := range steps {
		steps[i].RecommendationID = strings.TrimSpace(steps[i].RecommendationID)
		steps[i].Action = Action(strings.ToLower(strings.TrimSpace(string(steps[i].Action))))
	}
	return steps, nil
}

// loadWorkbook reads the first sheet: column A is the recommendation id,
// column B the action. The first row is a header.
func loadWorkbook(path string) ([]Step, error) {
	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plan workbook: %w", err)
	}
	if len(file.Sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in plan workbook")
	}

	var steps []Step
	rowIdx := 0
	err = file.Sheets[0].ForEachRow(func(r *xlsx.Row) error {
		if rowIdx == 0 {
			rowIdx++
			return nil
		}
		rowIdx++

		get := func(i int) string {
			c := r.GetCell(i)
			if c == nil {
				return ""
			}
			return strings.TrimSpace(c.String())
		}

		id := get(0)
		if id == "" {
			return nil
		}
		steps = append(steps, Step{
			RecommendationID: id,
			Action:           Action(strings.ToLower(get(1))),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return steps, nil
}

// Result summarizes a seeding run
type Result struct {
	Applied []string
	Skipped []string
	Failed  []string
}

// Apply runs every step not already recorded in done. Steps whose target
// status is already set are skipped rather than failed.
func Apply(ctx context.Context, recs ports.RecommendationService, steps []Step, done map[string]bool, dryRun bool, logger *slog.Logger) Result {
	var res Result
	for _, step := range steps {
		if done[step.key()] {
			logger.InfoContext(ctx, "skipping already applied step",
				slog.String("recommendation_id", step.RecommendationID),
				slog.String("action", string(step.Action)))
			res.Skipped = append(res.Skipped, step.key())
			continue
		}

		if dryRun {
			fmt.Printf("DRY RUN: would %s %s\n", step.Action, step.RecommendationID)
			res.Applied = append(res.Applied, step.key())
			continue
		}

		var err error
		switch step.Action {
		case ActionResolve:
			_, err = recs.Resolve(ctx, step.RecommendationID)
		case ActionDismiss:
			_, err = recs.Dismiss(ctx, step.RecommendationID)
		case ActionReopen:
			_, err = recs.Reopen(ctx, step.RecommendationID)
		}

		switch {
		case err == nil:
			fmt.Printf("SUCCESS: %s %s\n", step.Action, step.RecommendationID)
			res.Applied = append(res.Applied, step.key())
			done[step.key()] = true
		case errors.Is(err, domain.ErrInvalidStatus):
			logger.InfoContext(ctx, "recommendation already in target state",
				slog.String("recommendation_id", step.RecommendationID),
				slog.String("action", string(step.Action)))
			res.Skipped = append(res.Skipped, step.key())
			done[step.key()] = true
		default:
			logger.ErrorContext(ctx, "failed to apply step",
				slog.String("recommendation_id", step.RecommendationID),
				slog.String("action", string(step.Action)),
				slog.String("error", err.Error()))
			fmt.Printf("ERROR: %s %s - %v\n", step.Action, step.RecommendationID, err)
			res.Failed = append(res.Failed, step.key())
		}
	}
	return res
}

// stagedStore holds the resolutions of a seeding run so the whole plan
// lands in the underlying store in one transaction
type stagedStore struct {
	ports.ResolutionStore

	mu      sync.Mutex
	pending []ports.Resolution
}

func newStagedStore(store ports.ResolutionStore) *stagedStore {
	return &stagedStore{ResolutionStore: store}
}

// Save stages r until Commit
func (s *stagedStore) Save(_ context.Context, r ports.Resolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, r)
	return nil
}

// Commit writes every staged resolution, or none when the store fails
func (s *stagedStore) Commit(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ResolutionStore.SaveAll(ctx, s.pending); err != nil {
		return 0, fmt.Errorf("failed to commit plan: %w", err)
	}
	n := len(s.pending)
	s.pending = nil
	return n, nil
}
