package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/evs-dispatch/pkg/core/model"
	"github.com/jakechorley/evs-dispatch/pkg/fixtures"
)

// ImportStore defines the writes needed to import fixtures
type ImportStore interface {
	InsertTasks(ctx context.Context, tasks []model.Task) error
	InsertResources(ctx context.Context, resources []model.Resource) error
}

// ImportResult reports how many records were imported
type ImportResult struct {
	Tasks     int
	Resources int
}

// ImportFixtures loads a fixture file and inserts its resources then its tasks
func ImportFixtures(ctx context.Context, store ImportStore, logger *zap.Logger, path string, now time.Time) (*ImportResult, error) {
	logger.Debug("Loading fixture file", zap.String("path", path))

	fixture, err := fixtures.Load(path, now)
	if err != nil {
		return nil, err
	}

	if len(fixture.Resources) > 0 {
		if err := store.InsertResources(ctx, fixture.Resources); err != nil {
			return nil, fmt.Errorf("failed to insert resources: %w", err)
		}
	}
	if len(fixture.Tasks) > 0 {
		if err := store.InsertTasks(ctx, fixture.Tasks); err != nil {
			return nil, fmt.Errorf("failed to insert tasks: %w", err)
		}
	}

	logger.Info("Fixtures imported",
		zap.Int("tasks", len(fixture.Tasks)),
		zap.Int("resources", len(fixture.Resources)))

	return &ImportResult{Tasks: len(fixture.Tasks), Resources: len(fixture.Resources)}, nil
}
