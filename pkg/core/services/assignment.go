package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/evs-dispatch/pkg/core/model"
	"github.com/jakechorley/evs-dispatch/pkg/core/planner"
	"github.com/jakechorley/evs-dispatch/pkg/db"
)

// ApplyAssignment persists one recommended assignment. The task must still be pending
// at the version that was read; a concurrent change yields db.ErrConflict.
func ApplyAssignment(ctx context.Context, store db.TaskWriter, logger *zap.Logger, taskID, resourceID string) (*model.Task, error) {
	if taskID == "" || resourceID == "" {
		return nil, fmt.Errorf("task id and resource id are required")
	}

	logger.Debug("Applying assignment", zap.String("task_id", taskID), zap.String("resource_id", resourceID))

	task, err := store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}

	if _, err := model.TransitionStatus(task.ID, task.Status, model.EventAssign); err != nil {
		return nil, fmt.Errorf("cannot assign task: %w", err)
	}

	if err := store.ApplyAssignment(ctx, task.ID, resourceID, task.Version); err != nil {
		return nil, fmt.Errorf("failed to apply assignment: %w", err)
	}

	updated, err := store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload task: %w", err)
	}

	logger.Info("Assignment applied",
		zap.String("task_id", taskID),
		zap.String("resource_id", resourceID),
		zap.Int("version", updated.Version))

	return updated, nil
}

// ApplyPlanResult summarises a bulk apply of a plan
type ApplyPlanResult struct {
	Applied []string

	// Conflicts lists tasks that changed after the plan was computed
	Conflicts []string

	// Skipped lists tasks the plan could not match to a resource
	Skipped []string
}

// ApplyPlan persists every matched assignment of a plan in plan order.
// Conflicting tasks are reported and skipped; any other store error aborts.
func ApplyPlan(ctx context.Context, store db.TaskWriter, logger *zap.Logger, plan *planner.Plan) (*ApplyPlanResult, error) {
	if plan == nil {
		return nil, fmt.Errorf("plan is required")
	}

	result := &ApplyPlanResult{}
	for _, entry := range plan.Entries {
		if !entry.Assignment.HasResource() {
			result.Skipped = append(result.Skipped, entry.Task.ID)
			continue
		}

		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("apply interrupted: %w", err)
		}

		// The plan carries the version each task was read at
		err := store.ApplyAssignment(ctx, entry.Task.ID, entry.Assignment.ResourceID, entry.Task.Version)
		switch {
		case err == nil:
			result.Applied = append(result.Applied, entry.Task.ID)
		case errors.Is(err, db.ErrConflict):
			logger.Warn("Task changed since planning, skipping",
				zap.String("task_id", entry.Task.ID),
				zap.Error(err))
			result.Conflicts = append(result.Conflicts, entry.Task.ID)
		default:
			return result, fmt.Errorf("failed to apply assignment for task %s: %w", entry.Task.ID, err)
		}
	}

	logger.Info("Plan applied",
		zap.String("run_id", plan.RunID),
		zap.Int("applied", len(result.Applied)),
		zap.Int("conflicts", len(result.Conflicts)),
		zap.Int("skipped", len(result.Skipped)))

	return result, nil
}
