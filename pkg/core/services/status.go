package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/evs-dispatch/pkg/core/model"
	"github.com/jakechorley/evs-dispatch/pkg/db"
)

// UpdateTaskStatus applies a lifecycle event (start, complete, cancel) to a task.
// Assignment goes through ApplyAssignment because it needs a resource.
func UpdateTaskStatus(ctx context.Context, store db.TaskWriter, logger *zap.Logger, taskID, event string) (*model.Task, error) {
	if event == model.EventAssign {
		return nil, fmt.Errorf("use ApplyAssignment to assign task %s", taskID)
	}

	task, err := store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}

	next, err := model.TransitionStatus(task.ID, task.Status, event)
	if err != nil {
		return nil, err
	}

	logger.Debug("Transitioning task",
		zap.String("task_id", taskID),
		zap.String("from", string(task.Status)),
		zap.String("to", string(next)))

	if err := store.TransitionTask(ctx, task.ID, task.Status, next, task.Version); err != nil {
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}

	updated, err := store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload task: %w", err)
	}

	logger.Info("Task status updated", zap.String("task_id", taskID), zap.String("status", string(updated.Status)))
	return updated, nil
}
