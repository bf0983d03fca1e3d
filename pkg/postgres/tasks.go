package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/evs-dispatch/pkg/core/model"
	"github.com/jakechorley/evs-dispatch/pkg/db"
)

const taskColumns = `id, location, category, priority, description, hazard_required, occupied,
	scheduled_time, estimated_duration_minutes, status, COALESCE(assigned_resource_id, ''), created_at, version`

func scanTask(row pgx.Row) (model.Task, error) {
	var t model.Task
	var status string
	err := row.Scan(&t.ID, &t.Location, &t.Category, &t.Priority, &t.Description, &t.HazardRequired, &t.Occupied,
		&t.ScheduledTime, &t.EstimatedDurationMinutes, &status, &t.AssignedResourceID, &t.CreatedAt, &t.Version)
	if err != nil {
		return t, err
	}
	t.Status = model.TaskStatus(status)
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

// FetchPending returns pending tasks matching the filter, oldest first
func (d *DB) FetchPending(ctx context.Context, filter db.TaskFilter) ([]model.Task, error) {
	var priorities []string
	if filter.Priority != "" {
		priorities = model.StoredForms(filter.Priority)
	}

	rows, err := d.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM task
		WHERE status = 'pending'
			AND ($1 = '' OR lower(location) = lower($1))
			AND ($2 = '' OR lower(category) = lower($2))
			AND ($3::text[] IS NULL OR lower(priority) = ANY($3))
		ORDER BY created_at, id
	`, filter.Location, string(filter.Category), priorities)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending tasks: %w", err)
	}

	tasks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Task, error) {
		return scanTask(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	return tasks, nil
}

// GetTask returns a task by id
func (d *DB) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM task WHERE id = $1`, taskID)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", taskID, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

// InsertTasks inserts or replaces tasks in one transaction
func (d *DB) InsertTasks(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, t := range tasks {
		status := t.Status
		if status == "" {
			status = model.StatusPending
		}
		var assigned *string
		if t.AssignedResourceID != "" {
			assigned = &t.AssignedResourceID
		}
		batch.Queue(`
			INSERT INTO task (id, location, category, priority, description, hazard_required, occupied,
				scheduled_time, estimated_duration_minutes, status, assigned_resource_id, created_at, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO UPDATE SET
				location = EXCLUDED.location,
				category = EXCLUDED.category,
				priority = EXCLUDED.priority,
				description = EXCLUDED.description,
				hazard_required = EXCLUDED.hazard_required,
				occupied = EXCLUDED.occupied,
				scheduled_time = EXCLUDED.scheduled_time,
				estimated_duration_minutes = EXCLUDED.estimated_duration_minutes,
				status = EXCLUDED.status,
				assigned_resource_id = EXCLUDED.assigned_resource_id,
				version = task.version + 1
		`, t.ID, t.Location, string(t.Category), strings.ToLower(string(t.Priority)), t.Description, t.HazardRequired,
			t.Occupied, t.ScheduledTime, t.EstimatedDurationMinutes, string(status), assigned, t.CreatedAt.UTC(), t.Version)
	}

	return pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert tasks: %w", err)
		}
		return nil
	})
}

// ApplyAssignment assigns a pending task and increments the resource's task count
// in one transaction, guarded by the task version
func (d *DB) ApplyAssignment(ctx context.Context, taskID, resourceID string, version int) error {
	return pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE task
			SET status = 'assigned', assigned_resource_id = $2, version = version + 1
			WHERE id = $1 AND version = $3 AND status = 'pending'
		`, taskID, resourceID, version)
		if err != nil {
			return fmt.Errorf("failed to assign task: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return d.missingOrConflict(ctx, tx, taskID)
		}

		tag, err = tx.Exec(ctx, `
			UPDATE resource SET current_task_count = current_task_count + 1 WHERE id = $1
		`, resourceID)
		if err != nil {
			return fmt.Errorf("failed to update resource load: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("resource %s: %w", resourceID, db.ErrNotFound)
		}
		return nil
	})
}

// TransitionTask moves a task between statuses, releasing resource load when the task
// stops holding its resource
func (d *DB) TransitionTask(ctx context.Context, taskID string, from, to model.TaskStatus, version int) error {
	return pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		var resourceID string
		err := tx.QueryRow(ctx, `
			UPDATE task
			SET status = $3,
				version = version + 1,
				completed_at = CASE WHEN $3 = 'completed' THEN NOW() ELSE completed_at END
			WHERE id = $1 AND status = $2 AND version = $4
			RETURNING COALESCE(assigned_resource_id, '')
		`, taskID, string(from), string(to), version).Scan(&resourceID)
		if errors.Is(err, pgx.ErrNoRows) {
			return d.missingOrConflict(ctx, tx, taskID)
		}
		if err != nil {
			return fmt.Errorf("failed to transition task: %w", err)
		}

		if from.HoldsResource() && !to.HoldsResource() && resourceID != "" {
			_, err := tx.Exec(ctx, `
				UPDATE resource SET current_task_count = GREATEST(current_task_count - 1, 0) WHERE id = $1
			`, resourceID)
			if err != nil {
				return fmt.Errorf("failed to release resource load: %w", err)
			}
		}
		return nil
	})
}

// missingOrConflict distinguishes an absent task from a failed precondition
func (d *DB) missingOrConflict(ctx context.Context, tx pgx.Tx, taskID string) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM task WHERE id = $1)`, taskID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check task: %w", err)
	}
	if !exists {
		return fmt.Errorf("task %s: %w", taskID, db.ErrNotFound)
	}
	return fmt.Errorf("task %s changed since it was read: %w", taskID, db.ErrConflict)
}
