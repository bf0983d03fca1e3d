package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jakechorley/evs-dispatch/pkg/core/model"
	"github.com/jakechorley/evs-dispatch/pkg/db"
)

const taskColumns = `id, location, category, priority, description, hazard_required, occupied,
	scheduled_time, estimated_duration_minutes, status, COALESCE(assigned_resource_id, ''), created_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (model.Task, error) {
	var t model.Task
	var category, priority, status, createdAt string
	var duration sql.NullInt64
	err := row.Scan(&t.ID, &t.Location, &category, &priority, &t.Description, &t.HazardRequired, &t.Occupied,
		&t.ScheduledTime, &duration, &status, &t.AssignedResourceID, &createdAt, &t.Version)
	if err != nil {
		return t, err
	}

	t.Category = model.Category(category)
	t.Priority = model.Priority(priority)
	t.Status = model.TaskStatus(status)
	if duration.Valid {
		minutes := int(duration.Int64)
		t.EstimatedDurationMinutes = &minutes
	}
	if t.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return t, fmt.Errorf("parsing created_at of task %s: %w", t.ID, err)
	}
	return t, nil
}

// FetchPending returns pending tasks matching the filter, oldest first
func (d *DB) FetchPending(ctx context.Context, filter db.TaskFilter) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM task WHERE status = 'pending'`
	var args []any

	if filter.Location != "" {
		query += ` AND lower(location) = lower(?)`
		args = append(args, filter.Location)
	}
	if filter.Category != "" {
		query += ` AND lower(category) = lower(?)`
		args = append(args, string(filter.Category))
	}
	if filter.Priority != "" {
		forms := model.StoredForms(filter.Priority)
		query += ` AND lower(priority) IN (?` + strings.Repeat(", ?", len(forms)-1) + `)`
		for _, f := range forms {
			args = append(args, f)
		}
	}
	query += ` ORDER BY created_at, id`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying pending tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

// GetTask returns a task by id
func (d *DB) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM task WHERE id = ?`, taskID)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", taskID, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting task: %w", err)
	}
	return &task, nil
}

// InsertTasks inserts or replaces tasks in one transaction
func (d *DB) InsertTasks(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	return d.withinTx(ctx, func(tx *sql.Tx) error {
		for _, t := range tasks {
			status := t.Status
			if status == "" {
				status = model.StatusPending
			}
			var duration sql.NullInt64
			if t.EstimatedDurationMinutes != nil {
				duration = sql.NullInt64{Int64: int64(*t.EstimatedDurationMinutes), Valid: true}
			}
			var assigned sql.NullString
			if t.AssignedResourceID != "" {
				assigned = sql.NullString{String: t.AssignedResourceID, Valid: true}
			}

			_, err := tx.ExecContext(ctx, `
				INSERT INTO task (id, location, category, priority, description, hazard_required, occupied,
					scheduled_time, estimated_duration_minutes, status, assigned_resource_id, created_at, version)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET
					location = excluded.location,
					category = excluded.category,
					priority = excluded.priority,
					description = excluded.description,
					hazard_required = excluded.hazard_required,
					occupied = excluded.occupied,
					scheduled_time = excluded.scheduled_time,
					estimated_duration_minutes = excluded.estimated_duration_minutes,
					status = excluded.status,
					assigned_resource_id = excluded.assigned_resource_id,
					version = task.version + 1
			`, t.ID, t.Location, string(t.Category), strings.ToLower(string(t.Priority)), t.Description,
				t.HazardRequired, t.Occupied, t.ScheduledTime, duration, string(status), assigned,
				t.CreatedAt.UTC().Format(timeLayout), t.Version)
			if err != nil {
				return fmt.Errorf("inserting task %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

// ApplyAssignment assigns a pending task and increments the resource's task count
// in one transaction, guarded by the task version
func (d *DB) ApplyAssignment(ctx context.Context, taskID, resourceID string, version int) error {
	return d.withinTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE resource SET current_task_count = current_task_count + 1 WHERE id = ?
		`, resourceID)
		if err != nil {
			return fmt.Errorf("updating resource load: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("resource %s: %w", resourceID, db.ErrNotFound)
		}

		res, err = tx.ExecContext(ctx, `
			UPDATE task
			SET status = 'assigned', assigned_resource_id = ?, version = version + 1
			WHERE id = ? AND version = ? AND status = 'pending'
		`, resourceID, taskID, version)
		if err != nil {
			return fmt.Errorf("assigning task: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return missingOrConflict(ctx, tx, taskID)
		}
		return nil
	})
}

// TransitionTask moves a task between statuses, releasing resource load when the task
// stops holding its resource
func (d *DB) TransitionTask(ctx context.Context, taskID string, from, to model.TaskStatus, version int) error {
	return d.withinTx(ctx, func(tx *sql.Tx) error {
		var resourceID string
		err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(assigned_resource_id, '') FROM task WHERE id = ? AND status = ? AND version = ?
		`, taskID, string(from), version).Scan(&resourceID)
		if errors.Is(err, sql.ErrNoRows) {
			return missingOrConflict(ctx, tx, taskID)
		}
		if err != nil {
			return fmt.Errorf("loading task: %w", err)
		}

		var completedAt sql.NullString
		if to == model.StatusCompleted {
			completedAt = sql.NullString{String: d.clock().UTC().Format(timeLayout), Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE task
			SET status = ?, version = version + 1, completed_at = COALESCE(?, completed_at)
			WHERE id = ?
		`, string(to), completedAt, taskID)
		if err != nil {
			return fmt.Errorf("transitioning task: %w", err)
		}

		if from.HoldsResource() && !to.HoldsResource() && resourceID != "" {
			_, err := tx.ExecContext(ctx, `
				UPDATE resource SET current_task_count = MAX(current_task_count - 1, 0) WHERE id = ?
			`, resourceID)
			if err != nil {
				return fmt.Errorf("releasing resource load: %w", err)
			}
		}
		return nil
	})
}

func missingOrConflict(ctx context.Context, tx *sql.Tx, taskID string) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM task WHERE id = ?)`, taskID).Scan(&exists); err != nil {
		return fmt.Errorf("checking task: %w", err)
	}
	if !exists {
		return fmt.Errorf("task %s: %w", taskID, db.ErrNotFound)
	}
	return fmt.Errorf("task %s changed since it was read: %w", taskID, db.ErrConflict)
}
