package db

import (
	"context"

	"github.com/jakechorley/evs-dispatch/pkg/core/model"
)

// TaskFilter narrows a pending task fetch. Empty fields match everything.
type TaskFilter struct {
	Location string
	Category model.Category
	Priority model.Priority
}

// TaskStore supplies pending tasks to the planner
type TaskStore interface {
	FetchPending(ctx context.Context, filter TaskFilter) ([]model.Task, error)
}

// ResourceStore supplies resources to the planner. An empty shift matches every shift.
type ResourceStore interface {
	FetchAvailable(ctx context.Context, shift string) ([]model.Resource, error)
}

// ActivityLog is the best-effort audit sink for planning runs
type ActivityLog interface {
	Append(ctx context.Context, record ActivityRecord) error
}

// ActivityReader lists recorded planning runs, newest first
type ActivityReader interface {
	RecentActivity(ctx context.Context, limit int) ([]ActivityRecord, error)
}

// TaskWriter defines the write operations used by the caller-side services.
// The planner never writes.
type TaskWriter interface {
	GetTask(ctx context.Context, taskID string) (*model.Task, error)
	InsertTasks(ctx context.Context, tasks []model.Task) error

	// ApplyAssignment marks the task assigned to the resource and increments the
	// resource's task count in one transaction. It returns ErrConflict when the task
	// version no longer matches or the task is not pending.
	ApplyAssignment(ctx context.Context, taskID, resourceID string, version int) error

	// TransitionTask moves the task from one status to another. When the task leaves a
	// status that holds a resource for one that does not, the resource's task count is
	// decremented in the same transaction.
	TransitionTask(ctx context.Context, taskID string, from, to model.TaskStatus, version int) error
}

// ResourceWriter defines resource write operations
type ResourceWriter interface {
	InsertResources(ctx context.Context, resources []model.Resource) error
}

// Store is the full set of operations a storage backend provides.
// It includes reading back the activity log.
// postgres.DB, sqlite.DB and fixtures.MemoryStore all implement it.
type Store interface {
	TaskStore
	ResourceStore
	ActivityLog
	ActivityReader
	TaskWriter
	ResourceWriter
}
