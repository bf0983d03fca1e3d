package fixtures

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/evs-dispatch/pkg/core/model"
	"github.com/jakechorley/evs-dispatch/pkg/db"
)

func sampleStore(t *testing.T) *MemoryStore {
	t.Helper()
	fixture, err := Load("testdata/sample.json", loadTime)
	require.NoError(t, err)
	return NewMemoryStoreFromFixture(fixture, func() time.Time { return loadTime })
}

func TestMemoryStore_ImplementsStore(t *testing.T) {
	var _ db.Store = NewMemoryStore(nil)
}

func TestMemoryStore_FetchPending(t *testing.T) {
	store := sampleStore(t)
	ctx := context.Background()

	tasks, err := store.FetchPending(ctx, db.TaskFilter{})
	require.NoError(t, err)
	ids := make([]string, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	// Oldest first, completed tasks excluded
	assert.Equal(t, []string{"task-003", "task-001", "task-002"}, ids)

	tasks, err = store.FetchPending(ctx, db.TaskFilter{Location: "icu"})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "task-001", tasks[0].ID)

	// "critical" is stored as written but matches a High filter
	tasks, err = store.FetchPending(ctx, db.TaskFilter{Priority: model.PriorityHigh})
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	tasks, err = store.FetchPending(ctx, db.TaskFilter{Category: model.CategorySpillCleanup})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "task-002", tasks[0].ID)
}

func TestMemoryStore_FetchPendingHonoursContext(t *testing.T) {
	store := sampleStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.FetchPending(ctx, db.TaskFilter{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_FetchAvailableByShift(t *testing.T) {
	store := sampleStore(t)
	ctx := context.Background()

	all, err := store.FetchAvailable(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	day, err := store.FetchAvailable(ctx, "day")
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.Equal(t, "staff-01", day[0].ID)
	assert.Equal(t, "staff-02", day[1].ID)
}

func TestMemoryStore_ApplyAssignment(t *testing.T) {
	store := sampleStore(t)
	ctx := context.Background()

	require.NoError(t, store.ApplyAssignment(ctx, "task-002", "staff-02", 0))

	task, err := store.GetTask(ctx, "task-002")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, task.Status)
	assert.Equal(t, "staff-02", task.AssignedResourceID)
	assert.Equal(t, 1, task.Version)

	staff, err := store.GetResource(ctx, "staff-02")
	require.NoError(t, err)
	assert.Equal(t, 1, staff.CurrentTaskCount)

	// A second caller holding the stale version loses
	err = store.ApplyAssignment(ctx, "task-002", "staff-01", 0)
	assert.ErrorIs(t, err, db.ErrConflict)

	err = store.ApplyAssignment(ctx, "missing", "staff-01", 0)
	assert.ErrorIs(t, err, db.ErrNotFound)
	err = store.ApplyAssignment(ctx, "task-001", "missing", 0)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestMemoryStore_TransitionReleasesLoadAndFeedsDemand(t *testing.T) {
	store := sampleStore(t)
	ctx := context.Background()

	require.NoError(t, store.ApplyAssignment(ctx, "task-001", "staff-01", 0))
	require.NoError(t, store.TransitionTask(ctx, "task-001", model.StatusAssigned, model.StatusInProgress, 1))

	staff, err := store.GetResource(ctx, "staff-01")
	require.NoError(t, err)
	assert.Equal(t, 2, staff.CurrentTaskCount)

	require.NoError(t, store.TransitionTask(ctx, "task-001", model.StatusInProgress, model.StatusCompleted, 2))

	staff, err = store.GetResource(ctx, "staff-01")
	require.NoError(t, err)
	assert.Equal(t, 1, staff.CurrentTaskCount)

	err = store.TransitionTask(ctx, "task-001", model.StatusInProgress, model.StatusCancelled, 3)
	assert.ErrorIs(t, err, db.ErrConflict)

	demand, err := store.DailyDemand(ctx, loadTime.AddDate(0, 0, -2), loadTime.Add(time.Minute))
	require.NoError(t, err)
	assert.InDelta(t, 1/(2+1.0/1440), demand[model.CategoryTerminalCleaning], 1e-9)
}

func TestMemoryStore_DailyDemandRejectsEmptyWindow(t *testing.T) {
	store := NewMemoryStore(nil)
	_, err := store.DailyDemand(context.Background(), loadTime, loadTime)
	assert.Error(t, err)
}

func TestMemoryStore_Activity(t *testing.T) {
	store := NewMemoryStore(nil)
	require.NoError(t, store.Append(context.Background(), db.ActivityRecord{ID: "a1", Agent: "assignment_planner"}))

	require.NoError(t, store.Append(context.Background(), db.ActivityRecord{ID: "a2", Agent: "assignment_planner"}))

	records := store.Activity()
	require.Len(t, records, 2)
	assert.Equal(t, "a1", records[0].ID)

	recent, err := store.RecentActivity(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "a2", recent[0].ID)

	recent, err = store.RecentActivity(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}
