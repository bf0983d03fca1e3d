package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/evs-dispatch/pkg/core/model"
	"github.com/jakechorley/evs-dispatch/pkg/db"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := OpenDB(MemoryPath)
	require.NoError(t, err)
	database.clock = func() time.Time { return testNow }
	t.Cleanup(func() {
		database.Close()
	})
	return database
}

func seed(t *testing.T, database *DB) {
	t.Helper()
	ctx := context.Background()
	duration := 45

	require.NoError(t, database.InsertResources(ctx, []model.Resource{
		{ID: "r1", Name: "Ana", CertificationLevel: model.CertificationAdvanced, PerformanceRating: 4.5, Availability: model.AvailabilityAvailable, Shift: "day"},
		{ID: "r2", Name: "Ben", CertificationLevel: model.CertificationBasic, PerformanceRating: 3, CurrentTaskCount: 2, Availability: model.AvailabilityBusy, Shift: "Night"},
	}))
	require.NoError(t, database.InsertTasks(ctx, []model.Task{
		{ID: "t1", Location: "ICU", Category: model.CategoryTerminalCleaning, Priority: "High", HazardRequired: true,
			ScheduledTime: "2025-06-01T08:00:00", EstimatedDurationMinutes: &duration, CreatedAt: testNow.Add(-2 * time.Hour)},
		{ID: "t2", Location: "ER", Category: model.CategorySpillCleanup, Priority: "critical", Occupied: true, CreatedAt: testNow.Add(-time.Hour)},
		{ID: "t3", Location: "icu", Category: model.CategoryInspection, CreatedAt: testNow.Add(-3 * time.Hour)},
		{ID: "t4", Location: "ICU", Category: model.CategoryInspection, Status: model.StatusCompleted, CreatedAt: testNow.Add(-4 * time.Hour)},
	}))
}

func ids(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.ID
	}
	return out
}

func TestDB_ImplementsStore(t *testing.T) {
	var _ db.Store = newTestDB(t)
}

func TestOpenDB_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dispatch.db")

	database, err := OpenDB(path)
	require.NoError(t, err)
	require.NoError(t, database.InsertResources(context.Background(), []model.Resource{
		{ID: "r1", CertificationLevel: model.CertificationBasic, Availability: model.AvailabilityAvailable},
	}))
	require.NoError(t, database.Close())

	// Reopening keeps the data and tolerates the existing schema
	database, err = OpenDB(path)
	require.NoError(t, err)
	defer database.Close()

	resources, err := database.FetchAvailable(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, resources, 1)
}

func TestFetchPending_RoundTripAndOrder(t *testing.T) {
	database := newTestDB(t)
	seed(t, database)

	tasks, err := database.FetchPending(context.Background(), db.TaskFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"t3", "t1", "t2"}, ids(tasks))

	t1 := tasks[1]
	assert.Equal(t, "ICU", t1.Location)
	assert.Equal(t, model.CategoryTerminalCleaning, t1.Category)
	assert.Equal(t, model.Priority("high"), t1.Priority)
	assert.True(t, t1.HazardRequired)
	assert.False(t, t1.Occupied)
	assert.Equal(t, "2025-06-01T08:00:00", t1.ScheduledTime)
	require.NotNil(t, t1.EstimatedDurationMinutes)
	assert.Equal(t, 45, *t1.EstimatedDurationMinutes)
	assert.Equal(t, model.StatusPending, t1.Status)
	assert.Equal(t, testNow.Add(-2*time.Hour), t1.CreatedAt)

	assert.Nil(t, tasks[0].EstimatedDurationMinutes)
}

func TestFetchPending_Filters(t *testing.T) {
	database := newTestDB(t)
	seed(t, database)
	ctx := context.Background()

	tasks, err := database.FetchPending(ctx, db.TaskFilter{Location: "icu"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t3", "t1"}, ids(tasks))

	tasks, err = database.FetchPending(ctx, db.TaskFilter{Priority: model.PriorityHigh})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, ids(tasks))

	tasks, err = database.FetchPending(ctx, db.TaskFilter{Priority: model.PriorityMedium})
	require.NoError(t, err)
	assert.Equal(t, []string{"t3"}, ids(tasks))

	tasks, err = database.FetchPending(ctx, db.TaskFilter{Location: "ICU", Category: model.CategoryInspection})
	require.NoError(t, err)
	assert.Equal(t, []string{"t3"}, ids(tasks))

	tasks, err = database.FetchPending(ctx, db.TaskFilter{Location: "Roof"})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestFetchAvailable(t *testing.T) {
	database := newTestDB(t)
	seed(t, database)
	ctx := context.Background()

	all, err := database.FetchAvailable(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, model.CertificationAdvanced, all[0].CertificationLevel)
	assert.Equal(t, 4.5, all[0].PerformanceRating)
	assert.Equal(t, model.AvailabilityBusy, all[1].Availability)
	assert.Equal(t, 2, all[1].CurrentTaskCount)

	night, err := database.FetchAvailable(ctx, "night")
	require.NoError(t, err)
	require.Len(t, night, 1)
	assert.Equal(t, "r2", night[0].ID)
}

func TestApplyAssignment(t *testing.T) {
	database := newTestDB(t)
	seed(t, database)
	ctx := context.Background()

	require.NoError(t, database.ApplyAssignment(ctx, "t1", "r1", 0))

	task, err := database.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, task.Status)
	assert.Equal(t, "r1", task.AssignedResourceID)
	assert.Equal(t, 1, task.Version)

	resource, err := database.GetResource(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 1, resource.CurrentTaskCount)

	// Stale version: no change to the resource either
	err = database.ApplyAssignment(ctx, "t1", "r1", 0)
	assert.ErrorIs(t, err, db.ErrConflict)
	resource, err = database.GetResource(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 1, resource.CurrentTaskCount)

	assert.ErrorIs(t, database.ApplyAssignment(ctx, "missing", "r1", 0), db.ErrNotFound)
	assert.ErrorIs(t, database.ApplyAssignment(ctx, "t2", "missing", 0), db.ErrNotFound)

	_, err = database.GetTask(ctx, "missing")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestTransitionTask_ReleasesLoadAndRecordsDemand(t *testing.T) {
	database := newTestDB(t)
	seed(t, database)
	ctx := context.Background()

	require.NoError(t, database.ApplyAssignment(ctx, "t1", "r1", 0))
	require.NoError(t, database.TransitionTask(ctx, "t1", model.StatusAssigned, model.StatusInProgress, 1))
	require.NoError(t, database.TransitionTask(ctx, "t1", model.StatusInProgress, model.StatusCompleted, 2))

	resource, err := database.GetResource(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 0, resource.CurrentTaskCount)

	err = database.TransitionTask(ctx, "t1", model.StatusInProgress, model.StatusCancelled, 3)
	assert.ErrorIs(t, err, db.ErrConflict)

	demand, err := database.DailyDemand(ctx, testNow.AddDate(0, 0, -2), testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.InDelta(t, 1/(2+1.0/24), demand[model.CategoryTerminalCleaning], 1e-9)
	_, ok := demand[model.CategoryInspection]
	assert.False(t, ok, "imported completed tasks carry no completion time")
}

func TestCancelPendingTaskKeepsLoad(t *testing.T) {
	database := newTestDB(t)
	seed(t, database)
	ctx := context.Background()

	require.NoError(t, database.TransitionTask(ctx, "t2", model.StatusPending, model.StatusCancelled, 0))

	resource, err := database.GetResource(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, 2, resource.CurrentTaskCount)
}

func TestActivityLog(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, database.Append(ctx, db.ActivityRecord{
		ID:              "a1",
		Agent:           "assignment_planner",
		Action:          "plan",
		Timestamp:       testNow,
		Input:           json.RawMessage(`{"location":"ICU"}`),
		Output:          json.RawMessage(`{"total_tasks":3}`),
		Success:         true,
		ExecutionTimeMs: 12,
	}))
	require.NoError(t, database.Append(ctx, db.ActivityRecord{
		ID:           "a2",
		Agent:        "assignment_planner",
		Action:       "plan",
		Timestamp:    testNow.Add(time.Minute),
		ErrorMessage: "tasks store unavailable",
	}))

	records, err := database.RecentActivity(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "a2", records[0].ID)
	assert.False(t, records[0].Success)
	assert.JSONEq(t, `{}`, string(records[0].Output))

	assert.Equal(t, "a1", records[1].ID)
	assert.True(t, records[1].Success)
	assert.Equal(t, testNow, records[1].Timestamp)
	assert.JSONEq(t, `{"location":"ICU"}`, string(records[1].Input))
	assert.Equal(t, int64(12), records[1].ExecutionTimeMs)
}
