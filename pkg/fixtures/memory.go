package fixtures

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jakechorley/evs-dispatch/pkg/core/model"
	"github.com/jakechorley/evs-dispatch/pkg/db"
)

// MemoryStore is an in-process store backed by maps. It serves the "fixtures" storage
// driver and is safe for concurrent use.
type MemoryStore struct {
	mu          sync.Mutex
	clock       func() time.Time
	tasks       map[string]model.Task
	resources   map[string]model.Resource
	completedAt map[string]time.Time
	activity    []db.ActivityRecord
}

// NewMemoryStore creates an empty store. A nil clock uses time.Now.
func NewMemoryStore(clock func() time.Time) *MemoryStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{
		clock:       clock,
		tasks:       make(map[string]model.Task),
		resources:   make(map[string]model.Resource),
		completedAt: make(map[string]time.Time),
	}
}

// NewMemoryStoreFromFixture creates a store preloaded with a fixture
func NewMemoryStoreFromFixture(fixture *Fixture, clock func() time.Time) *MemoryStore {
	store := NewMemoryStore(clock)
	for _, t := range fixture.Tasks {
		store.tasks[t.ID] = t
	}
	for _, r := range fixture.Resources {
		store.resources[r.ID] = r
	}
	return store
}

// FetchPending returns pending tasks matching the filter, oldest first
func (s *MemoryStore) FetchPending(ctx context.Context, filter db.TaskFilter) ([]model.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var tasks []model.Task
	for _, t := range s.tasks {
		if t.Status != model.StatusPending {
			continue
		}
		if filter.Location != "" && !strings.EqualFold(t.Location, filter.Location) {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(string(t.Category), string(filter.Category)) {
			continue
		}
		if filter.Priority != "" && !samePriority(t.Priority, filter.Priority) {
			continue
		}
		tasks = append(tasks, t)
	}

	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks, nil
}

// samePriority compares priorities after normalisation; unparseable values never match
func samePriority(a, b model.Priority) bool {
	pa, err := model.ParsePriority(string(a))
	if err != nil {
		return false
	}
	pb, err := model.ParsePriority(string(b))
	if err != nil {
		return false
	}
	return pa == pb
}

// FetchAvailable returns the resource pool for a shift ("" for every shift).
// Availability status is not filtered here; the matcher enforces it.
func (s *MemoryStore) FetchAvailable(ctx context.Context, shift string) ([]model.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var resources []model.Resource
	for _, r := range s.resources {
		if shift != "" && !strings.EqualFold(r.Shift, shift) {
			continue
		}
		resources = append(resources, r)
	}
	sort.Slice(resources, func(i, j int) bool {
		return resources[i].ID < resources[j].ID
	})
	return resources, nil
}

// Append records an activity entry
func (s *MemoryStore) Append(ctx context.Context, record db.ActivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = append(s.activity, record)
	return nil
}

// Activity returns a copy of the recorded activity entries
func (s *MemoryStore) Activity() []db.ActivityRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]db.ActivityRecord, len(s.activity))
	copy(out, s.activity)
	return out
}

// RecentActivity returns up to limit entries, newest first
func (s *MemoryStore) RecentActivity(ctx context.Context, limit int) ([]db.ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]db.ActivityRecord, 0, min(limit, len(s.activity)))
	for i := len(s.activity) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.activity[i])
	}
	return out, nil
}

// GetTask returns a task by id
func (s *MemoryStore) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, db.ErrNotFound)
	}
	return &t, nil
}

// GetResource returns a resource by id
func (s *MemoryStore) GetResource(ctx context.Context, resourceID string) (*model.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[resourceID]
	if !ok {
		return nil, fmt.Errorf("resource %s: %w", resourceID, db.ErrNotFound)
	}
	return &r, nil
}

// InsertTasks inserts or replaces tasks
func (s *MemoryStore) InsertTasks(ctx context.Context, tasks []model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tasks {
		if t.Status == "" {
			t.Status = model.StatusPending
		}
		s.tasks[t.ID] = t
	}
	return nil
}

// InsertResources inserts or replaces resources
func (s *MemoryStore) InsertResources(ctx context.Context, resources []model.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range resources {
		s.resources[r.ID] = r
	}
	return nil
}

// ApplyAssignment assigns a pending task to a resource if the task version still matches
func (s *MemoryStore) ApplyAssignment(ctx context.Context, taskID, resourceID string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, db.ErrNotFound)
	}
	resource, ok := s.resources[resourceID]
	if !ok {
		return fmt.Errorf("resource %s: %w", resourceID, db.ErrNotFound)
	}
	if task.Version != version || task.Status != model.StatusPending {
		return fmt.Errorf("task %s changed since it was read: %w", taskID, db.ErrConflict)
	}

	task.Status = model.StatusAssigned
	task.AssignedResourceID = resourceID
	task.Version++
	resource.CurrentTaskCount++

	s.tasks[taskID] = task
	s.resources[resourceID] = resource
	return nil
}

// TransitionTask moves a task between statuses, releasing resource load where needed
func (s *MemoryStore) TransitionTask(ctx context.Context, taskID string, from, to model.TaskStatus, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, db.ErrNotFound)
	}
	if task.Version != version || task.Status != from {
		return fmt.Errorf("task %s changed since it was read: %w", taskID, db.ErrConflict)
	}

	if from.HoldsResource() && !to.HoldsResource() && task.AssignedResourceID != "" {
		if resource, ok := s.resources[task.AssignedResourceID]; ok && resource.CurrentTaskCount > 0 {
			resource.CurrentTaskCount--
			s.resources[resource.ID] = resource
		}
	}
	if to == model.StatusCompleted {
		s.completedAt[taskID] = s.clock()
	}

	task.Status = to
	task.Version++
	s.tasks[taskID] = task
	return nil
}

// DailyDemand averages tasks completed per day for each category in [since, until)
func (s *MemoryStore) DailyDemand(ctx context.Context, since, until time.Time) (map[model.Category]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	days := until.Sub(since).Hours() / 24
	if days <= 0 {
		return nil, fmt.Errorf("invalid demand window %s to %s", since, until)
	}

	demand := make(map[model.Category]float64)
	for taskID, at := range s.completedAt {
		if at.Before(since) || !at.Before(until) {
			continue
		}
		demand[s.tasks[taskID].Category]++
	}
	for category, count := range demand {
		demand[category] = count / days
	}
	return demand, nil
}
