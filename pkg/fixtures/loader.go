package fixtures

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jakechorley/evs-dispatch/pkg/core/model"
)

var schemaLoader = gojsonschema.NewStringLoader(fixtureSchema)

// Fixture is a set of tasks and resources loaded from a fixture file
type Fixture struct {
	Tasks     []model.Task
	Resources []model.Resource
}

type taskRecord struct {
	ID                       string `json:"id"`
	Location                 string `json:"location"`
	Category                 string `json:"category"`
	Priority                 string `json:"priority"`
	Description              string `json:"description"`
	HazardRequired           bool   `json:"hazard_required"`
	Occupied                 bool   `json:"occupied"`
	ScheduledTime            string `json:"scheduled_time"`
	EstimatedDurationMinutes *int   `json:"estimated_duration_minutes"`
	Status                   string `json:"status"`
	AssignedResourceID       string `json:"assigned_resource_id"`
	CreatedAt                string `json:"created_at"`
}

type resourceRecord struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	CertificationLevel string  `json:"certification_level"`
	PerformanceRating  float64 `json:"performance_rating"`
	CurrentTaskCount   int     `json:"current_task_count"`
	Availability       string  `json:"availability"`
	Shift              string  `json:"shift"`
}

type fixtureFile struct {
	Tasks     []taskRecord     `json:"tasks"`
	Resources []resourceRecord `json:"resources"`
}

// Load reads and validates a fixture file. Tasks without created_at are stamped with now.
func Load(path string, now time.Time) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return Parse(data, now)
}

// Parse validates raw fixture JSON against the fixture schema and converts it to model types
func Parse(data []byte, now time.Time) (*Fixture, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to validate fixture: %w", err)
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return nil, fmt.Errorf("fixture does not match schema: %s", strings.Join(issues, "; "))
	}

	var file fixtureFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode fixture: %w", err)
	}

	fixture := &Fixture{}
	seenTasks := make(map[string]bool, len(file.Tasks))
	for i, rec := range file.Tasks {
		if seenTasks[rec.ID] {
			return nil, fmt.Errorf("task %d: duplicate id %s", i, rec.ID)
		}
		seenTasks[rec.ID] = true

		task, err := rec.toModel(now)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", rec.ID, err)
		}
		fixture.Tasks = append(fixture.Tasks, task)
	}

	seenResources := make(map[string]bool, len(file.Resources))
	for i, rec := range file.Resources {
		if seenResources[rec.ID] {
			return nil, fmt.Errorf("resource %d: duplicate id %s", i, rec.ID)
		}
		seenResources[rec.ID] = true

		resource, err := rec.toModel()
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", rec.ID, err)
		}
		fixture.Resources = append(fixture.Resources, resource)
	}

	return fixture, nil
}

func (r taskRecord) toModel(now time.Time) (model.Task, error) {
	// Priority is kept as written; an unknown value is a scoring concern, not a load error
	task := model.Task{
		ID:                       r.ID,
		Location:                 r.Location,
		Category:                 model.Category(r.Category),
		Priority:                 model.Priority(strings.ToLower(strings.TrimSpace(r.Priority))),
		Description:              r.Description,
		HazardRequired:           r.HazardRequired,
		Occupied:                 r.Occupied,
		ScheduledTime:            r.ScheduledTime,
		EstimatedDurationMinutes: r.EstimatedDurationMinutes,
		Status:                   model.StatusPending,
		AssignedResourceID:       r.AssignedResourceID,
		CreatedAt:                now,
	}

	if r.Status != "" {
		status, err := model.ParseTaskStatus(r.Status)
		if err != nil {
			return task, err
		}
		task.Status = status
	}
	if r.CreatedAt != "" {
		createdAt, err := time.Parse(time.RFC3339, r.CreatedAt)
		if err != nil {
			return task, fmt.Errorf("invalid created_at: %w", err)
		}
		task.CreatedAt = createdAt.UTC()
	}
	return task, nil
}

func (r resourceRecord) toModel() (model.Resource, error) {
	level, err := model.ParseCertificationLevel(r.CertificationLevel)
	if err != nil {
		return model.Resource{}, err
	}
	availability, err := model.ParseAvailability(r.Availability)
	if err != nil {
		return model.Resource{}, err
	}
	return model.Resource{
		ID:                 r.ID,
		Name:               r.Name,
		CertificationLevel: level,
		PerformanceRating:  r.PerformanceRating,
		CurrentTaskCount:   r.CurrentTaskCount,
		Availability:       availability,
		Shift:              r.Shift,
	}, nil
}
