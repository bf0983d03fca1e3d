package model

import (
	"fmt"
	"strings"
	"time"
)

// DefaultEstimatedDurationMinutes is used when a task carries no duration estimate
const DefaultEstimatedDurationMinutes = 30

// Priority is the declared priority of a task
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority normalises a declared priority.
// An empty value is treated as Medium and "critical" is accepted as an alias of High.
func ParsePriority(raw string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high", "critical":
		return PriorityHigh, nil
	case "medium", "":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	}
	return "", fmt.Errorf("unknown priority %q", raw)
}

// StoredForms returns the lower-cased stored values that parse to the given priority.
// Stores use it to filter on a normalised priority.
func StoredForms(p Priority) []string {
	switch p {
	case PriorityHigh:
		return []string{"high", "critical"}
	case PriorityMedium:
		return []string{"medium", ""}
	case PriorityLow:
		return []string{"low"}
	}
	return []string{strings.ToLower(string(p))}
}

// Category is the kind of work a task represents. The set is open: scoring classifies
// categories through configured keywords rather than a closed list.
type Category string

const (
	CategoryTerminalCleaning Category = "terminal_cleaning"
	CategoryDailyCleaning    Category = "daily_cleaning"
	CategoryDisinfection     Category = "disinfection"
	CategoryMaintenance      Category = "maintenance"
	CategorySpillCleanup     Category = "spill_cleanup"
	CategoryInspection       Category = "inspection"
	CategoryStatCleaning     Category = "stat_cleaning"
	CategoryProduction       Category = "production"
)

// CertificationLevel is an ordered resource qualification
type CertificationLevel int

const (
	CertificationBasic CertificationLevel = iota + 1
	CertificationIntermediate
	CertificationAdvanced
)

func (c CertificationLevel) String() string {
	switch c {
	case CertificationBasic:
		return "Basic"
	case CertificationIntermediate:
		return "Intermediate"
	case CertificationAdvanced:
		return "Advanced"
	}
	return "Unknown"
}

// MarshalText renders the level by name in JSON output
func (c CertificationLevel) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(c.String())), nil
}

// AtLeast reports whether c is the same as or above other
func (c CertificationLevel) AtLeast(other CertificationLevel) bool {
	return c >= other
}

// ParseCertificationLevel parses a certification level name (case-insensitive)
func ParseCertificationLevel(raw string) (CertificationLevel, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "basic":
		return CertificationBasic, nil
	case "intermediate":
		return CertificationIntermediate, nil
	case "advanced":
		return CertificationAdvanced, nil
	}
	return 0, fmt.Errorf("unknown certification level %q", raw)
}

// Availability is the current availability of a resource
type Availability string

const (
	AvailabilityAvailable Availability = "available"
	AvailabilityBusy      Availability = "busy"
	AvailabilityOffline   Availability = "offline"
)

// ParseAvailability parses an availability status (case-insensitive)
func ParseAvailability(raw string) (Availability, error) {
	switch a := Availability(strings.ToLower(strings.TrimSpace(raw))); a {
	case AvailabilityAvailable, AvailabilityBusy, AvailabilityOffline:
		return a, nil
	}
	return "", fmt.Errorf("unknown availability %q", raw)
}

// Task is a discrete unit of pending operational work
type Task struct {
	ID          string   `json:"id"`
	Location    string   `json:"location"`
	Category    Category `json:"category"`
	Priority    Priority `json:"priority"`
	Description string   `json:"description,omitempty"`

	// HazardRequired marks tasks that need an isolation or biohazard protocol
	HazardRequired bool `json:"hazard_required"`

	// Occupied marks tasks whose area or asset is currently in use
	Occupied bool `json:"occupied"`

	// ScheduledTime is kept as the raw stored value (empty when unscheduled).
	// It may be malformed; scoring treats that as a skipped factor, not a failure.
	ScheduledTime string `json:"scheduled_time,omitempty"`

	// EstimatedDurationMinutes is nil when no estimate was recorded
	EstimatedDurationMinutes *int `json:"estimated_duration_minutes,omitempty"`

	Status             TaskStatus `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	AssignedResourceID string     `json:"assigned_resource_id,omitempty"`

	// Version is incremented on every persisted state change (optimistic locking)
	Version int `json:"-"`
}

// EstimatedMinutes returns the duration estimate, defaulting when absent
func (t *Task) EstimatedMinutes() int {
	if t.EstimatedDurationMinutes == nil || *t.EstimatedDurationMinutes < 0 {
		return DefaultEstimatedDurationMinutes
	}
	return *t.EstimatedDurationMinutes
}

// scheduledTimeLayouts are tried in order when parsing ScheduledTime.
// Layouts without a zone are read as UTC.
var scheduledTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// ScheduledAt parses ScheduledTime.
// ok is false when the task is unscheduled; err is set when the value is malformed.
func (t *Task) ScheduledAt() (at time.Time, ok bool, err error) {
	raw := strings.TrimSpace(t.ScheduledTime)
	if raw == "" {
		return time.Time{}, false, nil
	}
	for _, layout := range scheduledTimeLayouts {
		if parsed, perr := time.ParseInLocation(layout, raw, time.UTC); perr == nil {
			return parsed, true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("unparseable scheduled_time %q", t.ScheduledTime)
}

// Resource is a staff member or equipment unit that can perform tasks
type Resource struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	CertificationLevel CertificationLevel `json:"certification_level"`
	PerformanceRating  float64            `json:"performance_rating"`
	CurrentTaskCount   int                `json:"current_task_count"`
	Availability       Availability       `json:"availability"`
	Shift              string             `json:"shift,omitempty"`
}

// Factor is one contribution to a priority score
type Factor struct {
	Name   string  `json:"name"`
	Points float64 `json:"points"`
}

// PriorityScore is the advisory urgency score of a task for one planning run
type PriorityScore struct {
	TaskID string  `json:"task_id"`
	Value  float64 `json:"value"`

	// Factors lists the contributions that fired, in evaluation order
	Factors []Factor `json:"factors"`

	// Notes records skipped factors and degradations
	Notes []string `json:"notes,omitempty"`

	// Degraded is set when the task could not be scored and was given a zero score
	Degraded bool `json:"degraded,omitempty"`

	ComputedAt time.Time `json:"computed_at"`
}

// Reasoning renders the factors and notes as a single line
func (s PriorityScore) Reasoning() string {
	parts := make([]string, 0, len(s.Factors)+len(s.Notes))
	for _, f := range s.Factors {
		parts = append(parts, fmt.Sprintf("%s(+%g)", f.Name, f.Points))
	}
	parts = append(parts, s.Notes...)
	return strings.Join(parts, " | ")
}

// AssignmentOutcome distinguishes a matched task from one with no eligible resource
type AssignmentOutcome string

const (
	OutcomeMatched          AssignmentOutcome = "matched"
	OutcomeNoStaffAvailable AssignmentOutcome = "no_staff_available"
)

// Assignment is a recommended resource for a task. It is never persisted by the planner.
type Assignment struct {
	TaskID string `json:"task_id"`

	// ResourceID is empty when no eligible resource exists
	ResourceID string `json:"resource_id,omitempty"`

	Outcome    AssignmentOutcome `json:"outcome"`
	Reasoning  string            `json:"reasoning"`
	Confidence float64           `json:"confidence"`
	ComputedAt time.Time         `json:"computed_at"`
}

// HasResource reports whether a resource was chosen
func (a Assignment) HasResource() bool {
	return a.Outcome == OutcomeMatched && a.ResourceID != ""
}
