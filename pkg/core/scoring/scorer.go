package scoring

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jakechorley/evs-dispatch/pkg/core/model"
)

// Factor names recorded in a score's reasoning
const (
	FactorHazard   = "hazard_protocol"
	FactorOccupied = "occupied"
	FactorOverdue  = "overdue"
	FactorStandard = "standard"
)

// ErrMissingTaskID is returned for tasks that cannot be identified
var ErrMissingTaskID = errors.New("task has no id")

// Scorer computes bounded urgency scores from a weight table.
// It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the given weight table
func NewScorer(weights Weights) *Scorer {
	if weights.MaxScore <= 0 {
		weights.MaxScore = MaxScore
	}
	return &Scorer{weights: weights}
}

// factorFunc returns the points for one factor; a nil factor means it did not fire.
// A non-empty note records a factor that was skipped.
type factorFunc func(s *Scorer, task *model.Task, now time.Time) (factor *model.Factor, note string)

var factors = []factorFunc{
	scoreHazard,
	scorePriority,
	scoreOccupied,
	scoreOverdue,
	scoreCategory,
}

// Score computes the priority score of a task at the given instant.
//
// Missing optional fields fall back to neutral defaults. A malformed scheduled time only
// skips the overdue factor and an unrecognised priority only skips the priority factor.
// An error is returned only for a task with no id.
func (s *Scorer) Score(task *model.Task, now time.Time) (model.PriorityScore, error) {
	result := model.PriorityScore{
		ComputedAt: now,
	}
	if task == nil || strings.TrimSpace(task.ID) == "" {
		return result, ErrMissingTaskID
	}
	result.TaskID = task.ID

	total := 0.0
	for _, f := range factors {
		factor, note := f(s, task, now)
		if note != "" {
			result.Notes = append(result.Notes, note)
		}
		if factor == nil {
			continue
		}
		total += factor.Points
		result.Factors = append(result.Factors, *factor)
	}

	if len(result.Factors) == 0 {
		result.Factors = append(result.Factors, model.Factor{Name: FactorStandard, Points: 0})
	}

	result.Value = clamp(total, 0, s.weights.MaxScore)
	return result, nil
}

func scoreHazard(s *Scorer, task *model.Task, _ time.Time) (*model.Factor, string) {
	if !task.HazardRequired {
		return nil, ""
	}
	return &model.Factor{Name: FactorHazard, Points: s.weights.Hazard}, ""
}

func scorePriority(s *Scorer, task *model.Task, _ time.Time) (*model.Factor, string) {
	priority, err := model.ParsePriority(string(task.Priority))
	if err != nil {
		return nil, fmt.Sprintf("priority skipped: %v", err)
	}
	points := s.weights.Priority[priority]
	if points == 0 {
		return nil, ""
	}
	return &model.Factor{Name: "priority_" + string(priority), Points: points}, ""
}

func scoreOccupied(s *Scorer, task *model.Task, _ time.Time) (*model.Factor, string) {
	if !task.Occupied {
		return nil, ""
	}
	return &model.Factor{Name: FactorOccupied, Points: s.weights.Occupied}, ""
}

func scoreOverdue(s *Scorer, task *model.Task, now time.Time) (*model.Factor, string) {
	scheduledAt, ok, err := task.ScheduledAt()
	if err != nil {
		return nil, fmt.Sprintf("%s skipped: %v", FactorOverdue, err)
	}
	if !ok || !scheduledAt.Before(now) {
		return nil, ""
	}
	return &model.Factor{Name: FactorOverdue, Points: s.weights.Overdue}, ""
}

func scoreCategory(s *Scorer, task *model.Task, _ time.Time) (*model.Factor, string) {
	tokens := categoryTokens(task.Category)
	if len(tokens) == 0 {
		return nil, ""
	}
	for _, class := range s.weights.CategoryClasses {
		for _, keyword := range class.Keywords {
			if tokens[strings.ToLower(keyword)] {
				return &model.Factor{Name: "category_" + class.Name, Points: class.Points}, ""
			}
		}
	}
	return nil, ""
}

// categoryTokens splits a category into lower-cased words so "terminal_cleaning"
// matches the keyword "terminal" but "statistics" does not match "stat".
func categoryTokens(category model.Category) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(string(category)), func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '/'
	})
	tokens := make(map[string]bool, len(fields))
	for _, f := range fields {
		tokens[f] = true
	}
	return tokens
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
