package criteria

import (
	"fmt"

	"github.com/jakechorley/evs-dispatch/pkg/core/matcher"
	"github.com/jakechorley/evs-dispatch/pkg/core/model"
)

// MaxPerformanceRating is the top of the performance rating scale
const MaxPerformanceRating = 5.0

// PerformanceCriterion ranks resources by their performance rating.
// Ratings outside 0-5 are clamped so bad data cannot dominate the ranking.
type PerformanceCriterion struct {
	multiplier float64
}

// NewPerformanceCriterion creates a new PerformanceCriterion
func NewPerformanceCriterion(multiplier float64) *PerformanceCriterion {
	return &PerformanceCriterion{multiplier: multiplier}
}

func (c *PerformanceCriterion) Name() string {
	return "Performance"
}

func (c *PerformanceCriterion) IsEligible(task *model.Task, candidate *matcher.Candidate) bool {
	return true
}

func (c *PerformanceCriterion) Points(task *model.Task, candidate *matcher.Candidate) float64 {
	return rating(candidate) * c.multiplier
}

func (c *PerformanceCriterion) MaxPoints() float64 {
	return MaxPerformanceRating * c.multiplier
}

func (c *PerformanceCriterion) Explain(task *model.Task, candidate *matcher.Candidate) string {
	return fmt.Sprintf("rating %g/5(+%g)", rating(candidate), c.Points(task, candidate))
}

func rating(candidate *matcher.Candidate) float64 {
	return min(max(candidate.Resource.PerformanceRating, 0), MaxPerformanceRating)
}
