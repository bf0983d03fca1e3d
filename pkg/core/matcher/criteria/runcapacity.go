package criteria

import (
	"github.com/jakechorley/evs-dispatch/pkg/core/matcher"
	"github.com/jakechorley/evs-dispatch/pkg/core/model"
)

// RunCapacityCriterion prevents a resource from being handed more tasks in one run
// than it can take. With the default capacity of 1 no resource is chosen twice.
type RunCapacityCriterion struct {
	capacity int
}

// NewRunCapacityCriterion creates the criterion. A capacity below 1 is treated as 1.
func NewRunCapacityCriterion(capacity int) *RunCapacityCriterion {
	return &RunCapacityCriterion{capacity: max(capacity, 1)}
}

func (c *RunCapacityCriterion) Name() string {
	return "RunCapacity"
}

func (c *RunCapacityCriterion) IsEligible(task *model.Task, candidate *matcher.Candidate) bool {
	return candidate.RunAssignments < c.capacity
}

func (c *RunCapacityCriterion) Points(task *model.Task, candidate *matcher.Candidate) float64 {
	return 0
}

func (c *RunCapacityCriterion) MaxPoints() float64 {
	return 0
}

func (c *RunCapacityCriterion) Explain(task *model.Task, candidate *matcher.Candidate) string {
	return ""
}
