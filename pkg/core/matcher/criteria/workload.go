package criteria

import (
	"fmt"

	"github.com/jakechorley/evs-dispatch/pkg/core/matcher"
	"github.com/jakechorley/evs-dispatch/pkg/core/model"
)

// WorkloadCriterion favours resources with fewer tasks in hand.
//
// The effective load includes tasks handed out earlier in the same run, so a resource
// that has just been matched looks busier to every later task.
type WorkloadCriterion struct {
	points []float64
}

// NewWorkloadCriterion creates the criterion; points[n] is awarded at load n
func NewWorkloadCriterion(points []float64) *WorkloadCriterion {
	return &WorkloadCriterion{points: points}
}

func (c *WorkloadCriterion) Name() string {
	return "Workload"
}

func (c *WorkloadCriterion) IsEligible(task *model.Task, candidate *matcher.Candidate) bool {
	return true
}

func (c *WorkloadCriterion) Points(task *model.Task, candidate *matcher.Candidate) float64 {
	load := candidate.EffectiveLoad
	if load < 0 || load >= len(c.points) {
		return 0
	}
	return c.points[load]
}

func (c *WorkloadCriterion) MaxPoints() float64 {
	best := 0.0
	for _, p := range c.points {
		best = max(best, p)
	}
	return best
}

func (c *WorkloadCriterion) Explain(task *model.Task, candidate *matcher.Candidate) string {
	return fmt.Sprintf("%d current task(s)(+%g)", candidate.EffectiveLoad, c.Points(task, candidate))
}
