package criteria

import (
	"github.com/jakechorley/evs-dispatch/pkg/core/matcher"
	"github.com/jakechorley/evs-dispatch/pkg/core/model"
)

// AvailabilityCriterion only admits resources whose status is Available
type AvailabilityCriterion struct{}

// NewAvailabilityCriterion creates a new AvailabilityCriterion
func NewAvailabilityCriterion() *AvailabilityCriterion {
	return &AvailabilityCriterion{}
}

func (c *AvailabilityCriterion) Name() string {
	return "Availability"
}

func (c *AvailabilityCriterion) IsEligible(task *model.Task, candidate *matcher.Candidate) bool {
	return candidate.Resource.Availability == model.AvailabilityAvailable
}

func (c *AvailabilityCriterion) Points(task *model.Task, candidate *matcher.Candidate) float64 {
	return 0
}

func (c *AvailabilityCriterion) MaxPoints() float64 {
	return 0
}

func (c *AvailabilityCriterion) Explain(task *model.Task, candidate *matcher.Candidate) string {
	return ""
}
