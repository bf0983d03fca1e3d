package criteria

import (
	"fmt"

	"github.com/jakechorley/evs-dispatch/pkg/core/matcher"
	"github.com/jakechorley/evs-dispatch/pkg/core/model"
)

// HazardCertificationCriterion keeps under-qualified resources away from hazard tasks.
//
// Eligibility:
//   - Non-hazard tasks accept any certification level
//   - Hazard tasks require a certification level at or above the threshold
//
// The rule is never relaxed when qualified resources are scarce; the task is left
// unassigned instead.
type HazardCertificationCriterion struct {
	threshold model.CertificationLevel
}

// NewHazardCertificationCriterion creates the criterion with the given minimum level
func NewHazardCertificationCriterion(threshold model.CertificationLevel) *HazardCertificationCriterion {
	return &HazardCertificationCriterion{threshold: threshold}
}

func (c *HazardCertificationCriterion) Name() string {
	return "HazardCertification"
}

func (c *HazardCertificationCriterion) IsEligible(task *model.Task, candidate *matcher.Candidate) bool {
	if !task.HazardRequired {
		return true
	}
	return candidate.Resource.CertificationLevel.AtLeast(c.threshold)
}

func (c *HazardCertificationCriterion) Points(task *model.Task, candidate *matcher.Candidate) float64 {
	return 0
}

func (c *HazardCertificationCriterion) MaxPoints() float64 {
	return 0
}

func (c *HazardCertificationCriterion) Explain(task *model.Task, candidate *matcher.Candidate) string {
	if !task.HazardRequired {
		return ""
	}
	return fmt.Sprintf("qualified for hazard protocol (>= %s)", c.threshold)
}
