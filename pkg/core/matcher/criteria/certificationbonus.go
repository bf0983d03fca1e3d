package criteria

import (
	"fmt"

	"github.com/jakechorley/evs-dispatch/pkg/core/matcher"
	"github.com/jakechorley/evs-dispatch/pkg/core/model"
)

// CertificationBonusCriterion ranks better-certified resources higher
type CertificationBonusCriterion struct {
	points map[model.CertificationLevel]float64
}

// NewCertificationBonusCriterion creates the criterion from a level -> points table
func NewCertificationBonusCriterion(points map[model.CertificationLevel]float64) *CertificationBonusCriterion {
	return &CertificationBonusCriterion{points: points}
}

func (c *CertificationBonusCriterion) Name() string {
	return "CertificationBonus"
}

func (c *CertificationBonusCriterion) IsEligible(task *model.Task, candidate *matcher.Candidate) bool {
	return true
}

func (c *CertificationBonusCriterion) Points(task *model.Task, candidate *matcher.Candidate) float64 {
	return c.points[candidate.Resource.CertificationLevel]
}

func (c *CertificationBonusCriterion) MaxPoints() float64 {
	best := 0.0
	for _, p := range c.points {
		best = max(best, p)
	}
	return best
}

func (c *CertificationBonusCriterion) Explain(task *model.Task, candidate *matcher.Candidate) string {
	return fmt.Sprintf("%s certification(+%g)", candidate.Resource.CertificationLevel, c.Points(task, candidate))
}
