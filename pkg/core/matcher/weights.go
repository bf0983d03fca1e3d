package matcher

import "github.com/jakechorley/evs-dispatch/pkg/core/model"

// Weights configures the hard thresholds and soft ranking points used for matching
type Weights struct {
	// HazardThreshold is the minimum certification for hazard tasks
	HazardThreshold model.CertificationLevel

	// MaxAssignmentsPerRun caps how many tasks one resource receives in a single run
	MaxAssignmentsPerRun int

	// Certification maps each level to its ranking points
	Certification map[model.CertificationLevel]float64

	// PerformanceMultiplier is applied to the 0-5 performance rating
	PerformanceMultiplier float64

	// Workload[n] is awarded to a candidate whose effective load is n.
	// Loads beyond the table earn nothing.
	Workload []float64
}

// DefaultWeights returns the standard matching weights
func DefaultWeights() Weights {
	return Weights{
		HazardThreshold:      model.CertificationAdvanced,
		MaxAssignmentsPerRun: 1,
		Certification: map[model.CertificationLevel]float64{
			model.CertificationAdvanced:     40,
			model.CertificationIntermediate: 20,
			model.CertificationBasic:        10,
		},
		PerformanceMultiplier: 10,
		Workload:              []float64{15, 10, 5},
	}
}
