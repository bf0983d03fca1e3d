package criteria

import "github.com/jakechorley/evs-dispatch/pkg/core/matcher"

// Default returns the standard criteria set: hard filters first, then soft ranking
func Default(weights matcher.Weights) []matcher.Criterion {
	return []matcher.Criterion{
		NewHazardCertificationCriterion(weights.HazardThreshold),
		NewAvailabilityCriterion(),
		NewRunCapacityCriterion(weights.MaxAssignmentsPerRun),
		NewCertificationBonusCriterion(weights.Certification),
		NewPerformanceCriterion(weights.PerformanceMultiplier),
		NewWorkloadCriterion(weights.Workload),
	}
}
