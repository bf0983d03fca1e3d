package matcher

import "github.com/jakechorley/evs-dispatch/pkg/core/model"

// Candidate is a resource as seen by one planning run. Load changes made during the
// run are applied here and never reach the backing store.
type Candidate struct {
	Resource model.Resource

	// EffectiveLoad is the stored task count plus assignments made earlier in this run
	EffectiveLoad int

	// RunAssignments counts how many tasks this run has already given the resource
	RunAssignments int
}

// NewCandidate creates a candidate from a stored resource
func NewCandidate(resource model.Resource) *Candidate {
	load := resource.CurrentTaskCount
	if load < 0 {
		load = 0
	}
	return &Candidate{
		Resource:      resource,
		EffectiveLoad: load,
	}
}

// Criterion defines the interface for matching criteria.
// A criterion can veto candidates, contribute ranking points, or both.
type Criterion interface {
	// Name returns a human-readable identifier for this criterion
	Name() string

	// IsEligible determines whether the candidate may take the task at all.
	// This acts as a veto - if ANY criterion returns false the candidate is discarded
	// regardless of how well it would rank.
	IsEligible(task *model.Task, candidate *Candidate) bool

	// Points returns the soft ranking contribution for an eligible candidate.
	// Return 0 if this criterion doesn't affect ranking.
	Points(task *model.Task, candidate *Candidate) float64

	// MaxPoints returns the largest value Points can produce, used to normalise confidence
	MaxPoints() float64

	// Explain describes the contribution for the reasoning text ("" for none)
	Explain(task *model.Task, candidate *Candidate) string
}
