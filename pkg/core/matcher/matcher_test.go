package matcher_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/evs-dispatch/pkg/core/matcher"
	"github.com/jakechorley/evs-dispatch/pkg/core/matcher/criteria"
	"github.com/jakechorley/evs-dispatch/pkg/core/model"
)

func newMatcher() *matcher.Matcher {
	return matcher.NewMatcher(criteria.Default(matcher.DefaultWeights()))
}

func pool(resources ...model.Resource) []*matcher.Candidate {
	candidates := make([]*matcher.Candidate, 0, len(resources))
	for _, r := range resources {
		candidates = append(candidates, matcher.NewCandidate(r))
	}
	return candidates
}

func staff(id string, level model.CertificationLevel, rating float64, load int) model.Resource {
	return model.Resource{
		ID:                 id,
		CertificationLevel: level,
		PerformanceRating:  rating,
		CurrentTaskCount:   load,
		Availability:       model.AvailabilityAvailable,
	}
}

func TestMatch_HighestSoftScoreWins(t *testing.T) {
	// basic: 10 + 50 + 15 = 75, advanced: 40 + 40 + 10 = 90, mid: 20 + 45 + 15 = 80
	result := newMatcher().Match(&model.Task{ID: "t1"}, pool(
		staff("basic", model.CertificationBasic, 5, 0),
		staff("advanced", model.CertificationAdvanced, 4, 1),
		staff("mid", model.CertificationIntermediate, 4.5, 0),
	))

	require.True(t, result.Matched())
	assert.Equal(t, "advanced", result.Chosen.Resource.ID)
	assert.Equal(t, 90.0, result.Score)
	assert.Equal(t, 3, result.Eligible)
	assert.Contains(t, result.Reasoning, "selected advanced")
	assert.Contains(t, result.Reasoning, "Advanced certification(+40)")
}

func TestMatch_HardFiltersNeverRelaxed(t *testing.T) {
	task := &model.Task{ID: "hazard", HazardRequired: true}
	busy := staff("busy-advanced", model.CertificationAdvanced, 5, 0)
	busy.Availability = model.AvailabilityBusy

	result := newMatcher().Match(task, pool(
		staff("intermediate", model.CertificationIntermediate, 5, 0),
		staff("basic", model.CertificationBasic, 5, 0),
		busy,
	))

	assert.False(t, result.Matched())
	assert.Equal(t, 0, result.Eligible)
	assert.Equal(t, []matcher.Rejection{
		{CriterionName: "HazardCertification", Count: 2},
		{CriterionName: "Availability", Count: 1},
	}, result.Rejections)
	assert.Contains(t, result.Reasoning, "no_staff_available")

	assignment := result.Assignment(task.ID, time.Unix(0, 0))
	assert.Equal(t, model.OutcomeNoStaffAvailable, assignment.Outcome)
	assert.Empty(t, assignment.ResourceID)
	assert.False(t, assignment.HasResource())
	assert.Equal(t, 0.0, assignment.Confidence)
}

func TestMatch_EmptyPool(t *testing.T) {
	result := newMatcher().Match(&model.Task{ID: "t1"}, nil)

	assert.False(t, result.Matched())
	assert.Equal(t, "no_staff_available: resource pool is empty", result.Reasoning)
}

func TestMatch_TieBrokenByLowerLoad(t *testing.T) {
	// Same soft score: 40 + 30 + 10 = 80 vs 40 + 35 + 5 = 80
	result := newMatcher().Match(&model.Task{ID: "t1"}, pool(
		staff("a", model.CertificationAdvanced, 3.5, 2),
		staff("b", model.CertificationAdvanced, 3, 1),
	))

	require.True(t, result.Matched())
	assert.Equal(t, "b", result.Chosen.Resource.ID)
	assert.Contains(t, result.Reasoning, "won on lower workload")
}

func TestMatch_TieBrokenByResourceID(t *testing.T) {
	result := newMatcher().Match(&model.Task{ID: "t1"}, pool(
		staff("zed", model.CertificationIntermediate, 3, 0),
		staff("amy", model.CertificationIntermediate, 3, 0),
		staff("kim", model.CertificationIntermediate, 3, 0),
	))

	require.True(t, result.Matched())
	assert.Equal(t, "amy", result.Chosen.Resource.ID)
	assert.Contains(t, result.Reasoning, "won on resource id")
}

func TestMatch_OrderIndependent(t *testing.T) {
	resources := []model.Resource{
		staff("r3", model.CertificationIntermediate, 3, 0),
		staff("r1", model.CertificationIntermediate, 3, 0),
		staff("r2", model.CertificationIntermediate, 3, 0),
	}
	forward := newMatcher().Match(&model.Task{ID: "t"}, pool(resources...))
	backward := newMatcher().Match(&model.Task{ID: "t"}, pool(resources[2], resources[1], resources[0]))

	assert.Equal(t, forward.Chosen.Resource.ID, backward.Chosen.Resource.ID)
	assert.Equal(t, forward.Reasoning, backward.Reasoning)
}

func TestMatch_Confidence(t *testing.T) {
	// Max attainable: 40 + 50 + 15 = 105
	result := newMatcher().Match(&model.Task{ID: "t1"}, pool(staff("a", model.CertificationAdvanced, 5, 0)))
	require.True(t, result.Matched())
	assert.Equal(t, 1.0, result.Confidence)
	assert.Contains(t, result.Reasoning, "only eligible candidate")

	result = newMatcher().Match(&model.Task{ID: "t1"}, pool(staff("b", model.CertificationBasic, 0, 5)))
	require.True(t, result.Matched())
	assert.Equal(t, 0.1, result.Confidence) // 10 / 105
}

func TestMatch_RunCapacityExcludesConsumedResource(t *testing.T) {
	candidates := pool(staff("a", model.CertificationAdvanced, 5, 0))
	candidates[0].RunAssignments = 1

	result := newMatcher().Match(&model.Task{ID: "t1"}, candidates)

	assert.False(t, result.Matched())
	assert.Equal(t, []matcher.Rejection{{CriterionName: "RunCapacity", Count: 1}}, result.Rejections)
}
