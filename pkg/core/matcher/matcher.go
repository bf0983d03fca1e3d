package matcher

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jakechorley/evs-dispatch/pkg/core/model"
)

// scoreEpsilon absorbs floating point noise when comparing soft scores
const scoreEpsilon = 1e-9

// Matcher picks the best eligible candidate for a task using configurable criteria
type Matcher struct {
	criteria []Criterion
	maxScore float64
}

// NewMatcher creates a matcher applying the given criteria in order
func NewMatcher(criteria []Criterion) *Matcher {
	maxScore := 0.0
	for _, c := range criteria {
		maxScore += c.MaxPoints()
	}
	return &Matcher{
		criteria: criteria,
		maxScore: maxScore,
	}
}

// Rejection counts candidates vetoed by one criterion
type Rejection struct {
	CriterionName string
	Count         int
}

// Result is the outcome of matching one task
type Result struct {
	// Chosen is nil when no candidate survived the hard criteria
	Chosen *Candidate

	Score      float64
	Confidence float64
	Reasoning  string

	// Eligible is the number of candidates that passed every hard criterion
	Eligible int

	// Rejections lists vetoes per criterion, in criteria order
	Rejections []Rejection
}

// Matched reports whether a candidate was chosen
func (r Result) Matched() bool {
	return r.Chosen != nil
}

// Assignment converts the result into an assignment recommendation
func (r Result) Assignment(taskID string, computedAt time.Time) model.Assignment {
	assignment := model.Assignment{
		TaskID:     taskID,
		Outcome:    model.OutcomeNoStaffAvailable,
		Reasoning:  r.Reasoning,
		ComputedAt: computedAt,
	}
	if r.Chosen != nil {
		assignment.ResourceID = r.Chosen.Resource.ID
		assignment.Outcome = model.OutcomeMatched
		assignment.Confidence = r.Confidence
	}
	return assignment
}

type scoredCandidate struct {
	candidate *Candidate
	score     float64
}

// Match returns the best eligible candidate for the task.
//
// Ranking is by soft score (highest first). Ties are broken by lower effective load,
// then by the lexicographically smaller resource id, so the result is reproducible
// for identical inputs. Having no eligible candidate is a normal outcome, not an error.
func (m *Matcher) Match(task *model.Task, candidates []*Candidate) Result {
	result := Result{}
	if len(candidates) == 0 {
		result.Reasoning = fmt.Sprintf("%s: resource pool is empty", model.OutcomeNoStaffAvailable)
		return result
	}

	rejections := make([]int, len(m.criteria))
	var best *scoredCandidate
	var runnerUp *scoredCandidate

	for _, candidate := range candidates {
		if idx := m.firstVeto(task, candidate); idx >= 0 {
			rejections[idx]++
			continue
		}
		result.Eligible++

		current := &scoredCandidate{candidate: candidate, score: m.softScore(task, candidate)}
		if best == nil || better(current, best) {
			runnerUp = best
			best = current
		} else if runnerUp == nil || better(current, runnerUp) {
			runnerUp = current
		}
	}

	for i, count := range rejections {
		if count > 0 {
			result.Rejections = append(result.Rejections, Rejection{CriterionName: m.criteria[i].Name(), Count: count})
		}
	}

	if best == nil {
		result.Reasoning = fmt.Sprintf("%s: %d candidate(s) rejected (%s)",
			model.OutcomeNoStaffAvailable, len(candidates), formatRejections(result.Rejections))
		return result
	}

	result.Chosen = best.candidate
	result.Score = best.score
	result.Confidence = m.confidence(best.score)
	result.Reasoning = m.explain(task, best, runnerUp, result.Eligible)
	return result
}

// firstVeto returns the index of the first criterion that rejects the candidate, or -1
func (m *Matcher) firstVeto(task *model.Task, candidate *Candidate) int {
	for i, criterion := range m.criteria {
		if !criterion.IsEligible(task, candidate) {
			return i
		}
	}
	return -1
}

func (m *Matcher) softScore(task *model.Task, candidate *Candidate) float64 {
	total := 0.0
	for _, criterion := range m.criteria {
		total += criterion.Points(task, candidate)
	}
	return total
}

func (m *Matcher) confidence(score float64) float64 {
	if m.maxScore <= 0 {
		return 1
	}
	c := score / m.maxScore
	c = math.Max(0, math.Min(1, c))
	return math.Round(c*100) / 100
}

// better reports whether a outranks b
func better(a, b *scoredCandidate) bool {
	if math.Abs(a.score-b.score) > scoreEpsilon {
		return a.score > b.score
	}
	if a.candidate.EffectiveLoad != b.candidate.EffectiveLoad {
		return a.candidate.EffectiveLoad < b.candidate.EffectiveLoad
	}
	return a.candidate.Resource.ID < b.candidate.Resource.ID
}

func (m *Matcher) explain(task *model.Task, best, runnerUp *scoredCandidate, eligible int) string {
	parts := make([]string, 0, len(m.criteria))
	for _, criterion := range m.criteria {
		if text := criterion.Explain(task, best.candidate); text != "" {
			parts = append(parts, text)
		}
	}

	var decided string
	switch {
	case runnerUp == nil:
		decided = "only eligible candidate"
	case math.Abs(best.score-runnerUp.score) > scoreEpsilon:
		decided = fmt.Sprintf("highest score %g of %d eligible", best.score, eligible)
	case best.candidate.EffectiveLoad != runnerUp.candidate.EffectiveLoad:
		decided = fmt.Sprintf("tied at %g, won on lower workload", best.score)
	default:
		decided = fmt.Sprintf("tied at %g, won on resource id", best.score)
	}

	return fmt.Sprintf("selected %s (%s): %s", best.candidate.Resource.ID, decided, strings.Join(parts, " | "))
}

func formatRejections(rejections []Rejection) string {
	parts := make([]string, 0, len(rejections))
	for _, r := range rejections {
		parts = append(parts, fmt.Sprintf("%s: %d", r.CriterionName, r.Count))
	}
	return strings.Join(parts, ", ")
}
