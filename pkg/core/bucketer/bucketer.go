package bucketer

import "github.com/jakechorley/evs-dispatch/pkg/core/model"

// Tier is an operational urgency grouping
type Tier string

const (
	TierImmediate Tier = "Immediate"
	TierUrgent    Tier = "Urgent"
	TierStandard  Tier = "Standard"
)

// Recommended actions per tier
const (
	ActionImmediate = "assign immediately, interrupt lower-priority work if needed"
	ActionUrgent    = "assign within the next 30 minutes"
	ActionStandard  = "schedule based on staff availability and workflow"
)

// Default tier boundaries
const (
	DefaultImmediateAbove = 80
	DefaultUrgentFrom     = 60
)

// Thresholds define the tier boundaries.
// Immediate: score > ImmediateAbove. Urgent: UrgentFrom <= score <= ImmediateAbove.
// Standard: score < UrgentFrom.
type Thresholds struct {
	ImmediateAbove float64
	UrgentFrom     float64
}

// DefaultThresholds returns the standard tier boundaries
func DefaultThresholds() Thresholds {
	return Thresholds{
		ImmediateAbove: DefaultImmediateAbove,
		UrgentFrom:     DefaultUrgentFrom,
	}
}

// ScheduleBucket groups tasks of one tier
type ScheduleBucket struct {
	Tier              Tier     `json:"tier"`
	TaskIDs           []string `json:"task_ids"`
	EstimatedMinutes  int      `json:"estimated_minutes"`
	RecommendedAction string   `json:"recommended_action"`
}

// Item is one scored task to place in a tier
type Item struct {
	Task  *model.Task
	Score float64
}

// Bucketer partitions scored tasks into urgency tiers
type Bucketer struct {
	thresholds Thresholds
}

// NewBucketer creates a bucketer with the given thresholds
func NewBucketer(thresholds Thresholds) *Bucketer {
	return &Bucketer{thresholds: thresholds}
}

// TierFor returns the tier a score belongs to
func (b *Bucketer) TierFor(score float64) Tier {
	switch {
	case score > b.thresholds.ImmediateAbove:
		return TierImmediate
	case score >= b.thresholds.UrgentFrom:
		return TierUrgent
	default:
		return TierStandard
	}
}

// Bucket groups items into the three tiers, always returned in the order
// Immediate, Urgent, Standard. Task order within a tier follows the input order.
func (b *Bucketer) Bucket(items []Item) []ScheduleBucket {
	buckets := []ScheduleBucket{
		{Tier: TierImmediate, TaskIDs: []string{}, RecommendedAction: ActionImmediate},
		{Tier: TierUrgent, TaskIDs: []string{}, RecommendedAction: ActionUrgent},
		{Tier: TierStandard, TaskIDs: []string{}, RecommendedAction: ActionStandard},
	}

	for _, item := range items {
		var bucket *ScheduleBucket
		switch b.TierFor(item.Score) {
		case TierImmediate:
			bucket = &buckets[0]
		case TierUrgent:
			bucket = &buckets[1]
		default:
			bucket = &buckets[2]
		}
		bucket.TaskIDs = append(bucket.TaskIDs, item.Task.ID)
		bucket.EstimatedMinutes += item.Task.EstimatedMinutes()
	}

	return buckets
}

// TotalMinutes sums the estimated minutes of every bucket
func TotalMinutes(buckets []ScheduleBucket) int {
	total := 0
	for _, b := range buckets {
		total += b.EstimatedMinutes
	}
	return total
}
