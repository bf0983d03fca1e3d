package scoring

import "github.com/jakechorley/evs-dispatch/pkg/core/model"

// Default factor points. These reproduce the operational weighting used by the
// dispatch desk and are overridable from configuration.
const (
	// PointsHazard is awarded to tasks that require an isolation or biohazard protocol
	PointsHazard = 40

	// PointsOccupied is awarded when the area or asset is currently in use
	PointsOccupied = 20

	// PointsOverdue is awarded when the scheduled time has already passed
	PointsOverdue = 20

	// MaxScore caps the summed factor points
	MaxScore = 100
)

// CategoryClass awards points to categories containing any of its keywords.
// Classes are evaluated in order and the first match wins.
type CategoryClass struct {
	Name     string
	Points   float64
	Keywords []string
}

// Weights is the declarative weight table driving the scorer
type Weights struct {
	Hazard   float64
	Occupied float64
	Overdue  float64

	// Priority maps each declared priority to its points
	Priority map[model.Priority]float64

	// CategoryClasses are mutually exclusive category bonuses
	CategoryClasses []CategoryClass

	MaxScore float64
}

// DefaultWeights returns the standard weight table
func DefaultWeights() Weights {
	return Weights{
		Hazard:   PointsHazard,
		Occupied: PointsOccupied,
		Overdue:  PointsOverdue,
		Priority: map[model.Priority]float64{
			model.PriorityHigh:   30,
			model.PriorityMedium: 15,
			model.PriorityLow:    0,
		},
		CategoryClasses: []CategoryClass{
			{Name: "deep_terminal", Points: 15, Keywords: []string{"terminal", "deep"}},
			{Name: "urgent_stat", Points: 10, Keywords: []string{"stat", "urgent"}},
		},
		MaxScore: MaxScore,
	}
}
