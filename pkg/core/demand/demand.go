package demand

import (
	"context"
	"sort"
	"time"

	"github.com/jakechorley/evs-dispatch/pkg/core/model"
)

// Provider supplies historical demand aggregated from completed work.
// Implementations must compute real aggregates; there is no built-in fallback constant.
type Provider interface {
	// DailyDemand returns the average number of tasks completed per day for each
	// category between since and until
	DailyDemand(ctx context.Context, since, until time.Time) (map[model.Category]float64, error)
}

// Outlook compares pending work in one category against its historical daily demand
type Outlook struct {
	Category      model.Category `json:"category"`
	Pending       int            `json:"pending"`
	ExpectedDaily float64        `json:"expected_daily"`

	// BacklogRatio is Pending / ExpectedDaily; 0 when there is no history
	BacklogRatio float64 `json:"backlog_ratio"`
}

// BuildOutlook summarises pending tasks per category against history.
// Categories appear in ascending order. Categories with history but no pending tasks
// are included so a quiet category is visible as well as a busy one.
func BuildOutlook(pending []model.Task, history map[model.Category]float64) []Outlook {
	counts := make(map[model.Category]int)
	for _, task := range pending {
		counts[task.Category]++
	}
	for category := range history {
		if _, ok := counts[category]; !ok {
			counts[category] = 0
		}
	}

	outlook := make([]Outlook, 0, len(counts))
	for category, count := range counts {
		entry := Outlook{
			Category:      category,
			Pending:       count,
			ExpectedDaily: history[category],
		}
		if entry.ExpectedDaily > 0 {
			entry.BacklogRatio = float64(count) / entry.ExpectedDaily
		}
		outlook = append(outlook, entry)
	}

	sort.Slice(outlook, func(i, j int) bool {
		return outlook[i].Category < outlook[j].Category
	})
	return outlook
}

// Window returns the [since, until) range covering the given number of days before now
func Window(now time.Time, days int) (since, until time.Time) {
	if days < 1 {
		days = 1
	}
	return now.AddDate(0, 0, -days), now
}
