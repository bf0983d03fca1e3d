package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jakechorley/evs-dispatch/pkg/core/model"
)

// DailyDemand averages tasks completed per day for each category in [since, until)
func (d *DB) DailyDemand(ctx context.Context, since, until time.Time) (map[model.Category]float64, error) {
	days := until.Sub(since).Hours() / 24
	if days <= 0 {
		return nil, fmt.Errorf("invalid demand window %s to %s", since, until)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT category, COUNT(*)
		FROM task
		WHERE status = 'completed' AND completed_at >= ? AND completed_at < ?
		GROUP BY category
	`, since.UTC().Format(timeLayout), until.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("querying completed tasks: %w", err)
	}
	defer rows.Close()

	demand := make(map[model.Category]float64)
	for rows.Next() {
		var category string
		var count int64
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("scanning demand row: %w", err)
		}
		demand[model.Category(category)] = float64(count) / days
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating demand rows: %w", err)
	}
	return demand, nil
}
