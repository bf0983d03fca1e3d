package postgres

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

	rows, err := d.pool.Query(ctx, `
		SELECT category, COUNT(*)
		FROM task
		WHERE status = 'completed' AND completed_at >= $1 AND completed_at < $2
		GROUP BY category
	`, since.UTC(), until.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query completed tasks: %w", err)
	}
	defer rows.Close()

	demand := make(map[model.Category]float64)
	for rows.Next() {
		var category string
		var count int64
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan demand row: %w", err)
		}
		demand[model.Category(category)] = float64(count) / days
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating demand rows: %w", err)
	}

	return demand, nil
}
