package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/evs-dispatch/pkg/db"
)

// Append writes an activity record to the activity_log table
func (d *DB) Append(ctx context.Context, record db.ActivityRecord) error {
	id, err := uuid.Parse(record.ID)
	if err != nil {
		return fmt.Errorf("invalid activity record id %q: %w", record.ID, err)
	}

	input, output := record.Input, record.Output
	if len(input) == 0 {
		input = []byte(`{}`)
	}
	if len(output) == 0 {
		output = []byte(`{}`)
	}

	_, err = d.pool.Exec(ctx, `
		INSERT INTO activity_log (id, agent, action, timestamp, input, output, success, error_message, execution_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, record.Agent, record.Action, record.Timestamp.UTC(), string(input), string(output),
		record.Success, record.ErrorMessage, record.ExecutionTimeMs)
	if err != nil {
		return fmt.Errorf("failed to insert activity record: %w", err)
	}
	return nil
}

// RecentActivity returns the most recent activity records, newest first
func (d *DB) RecentActivity(ctx context.Context, limit int) ([]db.ActivityRecord, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id::text, agent, action, timestamp, input::text, output::text, success, error_message, execution_time_ms
		FROM activity_log
		ORDER BY timestamp DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (db.ActivityRecord, error) {
		var r db.ActivityRecord
		var input, output string
		err := row.Scan(&r.ID, &r.Agent, &r.Action, &r.Timestamp, &input, &output, &r.Success, &r.ErrorMessage, &r.ExecutionTimeMs)
		r.Timestamp = r.Timestamp.UTC()
		r.Input = []byte(input)
		r.Output = []byte(output)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan activity record: %w", err)
	}
	return records, nil
}
