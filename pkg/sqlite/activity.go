package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jakechorley/evs-dispatch/pkg/db"
)

// Append writes an activity record to the activity_log table
func (d *DB) Append(ctx context.Context, record db.ActivityRecord) error {
	input, output := string(record.Input), string(record.Output)
	if input == "" {
		input = "{}"
	}
	if output == "" {
		output = "{}"
	}

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO activity_log (id, agent, action, timestamp, input, output, success, error_message, execution_time_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.Agent, record.Action, record.Timestamp.UTC().Format(timeLayout), input, output,
		record.Success, record.ErrorMessage, record.ExecutionTimeMs)
	if err != nil {
		return fmt.Errorf("inserting activity record: %w", err)
	}
	return nil
}

// RecentActivity returns the most recent activity records, newest first
func (d *DB) RecentActivity(ctx context.Context, limit int) ([]db.ActivityRecord, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, agent, action, timestamp, input, output, success, error_message, execution_time_ms
		FROM activity_log
		ORDER BY timestamp DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying activity: %w", err)
	}
	defer rows.Close()

	var records []db.ActivityRecord
	for rows.Next() {
		var r db.ActivityRecord
		var timestamp, input, output string
		if err := rows.Scan(&r.ID, &r.Agent, &r.Action, &timestamp, &input, &output, &r.Success, &r.ErrorMessage, &r.ExecutionTimeMs); err != nil {
			return nil, fmt.Errorf("scanning activity record: %w", err)
		}
		if r.Timestamp, err = time.Parse(timeLayout, timestamp); err != nil {
			return nil, fmt.Errorf("parsing activity timestamp: %w", err)
		}
		r.Input = []byte(input)
		r.Output = []byte(output)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity: %w", err)
	}
	return records, nil
}
