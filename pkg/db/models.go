package db

import (
	"encoding/json"
	"time"
)

// ActivityRecord is one entry in the audit trail of planning runs
type ActivityRecord struct {
	ID              string
	Agent           string
	Action          string
	Timestamp       time.Time
	Input           json.RawMessage
	Output          json.RawMessage
	Success         bool
	ErrorMessage    string
	ExecutionTimeMs int64
}

// Row renders the record as a flat row of cells, in the column order used by tabular sinks
func (r ActivityRecord) Row() []interface{} {
	return []interface{}{
		r.ID,
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Agent,
		r.Action,
		string(r.Input),
		string(r.Output),
		r.Success,
		r.ErrorMessage,
		r.ExecutionTimeMs,
	}
}
