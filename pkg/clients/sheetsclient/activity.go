package sheetsclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/jakechorley/evs-dispatch/pkg/db"
)

// ActivityHeader is the header row written to an empty activity sheet
var ActivityHeader = []interface{}{
	"id", "timestamp", "agent", "action", "input", "output", "success", "error_message", "execution_time_ms",
}

// ActivitySink appends activity records as rows of a spreadsheet tab
type ActivitySink struct {
	client        *Client
	spreadsheetID string
	sheetRange    string

	mu          sync.Mutex
	headerReady bool
}

// NewActivitySink creates a sink writing to sheetRange (e.g. "activity!A:I")
func NewActivitySink(client *Client, spreadsheetID, sheetRange string) *ActivitySink {
	return &ActivitySink{
		client:        client,
		spreadsheetID: spreadsheetID,
		sheetRange:    sheetRange,
	}
}

// Append writes one record as a row, adding the header first if the tab is empty
func (s *ActivitySink) Append(ctx context.Context, record db.ActivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.headerReady {
		if err := s.ensureHeader(ctx); err != nil {
			return fmt.Errorf("failed to prepare activity sheet: %w", err)
		}
		s.headerReady = true
	}

	if err := s.client.AppendRows(ctx, s.spreadsheetID, s.sheetRange, [][]interface{}{record.Row()}); err != nil {
		return fmt.Errorf("failed to append activity record %s: %w", record.ID, err)
	}
	return nil
}

func (s *ActivitySink) ensureHeader(ctx context.Context) error {
	values, err := s.client.GetValues(ctx, s.spreadsheetID, s.sheetRange)
	if err != nil {
		return err
	}
	if len(values) > 0 {
		return nil
	}
	return s.client.AppendRows(ctx, s.spreadsheetID, s.sheetRange, [][]interface{}{ActivityHeader})
}
