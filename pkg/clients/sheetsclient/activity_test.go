package sheetsclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/jakechorley/evs-dispatch/pkg/db"
)

// fakeSheets records appended rows and serves them back on reads
type fakeSheets struct {
	mu       sync.Mutex
	rows     [][]interface{}
	appends  int
	failures int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(map[string]interface{}{"values": f.rows})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		f.appends++
		if f.failures > 0 {
			f.failures--
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":{"code":400,"message":"invalid range"}}`)
			return
		}
		var body struct {
			Values [][]interface{} `json:"values"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.rows = append(f.rows, body.Values...)
		io.WriteString(w, `{}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClientWithOptions(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)
	return client
}

func TestActivitySink_WritesHeaderOnceThenRows(t *testing.T) {
	fake := &fakeSheets{}
	sink := NewActivitySink(newTestClient(t, fake), "sheet-id", "activity!A:I")
	ctx := context.Background()

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, sink.Append(ctx, db.ActivityRecord{
		ID:              "run-1",
		Agent:           "assignment_planner",
		Action:          "plan",
		Timestamp:       ts,
		Input:           json.RawMessage(`{}`),
		Output:          json.RawMessage(`{"total_tasks":2}`),
		Success:         true,
		ExecutionTimeMs: 7,
	}))
	require.NoError(t, sink.Append(ctx, db.ActivityRecord{ID: "run-2", Timestamp: ts}))

	require.Len(t, fake.rows, 3)
	assert.Equal(t, "id", fake.rows[0][0])
	assert.Equal(t, "run-1", fake.rows[1][0])
	assert.Equal(t, "2025-06-01T12:00:00Z", fake.rows[1][1])
	assert.Equal(t, "run-2", fake.rows[2][0])
}

func TestActivitySink_SkipsHeaderWhenSheetHasRows(t *testing.T) {
	fake := &fakeSheets{rows: [][]interface{}{ActivityHeader}}
	sink := NewActivitySink(newTestClient(t, fake), "sheet-id", "activity!A:I")

	require.NoError(t, sink.Append(context.Background(), db.ActivityRecord{ID: "run-1"}))

	require.Len(t, fake.rows, 2)
	assert.Equal(t, 1, fake.appends)
}

func TestActivitySink_AppendError(t *testing.T) {
	fake := &fakeSheets{rows: [][]interface{}{ActivityHeader}, failures: 1}
	sink := NewActivitySink(newTestClient(t, fake), "sheet-id", "activity!A:I")

	err := sink.Append(context.Background(), db.ActivityRecord{ID: "run-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run-1")

	// The next record goes through once the sheet accepts writes again
	require.NoError(t, sink.Append(context.Background(), db.ActivityRecord{ID: "run-2"}))
	assert.Len(t, fake.rows, 2)
}

func TestActivitySink_ImplementsActivityLog(t *testing.T) {
	var _ db.ActivityLog = (*ActivitySink)(nil)
}
