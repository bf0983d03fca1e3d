package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/evs-dispatch/pkg/core/bucketer"
	"github.com/jakechorley/evs-dispatch/pkg/core/matcher"
	"github.com/jakechorley/evs-dispatch/pkg/core/model"
	"github.com/jakechorley/evs-dispatch/pkg/core/planner"
	"github.com/jakechorley/evs-dispatch/pkg/core/scoring"
)

const fullConfig = `
storage:
  driver: postgres
  dsn: postgres://dispatch@localhost/dispatch
activityLog:
  sink: sheets
  spreadsheetID: sheet123
  credentialsFile: creds.json
  queueSize: 16
  retryAttempts: 5
  retryDelay: 500ms
planner:
  fetchTimeout: 5s
  fetchAttempts: 3
  retryDelay: 100ms
  hazardThreshold: intermediate
  maxAssignmentsPerRun: 2
  demandWindowDays: 14
  agent: night_desk
scoring:
  hazard: 50
  priority:
    critical: 35
    low: 5
  categoryClasses:
    - name: deep
      points: 12
      keywords: [terminal]
  maxScore: 120
matching:
  certification:
    basic: 5
  performanceMultiplier: 8
  workload: [20, 10]
buckets:
  immediateAbove: 90
  urgentFrom: 50
shifts:
  - name: day
    rrule: FREQ=DAILY;BYHOUR=7;BYMINUTE=0;BYSECOND=0
    durationHours: 12
  - name: night
    rrule: FREQ=DAILY;BYHOUR=19;BYMINUTE=0;BYSECOND=0
    durationHours: 12
shiftAnchor: 2025-01-01T00:00:00Z
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullConfig))
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, SinkSheets, cfg.ActivitySink())
	assert.Equal(t, DefaultSheetRange, cfg.SheetRange())
	assert.Equal(t, 500*time.Millisecond, cfg.ActivityLog.RetryDelay)
	assert.Equal(t, 5*time.Second, cfg.Planner.FetchTimeout)

	weights, err := cfg.ScoringWeights()
	require.NoError(t, err)
	assert.Equal(t, 50.0, weights.Hazard)
	assert.Equal(t, float64(scoring.PointsOccupied), weights.Occupied)
	assert.Equal(t, 35.0, weights.Priority[model.PriorityHigh])
	assert.Equal(t, 15.0, weights.Priority[model.PriorityMedium])
	assert.Equal(t, 5.0, weights.Priority[model.PriorityLow])
	require.Len(t, weights.CategoryClasses, 1)
	assert.Equal(t, "deep", weights.CategoryClasses[0].Name)
	assert.Equal(t, 120.0, weights.MaxScore)

	matching, err := cfg.MatchingWeights()
	require.NoError(t, err)
	assert.Equal(t, model.CertificationIntermediate, matching.HazardThreshold)
	assert.Equal(t, 2, matching.MaxAssignmentsPerRun)
	assert.Equal(t, 5.0, matching.Certification[model.CertificationBasic])
	assert.Equal(t, 40.0, matching.Certification[model.CertificationAdvanced])
	assert.Equal(t, 8.0, matching.PerformanceMultiplier)
	assert.Equal(t, []float64{20, 10}, matching.Workload)

	assert.Equal(t, bucketer.Thresholds{ImmediateAbove: 90, UrgentFrom: 50}, cfg.Thresholds())

	definitions := cfg.ShiftDefinitions()
	require.Len(t, definitions, 2)
	assert.Equal(t, 12*time.Hour, definitions[0].Duration)
}

func TestPlannerOptions(t *testing.T) {
	cfg, err := Parse([]byte(fullConfig))
	require.NoError(t, err)

	now := time.Date(2025, 3, 4, 21, 0, 0, 0, time.UTC)
	opts, err := cfg.PlannerOptions(func() time.Time { return now })
	require.NoError(t, err)

	assert.Equal(t, now, opts.Clock())
	assert.Equal(t, 5*time.Second, opts.FetchTimeout)
	assert.Equal(t, 3, opts.FetchAttempts)
	assert.Equal(t, 100*time.Millisecond, opts.RetryDelay)
	assert.Equal(t, 14, opts.DemandWindowDays)
	assert.Equal(t, "night_desk", opts.Agent)
	assert.Len(t, opts.Criteria, 6)
	require.NotNil(t, opts.Shifts)
	assert.Equal(t, "night", opts.Shifts.Current(now))
}

func TestPlannerOptions_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("storage:\n  driver: fixtures\n  path: tasks.json\n"))
	require.NoError(t, err)

	opts, err := cfg.PlannerOptions(nil)
	require.NoError(t, err)

	defaults := planner.DefaultOptions()
	assert.Equal(t, defaults.FetchTimeout, opts.FetchTimeout)
	assert.Equal(t, defaults.DemandWindowDays, opts.DemandWindowDays)
	assert.Equal(t, planner.DefaultAgent, opts.Agent)
	assert.Equal(t, scoring.DefaultWeights(), opts.ScoringWeights)
	assert.Equal(t, bucketer.DefaultThresholds(), opts.Thresholds)
	assert.Nil(t, opts.Shifts)
	assert.Equal(t, SinkDatabase, cfg.ActivitySink())

	matching, err := cfg.MatchingWeights()
	require.NoError(t, err)
	assert.Equal(t, matcher.DefaultWeights(), matching)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		message string
	}{
		{
			name:    "missing storage driver",
			yaml:    "storage: {}\n",
			message: "config validation failed",
		},
		{
			name:    "unknown driver",
			yaml:    "storage:\n  driver: mongo\n",
			message: "config validation failed",
		},
		{
			name:    "postgres without dsn",
			yaml:    "storage:\n  driver: postgres\n",
			message: "DSN",
		},
		{
			name:    "sqlite without path",
			yaml:    "storage:\n  driver: sqlite\n",
			message: "Path",
		},
		{
			name:    "sheets sink without spreadsheet",
			yaml:    "storage:\n  driver: sqlite\n  path: x.db\nactivityLog:\n  sink: sheets\n  credentialsFile: c.json\n",
			message: "SpreadsheetID",
		},
		{
			name:    "bad rrule",
			yaml:    "storage:\n  driver: sqlite\n  path: x.db\nshifts:\n  - name: day\n    rrule: FREQ=SOMETIMES\n    durationHours: 8\n",
			message: "invalid rrule in shifts[0]",
		},
		{
			name:    "zero shift duration",
			yaml:    "storage:\n  driver: sqlite\n  path: x.db\nshifts:\n  - name: day\n    rrule: FREQ=DAILY\n",
			message: "DurationHours",
		},
		{
			name:    "bad hazard threshold",
			yaml:    "storage:\n  driver: sqlite\n  path: x.db\nplanner:\n  hazardThreshold: expert\n",
			message: "planner.hazardThreshold",
		},
		{
			name:    "unknown priority weight",
			yaml:    "storage:\n  driver: sqlite\n  path: x.db\nscoring:\n  priority:\n    urgent: 10\n",
			message: "scoring.priority",
		},
		{
			name:    "unknown certification weight",
			yaml:    "storage:\n  driver: sqlite\n  path: x.db\nmatching:\n  certification:\n    expert: 10\n",
			message: "matching.certification",
		},
		{
			name:    "inverted buckets",
			yaml:    "storage:\n  driver: sqlite\n  path: x.db\nbuckets:\n  immediateAbove: 40\n",
			message: "buckets.urgentFrom",
		},
		{
			name:    "bad anchor",
			yaml:    "storage:\n  driver: sqlite\n  path: x.db\nshiftAnchor: yesterday\n",
			message: "invalid shiftAnchor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatch_config.test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fullConfig), 0o644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "sheet123", cfg.ActivityLog.SpreadsheetID)

	_, err = LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoadWithEnv_FallsBackToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	_, err := LoadWithEnv("test")
	assert.ErrorContains(t, err, "dispatch_config.test.yaml not found")

	require.NoError(t, os.WriteFile(filepath.Join(home, "dispatch_config.test.yaml"), []byte(fullConfig), 0o644))
	cfg, err := LoadWithEnv("test")
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
}
