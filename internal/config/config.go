package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/evs-dispatch/pkg/core/bucketer"
	"github.com/jakechorley/evs-dispatch/pkg/core/matcher"
	"github.com/jakechorley/evs-dispatch/pkg/core/matcher/criteria"
	"github.com/jakechorley/evs-dispatch/pkg/core/model"
	"github.com/jakechorley/evs-dispatch/pkg/core/planner"
	"github.com/jakechorley/evs-dispatch/pkg/core/scoring"
	"github.com/jakechorley/evs-dispatch/pkg/core/shifts"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverFixtures = "fixtures"
)

// Activity log sinks
const (
	SinkDatabase = "database"
	SinkSheets   = "sheets"
	SinkNone     = "none"
)

// DefaultSheetRange is the tab and columns activity rows are appended to
const DefaultSheetRange = "activity!A:I"

// defaultShiftAnchor is the first occurrence shift rules are generated from
var defaultShiftAnchor = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// StorageConfig selects where tasks and resources live
type StorageConfig struct {
	Driver string `yaml:"driver" validate:"required,oneof=postgres sqlite fixtures"`
	DSN    string `yaml:"dsn,omitempty" validate:"required_if=Driver postgres"`
	// Path is the SQLite database file or the JSON fixture file
	Path string `yaml:"path,omitempty" validate:"required_if=Driver sqlite,required_if=Driver fixtures"`
}

// ActivityLogConfig selects where planning runs are recorded
type ActivityLogConfig struct {
	Sink            string        `yaml:"sink,omitempty" validate:"omitempty,oneof=database sheets none"`
	SpreadsheetID   string        `yaml:"spreadsheetID,omitempty" validate:"required_if=Sink sheets"`
	SheetRange      string        `yaml:"sheetRange,omitempty"`
	CredentialsFile string        `yaml:"credentialsFile,omitempty" validate:"required_if=Sink sheets"`
	QueueSize       int           `yaml:"queueSize,omitempty" validate:"omitempty,min=1"`
	RetryAttempts   int           `yaml:"retryAttempts,omitempty" validate:"omitempty,min=1"`
	RetryDelay      time.Duration `yaml:"retryDelay,omitempty" validate:"omitempty,min=0"`
}

// PlannerConfig tunes a planning run
type PlannerConfig struct {
	FetchTimeout         time.Duration `yaml:"fetchTimeout,omitempty" validate:"omitempty,min=0"`
	FetchAttempts        int           `yaml:"fetchAttempts,omitempty" validate:"omitempty,min=1"`
	RetryDelay           time.Duration `yaml:"retryDelay,omitempty" validate:"omitempty,min=0"`
	HazardThreshold      string        `yaml:"hazardThreshold,omitempty"`
	MaxAssignmentsPerRun int           `yaml:"maxAssignmentsPerRun,omitempty" validate:"omitempty,min=1"`
	DemandWindowDays     int           `yaml:"demandWindowDays,omitempty" validate:"omitempty,min=1"`
	Agent                string        `yaml:"agent,omitempty"`
}

// CategoryClassConfig is one keyword-matched category bonus
type CategoryClassConfig struct {
	Name     string   `yaml:"name" validate:"required"`
	Points   float64  `yaml:"points" validate:"min=0"`
	Keywords []string `yaml:"keywords" validate:"required,min=1,dive,required"`
}

// ScoringConfig overrides the priority score weight table
type ScoringConfig struct {
	Hazard          *float64              `yaml:"hazard,omitempty" validate:"omitempty,min=0"`
	Occupied        *float64              `yaml:"occupied,omitempty" validate:"omitempty,min=0"`
	Overdue         *float64              `yaml:"overdue,omitempty" validate:"omitempty,min=0"`
	Priority        map[string]float64    `yaml:"priority,omitempty" validate:"omitempty,dive,min=0"`
	CategoryClasses []CategoryClassConfig `yaml:"categoryClasses,omitempty" validate:"dive"`
	MaxScore        *float64              `yaml:"maxScore,omitempty" validate:"omitempty,gt=0"`
}

// MatchingConfig overrides the soft ranking points
type MatchingConfig struct {
	Certification         map[string]float64 `yaml:"certification,omitempty" validate:"omitempty,dive,min=0"`
	PerformanceMultiplier *float64           `yaml:"performanceMultiplier,omitempty" validate:"omitempty,min=0"`
	Workload              []float64          `yaml:"workload,omitempty" validate:"omitempty,dive,min=0"`
}

// BucketsConfig overrides the tier boundaries
type BucketsConfig struct {
	ImmediateAbove *float64 `yaml:"immediateAbove,omitempty"`
	UrgentFrom     *float64 `yaml:"urgentFrom,omitempty"`
}

// ShiftConfig is one recurring shift window
type ShiftConfig struct {
	Name          string  `yaml:"name" validate:"required"`
	RRule         string  `yaml:"rrule" validate:"required"`
	DurationHours float64 `yaml:"durationHours" validate:"gt=0,lte=24"`
}

// Config represents the application configuration
type Config struct {
	Storage     StorageConfig     `yaml:"storage" validate:"required"`
	ActivityLog ActivityLogConfig `yaml:"activityLog,omitempty"`
	Planner     PlannerConfig     `yaml:"planner,omitempty"`
	Scoring     ScoringConfig     `yaml:"scoring,omitempty"`
	Matching    MatchingConfig    `yaml:"matching,omitempty"`
	Buckets     BucketsConfig     `yaml:"buckets,omitempty"`
	Shifts      []ShiftConfig     `yaml:"shifts,omitempty" validate:"dive"`
	// ShiftAnchor is the RFC3339 instant shift rules start from
	ShiftAnchor string `yaml:"shiftAnchor,omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadWithEnv loads dispatch_config.<env>.yaml from the current directory or the home directory
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(fmt.Sprintf("dispatch_config.%s.yaml", env))
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates YAML configuration
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags, shift rrules and the values that need parsing
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	for i, s := range cfg.Shifts {
		if _, err := rrule.StrToRRule(s.RRule); err != nil {
			return fmt.Errorf("invalid rrule in shifts[%d]: %w", i, err)
		}
	}
	if _, err := cfg.shiftAnchor(); err != nil {
		return err
	}

	if _, err := cfg.ScoringWeights(); err != nil {
		return err
	}
	if _, err := cfg.MatchingWeights(); err != nil {
		return err
	}

	thresholds := cfg.Thresholds()
	if thresholds.UrgentFrom > thresholds.ImmediateAbove {
		return fmt.Errorf("buckets.urgentFrom (%v) must not exceed buckets.immediateAbove (%v)",
			thresholds.UrgentFrom, thresholds.ImmediateAbove)
	}

	return nil
}

// ScoringWeights returns the default weight table with configured overrides applied
func (c *Config) ScoringWeights() (scoring.Weights, error) {
	weights := scoring.DefaultWeights()
	s := c.Scoring

	if s.Hazard != nil {
		weights.Hazard = *s.Hazard
	}
	if s.Occupied != nil {
		weights.Occupied = *s.Occupied
	}
	if s.Overdue != nil {
		weights.Overdue = *s.Overdue
	}
	if s.MaxScore != nil {
		weights.MaxScore = *s.MaxScore
	}

	for raw, points := range s.Priority {
		if raw == "" {
			return weights, fmt.Errorf("scoring.priority: empty priority key")
		}
		priority, err := model.ParsePriority(raw)
		if err != nil {
			return weights, fmt.Errorf("scoring.priority: %w", err)
		}
		weights.Priority[priority] = points
	}

	if len(s.CategoryClasses) > 0 {
		weights.CategoryClasses = make([]scoring.CategoryClass, len(s.CategoryClasses))
		for i, class := range s.CategoryClasses {
			weights.CategoryClasses[i] = scoring.CategoryClass{
				Name:     class.Name,
				Points:   class.Points,
				Keywords: class.Keywords,
			}
		}
	}

	return weights, nil
}

// MatchingWeights returns the default matching weights with configured overrides applied
func (c *Config) MatchingWeights() (matcher.Weights, error) {
	weights := matcher.DefaultWeights()

	if c.Planner.HazardThreshold != "" {
		level, err := model.ParseCertificationLevel(c.Planner.HazardThreshold)
		if err != nil {
			return weights, fmt.Errorf("planner.hazardThreshold: %w", err)
		}
		weights.HazardThreshold = level
	}
	if c.Planner.MaxAssignmentsPerRun > 0 {
		weights.MaxAssignmentsPerRun = c.Planner.MaxAssignmentsPerRun
	}

	m := c.Matching
	for raw, points := range m.Certification {
		level, err := model.ParseCertificationLevel(raw)
		if err != nil {
			return weights, fmt.Errorf("matching.certification: %w", err)
		}
		weights.Certification[level] = points
	}
	if m.PerformanceMultiplier != nil {
		weights.PerformanceMultiplier = *m.PerformanceMultiplier
	}
	if len(m.Workload) > 0 {
		weights.Workload = m.Workload
	}

	return weights, nil
}

// Thresholds returns the tier boundaries with configured overrides applied
func (c *Config) Thresholds() bucketer.Thresholds {
	thresholds := bucketer.DefaultThresholds()
	if c.Buckets.ImmediateAbove != nil {
		thresholds.ImmediateAbove = *c.Buckets.ImmediateAbove
	}
	if c.Buckets.UrgentFrom != nil {
		thresholds.UrgentFrom = *c.Buckets.UrgentFrom
	}
	return thresholds
}

// ShiftDefinitions converts the configured shifts
func (c *Config) ShiftDefinitions() []shifts.Definition {
	definitions := make([]shifts.Definition, len(c.Shifts))
	for i, s := range c.Shifts {
		definitions[i] = shifts.Definition{
			Name:     s.Name,
			RRule:    s.RRule,
			Duration: time.Duration(s.DurationHours * float64(time.Hour)),
		}
	}
	return definitions
}

func (c *Config) shiftAnchor() (time.Time, error) {
	if c.ShiftAnchor == "" {
		return defaultShiftAnchor, nil
	}
	anchor, err := time.Parse(time.RFC3339, c.ShiftAnchor)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid shiftAnchor: %w", err)
	}
	return anchor, nil
}

// PlannerOptions assembles planner options from the configuration
func (c *Config) PlannerOptions(clock func() time.Time) (planner.Options, error) {
	opts := planner.DefaultOptions()
	if clock != nil {
		opts.Clock = clock
	}

	scoringWeights, err := c.ScoringWeights()
	if err != nil {
		return opts, err
	}
	matchingWeights, err := c.MatchingWeights()
	if err != nil {
		return opts, err
	}

	opts.ScoringWeights = scoringWeights
	opts.Criteria = criteria.Default(matchingWeights)
	opts.Thresholds = c.Thresholds()

	p := c.Planner
	if p.FetchTimeout > 0 {
		opts.FetchTimeout = p.FetchTimeout
	}
	if p.FetchAttempts > 0 {
		opts.FetchAttempts = p.FetchAttempts
	}
	if p.RetryDelay > 0 {
		opts.RetryDelay = p.RetryDelay
	}
	if p.DemandWindowDays > 0 {
		opts.DemandWindowDays = p.DemandWindowDays
	}
	if p.Agent != "" {
		opts.Agent = p.Agent
	}

	if len(c.Shifts) > 0 {
		anchor, err := c.shiftAnchor()
		if err != nil {
			return opts, err
		}
		resolver, err := shifts.NewResolver(c.ShiftDefinitions(), anchor)
		if err != nil {
			return opts, fmt.Errorf("failed to build shift resolver: %w", err)
		}
		opts.Shifts = resolver
	}

	return opts, nil
}

// ActivitySink returns the configured sink, defaulting to the storage database
func (c *Config) ActivitySink() string {
	if c.ActivityLog.Sink == "" {
		return SinkDatabase
	}
	return c.ActivityLog.Sink
}

// SheetRange returns the configured activity sheet range or the default
func (c *Config) SheetRange() string {
	if c.ActivityLog.SheetRange == "" {
		return DefaultSheetRange
	}
	return c.ActivityLog.SheetRange
}

// findConfigFile searches for the config file in the current directory and home directory
func findConfigFile(configFileName string) (string, error) {
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", configFileName)
}
