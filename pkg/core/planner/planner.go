package planner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/evs-dispatch/pkg/core/bucketer"
	"github.com/jakechorley/evs-dispatch/pkg/core/demand"
	"github.com/jakechorley/evs-dispatch/pkg/core/matcher"
	"github.com/jakechorley/evs-dispatch/pkg/core/matcher/criteria"
	"github.com/jakechorley/evs-dispatch/pkg/core/model"
	"github.com/jakechorley/evs-dispatch/pkg/core/scoring"
	"github.com/jakechorley/evs-dispatch/pkg/core/shifts"
	"github.com/jakechorley/evs-dispatch/pkg/db"
)

const (
	// DefaultFetchTimeout bounds each store fetch
	DefaultFetchTimeout = 10 * time.Second

	// DefaultDemandWindowDays is how far back demand history is aggregated
	DefaultDemandWindowDays = 28

	// DefaultAgent identifies planning runs in the activity log
	DefaultAgent = "assignment_planner"

	actionPlan = "plan"
)

// Dependencies are the collaborators a planner reads from.
// Demand is optional; a nil Logger is replaced with a no-op logger.
type Dependencies struct {
	Tasks     db.TaskStore
	Resources db.ResourceStore
	Activity  db.ActivityLog
	Demand    demand.Provider
	Logger    *zap.Logger
}

// Options tune a planner. Zero values fall back to DefaultOptions.
type Options struct {
	// Clock supplies "now" for scoring and timestamps
	Clock func() time.Time

	ScoringWeights scoring.Weights

	// Criteria is the matching criteria set; nil uses criteria.Default(matcher.DefaultWeights())
	Criteria []matcher.Criterion

	Thresholds bucketer.Thresholds

	FetchTimeout time.Duration

	// FetchAttempts is the number of tries per fetch before the store counts as unavailable
	FetchAttempts int
	RetryDelay    time.Duration

	DemandWindowDays int

	// Shifts resolves the "current" shift criteria value; nil leaves shift values untouched
	Shifts *shifts.Resolver

	Agent string
}

// DefaultOptions returns options reproducing the standard dispatch behaviour
func DefaultOptions() Options {
	return Options{
		Clock:            time.Now,
		ScoringWeights:   scoring.DefaultWeights(),
		Criteria:         criteria.Default(matcher.DefaultWeights()),
		Thresholds:       bucketer.DefaultThresholds(),
		FetchTimeout:     DefaultFetchTimeout,
		FetchAttempts:    1,
		RetryDelay:       200 * time.Millisecond,
		DemandWindowDays: DefaultDemandWindowDays,
		Agent:            DefaultAgent,
	}
}

func (o Options) withDefaults() Options {
	defaults := DefaultOptions()
	if o.Clock == nil {
		o.Clock = defaults.Clock
	}
	if o.ScoringWeights.MaxScore <= 0 {
		o.ScoringWeights = defaults.ScoringWeights
	}
	if o.Criteria == nil {
		o.Criteria = defaults.Criteria
	}
	if o.Thresholds == (bucketer.Thresholds{}) {
		o.Thresholds = defaults.Thresholds
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = defaults.FetchTimeout
	}
	if o.FetchAttempts < 1 {
		o.FetchAttempts = defaults.FetchAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = defaults.RetryDelay
	}
	if o.DemandWindowDays < 1 {
		o.DemandWindowDays = defaults.DemandWindowDays
	}
	if o.Agent == "" {
		o.Agent = defaults.Agent
	}
	return o
}

// Criteria selects which pending tasks and which resources a run considers.
// Empty fields match everything.
type Criteria struct {
	Location string         `json:"location,omitempty"`
	Category model.Category `json:"category,omitempty"`
	Priority model.Priority `json:"priority,omitempty"`

	// Shift filters resources; "current" is resolved against the configured shifts
	Shift string `json:"shift,omitempty"`
}

// Entry is one planned task: the task, its score and the recommended assignment
type Entry struct {
	Task       model.Task          `json:"task"`
	Score      model.PriorityScore `json:"score"`
	Assignment model.Assignment    `json:"assignment"`
	Tier       bucketer.Tier       `json:"tier"`
}

// Plan is the advisory output of one run. Nothing in it has been persisted.
type Plan struct {
	RunID       string    `json:"run_id"`
	Criteria    Criteria  `json:"criteria"`
	GeneratedAt time.Time `json:"generated_at"`

	// ResolvedShift is the shift resources were fetched for, after resolving "current"
	ResolvedShift string `json:"resolved_shift,omitempty"`

	// Entries are ordered by descending score, then earlier creation, then task id
	Entries []Entry `json:"entries"`

	Buckets               []bucketer.ScheduleBucket `json:"buckets"`
	TotalEstimatedMinutes int                       `json:"total_estimated_minutes"`

	Assigned   int `json:"assigned"`
	Unassigned int `json:"unassigned"`

	// Partial is set when the run was cancelled before every task was matched.
	// Entries then holds only the tasks processed before cancellation.
	Partial       bool   `json:"partial"`
	PartialReason string `json:"partial_reason,omitempty"`
	Unprocessed   int    `json:"unprocessed,omitempty"`

	// DegradedTasks counts tasks that could not be scored and were given a zero score
	DegradedTasks int `json:"degraded_tasks"`

	DemandOutlook []demand.Outlook `json:"demand_outlook,omitempty"`

	// Notes records non-fatal problems encountered during the run
	Notes []string `json:"notes,omitempty"`
}

// Planner produces assignment plans from a task store and a resource store
type Planner struct {
	deps     Dependencies
	opts     Options
	scorer   *scoring.Scorer
	matcher  *matcher.Matcher
	bucketer *bucketer.Bucketer
	logger   *zap.Logger
}

// NewPlanner creates a planner with injected collaborators
func NewPlanner(deps Dependencies, opts Options) (*Planner, error) {
	if deps.Tasks == nil {
		return nil, fmt.Errorf("task store is required")
	}
	if deps.Resources == nil {
		return nil, fmt.Errorf("resource store is required")
	}
	opts = opts.withDefaults()

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Planner{
		deps:     deps,
		opts:     opts,
		scorer:   scoring.NewScorer(opts.ScoringWeights),
		matcher:  matcher.NewMatcher(opts.Criteria),
		bucketer: bucketer.NewBucketer(opts.Thresholds),
		logger:   logger,
	}, nil
}

// Plan scores every pending task matching the criteria, orders them, and recommends a
// resource for each in order against a private snapshot of the resource pool.
//
// A store fetch failure, including a fetch timeout, returns a *StoreUnavailableError and
// no plan. Zero pending tasks returns an empty, successful plan. Cancellation by the caller,
// during a fetch or between matches, returns the partial plan with Partial set and a nil
// error. The planner never writes to the stores.
func (p *Planner) Plan(ctx context.Context, c Criteria) (*Plan, error) {
	started := time.Now()
	now := p.opts.Clock()
	plan := &Plan{
		RunID:       uuid.New().String(),
		Criteria:    c,
		GeneratedAt: now,
	}
	logger := p.logger.With(zap.String("run_id", plan.RunID))
	logger.Debug("Starting planning run",
		zap.String("location", c.Location),
		zap.String("category", string(c.Category)),
		zap.String("priority", string(c.Priority)),
		zap.String("shift", c.Shift))

	filter := db.TaskFilter{Location: c.Location, Category: c.Category, Priority: c.Priority}
	tasks, err := fetch(ctx, p.opts, func(ctx context.Context) ([]model.Task, error) {
		return p.deps.Tasks.FetchPending(ctx, filter)
	})
	if err != nil && ctx.Err() != nil {
		return p.cancelledDuringFetch(ctx, logger, plan, started, "tasks", 0), nil
	}
	if err != nil {
		failure := &StoreUnavailableError{Store: "tasks", Err: err}
		logger.Error("Failed to fetch pending tasks", zap.Error(err))
		p.recordActivity(ctx, logger, plan, started, failure)
		return nil, failure
	}
	logger.Debug("Fetched pending tasks", zap.Int("count", len(tasks)))

	if len(tasks) == 0 {
		plan.Entries = []Entry{}
		plan.Buckets = p.bucketer.Bucket(nil)
		logger.Info("No pending tasks matched the criteria")
		p.recordActivity(ctx, logger, plan, started, nil)
		return plan, nil
	}

	entries := p.scoreTasks(tasks, now, logger)
	sortEntries(entries)
	for _, e := range entries {
		if e.Score.Degraded {
			plan.DegradedTasks++
		}
	}

	plan.ResolvedShift = p.resolveShift(plan, c.Shift, now)
	resources, err := fetch(ctx, p.opts, func(ctx context.Context) ([]model.Resource, error) {
		return p.deps.Resources.FetchAvailable(ctx, plan.ResolvedShift)
	})
	if err != nil && ctx.Err() != nil {
		return p.cancelledDuringFetch(ctx, logger, plan, started, "resources", len(entries)), nil
	}
	if err != nil {
		failure := &StoreUnavailableError{Store: "resources", Err: err}
		logger.Error("Failed to fetch resources", zap.Error(err))
		p.recordActivity(ctx, logger, plan, started, failure)
		return nil, failure
	}
	logger.Debug("Fetched resources", zap.Int("count", len(resources)), zap.String("shift", plan.ResolvedShift))

	snapshot := make([]*matcher.Candidate, 0, len(resources))
	for _, r := range resources {
		snapshot = append(snapshot, matcher.NewCandidate(r))
	}

	plan.Entries = make([]Entry, 0, len(entries))
	for i := range entries {
		if err := ctx.Err(); err != nil {
			plan.Partial = true
			plan.PartialReason = fmt.Sprintf("cancelled after %d of %d tasks: %v", i, len(entries), err)
			plan.Unprocessed = len(entries) - i
			logger.Warn("Planning run cancelled, returning partial plan",
				zap.Int("processed", i),
				zap.Int("total", len(entries)))
			break
		}

		entry := entries[i]
		result := p.matcher.Match(&entry.Task, snapshot)
		entry.Assignment = result.Assignment(entry.Task.ID, now)
		if result.Matched() {
			result.Chosen.EffectiveLoad++
			result.Chosen.RunAssignments++
			plan.Assigned++
		} else {
			plan.Unassigned++
		}
		logger.Debug("Matched task",
			zap.String("task_id", entry.Task.ID),
			zap.Float64("score", entry.Score.Value),
			zap.String("resource_id", entry.Assignment.ResourceID),
			zap.String("reasoning", entry.Assignment.Reasoning))
		plan.Entries = append(plan.Entries, entry)
	}

	items := make([]bucketer.Item, len(plan.Entries))
	for i := range plan.Entries {
		plan.Entries[i].Tier = p.bucketer.TierFor(plan.Entries[i].Score.Value)
		items[i] = bucketer.Item{Task: &plan.Entries[i].Task, Score: plan.Entries[i].Score.Value}
	}
	plan.Buckets = p.bucketer.Bucket(items)
	plan.TotalEstimatedMinutes = bucketer.TotalMinutes(plan.Buckets)

	p.attachOutlook(ctx, logger, plan, tasks, now)

	logger.Info("Planning run complete",
		zap.Int("tasks", len(plan.Entries)),
		zap.Int("assigned", plan.Assigned),
		zap.Int("unassigned", plan.Unassigned),
		zap.Bool("partial", plan.Partial))

	p.recordActivity(ctx, logger, plan, started, nil)
	return plan, nil
}

// cancelledDuringFetch finishes a run whose caller cancelled while a store was being read.
// No task has been matched yet.
func (p *Planner) cancelledDuringFetch(ctx context.Context, logger *zap.Logger, plan *Plan, started time.Time, store string, unprocessed int) *Plan {
	plan.Entries = []Entry{}
	plan.Buckets = p.bucketer.Bucket(nil)
	plan.Partial = true
	plan.PartialReason = fmt.Sprintf("cancelled while fetching %s: %v", store, ctx.Err())
	plan.Unprocessed = unprocessed
	logger.Warn("Planning run cancelled during fetch, returning partial plan",
		zap.String("store", store),
		zap.Int("unprocessed", unprocessed))
	p.recordActivity(ctx, logger, plan, started, nil)
	return plan
}

// scoreTasks scores every task. A failing or panicking score degrades only that task.
func (p *Planner) scoreTasks(tasks []model.Task, now time.Time, logger *zap.Logger) []Entry {
	entries := make([]Entry, 0, len(tasks))
	for _, task := range tasks {
		score, err := p.safeScore(&task, now)
		if err != nil {
			logger.Warn("Failed to score task, using degraded score",
				zap.String("task_id", task.ID),
				zap.Error(err))
			score = model.PriorityScore{
				TaskID:     task.ID,
				Value:      0,
				Notes:      []string{fmt.Sprintf("scoring failed: %v", err)},
				Degraded:   true,
				ComputedAt: now,
			}
		}
		entries = append(entries, Entry{Task: task, Score: score})
	}
	return entries
}

func (p *Planner) safeScore(task *model.Task, now time.Time) (score model.PriorityScore, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while scoring: %v", r)
		}
	}()
	return p.scorer.Score(task, now)
}

// sortEntries orders by descending score, then earlier created_at, then ascending task id
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score.Value != b.Score.Value {
			return a.Score.Value > b.Score.Value
		}
		if !a.Task.CreatedAt.Equal(b.Task.CreatedAt) {
			return a.Task.CreatedAt.Before(b.Task.CreatedAt)
		}
		return a.Task.ID < b.Task.ID
	})
}

// resolveShift maps the criteria shift to the value passed to the resource store.
// An unresolvable "current" falls back to every shift and leaves a note on the plan.
func (p *Planner) resolveShift(plan *Plan, shift string, now time.Time) string {
	if shift != shifts.CurrentShift {
		return shift
	}
	if p.opts.Shifts == nil {
		plan.Notes = append(plan.Notes, "no shift definitions configured, resources fetched for every shift")
		return ""
	}
	resolved := p.opts.Shifts.Resolve(shift, now)
	if resolved == "" {
		plan.Notes = append(plan.Notes, "no configured shift is running, resources fetched for every shift")
	}
	return resolved
}

func (p *Planner) attachOutlook(ctx context.Context, logger *zap.Logger, plan *Plan, pending []model.Task, now time.Time) {
	if p.deps.Demand == nil {
		return
	}
	since, until := demand.Window(now, p.opts.DemandWindowDays)
	history, err := p.deps.Demand.DailyDemand(ctx, since, until)
	if err != nil {
		logger.Warn("Failed to load demand history", zap.Error(err))
		plan.Notes = append(plan.Notes, fmt.Sprintf("demand outlook unavailable: %v", err))
		return
	}
	plan.DemandOutlook = demand.BuildOutlook(pending, history)
}

// fetch runs a store call bounded by the fetch timeout, retrying up to FetchAttempts times
func fetch[T any](ctx context.Context, opts Options, call func(ctx context.Context) (T, error)) (T, error) {
	t := timeout.New[T](timeout.Config{
		DefaultTimeout: opts.FetchTimeout,
	})
	r := retry.New[T](retry.Config{
		MaxAttempts:   opts.FetchAttempts,
		InitialDelay:  opts.RetryDelay,
		BackoffPolicy: retry.BackoffExponential,
	})

	return r.Do(ctx, func(ctx context.Context) (T, error) {
		return t.Execute(ctx, opts.FetchTimeout, call)
	})
}
