package planner

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/evs-dispatch/pkg/db"
)

type activityInput struct {
	Location string `json:"location,omitempty"`
	Category string `json:"category,omitempty"`
	Priority string `json:"priority,omitempty"`
	Shift    string `json:"shift,omitempty"`
}

type activityOutput struct {
	RunID                 string  `json:"run_id"`
	TotalTasks            int     `json:"total_tasks"`
	Assigned              int     `json:"assigned"`
	Unassigned            int     `json:"unassigned"`
	DegradedTasks         int     `json:"degraded_tasks,omitempty"`
	TotalEstimatedMinutes int     `json:"total_estimated_minutes"`
	TopTaskID             string  `json:"top_task_id,omitempty"`
	TopScore              float64 `json:"top_score,omitempty"`
	Partial               bool    `json:"partial,omitempty"`
}

// recordActivity appends an audit record for the run. Failures are logged and dropped.
func (p *Planner) recordActivity(ctx context.Context, logger *zap.Logger, plan *Plan, started time.Time, runErr error) {
	if p.deps.Activity == nil {
		return
	}

	record := buildActivityRecord(p.opts.Agent, plan, started, runErr)

	// The audit write must not be lost because the caller cancelled the run
	ctx = context.WithoutCancel(ctx)
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Activity log panicked, record dropped", zap.Any("panic", r))
		}
	}()
	if err := p.deps.Activity.Append(ctx, record); err != nil {
		logger.Warn("Failed to append activity record, record dropped",
			zap.String("record_id", record.ID),
			zap.Error(err))
	}
}

func buildActivityRecord(agent string, plan *Plan, started time.Time, runErr error) db.ActivityRecord {
	input, _ := json.Marshal(activityInput{
		Location: plan.Criteria.Location,
		Category: string(plan.Criteria.Category),
		Priority: string(plan.Criteria.Priority),
		Shift:    plan.Criteria.Shift,
	})

	record := db.ActivityRecord{
		ID:              uuid.New().String(),
		Agent:           agent,
		Action:          actionPlan,
		Timestamp:       plan.GeneratedAt,
		Input:           input,
		Success:         runErr == nil,
		ExecutionTimeMs: time.Since(started).Milliseconds(),
	}
	if runErr != nil {
		record.ErrorMessage = runErr.Error()
		record.Output = json.RawMessage(`{}`)
		return record
	}

	summary := activityOutput{
		RunID:                 plan.RunID,
		TotalTasks:            len(plan.Entries),
		Assigned:              plan.Assigned,
		Unassigned:            plan.Unassigned,
		DegradedTasks:         plan.DegradedTasks,
		TotalEstimatedMinutes: plan.TotalEstimatedMinutes,
		Partial:               plan.Partial,
	}
	if len(plan.Entries) > 0 {
		summary.TopTaskID = plan.Entries[0].Task.ID
		summary.TopScore = plan.Entries[0].Score.Value
	}
	record.Output, _ = json.Marshal(summary)
	return record
}
