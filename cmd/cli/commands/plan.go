package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/evs-dispatch/pkg/core/bucketer"
	"github.com/jakechorley/evs-dispatch/pkg/core/model"
	"github.com/jakechorley/evs-dispatch/pkg/core/planner"
	"github.com/jakechorley/evs-dispatch/pkg/core/services"
)

var (
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
)

// PlanCmd creates the plan command
func PlanCmd(app *AppContext) *cobra.Command {
	var (
		criteria planner.Criteria
		category string
		priority string
		apply    bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Score pending tasks and recommend a resource for each",
		Long: `Scores every pending task matching the filters, orders them by urgency and
recommends the best available resource for each. Nothing is written unless --apply is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria.Category = model.Category(strings.ToLower(category))
			if priority != "" {
				p, err := model.ParsePriority(priority)
				if err != nil {
					return err
				}
				criteria.Priority = p
			}

			backend, err := app.Backend()
			if err != nil {
				return err
			}

			opts, err := app.Cfg.PlannerOptions(app.Now)
			if err != nil {
				return err
			}

			deps := planner.Dependencies{
				Tasks:     backend.Store,
				Resources: backend.Store,
				Demand:    backend.Demand,
				Logger:    app.Logger,
			}
			if backend.Activity != nil {
				deps.Activity = backend.Activity
			}

			p, err := planner.NewPlanner(deps, opts)
			if err != nil {
				return err
			}

			app.Logger.Debug("plan command",
				zap.String("location", criteria.Location),
				zap.String("category", string(criteria.Category)),
				zap.String("priority", string(criteria.Priority)),
				zap.String("shift", criteria.Shift))

			plan, err := p.Plan(app.Ctx, criteria)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(plan); err != nil {
					return fmt.Errorf("failed to encode plan: %w", err)
				}
			} else {
				renderPlan(out, plan)
			}

			if !apply {
				return nil
			}
			if plan.Partial {
				return fmt.Errorf("refusing to apply a partial plan")
			}

			result, err := services.ApplyPlan(app.Ctx, backend.Store, app.Logger, plan)
			if result != nil && !asJSON {
				renderApplyResult(out, result, backend.Persistent)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&criteria.Location, "location", "", "Only plan tasks at this location")
	cmd.Flags().StringVar(&category, "category", "", "Only plan tasks of this category")
	cmd.Flags().StringVar(&priority, "priority", "", "Only plan tasks of this priority (high, medium, low)")
	cmd.Flags().StringVar(&criteria.Shift, "shift", "", `Only consider staff on this shift ("current" resolves the running shift)`)
	cmd.Flags().BoolVar(&apply, "apply", false, "Persist the recommended assignments")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the plan as JSON")

	return cmd
}

func tierColor(tier bucketer.Tier) func(a ...interface{}) string {
	switch tier {
	case bucketer.TierImmediate:
		return red
	case bucketer.TierUrgent:
		return yellow
	}
	return green
}

func renderPlan(w io.Writer, plan *planner.Plan) {
	fmt.Fprintf(w, "\n%s %s\n", bold("Plan"), dim(plan.RunID))
	fmt.Fprintf(w, "Generated: %s\n", plan.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	if plan.ResolvedShift != "" {
		fmt.Fprintf(w, "Shift:     %s\n", plan.ResolvedShift)
	}
	fmt.Fprintln(w)

	if plan.Partial {
		fmt.Fprintf(w, "%s %s (%d tasks not processed)\n\n", red("PARTIAL:"), plan.PartialReason, plan.Unprocessed)
	}

	if len(plan.Entries) == 0 {
		fmt.Fprintln(w, "No pending tasks match the filters.")
	} else {
		idWidth := len("Task")
		for _, e := range plan.Entries {
			idWidth = max(idWidth, len(e.Task.ID))
		}

		fmt.Fprintf(w, "%-4s %-6s %-10s %-*s %-20s %-14s %s\n",
			"#", "Score", "Tier", idWidth, "Task", "Category", "Location", "Assignment")
		fmt.Fprintln(w, strings.Repeat("-", 4+6+10+idWidth+20+14+30))

		for i, e := range plan.Entries {
			// Pad before colouring so escape codes do not skew the columns
			tier := tierColor(e.Tier)(fmt.Sprintf("%-10s", e.Tier))
			fmt.Fprintf(w, "%-4d %-6.1f %s %-*s %-20s %-14s %s\n",
				i+1, e.Score.Value, tier, idWidth, e.Task.ID, e.Task.Category, e.Task.Location, assignmentText(e.Assignment))
			if reasoning := e.Score.Reasoning(); reasoning != "" {
				fmt.Fprintf(w, "     %s\n", dim(reasoning))
			}
		}
	}

	fmt.Fprintf(w, "\n%s %d assigned, %d without staff", bold("Summary:"), plan.Assigned, plan.Unassigned)
	if plan.DegradedTasks > 0 {
		fmt.Fprintf(w, ", %s", yellow(fmt.Sprintf("%d degraded", plan.DegradedTasks)))
	}
	fmt.Fprintf(w, ", %d estimated minutes\n", plan.TotalEstimatedMinutes)

	for _, b := range plan.Buckets {
		if len(b.TaskIDs) == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s %d tasks, %d min: %s\n",
			tierColor(b.Tier)(fmt.Sprintf("%-10s", b.Tier)), len(b.TaskIDs), b.EstimatedMinutes, b.RecommendedAction)
	}

	if len(plan.DemandOutlook) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold("Demand outlook:"))
		for _, o := range plan.DemandOutlook {
			fmt.Fprintf(w, "  %-24s pending %-4d expected/day %-6.2f backlog %.2f\n",
				o.Category, o.Pending, o.ExpectedDaily, o.BacklogRatio)
		}
	}

	if len(plan.Notes) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold("Notes:"))
		for _, note := range plan.Notes {
			fmt.Fprintf(w, "  - %s\n", note)
		}
	}
	fmt.Fprintln(w)
}

func assignmentText(a model.Assignment) string {
	if !a.HasResource() {
		return red("no staff available")
	}
	return fmt.Sprintf("%s %s", cyan(a.ResourceID), dim(fmt.Sprintf("(confidence %.0f%%)", a.Confidence*100)))
}

func renderApplyResult(w io.Writer, result *services.ApplyPlanResult, persistent bool) {
	fmt.Fprintf(w, "%s %d applied", green("✓"), len(result.Applied))
	if len(result.Conflicts) > 0 {
		fmt.Fprintf(w, ", %s", yellow(fmt.Sprintf("%d changed since planning: %s", len(result.Conflicts), strings.Join(result.Conflicts, ", "))))
	}
	if len(result.Skipped) > 0 {
		fmt.Fprintf(w, ", %d skipped without staff", len(result.Skipped))
	}
	fmt.Fprintln(w)
	if !persistent {
		fmt.Fprintln(w, dim("Fixture storage: assignments are not saved after exit."))
	}
}
