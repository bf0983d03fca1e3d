package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jakechorley/evs-dispatch/pkg/core/model"
	"github.com/jakechorley/evs-dispatch/pkg/core/services"
)

// StatusCmd creates the status command
func StatusCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <task_id> [start|complete|cancel]",
		Short: "Show a task, or move it through its lifecycle",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := app.Backend()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				task, err := backend.Store.GetTask(app.Ctx, args[0])
				if err != nil {
					return err
				}
				renderTask(out, task)
				return nil
			}

			task, err := services.UpdateTaskStatus(app.Ctx, backend.Store, app.Logger, args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "\n%s Task %s is now %s\n\n", green("✓"), task.ID, bold(task.Status))
			return nil
		},
	}
}

func renderTask(w io.Writer, task *model.Task) {
	fmt.Fprintf(w, "\n%s %s\n", bold("Task"), task.ID)
	fmt.Fprintf(w, "  Status:    %s\n", task.Status)
	fmt.Fprintf(w, "  Location:  %s\n", task.Location)
	fmt.Fprintf(w, "  Category:  %s\n", task.Category)
	fmt.Fprintf(w, "  Priority:  %s\n", task.Priority)
	if task.AssignedResourceID != "" {
		fmt.Fprintf(w, "  Assigned:  %s\n", cyan(task.AssignedResourceID))
	}
	if task.ScheduledTime != "" {
		fmt.Fprintf(w, "  Scheduled: %s\n", task.ScheduledTime)
	}
	fmt.Fprintf(w, "  Duration:  %d min\n", task.EstimatedMinutes())
	if task.HazardRequired {
		fmt.Fprintf(w, "  %s\n", red("Hazard protocol required"))
	}
	if task.Description != "" {
		fmt.Fprintf(w, "  %s\n", dim(task.Description))
	}
	fmt.Fprintln(w)
}
