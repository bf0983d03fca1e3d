package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/evs-dispatch/pkg/core/services"
)

// AssignCmd creates the assign command
func AssignCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <task_id> <resource_id>",
		Short: "Assign a pending task to a resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := app.Backend()
			if err != nil {
				return err
			}

			task, err := services.ApplyAssignment(app.Ctx, backend.Store, app.Logger, args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n%s Task %s assigned to %s\n\n", green("✓"), task.ID, cyan(task.AssignedResourceID))
			return nil
		},
	}
}
