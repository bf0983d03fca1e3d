package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/evs-dispatch/pkg/core/services"
)

// ImportCmd creates the import command
func ImportCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <fixture_file>",
		Short: "Load tasks and resources from a JSON fixture file into storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := app.Backend()
			if err != nil {
				return err
			}

			result, err := services.ImportFixtures(app.Ctx, backend.Store, app.Logger, args[0], app.Now())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n%s Imported %d tasks and %d resources\n\n", green("✓"), result.Tasks, result.Resources)
			if !backend.Persistent {
				fmt.Fprintln(out, dim("Fixture storage: imported records are not saved after exit."))
			}
			return nil
		},
	}
}
