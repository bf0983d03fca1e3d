package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// MigrateCmd creates the migrate command
func MigrateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := app.Backend()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if backend.Migrator == nil {
				fmt.Fprintf(out, "The %s driver applies its schema on open; nothing to migrate.\n", backend.Driver)
				return nil
			}

			applied, err := backend.Migrator.RunMigrations(app.Ctx)
			if err != nil {
				return err
			}

			if len(applied) == 0 {
				fmt.Fprintln(out, "Schema is up to date.")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintf(out, "%s %s\n", green("✓"), name)
			}
			return nil
		},
	}
}
