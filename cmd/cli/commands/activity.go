package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jakechorley/evs-dispatch/pkg/db"
)

// ActivityCmd creates the activity command
func ActivityCmd(app *AppContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "List recent planning runs from the activity log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("limit must be a positive integer, got: %d", limit)
			}

			backend, err := app.Backend()
			if err != nil {
				return err
			}

			records, err := backend.Store.RecentActivity(app.Ctx, limit)
			if err != nil {
				return err
			}

			renderActivity(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")

	return cmd
}

func renderActivity(w io.Writer, records []db.ActivityRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No activity recorded.")
		return
	}

	for _, r := range records {
		outcome := green("ok    ")
		if !r.Success {
			outcome = red("failed")
		}
		fmt.Fprintf(w, "%s %s %-20s %6dms %s\n",
			r.Timestamp.Format("2006-01-02 15:04:05"), outcome, r.Agent, r.ExecutionTimeMs, dim(r.ID))
		if r.ErrorMessage != "" {
			fmt.Fprintf(w, "    %s\n", red(r.ErrorMessage))
		} else if len(r.Output) > 0 {
			fmt.Fprintf(w, "    %s\n", string(r.Output))
		}
	}
}
