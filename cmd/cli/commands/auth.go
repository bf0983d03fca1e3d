package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jakechorley/evs-dispatch/pkg/utils"
)

// AuthCmd creates the auth command for the Sheets activity sink
func AuthCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorise Google Sheets access for the activity log",
		Long: `Prints an authorisation URL for the OAuth client in activityLog.credentialsFile,
then reads the code Google returns and stores the token for this environment.
Service account credentials need no authorisation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			credentialsFile := app.Cfg.ActivityLog.CredentialsFile
			if credentialsFile == "" {
				return fmt.Errorf("activityLog.credentialsFile is not configured")
			}

			url, err := utils.AuthURL(credentialsFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nVisit this URL to authorise the application:\n%s\n\nCode: ", url)

			scanner := bufio.NewScanner(cmd.InOrStdin())
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("failed to read code: %w", err)
				}
				return fmt.Errorf("no code entered")
			}
			code := strings.TrimSpace(scanner.Text())
			if code == "" {
				return fmt.Errorf("no code entered")
			}

			if err := utils.ExchangeCode(app.Ctx, credentialsFile, app.Env, code); err != nil {
				return err
			}

			fmt.Fprintf(out, "\n%s Token stored for environment %s\n\n", green("✓"), app.Env)
			return nil
		},
	}
}
