package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/evs-dispatch/cmd/cli/commands"
	"github.com/jakechorley/evs-dispatch/internal/config"
	"github.com/jakechorley/evs-dispatch/pkg/utils/logging"
)

const shutdownTimeout = 30 * time.Second

var (
	env        string
	configPath string
	logDir     string
	verbose    bool
	app        = &commands.AppContext{}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	app.Ctx = ctx

	rootCmd := &cobra.Command{
		Use:   "dispatch",
		Short: "EVS dispatch - prioritise cleaning tasks and assign staff",
		Long: `A CLI for scoring pending environmental services tasks, bucketing them by urgency
and recommending which staff member should take each one.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return closeApp()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default dispatch_config.<env>.yaml)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", logging.DefaultDir, "Directory for JSON log files")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logs on the console")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.PlanCmd(app))
	rootCmd.AddCommand(commands.AssignCmd(app))
	rootCmd.AddCommand(commands.StatusCmd(app))
	rootCmd.AddCommand(commands.ImportCmd(app))
	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.ActivityCmd(app))
	rootCmd.AddCommand(commands.AuthCmd(app))

	if err := rootCmd.Execute(); err != nil {
		// PersistentPostRunE is skipped when a command fails
		closeApp()
		os.Exit(1)
	}
}

// initApp sets up the logger and configuration; storage opens on first use
func initApp() error {
	var err error
	app.Env = env
	app.Now = time.Now

	app.Logger, err = logging.InitLogger(env, logging.Options{Dir: logDir, Verbose: verbose})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	if configPath != "" {
		app.Cfg, err = config.LoadFromPath(configPath)
	} else {
		app.Cfg, err = config.LoadWithEnv(env)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded",
		zap.String("driver", app.Cfg.Storage.Driver),
		zap.String("activity_sink", app.Cfg.ActivitySink()))

	return nil
}

func closeApp() error {
	if app.Logger == nil {
		return nil
	}
	defer app.Logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Close(ctx); err != nil {
		app.Logger.Warn("Shutdown incomplete", zap.Error(err))
		return err
	}
	return nil
}
