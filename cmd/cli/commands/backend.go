package commands

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/evs-dispatch/internal/config"
	"github.com/jakechorley/evs-dispatch/pkg/activitylog"
	"github.com/jakechorley/evs-dispatch/pkg/clients/sheetsclient"
	"github.com/jakechorley/evs-dispatch/pkg/core/demand"
	"github.com/jakechorley/evs-dispatch/pkg/db"
	"github.com/jakechorley/evs-dispatch/pkg/fixtures"
	"github.com/jakechorley/evs-dispatch/pkg/postgres"
	"github.com/jakechorley/evs-dispatch/pkg/sqlite"
	"github.com/jakechorley/evs-dispatch/pkg/utils"
)

// Migrator applies pending schema migrations
type Migrator interface {
	RunMigrations(ctx context.Context) ([]string, error)
}

// Backend is the opened storage plus the activity sink planning runs write to
type Backend struct {
	Driver string
	Store  db.Store
	Demand demand.Provider

	// Activity is nil when the activity log is disabled
	Activity db.ActivityLog

	// Migrator is set for drivers with explicit migrations
	Migrator Migrator

	// Persistent is false when writes only live for the current process
	Persistent bool

	dispatcher *activitylog.Dispatcher
	closeStore func()
}

// OpenBackend connects to the configured storage driver and activity sink
func OpenBackend(ctx context.Context, cfg *config.Config, env string, logger *zap.Logger, now func() time.Time) (*Backend, error) {
	if now == nil {
		now = time.Now
	}

	backend := &Backend{Driver: cfg.Storage.Driver, Persistent: true}

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		logger.Info("Connecting to PostgreSQL")
		database, err := postgres.NewDB(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		backend.Store = database
		backend.Demand = database
		backend.Migrator = database
		backend.closeStore = database.Close

	case config.DriverSQLite:
		logger.Info("Opening SQLite database", zap.String("path", cfg.Storage.Path))
		database, err := sqlite.OpenDB(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		backend.Store = database
		backend.Demand = database
		backend.closeStore = func() {
			if err := database.Close(); err != nil {
				logger.Warn("Failed to close sqlite database", zap.Error(err))
			}
		}

	case config.DriverFixtures:
		logger.Info("Loading fixtures", zap.String("path", cfg.Storage.Path))
		fixture, err := fixtures.Load(cfg.Storage.Path, now())
		if err != nil {
			return nil, fmt.Errorf("failed to load fixtures: %w", err)
		}
		store := fixtures.NewMemoryStoreFromFixture(fixture, now)
		backend.Store = store
		backend.Demand = store
		backend.Persistent = false

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	sink, err := openActivitySink(ctx, cfg, env, backend.Store, logger)
	if err != nil {
		backend.Close(ctx)
		return nil, err
	}
	if sink != nil {
		backend.dispatcher = activitylog.NewDispatcher(sink, dispatcherConfig(cfg), logger)
		backend.Activity = backend.dispatcher
	}

	return backend, nil
}

func openActivitySink(ctx context.Context, cfg *config.Config, env string, store db.Store, logger *zap.Logger) (db.ActivityLog, error) {
	switch cfg.ActivitySink() {
	case config.SinkNone:
		logger.Debug("Activity log disabled")
		return nil, nil

	case config.SinkSheets:
		logger.Info("Initializing sheets activity sink", zap.String("spreadsheet_id", cfg.ActivityLog.SpreadsheetID))
		tokenSource, err := utils.SheetsTokenSource(ctx, cfg.ActivityLog.CredentialsFile, env)
		if err != nil {
			return nil, fmt.Errorf("failed to load sheets credentials: %w", err)
		}
		client, err := sheetsclient.NewClient(ctx, tokenSource)
		if err != nil {
			return nil, err
		}
		return sheetsclient.NewActivitySink(client, cfg.ActivityLog.SpreadsheetID, cfg.SheetRange()), nil
	}

	return store, nil
}

func dispatcherConfig(cfg *config.Config) activitylog.Config {
	dc := activitylog.DefaultConfig()
	if cfg.ActivityLog.QueueSize > 0 {
		dc.QueueSize = cfg.ActivityLog.QueueSize
	}
	if cfg.ActivityLog.RetryAttempts > 0 {
		dc.RetryAttempts = cfg.ActivityLog.RetryAttempts
	}
	if cfg.ActivityLog.RetryDelay > 0 {
		dc.RetryDelay = cfg.ActivityLog.RetryDelay
	}
	return dc
}

// Close drains queued activity records, then closes the store
func (b *Backend) Close(ctx context.Context) error {
	var err error
	if b.dispatcher != nil {
		if closeErr := b.dispatcher.Close(ctx); closeErr != nil {
			err = fmt.Errorf("failed to flush activity log: %w", closeErr)
		}
	}
	if b.closeStore != nil {
		b.closeStore()
	}
	return err
}
