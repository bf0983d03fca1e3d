package commands

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/evs-dispatch/internal/config"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg    *config.Config
	Env    string
	Logger *zap.Logger
	Ctx    context.Context
	Now    func() time.Time

	backend *Backend
}

// Backend opens the configured storage and activity sink on first use
func (a *AppContext) Backend() (*Backend, error) {
	if a.backend != nil {
		return a.backend, nil
	}

	backend, err := OpenBackend(a.Ctx, a.Cfg, a.Env, a.Logger, a.Now)
	if err != nil {
		return nil, err
	}
	a.backend = backend
	return backend, nil
}

// Close flushes pending activity records and closes the store
func (a *AppContext) Close(ctx context.Context) error {
	if a.backend == nil {
		return nil
	}
	err := a.backend.Close(ctx)
	a.backend = nil
	return err
}
