package planner

import (
	"fmt"

	"github.com/jakechorley/evs-dispatch/pkg/db"
)

// StoreUnavailableError reports a fatal fetch failure. No plan is produced alongside it.
type StoreUnavailableError struct {
	// Store names the collaborator that failed ("tasks" or "resources")
	Store string
	Err   error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("%s store unavailable: %v", e.Store, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is / errors.As
func (e *StoreUnavailableError) Unwrap() []error {
	return []error{db.ErrStoreUnavailable, e.Err}
}
