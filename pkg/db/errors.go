package db

import "errors"

var (
	// ErrStoreUnavailable reports that a store could not be reached or did not answer in time
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotFound reports that a requested record does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict reports a failed optimistic lock or a stale state precondition
	ErrConflict = errors.New("conflict")
)
