package types

import "errors"

// Store defines the interface for backend-agnostic access to the relational
// store. Callers attach to a backend, access tables by name, and detach when
// done.
type Store interface {
	// GetTable returns the Table for the given name, creating the backing
	// table on first use. Returns ErrInvalidName for names that are not
	// plain identifiers.
	GetTable(name string) (Table, error)

	// Attach connects the Store to the backend described by config.
	// Creates the DataDir if it does not exist. Returns ErrAlreadyAttached if
	// called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, operations on tables return ErrStoreDetached.
	Detach() error
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)
