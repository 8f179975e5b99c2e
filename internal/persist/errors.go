package persist

import "fmt"

// Store operations reported in a PersistError.
const (
	OpOpen   = "open"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpQuery  = "query"
)

// PersistError reports the store call that aborted a save, load or delete.
// Calls issued before it are not rolled back.
type PersistError struct {
	Op    string
	Table string
	ID    string
	Err   error
}

func (e *PersistError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("%s %s %s: %v", e.Op, e.Table, e.ID, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
