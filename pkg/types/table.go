package types

import (
	"context"
	"errors"
)

// FieldID is the record key holding a row's identifier.
const FieldID = "id"

// Record is one row as exchanged with the relational store: column name to
// value. Values are JSON-compatible.
type Record map[string]any

// ID returns the record identifier, or "" when the record has none.
func (r Record) ID() string {
	id, _ := r[FieldID].(string)
	return id
}

// Order describes a sort applied by Table.Query.
type Order struct {
	Field string
	Desc  bool
}

// Table provides uniform CRUD operations for a single table of the
// relational store.
type Table interface {
	// Create inserts a record. When the record carries no id a new UUID v7 is
	// generated. Returns the stored record including its id.
	Create(ctx context.Context, record Record) (Record, error)

	// Update merges partial into the row with the given id and returns the
	// stored record. Returns ErrNotFound if no row exists with that id.
	Update(ctx context.Context, id string, partial Record) (Record, error)

	// Delete removes the row with the given id.
	// Returns ErrNotFound if no row exists with that id.
	Delete(ctx context.Context, id string) error

	// Query returns every row whose fields equal all filter values, sorted by
	// the given orders. An empty filter matches every row.
	Query(ctx context.Context, filter map[string]any, order ...Order) ([]Record, error)
}

// Table operation errors.
var (
	ErrNotFound    = errors.New("record not found")
	ErrInvalidID   = errors.New("invalid record ID")
	ErrInvalidData = errors.New("invalid record data")
	ErrInvalidName = errors.New("invalid table name")
)

// Editor and schema errors.
var (
	ErrUnknownField      = errors.New("unknown field")
	ErrUnknownFieldType  = errors.New("unknown field type")
	ErrUnknownEntityType = errors.New("unknown entity type")
	ErrUnknownSection    = errors.New("unknown section")
	ErrUnknownCollection = errors.New("unknown child collection")
	ErrDuplicateField    = errors.New("duplicate field name")
	ErrInvalidOption     = errors.New("value is not one of the field options")
	ErrAlreadySaving     = errors.New("already saving")
	ErrEditorClosed      = errors.New("editor is closed")
	ErrValidation        = errors.New("validation failed")
	ErrUploadTooLarge    = errors.New("upload exceeds maximum size")
	ErrUploadType        = errors.New("upload content type not allowed")
	ErrUploadEmpty       = errors.New("upload is empty")
	ErrUploaderMissing   = errors.New("no media uploader configured")
	ErrReorderMismatch   = errors.New("reordered ids do not match the list")
)
