// Package types defines the entity model, field and section descriptors, the
// save status, the Store/Table/Uploader interfaces consumed by the editor, and
// the standard sentinel errors for the folio admin backend.
package types
