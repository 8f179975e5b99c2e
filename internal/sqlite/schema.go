package sqlite

// DDL and identifier rules shared by all tables.

import (
	"fmt"
	"regexp"
)

// identPattern restricts table and field names so they can be interpolated
// into SQL and JSON paths.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// validIdent reports whether name is usable as a table or field name.
func validIdent(name string) bool {
	return identPattern.MatchString(name)
}

// createTableDDL returns the DDL for a content table. Every table stores the
// record's fields as one JSON document keyed by id; filters and ordering read
// fields through json_extract.
func createTableDDL(name string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
    id TEXT PRIMARY KEY,
    data TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_parent ON %[1]s(json_extract(data, '$.parent_id'));`, name)
}
