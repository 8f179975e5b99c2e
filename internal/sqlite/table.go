package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"
	"time"

	"github.com/mesh-intelligence/folio/pkg/types"
)

// Compile-time interface check: table must implement Table.
var _ types.Table = (*table)(nil)

// table implements types.Table for one content table. Rows hold the record
// without its id as a JSON document in the data column.
type table struct {
	name    string
	backend *Backend
}

// Create inserts a record. If the record has no id, generates a UUID v7.
// Returns ErrInvalidData if the record already exists under that id.
func (t *table) Create(ctx context.Context, record types.Record) (types.Record, error) {
	if record == nil {
		return nil, types.ErrInvalidData
	}
	id := record.ID()
	if id == "" {
		id = generateUUID()
	}

	data, err := encodeData(record)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	db, err := t.conn()
	if err != nil {
		return nil, err
	}
	_, err = db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)", t.name),
		id, data, now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("%w: %s %s already exists", types.ErrInvalidData, t.name, id)
		}
		return nil, fmt.Errorf("inserting into %s: %w", t.name, err)
	}
	t.backend.logger.Debug("record created", "table", t.name, "id", id)

	return buildRecord(id, record, now), nil
}

// Update merges partial into the stored record. Keys in partial replace the
// stored values; keys absent from partial are kept.
// Returns ErrInvalidID if id is empty, ErrNotFound if not found.
func (t *table) Update(ctx context.Context, id string, partial types.Record) (types.Record, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}

	db, err := t.conn()
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx, fmt.Sprintf("SELECT data FROM %s WHERE id = ?", t.name), id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s %s: %w", t.name, id, err)
	}

	stored, err := decodeData(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing %s %s: %w", t.name, id, err)
	}
	maps.Copy(stored, partial)

	data, err := encodeData(stored)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET data = ?, updated_at = ? WHERE id = ?", t.name),
		data, now, id,
	); err != nil {
		return nil, fmt.Errorf("updating %s %s: %w", t.name, id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing %s %s: %w", t.name, id, err)
	}
	t.backend.logger.Debug("record updated", "table", t.name, "id", id)

	return buildRecord(id, stored, now), nil
}

// Delete removes a record by id.
// Returns ErrInvalidID if id is empty, ErrNotFound if not found.
func (t *table) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}

	db, err := t.conn()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.name), id)
	if err != nil {
		return fmt.Errorf("deleting %s %s: %w", t.name, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting %s %s: %w", t.name, id, err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	t.backend.logger.Debug("record deleted", "table", t.name, "id", id)
	return nil
}

// Query returns records matching every filter entry, sorted by the given
// orders and then by creation time. Filter and order keys must be plain
// identifiers; the reserved key "id" matches the row id.
func (t *table) Query(ctx context.Context, filter map[string]any, order ...types.Order) ([]types.Record, error) {
	db, err := t.conn()
	if err != nil {
		return nil, err
	}

	query, args, err := t.buildQuery(filter, order)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", t.name, err)
	}
	defer rows.Close()

	results := []types.Record{}
	for rows.Next() {
		var id, raw, updatedAt string
		if err := rows.Scan(&id, &raw, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", t.name, err)
		}
		data, err := decodeData(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s %s: %w", t.name, id, err)
		}
		results = append(results, buildRecord(id, data, updatedAt))
	}
	return results, rows.Err()
}

func (t *table) buildQuery(filter map[string]any, order []types.Order) (string, []any, error) {
	var (
		clauses []string
		args    []any
	)

	// Sort keys so the generated SQL is stable.
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !validIdent(key) {
			return "", nil, fmt.Errorf("%w: filter key %q", types.ErrInvalidData, key)
		}
		col := fieldExpr(key)
		value := filter[key]
		if value == nil {
			clauses = append(clauses, col+" IS NULL")
			continue
		}
		arg, err := filterArg(value)
		if err != nil {
			return "", nil, fmt.Errorf("filter %s: %w", key, err)
		}
		clauses = append(clauses, col+" = ?")
		args = append(args, arg)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT id, data, updated_at FROM %s", t.name)
	if len(clauses) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(clauses, " AND "))
	}

	orderBy := make([]string, 0, len(order)+1)
	for _, o := range order {
		if !validIdent(o.Field) {
			return "", nil, fmt.Errorf("%w: order field %q", types.ErrInvalidData, o.Field)
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		orderBy = append(orderBy, fieldExpr(o.Field)+" "+dir)
	}
	orderBy = append(orderBy, "created_at ASC", "id ASC")
	sb.WriteString(" ORDER BY ")
	sb.WriteString(strings.Join(orderBy, ", "))

	return sb.String(), args, nil
}

// conn returns the open database or ErrStoreDetached.
func (t *table) conn() (*sql.DB, error) {
	t.backend.mu.RLock()
	defer t.backend.mu.RUnlock()
	if !t.backend.attached || t.backend.db == nil {
		return nil, types.ErrStoreDetached
	}
	return t.backend.db, nil
}

// fieldExpr maps a record key to its SQL expression.
func fieldExpr(key string) string {
	if key == types.FieldID {
		return "id"
	}
	return fmt.Sprintf("json_extract(data, '$.%s')", key)
}

// filterArg converts a filter value to the form json_extract returns:
// booleans become 1/0, strings and numbers pass through.
func filterArg(v any) (any, error) {
	switch val := v.(type) {
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case string, int, int64, float64:
		return val, nil
	default:
		return nil, types.ErrInvalidData
	}
}

// encodeData serializes a record without its id.
func encodeData(record types.Record) (string, error) {
	data := make(map[string]any, len(record))
	for k, v := range record {
		if k == types.FieldID || k == types.ColumnUpdatedAt {
			continue
		}
		data[k] = v
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}
	return string(b), nil
}

func decodeData(raw string) (map[string]any, error) {
	data := make(map[string]any)
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, err
	}
	return data, nil
}

// buildRecord assembles the record returned to callers.
func buildRecord(id string, data map[string]any, updatedAt string) types.Record {
	rec := make(types.Record, len(data)+2)
	for k, v := range data {
		rec[k] = v
	}
	rec[types.FieldID] = id
	rec[types.ColumnUpdatedAt] = updatedAt
	return rec
}
