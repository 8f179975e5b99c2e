// Package persist translates in-memory entities into calls against a
// types.Store: create or update of the entity row, followed by
// reconciliation of each child collection.
package persist

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mesh-intelligence/folio/pkg/types"
)

// Schema is the part of the field schema registry the adapter needs.
type Schema interface {
	Fields(t types.EntityType) []types.FieldDescriptor
	Collections(t types.EntityType) []types.Collection
	Table(t types.EntityType) string
}

// Adapter persists entities to a store.
type Adapter struct {
	store  types.Store
	schema Schema
	logger *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the adapter's logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// New returns an Adapter over an attached store.
func New(store types.Store, schema Schema, opts ...Option) *Adapter {
	a := &Adapter{
		store:  store,
		schema: schema,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Save writes entity and reconciles its child collections against previous,
// the last successfully persisted version (nil for a never-saved entity).
// A new entity is created and receives its id; otherwise the row is updated
// by id. Child deletes run before updates, updates before inserts. The first
// failing call aborts the save with a *PersistError; earlier calls stay
// committed. The returned entity carries every id assigned by the store.
// When the entity row was written but a child call failed, the partially
// persisted entity is returned along with the error: it holds the entity id,
// the ids of inserted children, and id-only items for child rows whose
// delete did not run. A failure writing the entity row returns nil.
func (a *Adapter) Save(ctx context.Context, entity, previous *types.Entity) (*types.Entity, error) {
	if entity == nil {
		return nil, types.ErrInvalidData
	}
	out := entity.Clone()
	name := a.schema.Table(out.Type)
	tbl, err := a.store.GetTable(name)
	if err != nil {
		return nil, &PersistError{Op: OpOpen, Table: name, Err: err}
	}

	rec := toRecord(out)
	if out.IsNew() {
		created, err := tbl.Create(ctx, rec)
		if err != nil {
			return nil, &PersistError{Op: OpCreate, Table: name, Err: err}
		}
		out.ID = created.ID()
		out.UpdatedAt = updatedAt(created)
		a.logger.Debug("entity created", "type", out.Type, "id", out.ID)
	} else {
		updated, err := tbl.Update(ctx, out.ID, rec)
		if err != nil {
			return nil, &PersistError{Op: OpUpdate, Table: name, ID: out.ID, Err: err}
		}
		out.UpdatedAt = updatedAt(updated)
		a.logger.Debug("entity updated", "type", out.Type, "id", out.ID)
	}

	cols := a.schema.Collections(out.Type)
	prevIDs := func(name string) []string {
		if previous != nil && previous.ID == out.ID {
			return previous.ChildIDs(name)
		}
		return nil
	}
	for n, col := range cols {
		pending, err := a.reconcile(ctx, out, col, prevIDs(col.Name))
		if err == nil {
			continue
		}
		keepPending(out, col.Name, pending)
		for _, rest := range cols[n+1:] {
			keepPending(out, rest.Name, Reconcile(prevIDs(rest.Name), out.Children[rest.Name]).Deletes)
		}
		return out, err
	}
	return out, nil
}

// keepPending appends child rows that are still stored but no longer wanted,
// as id-only items, so that the next save deletes them.
func keepPending(e *types.Entity, collection string, ids []string) {
	for _, id := range ids {
		e.Children[collection] = append(e.Children[collection], types.ChildItem{ID: id})
	}
}

// reconcile runs the plan for one collection, assigning ids of inserted items
// in place. On failure it returns the planned deletes that did not happen.
func (a *Adapter) reconcile(ctx context.Context, parent *types.Entity, col types.Collection, previous []string) ([]string, error) {
	items := parent.Children[col.Name]
	plan := Reconcile(previous, items)
	if plan.Empty() {
		return nil, nil
	}
	tbl, err := a.store.GetTable(col.Table)
	if err != nil {
		return plan.Deletes, &PersistError{Op: OpOpen, Table: col.Table, Err: err}
	}

	for k, id := range plan.Deletes {
		if err := tbl.Delete(ctx, id); err != nil && !errors.Is(err, types.ErrNotFound) {
			return plan.Deletes[k:], &PersistError{Op: OpDelete, Table: col.Table, ID: id, Err: err}
		}
	}
	for _, i := range plan.Updates {
		id := items[i].ID
		if _, err := tbl.Update(ctx, id, childRecord(parent.ID, i, items[i])); err != nil {
			return nil, &PersistError{Op: OpUpdate, Table: col.Table, ID: id, Err: err}
		}
	}
	for _, i := range plan.Inserts {
		created, err := tbl.Create(ctx, childRecord(parent.ID, i, items[i]))
		if err != nil {
			return nil, &PersistError{Op: OpCreate, Table: col.Table, ID: items[i].ID, Err: err}
		}
		items[i].ID = created.ID()
	}
	a.logger.Debug("collection reconciled",
		"collection", col.Name, "parent", parent.ID,
		"deletes", len(plan.Deletes), "updates", len(plan.Updates), "inserts", len(plan.Inserts))
	return nil, nil
}

// Delete removes an entity's child rows and then the entity row. Rows that
// are already gone count as deleted. A never-saved entity is a no-op.
func (a *Adapter) Delete(ctx context.Context, entity *types.Entity) error {
	if entity == nil || entity.IsNew() {
		return nil
	}
	for _, col := range a.schema.Collections(entity.Type) {
		tbl, err := a.store.GetTable(col.Table)
		if err != nil {
			return &PersistError{Op: OpOpen, Table: col.Table, Err: err}
		}
		rows, err := tbl.Query(ctx, map[string]any{types.ColumnParentID: entity.ID})
		if err != nil {
			return &PersistError{Op: OpQuery, Table: col.Table, Err: err}
		}
		for _, row := range rows {
			if err := tbl.Delete(ctx, row.ID()); err != nil && !errors.Is(err, types.ErrNotFound) {
				return &PersistError{Op: OpDelete, Table: col.Table, ID: row.ID(), Err: err}
			}
		}
	}

	name := a.schema.Table(entity.Type)
	tbl, err := a.store.GetTable(name)
	if err != nil {
		return &PersistError{Op: OpOpen, Table: name, Err: err}
	}
	if err := tbl.Delete(ctx, entity.ID); err != nil && !errors.Is(err, types.ErrNotFound) {
		return &PersistError{Op: OpDelete, Table: name, ID: entity.ID, Err: err}
	}
	a.logger.Debug("entity deleted", "type", entity.Type, "id", entity.ID)
	return nil
}

// Load returns every entity of type t ordered by sort_order, with child
// collections attached.
func (a *Adapter) Load(ctx context.Context, t types.EntityType) ([]*types.Entity, error) {
	name := a.schema.Table(t)
	tbl, err := a.store.GetTable(name)
	if err != nil {
		return nil, &PersistError{Op: OpOpen, Table: name, Err: err}
	}
	rows, err := tbl.Query(ctx, nil, types.Order{Field: types.ColumnSortOrder})
	if err != nil {
		return nil, &PersistError{Op: OpQuery, Table: name, Err: err}
	}

	fields := a.schema.Fields(t)
	entities := make([]*types.Entity, 0, len(rows))
	for _, row := range rows {
		e := fromRecord(t, row, fields)
		for _, col := range a.schema.Collections(t) {
			items, err := a.loadChildren(ctx, col, e.ID)
			if err != nil {
				return nil, err
			}
			e.Children[col.Name] = items
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// Get loads one entity by id.
func (a *Adapter) Get(ctx context.Context, t types.EntityType, id string) (*types.Entity, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	name := a.schema.Table(t)
	tbl, err := a.store.GetTable(name)
	if err != nil {
		return nil, &PersistError{Op: OpOpen, Table: name, Err: err}
	}
	rows, err := tbl.Query(ctx, map[string]any{types.FieldID: id})
	if err != nil {
		return nil, &PersistError{Op: OpQuery, Table: name, ID: id, Err: err}
	}
	if len(rows) == 0 {
		return nil, &PersistError{Op: OpQuery, Table: name, ID: id, Err: types.ErrNotFound}
	}
	e := fromRecord(t, rows[0], a.schema.Fields(t))
	for _, col := range a.schema.Collections(t) {
		items, err := a.loadChildren(ctx, col, e.ID)
		if err != nil {
			return nil, err
		}
		e.Children[col.Name] = items
	}
	return e, nil
}

// SetOrder writes only the sort position of a persisted entity.
func (a *Adapter) SetOrder(ctx context.Context, entity *types.Entity, order int) error {
	if entity == nil || entity.IsNew() {
		return types.ErrInvalidID
	}
	name := a.schema.Table(entity.Type)
	tbl, err := a.store.GetTable(name)
	if err != nil {
		return &PersistError{Op: OpOpen, Table: name, Err: err}
	}
	if _, err := tbl.Update(ctx, entity.ID, types.Record{types.ColumnSortOrder: order}); err != nil {
		return &PersistError{Op: OpUpdate, Table: name, ID: entity.ID, Err: err}
	}
	return nil
}

func (a *Adapter) loadChildren(ctx context.Context, col types.Collection, parentID string) ([]types.ChildItem, error) {
	tbl, err := a.store.GetTable(col.Table)
	if err != nil {
		return nil, &PersistError{Op: OpOpen, Table: col.Table, Err: err}
	}
	rows, err := tbl.Query(ctx,
		map[string]any{types.ColumnParentID: parentID},
		types.Order{Field: types.ColumnSortOrder})
	if err != nil {
		return nil, &PersistError{Op: OpQuery, Table: col.Table, Err: err}
	}
	items := make([]types.ChildItem, 0, len(rows))
	for _, row := range rows {
		fields := make(map[string]any, len(row))
		for k, v := range row {
			switch k {
			case types.FieldID, types.ColumnParentID, types.ColumnSortOrder, types.ColumnUpdatedAt:
				continue
			}
			fields[k] = v
		}
		items = append(items, types.ChildItem{ID: row.ID(), Fields: fields})
	}
	return items, nil
}

// toRecord flattens an entity into a store record. Section flags and the
// sort position travel in reserved columns.
func toRecord(e *types.Entity) types.Record {
	rec := make(types.Record, len(e.Fields)+2)
	for k, v := range e.Fields {
		rec[k] = v
	}
	sections := make(map[string]any, len(e.Sections))
	for id, on := range e.Sections {
		sections[string(id)] = on
	}
	rec[types.ColumnSections] = sections
	rec[types.ColumnSortOrder] = e.Order
	if !e.IsNew() {
		rec[types.FieldID] = e.ID
	}
	return rec
}

func childRecord(parentID string, pos int, item types.ChildItem) types.Record {
	rec := make(types.Record, len(item.Fields)+3)
	for k, v := range item.Fields {
		rec[k] = v
	}
	if item.ID != "" {
		rec[types.FieldID] = item.ID
	}
	rec[types.ColumnParentID] = parentID
	rec[types.ColumnSortOrder] = pos
	return rec
}

// fromRecord rebuilds an entity from a stored record. Multi-value fields
// decoded from JSON are normalized to []string.
func fromRecord(t types.EntityType, rec types.Record, fields []types.FieldDescriptor) *types.Entity {
	e := types.NewEntity(t)
	e.ID = rec.ID()
	e.UpdatedAt = updatedAt(rec)
	for k, v := range rec {
		switch k {
		case types.FieldID, types.ColumnUpdatedAt:
		case types.ColumnSortOrder:
			e.Order = intOf(v)
		case types.ColumnSections:
			if m, ok := v.(map[string]any); ok {
				for id, on := range m {
					b, _ := on.(bool)
					e.Sections[types.SectionID(id)] = b
				}
			}
		default:
			e.Fields[k] = v
		}
	}
	for _, f := range fields {
		v, ok := e.Fields[f.Name]
		if !ok {
			continue
		}
		switch f.Type {
		case types.FieldTagList, types.FieldImageCollection:
			e.Fields[f.Name] = types.StringsOf(v)
		}
	}
	return e
}

func intOf(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func updatedAt(rec types.Record) time.Time {
	s, _ := rec[types.ColumnUpdatedAt].(string)
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}
