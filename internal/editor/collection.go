package editor

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/mesh-intelligence/folio/pkg/types"
)

// Backend is the persistence a list page needs. *persist.Adapter satisfies
// it.
type Backend interface {
	Persister
	Load(ctx context.Context, t types.EntityType) ([]*types.Entity, error)
	Delete(ctx context.Context, entity *types.Entity) error
	SetOrder(ctx context.Context, entity *types.Entity, order int) error
}

// Collection is the list page of one entity type: an ordered set of
// editors, one per entity.
type Collection struct {
	mu      sync.Mutex
	typ     types.EntityType
	schema  Schema
	store   Backend
	opts    []Option
	editors []*Editor
	logger  *slog.Logger
}

// NewCollection returns an empty collection. opts are applied to every
// editor it mounts.
func NewCollection(t types.EntityType, s Schema, store Backend, opts ...Option) *Collection {
	return &Collection{
		typ:    t,
		schema: s,
		store:  store,
		opts:   opts,
		logger: loggerFrom(opts).With("type", t),
	}
}

// loggerFrom returns the logger an editor built with opts would use.
func loggerFrom(opts []Option) *slog.Logger {
	e := &Editor{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(e)
	}
	return e.logger
}

// Load replaces the list with the stored entities in sort order.
func (c *Collection) Load(ctx context.Context) error {
	entities, err := c.store.Load(ctx, c.typ)
	if err != nil {
		return fmt.Errorf("loading %s: %w", c.typ, err)
	}
	slices.SortStableFunc(entities, func(a, b *types.Entity) int { return a.Order - b.Order })

	editors := make([]*Editor, len(entities))
	for i, ent := range entities {
		editors[i] = New(c.schema, c.store, ent, c.opts...)
	}

	c.mu.Lock()
	old := c.editors
	c.editors = editors
	c.mu.Unlock()
	for _, ed := range old {
		ed.Close()
	}
	c.logger.Debug("collection loaded", "count", len(editors))
	return nil
}

// Editors returns the mounted editors in list order.
func (c *Collection) Editors() []*Editor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.editors)
}

// Len returns the number of mounted editors.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.editors)
}

// Get returns the editor of a persisted entity.
func (c *Collection) Get(id string) (*Editor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(id)
	if i < 0 {
		return nil, false
	}
	return c.editors[i], true
}

// Add mounts an editor on a new, unsaved entity placed at the end of the
// list.
func (c *Collection) Add() *Editor {
	c.mu.Lock()
	defer c.mu.Unlock()
	ent := types.NewEntity(c.typ)
	for _, ed := range c.editors {
		if o := ed.order(); o >= ent.Order {
			ent.Order = o + 1
		}
	}
	ed := New(c.schema, c.store, ent, c.opts...)
	c.editors = append(c.editors, ed)
	return ed
}

// Remove deletes a persisted entity and then drops its editor. On failure
// the list is unchanged.
func (c *Collection) Remove(ctx context.Context, id string) error {
	ed, ok := c.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s %s", types.ErrNotFound, c.typ, id)
	}
	if err := c.store.Delete(ctx, ed.Entity()); err != nil {
		return err
	}
	c.detach(ed)
	c.logger.Debug("entity removed", "id", id)
	return nil
}

// Discard drops an editor without touching the store. Use it for entities
// that were never saved.
func (c *Collection) Discard(ed *Editor) bool {
	return c.detach(ed)
}

func (c *Collection) detach(ed *Editor) bool {
	c.mu.Lock()
	i := slices.Index(c.editors, ed)
	if i >= 0 {
		c.editors = slices.Delete(c.editors, i, i+1)
	}
	c.mu.Unlock()
	if i < 0 {
		return false
	}
	ed.Close()
	return true
}

// Reorder applies the id order emitted by the reordering widget. ids must
// list every persisted entity exactly once. Positions that changed are
// written to the store; the first failure stops the pass and earlier
// writes stay committed. Unsaved entities keep their place after the
// persisted ones.
func (c *Collection) Reorder(ctx context.Context, ids []string) error {
	c.mu.Lock()
	var persisted, unsaved []*Editor
	for _, ed := range c.editors {
		if ed.ID() == "" {
			unsaved = append(unsaved, ed)
		} else {
			persisted = append(persisted, ed)
		}
	}
	ordered := make([]*Editor, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		i := c.indexLocked(id)
		if i < 0 || seen[id] {
			c.mu.Unlock()
			return fmt.Errorf("%w: %s", types.ErrReorderMismatch, id)
		}
		seen[id] = true
		ordered = append(ordered, c.editors[i])
	}
	if len(ordered) != len(persisted) {
		c.mu.Unlock()
		return fmt.Errorf("%w: got %d ids for %d entities", types.ErrReorderMismatch, len(ordered), len(persisted))
	}
	c.editors = append(slices.Clone(ordered), unsaved...)
	c.mu.Unlock()

	for pos, ed := range ordered {
		if ed.order() == pos {
			continue
		}
		if err := c.store.SetOrder(ctx, ed.Entity(), pos); err != nil {
			return err
		}
		ed.setOrder(pos)
	}
	for j, ed := range unsaved {
		ed.setOrder(len(ordered) + j)
	}
	c.logger.Debug("collection reordered", "count", len(ordered))
	return nil
}

func (c *Collection) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, ed := range c.editors {
		if ed.ID() == id {
			return i
		}
	}
	return -1
}

// Close unmounts every editor.
func (c *Collection) Close() {
	c.mu.Lock()
	editors := c.editors
	c.editors = nil
	c.mu.Unlock()
	for _, ed := range editors {
		ed.Close()
	}
}
