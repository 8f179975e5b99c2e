// Package editor implements the auto-saving entity editor: a save-state
// tracker, a debounce coordinator and the editor that ties them to one
// entity, its section gate and a persistence backend.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/mesh-intelligence/folio/internal/render"
	"github.com/mesh-intelligence/folio/internal/sections"
	"github.com/mesh-intelligence/folio/pkg/types"
)

// Schema is the part of the field schema registry an editor needs.
type Schema interface {
	Fields(t types.EntityType) []types.FieldDescriptor
	Sections(t types.EntityType) []types.SectionSpec
	Collections(t types.EntityType) []types.Collection
}

// Persister saves an entity given its last persisted version. *persist.Adapter
// satisfies it. When a save fails after some writes were committed, Save
// returns the partially persisted entity together with the error.
type Persister interface {
	Save(ctx context.Context, entity, previous *types.Entity) (*types.Entity, error)
}

// Notice describes a resolved save.
type Notice struct {
	Type types.EntityType
	ID   string
	Auto bool  // true when the save was triggered by the debouncer.
	Err  error // nil on success.
}

// Notifier receives save notices (the toast shown after a save).
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Editor owns one entity together with its save-state tracker, debouncer and
// section gate. It is safe for concurrent use; at most one save is in flight
// at a time.
type Editor struct {
	mu       sync.Mutex
	entity   *types.Entity
	saved    *types.Entity // last successfully persisted version; nil if never saved.
	fields   []types.FieldDescriptor
	index    map[string]types.FieldDescriptor
	colls    map[string]bool
	gate     *sections.Gate
	tracker  *Tracker
	debounce *Debouncer
	store    Persister
	notifier Notifier
	cfg      types.EditorConfig
	logger   *slog.Logger

	saving           bool
	editedDuringSave bool
	retry            bool
	closed           bool
	validation       *types.ValidationError
	lastErr          error
}

// Option configures an Editor.
type Option func(*Editor)

// WithConfig sets timing, auto-save and notification behavior. Zero
// durations fall back to the defaults.
func WithConfig(cfg types.EditorConfig) Option {
	return func(e *Editor) { e.cfg = cfg.WithDefaults() }
}

// WithNotifier sets the save notifier.
func WithNotifier(n Notifier) Option {
	return func(e *Editor) { e.notifier = n }
}

// WithLogger sets the editor's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New mounts an editor on a copy of entity. Schema fields missing from the
// entity get their type's default value and section flags are restored
// from the entity. Auto-save is on unless WithConfig turns it off.
// entity must not be nil; use types.NewEntity for a new one.
func New(s Schema, store Persister, entity *types.Entity, opts ...Option) *Editor {
	if entity == nil {
		panic("editor: New called with a nil entity")
	}
	e := &Editor{
		store:  store,
		cfg:    types.EditorConfig{AutoSave: true}.WithDefaults(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}

	ent := entity.Clone()
	e.fields = s.Fields(ent.Type)
	e.index = make(map[string]types.FieldDescriptor, len(e.fields))
	for _, f := range e.fields {
		e.index[f.Name] = f
		if _, ok := ent.Fields[f.Name]; !ok {
			if v := types.DefaultValue(f.Type); v != nil {
				ent.Fields[f.Name] = v
			}
		}
	}
	e.colls = make(map[string]bool)
	for _, c := range s.Collections(ent.Type) {
		e.colls[c.Name] = true
	}
	e.gate = sections.NewGate(s.Sections(ent.Type))
	e.gate.Restore(ent.Sections)
	ent.Sections = e.gate.Snapshot()

	e.entity = ent
	if !ent.IsNew() {
		e.saved = ent.Clone()
	}
	e.logger = e.logger.With("type", ent.Type)
	e.tracker = NewTracker(e.cfg.StatusWindow)
	e.debounce = NewDebouncer(e.cfg.QuietPeriod, e.autoSave)
	return e
}

// SetField assigns a field value, marks the entity dirty and, with
// auto-save on, restarts the save countdown. Assigning the current value
// changes nothing.
func (e *Editor) SetField(name string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return types.ErrEditorClosed
	}
	if _, ok := e.index[name]; !ok {
		return fmt.Errorf("%w: %s", types.ErrUnknownField, name)
	}
	if cur, ok := e.entity.Get(name); ok && reflect.DeepEqual(cur, value) {
		return nil
	}
	e.entity.Set(name, value)
	e.changedLocked()
	return nil
}

// Apply applies a change event emitted by a control.
func (e *Editor) Apply(ev render.ChangeEvent) error {
	return e.SetField(ev.Field, ev.Value)
}

// SetChildren replaces a child collection.
func (e *Editor) SetChildren(collection string, items []types.ChildItem) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkCollectionLocked(collection); err != nil {
		return err
	}
	copied := make([]types.ChildItem, len(items))
	for i, item := range items {
		copied[i] = types.ChildItem{ID: item.ID, Fields: cloneMap(item.Fields)}
	}
	e.entity.Children[collection] = copied
	e.changedLocked()
	return nil
}

// AddChild appends a new, unsaved item to a collection and returns its
// index.
func (e *Editor) AddChild(collection string, fields map[string]any) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkCollectionLocked(collection); err != nil {
		return -1, err
	}
	items := append(e.entity.Children[collection], types.ChildItem{Fields: cloneMap(fields)})
	e.entity.Children[collection] = items
	e.changedLocked()
	return len(items) - 1, nil
}

// UpdateChild merges fields into the item at index.
func (e *Editor) UpdateChild(collection string, index int, fields map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkCollectionLocked(collection); err != nil {
		return err
	}
	items := e.entity.Children[collection]
	if index < 0 || index >= len(items) {
		return fmt.Errorf("%w: %s[%d]", types.ErrNotFound, collection, index)
	}
	if items[index].Fields == nil {
		items[index].Fields = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		items[index].Fields[k] = v
	}
	e.changedLocked()
	return nil
}

// RemoveChild drops the item at index. A persisted item is deleted from the
// store on the next save.
func (e *Editor) RemoveChild(collection string, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkCollectionLocked(collection); err != nil {
		return err
	}
	items := e.entity.Children[collection]
	if index < 0 || index >= len(items) {
		return fmt.Errorf("%w: %s[%d]", types.ErrNotFound, collection, index)
	}
	e.entity.Children[collection] = append(items[:index:index], items[index+1:]...)
	e.changedLocked()
	return nil
}

// ToggleSection flips an optional section and reports whether it changed.
// Mandatory and unknown sections are left alone and do not dirty the
// entity.
func (e *Editor) ToggleSection(id types.SectionID) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false, types.ErrEditorClosed
	}
	if !e.gate.Toggle(id) {
		return false, nil
	}
	e.entity.Sections = e.gate.Snapshot()
	e.changedLocked()
	return true, nil
}

// SetSection enables or disables a section and reports whether it changed.
func (e *Editor) SetSection(id types.SectionID, enabled bool) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false, types.ErrEditorClosed
	}
	if !e.gate.Set(id, enabled) {
		return false, nil
	}
	e.entity.Sections = e.gate.Snapshot()
	e.changedLocked()
	return true, nil
}

func (e *Editor) checkCollectionLocked(collection string) error {
	if e.closed {
		return types.ErrEditorClosed
	}
	if !e.colls[collection] {
		return fmt.Errorf("%w: %s", types.ErrUnknownCollection, collection)
	}
	return nil
}

// changedLocked records an edit. While a save is in flight the countdown is
// not restarted; the save re-arms it when it resolves. An edit that brings
// the entity back to its last persisted value clears dirty and drops the
// countdown.
func (e *Editor) changedLocked() {
	if e.saving {
		e.tracker.MarkDirty()
		e.editedDuringSave = true
		return
	}
	if e.saved != nil && e.saved.Equal(e.entity) {
		e.debounce.Cancel()
		e.tracker.MarkClean()
		return
	}
	e.tracker.MarkDirty()
	if e.cfg.AutoSave {
		e.debounce.NotifyChange()
	}
}

// Save validates and persists the entity now. Required fields of enabled
// sections are checked on every call; a *types.ValidationError means
// nothing was sent. ErrAlreadySaving means another save is in flight.
func (e *Editor) Save(ctx context.Context) error {
	return e.save(ctx, false)
}

func (e *Editor) autoSave() {
	if err := e.save(context.Background(), true); err != nil {
		e.logger.Debug("auto-save did not complete", "error", err)
	}
}

func (e *Editor) save(ctx context.Context, auto bool) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return types.ErrEditorClosed
	}
	if e.saving {
		if auto {
			e.retry = true
		}
		e.mu.Unlock()
		return types.ErrAlreadySaving
	}
	if verr := e.gate.Validate(e.fields, e.entity.Fields); verr != nil {
		e.validation = verr
		e.mu.Unlock()
		e.logger.Debug("save blocked by validation", "auto", auto, "error", verr)
		return verr
	}
	e.validation = nil
	if err := e.tracker.BeginSave(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.saving = true
	e.editedDuringSave = false
	e.debounce.Cancel()
	snapshot := e.entity.Clone()
	previous := e.saved.Clone()
	e.mu.Unlock()

	persisted, err := e.store.Save(ctx, snapshot, previous)

	e.mu.Lock()
	e.saving = false
	if e.closed {
		e.mu.Unlock()
		e.logger.Debug("editor closed, save result discarded", "error", err)
		return err
	}
	if err != nil {
		e.lastErr = err
		if persisted != nil {
			e.mergeLocked(snapshot, persisted)
			e.saved = persisted
		}
		e.tracker.CompleteSave(false)
	} else {
		e.lastErr = nil
		e.mergeLocked(snapshot, persisted)
		e.saved = persisted
		e.tracker.CompleteSave(true)
	}
	if e.cfg.AutoSave && (e.editedDuringSave || e.retry) {
		e.debounce.NotifyChange()
	}
	e.retry = false
	notice := Notice{Type: e.entity.Type, ID: e.entity.ID, Auto: auto, Err: err}
	e.mu.Unlock()

	if err != nil {
		e.logger.Warn("save failed", "id", notice.ID, "auto", auto, "error", err)
	} else {
		e.logger.Debug("saved", "id", notice.ID, "auto", auto)
	}
	if e.notifier != nil && (!auto || e.cfg.NotifyAutoSave) {
		e.notifier.Notify(notice)
	}
	return err
}

// mergeLocked copies store-assigned ids into the live entity. The entity id
// is taken only while the entity is still new. A child item receives the id
// of the item inserted at the same position if it still has none; any
// mismatch is corrected by reconciliation on the next save.
func (e *Editor) mergeLocked(sent, persisted *types.Entity) {
	if e.entity.IsNew() {
		e.entity.ID = persisted.ID
	}
	e.entity.UpdatedAt = persisted.UpdatedAt
	for name, items := range persisted.Children {
		before := sent.Children[name]
		current := e.entity.Children[name]
		for i := range items {
			if i < len(before) && before[i].ID == "" && i < len(current) && current[i].ID == "" {
				current[i].ID = items[i].ID
			}
		}
	}
}

// Close unmounts the editor: pending countdowns and status timers are
// cleared and an in-flight save finishes without touching the editor.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.debounce.Stop()
	e.tracker.Stop()
}

// Closed reports whether Close has been called.
func (e *Editor) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Entity returns a copy of the in-memory entity.
func (e *Editor) Entity() *types.Entity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.entity.Clone()
}

// ID returns the entity id, empty until the first successful save.
func (e *Editor) ID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.entity.ID
}

// Status returns the save state and dirty flag.
func (e *Editor) Status() types.Status {
	return e.tracker.Status()
}

// OnStatus registers an observer for save-state changes. Observers may call
// Status but no other Editor method.
func (e *Editor) OnStatus(fn func(types.Status)) {
	e.tracker.OnChange(fn)
}

// Validation returns the errors that blocked the last save attempt, or nil.
func (e *Editor) Validation() *types.ValidationError {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validation
}

// LastError returns the error of the last failed save, cleared by the next
// successful one.
func (e *Editor) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Sections returns the section flags.
func (e *Editor) Sections() []types.SectionSpec {
	return e.gate.Sections()
}

// VisibleFields returns the descriptors of fields in enabled sections.
func (e *Editor) VisibleFields() []types.FieldDescriptor {
	return e.gate.Visible(e.fields)
}

// Controls renders the form for the current entity. Control changes are
// applied to the editor.
func (e *Editor) Controls(r *render.Renderer) []render.Control {
	e.mu.Lock()
	values := e.entity.Clone().Fields
	folder := string(e.entity.Type)
	e.mu.Unlock()
	return r.WithFolder(folder).RenderAll(e.fields, values, e.gate, func(ev render.ChangeEvent) {
		if err := e.Apply(ev); err != nil {
			e.logger.Warn("change rejected", "field", ev.Field, "error", err)
		}
	})
}

func (e *Editor) order() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.entity.Order
}

// setOrder records a persisted sort position without dirtying the entity.
func (e *Editor) setOrder(order int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entity.Order = order
	if e.saved != nil {
		e.saved.Order = order
	}
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
