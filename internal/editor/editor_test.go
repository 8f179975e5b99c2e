package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/folio/internal/render"
	"github.com/mesh-intelligence/folio/internal/schema"
	"github.com/mesh-intelligence/folio/pkg/types"
)

const noteType types.EntityType = "note"

func noteSchema(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.New(nil, schema.EntitySchema{
		Type:  noteType,
		Label: "Note",
		Table: "notes",
		Sections: []types.SectionSpec{
			{ID: types.SectionBasics, Label: "Basics", Mandatory: true},
			{ID: types.SectionCTA, Label: "Call to action"},
		},
		Fields: []types.FieldDescriptor{
			{Name: "title", Label: "Title", Type: types.FieldText, Required: true, MaxLength: 40, Section: types.SectionBasics},
			{Name: "body", Label: "Body", Type: types.FieldLongText},
			{Name: "cta_label", Label: "Button", Type: types.FieldText, Required: true, Section: types.SectionCTA},
		},
		Collections: []types.Collection{{Name: "tags", Table: "note_tags"}},
	})
	require.NoError(t, err)
	return reg
}

// fakeStore is a Persister that records every save. When hold is set, each
// save blocks until a value is sent on it.
type fakeStore struct {
	mu      sync.Mutex
	saves   []*types.Entity
	ops     []string
	err     error
	next    int
	hold    chan struct{}
	started chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{started: make(chan struct{}, 16)}
}

func (f *fakeStore) Save(_ context.Context, e, _ *types.Entity) (*types.Entity, error) {
	f.started <- struct{}{}
	if f.hold != nil {
		<-f.hold
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, e.Clone())
	if f.err != nil {
		f.ops = append(f.ops, "fail")
		return nil, f.err
	}
	out := e.Clone()
	if out.IsNew() {
		f.next++
		out.ID = fmt.Sprintf("note-%d", f.next)
		f.ops = append(f.ops, "create")
	} else {
		f.ops = append(f.ops, "update "+out.ID)
	}
	for _, items := range out.Children {
		for i := range items {
			if items[i].ID == "" {
				f.next++
				items[i].ID = fmt.Sprintf("tag-%d", f.next)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeStore) operations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

func (f *fakeStore) last() *types.Entity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves[len(f.saves)-1]
}

func testConfig(auto bool) types.EditorConfig {
	return types.EditorConfig{QuietPeriod: testQuiet, StatusWindow: testWindow, AutoSave: auto}
}

func persistedNote(title string) *types.Entity {
	e := types.NewEntity(noteType)
	e.ID = "note-0"
	e.Set("title", title)
	return e
}

func TestEditor_TypingCoalescesIntoOneSave(t *testing.T) {
	store := newFakeStore()
	ed := New(noteSchema(t), store, persistedNote("A"), WithConfig(testConfig(true)))
	t.Cleanup(ed.Close)
	log := &statusLog{}
	ed.OnStatus(log.observe)

	assert.Equal(t, types.Status{State: types.StateIdle}, ed.Status())

	require.NoError(t, ed.SetField("title", "A"))
	require.NoError(t, ed.SetField("title", "AB"))
	assert.True(t, ed.Status().Dirty)

	assert.Eventually(t, func() bool {
		return ed.Status() == types.Status{State: types.StateIdle} && len(log.get()) == 4
	}, waitFor, tick)

	require.Equal(t, 1, store.count())
	assert.Equal(t, "AB", store.last().Fields["title"])
	assert.Equal(t, []types.SaveState{
		types.StateIdle, types.StateSaving, types.StateSuccess, types.StateIdle,
	}, log.get())
}

func TestEditor_CreateThenUpdate(t *testing.T) {
	store := newFakeStore()
	ed := New(noteSchema(t), store, types.NewEntity(noteType), WithConfig(testConfig(false)))
	t.Cleanup(ed.Close)
	ctx := context.Background()

	require.NoError(t, ed.SetField("title", "First"))
	require.NoError(t, ed.Save(ctx))
	id := ed.ID()
	require.NotEmpty(t, id)

	require.NoError(t, ed.SetField("title", "Second"))
	require.NoError(t, ed.Save(ctx))

	assert.Equal(t, []string{"create", "update " + id}, store.operations())
	assert.Equal(t, id, ed.ID())
	assert.False(t, ed.Status().Dirty)
}

func TestEditor_SecondSaveWhileInFlightIsRejected(t *testing.T) {
	store := newFakeStore()
	store.hold = make(chan struct{})
	ed := New(noteSchema(t), store, persistedNote("A"), WithConfig(testConfig(false)))
	t.Cleanup(ed.Close)
	ctx := context.Background()

	require.NoError(t, ed.SetField("title", "B"))
	done := make(chan error, 1)
	go func() { done <- ed.Save(ctx) }()
	<-store.started

	assert.ErrorIs(t, ed.Save(ctx), types.ErrAlreadySaving)
	assert.Equal(t, types.StateSaving, ed.Status().State)

	store.hold <- struct{}{}
	require.NoError(t, <-done)
	assert.Equal(t, 1, store.count())
	assert.Equal(t, types.StateSuccess, ed.Status().State)
}

func TestEditor_EditDuringSaveIsSavedNextCycle(t *testing.T) {
	store := newFakeStore()
	store.hold = make(chan struct{})
	ed := New(noteSchema(t), store, persistedNote("A"), WithConfig(testConfig(true)))
	t.Cleanup(ed.Close)

	require.NoError(t, ed.SetField("title", "B"))
	<-store.started

	require.NoError(t, ed.SetField("title", "C"))
	store.hold <- struct{}{}

	assert.Eventually(t, func() bool { return ed.Status().State == types.StateSaving }, waitFor, tick)
	<-store.started
	store.hold <- struct{}{}

	assert.Eventually(t, func() bool {
		return store.count() == 2 && !ed.Status().Dirty
	}, waitFor, tick)
	assert.Equal(t, "C", store.last().Fields["title"])
}

func TestEditor_FailedSaveKeepsDirty(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("store unavailable")
	ed := New(noteSchema(t), store, persistedNote("A"), WithConfig(testConfig(false)))
	t.Cleanup(ed.Close)

	require.NoError(t, ed.SetField("title", "B"))
	err := ed.Save(context.Background())
	require.Error(t, err)

	assert.Equal(t, types.Status{State: types.StateError, Dirty: true}, ed.Status())
	assert.ErrorIs(t, ed.LastError(), store.err)
	assert.Eventually(t, func() bool { return ed.Status().State == types.StateIdle }, waitFor, tick)
	assert.True(t, ed.Status().Dirty)

	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()
	require.NoError(t, ed.Save(context.Background()))
	assert.False(t, ed.Status().Dirty)
	assert.NoError(t, ed.LastError())
}

func TestEditor_ValidationBlocksSave(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, ed *Editor)
		wantErr bool
		field   string
	}{
		{
			name:    "missing required title",
			prepare: func(t *testing.T, ed *Editor) {},
			wantErr: true,
			field:   "title",
		},
		{
			name: "required field in disabled section is ignored",
			prepare: func(t *testing.T, ed *Editor) {
				require.NoError(t, ed.SetField("title", "Hello"))
			},
		},
		{
			name: "required field in enabled section blocks",
			prepare: func(t *testing.T, ed *Editor) {
				require.NoError(t, ed.SetField("title", "Hello"))
				changed, err := ed.ToggleSection(types.SectionCTA)
				require.NoError(t, err)
				require.True(t, changed)
			},
			wantErr: true,
			field:   "cta_label",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			ed := New(noteSchema(t), store, types.NewEntity(noteType), WithConfig(testConfig(false)))
			t.Cleanup(ed.Close)
			tt.prepare(t, ed)

			err := ed.Save(context.Background())
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Nil(t, ed.Validation())
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrValidation)
			var verr *types.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
			assert.Same(t, verr, ed.Validation())
			assert.Equal(t, 0, store.count())
			assert.Equal(t, types.StateIdle, ed.Status().State)
		})
	}
}

func TestEditor_AutoSaveValidationFailureIsRecorded(t *testing.T) {
	store := newFakeStore()
	ed := New(noteSchema(t), store, types.NewEntity(noteType), WithConfig(testConfig(true)))
	t.Cleanup(ed.Close)

	require.NoError(t, ed.SetField("body", "no title yet"))
	assert.Eventually(t, func() bool { return ed.Validation() != nil }, waitFor, tick)
	assert.Equal(t, 0, store.count())
	assert.Equal(t, types.Status{State: types.StateIdle, Dirty: true}, ed.Status())
}

func TestEditor_CloseClearsPendingSave(t *testing.T) {
	store := newFakeStore()
	ed := New(noteSchema(t), store, persistedNote("A"), WithConfig(testConfig(true)))

	require.NoError(t, ed.SetField("title", "B"))
	ed.Close()

	assert.Never(t, func() bool { return store.count() > 0 }, 4*testQuiet, tick)
	assert.ErrorIs(t, ed.SetField("title", "C"), types.ErrEditorClosed)
	assert.ErrorIs(t, ed.Save(context.Background()), types.ErrEditorClosed)
	assert.True(t, ed.Closed())
}

func TestEditor_CloseDiscardsInFlightResult(t *testing.T) {
	store := newFakeStore()
	store.hold = make(chan struct{})
	ed := New(noteSchema(t), store, types.NewEntity(noteType), WithConfig(testConfig(false)))
	require.NoError(t, ed.SetField("title", "A"))

	done := make(chan error, 1)
	go func() { done <- ed.Save(context.Background()) }()
	<-store.started
	ed.Close()
	store.hold <- struct{}{}
	require.NoError(t, <-done)

	assert.Equal(t, 1, store.count())
	assert.True(t, ed.Entity().IsNew())
	assert.Equal(t, types.StateSaving, ed.Status().State)
}

func TestEditor_Notifications(t *testing.T) {
	tests := []struct {
		name        string
		notifyAuto  bool
		wantNotices int
	}{
		{"manual only by default", false, 1},
		{"auto-save notices when enabled", true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mu sync.Mutex
			var notices []Notice
			cfg := testConfig(true)
			cfg.NotifyAutoSave = tt.notifyAuto
			store := newFakeStore()
			ed := New(noteSchema(t), store, persistedNote("A"),
				WithConfig(cfg),
				WithNotifier(NotifierFunc(func(n Notice) {
					mu.Lock()
					notices = append(notices, n)
					mu.Unlock()
				})))
			t.Cleanup(ed.Close)

			require.NoError(t, ed.SetField("title", "B"))
			assert.Eventually(t, func() bool { return store.count() == 1 }, waitFor, tick)
			assert.Eventually(t, func() bool { return !ed.Status().Dirty }, waitFor, tick)

			require.NoError(t, ed.SetField("title", "C"))
			require.NoError(t, ed.Save(context.Background()))

			time.Sleep(2 * testQuiet)
			mu.Lock()
			defer mu.Unlock()
			require.Len(t, notices, tt.wantNotices)
			last := notices[len(notices)-1]
			assert.False(t, last.Auto)
			assert.Equal(t, "note-0", last.ID)
			assert.NoError(t, last.Err)
		})
	}
}

func TestEditor_FieldAndSectionEdits(t *testing.T) {
	ed := New(noteSchema(t), newFakeStore(), types.NewEntity(noteType), WithConfig(testConfig(false)))
	t.Cleanup(ed.Close)

	assert.ErrorIs(t, ed.SetField("nope", 1), types.ErrUnknownField)
	assert.Equal(t, "", ed.Entity().Fields["title"], "missing fields get defaults")

	changed, err := ed.ToggleSection(types.SectionBasics)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, ed.Status().Dirty, "mandatory toggle is a no-op")

	changed, err = ed.SetSection(types.SectionCTA, true)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, ed.Status().Dirty)
	assert.True(t, ed.Entity().Sections[types.SectionCTA])

	var names []string
	for _, f := range ed.VisibleFields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"title", "body", "cta_label"}, names)
}

func TestEditor_ChildCollection(t *testing.T) {
	store := newFakeStore()
	ed := New(noteSchema(t), store, persistedNote("A"), WithConfig(testConfig(false)))
	t.Cleanup(ed.Close)

	_, err := ed.AddChild("links", nil)
	assert.ErrorIs(t, err, types.ErrUnknownCollection)

	i, err := ed.AddChild("tags", map[string]any{"name": "go"})
	require.NoError(t, err)
	assert.Equal(t, 0, i)
	_, err = ed.AddChild("tags", map[string]any{"name": "sql"})
	require.NoError(t, err)
	require.NoError(t, ed.UpdateChild("tags", 1, map[string]any{"name": "sqlite"}))
	assert.ErrorIs(t, ed.UpdateChild("tags", 5, nil), types.ErrNotFound)

	require.NoError(t, ed.Save(context.Background()))
	ids := ed.Entity().ChildIDs("tags")
	assert.Len(t, ids, 2)

	require.NoError(t, ed.RemoveChild("tags", 0))
	items := ed.Entity().Children["tags"]
	require.Len(t, items, 1)
	assert.Equal(t, ids[1], items[0].ID)
	assert.Equal(t, "sqlite", items[0].Fields["name"])
	assert.True(t, ed.Status().Dirty)
}

func TestEditor_ControlsApplyChanges(t *testing.T) {
	ed := New(noteSchema(t), newFakeStore(), persistedNote("A"), WithConfig(testConfig(false)))
	t.Cleanup(ed.Close)

	controls := ed.Controls(render.New())
	require.Len(t, controls, 2, "disabled section is not rendered")

	title, ok := controls[0].(*render.TextControl)
	require.True(t, ok)
	assert.Equal(t, "A", title.Value())
	title.Set("A much longer title that will be cut at forty runes")

	got := ed.Entity().Fields["title"].(string)
	assert.Len(t, []rune(got), 40)
	assert.True(t, ed.Status().Dirty)
}

func TestEditor_RevertingAnEditClearsDirty(t *testing.T) {
	store := newFakeStore()
	ed := New(noteSchema(t), store, persistedNote("A"), WithConfig(testConfig(true)))
	t.Cleanup(ed.Close)

	require.NoError(t, ed.SetField("title", "AB"))
	assert.True(t, ed.Status().Dirty)
	require.NoError(t, ed.SetField("title", "A"))
	assert.Equal(t, types.Status{State: types.StateIdle}, ed.Status())

	changed, err := ed.ToggleSection(types.SectionCTA)
	require.NoError(t, err)
	require.True(t, changed)
	assert.True(t, ed.Status().Dirty)
	_, err = ed.ToggleSection(types.SectionCTA)
	require.NoError(t, err)
	assert.False(t, ed.Status().Dirty)

	assert.Never(t, func() bool { return store.count() > 0 }, 4*testQuiet, tick)
}

func TestEditor_RevertOnNewEntityStaysDirty(t *testing.T) {
	ed := New(noteSchema(t), newFakeStore(), types.NewEntity(noteType), WithConfig(testConfig(false)))
	t.Cleanup(ed.Close)

	require.NoError(t, ed.SetField("title", "A"))
	require.NoError(t, ed.SetField("title", ""))
	assert.True(t, ed.Status().Dirty, "never-persisted entity has nothing to match")
}

func TestNew_NilEntityPanics(t *testing.T) {
	assert.PanicsWithValue(t, "editor: New called with a nil entity", func() {
		New(noteSchema(t), newFakeStore(), nil)
	})
}
