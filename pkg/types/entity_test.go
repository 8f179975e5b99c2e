package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEntityClone(t *testing.T) {
	e := NewEntity(EntityProject)
	e.ID = "p1"
	e.Set("title", "Folio")
	e.Set("tags", []string{"go"})
	e.Set("meta", map[string]any{"list": []any{"a"}})
	e.Children["tags"] = []ChildItem{{ID: "t1", Fields: map[string]any{"name": "go"}}}
	e.Sections[SectionLinks] = true
	e.UpdatedAt = time.Now()

	c := e.Clone()
	if !c.Equal(e) {
		t.Fatal("clone should equal original")
	}

	c.Fields["tags"].([]string)[0] = "rust"
	c.Fields["meta"].(map[string]any)["list"].([]any)[0] = "b"
	c.Children["tags"][0].Fields["name"] = "rust"
	c.Sections[SectionLinks] = false

	if got := e.Fields["tags"].([]string)[0]; got != "go" {
		t.Errorf("tags leaked into original: %q", got)
	}
	if got := e.Fields["meta"].(map[string]any)["list"].([]any)[0]; got != "a" {
		t.Errorf("nested list leaked into original: %v", got)
	}
	if got := e.Children["tags"][0].Fields["name"]; got != "go" {
		t.Errorf("child leaked into original: %v", got)
	}
	if !e.Sections[SectionLinks] {
		t.Error("sections leaked into original")
	}
	if c.Equal(e) {
		t.Error("modified clone should differ")
	}
}

func TestEntityCloneNil(t *testing.T) {
	var e *Entity
	if e.Clone() != nil {
		t.Error("nil clone should be nil")
	}
	if !e.Equal(nil) {
		t.Error("nil equals nil")
	}
	if e.Equal(NewEntity(EntityHero)) {
		t.Error("nil should not equal an entity")
	}
}

func TestEntityEqualIgnoresUpdatedAt(t *testing.T) {
	a := NewEntity(EntityHero)
	b := a.Clone()
	b.UpdatedAt = time.Now()
	if !a.Equal(b) {
		t.Error("UpdatedAt should not affect equality")
	}
	b.Order = 2
	if a.Equal(b) {
		t.Error("Order should affect equality")
	}
}

func TestEntityAccessors(t *testing.T) {
	e := &Entity{Type: EntityAbout}
	if !e.IsNew() {
		t.Error("entity without id should be new")
	}
	if _, ok := e.Get("title"); ok {
		t.Error("Get on empty fields should miss")
	}
	e.Set("title", "About me")
	if v, ok := e.Get("title"); !ok || v != "About me" {
		t.Errorf("Get(title) = %v, %v", v, ok)
	}

	e.Children = map[string][]ChildItem{"links": {{ID: "a"}, {}, {ID: "b"}}}
	ids := e.ChildIDs("links")
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("ChildIDs = %v, want [a b]", ids)
	}
	if len(e.ChildIDs("missing")) != 0 {
		t.Error("unknown collection should have no ids")
	}
}

func TestEntityEqualEmptyCollections(t *testing.T) {
	a := NewEntity(EntityProject)
	b := a.Clone()
	b.Children["tags"] = []ChildItem{}
	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))

	b.Children["tags"] = append(b.Children["tags"], ChildItem{Fields: map[string]any{"name": "go"}})
	assert.False(t, a.Equal(b))
	assert.False(t, b.Equal(a))
}
