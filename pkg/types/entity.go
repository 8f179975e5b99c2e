package types

import (
	"maps"
	"reflect"
	"time"
)

// EntityType keys the schema, sections and backing table of an entity.
type EntityType string

// Built-in portfolio entity types.
const (
	EntityHero          EntityType = "hero"
	EntityAbout         EntityType = "about"
	EntityProject       EntityType = "project"
	EntityExperience    EntityType = "experience"
	EntitySkillCategory EntityType = "skill_category"
	EntitySocialLink    EntityType = "social_link"
	EntityContact       EntityType = "contact"
	EntityBlogPost      EntityType = "blog_post"
)

// Reserved record columns written alongside the schema fields.
const (
	ColumnSections  = "sections"
	ColumnSortOrder = "sort_order"
	ColumnParentID  = "parent_id"
	ColumnUpdatedAt = "updated_at"
)

// ChildItem is one element of a child collection (a tag, an experience, a
// social link). ID is empty until the item has been persisted.
type ChildItem struct {
	ID     string         `json:"id,omitempty"`
	Fields map[string]any `json:"fields"`
}

// Collection describes a child collection persisted in its own table.
type Collection struct {
	Name  string `json:"name" yaml:"name"`   // key in Entity.Children.
	Table string `json:"table" yaml:"table"` // backing table.
}

// Entity is an in-memory editable content record mirrored to the store.
// An Entity with an empty ID has never been persisted.
type Entity struct {
	ID        string                 `json:"id,omitempty"`
	Type      EntityType             `json:"type"`
	Fields    map[string]any         `json:"fields"`
	Children  map[string][]ChildItem `json:"children,omitempty"`
	Sections  map[SectionID]bool     `json:"sections,omitempty"`
	Order     int                    `json:"order"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// NewEntity returns an empty, never-persisted entity of the given type.
func NewEntity(t EntityType) *Entity {
	return &Entity{
		Type:     t,
		Fields:   make(map[string]any),
		Children: make(map[string][]ChildItem),
		Sections: make(map[SectionID]bool),
	}
}

// IsNew reports whether the entity has never been persisted.
func (e *Entity) IsNew() bool {
	return e.ID == ""
}

// Get returns the value of a field and whether it is set.
func (e *Entity) Get(name string) (any, bool) {
	if e.Fields == nil {
		return nil, false
	}
	v, ok := e.Fields[name]
	return v, ok
}

// Set stores a field value.
func (e *Entity) Set(name string, value any) {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[name] = value
}

// ChildIDs returns the ids of the persisted items in a child collection, in
// collection order. Items without an id are skipped.
func (e *Entity) ChildIDs(collection string) []string {
	items := e.Children[collection]
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.ID != "" {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// Clone returns a deep copy of the entity. Slices and maps held in field
// values are copied so edits to the clone never reach the original.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	c := &Entity{
		ID:        e.ID,
		Type:      e.Type,
		Fields:    cloneFields(e.Fields),
		Children:  make(map[string][]ChildItem, len(e.Children)),
		Sections:  maps.Clone(e.Sections),
		Order:     e.Order,
		UpdatedAt: e.UpdatedAt,
	}
	if c.Sections == nil {
		c.Sections = make(map[SectionID]bool)
	}
	for name, items := range e.Children {
		copied := make([]ChildItem, len(items))
		for i, item := range items {
			copied[i] = ChildItem{ID: item.ID, Fields: cloneFields(item.Fields)}
		}
		c.Children[name] = copied
	}
	return c
}

// Equal reports whether two entities carry the same persisted content. The
// store-managed UpdatedAt is ignored.
func (e *Entity) Equal(o *Entity) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.ID == o.ID &&
		e.Type == o.Type &&
		e.Order == o.Order &&
		deepEqual(e.Fields, o.Fields) &&
		childrenEqual(e.Children, o.Children) &&
		maps.Equal(e.Sections, o.Sections)
}

// childrenEqual treats a missing collection and an empty one as equal.
func childrenEqual(a, b map[string][]ChildItem) bool {
	for name, items := range a {
		if !itemsEqual(items, b[name]) {
			return false
		}
	}
	for name, items := range b {
		if _, ok := a[name]; !ok && len(items) > 0 {
			return false
		}
	}
	return true
}

func itemsEqual(a, b []ChildItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || !deepEqual(a[i].Fields, b[i].Fields) {
			return false
		}
	}
	return true
}

// deepEqual treats a nil map and an empty one as equal.
func deepEqual[M ~map[K]V, K comparable, V any](a, b M) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func cloneFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]any:
		return cloneFields(val)
	default:
		return v
	}
}
