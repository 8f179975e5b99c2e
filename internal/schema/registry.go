// Package schema is the field schema registry: the single source of truth for
// which fields, sections and child collections each entity type has.
package schema

import (
	"fmt"
	"slices"

	"github.com/mesh-intelligence/folio/pkg/types"
)

// EntitySchema declares one entity type.
type EntitySchema struct {
	Type        types.EntityType        `yaml:"type"`
	Label       string                  `yaml:"label"`
	Table       string                  `yaml:"table"`
	Fields      []types.FieldDescriptor `yaml:"fields"`
	Sections    []types.SectionSpec     `yaml:"sections"`
	Collections []types.Collection      `yaml:"collections"`
}

// Registry maps entity types to their descriptors. A Registry is immutable
// once built and safe for concurrent use.
type Registry struct {
	common  []types.FieldDescriptor
	schemas map[types.EntityType]EntitySchema
	order   []types.EntityType
}

// New builds a registry from the common fields shared by every entity type
// and the per-type schemas. Field names must be unique within a type
// (including the common fields), field types must be known, and a field's
// section must be declared by its type.
func New(common []types.FieldDescriptor, schemas ...EntitySchema) (*Registry, error) {
	r := &Registry{
		common:  slices.Clone(common),
		schemas: make(map[types.EntityType]EntitySchema, len(schemas)),
	}
	if err := checkFields("common", nil, r.common, nil); err != nil {
		return nil, err
	}
	for _, s := range schemas {
		if err := r.add(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustNew is like New but panics on error. It is meant for static schemas.
func MustNew(common []types.FieldDescriptor, schemas ...EntitySchema) *Registry {
	r, err := New(common, schemas...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) add(s EntitySchema) error {
	if s.Type == "" {
		return fmt.Errorf("%w: empty type", types.ErrUnknownEntityType)
	}
	if _, exists := r.schemas[s.Type]; exists {
		return fmt.Errorf("entity type %q declared twice: %w", s.Type, types.ErrDuplicateField)
	}
	if s.Table == "" {
		s.Table = string(s.Type)
	}
	if err := checkFields(string(s.Type), r.common, s.Fields, s.Sections); err != nil {
		return err
	}
	r.schemas[s.Type] = EntitySchema{
		Type:        s.Type,
		Label:       s.Label,
		Table:       s.Table,
		Fields:      slices.Clone(s.Fields),
		Sections:    slices.Clone(s.Sections),
		Collections: slices.Clone(s.Collections),
	}
	r.order = append(r.order, s.Type)
	return nil
}

func checkFields(owner string, common, fields []types.FieldDescriptor, sections []types.SectionSpec) error {
	seen := make(map[string]bool, len(common)+len(fields))
	for _, f := range common {
		seen[f.Name] = true
	}
	declared := make(map[types.SectionID]bool, len(sections))
	for _, s := range sections {
		declared[s.ID] = true
	}
	for _, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("%s: field with empty name: %w", owner, types.ErrUnknownField)
		}
		if seen[f.Name] {
			return fmt.Errorf("%s.%s: %w", owner, f.Name, types.ErrDuplicateField)
		}
		seen[f.Name] = true
		if !f.Type.Valid() {
			return fmt.Errorf("%s.%s: %w %q", owner, f.Name, types.ErrUnknownFieldType, f.Type)
		}
		if f.Section != "" && !declared[f.Section] {
			return fmt.Errorf("%s.%s: %w %q", owner, f.Name, types.ErrUnknownSection, f.Section)
		}
	}
	return nil
}

// Fields returns the ordered descriptors for an entity type: the common
// fields followed by the type-specific ones. An unknown type yields the
// common fields only. The returned slice is a copy.
func (r *Registry) Fields(t types.EntityType) []types.FieldDescriptor {
	s := r.schemas[t]
	out := make([]types.FieldDescriptor, 0, len(r.common)+len(s.Fields))
	out = append(out, r.common...)
	return append(out, s.Fields...)
}

// Field looks up one descriptor by name.
func (r *Registry) Field(t types.EntityType, name string) (types.FieldDescriptor, bool) {
	for _, f := range r.Fields(t) {
		if f.Name == name {
			return f, true
		}
	}
	return types.FieldDescriptor{}, false
}

// Sections returns the sections declared for an entity type.
func (r *Registry) Sections(t types.EntityType) []types.SectionSpec {
	return slices.Clone(r.schemas[t].Sections)
}

// Collections returns the child collections persisted independently for an
// entity type.
func (r *Registry) Collections(t types.EntityType) []types.Collection {
	return slices.Clone(r.schemas[t].Collections)
}

// Collection looks up one child collection by name.
func (r *Registry) Collection(t types.EntityType, name string) (types.Collection, bool) {
	for _, c := range r.schemas[t].Collections {
		if c.Name == name {
			return c, true
		}
	}
	return types.Collection{}, false
}

// Table returns the backing table of an entity type. Unknown types map to
// the type name itself.
func (r *Registry) Table(t types.EntityType) string {
	if s, ok := r.schemas[t]; ok {
		return s.Table
	}
	return string(t)
}

// Schema returns the full declaration of an entity type.
func (r *Registry) Schema(t types.EntityType) (EntitySchema, bool) {
	s, ok := r.schemas[t]
	if !ok {
		return EntitySchema{}, false
	}
	s.Fields = r.Fields(t)
	s.Sections = slices.Clone(s.Sections)
	s.Collections = slices.Clone(s.Collections)
	return s, true
}

// Has reports whether an entity type is registered.
func (r *Registry) Has(t types.EntityType) bool {
	_, ok := r.schemas[t]
	return ok
}

// Types returns the registered entity types in declaration order.
func (r *Registry) Types() []types.EntityType {
	return slices.Clone(r.order)
}
