package schema

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/folio/pkg/types"
)

// Overlay is the YAML document accepted by WithOverlay.
//
//	common:
//	  - {name: internal_note, label: Note, type: long_text}
//	entities:
//	  - type: project
//	    fields:
//	      - {name: client, label: Client, type: text, max_length: 80, section: details}
//	  - type: testimonial
//	    label: Testimonial
//	    table: testimonials
//	    fields:
//	      - {name: quote, label: Quote, type: long_text, required: true}
type Overlay struct {
	Common   []types.FieldDescriptor `yaml:"common"`
	Entities []EntitySchema          `yaml:"entities"`
}

// LoadOverlay decodes an overlay document. Unknown keys are rejected so
// typos surface at load time.
func LoadOverlay(r io.Reader) (Overlay, error) {
	var o Overlay
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&o); err != nil {
		if errors.Is(err, io.EOF) {
			return Overlay{}, nil
		}
		return Overlay{}, fmt.Errorf("decoding schema overlay: %w", err)
	}
	return o, nil
}

// WithOverlay returns a new registry with the overlay merged in. Entities
// already registered gain the overlay's fields, sections and collections;
// new entity types are appended. The receiver is not modified.
func (r *Registry) WithOverlay(o Overlay) (*Registry, error) {
	common := append(slices.Clone(r.common), o.Common...)

	merged := make([]EntitySchema, 0, len(r.order)+len(o.Entities))
	index := make(map[types.EntityType]int, len(r.order))
	for _, t := range r.order {
		s := r.schemas[t]
		index[t] = len(merged)
		merged = append(merged, EntitySchema{
			Type:        s.Type,
			Label:       s.Label,
			Table:       s.Table,
			Fields:      slices.Clone(s.Fields),
			Sections:    slices.Clone(s.Sections),
			Collections: slices.Clone(s.Collections),
		})
	}

	for _, e := range o.Entities {
		i, ok := index[e.Type]
		if !ok {
			index[e.Type] = len(merged)
			merged = append(merged, e)
			continue
		}
		base := &merged[i]
		if e.Label != "" {
			base.Label = e.Label
		}
		if e.Table != "" && e.Table != base.Table {
			return nil, fmt.Errorf("entity type %q: table cannot change from %q to %q", e.Type, base.Table, e.Table)
		}
		base.Fields = append(base.Fields, e.Fields...)
		base.Sections = append(base.Sections, e.Sections...)
		base.Collections = append(base.Collections, e.Collections...)
	}

	return New(common, merged...)
}

// LoadOverlayFrom decodes an overlay and merges it into r.
func (r *Registry) LoadOverlayFrom(rd io.Reader) (*Registry, error) {
	o, err := LoadOverlay(rd)
	if err != nil {
		return nil, err
	}
	return r.WithOverlay(o)
}
