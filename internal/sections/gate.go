// Package sections implements the section visibility gate: which optional
// sub-forms of an entity editor are enabled, and which fields are therefore
// shown and validated.
package sections

import (
	"fmt"
	"html"
	"maps"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/mesh-intelligence/folio/pkg/types"
)

var stripTags = bluemonday.StrictPolicy()

// textContent returns the visible text of stored long-text HTML.
func textContent(s string) string {
	return html.UnescapeString(stripTags.Sanitize(s))
}

// Gate maps section ids to enabled flags. Mandatory sections are always
// enabled; attempts to disable them are ignored.
type Gate struct {
	mu        sync.RWMutex
	specs     []types.SectionSpec
	enabled   map[types.SectionID]bool
	mandatory map[types.SectionID]bool
}

// NewGate builds a gate from section declarations. Optional sections start
// with their declared Enabled value; mandatory sections start enabled.
func NewGate(specs []types.SectionSpec) *Gate {
	g := &Gate{
		specs:     append([]types.SectionSpec(nil), specs...),
		enabled:   make(map[types.SectionID]bool, len(specs)),
		mandatory: make(map[types.SectionID]bool),
	}
	for _, s := range specs {
		if s.Mandatory {
			g.mandatory[s.ID] = true
			g.enabled[s.ID] = true
			continue
		}
		g.enabled[s.ID] = s.Enabled
	}
	return g
}

// Toggle flips a section's enabled flag and reports whether it changed.
// Mandatory and unknown sections are left alone.
func (g *Gate) Toggle(id types.SectionID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	current, known := g.enabled[id]
	if !known || g.mandatory[id] {
		return false
	}
	g.enabled[id] = !current
	return true
}

// Set assigns a section's enabled flag and reports whether it changed.
// Disabling a mandatory section is a no-op.
func (g *Gate) Set(id types.SectionID, enabled bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	current, known := g.enabled[id]
	if !known || g.mandatory[id] || current == enabled {
		return false
	}
	g.enabled[id] = enabled
	return true
}

// IsEnabled reports whether a section is enabled. The empty id stands for
// fields outside any section and is always enabled.
func (g *Gate) IsEnabled(id types.SectionID) bool {
	if id == "" {
		return true
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.enabled[id]
}

// IsMandatory reports whether a section can never be disabled.
func (g *Gate) IsMandatory(id types.SectionID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mandatory[id]
}

// Known reports whether the gate declares a section.
func (g *Gate) Known(id types.SectionID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.enabled[id]
	return ok
}

// Snapshot returns a copy of the enabled flags.
func (g *Gate) Snapshot() map[types.SectionID]bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return maps.Clone(g.enabled)
}

// Restore applies previously persisted flags. Unknown ids are ignored and
// mandatory sections stay enabled.
func (g *Gate) Restore(flags map[types.SectionID]bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, on := range flags {
		if _, known := g.enabled[id]; !known || g.mandatory[id] {
			continue
		}
		g.enabled[id] = on
	}
}

// Sections returns the declarations with Enabled reflecting current state.
func (g *Gate) Sections() []types.SectionSpec {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]types.SectionSpec, len(g.specs))
	for i, s := range g.specs {
		s.Enabled = g.enabled[s.ID]
		out[i] = s
	}
	return out
}

// Visible filters descriptors down to those whose section is enabled,
// preserving order.
func (g *Gate) Visible(fields []types.FieldDescriptor) []types.FieldDescriptor {
	out := make([]types.FieldDescriptor, 0, len(fields))
	for _, f := range fields {
		if g.IsEnabled(f.Section) {
			out = append(out, f)
		}
	}
	return out
}

// Validate checks the visible fields against their constraints: required
// values present, text within MaxLength, select values among the options.
// Fields in disabled sections are skipped. Returns nil when the form can be
// saved.
func (g *Gate) Validate(fields []types.FieldDescriptor, values map[string]any) *types.ValidationError {
	verr := &types.ValidationError{}
	for _, f := range g.Visible(fields) {
		value := values[f.Name]
		if f.Required && types.IsEmpty(value) {
			verr.Add(f.Name, "is required")
			continue
		}
		switch f.Type {
		case types.FieldText, types.FieldLongText:
			s, ok := value.(string)
			if !ok || f.MaxLength <= 0 {
				break
			}
			if f.Type == types.FieldLongText {
				s = textContent(s)
			}
			if utf8.RuneCountInString(s) > f.MaxLength {
				verr.Add(f.Name, fmt.Sprintf("exceeds %d characters", f.MaxLength))
			}
		case types.FieldSingleSelect:
			if s, ok := value.(string); ok && s != "" && !f.HasOption(s) {
				verr.Add(f.Name, "is not a valid option")
			}
		}
	}
	if verr.Empty() {
		return nil
	}
	return verr
}
