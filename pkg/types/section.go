package types

// SectionID names an independently togglable sub-form of an entity editor.
type SectionID string

// Sections shared by the built-in entity schemas.
const (
	SectionBasics     SectionID = "basics"
	SectionCTA        SectionID = "cta"
	SectionBackground SectionID = "background"
	SectionMedia      SectionID = "media"
	SectionLinks      SectionID = "links"
	SectionCode       SectionID = "code"
	SectionDetails    SectionID = "details"
	SectionSEO        SectionID = "seo"
	SectionHighlights SectionID = "highlights"
	SectionSocial     SectionID = "social"
)

// SectionSpec declares one section of an entity type.
// A Mandatory section is always enabled and cannot be toggled off.
type SectionSpec struct {
	ID        SectionID `json:"id" yaml:"id"`
	Label     string    `json:"label" yaml:"label"`
	Mandatory bool      `json:"mandatory,omitempty" yaml:"mandatory,omitempty"`
	Enabled   bool      `json:"enabled,omitempty" yaml:"enabled,omitempty"` // initial state of an optional section.
}
