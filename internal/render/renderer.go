// Package render maps field descriptors to editable controls. Controls report
// value changes through a ChangeFunc and never touch persistence.
package render

import (
	"github.com/microcosm-cc/bluemonday"

	"github.com/mesh-intelligence/folio/pkg/types"
)

// Visibility reports whether a section is enabled. *sections.Gate
// satisfies it.
type Visibility interface {
	IsEnabled(id types.SectionID) bool
}

// Renderer builds controls for field descriptors.
type Renderer struct {
	uploader types.Uploader
	check    func(types.File) error
	policy   *bluemonday.Policy
	folder   string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithUploader sets the media service used by image controls.
func WithUploader(u types.Uploader) Option {
	return func(r *Renderer) { r.uploader = u }
}

// WithUploadCheck sets the pre-validation run on every file before upload.
func WithUploadCheck(check func(types.File) error) Option {
	return func(r *Renderer) { r.check = check }
}

// WithPolicy replaces the long-text sanitization policy.
func WithPolicy(p *bluemonday.Policy) Option {
	return func(r *Renderer) { r.policy = p }
}

// New returns a Renderer. Long text is sanitized with the UGC policy unless
// WithPolicy says otherwise.
func New(opts ...Option) *Renderer {
	r := &Renderer{policy: bluemonday.UGCPolicy()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithFolder returns a copy of r whose uploads go to folder.
func (r *Renderer) WithFolder(folder string) *Renderer {
	c := *r
	c.folder = folder
	return &c
}

// Render returns the control for desc populated from values. The second
// result is false for unknown field types, which render nothing.
func (r *Renderer) Render(desc types.FieldDescriptor, values map[string]any, onChange ChangeFunc) (Control, bool) {
	b := base{desc: desc, emit: onChange}
	v := values[desc.Name]
	switch desc.Type {
	case types.FieldText:
		return &TextControl{base: b, value: stringOf(v)}, true
	case types.FieldLongText:
		return &LongTextControl{base: b, value: stringOf(v), policy: r.policy}, true
	case types.FieldCodeSnippet:
		return &CodeControl{base: b, value: stringOf(v)}, true
	case types.FieldSingleSelect:
		return &SelectControl{base: b, value: stringOf(v)}, true
	case types.FieldTagList:
		return &TagListControl{base: b, values: types.StringsOf(v)}, true
	case types.FieldBoolean:
		on, _ := v.(bool)
		return &ToggleControl{base: b, value: on}, true
	case types.FieldImage:
		return &ImageControl{base: b, uploadDeps: r.deps(), url: stringOf(v)}, true
	case types.FieldImageCollection:
		return &ImageCollectionControl{base: b, uploadDeps: r.deps(), urls: types.StringsOf(v)}, true
	default:
		return nil, false
	}
}

// RenderAll renders every field whose section is enabled, in descriptor
// order. Unknown field types are skipped. A nil vis shows every field.
func (r *Renderer) RenderAll(descs []types.FieldDescriptor, values map[string]any, vis Visibility, onChange ChangeFunc) []Control {
	controls := make([]Control, 0, len(descs))
	for _, d := range descs {
		if vis != nil && d.Section != "" && !vis.IsEnabled(d.Section) {
			continue
		}
		if c, ok := r.Render(d, values, onChange); ok {
			controls = append(controls, c)
		}
	}
	return controls
}

func (r *Renderer) deps() uploadDeps {
	return uploadDeps{uploader: r.uploader, check: r.check, folder: r.folder}
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}
