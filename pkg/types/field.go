package types

import "strings"

// FieldType selects the editable control a field renders as.
type FieldType string

// Field value types.
const (
	FieldText            FieldType = "text"
	FieldLongText        FieldType = "long_text"
	FieldSingleSelect    FieldType = "single_select"
	FieldTagList         FieldType = "tag_list"
	FieldBoolean         FieldType = "boolean"
	FieldImage           FieldType = "image"
	FieldImageCollection FieldType = "image_collection"
	FieldCodeSnippet     FieldType = "code_snippet"
)

// validFieldTypes is the set of recognized field types.
var validFieldTypes = map[FieldType]bool{
	FieldText:            true,
	FieldLongText:        true,
	FieldSingleSelect:    true,
	FieldTagList:         true,
	FieldBoolean:         true,
	FieldImage:           true,
	FieldImageCollection: true,
	FieldCodeSnippet:     true,
}

// Valid reports whether t is a recognized field type.
func (t FieldType) Valid() bool {
	return validFieldTypes[t]
}

// FieldDescriptor is the static metadata for one editable field.
type FieldDescriptor struct {
	Name        string    `json:"name" yaml:"name"`
	Label       string    `json:"label" yaml:"label"`
	Type        FieldType `json:"type" yaml:"type"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty"`
	MaxLength   int       `json:"max_length,omitempty" yaml:"max_length,omitempty"` // 0 means unbounded; text types only.
	Options     []string  `json:"options,omitempty" yaml:"options,omitempty"`       // single_select only.
	Section     SectionID `json:"section,omitempty" yaml:"section,omitempty"`       // empty means always shown.
	Placeholder string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

// HasOption reports whether v is one of the descriptor's options.
func (d FieldDescriptor) HasOption(v string) bool {
	for _, o := range d.Options {
		if o == v {
			return true
		}
	}
	return false
}

// DefaultValue returns the type-based zero value for a field type: "" for the
// string-valued types, false for boolean and an empty slice for tag lists and
// image collections. Unknown types yield nil.
func DefaultValue(t FieldType) any {
	switch t {
	case FieldText, FieldLongText, FieldSingleSelect, FieldImage, FieldCodeSnippet:
		return ""
	case FieldBoolean:
		return false
	case FieldTagList, FieldImageCollection:
		return []string{}
	default:
		return nil
	}
}

// IsEmpty reports whether value counts as missing for a required field.
// Booleans are never empty; false is a value.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

// StringsOf converts a stored multi-value field to []string. Values decoded
// from JSON arrive as []any; anything that is not a string is skipped.
func StringsOf(value any) []string {
	switch v := value.(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}
