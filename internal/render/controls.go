package render

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/mesh-intelligence/folio/pkg/types"
)

// ChangeEvent reports a new value for one field.
type ChangeEvent struct {
	Field string
	Value any
}

// ChangeFunc receives change events from controls.
type ChangeFunc func(ChangeEvent)

// Control is an editable control bound to one field descriptor. Mutating
// methods on the concrete controls emit a ChangeEvent; controls never
// persist anything themselves.
type Control interface {
	Field() types.FieldDescriptor
	Kind() types.FieldType
	Value() any
}

type base struct {
	desc types.FieldDescriptor
	emit ChangeFunc
}

func (b *base) Field() types.FieldDescriptor { return b.desc }
func (b *base) Kind() types.FieldType        { return b.desc.Type }

func (b *base) send(value any) {
	if b.emit != nil {
		b.emit(ChangeEvent{Field: b.desc.Name, Value: value})
	}
}

// truncate cuts s to max runes. max <= 0 means unbounded.
func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// TextControl is a single-line text input.
type TextControl struct {
	base
	value string
}

func (c *TextControl) Value() any { return c.value }

// Set replaces the text, truncating to MaxLength.
func (c *TextControl) Set(v string) {
	c.value = truncate(v, c.desc.MaxLength)
	c.send(c.value)
}

// LongTextControl is a multi-line text area whose content is rendered as
// HTML on the public site. The stored value is sanitized HTML: markup
// outside the policy is stripped and text is entity-escaped, so "&" is
// stored as "&amp;".
type LongTextControl struct {
	base
	value  string
	policy *bluemonday.Policy
}

func (c *LongTextControl) Value() any { return c.value }

// Set truncates the input to MaxLength and then sanitizes it. Escaping may
// make the stored HTML longer than MaxLength; its text content is not.
func (c *LongTextControl) Set(v string) {
	v = truncate(v, c.desc.MaxLength)
	if c.policy != nil {
		v = c.policy.Sanitize(v)
	}
	c.value = v
	c.send(c.value)
}

// CodeControl is a code editor; content is stored verbatim.
type CodeControl struct {
	base
	value string
}

func (c *CodeControl) Value() any { return c.value }

// Set replaces the snippet, truncating to MaxLength when declared.
func (c *CodeControl) Set(v string) {
	c.value = truncate(v, c.desc.MaxLength)
	c.send(c.value)
}

// SelectControl chooses one of the descriptor's options.
type SelectControl struct {
	base
	value string
}

func (c *SelectControl) Value() any        { return c.value }
func (c *SelectControl) Options() []string { return slices.Clone(c.desc.Options) }

// Select picks an option. Values outside the option list are rejected with
// ErrInvalidOption and nothing is emitted.
func (c *SelectControl) Select(v string) error {
	if !c.desc.HasOption(v) {
		return fmt.Errorf("%s: %w: %q", c.desc.Name, types.ErrInvalidOption, v)
	}
	c.value = v
	c.send(c.value)
	return nil
}

// Clear resets the selection.
func (c *SelectControl) Clear() {
	c.value = ""
	c.send(c.value)
}

// TagListControl edits a list of distinct string values.
type TagListControl struct {
	base
	values []string
}

func (c *TagListControl) Value() any       { return slices.Clone(c.values) }
func (c *TagListControl) Values() []string { return slices.Clone(c.values) }

// Add appends a tag and reports whether the list changed. Blank values and
// values already present are ignored.
func (c *TagListControl) Add(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" || slices.Contains(c.values, v) {
		return false
	}
	c.values = append(c.values, v)
	c.send(slices.Clone(c.values))
	return true
}

// Remove deletes a tag and reports whether the list changed.
func (c *TagListControl) Remove(v string) bool {
	i := slices.Index(c.values, v)
	if i < 0 {
		return false
	}
	c.values = slices.Delete(c.values, i, i+1)
	c.send(slices.Clone(c.values))
	return true
}

// ToggleControl is a boolean switch.
type ToggleControl struct {
	base
	value bool
}

func (c *ToggleControl) Value() any { return c.value }

// Set assigns the flag.
func (c *ToggleControl) Set(v bool) {
	c.value = v
	c.send(c.value)
}

// Toggle flips the flag.
func (c *ToggleControl) Toggle() {
	c.Set(!c.value)
}

// uploadDeps are shared by the image controls.
type uploadDeps struct {
	uploader types.Uploader
	check    func(types.File) error
	folder   string
}

func (d uploadDeps) validate(files []types.File) error {
	if d.uploader == nil {
		return types.ErrUploaderMissing
	}
	if d.check == nil {
		return nil
	}
	for _, f := range files {
		if err := d.check(f); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	return nil
}

// ImageControl holds a single image reference. Only the URL returned by the
// upload service is stored.
type ImageControl struct {
	base
	uploadDeps
	url string
}

func (c *ImageControl) Value() any { return c.url }

// Upload sends the file to the media service and stores the returned URL.
// On failure nothing is emitted and the current reference is kept.
func (c *ImageControl) Upload(ctx context.Context, file types.File) (string, error) {
	if err := c.validate([]types.File{file}); err != nil {
		return "", err
	}
	url, err := c.uploader.Upload(ctx, file, types.UploadOptions{Folder: c.folder})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", file.Name, err)
	}
	c.url = url
	c.send(c.url)
	return url, nil
}

// Clear removes the image reference.
func (c *ImageControl) Clear() {
	c.url = ""
	c.send(c.url)
}

// ImageCollectionControl holds an ordered list of image references.
type ImageCollectionControl struct {
	base
	uploadDeps
	urls []string
}

func (c *ImageCollectionControl) Value() any     { return slices.Clone(c.urls) }
func (c *ImageCollectionControl) URLs() []string { return slices.Clone(c.urls) }

// UploadMany uploads the files and appends the returned URLs in order.
// Any failure leaves the collection unchanged.
func (c *ImageCollectionControl) UploadMany(ctx context.Context, files []types.File) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if err := c.validate(files); err != nil {
		return nil, err
	}
	urls, err := c.uploader.UploadMany(ctx, files, types.UploadOptions{Folder: c.folder})
	if err != nil {
		return nil, fmt.Errorf("uploading %d files: %w", len(files), err)
	}
	c.urls = append(c.urls, urls...)
	c.send(slices.Clone(c.urls))
	return urls, nil
}

// Remove drops one image reference and reports whether it was present.
func (c *ImageCollectionControl) Remove(url string) bool {
	i := slices.Index(c.urls, url)
	if i < 0 {
		return false
	}
	c.urls = slices.Delete(c.urls, i, i+1)
	c.send(slices.Clone(c.urls))
	return true
}

// Reorder applies the order emitted by the drag-and-drop widget. The new
// list must be a permutation of the current one.
func (c *ImageCollectionControl) Reorder(urls []string) error {
	if !samePermutation(c.urls, urls) {
		return types.ErrReorderMismatch
	}
	c.urls = slices.Clone(urls)
	c.send(slices.Clone(c.urls))
	return nil
}

func samePermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}
