// Package media stores uploaded images on a filesystem and hands back the
// public URL of each stored file.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/mesh-intelligence/folio/pkg/types"
)

// extensions maps accepted content types to stored file extensions.
var extensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// Limits is the size and type policy applied before any upload.
type Limits struct {
	MaxBytes     int64
	AllowedTypes []string
}

// LimitsFrom returns the limits configured in cfg.
func LimitsFrom(cfg types.MediaConfig) Limits {
	return Limits{MaxBytes: cfg.MaxBytes, AllowedTypes: cfg.AllowedTypes}
}

// Check validates a file against the limits. The content type is sniffed
// from the data; a declared ContentType that disagrees with it is rejected.
func (l Limits) Check(f types.File) error {
	if len(f.Data) == 0 {
		return types.ErrUploadEmpty
	}
	if l.MaxBytes > 0 && int64(len(f.Data)) > l.MaxBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", types.ErrUploadTooLarge, len(f.Data), l.MaxBytes)
	}
	ct, err := contentType(f)
	if err != nil {
		return err
	}
	if len(l.AllowedTypes) > 0 && !slices.Contains(l.AllowedTypes, ct) {
		return fmt.Errorf("%w: %s", types.ErrUploadType, ct)
	}
	return nil
}

func contentType(f types.File) (string, error) {
	sniffed := baseType(http.DetectContentType(f.Data))
	if isSVG(sniffed, f.Data) {
		sniffed = "image/svg+xml"
	}
	declared := baseType(f.ContentType)
	if declared != "" && declared != sniffed {
		return "", fmt.Errorf("%w: declared %s, content is %s", types.ErrUploadType, declared, sniffed)
	}
	return sniffed, nil
}

func baseType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(strings.ToLower(ct))
}

// isSVG reports whether text content is an SVG document; the standard
// sniffer has no signature for it.
func isSVG(sniffed string, data []byte) bool {
	if sniffed != "text/xml" && sniffed != "text/plain" {
		return false
	}
	head := data[:min(len(data), 512)]
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}

// Store is a types.Uploader writing files under a root directory of an
// afero filesystem. Each file is stored as <folder>/<uuid><ext> and served
// at <baseURL>/<folder>/<uuid><ext>.
type Store struct {
	fs      afero.Fs
	baseURL string
	limits  Limits
	logger  *slog.Logger
}

var _ types.Uploader = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLimits sets the size and type policy.
func WithLimits(l Limits) Option {
	return func(s *Store) { s.limits = l }
}

// NewStore returns a Store rooted at dir on fs.
func NewStore(fs afero.Fs, dir, baseURL string, opts ...Option) *Store {
	s := &Store{
		fs:      afero.NewBasePathFs(fs, dir),
		baseURL: strings.TrimRight(baseURL, "/"),
		limits:  Limits{MaxBytes: types.DefaultMaxUploadBytes, AllowedTypes: types.DefaultAllowedTypes},
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewOsStore returns a Store on the local disk configured from cfg.
func NewOsStore(dataDir string, cfg types.MediaConfig, opts ...Option) *Store {
	cfg = types.Config{Media: cfg}.WithDefaults().Media
	dir := cfg.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(dataDir, dir)
	}
	opts = append([]Option{WithLimits(LimitsFrom(cfg))}, opts...)
	return NewStore(afero.NewOsFs(), dir, cfg.BaseURL, opts...)
}

// Limits returns the store's upload policy.
func (s *Store) Limits() Limits {
	return s.limits
}

// Upload stores one file and returns its URL.
func (s *Store) Upload(ctx context.Context, file types.File, opts types.UploadOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.limits.Check(file); err != nil {
		return "", err
	}
	folder, err := cleanFolder(opts.Folder)
	if err != nil {
		return "", err
	}
	if err := s.fs.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("creating media folder %s: %w", folder, err)
	}

	ct, _ := contentType(file) // validated by Check
	name := uuid.NewString() + extensions[ct]
	rel := path.Join(folder, name)
	if err := afero.WriteFile(s.fs, rel, file.Data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", rel, err)
	}
	s.logger.Debug("media stored", "file", file.Name, "path", rel, "bytes", len(file.Data))
	return s.baseURL + "/" + rel, nil
}

// UploadMany stores the files in order. Every file is checked before any
// is written; a write failure removes the files already stored by the call.
func (s *Store) UploadMany(ctx context.Context, files []types.File, opts types.UploadOptions) ([]string, error) {
	for _, f := range files {
		if err := s.limits.Check(f); err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	urls := make([]string, 0, len(files))
	for _, f := range files {
		u, err := s.Upload(ctx, f, opts)
		if err != nil {
			for _, done := range urls {
				_ = s.Remove(done)
			}
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, nil
}

// Remove deletes the file behind a URL returned by Upload. Unknown URLs are
// ignored.
func (s *Store) Remove(url string) error {
	rel, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok {
		return nil
	}
	if err := s.fs.Remove(rel); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", rel, err)
	}
	return nil
}

// cleanFolder normalizes an upload folder and rejects paths escaping the
// media root.
func cleanFolder(folder string) (string, error) {
	if folder == "" {
		return ".", nil
	}
	clean := path.Clean("/" + folder)[1:]
	if clean == "" {
		return ".", nil
	}
	if clean != strings.Trim(folder, "/") {
		return "", fmt.Errorf("%w: folder %q", types.ErrInvalidData, folder)
	}
	return clean, nil
}
