package types

import (
	"errors"
	"time"
)

// Config holds backend selection plus editor and media parameters.
type Config struct {
	Backend string       `json:"backend" yaml:"backend"`
	DataDir string       `json:"data_dir" yaml:"data_dir"`
	Editor  EditorConfig `json:"editor" yaml:"editor"`
	Media   MediaConfig  `json:"media" yaml:"media"`
}

// EditorConfig controls auto-save timing.
type EditorConfig struct {
	// QuietPeriod is how long edits must pause before an auto-save fires.
	QuietPeriod time.Duration `json:"quiet_period" yaml:"quiet_period"`

	// StatusWindow is how long success or error stays visible before the
	// status returns to idle.
	StatusWindow time.Duration `json:"status_window" yaml:"status_window"`

	// AutoSave enables debounced saving. When false only Save persists.
	AutoSave bool `json:"autosave" yaml:"autosave"`

	// NotifyAutoSave sends save notifications for auto-saves as well as
	// manual saves.
	NotifyAutoSave bool `json:"notify_autosave" yaml:"notify_autosave"`
}

// MediaConfig controls the media upload store.
type MediaConfig struct {
	Dir          string   `json:"dir" yaml:"dir"`                     // relative paths resolve under DataDir.
	BaseURL      string   `json:"base_url" yaml:"base_url"`           // prefix of returned URLs.
	MaxBytes     int64    `json:"max_bytes" yaml:"max_bytes"`         // 0 means DefaultMaxUploadBytes.
	AllowedTypes []string `json:"allowed_types" yaml:"allowed_types"` // empty means DefaultAllowedTypes.
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Editor and media defaults.
const (
	DefaultQuietPeriod    = 1500 * time.Millisecond
	DefaultStatusWindow   = 3 * time.Second
	DefaultMaxUploadBytes = int64(10 << 20)
	DefaultMediaDir       = "media"
	DefaultMediaBaseURL   = "/media"
)

// DefaultAllowedTypes lists the content types accepted for image fields.
var DefaultAllowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Config validation errors.
var (
	ErrBackendEmpty        = errors.New("backend must not be empty")
	ErrBackendUnknown      = errors.New("unknown backend")
	ErrQuietPeriodInvalid  = errors.New("quiet period must not be negative")
	ErrStatusWindowInvalid = errors.New("status window must not be negative")
	ErrMaxUploadInvalid    = errors.New("max upload bytes must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Editor.QuietPeriod < 0 {
		return ErrQuietPeriodInvalid
	}
	if c.Editor.StatusWindow < 0 {
		return ErrStatusWindowInvalid
	}
	if c.Media.MaxBytes < 0 {
		return ErrMaxUploadInvalid
	}
	return nil
}

// WithDefaults returns a copy of c with zero-valued timing and media
// settings replaced by their defaults.
func (c Config) WithDefaults() Config {
	c.Editor = c.Editor.WithDefaults()
	if c.Media.Dir == "" {
		c.Media.Dir = DefaultMediaDir
	}
	if c.Media.BaseURL == "" {
		c.Media.BaseURL = DefaultMediaBaseURL
	}
	if c.Media.MaxBytes == 0 {
		c.Media.MaxBytes = DefaultMaxUploadBytes
	}
	if len(c.Media.AllowedTypes) == 0 {
		c.Media.AllowedTypes = append([]string(nil), DefaultAllowedTypes...)
	}
	return c
}

// WithDefaults returns a copy of e with zero durations replaced by defaults.
func (e EditorConfig) WithDefaults() EditorConfig {
	if e.QuietPeriod == 0 {
		e.QuietPeriod = DefaultQuietPeriod
	}
	if e.StatusWindow == 0 {
		e.StatusWindow = DefaultStatusWindow
	}
	return e
}
