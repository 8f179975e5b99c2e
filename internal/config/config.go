// Package config loads config.yaml from the configuration directory with
// Viper and turns it into a types.Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/folio/internal/paths"
	"github.com/mesh-intelligence/folio/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
)

// Config keys.
const (
	KeyBackend        = "backend"
	KeyDataDir        = "data_dir"
	KeySchema         = "schema"
	KeyQuietPeriod    = "editor.quiet_period"
	KeyStatusWindow   = "editor.status_window"
	KeyAutoSave       = "editor.autosave"
	KeyNotifyAutoSave = "editor.notify_autosave"
	KeyMediaDir       = "media.dir"
	KeyMediaBaseURL   = "media.base_url"
	KeyMediaMaxBytes  = "media.max_bytes"
	KeyMediaTypes     = "media.allowed_types"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# folio configuration

# Storage backend
backend: sqlite

# Data directory (optional; overridable by --data-dir)
# data_dir:

# Extra field schema merged over the built-in one (optional)
# schema: schema.yaml

editor:
  # Pause after the last edit before an auto-save fires
  quiet_period: 1500ms
  # How long "saved" or "failed" stays visible
  status_window: 3s
  autosave: true
  # Also notify after auto-saves, not only manual saves
  notify_autosave: false

media:
  dir: media
  base_url: /media
  max_bytes: 10485760
  allowed_types: [image/jpeg, image/png, image/gif, image/webp]
`

// Load reads config.yaml from configDir. It creates the directory and a
// default config.yaml on first run; a config file that cannot be found is
// not an error.
func Load(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyBackend, types.BackendSQLite)
	v.SetDefault(KeyQuietPeriod, types.DefaultQuietPeriod)
	v.SetDefault(KeyStatusWindow, types.DefaultStatusWindow)
	v.SetDefault(KeyAutoSave, true)
	v.SetDefault(KeyNotifyAutoSave, false)
	v.SetDefault(KeyMediaDir, types.DefaultMediaDir)
	v.SetDefault(KeyMediaBaseURL, types.DefaultMediaBaseURL)
	v.SetDefault(KeyMediaMaxBytes, types.DefaultMaxUploadBytes)
	v.SetDefault(KeyMediaTypes, types.DefaultAllowedTypes)
}

func ensureDefaultFile(configDir string) error {
	path := paths.ConfigFile(configDir)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// Decode builds a validated types.Config from v. dataDir is the resolved
// data directory; the data_dir key only feeds directory resolution.
func Decode(v *viper.Viper, dataDir string) (types.Config, error) {
	cfg := types.Config{
		Backend: v.GetString(KeyBackend),
		DataDir: dataDir,
		Editor: types.EditorConfig{
			QuietPeriod:    v.GetDuration(KeyQuietPeriod),
			StatusWindow:   v.GetDuration(KeyStatusWindow),
			AutoSave:       v.GetBool(KeyAutoSave),
			NotifyAutoSave: v.GetBool(KeyNotifyAutoSave),
		},
		Media: types.MediaConfig{
			Dir:          v.GetString(KeyMediaDir),
			BaseURL:      v.GetString(KeyMediaBaseURL),
			MaxBytes:     v.GetInt64(KeyMediaMaxBytes),
			AllowedTypes: v.GetStringSlice(KeyMediaTypes),
		},
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg.WithDefaults(), nil
}

// SchemaPath returns the schema overlay file named in v, resolved against
// configDir, or "" when none is configured.
func SchemaPath(v *viper.Viper, configDir string) string {
	p := v.GetString(KeySchema)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(configDir, p)
}
