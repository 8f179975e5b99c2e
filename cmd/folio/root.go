package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/folio/internal/config"
	"github.com/mesh-intelligence/folio/internal/paths"
	"github.com/mesh-intelligence/folio/internal/schema"
	"github.com/mesh-intelligence/folio/pkg/types"
)

// errUsage marks malformed command-line input.
var errUsage = errors.New("usage error")

// Global flag values.
var (
	flagConfigDir string
	flagDataDir   string
	flagJSON      bool
	flagVerbose   bool
	flagNoColor   bool
)

// State loaded by PersistentPreRunE for every subcommand.
var (
	configDir string
	appConfig types.Config
	registry  *schema.Registry
	logger    = slog.New(slog.DiscardHandler)
)

var rootCmd = &cobra.Command{
	Use:           "folio",
	Short:         "Edit portfolio content from the command line",
	Long:          "folio edits the content of a portfolio site (hero, about, projects,\nexperience, skills, links, contact, blog posts) stored in a local database.\nEdits go through the same schema, section rules and save cycle as the\nadmin panel.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagNoColor {
			color.NoColor = true
		}
		level := slog.LevelWarn
		if flagVerbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		if cmd.Name() == "version" {
			return nil
		}
		return loadState()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: platform data dir)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log debug output to stderr")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(reorderCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

// loadState resolves directories, reads config.yaml and builds the schema
// registry, applying the configured overlay.
func loadState() error {
	dir, err := paths.ResolveConfigDir(flagConfigDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	configDir = dir

	v, err := config.Load(configDir)
	if err != nil {
		return err
	}
	dataDir, err := paths.ResolveDataDir(flagDataDir, v.GetString(config.KeyDataDir))
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	appConfig, err = config.Decode(v, dataDir)
	if err != nil {
		return err
	}

	registry = schema.Default()
	if p := config.SchemaPath(v, configDir); p != "" {
		f, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("open schema overlay: %w", err)
		}
		defer f.Close()
		registry, err = registry.LoadOverlayFrom(f)
		if err != nil {
			return fmt.Errorf("schema overlay %s: %w", p, err)
		}
	}
	logger.Debug("configuration loaded", "config_dir", configDir, "data_dir", dataDir)
	return nil
}

// errorText renders an error for stderr.
func errorText(err error) string {
	var verr *types.ValidationError
	if errors.As(err, &verr) {
		return color.New(color.FgRed).Sprint("validation failed:") + "\n" + validationLines(verr)
	}
	return color.New(color.FgRed).Sprint("error: ") + err.Error()
}
