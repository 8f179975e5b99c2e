package main

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/mesh-intelligence/folio/internal/editor"
	"github.com/mesh-intelligence/folio/internal/media"
	"github.com/mesh-intelligence/folio/internal/persist"
	"github.com/mesh-intelligence/folio/internal/render"
	"github.com/mesh-intelligence/folio/internal/sqlite"
	"github.com/mesh-intelligence/folio/pkg/types"
)

// session bundles the attached store and the services built on it. The
// caller must defer close.
type session struct {
	backend  *sqlite.Backend
	adapter  *persist.Adapter
	media    *media.Store
	renderer *render.Renderer
}

// openSession attaches the SQLite store in the resolved data directory.
func openSession() (*session, error) {
	backend := sqlite.NewBackend(sqlite.WithLogger(logger))
	if err := backend.Attach(appConfig); err != nil {
		return nil, fmt.Errorf("attach backend: %w", err)
	}
	store := media.NewOsStore(appConfig.DataDir, appConfig.Media, media.WithLogger(logger))
	return &session{
		backend: backend,
		adapter: persist.New(backend, registry, persist.WithLogger(logger)),
		media:   store,
		renderer: render.New(
			render.WithUploader(store),
			render.WithUploadCheck(store.Limits().Check),
		),
	}, nil
}

func (s *session) close() {
	if err := s.backend.Detach(); err != nil {
		logger.Warn("detach backend", "error", err)
	}
}

// editorOptions returns the options every editor in the CLI is built with.
func (s *session) editorOptions(cfg types.EditorConfig) []editor.Option {
	return []editor.Option{
		editor.WithConfig(cfg),
		editor.WithLogger(logger),
		editor.WithNotifier(editor.NotifierFunc(printNotice)),
	}
}

// parseType validates an entity-type argument.
func parseType(arg string) (types.EntityType, error) {
	t := types.EntityType(arg)
	if !registry.Has(t) {
		names := make([]string, 0)
		for _, known := range registry.Types() {
			names = append(names, string(known))
		}
		return "", fmt.Errorf("%w: %q (valid: %s)", types.ErrUnknownEntityType, arg, strings.Join(names, ", "))
	}
	return t, nil
}

// parseSection validates a section argument for an entity type.
func parseSection(t types.EntityType, arg string) (types.SectionID, error) {
	for _, s := range registry.Sections(t) {
		if string(s.ID) == arg {
			return s.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s has no section %q", types.ErrUnknownSection, t, arg)
}

// splitPair splits "key=value" and fails on a missing "=".
func splitPair(arg string) (string, string, error) {
	k, v, ok := strings.Cut(arg, "=")
	if !ok || k == "" {
		return "", "", fmt.Errorf("%w: %q (expected key=value)", errUsage, arg)
	}
	return k, v, nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// displayTitle picks the field that best names an entity in listings: the
// first required text field, else the first text field.
func displayTitle(e *types.Entity) string {
	fields := registry.Fields(e.Type)
	pick := ""
	for _, f := range fields {
		if f.Type != types.FieldText {
			continue
		}
		if f.Required {
			pick = f.Name
			break
		}
		if pick == "" {
			pick = f.Name
		}
	}
	s, _ := e.Fields[pick].(string)
	return s
}

func stateText(s types.Status) string {
	label := string(s.State)
	if s.Dirty {
		label += " (unsaved changes)"
	}
	switch s.State {
	case types.StateSuccess:
		return color.New(color.FgGreen).Sprint(label)
	case types.StateError:
		return color.New(color.FgRed).Sprint(label)
	case types.StateSaving:
		return color.New(color.FgYellow).Sprint(label)
	default:
		return label
	}
}

func printNotice(n editor.Notice) {
	out := rootCmd.OutOrStdout()
	if n.Err != nil {
		fmt.Fprintf(out, "%s %s %s: %v\n", color.New(color.FgRed).Sprint("✗"), n.Type, n.ID, n.Err)
		return
	}
	how := "saved"
	if n.Auto {
		how = "auto-saved"
	}
	fmt.Fprintf(out, "%s %s %s %s\n", color.New(color.FgGreen).Sprint("✓"), how, n.Type, n.ID)
}

func validationLines(verr *types.ValidationError) string {
	names := make([]string, 0, len(verr.Fields))
	for name := range verr.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "  %s: %s\n", color.New(color.FgYellow).Sprint(name), verr.Fields[name])
	}
	return strings.TrimRight(sb.String(), "\n")
}

// sectionLabel renders a section with its state marker.
func sectionLabel(s types.SectionSpec) string {
	switch {
	case s.Mandatory:
		return color.New(color.FgCyan).Sprintf("%s (mandatory)", s.ID)
	case s.Enabled:
		return color.New(color.FgGreen).Sprintf("%s (on)", s.ID)
	default:
		return color.New(color.FgHiBlack).Sprintf("%s (off)", s.ID)
	}
}

func containsField(fields []types.FieldDescriptor, name string) bool {
	return slices.ContainsFunc(fields, func(f types.FieldDescriptor) bool { return f.Name == name })
}
