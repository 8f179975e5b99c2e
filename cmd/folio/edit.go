package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/folio/internal/editor"
	"github.com/mesh-intelligence/folio/internal/render"
	"github.com/mesh-intelligence/folio/pkg/types"
)

var (
	editSet         []string
	editUpload      []string
	editEnable      []string
	editDisable     []string
	editAddChild    []string
	editRemoveChild []string
	editSave        bool
	editTimeout     time.Duration
)

var editCmd = &cobra.Command{
	Use:   "edit <type> [id]",
	Short: "Edit an entity, or create one when no id is given",
	Long: `Edit opens an editing session on one entity and applies the given changes
through the same controls the admin panel uses: text is truncated to its
maximum length, long text is sanitized, selects only accept their options
and tag lists ignore duplicates.

With auto-save enabled the session waits for the debounced save; --save
saves immediately instead.

Examples:
  folio edit hero 0190... --set headline="Hi, I'm Ada"
  folio edit project --set title=Folio --set category=tooling --set tech_stack=go,sqlite \
      --upload cover_image=./cover.png --add-child tags:name=go --save
  folio edit project 0190... --enable links --set repo_url=https://example.com/folio`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runEdit,
}

func init() {
	f := editCmd.Flags()
	f.StringArrayVar(&editSet, "set", nil, "set a field: name=value (lists are comma-separated)")
	f.StringArrayVar(&editUpload, "upload", nil, "upload images into a field: name=path[,path...]")
	f.StringArrayVar(&editEnable, "enable", nil, "enable an optional section")
	f.StringArrayVar(&editDisable, "disable", nil, "disable an optional section")
	f.StringArrayVar(&editAddChild, "add-child", nil, "append a child item: collection:key=value[,key=value...]")
	f.StringArrayVar(&editRemoveChild, "remove-child", nil, "remove a child item: collection:index")
	f.BoolVar(&editSave, "save", false, "save immediately instead of waiting for auto-save")
	f.DurationVar(&editTimeout, "timeout", 30*time.Second, "how long to wait for the save")
}

func runEdit(cmd *cobra.Command, args []string) error {
	t, err := parseType(args[0])
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), editTimeout)
	defer cancel()

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	cfg := appConfig.Editor
	if editSave {
		cfg.AutoSave = false
	}

	var ed *editor.Editor
	if len(args) == 2 {
		entity, err := s.adapter.Get(ctx, t, args[1])
		if err != nil {
			return err
		}
		ed = editor.New(registry, s.adapter, entity, s.editorOptions(cfg)...)
		defer ed.Close()
	} else {
		// New entities go to the end of the list.
		col := editor.NewCollection(t, registry, s.adapter, s.editorOptions(cfg)...)
		defer col.Close()
		if err := col.Load(ctx); err != nil {
			return err
		}
		ed = col.Add()
	}

	resolved := make(chan types.Status, 1)
	ed.OnStatus(func(st types.Status) {
		logger.Debug("status", "state", st.State, "dirty", st.Dirty)
		if st.State == types.StateSuccess || st.State == types.StateError {
			select {
			case resolved <- st:
			default:
			}
		}
	})

	if err := applyEdits(ctx, ed, s.renderer, t); err != nil {
		return err
	}
	if !ed.Status().Dirty {
		fmt.Fprintln(cmd.OutOrStdout(), "nothing to save")
		return nil
	}

	if !cfg.AutoSave {
		if err := ed.Save(ctx); err != nil {
			return err
		}
	} else if err := waitForAutoSave(ctx, ed, resolved); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", t, ed.ID(), stateText(ed.Status()))
	return nil
}

// waitForAutoSave blocks until the debounced save resolves, validation
// blocks it, or ctx ends.
func waitForAutoSave(ctx context.Context, ed *editor.Editor, resolved <-chan types.Status) error {
	poll := time.NewTicker(50 * time.Millisecond)
	defer poll.Stop()
	for {
		select {
		case st := <-resolved:
			if st.State == types.StateError {
				return ed.LastError()
			}
			return nil
		case <-poll.C:
			if verr := ed.Validation(); verr != nil {
				return verr
			}
		case <-ctx.Done():
			return fmt.Errorf("waiting for auto-save: %w", ctx.Err())
		}
	}
}

// applyEdits applies the command-line changes in order: sections first so
// that newly enabled fields can be set, then fields, uploads and child
// items.
func applyEdits(ctx context.Context, ed *editor.Editor, r *render.Renderer, t types.EntityType) error {
	for _, arg := range editEnable {
		if err := setSection(ed, t, arg, true); err != nil {
			return err
		}
	}
	for _, arg := range editDisable {
		if err := setSection(ed, t, arg, false); err != nil {
			return err
		}
	}

	controls := make(map[string]render.Control)
	for _, c := range ed.Controls(r) {
		controls[c.Field().Name] = c
	}
	lookup := func(name string) (render.Control, error) {
		if c, ok := controls[name]; ok {
			return c, nil
		}
		if containsField(registry.Fields(t), name) {
			return nil, fmt.Errorf("%w: %s is in a disabled section", errUsage, name)
		}
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownField, name)
	}

	for _, arg := range editSet {
		name, value, err := splitPair(arg)
		if err != nil {
			return err
		}
		c, err := lookup(name)
		if err != nil {
			return err
		}
		if err := setControl(c, value); err != nil {
			return err
		}
	}

	for _, arg := range editUpload {
		name, value, err := splitPair(arg)
		if err != nil {
			return err
		}
		c, err := lookup(name)
		if err != nil {
			return err
		}
		if err := uploadInto(ctx, c, splitList(value)); err != nil {
			return err
		}
	}

	for _, arg := range editAddChild {
		coll, spec, ok := strings.Cut(arg, ":")
		if !ok {
			return fmt.Errorf("%w: %q (expected collection:key=value)", errUsage, arg)
		}
		fields := make(map[string]any)
		for _, pair := range splitList(spec) {
			k, v, err := splitPair(pair)
			if err != nil {
				return err
			}
			fields[k] = v
		}
		if _, err := ed.AddChild(coll, fields); err != nil {
			return err
		}
	}

	for _, arg := range editRemoveChild {
		coll, idx, ok := strings.Cut(arg, ":")
		i, err := strconv.Atoi(idx)
		if !ok || err != nil {
			return fmt.Errorf("%w: %q (expected collection:index)", errUsage, arg)
		}
		if err := ed.RemoveChild(coll, i); err != nil {
			return err
		}
	}
	return nil
}

func setSection(ed *editor.Editor, t types.EntityType, arg string, on bool) error {
	id, err := parseSection(t, arg)
	if err != nil {
		return err
	}
	changed, err := ed.SetSection(id, on)
	if err != nil {
		return err
	}
	if !changed && !on {
		for _, s := range ed.Sections() {
			if s.ID == id && s.Mandatory {
				logger.Warn("section is mandatory and stays enabled", "section", id)
			}
		}
	}
	return nil
}

// setControl applies a textual value through the field's control.
func setControl(c render.Control, value string) error {
	switch ctl := c.(type) {
	case *render.TextControl:
		ctl.Set(value)
	case *render.LongTextControl:
		ctl.Set(value)
	case *render.CodeControl:
		ctl.Set(value)
	case *render.SelectControl:
		if value == "" {
			ctl.Clear()
			return nil
		}
		return ctl.Select(value)
	case *render.ToggleControl:
		on, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s expects true or false", errUsage, c.Field().Name)
		}
		ctl.Set(on)
	case *render.TagListControl:
		if slices.Equal(ctl.Values(), splitList(value)) {
			return nil
		}
		for _, existing := range ctl.Values() {
			ctl.Remove(existing)
		}
		for _, tag := range splitList(value) {
			ctl.Add(tag)
		}
	case *render.ImageControl:
		if value != "" {
			return fmt.Errorf("%w: %s is an image field, use --upload", errUsage, c.Field().Name)
		}
		ctl.Clear()
	case *render.ImageCollectionControl:
		if value != "" {
			return fmt.Errorf("%w: %s is an image field, use --upload", errUsage, c.Field().Name)
		}
		for _, u := range ctl.URLs() {
			ctl.Remove(u)
		}
	default:
		return fmt.Errorf("%w: %s has unsupported type %s", errUsage, c.Field().Name, c.Kind())
	}
	return nil
}

// uploadInto reads files from disk and hands them to an image control.
func uploadInto(ctx context.Context, c render.Control, files []string) error {
	payloads := make([]types.File, 0, len(files))
	for _, p := range files {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		payloads = append(payloads, types.File{Name: filepath.Base(p), Data: data})
	}
	switch ctl := c.(type) {
	case *render.ImageControl:
		if len(payloads) != 1 {
			return fmt.Errorf("%w: %s takes exactly one file", errUsage, c.Field().Name)
		}
		_, err := ctl.Upload(ctx, payloads[0])
		return err
	case *render.ImageCollectionControl:
		_, err := ctl.UploadMany(ctx, payloads)
		return err
	default:
		return fmt.Errorf("%w: %s is not an image field", errUsage, c.Field().Name)
	}
}
