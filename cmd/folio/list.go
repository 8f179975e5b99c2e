package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/folio/internal/editor"
	"github.com/mesh-intelligence/folio/pkg/types"
)

var listCmd = &cobra.Command{
	Use:   "list <type>",
	Short: "List the entities of a type in display order",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show <type> <id>",
	Short: "Show one entity with its sections and child collections",
	Args:  cobra.ExactArgs(2),
	RunE:  runShow,
}

func runList(cmd *cobra.Command, args []string) error {
	t, err := parseType(args[0])
	if err != nil {
		return err
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	col := editor.NewCollection(t, registry, s.adapter, s.editorOptions(appConfig.Editor)...)
	defer col.Close()
	if err := col.Load(cmd.Context()); err != nil {
		return err
	}

	entities := make([]*types.Entity, 0, col.Len())
	for _, ed := range col.Editors() {
		entities = append(entities, ed.Entity())
	}
	if flagJSON {
		return writeJSON(entities)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tID\tTITLE\tPUBLISHED\tUPDATED")
	for _, e := range entities {
		published, _ := e.Fields["published"].(bool)
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\n", e.Order, e.ID, displayTitle(e), published, e.UpdatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func runShow(cmd *cobra.Command, args []string) error {
	t, err := parseType(args[0])
	if err != nil {
		return err
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	e, err := s.adapter.Get(cmd.Context(), t, args[1])
	if err != nil {
		return err
	}
	if flagJSON {
		return writeJSON(e)
	}

	ed := editor.New(registry, s.adapter, e, editor.WithConfig(types.EditorConfig{}))
	defer ed.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s (order %d, updated %s)\n", t, e.ID, e.Order, e.UpdatedAt.Local().Format(time.DateTime))
	for _, sec := range ed.Sections() {
		fmt.Fprintf(out, "  section %s\n", sectionLabel(sec))
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, f := range ed.VisibleFields() {
		fmt.Fprintf(w, "  %s\t%v\n", f.Name, e.Fields[f.Name])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	for _, c := range registry.Collections(t) {
		fmt.Fprintf(out, "  %s:\n", c.Name)
		for i, item := range e.Children[c.Name] {
			fmt.Fprintf(out, "    [%d] %s %v\n", i, item.ID, item.Fields)
		}
	}
	return nil
}
