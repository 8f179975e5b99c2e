package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/folio/internal/editor"
)

var reorderCmd = &cobra.Command{
	Use:   "reorder <type> <id>...",
	Short: "Set the display order of a type's entities",
	Long:  "Reorder takes every id of the type in the desired order and writes the\npositions that changed.",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runReorder,
}

func runReorder(cmd *cobra.Command, args []string) error {
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
	if err := col.Reorder(cmd.Context(), args[1:]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "reordered %d %s entities\n", len(args)-1, t)
	return nil
}
