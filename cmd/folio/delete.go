package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/folio/internal/editor"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <type> <id>",
	Short: "Delete an entity and its child items",
	Args:  cobra.ExactArgs(2),
	RunE:  runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
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
	if err := col.Remove(cmd.Context(), args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %s\n", t, args[1])
	return nil
}
