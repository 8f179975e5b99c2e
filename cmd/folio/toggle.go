package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/folio/internal/editor"
)

var toggleCmd = &cobra.Command{
	Use:   "toggle <type> <id> <section>",
	Short: "Flip an optional section on or off and save",
	Long: `Toggle flips one optional section of an entity and saves it. Mandatory
sections cannot be turned off; toggling one changes nothing.

Turning a section on makes its required fields block the save until they
are filled in.`,
	Args: cobra.ExactArgs(3),
	RunE: runToggle,
}

func runToggle(cmd *cobra.Command, args []string) error {
	t, err := parseType(args[0])
	if err != nil {
		return err
	}
	section, err := parseSection(t, args[2])
	if err != nil {
		return err
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	entity, err := s.adapter.Get(cmd.Context(), t, args[1])
	if err != nil {
		return err
	}
	cfg := appConfig.Editor
	cfg.AutoSave = false
	ed := editor.New(registry, s.adapter, entity, s.editorOptions(cfg)...)
	defer ed.Close()

	changed, err := ed.ToggleSection(section)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !changed {
		fmt.Fprintf(out, "section %s is mandatory; nothing changed\n", section)
		return nil
	}
	if err := ed.Save(cmd.Context()); err != nil {
		return err
	}
	for _, sec := range ed.Sections() {
		if sec.ID == section {
			fmt.Fprintf(out, "section %s\n", sectionLabel(sec))
		}
	}
	return nil
}
