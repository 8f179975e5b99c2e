package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize folio storage",
	Long:  "Create the configuration and data directories, write a default config.yaml\nand create the content tables.",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	for _, t := range registry.Types() {
		if _, err := s.backend.GetTable(registry.Table(t)); err != nil {
			return fmt.Errorf("create table for %s: %w", t, err)
		}
		for _, c := range registry.Collections(t) {
			if _, err := s.backend.GetTable(c.Table); err != nil {
				return fmt.Errorf("create table %s: %w", c.Table, err)
			}
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "config: %s\n", configDir)
	fmt.Fprintf(out, "data:   %s\n", appConfig.DataDir)
	fmt.Fprintln(out, "folio initialized")
	return nil
}
