package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the folio release.
const Version = "0.3.0"

const modulePath = "github.com/mesh-intelligence/folio"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the folio version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "folio v%s\nmodule: %s\n", Version, modulePath)
		return nil
	},
}
