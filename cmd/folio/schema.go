package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [type]",
	Short: "Show entity types or the fields of one type",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSchema,
}

func runSchema(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		if flagJSON {
			schemas := make([]any, 0)
			for _, t := range registry.Types() {
				s, _ := registry.Schema(t)
				schemas = append(schemas, s)
			}
			return writeJSON(schemas)
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tTABLE\tFIELDS\tSECTIONS")
		for _, t := range registry.Types() {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", t, registry.Table(t), len(registry.Fields(t)), len(registry.Sections(t)))
		}
		return w.Flush()
	}

	t, err := parseType(args[0])
	if err != nil {
		return err
	}
	if flagJSON {
		s, _ := registry.Schema(t)
		s.Fields = registry.Fields(t)
		return writeJSON(s)
	}

	var labels []string
	for _, s := range registry.Sections(t) {
		labels = append(labels, sectionLabel(s))
	}
	fmt.Fprintf(out, "%s (table %s)\n", t, registry.Table(t))
	fmt.Fprintf(out, "sections: %s\n", strings.Join(labels, ", "))
	for _, c := range registry.Collections(t) {
		fmt.Fprintf(out, "collection: %s (table %s)\n", c.Name, c.Table)
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tTYPE\tSECTION\tREQUIRED\tMAX\tOPTIONS")
	for _, f := range registry.Fields(t) {
		req := ""
		if f.Required {
			req = "yes"
		}
		limit := ""
		if f.MaxLength > 0 {
			limit = fmt.Sprint(f.MaxLength)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", f.Name, f.Type, f.Section, req, limit, strings.Join(f.Options, "|"))
	}
	return w.Flush()
}

func writeJSON(v any) error {
	enc := json.NewEncoder(rootCmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
