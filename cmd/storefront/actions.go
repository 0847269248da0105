package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vango-dev/storefront/pkg/action"
)

func actionsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List built-in actions and their payloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := action.NewRegistry()
			reg.RegisterBuiltins(action.Collaborators{})

			out := cmd.OutOrStdout()
			defs := reg.List()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(defs)
			}
			for _, def := range defs {
				fmt.Fprintf(out, "%-16s %s\n", def.ID, def.Label)
				names := make([]string, 0, len(def.Payload.Fields))
				for name := range def.Payload.Fields {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					f := def.Payload.Fields[name]
					req := ""
					if f.Required {
						req = " (required)"
					}
					info(out, "%s: %s%s", name, f.Kind, req)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print definitions as JSON")

	return cmd
}
