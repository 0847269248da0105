package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func componentsCmd(configDir *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "components",
		Short: "List registered component definitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configDir)
			if err != nil {
				return err
			}
			reg, err := newComponents(cfg, newLogger(cfg, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			defs := reg.List()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(defs)
			}
			for _, def := range defs {
				fmt.Fprintf(out, "%-16s %-10s", def.Type, def.Category)
				if len(def.ActionSlots) > 0 {
					fmt.Fprintf(out, " actions=%s", strings.Join(def.ActionSlots, ","))
				}
				if def.AcceptsChildren() {
					fmt.Fprint(out, " children")
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print definitions as JSON")

	return cmd
}
