package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	sferrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/action"
	"github.com/vango-dev/storefront/pkg/document"
	"github.com/vango-dev/storefront/pkg/node"
)

func validateCmd(configDir *string) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "validate <tree.json>...",
		Short: "Check component trees against the registered components",
		Long: `Validate component trees offline with the same rules the store applies
when a draft is saved. Each file holds one JSON node tree.

Examples:
  storefront validate --kind page home.json
  storefront validate --kind prefab hero.json footer.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configDir)
			if err != nil {
				return err
			}
			k := document.ParseKind(kind)
			logger := newLogger(cfg, cmd.ErrOrStderr())
			components, err := newComponents(cfg, logger)
			if err != nil {
				return err
			}
			actions := action.NewRegistry()
			actions.RegisterBuiltins(action.Collaborators{})

			validators := document.DefaultValidators(components, actions)
			v, ok := validators[k]
			if !ok {
				return sferrors.New("E404").WithDetailf("unknown kind %q", kind)
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				tree, err := readTree(path)
				if err != nil {
					return err
				}
				vs := v.Validate(tree)
				if len(vs) == 0 {
					success(out, "%s", path)
					continue
				}
				failed++
				errorMsg(out, "%s: %d violation(s)", path, len(vs))
				for _, viol := range vs {
					info(out, "%s", viol)
				}
			}
			if failed > 0 {
				return sferrors.New("E401").WithDetailf("%d of %d file(s) failed validation", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", string(document.KindPage), "Document kind: page, prefab, layout or theme")

	return cmd
}

// readTree decodes one node tree from path; "-" reads standard input.
func readTree(path string) (*node.Node, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var tree node.Node
	if err := json.NewDecoder(r).Decode(&tree); err != nil {
		return nil, sferrors.New("E401").WithDetail(fmt.Sprintf("%s is not a JSON node tree", path)).Wrap(err)
	}
	return &tree, nil
}
