package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	sferrors "github.com/vango-dev/storefront/internal/errors"
)

func themeCmd(configDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Manage store theme variables",
	}
	cmd.AddCommand(themeImportCmd(configDir), themeShowCmd(configDir))
	return cmd
}

func themeImportCmd(configDir *string) *cobra.Command {
	var (
		storeID string
		publish bool
	)

	cmd := &cobra.Command{
		Use:   "import <theme.toml>",
		Short: "Save a TOML file as the store's theme draft",
		Long: `Import theme variables from TOML. Nested tables become dotted names:

  [color]
  primary = "#0a84ff"

is stored as color.primary. Numbers and booleans are stored as text.

Examples:
  storefront theme import --store s1 theme.toml
  storefront theme import --store s1 theme.toml --publish`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := readThemeFile(args[0])
			if err != nil {
				return err
			}

			cfg, err := loadConfig(*configDir)
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			draft, err := a.store.SaveThemeDraft(cmd.Context(), storeID, vars)
			if err != nil {
				return err
			}
			success(out, "Saved theme draft for %s (%d variables, version %d)", storeID, len(draft.Variables), draft.Version)

			if publish {
				pub, err := a.store.PublishTheme(cmd.Context(), storeID)
				if err != nil {
					return err
				}
				success(out, "Published theme for %s (version %d)", storeID, pub.Version)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&storeID, "store", "s", "", "Store ID")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish the draft after saving")
	_ = cmd.MarkFlagRequired("store")

	return cmd
}

func themeShowCmd(configDir *string) *cobra.Command {
	var (
		storeID string
		draft   bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a store's theme variables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configDir)
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			get := a.store.GetThemePublished
			if draft {
				get = a.store.GetThemeDraft
			}
			theme, ok, err := get(cmd.Context(), storeID)
			if err != nil {
				return err
			}
			if !ok {
				return sferrors.New("E403").WithDetailf("store %s has no theme", storeID)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(theme)
		},
	}

	cmd.Flags().StringVarP(&storeID, "store", "s", "", "Store ID")
	cmd.Flags().BoolVar(&draft, "draft", false, "Show the draft instead of the published theme")
	_ = cmd.MarkFlagRequired("store")

	return cmd
}

func readThemeFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, sferrors.New("E405").WithDetailf("parse %s", path).Wrap(err)
	}
	vars := make(map[string]string)
	if err := flattenTheme("", raw, vars); err != nil {
		return nil, sferrors.New("E405").WithDetailf("%s: %v", path, err)
	}
	return vars, nil
}

// flattenTheme joins nested table keys with dots and renders scalar values
// as text. Arrays have no variable form and are rejected.
func flattenTheme(prefix string, in map[string]any, out map[string]string) error {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		switch v := in[k].(type) {
		case map[string]any:
			if err := flattenTheme(name, v, out); err != nil {
				return err
			}
		case string:
			out[name] = v
		case int64:
			out[name] = strconv.FormatInt(v, 10)
		case float64:
			out[name] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			out[name] = strconv.FormatBool(v)
		default:
			return fmt.Errorf("%s: unsupported value of type %T", name, v)
		}
	}
	return nil
}
