package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/storefront/pkg/document"
)

func publishCmd(configDir *string) *cobra.Command {
	var (
		storeID   string
		kind      string
		draftPath string
	)

	cmd := &cobra.Command{
		Use:   "publish <key>",
		Short: "Publish a document's draft",
		Long: `Copy a document's DRAFT over its PUBLISHED slot. With --draft the
tree in the given file is saved as the draft first.

Examples:
  storefront publish --store s1 --kind page home
  storefront publish --store s1 --kind prefab hero --draft hero.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			k := document.ParseKind(kind)

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
			if draftPath != "" {
				tree, err := readTree(draftPath)
				if err != nil {
					return err
				}
				doc, err := a.store.SaveDraft(cmd.Context(), storeID, k, key, tree, nil)
				if err != nil {
					return err
				}
				success(out, "Saved %s %s draft (version %d)", k, key, doc.Version)
			}

			doc, err := a.store.Publish(cmd.Context(), storeID, k, key)
			if err != nil {
				return err
			}
			success(out, "Published %s %s for %s (version %d)", k, key, storeID, doc.Version)
			return nil
		},
	}

	cmd.Flags().StringVarP(&storeID, "store", "s", "", "Store ID")
	cmd.Flags().StringVarP(&kind, "kind", "k", string(document.KindPage), "Document kind: page, prefab or layout")
	cmd.Flags().StringVar(&draftPath, "draft", "", "Save this JSON tree as the draft before publishing")
	_ = cmd.MarkFlagRequired("store")

	return cmd
}
