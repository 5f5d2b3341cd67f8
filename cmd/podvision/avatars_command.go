package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podvision/internal/avatar"
	"podvision/internal/view"
)

type avatarEntry struct {
	Model       string   `json:"model"`
	DisplayName string   `json:"display_name"`
	DefaultFor  []string `json:"default_for,omitempty"`
}

func newAvatarsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "avatars",
		Short: "List the avatar models speakers can be assigned to",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := ctx.catalog()
			defaults := ctx.defaultMapping()
			if asJSON {
				return writeJSON(cmd, avatarEntries(catalog, defaults))
			}
			fmt.Fprintln(cmd.OutOrStdout(), view.CatalogTable(catalog, defaults))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the catalog as JSON")
	return cmd
}

func avatarEntries(catalog avatar.Catalog, defaults avatar.Mapping) []avatarEntry {
	entries := make([]avatarEntry, 0, catalog.Len())
	for _, model := range catalog.Models() {
		entry := avatarEntry{Model: model, DisplayName: avatar.DisplayName(model)}
		for _, label := range defaults.Labels() {
			if defaults[label] == model {
				entry.DefaultFor = append(entry.DefaultFor, label)
			}
		}
		entries = append(entries, entry)
	}
	return entries
}
