package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/saasbilling/pkg/catalog"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Permission and plan catalog commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate a catalog file and print its groups and plans",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "catalog.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			cat, err := catalog.New(cmd.Context(), catalog.FileSource{Path: path})
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "default group: %s\n", cat.DefaultGroup())
			fmt.Fprintf(out, "admin groups:  %s\n", strings.Join(cat.AdminGroups(), ", "))
			fmt.Fprintf(out, "groups:        %s\n", strings.Join(cat.Groups(), ", "))
			for _, p := range cat.Plans() {
				fmt.Fprintf(out, "plan %s (%s): %s\n", p.ID, p.Name, strings.Join(p.PriceIDs, ", "))
			}
			return nil
		},
	})
	return cmd
}
