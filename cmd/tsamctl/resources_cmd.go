package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tsam/console/internal/resource"
)

func newResourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List the resources and their search filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows := [][]string{}
			for _, s := range resource.Catalog(resource.Deps{}) {
				info := s.Info()
				rows = append(rows, []string{info.Name, info.Plural, strings.Join(s.FilterNames(), ", ")})
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"RESOURCE", "TITLE", "FILTERS"}, rows))
			return err
		},
	}
}
