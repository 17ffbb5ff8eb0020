package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <resource> <id>",
		Short: "Print every field of one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			screens, err := root.screens(cmd)
			if err != nil {
				return err
			}
			s, err := findScreen(screens, args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			m, err := s.OpenView(ctx, args[1])
			if err != nil {
				return err
			}
			defer func() { _ = s.CloseModal(ctx, m.SessionID) }()

			rows := make([][]string, 0, len(m.Fields))
			for _, f := range m.Fields {
				rows = append(rows, []string{f.Text(), f.Value})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{m.Heading, ""}, rows))
			return err
		},
	}
}
