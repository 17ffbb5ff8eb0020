package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newDeleteCmd(root *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <resource> <id> --yes",
		Short: "Delete one record",
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
			confirm, err := s.ConfirmDelete(ctx, args[1])
			if err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("refusing to delete %s %q without --yes", confirm.Title, confirm.Summary)
			}

			_, msg, err := s.Delete(ctx, url.Values{}, args[1])
			if msg == "" {
				return err
			}
			if _, werr := fmt.Fprintln(cmd.OutOrStdout(), msg); werr != nil {
				return werr
			}
			// The record is gone; only the refreshed list failed.
			return err
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the deletion")
	return cmd
}
