package main

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tsam/console/internal/listview"
	"github.com/tsam/console/internal/resource"
)

type listOptions struct {
	Filters []string
	Page    int
	Limit   int
}

func newListCmd(root *rootOptions) *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:     "list <resource> [--filter name=value]... [--page n] [--limit n]",
		Short:   "Search a resource and print one page of records",
		Example: "  tsamctl list technologies --filter name=go --limit 10\n  tsamctl list salary-trends --filter technologies=Go --filter technologies=Java",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			screens, err := root.screens(cmd)
			if err != nil {
				return err
			}
			s, err := findScreen(screens, args[0])
			if err != nil {
				return err
			}
			q, err := opts.query(s)
			if err != nil {
				return err
			}

			view, err := s.List(cmd.Context(), q)
			if err != nil {
				return err
			}
			return printList(cmd, view)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Filters, "filter", "f", nil, "search criterion as name=value, repeat for several values")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "records per page (default from configuration)")
	return cmd
}

// query builds the address bar query the console would show for the
// requested search and page.
func (o listOptions) query(s resource.Screen) (url.Values, error) {
	q := url.Values{}
	allowed := s.FilterNames()
	for _, f := range o.Filters {
		name, value, ok := strings.Cut(f, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --filter %q: want name=value", f)
		}
		if !slices.Contains(allowed, name) {
			return nil, fmt.Errorf("unknown filter %q for %s (filters: %s)", name, s.Info().Name, strings.Join(allowed, ", "))
		}
		q.Add(name, value)
	}
	if o.Page < 1 {
		return nil, fmt.Errorf("invalid --page %d: must be at least 1", o.Page)
	}
	if o.Page > 1 {
		q.Set(listview.FieldOffset, strconv.Itoa(o.Page-1))
	}
	if o.Limit < 0 {
		return nil, fmt.Errorf("invalid --limit %d: must be positive", o.Limit)
	}
	if o.Limit > 0 {
		q.Set(listview.FieldLimit, strconv.Itoa(o.Limit))
	}
	return q, nil
}

func printList(cmd *cobra.Command, view *resource.ListView) error {
	out := cmd.OutOrStdout()
	if len(view.Rows) == 0 {
		_, err := fmt.Fprintf(out, "No %s found.\n", strings.ToLower(view.Plural))
		return err
	}

	headers := append([]string{"ID"}, view.Columns...)
	rows := make([][]string, 0, len(view.Rows))
	for _, r := range view.Rows {
		rows = append(rows, append([]string{r.ID}, r.Cells...))
	}
	if _, err := fmt.Fprintln(out, renderTable(headers, rows)); err != nil {
		return err
	}

	footer := view.Page.String()
	if view.IsSearched {
		chips := make([]string, 0, len(view.Chips))
		for _, c := range view.Chips {
			chips = append(chips, c.Label+": "+c.Value())
		}
		footer += " matching " + strings.Join(chips, "; ")
	}
	_, err := fmt.Fprintln(out, footer)
	return err
}
