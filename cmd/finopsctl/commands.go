// cmd/finopsctl/commands.go
package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ammerola/finops-console/internal/adapters/export"
	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
	"github.com/ammerola/finops-console/internal/core/services"
	"github.com/ammerola/finops-console/internal/handlers"
	"github.com/ammerola/finops-console/internal/ui/console"
)

// listFlags mirror the query parameters of GET /api/v1/views/{view}
type listFlags struct {
	search  string
	filters []string
	dates   []string
	sort    string
	order   string
	page    int
	limit   int
}

func (f *listFlags) register(cmd *cobra.Command, paging bool) {
	fl := cmd.Flags()
	fl.StringVar(&f.search, "search", "", "Free-text search")
	fl.StringArrayVar(&f.filters, "filter", nil, "Selection as field=value[,value] (repeatable)")
	fl.StringArrayVar(&f.dates, "date", nil, "Date range as field=7d or field=2025-03-01..2025-03-15 (repeatable)")
	fl.StringVar(&f.sort, "sort", "", "Field to sort by")
	fl.StringVar(&f.order, "order", "asc", "Sort order (asc, desc)")
	if paging {
		fl.IntVar(&f.page, "page", 1, "Page number")
		fl.IntVar(&f.limit, "limit", 0, "Rows per page (default from the console settings)")
	}
}

// params converts the flags into the API's query string and parses it the
// same way the HTTP handlers do
func (f *listFlags) params(defaultLimit int) (ports.ListParams, error) {
	q := url.Values{}
	if f.search != "" {
		q.Set("search", f.search)
	}
	if f.sort != "" {
		q.Set("sort", f.sort)
		q.Set("order", f.order)
	}
	if f.page > 0 {
		q.Set("page", strconv.Itoa(f.page))
	}
	limit := f.limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	for _, raw := range f.filters {
		field, values, ok := strings.Cut(raw, "=")
		if !ok || field == "" || values == "" {
			return ports.ListParams{}, fmt.Errorf("invalid --filter %q, want field=value[,value]", raw)
		}
		q.Add("filter."+field, values)
	}
	for _, raw := range f.dates {
		field, rng, ok := strings.Cut(raw, "=")
		if !ok || field == "" {
			return ports.ListParams{}, fmt.Errorf("invalid --date %q, want field=range", raw)
		}
		q.Set("date."+field, rng)
	}

	return handlers.ParseListParams(q)
}

func newViewsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "views",
		Short: "List the available views and their row counts",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			rows := make([][]string, 0, len(domain.Views))
			for _, v := range domain.Views {
				result, err := a.views.List(cmd.Context(), v, ports.ListParams{})
				if err != nil {
					return err
				}
				rows = append(rows, []string{string(v), strconv.FormatInt(result.TotalCount, 10)})
			}
			printTable(cmd.OutOrStdout(), []string{"view", "rows"}, rows)
			return nil
		}),
	}
}

func newListCmd(a *app) *cobra.Command {
	var flags listFlags
	cmd := &cobra.Command{
		Use:   "list <view>",
		Short: "Print one page of a view",
		Example: `  finopsctl list queries --search etl --filter status=Failed --sort credits --order desc
  finopsctl list warehouses --date last_active=7d --page 2`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			view, err := domain.ParseView(args[0])
			if err != nil {
				return err
			}
			params, err := flags.params(a.cfg.PageSize)
			if err != nil {
				return err
			}
			grid, err := a.views.Grid(cmd.Context(), view, params)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			page := grid.VisibleTable()
			if page.Empty() {
				fmt.Fprintln(out, view.EmptyMessage())
				return nil
			}
			printTable(out, page.Table.Headers(), page.Table.Strings())
			fmt.Fprintf(out, "\nPage %d of %d · %d rows\n", page.Page, page.TotalPages, page.TotalCount)
			return nil
		}),
	}
	flags.register(cmd, true)
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		flags  listFlags
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export <view>",
		Short: "Write every filtered row of a view to a file",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			view, err := domain.ParseView(args[0])
			if err != nil {
				return err
			}
			f, err := ports.ParseFormat(format)
			if err != nil {
				return err
			}
			params, err := flags.params(0)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "-" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer file.Close()
				w = file
			}

			svc := services.NewExportService(a.views, export.NewEncoder(), nil, nil, nil, services.ExportOptions{}, a.logger)
			n, err := svc.Export(cmd.Context(), w, view, f, params)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d rows\n", n)
			return nil
		}),
	}
	flags.register(cmd, false)
	cmd.Flags().StringVarP(&format, "format", "f", string(ports.FormatCSV), "Export format (csv, xlsx, json)")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file, - for stdout")
	return cmd
}

type transition func(s *services.RecommendationService, ctx context.Context, id string) (*domain.Recommendation, error)

var (
	resolve transition = (*services.RecommendationService).Resolve
	dismiss transition = (*services.RecommendationService).Dismiss
	reopen  transition = (*services.RecommendationService).Reopen
)

func newTransitionCmd(a *app, use, short string, apply transition) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				rec, err := apply(a.recs, cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("failed to %s %s: %w", use, id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", rec.ID, rec.Status)
			}
			return nil
		}),
	}
}

func newBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse [view]",
		Short: "Open the interactive browser",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			name := a.cfg.DefaultView
			if len(args) == 1 {
				name = args[0]
			}
			view, err := domain.ParseView(name)
			if err != nil {
				return err
			}
			m, err := console.New(cmd.Context(), a.cfg, a.views, a.recs, view,
				console.WithPreferences(a.store),
				console.WithLogger(a.newLogger(io.Discard)),
			)
			if err != nil {
				return err
			}
			return console.Run(cmd.Context(), m)
		}),
	}
}
