package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gradelens/adapters/excel"
	"gradelens/adapters/postgres"
	"gradelens/app"
	"gradelens/domain/core"
	"gradelens/domain/query"
	"gradelens/internal"
	"gradelens/internal/analysis"
	"gradelens/internal/config"
	"gradelens/internal/loader"
	"gradelens/internal/session"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// sourceFlags select the table every query command runs against
type sourceFlags struct {
	file    string
	sheet   string
	table   string
	filters []string
}

func newRootCmd(out io.Writer) *cobra.Command {
	src := &sourceFlags{}

	rootCmd := &cobra.Command{
		Use:   "gradelens",
		Short: "Query a student performance table from the command line",
		Long: `gradelens loads a CSV, Excel workbook or Postgres table of student records,
applies the --filter selection and prints the result of one query as JSON.

Filters are column=value or column=min..max and may be repeated:

  gradelens summary --file students.csv --filter Department=CS --filter Total_Score=60..100`,
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&src.file, "file", os.Getenv("DATA_FILE"), "CSV or Excel file to load (default $DATA_FILE)")
	flags.StringVar(&src.sheet, "sheet", os.Getenv("EXCEL_SHEET"), "worksheet name for Excel files (default: first sheet)")
	flags.StringVar(&src.table, "table", "", "read this Postgres table via $DATABASE_URL instead of --file")
	flags.StringArrayVar(&src.filters, "filter", nil, "filter as column=value or column=min..max (repeatable)")

	rootCmd.AddCommand(
		newSummaryCmd(src),
		newValuesCmd(src),
		newAggregateCmd(src),
		newCrosstabCmd(src),
		newCorrelateCmd(src),
		newCohortCmd(src),
		newCompareCmd(src),
		newHistogramCmd(src),
		newDashboardCmd(src),
		newExportCmd(src),
		newGenerateCmd(),
	)
	return rootCmd
}

// workspace is one loaded table behind a single-session service
type workspace struct {
	service *app.AnalysisService
	id      core.ID
	filters query.FilterSet
}

// open loads the selected source and parses the filters. The returned
// cleanup closes any database connection.
func (f *sourceFlags) open(ctx context.Context) (*workspace, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := internal.NewLogger(internal.ParseLogLevel(cfg.Log.Level), os.Stderr)
	internal.SetDefault(logger)

	filters, err := analysis.ParseFilterArgs(f.filters)
	if err != nil {
		return nil, nil, err
	}

	service := app.NewAnalysisService(
		loader.NewCache(cfg.Analysis.BinSpecs, logger),
		session.NewManager(),
		nil,
		analysis.DashboardOptions{CohortSize: cfg.Analysis.DefaultCohortSize},
		logger,
	)

	cleanup := func() {}
	var info *app.SessionInfo
	switch {
	case f.table != "":
		if !cfg.Database.Enabled() {
			return nil, nil, fmt.Errorf("--table requires DATABASE_URL")
		}
		db, err := postgres.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { db.Close() }
		src, err := postgres.NewTableSource(db, f.table)
		if err == nil {
			info, err = service.Open(ctx, f.table, src)
		}
		if err != nil {
			cleanup()
			return nil, nil, err
		}
	case f.file != "":
		if info, err = service.OpenFile(ctx, f.file, f.sheet); err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("no data source: pass --file or --table")
	}

	return &workspace{service: service, id: info.ID, filters: filters}, cleanup, nil
}

// query runs fn against the loaded table and prints its result as JSON
func (f *sourceFlags) query(cmd *cobra.Command, fn func(ctx context.Context, w *workspace) (interface{}, error)) error {
	ctx := cmd.Context()
	w, cleanup, err := f.open(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := fn(ctx, w)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func newSummaryCmd(src *sourceFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print the selection's headline statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return src.query(cmd, func(ctx context.Context, w *workspace) (interface{}, error) {
				return w.service.Summary(ctx, w.id, w.filters)
			})
		},
	}
}

func newValuesCmd(src *sourceFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "values <column>",
		Short: "List the filter choices for a column",
		Long: `List "All" followed by every distinct value of a column of the whole table.
Ordered columns such as Grade list their values in level order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return src.query(cmd, func(ctx context.Context, w *workspace) (interface{}, error) {
				return w.service.Values(ctx, w.id, args[0])
			})
		},
	}
}

func newAggregateCmd(src *sourceFlags) *cobra.Command {
	var (
		groupBy string
		metrics []string
		fn      string
	)
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Group the selection by a column and reduce metric columns",
		Long: `Group the selection by a column and reduce metric columns.

Example:
  gradelens aggregate --file students.csv --group-by Department --metric Total_Score --metric "Attendance (%)" --func mean`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return src.query(cmd, func(ctx context.Context, w *workspace) (interface{}, error) {
				return w.service.Aggregate(ctx, w.id, w.filters, query.AggregationSpec{
					GroupBy: groupBy,
					Metrics: metrics,
					Func:    query.AggFunc(fn),
				})
			})
		},
	}
	cmd.Flags().StringVar(&groupBy, "group-by", "", "grouping column")
	cmd.Flags().StringSliceVar(&metrics, "metric", nil, "metric column (repeatable)")
	cmd.Flags().StringVar(&fn, "func", string(query.AggMean), "mean, count, sum, median, min, max or std")
	_ = cmd.MarkFlagRequired("group-by")
	_ = cmd.MarkFlagRequired("metric")
	return cmd
}

func newCrosstabCmd(src *sourceFlags) *cobra.Command {
	var spec query.CrosstabSpec
	cmd := &cobra.Command{
		Use:   "crosstab",
		Short: "Count the selection by two categorical columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return src.query(cmd, func(ctx context.Context, w *workspace) (interface{}, error) {
				return w.service.Crosstab(ctx, w.id, w.filters, spec)
			})
		},
	}
	cmd.Flags().StringVar(&spec.Row, "row", "", "row column")
	cmd.Flags().StringVar(&spec.Column, "column", "", "column column")
	cmd.Flags().BoolVar(&spec.Normalize, "normalize", false, "report each row as percentages")
	cmd.Flags().StringSliceVar(&spec.RowOrder, "row-order", nil, "explicit row labels, in order")
	cmd.Flags().StringSliceVar(&spec.ColumnOrder, "column-order", nil, "explicit column labels, in order")
	_ = cmd.MarkFlagRequired("row")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

func newCorrelateCmd(src *sourceFlags) *cobra.Command {
	var columns []string
	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Print the Pearson correlation matrix of numeric columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return src.query(cmd, func(ctx context.Context, w *workspace) (interface{}, error) {
				return w.service.Correlate(ctx, w.id, w.filters, columns)
			})
		},
	}
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "numeric columns (default: the standard score and lifestyle set)")
	return cmd
}

// cohortFlags are shared by cohort and compare
type cohortFlags struct {
	n       int
	rank    string
	metrics []string
	label   string
}

func (c *cohortFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&c.n, "n", analysis.DefaultCohortSize, "cohort size")
	cmd.Flags().StringVar(&c.rank, "rank", "Total_Score", "column to rank students by")
	cmd.Flags().StringSliceVar(&c.metrics, "metric", nil, "metric column to average (repeatable)")
	cmd.Flags().StringVar(&c.label, "label", "", "categorical column to break the cohort down by")
}

func (c *cohortFlags) spec(dir query.Direction) query.CohortSpec {
	return query.CohortSpec{N: c.n, RankColumn: c.rank, Direction: dir, Metrics: c.metrics, LabelColumn: c.label}
}

func newCohortCmd(src *sourceFlags) *cobra.Command {
	var (
		flags     cohortFlags
		direction string
	)
	cmd := &cobra.Command{
		Use:   "cohort",
		Short: "Profile the top or bottom N students by a ranking column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return src.query(cmd, func(ctx context.Context, w *workspace) (interface{}, error) {
				return w.service.Cohort(ctx, w.id, w.filters, flags.spec(query.Direction(direction)))
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&direction, "direction", string(query.Top), "top or bottom")
	return cmd
}

func newCompareCmd(src *sourceFlags) *cobra.Command {
	var flags cohortFlags
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the top and bottom N students on the same metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return src.query(cmd, func(ctx context.Context, w *workspace) (interface{}, error) {
				return w.service.CompareCohorts(ctx, w.id, w.filters, flags.spec(query.Top), flags.spec(query.Bottom))
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newHistogramCmd(src *sourceFlags) *cobra.Command {
	var (
		column string
		bins   int
		counts bool
	)
	cmd := &cobra.Command{
		Use:   "histogram",
		Short: "Bucket a numeric column, or count a categorical one with --counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return src.query(cmd, func(ctx context.Context, w *workspace) (interface{}, error) {
				if counts {
					return w.service.Distribution(ctx, w.id, w.filters, column)
				}
				return w.service.Histogram(ctx, w.id, w.filters, column, bins)
			})
		},
	}
	cmd.Flags().StringVar(&column, "column", "Total_Score", "column to describe")
	cmd.Flags().IntVar(&bins, "bins", 0, "bucket count (default 30)")
	cmd.Flags().BoolVar(&counts, "counts", false, "count each value of a categorical column")
	return cmd
}

func newDashboardCmd(src *sourceFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Compute every dashboard panel for the selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return src.query(cmd, func(ctx context.Context, w *workspace) (interface{}, error) {
				return w.service.Dashboard(ctx, w.id, w.filters)
			})
		},
	}
}

func newExportCmd(src *sourceFlags) *cobra.Command {
	var (
		out    string
		format string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the selected rows as CSV or Excel",
		Long: `Write the selected rows with their source columns only. Without --out the
CSV is written to stdout; --format defaults to the extension of --out.

Example:
  gradelens export --file students.csv --filter Grade=F --out failing.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := excel.Format(format)
			if f == "" {
				f = excel.FormatCSV
				if out != "" {
					var err error
					if f, err = excel.FormatFromName(out); err != nil {
						return err
					}
				}
			}

			w, cleanup, err := src.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			dst := cmd.OutOrStdout()
			if out != "" {
				file, err := os.Create(out)
				if err != nil {
					return err
				}
				defer file.Close()
				dst = file
			}
			if err := w.service.Export(cmd.Context(), w.id, w.filters, f, dst); err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default stdout)")
	cmd.Flags().StringVar(&format, "format", "", "csv or xlsx")
	return cmd
}
