package main

import (
	"fmt"

	"ga4bq/internal/cache"
	"ga4bq/internal/pipeline"
	"ga4bq/internal/query"
	"ga4bq/internal/report"
	"ga4bq/internal/tui"
	"ga4bq/pkg/clipboard"

	"github.com/spf13/cobra"
	"github.com/stockparfait/logging"
)

func newRunCmd(opts *globalOptions) *cobra.Command {
	var (
		queryNames    []string
		allProperties bool
	)

	cmd := &cobra.Command{
		Use:   "run [QUERY|PROPERTY...]",
		Short: "Run queries for properties and load the results",
		Long: "Runs every requested query for every requested property, in the order of the properties document,\n" +
			"and loads each result into <project>.<dataset>.<table>.",
		Example: "  ga4bq run views shop blog\n  ga4bq run -q views,pages --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			props, err := loadProperties(opts)
			if err != nil {
				return err
			}
			reg, err := loadRegistry(opts)
			if err != nil {
				return err
			}
			positionalQueries, propertyNames := splitArgs(reg, args)
			if len(positionalQueries) > 0 {
				if cmd.Flags().Changed("query") {
					queryNames = append(queryNames, positionalQueries...)
				} else {
					queryNames = positionalQueries
				}
			}
			if allProperties {
				propertyNames = props.Names()
			}
			jobs, err := pipeline.Plan(reg, props, queryNames, propertyNames)
			if err != nil {
				return err
			}
			policy, err := report.ParseEmptyPagePolicy(opts.emptyPage)
			if err != nil {
				return err
			}

			c, err := cache.New()
			if err != nil {
				logging.Warningf(ctx, "load history disabled: %s", err.Error())
				c = nil
			}
			projectID, err := newProjectResolver(opts, c).resolve(ctx)
			if err != nil {
				return err
			}
			if c != nil {
				if err := c.AddRecentProject(projectID); err != nil {
					logging.Warningf(ctx, "failed to remember project %s: %s", projectID, err.Error())
				}
			}

			bq, err := createBigQueryClient(ctx, opts, projectID)
			if err != nil {
				return err
			}
			defer func() {
				if err := bq.Close(); err != nil {
					logging.Warningf(ctx, "error closing BigQuery client: %s", err.Error())
				}
			}()
			ga, err := createAnalyticsClient(ctx, opts)
			if err != nil {
				return err
			}

			runner := &pipeline.Runner{
				Fetcher:         ga,
				Warehouse:       bq,
				ProjectID:       bq.GetProjectID(),
				Options:         report.Options{EmptyPage: policy},
				ContinueOnError: opts.continueOnError,
			}
			if c != nil {
				runner.History = c
			}

			logging.Infof(ctx, "running %d jobs into project %s", len(jobs), projectID)
			results, runErr := runner.RunBatch(ctx, jobs)
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderSummary(results, runErr))

			if opts.copy {
				copyLoaded(cmd, results)
			}
			return batchError(runErr, len(jobs), len(results))
		},
	}

	cmd.Flags().StringSliceVarP(&queryNames, "query", "q", []string{"views"}, "Queries to run")
	cmd.Flags().BoolVar(&allProperties, "all", false, "Run for every property in the properties document")
	return cmd
}

// splitArgs separates query names from property names.
func splitArgs(reg *query.Registry, args []string) (queries, properties []string) {
	for _, arg := range args {
		if reg.Has(arg) {
			queries = append(queries, arg)
		} else {
			properties = append(properties, arg)
		}
	}
	return queries, properties
}

// batchError reduces the failures of a batch, already listed in the summary,
// to a count for the exit status.
func batchError(err error, total, finished int) error {
	if err == nil {
		return nil
	}
	failed := 1
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		failed = len(joined.Unwrap())
	}
	if notRun := total - finished - failed; notRun > 0 {
		return fmt.Errorf("%d of %d jobs failed, %d not run", failed, total, notRun)
	}
	return fmt.Errorf("%d of %d jobs failed", failed, total)
}

func copyLoaded(cmd *cobra.Command, results []*pipeline.Result) {
	var refs []string
	for _, res := range results {
		if !res.Skipped {
			refs = append(refs, res.Table.String())
		}
	}
	if len(refs) == 0 {
		return
	}
	if err := clipboard.CopyTables(refs...); err != nil {
		logging.Warningf(cmd.Context(), "failed to copy to clipboard: %s", err.Error())
		return
	}
	logging.Infof(cmd.Context(), "copied %d table references to the clipboard", len(refs))
}
