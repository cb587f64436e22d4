package pipeline

import (
	"context"
	"errors"
	"fmt"

	"ga4bq/internal/analytics"
	"ga4bq/internal/bigquery"
	"ga4bq/internal/config"
	"ga4bq/internal/query"
	"ga4bq/internal/report"
	"ga4bq/internal/transform"

	"github.com/stockparfait/logging"
)

// Warehouse is the destination of a run.
type Warehouse interface {
	EnsureDataset(ctx context.Context, datasetID string) error
	Load(ctx context.Context, req *bigquery.LoadRequest) (*bigquery.LoadResult, error)
}

// Recorder keeps the outcome of successful loads.
type Recorder interface {
	RecordLoad(res *bigquery.LoadResult) error
}

// Job is one (query, property) pair of a batch.
type Job struct {
	Query    *query.Descriptor
	Property *config.Property
}

// Dataset is the dataset the job loads into.
func (j Job) Dataset() string {
	if j.Query.Dataset != "" {
		return j.Query.Dataset
	}
	return j.Property.Dataset
}

func (j Job) String() string {
	return fmt.Sprintf("%s/%s", j.Property.Name, j.Query.Name)
}

type Result struct {
	Job   Job
	Table bigquery.TableRef
	Pages int
	Rows  int
	// Skipped is set when the report had no rows and nothing was loaded.
	Skipped bool
	Load    *bigquery.LoadResult
	Quota   *analytics.Quota
}

// JobError is the failure of one job in a batch.
type JobError struct {
	Job Job
	Err error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("%s: %v", e.Job, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

type Runner struct {
	Fetcher   report.Fetcher
	Warehouse Warehouse
	ProjectID string
	Options   report.Options
	// ContinueOnError runs the remaining jobs after a failure and reports all
	// failures at the end.
	ContinueOnError bool
	History         Recorder
}

// Plan expands the requested names into jobs, properties in document order
// and queries in requested order for each.
func Plan(reg *query.Registry, props *config.Properties, queryNames, propertyNames []string) ([]Job, error) {
	if len(queryNames) == 0 {
		return nil, fmt.Errorf("no queries requested")
	}
	if len(propertyNames) == 0 {
		return nil, fmt.Errorf("no properties requested")
	}

	descriptors := make([]*query.Descriptor, len(queryNames))
	for i, name := range queryNames {
		d, err := reg.Lookup(name)
		if err != nil {
			return nil, err
		}
		descriptors[i] = d
	}
	for _, name := range propertyNames {
		if _, ok := props.Get(name); !ok {
			return nil, fmt.Errorf("unknown property %q%s", name, query.Suggest(name, props.Names()))
		}
	}

	var jobs []Job
	for _, p := range props.Select(propertyNames) {
		for _, d := range descriptors {
			jobs = append(jobs, Job{Query: d.Clone(), Property: p})
		}
	}
	return jobs, nil
}

// Run executes one job: fetch every page, coerce the rows and load them.
func (r *Runner) Run(ctx context.Context, job Job) (*Result, error) {
	d := job.Query
	res := &Result{
		Job:   job,
		Table: bigquery.TableRef{ProjectID: r.ProjectID, DatasetID: job.Dataset(), TableID: d.Table},
	}

	schema, err := bigquery.BuildSchema(d)
	if err != nil {
		return nil, err
	}

	logging.Infof(ctx, "running %s for property %s (%s) into %s", d.Name, job.Property.Name, job.Property.PropertyID, res.Table)
	acc, err := report.Accumulate(ctx, r.Fetcher, job.Property.ResourceName(), d, r.Options)
	if err != nil {
		return nil, err
	}
	res.Pages = acc.Pages
	res.Quota = acc.Quota
	res.Rows = acc.Table.Len()

	frame, err := transform.Coerce(acc.Table, d)
	if err != nil {
		return nil, err
	}
	logging.Debugf(ctx, "%s: coerced %d rows into %d columns", d.Name, frame.Len(), len(frame.Columns))

	if frame.Len() == 0 {
		logging.Warningf(ctx, "%s: report for property %s returned no rows, skipping load into %s", d.Name, job.Property.Name, res.Table)
		res.Skipped = true
		return res, nil
	}

	if err := r.Warehouse.EnsureDataset(ctx, res.Table.DatasetID); err != nil {
		return nil, err
	}

	partition, _ := d.PartitionColumn()
	load, err := r.Warehouse.Load(ctx, &bigquery.LoadRequest{
		Table:          res.Table,
		Schema:         schema,
		Frame:          frame,
		Append:         d.Append,
		PartitionField: partition,
	})
	if err != nil {
		return nil, err
	}
	res.Load = load

	if r.History != nil {
		if err := r.History.RecordLoad(load); err != nil {
			logging.Warningf(ctx, "failed to record load of %s: %s", res.Table, err.Error())
		}
	}
	return res, nil
}

// RunBatch runs the jobs in order. It stops at the first failure unless
// ContinueOnError is set, in which case all failures are joined.
func (r *Runner) RunBatch(ctx context.Context, jobs []Job) ([]*Result, error) {
	var results []*Result
	var errs []error
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := r.Run(ctx, job)
		if err != nil {
			jobErr := &JobError{Job: job, Err: err}
			if !r.ContinueOnError {
				return results, jobErr
			}
			logging.Errorf(ctx, "%s", jobErr.Error())
			errs = append(errs, jobErr)
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}
