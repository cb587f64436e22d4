package bigquery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/stockparfait/logging"
)

const jobIDPrefix = "ga4bq_"

// Load writes the frame into the destination table with a single load job
// and waits for it to finish.
func (c *Client) Load(ctx context.Context, req *LoadRequest) (*LoadResult, error) {
	var buf bytes.Buffer
	n, err := writeOCF(&buf, req.Schema, req.Frame)
	if err != nil {
		return nil, &LoadJobError{Table: req.Table, Err: err}
	}
	size := int64(buf.Len())
	logging.Infof(ctx, "encoded %d rows for %s (%s)", n, req.Table, humanize.Bytes(uint64(size)))

	var src bigquery.LoadSource
	if c.stagingBucket != "" {
		object := stagingObject(req.Table)
		if err := c.stage(ctx, object, &buf); err != nil {
			return nil, &LoadJobError{Table: req.Table, Err: err}
		}
		defer c.unstage(ctx, object)
		gcsRef := bigquery.NewGCSReference(fmt.Sprintf("gs://%s/%s", c.stagingBucket, object))
		gcsRef.SourceFormat = bigquery.Avro
		src = gcsRef
	} else {
		localRef := bigquery.NewReaderSource(&buf)
		localRef.SourceFormat = bigquery.Avro
		src = localRef
	}

	loader := c.newLoader(src, req)
	job, err := loader.Run(ctx)
	if err != nil {
		return nil, &LoadJobError{Table: req.Table, Err: fmt.Errorf("failed to run load job: %w", err)}
	}
	logging.Infof(ctx, "started load job %s into %s", job.ID(), req.Table)

	status, err := job.Wait(ctx)
	if err != nil {
		return nil, &LoadJobError{Table: req.Table, JobID: job.ID(), Err: fmt.Errorf("failed to wait for load job: %w", err)}
	}
	if err := status.Err(); err != nil {
		return nil, &LoadJobError{Table: req.Table, JobID: job.ID(), Err: err}
	}

	res := &LoadResult{
		Table:      req.Table,
		JobID:      job.ID(),
		Rows:       int(n),
		Bytes:      size,
		FinishedAt: time.Now(),
	}
	table, err := c.GetTable(ctx, req.Table.DatasetID, req.Table.TableID)
	if err != nil {
		logging.Warningf(ctx, "loaded %s but could not read it back: %s", req.Table, err.Error())
		return res, nil
	}
	res.NumRows = table.NumRows
	res.NumColumns = len(table.Columns)
	logging.Infof(ctx, "loaded %d rows and %d columns to %s", res.NumRows, res.NumColumns, req.Table)
	return res, nil
}

// newLoader configures the load job. The column names and types of
// req.Schema reach the warehouse through the Avro file header written by
// writeOCF, so the job itself does not repeat the schema.
func (c *Client) newLoader(src bigquery.LoadSource, req *LoadRequest) *bigquery.Loader {
	loader := c.bqClient.DatasetInProject(req.Table.ProjectID, req.Table.DatasetID).Table(req.Table.TableID).LoaderFrom(src)
	loader.JobIDConfig = bigquery.JobIDConfig{JobID: jobIDPrefix + req.Table.TableID, AddJobIDSuffix: true}
	loader.UseAvroLogicalTypes = true
	loader.CreateDisposition = bigquery.CreateIfNeeded
	if req.Append {
		loader.WriteDisposition = bigquery.WriteAppend
	} else {
		loader.WriteDisposition = bigquery.WriteTruncate
	}
	if req.PartitionField != "" {
		loader.TimePartitioning = &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: req.PartitionField,
		}
	}
	return loader
}

func stagingObject(ref TableRef) string {
	return fmt.Sprintf("ga4bq/%s/%s/%s.avro", ref.DatasetID, ref.TableID, uuid.NewString())
}

func (c *Client) stage(ctx context.Context, object string, r io.Reader) error {
	w := c.storageClient.Bucket(c.stagingBucket).Object(object).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write gs://%s/%s: %w", c.stagingBucket, object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to write gs://%s/%s: %w", c.stagingBucket, object, err)
	}
	logging.Debugf(ctx, "staged gs://%s/%s", c.stagingBucket, object)
	return nil
}

func (c *Client) unstage(ctx context.Context, object string) {
	if err := c.storageClient.Bucket(c.stagingBucket).Object(object).Delete(ctx); err != nil {
		logging.Warningf(ctx, "failed to delete staged file gs://%s/%s: %s", c.stagingBucket, object, err.Error())
	}
}
