package bigquery

import (
	"fmt"
	"time"

	"ga4bq/internal/transform"

	"cloud.google.com/go/bigquery"
)

type Project struct {
	ID   string
	Name string
}

// TableRef identifies a table as project.dataset.table.
type TableRef struct {
	ProjectID string
	DatasetID string
	TableID   string
}

func (r TableRef) String() string {
	return fmt.Sprintf("%s.%s.%s", r.ProjectID, r.DatasetID, r.TableID)
}

type Table struct {
	Ref         TableRef
	Description string
	CreatedAt   time.Time
	ModifiedAt  time.Time
	NumRows     uint64
	NumBytes    int64
	Type        string
	Partition   string
	Columns     []*Column
}

type Column struct {
	Name     string
	Type     bigquery.FieldType
	Repeated bool
	Required bool
	Fields   []*Column
}

type LoadRequest struct {
	Table  TableRef
	Schema bigquery.Schema
	Frame  *transform.Frame
	// Append adds rows to the table; otherwise the table contents are
	// replaced.
	Append bool
	// PartitionField is the DATE column to partition by day, if any.
	PartitionField string
}

type LoadResult struct {
	Table      TableRef
	JobID      string
	Rows       int
	Bytes      int64
	NumRows    uint64
	NumColumns int
	FinishedAt time.Time
}

type DatasetProvisionError struct {
	ProjectID string
	DatasetID string
	Err       error
}

func (e *DatasetProvisionError) Error() string {
	return fmt.Sprintf("failed to provision dataset %s.%s: %v", e.ProjectID, e.DatasetID, e.Err)
}

func (e *DatasetProvisionError) Unwrap() error {
	return e.Err
}

type LoadJobError struct {
	Table TableRef
	JobID string
	Err   error
}

func (e *LoadJobError) Error() string {
	if e.JobID == "" {
		return fmt.Sprintf("failed to load %s: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("load job %s into %s failed: %v", e.JobID, e.Table, e.Err)
}

func (e *LoadJobError) Unwrap() error {
	return e.Err
}
