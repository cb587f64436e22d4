package bigquery

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"ga4bq/internal/query"
	"ga4bq/internal/transform"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/hamba/avro/v2/ocf"
	"github.com/stockparfait/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func testContext() context.Context {
	return logging.Use(context.Background(), logging.DefaultGoLogger(logging.Error))
}

func offlineClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(context.Background(), "site-project",
		option.WithEndpoint("http://127.0.0.1:1"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func siteDescriptor() *query.Descriptor {
	return &query.Descriptor{
		Name:        "site",
		Dimensions:  []query.Field{{Name: "date", Type: query.Date}, {Name: "city", Type: query.String}},
		Metrics:     []query.Field{{Name: "views", Type: query.Integer}},
		ColumnNames: []string{"d", "c", "v"},
		Table:       "site",
	}
}

func TestBuildSchema(t *testing.T) {
	schema, err := BuildSchema(siteDescriptor())
	require.NoError(t, err)

	require.Len(t, schema, 3)
	assert.Equal(t, "d", schema[0].Name)
	assert.Equal(t, bigquery.DateFieldType, schema[0].Type)
	assert.Equal(t, "c", schema[1].Name)
	assert.Equal(t, bigquery.StringFieldType, schema[1].Type)
	assert.Equal(t, "v", schema[2].Name)
	assert.Equal(t, bigquery.IntegerFieldType, schema[2].Type)
}

func TestBuildSchemaNameMismatch(t *testing.T) {
	d := siteDescriptor()
	d.ColumnNames = []string{"d", "c"}

	_, err := BuildSchema(d)
	var mismatch *query.ColumnNameCountMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestNewLoader(t *testing.T) {
	client := offlineClient(t)
	ref := TableRef{ProjectID: "site-project", DatasetID: "analytics_site", TableID: "views"}

	t.Run("truncate partitioned", func(t *testing.T) {
		loader := client.newLoader(bigquery.NewReaderSource(strings.NewReader("")), &LoadRequest{
			Table:          ref,
			PartitionField: "date",
		})

		assert.Equal(t, "analytics_site", loader.Dst.DatasetID)
		assert.Equal(t, "views", loader.Dst.TableID)
		assert.Equal(t, bigquery.WriteTruncate, loader.WriteDisposition)
		assert.Equal(t, bigquery.CreateIfNeeded, loader.CreateDisposition)
		assert.True(t, loader.UseAvroLogicalTypes)
		assert.Equal(t, "ga4bq_views", loader.JobIDConfig.JobID)
		assert.True(t, loader.JobIDConfig.AddJobIDSuffix)
		require.NotNil(t, loader.TimePartitioning)
		assert.Equal(t, "date", loader.TimePartitioning.Field)
		assert.Equal(t, bigquery.DayPartitioningType, loader.TimePartitioning.Type)
	})

	t.Run("append unpartitioned", func(t *testing.T) {
		loader := client.newLoader(bigquery.NewReaderSource(strings.NewReader("")), &LoadRequest{
			Table:  ref,
			Append: true,
		})

		assert.Equal(t, bigquery.WriteAppend, loader.WriteDisposition)
		assert.Nil(t, loader.TimePartitioning)
	})
}

func TestWriteOCF(t *testing.T) {
	schema, err := BuildSchema(siteDescriptor())
	require.NoError(t, err)
	frame := &transform.Frame{
		Columns: []query.Column{{Name: "d", Type: query.Date}, {Name: "c", Type: query.String}, {Name: "v", Type: query.Integer}},
		Rows: [][]any{
			{civil.Date{Year: 2024, Month: time.March, Day: 1}, "Lisbon", int64(12)},
			{civil.Date{Year: 2024, Month: time.March, Day: 2}, "Porto", int64(7)},
		},
	}

	var buf bytes.Buffer
	n, err := writeOCF(&buf, schema, frame)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	dec, err := ocf.NewDecoder(&buf)
	require.NoError(t, err)
	var records []map[string]any
	for dec.HasNext() {
		var record map[string]any
		require.NoError(t, dec.Decode(&record))
		records = append(records, record)
	}
	require.NoError(t, dec.Error())

	require.Len(t, records, 2)
	assert.Equal(t, "Lisbon", records[0]["c"])
	assert.Equal(t, int64(12), records[0]["v"])
	day, ok := records[1]["d"].(time.Time)
	require.True(t, ok, "date decoded as %T", records[1]["d"])
	assert.Equal(t, "2024-03-02", day.UTC().Format("2006-01-02"))
}

func TestWriteOCFEmptyFrame(t *testing.T) {
	schema, err := BuildSchema(siteDescriptor())
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := writeOCF(&buf, schema, &transform.Frame{Columns: make([]query.Column, 3)})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NotZero(t, buf.Len())
}

func TestWriteOCFColumnMismatch(t *testing.T) {
	schema, err := BuildSchema(siteDescriptor())
	require.NoError(t, err)

	_, err = writeOCF(&bytes.Buffer{}, schema, &transform.Frame{Columns: make([]query.Column, 2)})
	assert.Error(t, err)
}

func TestStagingObject(t *testing.T) {
	ref := TableRef{ProjectID: "p", DatasetID: "analytics_site", TableID: "views"}

	a, b := stagingObject(ref), stagingObject(ref)

	assert.True(t, strings.HasPrefix(a, "ga4bq/analytics_site/views/"))
	assert.True(t, strings.HasSuffix(a, ".avro"))
	assert.NotEqual(t, a, b)
}
