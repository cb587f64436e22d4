package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"ga4bq/internal/bigquery"
	"ga4bq/internal/cache"
	"ga4bq/internal/config"
	"ga4bq/internal/pipeline"
	"ga4bq/internal/query"

	"github.com/stretchr/testify/assert"
)

func testJob(property string) pipeline.Job {
	return pipeline.Job{
		Query:    query.Views.Clone(),
		Property: &config.Property{Name: property, PropertyID: "1", Dataset: "analytics_" + property},
	}
}

func TestRenderSummary(t *testing.T) {
	table := bigquery.TableRef{ProjectID: "wh", DatasetID: "analytics_shop", TableID: "views"}
	results := []*pipeline.Result{
		{
			Job:   testJob("shop"),
			Table: table,
			Pages: 2,
			Rows:  123456,
			Load:  &bigquery.LoadResult{Table: table, JobID: "ga4bq_views_x", NumColumns: 7, Bytes: 2048},
		},
		{
			Job:     testJob("blog"),
			Table:   bigquery.TableRef{ProjectID: "wh", DatasetID: "analytics_blog", TableID: "views"},
			Skipped: true,
		},
	}
	err := errors.Join(
		&pipeline.JobError{Job: testJob("docs"), Err: errors.New("quota exhausted")},
		errors.New("context canceled"),
	)

	out := RenderSummary(results, err)

	assert.Contains(t, out, "shop/views: 123,456 rows in 2 pages to wh.analytics_shop.views")
	assert.Contains(t, out, "7 columns")
	assert.Contains(t, out, "2.0 kB")
	assert.Contains(t, out, "blog/views: no rows for wh.analytics_blog.views")
	assert.Contains(t, out, "docs/views: quota exhausted")
	assert.Contains(t, out, "context canceled")
}

func TestRenderSummaryEmpty(t *testing.T) {
	assert.Contains(t, RenderSummary(nil, nil), "nothing to do")

	out := RenderSummary(nil, errors.New("boom"))
	assert.Contains(t, out, "boom")
	assert.NotContains(t, out, "nothing to do")
}

func TestRenderHistory(t *testing.T) {
	now := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)
	records := []*cache.LoadRecord{
		{Table: "wh.analytics_shop.views", JobID: "ga4bq_views_1", Rows: 1500, Columns: 7, Bytes: 1 << 20, FinishedAt: now.Add(-2 * time.Hour)},
		{Table: "wh.analytics_blog.views", JobID: "ga4bq_views_2", Rows: 3, Columns: 7, FinishedAt: now.Add(-48 * time.Hour)},
	}

	out := RenderHistory(records, now)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], "TABLE")
	assert.Contains(t, lines[1], "wh.analytics_shop.views")
	assert.Contains(t, lines[1], "1,500")
	assert.Contains(t, lines[1], "1.0 MB")
	assert.Contains(t, lines[1], "2 hours ago")
	assert.Contains(t, lines[2], "2 days ago")
}

func TestRenderHistoryEmpty(t *testing.T) {
	assert.Contains(t, RenderHistory(nil, time.Now()), "No loads recorded yet")
}

func TestRenderQueries(t *testing.T) {
	blog := &query.Descriptor{
		Name:        "blog",
		Dimensions:  []query.Field{{Name: "date", Type: query.Date}, {Name: "pagePath", Type: query.String}},
		Metrics:     []query.Field{{Name: "screenPageViews", Type: query.Integer}},
		ColumnNames: []string{"day", "page_path", "views"},
		StartDate:   "7daysAgo",
		EndDate:     "yesterday",
		Append:      true,
		Filter:      &query.Filter{Field: "pagePath", Value: "^/blog", MatchType: "PARTIAL_REGEXP"},
		Table:       "blog_views",
	}
	broken := blog.Clone()
	broken.Name = "broken"
	broken.ColumnNames = []string{"day"}

	out := RenderQueries([]*query.Descriptor{blog, broken})

	assert.Contains(t, out, "table blog_views, 7daysAgo..yesterday, append")
	assert.Contains(t, out, "day DATE partition")
	assert.Contains(t, out, "views INTEGER")
	assert.Contains(t, out, `filter pagePath PARTIAL_REGEXP "^/blog"`)
	assert.Contains(t, out, "broken")
}
