package report

import (
	"fmt"
	"testing"

	"ga4bq/internal/analytics"
	"ga4bq/internal/query"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cityViews() *query.Descriptor {
	return &query.Descriptor{
		Name:       "city_views",
		Dimensions: []query.Field{{Name: "date", Type: query.Date}, {Name: "city", Type: query.String}},
		Metrics:    []query.Field{{Name: "views", Type: query.Integer}},
		Table:      "city_views",
	}
}

func makePage(n int) *analytics.Page {
	page := &analytics.Page{Rows: make([]analytics.Row, n), TotalRows: int64(n)}
	for i := range page.Rows {
		page.Rows[i] = analytics.Row{
			Dimensions: []string{"20240101", fmt.Sprintf("city-%d", i)},
			Metrics:    []string{fmt.Sprint(i)},
		}
	}
	return page
}

func mustFlatten(t *testing.T, page *analytics.Page, d *query.Descriptor) *Table {
	t.Helper()
	table, err := Flatten(page, d)
	require.NoError(t, err)
	return table
}

func TestFlatten(t *testing.T) {
	table := mustFlatten(t, makePage(3), cityViews())

	assert.Equal(t, []string{"date", "city", "views"}, table.Columns)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []string{"city-0", "city-1", "city-2"}, table.Values["city"])
	assert.Equal(t, []string{"0", "1", "2"}, table.Values["views"])
}

func TestFlattenColumnLengths(t *testing.T) {
	for _, n := range []int{0, 1, 17, 1000} {
		table := mustFlatten(t, makePage(n), cityViews())
		for _, c := range table.Columns {
			assert.Len(t, table.Values[c], n, "column %s with %d rows", c, n)
		}
	}
}

func TestFlattenEmpty(t *testing.T) {
	table := mustFlatten(t, &analytics.Page{}, cityViews())
	assert.Equal(t, 0, table.Len())
	for _, c := range table.Columns {
		v, ok := table.Column(c)
		require.True(t, ok)
		assert.NotNil(t, v)
		assert.Empty(t, v)
	}
}

func TestFlattenRowShape(t *testing.T) {
	short := makePage(2)
	short.Rows[1].Dimensions = short.Rows[1].Dimensions[:1]
	_, err := Flatten(short, cityViews())
	assert.ErrorContains(t, err, "row 1 has 1 dimensions")

	long := makePage(1)
	long.Rows[0].Metrics = append(long.Rows[0].Metrics, "3")
	_, err = Flatten(long, cityViews())
	assert.Error(t, err)
}

func TestAppend(t *testing.T) {
	d := cityViews()
	table := NewTable(d)
	require.NoError(t, table.Append(mustFlatten(t, makePage(2), d)))
	require.NoError(t, table.Append(mustFlatten(t, makePage(3), d)))

	assert.Equal(t, 5, table.Len())
	assert.Equal(t, []string{"city-0", "city-1", "city-0", "city-1", "city-2"}, table.Values["city"])

	other := cityViews()
	other.Metrics = []query.Field{{Name: "sessions", Type: query.Integer}}
	assert.Error(t, table.Append(NewTable(other)))

	other.Metrics = nil
	assert.Error(t, table.Append(NewTable(other)))
}

func TestLenWithoutColumns(t *testing.T) {
	assert.Equal(t, 0, (&Table{}).Len())
}
