package report

import (
	"fmt"

	"ga4bq/internal/analytics"
	"ga4bq/internal/query"
)

// Table holds report values column by column, keyed by the declared
// dimension and metric names. Every column has the same length.
type Table struct {
	Columns []string
	Values  map[string][]string
}

// NewTable creates an empty table with one column per declared field.
func NewTable(d *query.Descriptor) *Table {
	fields := d.Fields()
	t := &Table{
		Columns: make([]string, len(fields)),
		Values:  make(map[string][]string, len(fields)),
	}
	for i, f := range fields {
		t.Columns[i] = f.Name
		t.Values[f.Name] = []string{}
	}
	return t
}

// Flatten converts a page into a table, preserving row order. Every row must
// carry one value per declared dimension and metric.
func Flatten(page *analytics.Page, d *query.Descriptor) (*Table, error) {
	t := NewTable(d)
	for r, row := range page.Rows {
		if len(row.Dimensions) != len(d.Dimensions) || len(row.Metrics) != len(d.Metrics) {
			return nil, fmt.Errorf("row %d has %d dimensions and %d metrics, expected %d and %d",
				r, len(row.Dimensions), len(row.Metrics), len(d.Dimensions), len(d.Metrics))
		}
		for i, dim := range d.Dimensions {
			t.Values[dim.Name] = append(t.Values[dim.Name], row.Dimensions[i])
		}
		for i, m := range d.Metrics {
			t.Values[m.Name] = append(t.Values[m.Name], row.Metrics[i])
		}
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Values[t.Columns[0]])
}

// Append adds the rows of other after the rows of t.
func (t *Table) Append(other *Table) error {
	if len(other.Columns) != len(t.Columns) {
		return fmt.Errorf("cannot append table with %d columns to table with %d columns", len(other.Columns), len(t.Columns))
	}
	for i, c := range t.Columns {
		if other.Columns[i] != c {
			return fmt.Errorf("column %d is %s, expected %s", i, other.Columns[i], c)
		}
	}
	for _, c := range t.Columns {
		t.Values[c] = append(t.Values[c], other.Values[c]...)
	}
	return nil
}

// Column returns the values of the named column.
func (t *Table) Column(name string) ([]string, bool) {
	v, ok := t.Values[name]
	return v, ok
}
