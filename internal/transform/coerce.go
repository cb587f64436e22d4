package transform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ga4bq/internal/query"
	"ga4bq/internal/report"

	"cloud.google.com/go/civil"
)

// Date layouts accepted for DATE columns. The analytics API reports dates as
// YYYYMMDD.
var dateLayouts = []string{"20060102", "2006-01-02"}

// Frame is a typed, row-major table ready to be loaded. Values are string,
// int64, float64 or civil.Date according to the column type.
type Frame struct {
	Columns []query.Column
	Rows    [][]any
}

func (f *Frame) Len() int {
	return len(f.Rows)
}

type TypeCoercionError struct {
	Column string
	Row    int
	Value  string
	Type   query.FieldType
	Err    error
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("column %s row %d: cannot convert %q to %s: %v", e.Column, e.Row, e.Value, e.Type, e.Err)
}

func (e *TypeCoercionError) Unwrap() error {
	return e.Err
}

// Coerce converts every value of t to its declared type and renames columns
// as the descriptor specifies. The first value that does not parse aborts the
// conversion.
func Coerce(t *report.Table, d *query.Descriptor) (*Frame, error) {
	columns, err := d.Columns()
	if err != nil {
		return nil, err
	}
	fields := d.Fields()

	n := t.Len()
	frame := &Frame{Columns: columns, Rows: make([][]any, n)}
	for i := range frame.Rows {
		frame.Rows[i] = make([]any, len(fields))
	}

	for j, f := range fields {
		values, ok := t.Column(f.Name)
		if !ok {
			return nil, fmt.Errorf("report has no column %s", f.Name)
		}
		if len(values) != n {
			return nil, fmt.Errorf("column %s has %d values, expected %d", f.Name, len(values), n)
		}
		for i, raw := range values {
			v, err := Convert(raw, f.Type)
			if err != nil {
				return nil, &TypeCoercionError{Column: f.Name, Row: i, Value: raw, Type: f.Type, Err: err}
			}
			frame.Rows[i][j] = v
		}
	}
	return frame, nil
}

// Convert parses a single raw report value as typ.
func Convert(raw string, typ query.FieldType) (any, error) {
	switch typ {
	case query.String:
		return raw, nil
	case query.Integer:
		return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	case query.Float:
		return strconv.ParseFloat(strings.TrimSpace(raw), 64)
	case query.Date:
		return ParseDate(raw)
	}
	return nil, fmt.Errorf("unsupported type %s", typ)
}

func ParseDate(raw string) (civil.Date, error) {
	raw = strings.TrimSpace(raw)
	var firstErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return civil.DateOf(t), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return civil.Date{}, firstErr
}
