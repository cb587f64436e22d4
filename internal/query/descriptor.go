package query

import (
	"fmt"
	"regexp"
	"strings"
)

type FieldType string

const (
	String  FieldType = "STRING"
	Integer FieldType = "INTEGER"
	Float   FieldType = "FLOAT"
	Date    FieldType = "DATE"
)

// Request limits of the analytics Data API.
const (
	MaxDimensions = 9
	MaxMetrics    = 10
)

func (t FieldType) Valid() bool {
	switch t {
	case String, Integer, Float, Date:
		return true
	}
	return false
}

// ParseFieldType accepts a case-insensitive type name.
func ParseFieldType(s string) (FieldType, error) {
	t := FieldType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown field type %q", s)
	}
	return t, nil
}

type Field struct {
	Name string
	Type FieldType
}

// Filter restricts the report to rows whose dimension matches Value.
type Filter struct {
	Field     string
	Value     string
	MatchType string
}

// Descriptor declares what to fetch and where to load it. Descriptors are
// built once and not modified afterwards; use Clone to get a private copy.
type Descriptor struct {
	Name        string
	Dimensions  []Field
	Metrics     []Field
	StartDate   string
	EndDate     string
	ColumnNames []string
	Append      bool
	Filter      *Filter
	Dataset     string
	Table       string
}

// Column is a final warehouse column: the output name and the declared type.
type Column struct {
	Name string
	Type FieldType
}

type ColumnNameCountMismatchError struct {
	Names  int
	Fields int
}

func (e *ColumnNameCountMismatchError) Error() string {
	return fmt.Sprintf("got %d column names for %d dimensions and metrics", e.Names, e.Fields)
}

// columnNamePattern is the set of names accepted both as warehouse columns
// and as Avro field names.
var columnNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// InvalidColumnNameError reports an output column the warehouse would reject,
// typically a custom dimension such as customEvent:category loaded without
// column_names.
type InvalidColumnNameError struct {
	Name string
}

func (e *InvalidColumnNameError) Error() string {
	return fmt.Sprintf("invalid column name %q: use letters, digits and underscores, or rename it with column_names", e.Name)
}

// Fields returns the dimensions followed by the metrics.
func (d *Descriptor) Fields() []Field {
	fields := make([]Field, 0, len(d.Dimensions)+len(d.Metrics))
	fields = append(fields, d.Dimensions...)
	return append(fields, d.Metrics...)
}

// Columns maps every declared field, in order, to its output column. Explicit
// column names replace the declared names position by position.
func (d *Descriptor) Columns() ([]Column, error) {
	fields := d.Fields()
	if d.ColumnNames != nil && len(d.ColumnNames) != len(fields) {
		return nil, &ColumnNameCountMismatchError{Names: len(d.ColumnNames), Fields: len(fields)}
	}

	columns := make([]Column, len(fields))
	for i, f := range fields {
		name := f.Name
		if d.ColumnNames != nil {
			name = d.ColumnNames[i]
		}
		columns[i] = Column{Name: name, Type: f.Type}
	}
	return columns, nil
}

// PartitionColumn returns the output name of the first DATE dimension.
func (d *Descriptor) PartitionColumn() (string, bool) {
	columns, err := d.Columns()
	if err != nil {
		return "", false
	}
	for i := range d.Dimensions {
		if columns[i].Type == Date {
			return columns[i].Name, true
		}
	}
	return "", false
}

func (d *Descriptor) Validate() error {
	if len(d.Dimensions) == 0 {
		return fmt.Errorf("query %s: no dimensions", d.Name)
	}
	if len(d.Metrics) == 0 {
		return fmt.Errorf("query %s: no metrics", d.Name)
	}
	if len(d.Dimensions) > MaxDimensions {
		return fmt.Errorf("query %s: %d dimensions exceed the limit of %d", d.Name, len(d.Dimensions), MaxDimensions)
	}
	if len(d.Metrics) > MaxMetrics {
		return fmt.Errorf("query %s: %d metrics exceed the limit of %d", d.Name, len(d.Metrics), MaxMetrics)
	}
	if d.Table == "" {
		return fmt.Errorf("query %s: no table name", d.Name)
	}

	seen := make(map[string]bool)
	for _, f := range d.Fields() {
		if f.Name == "" {
			return fmt.Errorf("query %s: empty field name", d.Name)
		}
		if !f.Type.Valid() {
			return fmt.Errorf("query %s: field %s has unknown type %q", d.Name, f.Name, f.Type)
		}
		if seen[f.Name] {
			return fmt.Errorf("query %s: duplicate field %s", d.Name, f.Name)
		}
		seen[f.Name] = true
	}

	columns, err := d.Columns()
	if err != nil {
		return fmt.Errorf("query %s: %w", d.Name, err)
	}
	// Column names are case-insensitive in the warehouse.
	names := make(map[string]bool)
	for _, c := range columns {
		if c.Name == "" {
			return fmt.Errorf("query %s: empty column name", d.Name)
		}
		if !columnNamePattern.MatchString(c.Name) {
			return fmt.Errorf("query %s: %w", d.Name, &InvalidColumnNameError{Name: c.Name})
		}
		key := strings.ToLower(c.Name)
		if names[key] {
			return fmt.Errorf("query %s: duplicate column %s", d.Name, c.Name)
		}
		names[key] = true
	}

	if d.Filter != nil && (d.Filter.Field == "" || d.Filter.Value == "") {
		return fmt.Errorf("query %s: filter needs both a field and a value", d.Name)
	}
	return nil
}

func (d *Descriptor) Clone() *Descriptor {
	c := *d
	c.Dimensions = append([]Field(nil), d.Dimensions...)
	c.Metrics = append([]Field(nil), d.Metrics...)
	if d.ColumnNames != nil {
		c.ColumnNames = append([]string(nil), d.ColumnNames...)
	}
	if d.Filter != nil {
		f := *d.Filter
		c.Filter = &f
	}
	return &c
}
