package bigquery

import (
	"fmt"

	"ga4bq/internal/query"

	"cloud.google.com/go/bigquery"
)

// BuildSchema derives the warehouse schema of a descriptor, one field per
// dimension and metric in declared order, under the output column names.
func BuildSchema(d *query.Descriptor) (bigquery.Schema, error) {
	columns, err := d.Columns()
	if err != nil {
		return nil, err
	}
	schema := make(bigquery.Schema, len(columns))
	for i, c := range columns {
		t, err := fieldType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		schema[i] = &bigquery.FieldSchema{Name: c.Name, Type: t}
	}
	return schema, nil
}

func fieldType(t query.FieldType) (bigquery.FieldType, error) {
	switch t {
	case query.String:
		return bigquery.StringFieldType, nil
	case query.Integer:
		return bigquery.IntegerFieldType, nil
	case query.Float:
		return bigquery.FloatFieldType, nil
	case query.Date:
		return bigquery.DateFieldType, nil
	}
	return "", fmt.Errorf("unsupported field type %q", t)
}

func convertBigQuerySchema(schema bigquery.Schema) []*Column {
	var fields []*Column
	for _, field := range schema {
		fields = append(fields, convertBigQueryField(field))
	}
	return fields
}

func convertBigQueryField(field *bigquery.FieldSchema) *Column {
	column := &Column{
		Name:     field.Name,
		Type:     field.Type,
		Repeated: field.Repeated,
		Required: field.Required,
	}
	for _, subField := range field.Schema {
		column.Fields = append(column.Fields, convertBigQueryField(subField))
	}
	return column
}
