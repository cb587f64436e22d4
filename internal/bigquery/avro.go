package bigquery

import (
	"fmt"
	"io"
	"time"

	"ga4bq/internal/transform"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/hamba/avro/v2"
	"github.com/hamba/avro/v2/ocf"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type avroField struct {
	Name string `json:"name"`
	Type any    `json:"type"`
}

type avroLogicalType struct {
	Type        string `json:"type"`
	LogicalType string `json:"logicalType"`
}

type avroRecord struct {
	Type   string      `json:"type"`
	Name   string      `json:"name"`
	Fields []avroField `json:"fields"`
}

// avroSchema maps a warehouse schema to the Avro record that loads into it
// when logical types are enabled.
func avroSchema(schema bigquery.Schema) (avro.Schema, error) {
	record := avroRecord{Type: "record", Name: "report_row", Fields: make([]avroField, len(schema))}
	for i, f := range schema {
		var t any
		switch f.Type {
		case bigquery.StringFieldType:
			t = "string"
		case bigquery.IntegerFieldType:
			t = "long"
		case bigquery.FloatFieldType:
			t = "double"
		case bigquery.DateFieldType:
			t = avroLogicalType{Type: "int", LogicalType: "date"}
		default:
			return nil, fmt.Errorf("column %s: no Avro mapping for %s", f.Name, f.Type)
		}
		record.Fields[i] = avroField{Name: f.Name, Type: t}
	}

	js, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Avro schema: %w", err)
	}
	s, err := avro.Parse(string(js))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Avro schema: %w", err)
	}
	return s, nil
}

// writeOCF encodes the frame as an Avro object container file and returns
// the number of records written.
func writeOCF(w io.Writer, schema bigquery.Schema, frame *transform.Frame) (int64, error) {
	if len(schema) != len(frame.Columns) {
		return 0, fmt.Errorf("schema has %d fields, frame has %d columns", len(schema), len(frame.Columns))
	}
	s, err := avroSchema(schema)
	if err != nil {
		return 0, err
	}

	enc, err := ocf.NewEncoderWithSchema(s, w, ocf.WithCodec(ocf.Deflate), ocf.WithBlockLength(8192))
	if err != nil {
		return 0, fmt.Errorf("failed to create OCF writer: %w", err)
	}

	var n int64
	for i, row := range frame.Rows {
		record := make(map[string]any, len(schema))
		for j, f := range schema {
			v := row[j]
			if d, ok := v.(civil.Date); ok {
				v = d.In(time.UTC)
			}
			record[f.Name] = v
		}
		if err := enc.Encode(record); err != nil {
			_ = enc.Close()
			return n, fmt.Errorf("failed to encode row %d: %w", i, err)
		}
		n++
	}
	if err := enc.Close(); err != nil {
		return n, fmt.Errorf("failed to flush OCF writer: %w", err)
	}
	return n, nil
}
