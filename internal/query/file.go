package query

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type fieldEntry struct {
	Name string `yaml:"name" toml:"name"`
	Type string `yaml:"type" toml:"type"`
}

type filterEntry struct {
	Field     string `yaml:"field" toml:"field"`
	Value     string `yaml:"value" toml:"value"`
	MatchType string `yaml:"match_type" toml:"match_type"`
}

type queryEntry struct {
	Dimensions  []fieldEntry `yaml:"dimensions" toml:"dimensions"`
	Metrics     []fieldEntry `yaml:"metrics" toml:"metrics"`
	StartDate   string       `yaml:"start_date" toml:"start_date"`
	EndDate     string       `yaml:"end_date" toml:"end_date"`
	ColumnNames []string     `yaml:"column_names" toml:"column_names"`
	Append      bool         `yaml:"append" toml:"append"`
	Filter      *filterEntry `yaml:"filter" toml:"filter"`
	Dataset     string       `yaml:"dataset" toml:"dataset"`
	Table       string       `yaml:"table" toml:"table"`
}

type queryFile struct {
	Queries map[string]queryEntry `yaml:"queries" toml:"queries"`
}

// LoadFile reads query definitions from a YAML file, or a TOML file if the
// name ends in .toml.
func LoadFile(path string) ([]*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query file %s: %w", path, err)
	}
	parse := Parse
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		parse = ParseTOML
	}
	descriptors, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse query file %s: %w", path, err)
	}
	return descriptors, nil
}

// Parse decodes YAML query definitions, filling in defaults. The result is
// sorted by query name.
func Parse(data []byte) ([]*Descriptor, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f queryFile
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	return f.descriptors()
}

// ParseTOML decodes TOML query definitions, with the same keys and defaults
// as Parse.
func ParseTOML(data []byte) ([]*Descriptor, error) {
	var f queryFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f.descriptors()
}

func (f queryFile) descriptors() ([]*Descriptor, error) {
	names := make([]string, 0, len(f.Queries))
	for name := range f.Queries {
		names = append(names, name)
	}
	sort.Strings(names)

	descriptors := make([]*Descriptor, 0, len(names))
	for _, name := range names {
		d, err := f.Queries[name].descriptor(name)
		if err != nil {
			return nil, err
		}
		if err := d.Validate(); err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

func (e queryEntry) descriptor(name string) (*Descriptor, error) {
	d := &Descriptor{
		Name:        name,
		StartDate:   e.StartDate,
		EndDate:     e.EndDate,
		ColumnNames: e.ColumnNames,
		Append:      e.Append,
		Dataset:     e.Dataset,
		Table:       e.Table,
	}
	if d.StartDate == "" {
		d.StartDate = DefaultStartDate
	}
	if d.EndDate == "" {
		d.EndDate = DefaultEndDate
	}
	if d.Table == "" {
		d.Table = name
	}

	for _, fe := range e.Dimensions {
		t := String
		if fe.Name == "date" {
			t = Date
		}
		f, err := fe.field(t)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", name, err)
		}
		d.Dimensions = append(d.Dimensions, f)
	}
	for _, fe := range e.Metrics {
		f, err := fe.field(Integer)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", name, err)
		}
		d.Metrics = append(d.Metrics, f)
	}

	if e.Filter != nil {
		d.Filter = &Filter{Field: e.Filter.Field, Value: e.Filter.Value, MatchType: e.Filter.MatchType}
		if d.Filter.MatchType == "" {
			d.Filter.MatchType = DefaultMatchType
		}
	}
	return d, nil
}

func (e fieldEntry) field(def FieldType) (Field, error) {
	if e.Type == "" {
		return Field{Name: e.Name, Type: def}, nil
	}
	t, err := ParseFieldType(e.Type)
	if err != nil {
		return Field{}, fmt.Errorf("field %s: %w", e.Name, err)
	}
	return Field{Name: e.Name, Type: t}, nil
}
