package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

const (
	DefaultStartDate = "10daysAgo"
	DefaultEndDate   = "yesterday"
	DefaultMatchType = "PARTIAL_REGEXP"
)

// Views pulls page views per page and traffic source.
var Views = &Descriptor{
	Name: "views",
	Dimensions: []Field{
		{Name: "date", Type: Date},
		{Name: "pageTitle", Type: String},
		{Name: "city", Type: String},
		{Name: "region", Type: String},
		{Name: "sessionSourceMedium", Type: String},
		{Name: "pagePath", Type: String},
	},
	Metrics: []Field{
		{Name: "screenPageViews", Type: Integer},
	},
	StartDate: DefaultStartDate,
	EndDate:   DefaultEndDate,
	Table:     "views",
}

// Registry resolves query names to descriptors.
type Registry struct {
	queries map[string]*Descriptor
}

func NewRegistry(descriptors ...*Descriptor) (*Registry, error) {
	r := &Registry{queries: make(map[string]*Descriptor)}
	for _, d := range descriptors {
		if err := r.Add(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Builtin returns a registry holding the queries compiled into the binary.
func Builtin() *Registry {
	r, err := NewRegistry(Views)
	if err != nil {
		panic(err)
	}
	return r
}

// Add validates d and registers a copy of it, replacing any query with the
// same name.
func (r *Registry) Add(d *Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("query has no name")
	}
	if err := d.Validate(); err != nil {
		return err
	}
	r.queries[d.Name] = d.Clone()
	return nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.queries))
	for name := range r.queries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Has(name string) bool {
	_, ok := r.queries[name]
	return ok
}

// Lookup returns a copy of the named descriptor.
func (r *Registry) Lookup(name string) (*Descriptor, error) {
	d, ok := r.queries[name]
	if !ok {
		return nil, fmt.Errorf("unknown query %q%s", name, Suggest(name, r.Names()))
	}
	return d.Clone(), nil
}

// Suggest formats a "did you mean" hint for name among candidates, or returns
// an empty string if nothing is close.
func Suggest(name string, candidates []string) string {
	matches := fuzzy.Find(name, candidates)
	if len(matches) == 0 {
		return ""
	}
	var hints []string
	for i, m := range matches {
		if i == 3 {
			break
		}
		hints = append(hints, m.Str)
	}
	return fmt.Sprintf(" (did you mean %s?)", strings.Join(hints, ", "))
}
