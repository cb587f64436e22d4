package config

import (
	"fmt"
	"os"
	"sort"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Property is an analytics property and the dataset its reports land in.
type Property struct {
	Name       string `json:"-"`
	PropertyID string `json:"property_id"`
	Dataset    string `json:"dataset"`
}

// ResourceName is the property's resource name in the analytics API.
func (p *Property) ResourceName() string {
	return "properties/" + p.PropertyID
}

// Properties holds the named properties, sorted by name.
type Properties struct {
	list []*Property
}

func LoadProperties(path string) (*Properties, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read properties file %s: %w", path, err)
	}
	props, err := ParseProperties(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse properties file %s: %w", path, err)
	}
	return props, nil
}

func ParseProperties(data []byte) (*Properties, error) {
	var raw map[string]*Property
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no properties defined")
	}

	props := &Properties{}
	for name, p := range raw {
		if p == nil {
			return nil, fmt.Errorf("property %s: empty definition", name)
		}
		if p.PropertyID == "" {
			return nil, fmt.Errorf("property %s: missing property_id", name)
		}
		if p.Dataset == "" {
			return nil, fmt.Errorf("property %s: missing dataset", name)
		}
		p.Name = name
		props.list = append(props.list, p)
	}
	sort.Slice(props.list, func(i, j int) bool {
		return props.list[i].Name < props.list[j].Name
	})
	return props, nil
}

func (ps *Properties) Names() []string {
	names := make([]string, len(ps.list))
	for i, p := range ps.list {
		names[i] = p.Name
	}
	return names
}

// Get returns a copy of the named property.
func (ps *Properties) Get(name string) (*Property, bool) {
	for _, p := range ps.list {
		if p.Name == name {
			c := *p
			return &c, true
		}
	}
	return nil, false
}

// Select returns the properties whose names appear in names, in document
// order. Names that do not match a property are ignored.
func (ps *Properties) Select(names []string) []*Property {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var selected []*Property
	for _, p := range ps.list {
		if wanted[p.Name] {
			c := *p
			selected = append(selected, &c)
		}
	}
	return selected
}
