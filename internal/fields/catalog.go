// Package fields holds the passenger field catalog: the fixed set of
// data points collected per passenger slot, with ordering, type and
// fill ownership. The catalog is embedded so every binary ships the
// same definition.
package fields

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Fill ownership values.
const (
	FillableByClient = "CLIENT"
	FillableByAdmin  = "ADMIN"
	FillableByBoth   = "BOTH"
)

// Field describes a single catalog entry.
type Field struct {
	Key        string   `yaml:"key" json:"key"`
	Label      string   `yaml:"label" json:"label"`
	Type       string   `yaml:"type" json:"type"`
	Order      int      `yaml:"order" json:"order"`
	Required   bool     `yaml:"required" json:"required"`
	FillableBy string   `yaml:"fillableBy" json:"fillableBy"`
	Options    []string `yaml:"options,omitempty" json:"options,omitempty"`
}

type catalogFile struct {
	Fields []Field `yaml:"fields"`
}

// Catalog is the loaded, order-sorted field catalog.
type Catalog struct {
	fields []Field
	byKey  map[string]Field
}

// Load parses the embedded catalog. It fails on duplicate keys or a
// missing fillableBy value so a broken catalog is caught at startup.
func Load() (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(catalogYAML, &file); err != nil {
		return nil, fmt.Errorf("parse field catalog: %w", err)
	}
	if len(file.Fields) == 0 {
		return nil, fmt.Errorf("field catalog is empty")
	}

	byKey := make(map[string]Field, len(file.Fields))
	for _, f := range file.Fields {
		if f.Key == "" {
			return nil, fmt.Errorf("field catalog entry missing key")
		}
		if _, dup := byKey[f.Key]; dup {
			return nil, fmt.Errorf("duplicate field key %q", f.Key)
		}
		switch f.FillableBy {
		case FillableByClient, FillableByAdmin, FillableByBoth:
		default:
			return nil, fmt.Errorf("field %q has invalid fillableBy %q", f.Key, f.FillableBy)
		}
		byKey[f.Key] = f
	}

	sorted := append([]Field(nil), file.Fields...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	return &Catalog{fields: sorted, byKey: byKey}, nil
}

// All returns every field in display order.
func (c *Catalog) All() []Field {
	return append([]Field(nil), c.fields...)
}

// Get returns the field for the given key.
func (c *Catalog) Get(key string) (Field, bool) {
	f, ok := c.byKey[key]
	return f, ok
}

// ClientKeys returns keys a client may write, in display order.
func (c *Catalog) ClientKeys() []string {
	return c.keysFor(FillableByClient)
}

// AdminKeys returns keys only staff may write, in display order.
func (c *Catalog) AdminKeys() []string {
	return c.keysFor(FillableByAdmin)
}

func (c *Catalog) keysFor(owner string) []string {
	var keys []string
	for _, f := range c.fields {
		if f.FillableBy == owner || f.FillableBy == FillableByBoth {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// WritableBy reports whether the given role may write the field.
// Staff may write every field; clients only their own.
func (c *Catalog) WritableBy(key, role string) bool {
	f, ok := c.byKey[key]
	if !ok {
		return false
	}
	if role == "MASTER" || role == "ADMIN" {
		return true
	}
	return f.FillableBy == FillableByClient || f.FillableBy == FillableByBoth
}

// RequiredClientKeys returns the client-fillable keys marked required.
func (c *Catalog) RequiredClientKeys() []string {
	var keys []string
	for _, f := range c.fields {
		if f.Required && (f.FillableBy == FillableByClient || f.FillableBy == FillableByBoth) {
			keys = append(keys, f.Key)
		}
	}
	return keys
}
