package entities

import (
	"slices"
	"time"
)

// EntityType is the schema of an entity type: which attributes it carries and
// which of them is the primary (display and identity) field.
type EntityType struct {
	Name         string    `json:"name" yaml:"name"`
	PrimaryField string    `json:"primary_field" yaml:"primary_field"`
	Fields       []string  `json:"fields,omitempty" yaml:"fields,omitempty"`
	Description  string    `json:"description,omitempty" yaml:"description,omitempty"`
	Builtin      bool      `json:"builtin,omitempty" yaml:"-"`
	CreatedAt    time.Time `json:"created_at" yaml:"-"`
}

// AllFields returns the primary field followed by the other schema fields.
func (t EntityType) AllFields() []string {
	fields := []string{t.PrimaryField}
	for _, f := range t.Fields {
		if f != t.PrimaryField && !slices.Contains(fields, f) {
			fields = append(fields, f)
		}
	}
	return fields
}
