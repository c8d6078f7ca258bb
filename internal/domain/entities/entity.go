// Package entities holds the graph records (entities, links, schemas) and the
// small value types that travel between the store, the query engine and the
// infrastructure adapters.
package entities

import (
	"bytes"
	"slices"
	"strings"
	"time"
)

// Reserved field names. Every other key on an entity is an attribute.
const (
	FieldUID            = "uid"
	FieldEntityType     = "Entity Type"
	FieldDateCreated    = "Date Created"
	FieldDateLastEdited = "Date Last Edited"
	FieldNotes          = "Notes"
	FieldIcon           = "Icon"
	FieldChildUIDs      = "Child UIDs"
	FieldResolution     = "Resolution"
)

const (
	// GroupUIDSuffix marks the UID of a group entity.
	GroupUIDSuffix = "@"
	// GroupEntityType is the schema name of group entities.
	GroupEntityType = "EntityGroup"
	// AbsentValue is the placeholder written by collaborators for an empty field.
	AbsentValue = "None"
	// ResolutionSeparator joins concatenated link resolutions.
	ResolutionSeparator = " | "
	// NotesSeparator joins concatenated notes.
	NotesSeparator = "\n"
)

// IsReservedField reports whether key is one of the fixed record fields.
func IsReservedField(key string) bool {
	switch key {
	case FieldUID, FieldEntityType, FieldDateCreated, FieldDateLastEdited,
		FieldNotes, FieldIcon, FieldChildUIDs:
		return true
	}
	return false
}

// Attribute is a single named value on an entity.
type Attribute struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Attributes is an ordered, explicitly keyed attribute list.
type Attributes []Attribute

// Get returns the value stored under key.
func (a Attributes) Get(key string) (string, bool) {
	for _, attr := range a {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// Set replaces the value under key in place, or appends it.
func (a *Attributes) Set(key, value string) {
	for i := range *a {
		if (*a)[i].Key == key {
			(*a)[i].Value = value
			return
		}
	}
	*a = append(*a, Attribute{Key: key, Value: value})
}

// Delete removes key and reports whether it was present.
func (a *Attributes) Delete(key string) bool {
	for i := range *a {
		if (*a)[i].Key == key {
			*a = slices.Delete(*a, i, i+1)
			return true
		}
	}
	return false
}

// Keys returns the attribute names in order.
func (a Attributes) Keys() []string {
	keys := make([]string, len(a))
	for i, attr := range a {
		keys[i] = attr.Key
	}
	return keys
}

// Clone returns an independent copy.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	return slices.Clone(a)
}

// Entity is a node of the investigation graph.
type Entity struct {
	UID            string
	Type           string
	Attributes     Attributes
	DateCreated    time.Time
	DateLastEdited time.Time
	Notes          string
	Icon           []byte
	ChildUIDs      []string
}

// IsGroup reports whether the entity bundles other entities.
func (e *Entity) IsGroup() bool {
	return e.Type == GroupEntityType || strings.HasSuffix(e.UID, GroupUIDSuffix)
}

// Primary returns the value of the named primary field. When the schema is
// unknown (empty field name) the first attribute is used.
func (e *Entity) Primary(field string) string {
	if field == "" {
		if len(e.Attributes) == 0 {
			return ""
		}
		return e.Attributes[0].Value
	}
	v, _ := e.Attributes.Get(field)
	return v
}

// Value returns any field of the entity, reserved ones included, as text.
func (e *Entity) Value(field string) (string, bool) {
	switch field {
	case FieldUID:
		return e.UID, true
	case FieldEntityType:
		return e.Type, true
	case FieldDateCreated:
		return FormatTime(e.DateCreated), !e.DateCreated.IsZero()
	case FieldDateLastEdited:
		return FormatTime(e.DateLastEdited), !e.DateLastEdited.IsZero()
	case FieldNotes:
		return e.Notes, true
	case FieldIcon:
		return "", false
	case FieldChildUIDs:
		if !e.IsGroup() {
			return "", false
		}
		return strings.Join(e.ChildUIDs, ", "), true
	}
	return e.Attributes.Get(field)
}

// HasField reports whether the entity carries field.
func (e *Entity) HasField(field string) bool {
	_, ok := e.Value(field)
	return ok
}

// FieldNames lists the fields present on the entity: reserved ones first,
// then attributes in order.
func (e *Entity) FieldNames() []string {
	names := []string{FieldUID, FieldEntityType}
	for _, attr := range e.Attributes {
		names = append(names, attr.Key)
	}
	if !e.DateCreated.IsZero() {
		names = append(names, FieldDateCreated)
	}
	if !e.DateLastEdited.IsZero() {
		names = append(names, FieldDateLastEdited)
	}
	names = append(names, FieldNotes)
	if e.IsGroup() {
		names = append(names, FieldChildUIDs)
	}
	return names
}

// SetValue writes a text value onto an attribute or onto Notes. Other
// reserved fields are not writable this way and false is returned.
func (e *Entity) SetValue(field, value string) bool {
	if field == FieldNotes {
		e.Notes = value
		return true
	}
	if IsReservedField(field) {
		return false
	}
	e.Attributes.Set(field, value)
	return true
}

// Clone returns a deep copy.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	c := *e
	c.Attributes = e.Attributes.Clone()
	if e.Icon != nil {
		c.Icon = bytes.Clone(e.Icon)
	}
	if e.ChildUIDs != nil {
		c.ChildUIDs = slices.Clone(e.ChildUIDs)
	}
	return &c
}

// Raw converts the entity back to loose collaborator fields.
func (e *Entity) Raw() RawFields {
	raw := RawFields{
		FieldUID:        e.UID,
		FieldEntityType: e.Type,
		FieldNotes:      e.Notes,
	}
	for _, attr := range e.Attributes {
		raw[attr.Key] = attr.Value
	}
	if !e.DateCreated.IsZero() {
		raw[FieldDateCreated] = FormatTime(e.DateCreated)
	}
	if !e.DateLastEdited.IsZero() {
		raw[FieldDateLastEdited] = FormatTime(e.DateLastEdited)
	}
	if e.Icon != nil {
		raw[FieldIcon] = bytes.Clone(e.Icon)
	}
	if e.IsGroup() {
		raw[FieldChildUIDs] = slices.Clone(e.ChildUIDs)
	}
	return raw
}
