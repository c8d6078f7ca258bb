package services

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ersonp/casegraph/internal/domain/entities"
)

// Factory is the default ports.EntityFactory. It validates raw records against
// the registered schemas and assigns UIDs to new entities.
type Factory struct {
	mu      sync.RWMutex
	schemas map[string]entities.EntityType
	newUID  func() string
}

// NewFactory creates a factory knowing the given schemas.
func NewFactory(types ...entities.EntityType) *Factory {
	f := &Factory{
		schemas: make(map[string]entities.EntityType, len(types)),
		newUID:  uuid.NewString,
	}
	f.Register(types...)
	return f
}

// Register adds or replaces schemas.
func (f *Factory) Register(types ...entities.EntityType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range types {
		f.schemas[t.Name] = t
	}
}

// Unregister removes a schema.
func (f *Factory) Unregister(name string) {
	f.mu.Lock()
	delete(f.schemas, name)
	f.mu.Unlock()
}

// Schema returns the schema registered under name.
func (f *Factory) Schema(name string) (entities.EntityType, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	t, ok := f.schemas[name]
	return t, ok
}

// PrimaryFieldFor returns the primary field name of entityType.
func (f *Factory) PrimaryFieldFor(entityType string) (string, bool) {
	t, ok := f.Schema(entityType)
	if !ok {
		return "", false
	}
	return t.PrimaryField, true
}

// SchemaFields returns every field name declared by any schema, sorted.
func (f *Factory) SchemaFields() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, t := range f.schemas {
		for _, field := range t.AllFields() {
			seen[field] = struct{}{}
		}
	}
	fields := make([]string, 0, len(seen))
	for field := range seen {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// NormalizeEntity builds a canonical entity. Schema fields come first in
// schema order (primary field leading), followed by any extra keys sorted by
// name. A record without a uid must carry a primary value.
func (f *Factory) NormalizeEntity(entityType string, raw entities.RawFields) (*entities.Entity, error) {
	if entityType == "" {
		entityType, _ = raw.String(entities.FieldEntityType)
	}
	schema, ok := f.Schema(entityType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", entities.ErrUnknownEntityType, entityType)
	}

	uid, hasUID := raw.String(entities.FieldUID)
	uid = strings.TrimSpace(uid)
	if uid == "" {
		hasUID = false
		uid = f.newUID()
		if schema.Name == entities.GroupEntityType {
			uid += entities.GroupUIDSuffix
		}
	}

	e := &entities.Entity{
		UID:            uid,
		Type:           schema.Name,
		DateCreated:    entities.TimeField(raw[entities.FieldDateCreated]),
		DateLastEdited: entities.TimeField(raw[entities.FieldDateLastEdited]),
	}
	if notes, ok := raw.String(entities.FieldNotes); ok {
		e.Notes = notes
	}
	e.Icon = iconField(raw[entities.FieldIcon])
	if e.IsGroup() {
		e.ChildUIDs = entities.StringList(raw[entities.FieldChildUIDs])
	}

	for _, field := range schema.AllFields() {
		if v, ok := raw.String(field); ok {
			e.Attributes.Set(field, v)
		}
	}
	extras := make([]string, 0, len(raw))
	for key := range raw {
		if entities.IsReservedField(key) {
			continue
		}
		if _, ok := e.Attributes.Get(key); ok {
			continue
		}
		extras = append(extras, key)
	}
	sort.Strings(extras)
	for _, key := range extras {
		if v, ok := raw.String(key); ok {
			e.Attributes.Set(key, v)
		}
	}

	if !hasUID && strings.TrimSpace(e.Primary(schema.PrimaryField)) == "" {
		return nil, fmt.Errorf("%w: %s entity missing %q", entities.ErrRejected, schema.Name, schema.PrimaryField)
	}
	return e, nil
}

// NormalizeLink builds a canonical link from raw.
func (f *Factory) NormalizeLink(raw entities.RawFields) (*entities.Link, error) {
	key, err := entities.LinkKeyField(raw[entities.FieldUID])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrRejected, err)
	}
	if key.Source == "" || key.Target == "" {
		return nil, fmt.Errorf("%w: link uid has an empty endpoint", entities.ErrRejected)
	}

	l := &entities.Link{
		Key:            key,
		DateCreated:    entities.TimeField(raw[entities.FieldDateCreated]),
		DateLastEdited: entities.TimeField(raw[entities.FieldDateLastEdited]),
	}
	l.Resolution, _ = raw.String(entities.FieldResolution)
	l.Notes, _ = raw.String(entities.FieldNotes)
	return l, nil
}

func iconField(v any) []byte {
	switch val := v.(type) {
	case []byte:
		return val
	case string:
		if val == "" {
			return nil
		}
		icon, err := base64.StdEncoding.DecodeString(val)
		if err != nil {
			return nil
		}
		return icon
	}
	return nil
}
