package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ersonp/casegraph/internal/domain/entities"
)

// EntityService manages entity operations.
type EntityService struct {
	store *GraphStore
}

// NewEntityService creates a new EntityService.
func NewEntityService(store *GraphStore) *EntityService {
	return &EntityService{store: store}
}

// Create adds an entity of entityType with the given attributes. A UID is
// generated when fields carries none.
func (s *EntityService) Create(entityType string, fields map[string]string, notes string) (*entities.Entity, error) {
	raw := entities.RawFields{entities.FieldEntityType: entityType}
	for k, v := range fields {
		raw[k] = v
	}
	if notes != "" {
		raw[entities.FieldNotes] = notes
	}
	if !raw.Has(entities.FieldUID) {
		raw[entities.FieldUID] = uuid.NewString()
	}

	e := s.store.AddEntity(raw, AddOptions{})
	if e == nil {
		return nil, fmt.Errorf("%w: %s entity", entities.ErrRejected, entityType)
	}
	return e, nil
}

// Update sets attributes on an existing entity.
func (s *EntityService) Update(uid string, fields map[string]string) (*entities.Entity, error) {
	if !s.store.IsNode(uid) {
		return nil, fmt.Errorf("%w: %s", entities.ErrEntityNotFound, uid)
	}
	raw := entities.RawFields{entities.FieldUID: uid}
	for k, v := range fields {
		raw[k] = v
	}
	e := s.store.AddEntity(raw, AddOptions{})
	if e == nil {
		return nil, fmt.Errorf("%w: %s", entities.ErrRejected, uid)
	}
	return e, nil
}

// FindByUID returns the entity or ErrEntityNotFound.
func (s *EntityService) FindByUID(uid string) (*entities.Entity, error) {
	if !s.store.IsNode(uid) {
		return nil, fmt.Errorf("%w: %s", entities.ErrEntityNotFound, uid)
	}
	return s.store.GetEntity(uid), nil
}

// FindByPrimary returns the entity of entityType whose primary value equals
// value, or nil. An empty entityType matches any type.
func (s *EntityService) FindByPrimary(value, entityType string) *entities.Entity {
	return s.store.GetEntityOfType(value, entityType)
}

// List returns entities ordered by UID, optionally of one type, with
// pagination. A limit of zero means no limit.
func (s *EntityService) List(entityType string, limit, offset int) []*entities.Entity {
	var out []*entities.Entity
	for _, e := range s.store.GetAllEntities() {
		if entityType != "" && e.Type != entityType {
			continue
		}
		out = append(out, e)
	}
	return page(out, limit, offset)
}

// Search returns entities whose primary value contains query, ignoring case.
func (s *EntityService) Search(query string, limit int) []*entities.Entity {
	query = strings.ToLower(query)
	var out []*entities.Entity
	for _, e := range s.store.GetAllEntities() {
		if strings.Contains(strings.ToLower(s.store.PrimaryValue(e)), query) {
			out = append(out, e)
		}
	}
	return page(out, limit, 0)
}

// Delete removes an entity and its links.
func (s *EntityService) Delete(uid string) error {
	if !s.store.IsNode(uid) {
		return fmt.Errorf("%w: %s", entities.ErrEntityNotFound, uid)
	}
	s.store.RemoveEntity(uid, RemoveOptions{})
	return nil
}

// Count returns the number of entities.
func (s *EntityService) Count() int {
	return len(s.store.GetAllEntities())
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
