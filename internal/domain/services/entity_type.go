package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/ports"
)

// validTypeNameRegex allows words separated by single spaces.
var validTypeNameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*( [A-Za-z0-9_-]+)*$`)

// EntityTypeService manages entity schemas. Schemas are persisted in the
// project database and mirrored into the factory, so a registered schema is
// immediately usable by the store.
type EntityTypeService struct {
	repo        ports.EntityTypeRepository
	factory     *Factory
	cache       map[string]*entities.EntityType
	sortedNames []string // cached sorted names, populated with cache
	cacheMu     sync.RWMutex
}

// NewEntityTypeService creates a new EntityTypeService.
func NewEntityTypeService(repo ports.EntityTypeRepository, factory *Factory) *EntityTypeService {
	return &EntityTypeService{
		repo:    repo,
		factory: factory,
		cache:   make(map[string]*entities.EntityType),
	}
}

// LoadDefaults seeds the built-in schemas into the database and registers
// every stored schema with the factory.
func (s *EntityTypeService) LoadDefaults(ctx context.Context) error {
	existing, err := s.repo.ListEntityTypes(ctx)
	if err != nil {
		return fmt.Errorf("listing entity types: %w", err)
	}

	existingSet := make(map[string]bool, len(existing))
	for _, et := range existing {
		existingSet[et.Name] = true
	}

	for _, et := range entities.DefaultEntityTypes {
		if existingSet[et.Name] {
			continue
		}
		etCopy := et
		etCopy.Builtin = true
		if err := s.repo.SaveEntityType(ctx, &etCopy); err != nil {
			return fmt.Errorf("seeding entity type %s: %w", et.Name, err)
		}
		existing = append(existing, etCopy)
	}

	s.factory.Register(existing...)
	s.invalidateCache()
	return nil
}

// List returns all entity types.
func (s *EntityTypeService) List(ctx context.Context) ([]entities.EntityType, error) {
	return s.repo.ListEntityTypes(ctx)
}

// Get returns a specific entity type by name, or nil if not found.
func (s *EntityTypeService) Get(ctx context.Context, name string) (*entities.EntityType, error) {
	return s.repo.FindEntityType(ctx, name)
}

// Add creates a custom entity type. The primary field is always part of the
// schema fields.
func (s *EntityTypeService) Add(ctx context.Context, name, primaryField string, fields []string, description string) error {
	name = strings.Join(strings.Fields(name), " ")
	primaryField = strings.TrimSpace(primaryField)

	if !validTypeNameRegex.MatchString(name) {
		return errors.New("invalid type name: must start with a letter and contain only letters, digits, '_', '-' and single spaces")
	}
	if primaryField == "" {
		return errors.New("a primary field is required")
	}
	if entities.IsReservedField(primaryField) {
		return fmt.Errorf("'%s' is a reserved field and cannot be primary", primaryField)
	}

	existing, err := s.repo.FindEntityType(ctx, name)
	if err != nil {
		return fmt.Errorf("checking entity type: %w", err)
	}
	if existing != nil || entities.IsDefaultType(name) {
		return fmt.Errorf("entity type '%s' already exists", name)
	}

	schemaFields := []string{primaryField}
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" || entities.IsReservedField(f) || slices.Contains(schemaFields, f) {
			continue
		}
		schemaFields = append(schemaFields, f)
	}

	et := &entities.EntityType{
		Name:         name,
		PrimaryField: primaryField,
		Fields:       schemaFields,
		Description:  description,
	}
	if err := s.repo.SaveEntityType(ctx, et); err != nil {
		return fmt.Errorf("saving entity type: %w", err)
	}

	s.factory.Register(*et)
	s.invalidateCache()
	return nil
}

// Remove deletes a custom entity type. Entities of the type stay in the
// graph; new ones are rejected.
func (s *EntityTypeService) Remove(ctx context.Context, name string) error {
	if entities.IsDefaultType(name) {
		return fmt.Errorf("cannot remove default entity type '%s'", name)
	}

	existing, err := s.repo.FindEntityType(ctx, name)
	if err != nil {
		return fmt.Errorf("checking entity type: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("entity type '%s': %w", name, entities.ErrUnknownEntityType)
	}

	if err := s.repo.DeleteEntityType(ctx, name); err != nil {
		return fmt.Errorf("deleting entity type: %w", err)
	}

	s.factory.Unregister(name)
	s.invalidateCache()
	return nil
}

// IsValid checks if a type name is valid (exists in database).
func (s *EntityTypeService) IsValid(ctx context.Context, name string) bool {
	// Fast path: check cache with read lock
	s.cacheMu.RLock()
	if len(s.cache) > 0 {
		_, ok := s.cache[name]
		s.cacheMu.RUnlock()
		return ok
	}
	s.cacheMu.RUnlock()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	// Another goroutine may have populated the cache
	if len(s.cache) > 0 {
		_, ok := s.cache[name]
		return ok
	}

	types, err := s.repo.ListEntityTypes(ctx)
	if err != nil {
		return false
	}

	s.populateCacheFromTypes(types)
	_, ok := s.cache[name]
	return ok
}

// GetValidTypes returns all valid type names, sorted.
// The returned slice is shared and must not be modified by callers.
func (s *EntityTypeService) GetValidTypes(ctx context.Context) ([]string, error) {
	s.cacheMu.RLock()
	if len(s.cache) > 0 {
		names := s.sortedNames
		s.cacheMu.RUnlock()
		return names, nil
	}
	s.cacheMu.RUnlock()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if len(s.cache) > 0 {
		return s.sortedNames, nil
	}

	types, err := s.repo.ListEntityTypes(ctx)
	if err != nil {
		return nil, err
	}

	s.populateCacheFromTypes(types)
	return s.sortedNames, nil
}

// populateCacheFromTypes fills the cache and sortedNames from a types slice.
// Caller must hold cacheMu write lock.
func (s *EntityTypeService) populateCacheFromTypes(types []entities.EntityType) {
	s.cache = make(map[string]*entities.EntityType, len(types))
	s.sortedNames = make([]string, len(types))
	for i := range types {
		s.cache[types[i].Name] = &types[i]
		s.sortedNames[i] = types[i].Name
	}
	sort.Strings(s.sortedNames)
}

func (s *EntityTypeService) invalidateCache() {
	s.cacheMu.Lock()
	s.cache = make(map[string]*entities.EntityType)
	s.sortedNames = nil
	s.cacheMu.Unlock()
}
