package mocks

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/ersonp/casegraph/internal/domain/entities"
)

// RelationalDB is a mock implementation of ports.RelationalDB.
type RelationalDB struct {
	mu       sync.Mutex
	Types    map[string]*entities.EntityType
	Canvases map[string][]string
	Queries  []entities.QueryRecord
	Audit    []entities.AuditEntry
	Err      error
}

// NewRelationalDB creates a new mock RelationalDB.
func NewRelationalDB() *RelationalDB {
	return &RelationalDB{
		Types:    make(map[string]*entities.EntityType),
		Canvases: make(map[string][]string),
	}
}

// EnsureSchema creates the database schema if it doesn't exist.
func (m *RelationalDB) EnsureSchema(_ context.Context) error {
	return m.Err
}

// Close closes the database connection.
func (m *RelationalDB) Close() error {
	return nil
}

// Entity type methods.

// SaveEntityType saves or updates a custom entity type.
func (m *RelationalDB) SaveEntityType(_ context.Context, et *entities.EntityType) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Types[et.Name] = et
	return nil
}

// FindEntityType finds a custom entity type by name.
func (m *RelationalDB) FindEntityType(_ context.Context, name string) (*entities.EntityType, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Types[name], nil
}

// ListEntityTypes lists all custom entity types.
func (m *RelationalDB) ListEntityTypes(_ context.Context) ([]entities.EntityType, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]entities.EntityType, 0, len(m.Types))
	for _, t := range m.Types {
		result = append(result, *t)
	}
	// Sort by name for deterministic test results
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// DeleteEntityType deletes a custom entity type by name.
func (m *RelationalDB) DeleteEntityType(_ context.Context, name string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Types, name)
	return nil
}

// Canvas methods.

// AddCanvasMembers adds members to a canvas, creating it if needed.
func (m *RelationalDB) AddCanvasMembers(_ context.Context, canvas string, uids []string) error {
	if m.Err != nil {
		return m.Err
	}
	if len(uids) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	members := m.Canvases[canvas]
	if members == nil {
		members = []string{}
	}
	for _, uid := range uids {
		if !slices.Contains(members, uid) {
			members = append(members, uid)
		}
	}
	m.Canvases[canvas] = members
	return nil
}

// RemoveCanvasMembers removes members from a canvas. A canvas left empty is
// dropped.
func (m *RelationalDB) RemoveCanvasMembers(_ context.Context, canvas string, uids []string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	members := slices.DeleteFunc(m.Canvases[canvas], func(uid string) bool {
		return slices.Contains(uids, uid)
	})
	if len(members) == 0 {
		delete(m.Canvases, canvas)
		return nil
	}
	m.Canvases[canvas] = members
	return nil
}

// DeleteCanvas removes a canvas.
func (m *RelationalDB) DeleteCanvas(_ context.Context, canvas string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Canvases, canvas)
	return nil
}

// ListCanvases returns every canvas sorted by name.
func (m *RelationalDB) ListCanvases(_ context.Context) ([]entities.Canvas, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]entities.Canvas, 0, len(m.Canvases))
	for name, members := range m.Canvases {
		result = append(result, entities.Canvas{Name: name, Members: slices.Clone(members)})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// Query history methods.

// SaveQuery appends a query record.
func (m *RelationalDB) SaveQuery(_ context.Context, record *entities.QueryRecord) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries = append(m.Queries, *record)
	return nil
}

// FindQuery returns a query record by UID.
func (m *RelationalDB) FindQuery(_ context.Context, uid string) (*entities.QueryRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Queries {
		if m.Queries[i].UID == uid {
			rec := m.Queries[i]
			return &rec, nil
		}
	}
	return nil, nil
}

// ListQueries returns the newest records first.
func (m *RelationalDB) ListQueries(_ context.Context, limit int) ([]entities.QueryRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]entities.QueryRecord, 0, len(m.Queries))
	for i := len(m.Queries) - 1; i >= 0; i-- {
		if limit > 0 && len(result) >= limit {
			break
		}
		result = append(result, m.Queries[i])
	}
	return result, nil
}

// Audit log methods.

// LogAction records an audit entry.
func (m *RelationalDB) LogAction(_ context.Context, action string, subject string, details map[string]any) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Audit = append(m.Audit, entities.AuditEntry{
		ID:      int64(len(m.Audit) + 1),
		Action:  action,
		Subject: subject,
		Details: details,
	})
	return nil
}

// FindAuditLogByAction finds audit log entries by action type.
func (m *RelationalDB) FindAuditLogByAction(_ context.Context, action string, limit int) ([]entities.AuditEntry, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []entities.AuditEntry
	for i := len(m.Audit) - 1; i >= 0; i-- {
		if m.Audit[i].Action != action {
			continue
		}
		if limit > 0 && len(result) >= limit {
			break
		}
		result = append(result, m.Audit[i])
	}
	return result, nil
}

// FindAuditLog finds audit log entries for a subject, newest first.
func (m *RelationalDB) FindAuditLog(_ context.Context, subject string) ([]entities.AuditEntry, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []entities.AuditEntry
	for i := len(m.Audit) - 1; i >= 0; i-- {
		if m.Audit[i].Subject == subject {
			result = append(result, m.Audit[i])
		}
	}
	return result, nil
}
