package ports

import (
	"context"

	"github.com/ersonp/casegraph/internal/domain/entities"
)

// RelationalDB holds the project's side tables: custom schemas, canvas
// membership, query history and the audit log. The graph itself lives in the
// project file.
type RelationalDB interface {
	// EnsureSchema creates the database schema if it doesn't exist.
	EnsureSchema(ctx context.Context) error

	// Close closes the database connection.
	Close() error

	EntityTypeRepository
	CanvasRepository
	QueryHistory
	AuditLog
}

// AuditLog records imports, merges and applied query modifications.
type AuditLog interface {
	// LogAction logs an action to the audit log.
	LogAction(ctx context.Context, action string, subject string, details map[string]any) error

	// FindAuditLogByAction finds audit log entries by action type.
	FindAuditLogByAction(ctx context.Context, action string, limit int) ([]entities.AuditEntry, error)

	// FindAuditLog finds audit log entries for a subject.
	FindAuditLog(ctx context.Context, subject string) ([]entities.AuditEntry, error)
}

// EntityTypeRepository persists custom entity schemas.
type EntityTypeRepository interface {
	// SaveEntityType saves or updates a custom entity type.
	SaveEntityType(ctx context.Context, entityType *entities.EntityType) error

	// FindEntityType finds a custom entity type by name.
	FindEntityType(ctx context.Context, name string) (*entities.EntityType, error)

	// ListEntityTypes lists all custom entity types.
	ListEntityTypes(ctx context.Context) ([]entities.EntityType, error)

	// DeleteEntityType deletes a custom entity type by name.
	DeleteEntityType(ctx context.Context, name string) error
}

// CanvasRepository persists canvas membership.
type CanvasRepository interface {
	// AddCanvasMembers creates the canvas if needed and adds members.
	AddCanvasMembers(ctx context.Context, canvas string, uids []string) error

	// RemoveCanvasMembers removes members from a canvas.
	RemoveCanvasMembers(ctx context.Context, canvas string, uids []string) error

	// DeleteCanvas removes a canvas and its membership.
	DeleteCanvas(ctx context.Context, canvas string) error

	// ListCanvases returns every canvas with its members.
	ListCanvases(ctx context.Context) ([]entities.Canvas, error)
}

// QueryHistory persists evaluated queries for replay.
type QueryHistory interface {
	// SaveQuery appends a record to the history.
	SaveQuery(ctx context.Context, record *entities.QueryRecord) error

	// FindQuery returns a record by UID, or nil if absent.
	FindQuery(ctx context.Context, uid string) (*entities.QueryRecord, error)

	// ListQueries returns the newest records first.
	ListQueries(ctx context.Context, limit int) ([]entities.QueryRecord, error)
}
