// Package ports defines interfaces for external service communication.
package ports

import "github.com/ersonp/casegraph/internal/domain/entities"

// EntityFactory validates and normalizes raw collaborator records. A non-nil
// error means the record is rejected and must not be stored.
type EntityFactory interface {
	// NormalizeEntity builds a canonical entity of entityType from raw,
	// assigning a UID when raw carries none.
	NormalizeEntity(entityType string, raw entities.RawFields) (*entities.Entity, error)

	// NormalizeLink builds a canonical link from raw.
	NormalizeLink(raw entities.RawFields) (*entities.Link, error)

	// PrimaryFieldFor returns the primary field name of entityType.
	PrimaryFieldFor(entityType string) (string, bool)
}
