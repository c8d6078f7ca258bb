package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ersonp/casegraph/internal/domain/entities"
)

// SaveEntityType saves or updates a custom entity type.
func (r *Repository) SaveEntityType(ctx context.Context, entityType *entities.EntityType) error {
	fields, err := json.Marshal(entityType.Fields)
	if err != nil {
		return fmt.Errorf("marshaling fields: %w", err)
	}
	createdAt := entityType.CreatedAt
	if createdAt.IsZero() {
		createdAt = timeNow()
	}

	query := `
		INSERT INTO entity_types (name, primary_field, fields, description, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			primary_field = excluded.primary_field,
			fields = excluded.fields,
			description = excluded.description
	`
	_, err = r.db.ExecContext(ctx, query,
		entityType.Name,
		entityType.PrimaryField,
		string(fields),
		entityType.Description,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("saving entity type: %w", err)
	}
	return nil
}

// FindEntityType finds a custom entity type by name.
func (r *Repository) FindEntityType(ctx context.Context, name string) (*entities.EntityType, error) {
	query := `
		SELECT name, primary_field, fields, description, created_at
		FROM entity_types
		WHERE name = ?
	`
	et, err := scanEntityType(r.db.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return et, nil
}

// ListEntityTypes lists all custom entity types.
func (r *Repository) ListEntityTypes(ctx context.Context) ([]entities.EntityType, error) {
	query := `
		SELECT name, primary_field, fields, description, created_at
		FROM entity_types
		ORDER BY name ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying entity types: %w", err)
	}
	defer rows.Close()

	entityTypes := make([]entities.EntityType, 0, 16)
	for rows.Next() {
		et, err := scanEntityType(rows)
		if err != nil {
			return nil, err
		}
		entityTypes = append(entityTypes, *et)
	}
	return entityTypes, rows.Err()
}

// DeleteEntityType deletes a custom entity type by name.
func (r *Repository) DeleteEntityType(ctx context.Context, name string) error {
	query := `DELETE FROM entity_types WHERE name = ?`
	result, err := r.db.ExecContext(ctx, query, name)
	if err != nil {
		return fmt.Errorf("deleting entity type: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %s", entities.ErrUnknownEntityType, name)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntityType(row scanner) (*entities.EntityType, error) {
	var et entities.EntityType
	var fields string
	var description sql.NullString

	if err := row.Scan(&et.Name, &et.PrimaryField, &fields, &description, &et.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning entity type: %w", err)
	}
	if err := json.Unmarshal([]byte(fields), &et.Fields); err != nil {
		return nil, fmt.Errorf("unmarshaling fields of %s: %w", et.Name, err)
	}
	et.Description = description.String
	return &et, nil
}
