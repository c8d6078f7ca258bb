package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ersonp/casegraph/internal/domain/entities"
)

// SaveQuery appends a query record to the history.
func (r *Repository) SaveQuery(ctx context.Context, record *entities.QueryRecord) error {
	uids, err := json.Marshal(nonNil(record.ResultUIDs))
	if err != nil {
		return fmt.Errorf("marshaling result uids: %w", err)
	}
	fields, err := json.Marshal(nonNil(record.ResultFields))
	if err != nil {
		return fmt.Errorf("marshaling result fields: %w", err)
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = timeNow()
	}

	query := `
		INSERT INTO query_history (uid, query, result_uids, result_fields, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query, record.UID, record.Query, string(uids), string(fields), createdAt.UTC())
	if err != nil {
		return fmt.Errorf("saving query: %w", err)
	}
	return nil
}

// FindQuery returns a record by UID, or nil if absent.
func (r *Repository) FindQuery(ctx context.Context, uid string) (*entities.QueryRecord, error) {
	query := `
		SELECT uid, query, result_uids, result_fields, created_at
		FROM query_history
		WHERE uid = ?
	`
	rec, err := scanQuery(r.db.QueryRowContext(ctx, query, uid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListQueries returns the newest records first. A limit of zero or less
// returns every record.
func (r *Repository) ListQueries(ctx context.Context, limit int) ([]entities.QueryRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT uid, query, result_uids, result_fields, created_at
		FROM query_history
		ORDER BY rowid DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var records []entities.QueryRecord
	for rows.Next() {
		rec, err := scanQuery(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func scanQuery(row scanner) (*entities.QueryRecord, error) {
	var rec entities.QueryRecord
	var uids, fields string

	if err := row.Scan(&rec.UID, &rec.Query, &uids, &fields, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning query: %w", err)
	}
	if err := json.Unmarshal([]byte(uids), &rec.ResultUIDs); err != nil {
		return nil, fmt.Errorf("unmarshaling result uids: %w", err)
	}
	if err := json.Unmarshal([]byte(fields), &rec.ResultFields); err != nil {
		return nil, fmt.Errorf("unmarshaling result fields: %w", err)
	}
	return &rec, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
