package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ersonp/casegraph/internal/domain/entities"
)

// AddCanvasMembers appends members to a canvas, creating it if needed.
// Members already on the canvas keep their position.
func (r *Repository) AddCanvasMembers(ctx context.Context, canvas string, uids []string) error {
	if len(uids) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) FROM canvas_members WHERE canvas = ?`, canvas,
	).Scan(&next)
	if err != nil {
		return fmt.Errorf("reading canvas position: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO canvas_members (canvas, uid, position, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(canvas, uid) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("preparing canvas insert: %w", err)
	}
	defer stmt.Close()

	now := timeNow()
	for _, uid := range uids {
		next++
		if _, err := stmt.ExecContext(ctx, canvas, uid, next, now); err != nil {
			return fmt.Errorf("adding %s to canvas %s: %w", uid, canvas, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing canvas members: %w", err)
	}
	return nil
}

// RemoveCanvasMembers removes members from a canvas.
func (r *Repository) RemoveCanvasMembers(ctx context.Context, canvas string, uids []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, uid := range uids {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM canvas_members WHERE canvas = ? AND uid = ?`, canvas, uid,
		); err != nil {
			return fmt.Errorf("removing %s from canvas %s: %w", uid, canvas, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing canvas removal: %w", err)
	}
	return nil
}

// DeleteCanvas removes a canvas and its membership.
func (r *Repository) DeleteCanvas(ctx context.Context, canvas string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM canvas_members WHERE canvas = ?`, canvas)
	if err != nil {
		return fmt.Errorf("deleting canvas: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("canvas not found: %s", canvas)
	}
	return nil
}

// ListCanvases returns every canvas sorted by name, members in the order they
// were added.
func (r *Repository) ListCanvases(ctx context.Context) ([]entities.Canvas, error) {
	query := `
		SELECT canvas, uid, created_at
		FROM canvas_members
		ORDER BY canvas ASC, position ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying canvases: %w", err)
	}
	defer rows.Close()

	canvases := []entities.Canvas{}
	for rows.Next() {
		var name, uid string
		var createdAt sql.NullTime
		if err := rows.Scan(&name, &uid, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning canvas member: %w", err)
		}

		n := len(canvases)
		if n == 0 || canvases[n-1].Name != name {
			canvases = append(canvases, entities.Canvas{Name: name, CreatedAt: createdAt.Time})
			n++
		}
		c := &canvases[n-1]
		c.Members = append(c.Members, uid)
		if createdAt.Valid && earlier(createdAt.Time, c.CreatedAt) {
			c.CreatedAt = createdAt.Time
		}
	}
	return canvases, rows.Err()
}

func earlier(a, b time.Time) bool {
	return b.IsZero() || a.Before(b)
}
