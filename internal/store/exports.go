package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Export is one file produced by an export action.
type Export struct {
	ID          string    `json:"id"`
	Page        string    `json:"page"`
	Format      string    `json:"format"`
	Granularity string    `json:"granularity,omitempty"`
	Rows        int       `json:"rows"`
	SizeBytes   int64     `json:"sizeBytes"`
	Destination string    `json:"destination,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RecordExport stores e, assigning an ID and timestamp when unset.
func (s *Store) RecordExport(ctx context.Context, e *Export) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exports (id, page, format, granularity, rows, size_bytes, destination, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Page, e.Format, nullString(e.Granularity), e.Rows, e.SizeBytes, nullString(e.Destination), e.CreatedAt)
	return err
}

// ListExports returns the most recent exports first.
func (s *Store) ListExports(ctx context.Context, limit int) ([]Export, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, page, format, granularity, rows, size_bytes, destination, created_at
		FROM exports
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Export
	for rows.Next() {
		var e Export
		var granularity, destination sql.NullString
		if err := rows.Scan(&e.ID, &e.Page, &e.Format, &granularity, &e.Rows, &e.SizeBytes, &destination, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Granularity = granularity.String
		e.Destination = destination.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
