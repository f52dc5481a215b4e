package store

import (
	"context"
	"database/sql"
	"time"
)

// ArchiveRun is one attempt to archive a daily Poland-wide snapshot.
type ArchiveRun struct {
	ID           int64
	SnapshotDate time.Time
	StartedAt    time.Time
	FinishedAt   sql.NullTime
	PayloadID    sql.NullInt64
	Records      sql.NullInt64
	Degraded     sql.NullInt64
	Success      bool
	ErrorMessage sql.NullString
}

// StartArchiveRun creates a pending run for the snapshot date.
func (s *Store) StartArchiveRun(ctx context.Context, snapshotDate time.Time) (*ArchiveRun, error) {
	run := &ArchiveRun{
		SnapshotDate: snapshotDate.UTC().Truncate(24 * time.Hour),
		StartedAt:    time.Now().UTC(),
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO archive_runs (snapshot_date, started_at, success)
		VALUES (?, ?, FALSE)
	`, run.SnapshotDate, run.StartedAt)
	if err != nil {
		return nil, err
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return run, nil
}

// CompleteArchiveRun stores the outcome fields of run.
func (s *Store) CompleteArchiveRun(ctx context.Context, run *ArchiveRun) error {
	if run == nil {
		return nil
	}
	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	_, err := s.db.ExecContext(ctx, `
		UPDATE archive_runs SET
			finished_at = ?,
			payload_id = ?,
			records = ?,
			degraded = ?,
			success = ?,
			error_message = ?
		WHERE id = ?
	`, run.FinishedAt, run.PayloadID, run.Records, run.Degraded, run.Success, run.ErrorMessage, run.ID)
	return err
}

// RecentArchiveRuns returns the latest runs, newest first.
func (s *Store) RecentArchiveRuns(ctx context.Context, limit int) ([]ArchiveRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, snapshot_date, started_at, finished_at, payload_id, records, degraded, success, error_message
		FROM archive_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ArchiveRun
	for rows.Next() {
		var r ArchiveRun
		if err := rows.Scan(&r.ID, &r.SnapshotDate, &r.StartedAt, &r.FinishedAt, &r.PayloadID,
			&r.Records, &r.Degraded, &r.Success, &r.ErrorMessage); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
