package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"
)

// RawPayload is an archived API response body.
type RawPayload struct {
	ID                int64
	FetchedAt         time.Time
	Endpoint          string
	RequestURL        string
	PayloadCompressed []byte
	PayloadHash       string
	SizeBytes         int64
}

// PayloadHash is the hex sha256 of an uncompressed body.
func PayloadHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// StoreRawPayload stores a gzip-compressed response body. It returns the
// new row ID, or 0 when an identical body is already archived.
func (s *Store) StoreRawPayload(ctx context.Context, endpoint, requestURL string, payload []byte) (int64, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return 0, fmt.Errorf("compress payload: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("close gzip: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO raw_payloads (fetched_at, endpoint, request_url, payload_compressed, payload_hash, size_bytes)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(payload_hash) DO NOTHING
	`, time.Now().UTC(), endpoint, requestURL, buf.Bytes(), PayloadHash(payload), len(payload))
	if err != nil {
		return 0, fmt.Errorf("insert raw payload: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return result.LastInsertId()
}

// RecordPayload archives every successful API body handed over by the client.
func (s *Store) RecordPayload(ctx context.Context, endpoint, requestURL string, body []byte) error {
	_, err := s.StoreRawPayload(ctx, endpoint, requestURL, body)
	return err
}

// GetRawPayload retrieves and decompresses a stored payload by ID.
func (s *Store) GetRawPayload(ctx context.Context, id int64) ([]byte, error) {
	var compressed []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload_compressed FROM raw_payloads WHERE id = ?`, id).
		Scan(&compressed)
	if err != nil {
		return nil, err
	}
	return decompress(compressed)
}

// GetRawPayloadByHash looks a payload up by hash. It returns nil when
// nothing matches.
func (s *Store) GetRawPayloadByHash(ctx context.Context, hash string) (*RawPayload, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, fetched_at, endpoint, request_url, payload_compressed, payload_hash, size_bytes
		FROM raw_payloads WHERE payload_hash = ?
	`, hash)

	var p RawPayload
	err := row.Scan(&p.ID, &p.FetchedAt, &p.Endpoint, &p.RequestURL, &p.PayloadCompressed, &p.PayloadHash, &p.SizeBytes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// RawPayloadStats contains storage statistics for raw payloads.
type RawPayloadStats struct {
	TotalCount      int
	TotalSizeBytes  int64
	OldestFetchedAt time.Time
	NewestFetchedAt time.Time
	CountByEndpoint map[string]int
}

func (s *Store) GetRawPayloadStats(ctx context.Context) (*RawPayloadStats, error) {
	stats := &RawPayloadStats{CountByEndpoint: make(map[string]int)}

	var oldest, newest sql.NullString
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(LENGTH(payload_compressed)), 0), MIN(fetched_at), MAX(fetched_at)
		FROM raw_payloads
	`).Scan(&stats.TotalCount, &stats.TotalSizeBytes, &oldest, &newest); err != nil {
		return nil, err
	}
	stats.OldestFetchedAt = parseTimestamp(oldest)
	stats.NewestFetchedAt = parseTimestamp(newest)

	rows, err := s.db.QueryContext(ctx, `SELECT endpoint, COUNT(*) FROM raw_payloads GROUP BY endpoint`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var endpoint string
		var count int
		if err := rows.Scan(&endpoint, &count); err != nil {
			return nil, err
		}
		stats.CountByEndpoint[endpoint] = count
	}
	return stats, rows.Err()
}

// CleanupOldRawPayloads deletes payloads older than retentionDays and
// returns the number of deleted rows.
func (s *Store) CleanupOldRawPayloads(ctx context.Context, retentionDays int) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM raw_payloads
		WHERE fetched_at < ?
	`, time.Now().UTC().AddDate(0, 0, -retentionDays))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func decompress(compressed []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	defer gz.Close()
	return io.ReadAll(gz)
}

// parseTimestamp reads an aggregate over a DATETIME column, which sqlite
// returns as text in the driver's write format.
func parseTimestamp(v sql.NullString) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02 15:04:05.999999999 -0700 MST", time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, v.String); err == nil {
			return t
		}
	}
	return time.Time{}
}
