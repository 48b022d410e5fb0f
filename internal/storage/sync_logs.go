package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SyncLog represents a single ingest operation's outcome.
type SyncLog struct {
	ID              uuid.UUID        `json:"id"`
	CreatedAt       time.Time        `json:"created_at"`
	Source          string           `json:"source"`
	Origin          string           `json:"origin"` // "api" or "import"
	Status          string           `json:"status"`
	SamplesReceived int              `json:"samples_received"`
	SamplesInserted int64            `json:"samples_inserted"`
	DurationMs      *int             `json:"duration_ms"`
	ErrorMessage    *string          `json:"error_message"`
	Metadata        *json.RawMessage `json:"metadata"`
}

// InsertSyncLog creates a new sync log entry.
func (db *DB) InsertSyncLog(ctx context.Context, log SyncLog) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO sync_logs (id, source, origin, status, samples_received, samples_inserted,
		 duration_ms, error_message, metadata)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		log.ID, log.Source, log.Origin, log.Status, log.SamplesReceived, log.SamplesInserted,
		log.DurationMs, log.ErrorMessage, log.Metadata,
	)
	if err != nil {
		return fmt.Errorf("inserting sync log: %w", err)
	}
	return nil
}

// UpdateSyncLog updates an existing entry (typically from "running" to "success" or "error").
func (db *DB) UpdateSyncLog(ctx context.Context, log SyncLog) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE sync_logs SET
		 status = $2, samples_received = $3, samples_inserted = $4,
		 duration_ms = $5, error_message = $6, metadata = $7
		 WHERE id = $1`,
		log.ID, log.Status, log.SamplesReceived, log.SamplesInserted,
		log.DurationMs, log.ErrorMessage, log.Metadata,
	)
	if err != nil {
		return fmt.Errorf("updating sync log %s: %w", log.ID, err)
	}
	return nil
}

// QuerySyncLogs returns the most recent sync logs.
func (db *DB) QuerySyncLogs(ctx context.Context, limit int) ([]SyncLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, created_at, source, origin, status, samples_received, samples_inserted,
		 duration_ms, error_message, metadata
		 FROM sync_logs
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("querying sync logs: %w", err)
	}
	defer rows.Close()

	var result []SyncLog
	for rows.Next() {
		var l SyncLog
		if err := rows.Scan(&l.ID, &l.CreatedAt, &l.Source, &l.Origin, &l.Status,
			&l.SamplesReceived, &l.SamplesInserted, &l.DurationMs, &l.ErrorMessage, &l.Metadata); err != nil {
			return nil, fmt.Errorf("scanning sync log: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
