package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/pulseboard/internal/models"
	"github.com/jackc/pgx/v5"
)

const heartRateColumns = 8

// maxBatchRows keeps a single INSERT under the 65535 bind parameter limit.
const maxBatchRows = 65535 / heartRateColumns

// InsertHeartRate batch-inserts heart-rate rows. Returns the number actually
// inserted (duplicates on (source, time) are skipped via ON CONFLICT DO NOTHING).
func (db *DB) InsertHeartRate(ctx context.Context, rows []models.HeartRateRow) (int64, error) {
	var total int64
	for start := 0; start < len(rows); start += maxBatchRows {
		n, err := db.insertHeartRateBatch(ctx, rows[start:min(start+maxBatchRows, len(rows))])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (db *DB) insertHeartRateBatch(ctx context.Context, rows []models.HeartRateRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	query, args := buildHeartRateInsert(rows)
	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting heart rate samples: %w", err)
	}
	return tag.RowsAffected(), nil
}

func buildHeartRateInsert(rows []models.HeartRateRow) (string, []any) {
	query := `INSERT INTO heart_rate_samples (time, source, device, value, avg_bpm, min_bpm, max_bpm, resting_bpm)
VALUES `
	args := make([]any, 0, len(rows)*heartRateColumns)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		base := i * heartRateColumns
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
		))
		args = append(args, r.Time, r.Source, r.Device, r.Value, r.Avg, r.Min, r.Max, r.Resting)
	}

	return query + strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING", args
}

// QueryHeartRate returns one source's samples in [start, end), oldest first.
func (db *DB) QueryHeartRate(ctx context.Context, source string, start, end time.Time) ([]models.HeartRateRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT time, source, device, value, avg_bpm, min_bpm, max_bpm, resting_bpm
		 FROM heart_rate_samples
		 WHERE source = $1 AND time >= $2 AND time < $3
		 ORDER BY time ASC`,
		source, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying heart rate: %w", err)
	}
	defer rows.Close()

	return scanHeartRateRows(rows)
}

// SourceSummary describes the stored data of one source.
type SourceSummary struct {
	Source string    `json:"source"`
	Count  int64     `json:"count"`
	First  time.Time `json:"first"`
	Last   time.Time `json:"last"`
}

// ListSources returns the sources with samples in [start, end).
func (db *DB) ListSources(ctx context.Context, start, end time.Time) ([]SourceSummary, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT source, COUNT(*), MIN(time), MAX(time)
		 FROM heart_rate_samples
		 WHERE time >= $1 AND time < $2
		 GROUP BY source
		 ORDER BY source`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()

	var result []SourceSummary
	for rows.Next() {
		var s SourceSummary
		if err := rows.Scan(&s.Source, &s.Count, &s.First, &s.Last); err != nil {
			return nil, fmt.Errorf("scanning source summary: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func scanHeartRateRows(rows pgx.Rows) ([]models.HeartRateRow, error) {
	var result []models.HeartRateRow
	for rows.Next() {
		var r models.HeartRateRow
		if err := rows.Scan(&r.Time, &r.Source, &r.Device, &r.Value, &r.Avg, &r.Min, &r.Max, &r.Resting); err != nil {
			return nil, fmt.Errorf("scanning heart rate row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
