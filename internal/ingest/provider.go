// Package ingest converts provider heart-rate payloads into stored rows.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/pulseboard/internal/models"
	"github.com/claude/pulseboard/internal/storage"
	"github.com/google/uuid"
)

// Result holds the outcome of an ingest operation.
type Result struct {
	SyncID          uuid.UUID `json:"sync_id"`
	Source          string    `json:"source"`
	SamplesReceived int       `json:"samples_received"`
	SamplesInserted int64     `json:"samples_inserted"`
	SamplesSkipped  int64     `json:"samples_skipped"`
	SamplesRejected int       `json:"samples_rejected"`
	Message         string    `json:"message,omitempty"`
}

// Conversion is a converter's output: the rows plus how many raw points were
// seen and dropped.
type Conversion struct {
	Rows     []models.HeartRateRow
	Received int
	Rejected int
}

// Converter turns a raw provider payload into rows. Calendar dates without a
// zone are interpreted in loc.
type Converter func(body []byte, loc *time.Location, log *slog.Logger) (Conversion, error)

var converters = map[string]Converter{
	models.SourceFitbit:      ConvertFitbit,
	models.SourceGoogleFit:   ConvertGoogleFit,
	models.SourceAppleHealth: ConvertAppleHealth,
}

// ErrUnknownSource is returned for a source without a converter.
var ErrUnknownSource = errors.New("unknown heart rate source")

// Store is the persistence the Provider needs.
type Store interface {
	InsertHeartRate(ctx context.Context, rows []models.HeartRateRow) (int64, error)
	InsertSyncLog(ctx context.Context, log storage.SyncLog) error
	UpdateSyncLog(ctx context.Context, log storage.SyncLog) error
}

// Provider converts payloads and stores the resulting samples.
type Provider struct {
	store Store
	loc   *time.Location
	log   *slog.Logger
}

// NewProvider creates an ingest provider.
func NewProvider(store Store, loc *time.Location, log *slog.Logger) *Provider {
	if loc == nil {
		loc = time.Local
	}
	return &Provider{store: store, loc: loc, log: log}
}

// Convert runs the converter for source without storing anything.
func (p *Provider) Convert(source string, body []byte) (Conversion, error) {
	conv, ok := converters[source]
	if !ok {
		return Conversion{}, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	return conv(body, p.loc, p.log)
}

// Ingest converts body as a payload from source and stores it. origin names
// the caller in the sync log ("api" or "import").
func (p *Provider) Ingest(ctx context.Context, source, origin string, body []byte) (*Result, error) {
	if _, ok := converters[source]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}

	started := time.Now()
	entry := storage.SyncLog{
		ID:     uuid.New(),
		Source: source,
		Origin: origin,
		Status: "running",
	}
	if err := p.store.InsertSyncLog(ctx, entry); err != nil {
		p.log.Warn("failed to create sync log", "error", err)
	}

	result := &Result{SyncID: entry.ID, Source: source}
	err := p.ingest(ctx, source, body, result)

	entry.SamplesReceived = result.SamplesReceived
	entry.SamplesInserted = result.SamplesInserted
	durationMs := int(time.Since(started).Milliseconds())
	entry.DurationMs = &durationMs
	entry.Status = "success"
	if err != nil {
		entry.Status = "error"
		msg := err.Error()
		entry.ErrorMessage = &msg
	}
	if meta, mErr := json.Marshal(map[string]any{"rejected": result.SamplesRejected, "skipped": result.SamplesSkipped}); mErr == nil {
		raw := json.RawMessage(meta)
		entry.Metadata = &raw
	}
	if uErr := p.store.UpdateSyncLog(ctx, entry); uErr != nil {
		p.log.Warn("failed to update sync log", "error", uErr)
	}

	if err != nil {
		return result, err
	}
	p.log.Info("heart rate ingested",
		"source", source, "origin", origin,
		"received", result.SamplesReceived, "inserted", result.SamplesInserted,
		"skipped", result.SamplesSkipped, "rejected", result.SamplesRejected)
	return result, nil
}

func (p *Provider) ingest(ctx context.Context, source string, body []byte, result *Result) error {
	conv, err := p.Convert(source, body)
	if err != nil {
		return fmt.Errorf("converting %s payload: %w", source, err)
	}
	result.SamplesReceived = conv.Received
	result.SamplesRejected = conv.Rejected

	if len(conv.Rows) > 0 {
		inserted, err := p.store.InsertHeartRate(ctx, conv.Rows)
		if err != nil {
			return fmt.Errorf("inserting heart rate: %w", err)
		}
		result.SamplesInserted = inserted
		result.SamplesSkipped = int64(len(conv.Rows)) - inserted
	}

	if result.SamplesRejected > 0 {
		result.Message = fmt.Sprintf("%d data points could not be parsed and were dropped.", result.SamplesRejected)
	}
	return nil
}
