package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/claude/pulseboard/internal/models"
	"github.com/claude/pulseboard/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestConvertFitbitIntraday verifies per-minute grouping with a rounded mean.
func TestConvertFitbitIntraday(t *testing.T) {
	body := []byte(`{
		"activities-heart": [{"dateTime": "2024-01-01", "value": {"restingHeartRate": 58}}],
		"activities-heart-intraday": {"dataset": [
			{"time": "08:00:05", "value": 60},
			{"time": "08:00:35", "value": 63},
			{"time": "08:01:10", "value": 70},
			{"time": "bad", "value": 1}
		]}
	}`)
	conv, err := ConvertFitbit(body, time.UTC, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if conv.Received != 4 || conv.Rejected != 1 || len(conv.Rows) != 2 {
		t.Fatalf("conversion = received %d rejected %d rows %d", conv.Received, conv.Rejected, len(conv.Rows))
	}
	first := conv.Rows[0]
	if !first.Time.Equal(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("time = %v", first.Time)
	}
	if *first.Avg != 62 || *first.Min != 60 || *first.Max != 63 {
		t.Errorf("avg/min/max = %v/%v/%v, want 62/60/63", *first.Avg, *first.Min, *first.Max)
	}
	if first.Resting == nil || *first.Resting != 58 {
		t.Errorf("resting = %v, want 58", first.Resting)
	}
}

// TestConvertFitbitDaily verifies the multi-day summary shape.
func TestConvertFitbitDaily(t *testing.T) {
	body := []byte(`{"activities-heart": [
		{"dateTime": "2024-01-01", "value": {"restingHeartRate": 57, "heartRateZones": [
			{"name": "Out of Range", "min": 30, "max": 97},
			{"name": "Fat Burn", "min": 97, "max": 135},
			{"name": "Peak", "min": 164, "max": 220}]}},
		{"dateTime": "2024-01-02", "value": {}}
	]}`)
	conv, err := ConvertFitbit(body, time.UTC, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(conv.Rows) != 1 || conv.Rejected != 1 {
		t.Fatalf("rows = %d rejected = %d", len(conv.Rows), conv.Rejected)
	}
	r := conv.Rows[0]
	if *r.Min != 30 || *r.Max != 220 || *r.Resting != 57 || r.Avg != nil {
		t.Errorf("row = %+v", r)
	}
}

// TestConvertGoogleFitSummary verifies summary buckets map to avg/max/min.
func TestConvertGoogleFitSummary(t *testing.T) {
	body := []byte(`{"bucket": [
		{"startTimeMillis": "1704096000000", "endTimeMillis": "1704096060000", "dataset": [
			{"dataSourceId": "derived:com.google.heart_rate.summary:com.google.android.gms:aggregated",
			 "point": [{"value": [{"fpVal": 72.5}, {"fpVal": 90}, {"fpVal": 61}]}]}]},
		{"startTimeMillis": "1704096060000", "endTimeMillis": "1704096120000", "dataset": [
			{"dataSourceId": "raw:com.google.heart_rate.bpm:watch", "point": [{"value": [{"fpVal": 80}]}, {"value": [{"intVal": 3}]}]}]}
	]}`)
	conv, err := ConvertGoogleFit(body, time.UTC, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(conv.Rows) != 2 || conv.Rejected != 1 || conv.Received != 3 {
		t.Fatalf("conversion = %+v", conv)
	}
	s := conv.Rows[0]
	if s.Time.Unix() != 1704096000 || *s.Avg != 72.5 || *s.Max != 90 || *s.Min != 61 {
		t.Errorf("summary row = %+v", s)
	}
	raw := conv.Rows[1]
	if *raw.Value != 80 || raw.Avg != nil {
		t.Errorf("raw row = %+v", raw)
	}
}

// TestConvertAppleHealthResting verifies resting rates attach by calendar day.
func TestConvertAppleHealthResting(t *testing.T) {
	body := []byte(`{"data": {"metrics": [
		{"name": "heart_rate", "units": "count/min", "data": [
			{"date": "2024-02-06 14:30:00 -0800", "Min": 65, "Avg": 72, "Max": 85, "source": "Watch"},
			{"date": "2024-02-07 09:00:00 -0800", "Min": 60, "Avg": 66, "Max": 70},
			{"date": "garbage", "Avg": 1}]},
		{"name": "resting_heart_rate", "units": "count/min", "data": [{"date": "2024-02-06 00:00:00 -0800", "qty": 55}]},
		{"name": "step_count", "units": "count", "data": [{"date": "2024-02-06 00:00:00 -0800", "qty": 9000}]}
	]}}`)
	conv, err := ConvertAppleHealth(body, time.UTC, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(conv.Rows) != 2 || conv.Rejected != 1 {
		t.Fatalf("rows = %d rejected = %d", len(conv.Rows), conv.Rejected)
	}
	if r := conv.Rows[0]; r.Resting == nil || *r.Resting != 55 || r.Device != "Watch" || *r.Avg != 72 {
		t.Errorf("first row = %+v", r)
	}
	if conv.Rows[1].Resting != nil {
		t.Errorf("second day got resting %v", *conv.Rows[1].Resting)
	}
}

// TestConvertHAEFile verifies Core Data timestamps and min/avg/max from a .hae file.
func TestConvertHAEFile(t *testing.T) {
	data := []byte(`{"metric": "Heart Rate", "date": 788223600, "data": [
		{"avg": 59, "min": 57, "max": 61, "start": 788223754, "end": 788223755, "unit": "count/min",
		 "sources": [{"name": "Apple Watch", "identifier": "x"}]},
		{"start": 788223800, "unit": "count/min"}]}`)
	conv, err := ConvertHAEFile(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(conv.Rows) != 1 || conv.Rejected != 1 {
		t.Fatalf("rows = %d rejected = %d", len(conv.Rows), conv.Rejected)
	}
	r := conv.Rows[0]
	if !r.Time.Equal(time.Date(2025, 12, 23, 23, 2, 34, 0, time.UTC)) || r.Device != "Apple Watch" {
		t.Errorf("row = %+v", r)
	}
}

type fakeStore struct {
	rows      []models.HeartRateRow
	logs      []storage.SyncLog
	insertErr error
	dupes     int64
}

func (f *fakeStore) InsertHeartRate(_ context.Context, rows []models.HeartRateRow) (int64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.rows = append(f.rows, rows...)
	return int64(len(rows)) - f.dupes, nil
}

func (f *fakeStore) InsertSyncLog(_ context.Context, l storage.SyncLog) error {
	f.logs = append(f.logs, l)
	return nil
}

func (f *fakeStore) UpdateSyncLog(_ context.Context, l storage.SyncLog) error {
	f.logs = append(f.logs, l)
	return nil
}

var googleBody = []byte(`{"bucket": [{"startTimeMillis": "1704096000000", "dataset": [
	{"dataSourceId": "raw:com.google.heart_rate.bpm:w", "point": [{"value": [{"fpVal": 80}]}]}]},
	{"startTimeMillis": "1704096060000", "dataset": [
	{"dataSourceId": "raw:com.google.heart_rate.bpm:w", "point": [{"value": [{"fpVal": 81}]}]}]}]}`)

// TestProviderIngest verifies storage counts and the sync log lifecycle.
func TestProviderIngest(t *testing.T) {
	st := &fakeStore{dupes: 1}
	p := NewProvider(st, time.UTC, quietLogger())

	res, err := p.Ingest(context.Background(), models.SourceGoogleFit, "api", googleBody)
	if err != nil {
		t.Fatal(err)
	}
	if res.SamplesReceived != 2 || res.SamplesInserted != 1 || res.SamplesSkipped != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(st.logs) != 2 || st.logs[0].Status != "running" || st.logs[1].Status != "success" {
		t.Fatalf("sync logs = %+v", st.logs)
	}
	if st.logs[0].ID != res.SyncID || st.logs[1].Origin != "api" {
		t.Errorf("sync log id/origin mismatch: %+v", st.logs[1])
	}
}

// TestProviderIngestStoreFailure verifies a storage error is recorded on the sync log.
func TestProviderIngestStoreFailure(t *testing.T) {
	st := &fakeStore{insertErr: errors.New("disk full")}
	p := NewProvider(st, time.UTC, quietLogger())

	if _, err := p.Ingest(context.Background(), models.SourceGoogleFit, "import", googleBody); err == nil {
		t.Fatal("expected error")
	}
	last := st.logs[len(st.logs)-1]
	if last.Status != "error" || last.ErrorMessage == nil {
		t.Errorf("sync log = %+v", last)
	}
}

// TestProviderUnknownSource verifies unknown sources are refused before logging.
func TestProviderUnknownSource(t *testing.T) {
	st := &fakeStore{}
	_, err := NewProvider(st, time.UTC, quietLogger()).Ingest(context.Background(), "strava", "api", nil)
	if !errors.Is(err, ErrUnknownSource) {
		t.Errorf("err = %v, want ErrUnknownSource", err)
	}
	if len(st.logs) != 0 {
		t.Errorf("sync logs written for unknown source: %d", len(st.logs))
	}
}
