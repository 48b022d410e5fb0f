package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/claude/pulseboard/internal/heartrate"
	"github.com/claude/pulseboard/internal/models"
	"github.com/claude/pulseboard/internal/storage"
)

type memStore struct {
	rows []models.HeartRateRow
	err  error
}

func (m *memStore) QueryHeartRate(_ context.Context, source string, start, end time.Time) ([]models.HeartRateRow, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []models.HeartRateRow
	for _, r := range m.rows {
		if r.Source == source && !r.Time.Before(start) && r.Time.Before(end) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ListSources(_ context.Context, start, end time.Time) ([]storage.SourceSummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	index := map[string]int{}
	var out []storage.SourceSummary
	for _, r := range m.rows {
		if r.Time.Before(start) || !r.Time.Before(end) {
			continue
		}
		i, ok := index[r.Source]
		if !ok {
			out = append(out, storage.SourceSummary{Source: r.Source, First: r.Time, Last: r.Time})
			i = len(out) - 1
			index[r.Source] = i
		}
		out[i].Count++
		if r.Time.Before(out[i].First) {
			out[i].First = r.Time
		}
		if r.Time.After(out[i].Last) {
			out[i].Last = r.Time
		}
	}
	return out, nil
}

func bpm(v float64) *float64 { return &v }

func newService(st Store, target int) *Service {
	return New(st, heartrate.NewProcessor(time.UTC, slog.New(slog.NewTextHandler(io.Discard, nil))), target)
}

// TestHeartRateDefaultTarget verifies a zero target falls back to the configured one.
func TestHeartRateDefaultTarget(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	st := &memStore{}
	for i := range 100 {
		st.rows = append(st.rows, models.HeartRateRow{Time: base.Add(time.Duration(i) * time.Minute), Source: "fitbit", Avg: bpm(70)})
	}

	series, err := newService(st, 10).HeartRate(context.Background(), "fitbit", base, base.Add(24*time.Hour), 0)
	if err != nil {
		t.Fatal(err)
	}
	if series.Count != 100 || len(series.Points) > 12 {
		t.Errorf("count = %d points = %d, want 100 and <= 12", series.Count, len(series.Points))
	}
}

// TestHeartRateUnknownSource verifies sources outside the known set are refused.
func TestHeartRateUnknownSource(t *testing.T) {
	_, err := newService(&memStore{}, 10).HeartRate(context.Background(), "strava", time.Time{}, time.Now(), 0)
	if !errors.Is(err, ErrUnknownSource) {
		t.Errorf("err = %v, want ErrUnknownSource", err)
	}
}

// TestSourcesRankedByQuality verifies ordering and the carried summary bounds.
func TestSourcesRankedByQuality(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	st := &memStore{rows: []models.HeartRateRow{
		{Time: now.Add(-72 * time.Hour), Source: "googleFit", Value: bpm(80)},
		{Time: now.Add(-2 * time.Minute), Source: "fitbit", Avg: bpm(70), Min: bpm(60), Max: bpm(80), Resting: bpm(55)},
		{Time: now.Add(-time.Minute), Source: "fitbit", Avg: bpm(72), Min: bpm(61), Max: bpm(82), Resting: bpm(55)},
	}}

	ranks, err := newService(st, 10).Sources(context.Background(), now.Add(-7*24*time.Hour), now)
	if err != nil {
		t.Fatal(err)
	}
	if len(ranks) != 2 || ranks[0].Source != "fitbit" {
		t.Fatalf("ranks = %+v, want fitbit first", ranks)
	}
	if ranks[0].Count != 2 || !ranks[0].First.Equal(now.Add(-2*time.Minute)) {
		t.Errorf("fitbit rank = %+v", ranks[0])
	}
}

// TestSourcesStoreError verifies storage failures are returned.
func TestSourcesStoreError(t *testing.T) {
	_, err := newService(&memStore{err: errors.New("down")}, 10).Sources(context.Background(), time.Time{}, time.Now())
	if err == nil {
		t.Fatal("expected error")
	}
}
