// Package dashboard answers the chart queries: stored samples for a source,
// enhanced, scored and reduced, and the sources ranked by quality.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/claude/pulseboard/internal/heartrate"
	"github.com/claude/pulseboard/internal/models"
	"github.com/claude/pulseboard/internal/storage"
)

// ErrUnknownSource is returned for a source name outside models.Sources.
var ErrUnknownSource = errors.New("unknown heart rate source")

// Store is the read side of the heart-rate database.
type Store interface {
	QueryHeartRate(ctx context.Context, source string, start, end time.Time) ([]models.HeartRateRow, error)
	ListSources(ctx context.Context, start, end time.Time) ([]storage.SourceSummary, error)
}

// SourceRank summarises one source's series without its points.
type SourceRank struct {
	Source  string    `json:"source"`
	Quality int       `json:"quality"`
	Count   int       `json:"count"`
	First   time.Time `json:"first"`
	Last    time.Time `json:"last"`
}

// Service builds chart series from stored samples.
type Service struct {
	store        Store
	processor    *heartrate.Processor
	targetPoints int
}

// New creates a Service. targetPoints is used when a query passes 0.
func New(store Store, processor *heartrate.Processor, targetPoints int) *Service {
	return &Service{store: store, processor: processor, targetPoints: targetPoints}
}

// Location is the zone used for display times.
func (s *Service) Location() *time.Location {
	return s.processor.Location()
}

// HeartRate returns source's series in [start, end) reduced to about target points.
func (s *Service) HeartRate(ctx context.Context, source string, start, end time.Time, target int) (heartrate.Series, error) {
	if !slices.Contains(models.Sources, source) {
		return heartrate.Series{}, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	if target <= 0 {
		target = s.targetPoints
	}
	rows, err := s.store.QueryHeartRate(ctx, source, start, end)
	if err != nil {
		return heartrate.Series{}, err
	}
	return s.processor.Build(SamplesFromRows(rows), source, target), nil
}

// Sources ranks every source with data in [start, end) by quality score.
func (s *Service) Sources(ctx context.Context, start, end time.Time) ([]SourceRank, error) {
	summaries, err := s.store.ListSources(ctx, start, end)
	if err != nil {
		return nil, err
	}

	all := make([]heartrate.Series, 0, len(summaries))
	for _, sum := range summaries {
		rows, err := s.store.QueryHeartRate(ctx, sum.Source, start, end)
		if err != nil {
			return nil, err
		}
		series := s.processor.Build(SamplesFromRows(rows), sum.Source, 1)
		series.Points = nil
		all = append(all, series)
	}

	ranked := heartrate.Rank(all)
	out := make([]SourceRank, len(ranked))
	for i, series := range ranked {
		idx := slices.IndexFunc(summaries, func(sum storage.SourceSummary) bool { return sum.Source == series.Source })
		out[i] = SourceRank{
			Source:  series.Source,
			Quality: series.Quality,
			Count:   series.Count,
			First:   summaries[idx].First,
			Last:    summaries[idx].Last,
		}
	}
	return out, nil
}

// SamplesFromRows maps stored rows onto processor input samples.
func SamplesFromRows(rows []models.HeartRateRow) []heartrate.Sample {
	samples := make([]heartrate.Sample, len(rows))
	for i, r := range rows {
		samples[i] = heartrate.Sample{
			Timestamp:        float64(r.Time.UnixMilli()) / 1000,
			Value:            r.Value,
			Avg:              r.Avg,
			Min:              r.Min,
			Max:              r.Max,
			RestingHeartRate: r.Resting,
		}
	}
	return samples
}
