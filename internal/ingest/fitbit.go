package ingest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/claude/pulseboard/internal/models"
)

// ConvertFitbit converts a Fitbit heart-rate response. Intraday readings are
// grouped per minute into avg (rounded mean), min and max, carrying the day's
// resting rate. Without intraday data each day becomes one sample holding the
// resting rate, the "Out of Range" floor as min and the highest zone ceiling as max.
func ConvertFitbit(body []byte, loc *time.Location, log *slog.Logger) (Conversion, error) {
	var p models.FitbitHeartPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return Conversion{}, fmt.Errorf("parsing fitbit payload: %w", err)
	}

	if p.ActivitiesHeartIntraday != nil && len(p.ActivitiesHeartIntraday.Dataset) > 0 {
		if len(p.ActivitiesHeart) == 0 {
			return Conversion{}, fmt.Errorf("fitbit intraday data without activities-heart date")
		}
		return fitbitIntraday(p.ActivitiesHeart[0], p.ActivitiesHeartIntraday.Dataset, loc, log)
	}
	return fitbitDaily(p.ActivitiesHeart, loc, log), nil
}

func fitbitIntraday(day models.FitbitHeartDay, points []models.FitbitIntradayPoint, loc *time.Location, log *slog.Logger) (Conversion, error) {
	date, err := time.ParseInLocation(time.DateOnly, day.DateTime, loc)
	if err != nil {
		return Conversion{}, fmt.Errorf("parsing fitbit date %q: %w", day.DateTime, err)
	}

	conv := Conversion{Received: len(points)}
	groups := map[time.Time][]float64{}
	for _, pt := range points {
		clock, err := time.Parse(time.TimeOnly, pt.Time)
		if err != nil {
			log.Warn("skipping fitbit point", "time", pt.Time, "error", err)
			conv.Rejected++
			continue
		}
		minute := time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
		groups[minute] = append(groups[minute], pt.Value)
	}

	resting := optional(day.Value.RestingHeartRate)
	for minute, values := range groups {
		var sum float64
		for _, v := range values {
			sum += v
		}
		avg := math.Round(sum / float64(len(values)))
		lo, hi := slices.Min(values), slices.Max(values)
		conv.Rows = append(conv.Rows, models.HeartRateRow{
			Time:    minute,
			Source:  models.SourceFitbit,
			Avg:     &avg,
			Min:     &lo,
			Max:     &hi,
			Resting: resting,
		})
	}
	slices.SortFunc(conv.Rows, func(a, b models.HeartRateRow) int { return a.Time.Compare(b.Time) })
	return conv, nil
}

func fitbitDaily(days []models.FitbitHeartDay, loc *time.Location, log *slog.Logger) Conversion {
	conv := Conversion{Received: len(days)}
	for _, day := range days {
		date, err := time.ParseInLocation(time.DateOnly, day.DateTime, loc)
		if err != nil {
			log.Warn("skipping fitbit day", "date", day.DateTime, "error", err)
			conv.Rejected++
			continue
		}
		zones := day.Value.HeartRateZones
		if len(zones) == 0 && day.Value.RestingHeartRate == 0 {
			conv.Rejected++
			continue
		}

		var floor, ceiling float64
		for _, z := range zones {
			if z.Name == models.FitbitOutOfRangeZone {
				floor = z.Min
			}
			ceiling = max(ceiling, z.Max)
		}
		conv.Rows = append(conv.Rows, models.HeartRateRow{
			Time:    date,
			Source:  models.SourceFitbit,
			Min:     optional(floor),
			Max:     optional(ceiling),
			Resting: optional(day.Value.RestingHeartRate),
		})
	}
	return conv
}

// optional maps the providers' zero-means-missing convention onto nil.
func optional(v float64) *float64 {
	if v == 0 || math.IsNaN(v) {
		return nil
	}
	return &v
}
