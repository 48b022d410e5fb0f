package ingest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/pulseboard/internal/models"
)

// ConvertAppleHealth converts a Health Auto Export REST payload. heart_rate
// points become samples with avg/min/max; resting_heart_rate values are
// attached to the samples of the same calendar day. Other metrics are ignored.
func ConvertAppleHealth(body []byte, _ *time.Location, log *slog.Logger) (Conversion, error) {
	var p models.HAEPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return Conversion{}, fmt.Errorf("parsing health auto export payload: %w", err)
	}

	var conv Conversion
	resting := map[string]float64{}
	for _, m := range p.Data.Metrics {
		switch m.Name {
		case models.MetricHeartRate:
			for _, raw := range m.Data {
				conv.Received++
				var dp models.HAEHeartRateDataPoint
				if err := json.Unmarshal(raw, &dp); err != nil {
					log.Warn("skipping heart_rate point", "error", err)
					conv.Rejected++
					continue
				}
				conv.Rows = append(conv.Rows, models.HeartRateRow{
					Time:   dp.Date.Time,
					Source: models.SourceAppleHealth,
					Device: dp.Source,
					Avg:    optional(dp.Avg),
					Min:    optional(dp.Min),
					Max:    optional(dp.Max),
				})
			}
		case models.MetricRestingHeartRate:
			for _, raw := range m.Data {
				var dp models.HAEMetricDataPoint
				if err := json.Unmarshal(raw, &dp); err != nil {
					log.Warn("skipping resting_heart_rate point", "error", err)
					continue
				}
				resting[dp.Date.Format(time.DateOnly)] = dp.Qty
			}
		}
	}

	attachResting(conv.Rows, resting)
	return conv, nil
}

// ConvertHAEFile converts a decompressed heart_rate .hae file from an
// AutoSync export.
func ConvertHAEFile(data []byte) (Conversion, error) {
	var m models.HAEFileMetric
	if err := json.Unmarshal(data, &m); err != nil {
		return Conversion{}, fmt.Errorf("parsing .hae file: %w", err)
	}

	conv := Conversion{Received: len(m.Data)}
	for _, dp := range m.Data {
		if dp.Avg == nil && dp.Qty == nil {
			conv.Rejected++
			continue
		}
		row := models.HeartRateRow{
			Time:   models.AppleTimestampToTime(dp.Start),
			Source: models.SourceAppleHealth,
			Device: dp.SourceName(),
			Min:    dp.Min,
			Max:    dp.Max,
			Avg:    dp.Avg,
		}
		if dp.Avg == nil {
			row.Value = dp.Qty
		}
		conv.Rows = append(conv.Rows, row)
	}
	return conv, nil
}

func attachResting(rows []models.HeartRateRow, byDay map[string]float64) {
	if len(byDay) == 0 {
		return
	}
	for i := range rows {
		if v, ok := byDay[rows[i].Time.Format(time.DateOnly)]; ok {
			rows[i].Resting = optional(v)
		}
	}
}
