package ingest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/claude/pulseboard/internal/models"
)

const googleHeartRateSummary = "com.google.heart_rate.summary"

// ConvertGoogleFit converts a dataset:aggregate response. Each bucket becomes
// one sample stamped at its start. Summary points carry [avg, max, min];
// raw bpm points carry a single value.
func ConvertGoogleFit(body []byte, _ *time.Location, log *slog.Logger) (Conversion, error) {
	var agg models.GoogleFitAggregate
	if err := json.Unmarshal(body, &agg); err != nil {
		return Conversion{}, fmt.Errorf("parsing google fit payload: %w", err)
	}

	var conv Conversion
	for _, b := range agg.Bucket {
		at := time.UnixMilli(int64(b.StartTimeMillis)).UTC()
		for _, ds := range b.Dataset {
			for _, pt := range ds.Point {
				conv.Received++
				row, ok := googleFitRow(at, ds.DataSourceID, pt)
				if !ok {
					log.Debug("skipping google fit point without fpVal", "bucket", at, "source", ds.DataSourceID)
					conv.Rejected++
					continue
				}
				conv.Rows = append(conv.Rows, row)
			}
		}
	}
	return conv, nil
}

func googleFitRow(at time.Time, dataSourceID string, pt models.GoogleFitPoint) (models.HeartRateRow, bool) {
	var vals []float64
	for _, v := range pt.Value {
		if v.FpVal != nil {
			vals = append(vals, *v.FpVal)
		}
	}
	if len(vals) == 0 {
		return models.HeartRateRow{}, false
	}

	row := models.HeartRateRow{
		Time:   at,
		Source: models.SourceGoogleFit,
		Device: dataSourceID,
		Value:  optional(vals[0]),
	}
	summary := strings.Contains(dataSourceID, googleHeartRateSummary) || pt.DataTypeName == googleHeartRateSummary
	if summary && len(vals) == 3 {
		row.Avg = optional(vals[0])
		row.Max = optional(vals[1])
		row.Min = optional(vals[2])
	}
	return row, true
}
