package models

import (
	"encoding/json"
	"testing"
	"time"
)

// TestParseHAETimeFormats verifies both the zoned datetime and the date-only layouts.
func TestParseHAETimeFormats(t *testing.T) {
	got, err := ParseHAETime("2024-02-06 14:30:00 -0800")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 2, 6, 14, 30, 0, 0, time.FixedZone("", -8*3600))
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	day, err := ParseHAETime("2024-02-06")
	if err != nil || day.Day() != 6 {
		t.Errorf("date-only = %v, %v", day, err)
	}

	if _, err := ParseHAETime("06/02/2024"); err == nil {
		t.Error("expected error for unsupported layout")
	}
}

// TestHAEHeartRatePayload verifies the nested data.metrics structure and the
// capitalized Min/Avg/Max fields of heart_rate points.
func TestHAEHeartRatePayload(t *testing.T) {
	raw := `{"data": {"metrics": [{"name": "heart_rate", "units": "count/min",
		"data": [{"date": "2024-02-06 14:30:00 -0800", "Min": 65, "Avg": 72, "Max": 85, "source": "Apple Watch"}]}],
		"workouts": [{"name": "Running"}]}}`
	var p HAEPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(p.Data.Metrics) != 1 || p.Data.Metrics[0].Name != MetricHeartRate {
		t.Fatalf("metrics = %+v", p.Data.Metrics)
	}
	var hr HAEHeartRateDataPoint
	if err := json.Unmarshal(p.Data.Metrics[0].Data[0], &hr); err != nil {
		t.Fatalf("unmarshal hr: %v", err)
	}
	if hr.Min != 65 || hr.Avg != 72 || hr.Max != 85 || hr.Source != "Apple Watch" {
		t.Errorf("point = %+v", hr)
	}
}

// TestAppleTimestampToTime verifies Core Data epoch conversion, including fractions.
func TestAppleTimestampToTime(t *testing.T) {
	if got := AppleTimestampToTime(0); !got.Equal(time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("AppleTimestampToTime(0) = %v", got)
	}
	got := AppleTimestampToTime(788223754.5)
	if !got.Truncate(time.Second).Equal(time.Date(2025, 12, 23, 23, 2, 34, 0, time.UTC)) {
		t.Errorf("AppleTimestampToTime(788223754.5) = %v", got)
	}
	if ns := got.Nanosecond(); ns < 499000000 || ns > 501000000 {
		t.Errorf("fractional part: got %d ns, want ~500000000", ns)
	}
}

// TestHAEFileHeartRate verifies a heart_rate .hae file with lowercase min/avg/max.
func TestHAEFileHeartRate(t *testing.T) {
	raw := `{"metric": "Heart Rate", "date": 788223600, "data": [
		{"avg": 59, "min": 57, "max": 61, "start": 788223754, "end": 788223755, "unit": "count/min",
		 "sources": [{"name": "Apple Watch", "identifier": "com.apple.health.xxx"}]}]}`
	var m HAEFileMetric
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	dp := m.Data[0]
	if dp.Avg == nil || *dp.Avg != 59 || *dp.Min != 57 || *dp.Max != 61 {
		t.Errorf("point = %+v", dp)
	}
	if dp.Qty != nil {
		t.Errorf("qty = %v, want nil", *dp.Qty)
	}
	if dp.SourceName() != "Apple Watch" {
		t.Errorf("source = %q", dp.SourceName())
	}
	if (&HAEFileDataPoint{}).SourceName() != "" {
		t.Error("empty sources should give empty name")
	}
}
