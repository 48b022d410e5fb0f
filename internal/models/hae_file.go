package models

import "time"

// AppleEpochOffset is the number of seconds between Unix epoch (1970-01-01)
// and Apple Core Data epoch (2001-01-01).
const AppleEpochOffset int64 = 978307200

// AppleTimestampToTime converts an Apple Core Data timestamp (seconds since 2001-01-01)
// to a Go time.Time in UTC.
func AppleTimestampToTime(appleTS float64) time.Time {
	sec := int64(appleTS)
	nsec := int64((appleTS - float64(sec)) * 1e9)
	return time.Unix(sec+AppleEpochOffset, nsec).UTC()
}

// HAEFileMetric is the root JSON structure of a health metric .hae file.
type HAEFileMetric struct {
	Metric string             `json:"metric"`
	Date   float64            `json:"date"`
	Data   []HAEFileDataPoint `json:"data"`
}

// HAEFileDataPoint is a single data point within a health metric .hae file.
// heart_rate uses Min/Avg/Max (lowercase in .hae files); resting_heart_rate uses Qty.
type HAEFileDataPoint struct {
	Metric  string          `json:"metric"`
	Start   float64         `json:"start"`
	End     float64         `json:"end"`
	Unit    string          `json:"unit"`
	Qty     *float64        `json:"qty,omitempty"`
	Min     *float64        `json:"min,omitempty"`
	Avg     *float64        `json:"avg,omitempty"`
	Max     *float64        `json:"max,omitempty"`
	Sources []HAEFileSource `json:"sources,omitempty"`
}

// HAEFileSource identifies the data source device.
type HAEFileSource struct {
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
}

// SourceName returns the first source's name, or empty string.
func (dp *HAEFileDataPoint) SourceName() string {
	if len(dp.Sources) > 0 {
		return dp.Sources[0].Name
	}
	return ""
}
