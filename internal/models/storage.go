package models

import "time"

// Heart-rate sources.
const (
	SourceFitbit      = "fitbit"
	SourceGoogleFit   = "googleFit"
	SourceAppleHealth = "appleHealth"
)

// Sources lists the known sources.
var Sources = []string{SourceFitbit, SourceGoogleFit, SourceAppleHealth}

// HeartRateRow is a row ready for insertion into the heart_rate_samples table.
type HeartRateRow struct {
	Time    time.Time
	Source  string
	Device  string
	Value   *float64
	Avg     *float64
	Min     *float64
	Max     *float64
	Resting *float64
}
