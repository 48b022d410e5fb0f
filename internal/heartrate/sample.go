package heartrate

// Sample is a single heart-rate observation. Providers fill in a subset of
// the input fields (Fitbit: date/time/avg/min/max, Google Fit: timestamp/value,
// Apple Health: timestamp/avg/min/max); Enhance adds the derived fields.
//
// Zero and nil both mean "absent" for the numeric inputs, matching how the
// dashboard treats a 0 bpm reading.
type Sample struct {
	Timestamp        float64  `json:"timestamp,omitempty"` // seconds since epoch
	Date             string   `json:"date,omitempty"`
	Time             string   `json:"time,omitempty"`
	Value            *float64 `json:"value,omitempty"`
	Avg              *float64 `json:"avg,omitempty"`
	Min              *float64 `json:"min,omitempty"`
	Max              *float64 `json:"max,omitempty"`
	RestingHeartRate *float64 `json:"restingHeartRate,omitempty"`

	// Derived by Enhance.
	Source        string `json:"source,omitempty"`
	ZoneColor     string `json:"zoneColor,omitempty"`
	ZoneName      string `json:"zoneName,omitempty"`
	FormattedTime string `json:"formattedTime,omitempty"`
	*ZoneBuckets
}

// ZoneBuckets splits a reading across the five zones for stacked-area charts.
// At most one field is non-zero.
type ZoneBuckets struct {
	Rest    float64 `json:"rest"`
	FatBurn float64 `json:"fatBurn"`
	Cardio  float64 `json:"cardio"`
	Peak    float64 `json:"peak"`
	Extreme float64 `json:"extreme"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// HeartRate returns the primary reading: avg when set, else value, else 0.
func (s Sample) HeartRate() float64 {
	if present(s.Avg) {
		return *s.Avg
	}
	if present(s.Value) {
		return *s.Value
	}
	return 0
}

func present(v *float64) bool {
	return v != nil && *v != 0
}
