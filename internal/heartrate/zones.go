package heartrate

import "math"

// Zone is a named heart-rate intensity band.
type Zone struct {
	Name  string  `json:"name"`
	Color string  `json:"color"`
	Min   float64 `json:"min"`
	Max   float64 `json:"-"`
}

const (
	UnknownZoneName  = "Unknown"
	UnknownZoneColor = "#8884d8"
)

// Zones lists the bands from lowest to highest.
var Zones = []Zone{
	{Name: "Rest", Color: "#3f51b5", Min: 0, Max: 60},
	{Name: "Fat Burn", Color: "#2196f3", Min: 60, Max: 70},
	{Name: "Cardio", Color: "#009688", Min: 70, Max: 85},
	{Name: "Peak", Color: "#ff9800", Min: 85, Max: 100},
	{Name: "Extreme", Color: "#f44336", Min: 100, Max: math.Inf(1)},
}

var unknownZone = Zone{Name: UnknownZoneName, Color: UnknownZoneColor}

// ClassifyZone returns the zone for bpm. Bands include their lower bound
// (Fat Burn is 60 <= v < 70). Non-positive readings are Unknown.
func ClassifyZone(bpm float64) Zone {
	if !(bpm > 0) {
		return unknownZone
	}
	for _, z := range Zones {
		if bpm < z.Max {
			return z
		}
	}
	return Zones[len(Zones)-1]
}

// Buckets places bpm into exactly one chart bucket. Unlike ClassifyZone the
// buckets include their upper bound (fatBurn is 60 < v <= 70), so a reading of
// exactly 60 is named "Fat Burn" but charted as rest.
func Buckets(bpm float64) ZoneBuckets {
	var b ZoneBuckets
	if !(bpm > 0) {
		return b
	}
	switch {
	case bpm <= Zones[0].Max:
		b.Rest = bpm
	case bpm <= Zones[1].Max:
		b.FatBurn = bpm
	case bpm <= Zones[2].Max:
		b.Cardio = bpm
	case bpm <= Zones[3].Max:
		b.Peak = bpm
	default:
		b.Extreme = bpm
	}
	return b
}
