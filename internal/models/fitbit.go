package models

// FitbitHeartPayload is the Fitbit Web API heart-rate time series response
// (GET /1/user/-/activities/heart/date/...). Intraday data is present only
// for single-day requests.
type FitbitHeartPayload struct {
	ActivitiesHeart         []FitbitHeartDay     `json:"activities-heart"`
	ActivitiesHeartIntraday *FitbitHeartIntraday `json:"activities-heart-intraday,omitempty"`
}

// FitbitHeartDay is one day's summary.
type FitbitHeartDay struct {
	DateTime string              `json:"dateTime"` // "2006-01-02"
	Value    FitbitHeartDayValue `json:"value"`
}

// FitbitHeartDayValue holds the zone table and resting rate.
type FitbitHeartDayValue struct {
	RestingHeartRate float64           `json:"restingHeartRate"`
	HeartRateZones   []FitbitHeartZone `json:"heartRateZones"`
}

// FitbitHeartZone is a Fitbit-defined zone with its bpm range.
type FitbitHeartZone struct {
	Name        string  `json:"name"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Minutes     float64 `json:"minutes"`
	CaloriesOut float64 `json:"caloriesOut"`
}

// FitbitHeartIntraday is the per-second/minute dataset.
type FitbitHeartIntraday struct {
	Dataset         []FitbitIntradayPoint `json:"dataset"`
	DatasetInterval int                   `json:"datasetInterval"`
	DatasetType     string                `json:"datasetType"`
}

// FitbitIntradayPoint is a single reading.
type FitbitIntradayPoint struct {
	Time  string  `json:"time"` // "15:04:05"
	Value float64 `json:"value"`
}

// FitbitOutOfRangeZone is the zone whose minimum is the day's floor.
const FitbitOutOfRangeZone = "Out of Range"
