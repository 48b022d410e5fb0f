package models

import (
	"encoding/json"
	"strconv"
)

// GoogleFitAggregate is the response of the Fitness API dataset:aggregate call.
type GoogleFitAggregate struct {
	Bucket []GoogleFitBucket `json:"bucket"`
}

// GoogleFitBucket is one time bucket.
type GoogleFitBucket struct {
	StartTimeMillis Millis             `json:"startTimeMillis"`
	EndTimeMillis   Millis             `json:"endTimeMillis"`
	Dataset         []GoogleFitDataset `json:"dataset"`
}

// GoogleFitDataset is one data source's points within a bucket.
type GoogleFitDataset struct {
	DataSourceID string           `json:"dataSourceId"`
	Point        []GoogleFitPoint `json:"point"`
}

// GoogleFitPoint is a single aggregated point.
type GoogleFitPoint struct {
	DataTypeName string           `json:"dataTypeName"`
	Value        []GoogleFitValue `json:"value"`
}

// GoogleFitValue holds either a float or an int value.
type GoogleFitValue struct {
	FpVal  *float64 `json:"fpVal,omitempty"`
	IntVal *int64   `json:"intVal,omitempty"`
}

// Millis is a millisecond epoch that Google encodes as a JSON string.
type Millis int64

func (m *Millis) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*m = Millis(v)
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Millis(v)
	return nil
}
