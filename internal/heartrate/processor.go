package heartrate

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

// Processor enhances and scores samples. Calendar dates without an explicit
// zone are interpreted in its location.
type Processor struct {
	loc *time.Location
	now func() time.Time
	log *slog.Logger
}

// NewProcessor creates a Processor. A nil location means time.Local.
func NewProcessor(loc *time.Location, log *slog.Logger) *Processor {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = slog.Default()
	}
	return &Processor{loc: loc, now: time.Now, log: log}
}

// Location returns the zone used for calendar dates and display times.
func (p *Processor) Location() *time.Location { return p.loc }

var defaultProcessor = NewProcessor(time.Local, nil)

// Enhance annotates samples using the default processor.
func Enhance(samples []Sample, source string) []Sample {
	return defaultProcessor.Enhance(samples, source)
}

// QualityScore scores samples using the default processor.
func QualityScore(samples []Sample) int {
	return defaultProcessor.QualityScore(samples)
}

// Layouts accepted for Sample.Date (optionally followed by " "+Sample.Time).
var dateLayouts = []string{
	"2006-01-02 15:04:05 -0700",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// resolveTime returns the instant a sample describes. ok is false when the
// sample carries no time information at all.
func (p *Processor) resolveTime(s Sample) (t time.Time, ok bool, err error) {
	if s.Timestamp != 0 && !math.IsNaN(s.Timestamp) {
		sec, frac := math.Modf(s.Timestamp)
		return time.Unix(int64(sec), int64(frac*1e9)), true, nil
	}
	if s.Date == "" {
		return time.Time{}, false, nil
	}

	value := strings.TrimSpace(s.Date)
	if s.Time != "" {
		value += " " + strings.TrimSpace(s.Time)
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, p.loc); err == nil {
			return t, true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("cannot parse sample date %q", value)
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000
}
