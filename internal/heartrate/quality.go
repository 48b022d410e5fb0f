package heartrate

import "math"

const (
	maxVolumeScore       = 40
	maxCompletenessScore = 30
	maxRecencyScore      = 30
)

// QualityScore rates a series from 0 to 100 so the dashboard can pick the best
// source. Up to 40 points come from volume (one per ten samples), 30 from field
// completeness and 30 from recency of the last sample, which loses a point per
// eight hours of age. An unresolvable last timestamp keeps full recency.
func (p *Processor) QualityScore(samples []Sample) int {
	if len(samples) == 0 {
		return 0
	}
	n := float64(len(samples))

	volume := math.Min(maxVolumeScore, n/10)

	var credit float64
	for _, s := range samples {
		if present(s.Avg) || present(s.Value) {
			credit += 2
		}
		if present(s.Min) {
			credit++
		}
		if present(s.Max) {
			credit++
		}
		if present(s.RestingHeartRate) {
			credit++
		}
	}
	completeness := math.Min(maxCompletenessScore, credit/(n*5)*maxCompletenessScore)

	recency := float64(maxRecencyScore)
	t, ok, err := p.resolveTime(samples[len(samples)-1])
	switch {
	case err != nil:
		p.log.Debug("recency score left at default", "error", err)
	case ok:
		hours := math.Abs(p.now().Sub(t).Hours())
		recency = math.Max(0, maxRecencyScore-hours/8)
	}

	total := math.Round(volume + completeness + recency)
	return int(math.Max(0, math.Min(100, total)))
}
