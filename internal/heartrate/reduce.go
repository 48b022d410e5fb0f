package heartrate

import "math"

// DefaultTargetPoints is the chart budget used when no target is given.
const DefaultTargetPoints = 5000

// Reduce downsamples samples to roughly targetCount points for charting.
//
// The first and last samples are always kept so the x-axis range is exact.
// Interior samples are grouped into consecutive chunks; each chunk is
// represented by its first sample, except that Min and Max (when the first
// sample carries them) become the extremes of the whole chunk. Series that
// already fit are returned as-is.
func Reduce(samples []Sample, targetCount int) []Sample {
	if len(samples) == 0 {
		return []Sample{}
	}
	if targetCount <= 0 {
		targetCount = DefaultTargetPoints
	}
	if len(samples) <= targetCount {
		return samples
	}

	factor := max(1, (len(samples)+targetCount-1)/targetCount)
	last := len(samples) - 1

	out := make([]Sample, 0, 2+(last-1+factor-1)/factor)
	out = append(out, samples[0])
	for i := 1; i < last; i += factor {
		out = append(out, collapse(samples[i:min(i+factor, last)]))
	}
	out = append(out, samples[last])
	return out
}

func collapse(chunk []Sample) Sample {
	p := chunk[0]
	if len(chunk) == 1 {
		return p
	}
	if p.Min != nil {
		if v, ok := extreme(chunk, func(s Sample) *float64 { return s.Min }, math.Min); ok {
			p.Min = &v
		}
	}
	if p.Max != nil {
		if v, ok := extreme(chunk, func(s Sample) *float64 { return s.Max }, math.Max); ok {
			p.Max = &v
		}
	}
	return p
}

// extreme folds pick over the non-NaN values of field across chunk.
func extreme(chunk []Sample, field func(Sample) *float64, pick func(a, b float64) float64) (float64, bool) {
	var (
		acc   float64
		found bool
	)
	for _, s := range chunk {
		v := field(s)
		if v == nil || math.IsNaN(*v) {
			continue
		}
		if !found {
			acc, found = *v, true
			continue
		}
		acc = pick(acc, *v)
	}
	return acc, found
}
