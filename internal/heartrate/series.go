package heartrate

import (
	"cmp"
	"slices"
)

// Series is a chart-ready heart-rate series for one source.
type Series struct {
	Source  string   `json:"source"`
	Quality int      `json:"quality"`
	Count   int      `json:"count"`
	Points  []Sample `json:"points"`
}

// Build enhances samples, scores the full set and reduces it to roughly
// targetCount points.
func (p *Processor) Build(samples []Sample, source string, targetCount int) Series {
	enhanced := p.Enhance(samples, source)
	return Series{
		Source:  source,
		Quality: p.QualityScore(enhanced),
		Count:   len(enhanced),
		Points:  Reduce(enhanced, targetCount),
	}
}

// Rank returns series ordered best quality first. Ties keep their input order.
func Rank(series []Series) []Series {
	out := slices.Clone(series)
	slices.SortStableFunc(out, func(a, b Series) int { return cmp.Compare(b.Quality, a.Quality) })
	return out
}
