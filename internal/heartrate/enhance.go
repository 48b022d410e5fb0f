package heartrate

// Enhance returns new samples annotated with source, a resolved timestamp,
// value, zone name and color, a display time and the zone buckets. A sample
// whose date cannot be parsed is logged and passed through unchanged so one
// bad point never drops the batch.
func (p *Processor) Enhance(samples []Sample, source string) []Sample {
	if samples == nil {
		return []Sample{}
	}

	out := make([]Sample, len(samples))
	for i, s := range samples {
		enhanced, err := p.enhanceOne(s, source)
		if err != nil {
			p.log.Warn("passing heart rate sample through unenhanced",
				"source", source, "index", i, "error", err)
			out[i] = s
			continue
		}
		out[i] = enhanced
	}
	return out
}

func (p *Processor) enhanceOne(s Sample, source string) (Sample, error) {
	hr := s.HeartRate()
	zone := ClassifyZone(hr)

	t, ok, err := p.resolveTime(s)
	if err != nil {
		return s, err
	}
	if !ok {
		t = p.now()
	}

	timestamp := s.Timestamp
	if timestamp == 0 {
		timestamp = epochSeconds(t)
	}

	formatted := s.Time
	if formatted == "" {
		formatted = t.In(p.loc).Format("15:04:05")
	}

	buckets := Buckets(hr)

	out := s
	out.Source = source
	out.Timestamp = timestamp
	out.Value = Float(hr)
	out.ZoneName = zone.Name
	out.ZoneColor = zone.Color
	out.FormattedTime = formatted
	out.ZoneBuckets = &buckets
	return out, nil
}
