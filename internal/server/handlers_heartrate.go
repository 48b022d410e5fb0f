package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/claude/pulseboard/internal/dashboard"
	"github.com/claude/pulseboard/internal/heartrate"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

func (s *Server) querySeries(w http.ResponseWriter, r *http.Request) (heartrate.Series, bool) {
	source := r.URL.Query().Get("source")
	if source == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "source parameter required"})
		return heartrate.Series{}, false
	}
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return heartrate.Series{}, false
	}

	series, err := s.dash.HeartRate(r.Context(), source, start, end, queryInt(r, "target", 0))
	if err != nil {
		if errors.Is(err, dashboard.ErrUnknownSource) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return heartrate.Series{}, false
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return heartrate.Series{}, false
	}
	return series, true
}

func (s *Server) handleHeartRate(w http.ResponseWriter, r *http.Request) {
	if series, ok := s.querySeries(w, r); ok {
		writeJSON(w, http.StatusOK, series)
	}
}

func (s *Server) handleHeartRateSources(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	ranks, err := s.dash.Sources(r.Context(), start, end)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ranks)
}

func (s *Server) handleHeartRateChart(w http.ResponseWriter, r *http.Request) {
	series, ok := s.querySeries(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := zoneChart(series, s.dash.Location()).Render(&buf); err != nil {
		s.log.Error("chart render failed", "error", err)
		http.Error(w, "Failed to render chart", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.log.Error("chart write failed", "error", err)
	}
}

var bucketValue = []func(heartrate.ZoneBuckets) float64{
	func(b heartrate.ZoneBuckets) float64 { return b.Rest },
	func(b heartrate.ZoneBuckets) float64 { return b.FatBurn },
	func(b heartrate.ZoneBuckets) float64 { return b.Cardio },
	func(b heartrate.ZoneBuckets) float64 { return b.Peak },
	func(b heartrate.ZoneBuckets) float64 { return b.Extreme },
}

// zoneChart stacks each point's zone buckets so every zone keeps its colour.
func zoneChart(series heartrate.Series, loc *time.Location) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "macarons"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Heart Rate Zones",
			Subtitle: fmt.Sprintf("%s, quality %d, %d samples", series.Source, series.Quality, series.Count),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "bottom"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "bpm"}),
	)

	xAxis := make([]string, len(series.Points))
	for i, p := range series.Points {
		xAxis[i] = time.Unix(int64(p.Timestamp), 0).In(loc).Format("01-02 15:04")
	}
	line.SetXAxis(xAxis)

	for zi, zone := range heartrate.Zones {
		data := make([]opts.LineData, len(series.Points))
		for i, p := range series.Points {
			var v float64
			if p.ZoneBuckets != nil {
				v = bucketValue[zi](*p.ZoneBuckets)
			}
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(zone.Name, data,
			charts.WithLineChartOpts(opts.LineChart{Stack: "zones"}),
			charts.WithAreaStyleOpts(opts.AreaStyle{Color: zone.Color}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: zone.Color}),
		)
	}
	return line
}
