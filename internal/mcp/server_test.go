package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/claude/pulseboard/internal/connections"
	"github.com/claude/pulseboard/internal/dashboard"
	"github.com/claude/pulseboard/internal/heartrate"
	"github.com/mark3labs/mcp-go/mcp"
)

// fakeDataSource records the arguments tools pass through.
type fakeDataSource struct {
	series    heartrate.Series
	ranks     []dashboard.SourceRank
	state     connections.State
	err       error
	gotSource string
	gotTarget int
	gotStart  time.Time
	gotForce  bool
}

func (f *fakeDataSource) HeartRate(_ context.Context, source string, start, _ time.Time, target int) (heartrate.Series, error) {
	f.gotSource, f.gotStart, f.gotTarget = source, start, target
	return f.series, f.err
}

func (f *fakeDataSource) Sources(_ context.Context, start, _ time.Time) ([]dashboard.SourceRank, error) {
	f.gotStart = start
	return f.ranks, f.err
}

func (f *fakeDataSource) Connections(_ context.Context, force bool) (connections.State, error) {
	f.gotForce = force
	return f.state, f.err
}

func testHandlers(ds DataSource) *handlers {
	return &handlers{ds: ds, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

// TestDefaultTimeRange verifies time range defaults (last 7 days) and parsing.
func TestDefaultTimeRange(t *testing.T) {
	start, end, err := defaultTimeRange("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	diff := end.Sub(start)
	if diff.Hours() < 167 || diff.Hours() > 169 {
		t.Errorf("default range = %.0f hours, want ~168", diff.Hours())
	}

	start, end, err = defaultTimeRange("2024-01-01", "2024-01-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Day() != 1 || end.Day() != 31 {
		t.Errorf("range = %v..%v, want 2024-01-01..2024-01-31", start, end)
	}

	start, _, err = defaultTimeRange("2024-06-15T10:30:00Z", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Hour() != 10 || start.Minute() != 30 {
		t.Errorf("start = %v, want 10:30", start)
	}

	if _, _, err := defaultTimeRange("not-a-date", ""); err == nil {
		t.Error("expected error for invalid date")
	}
}

// TestGetHeartRateTool verifies arguments reach the data source and the series
// is returned as JSON.
func TestGetHeartRateTool(t *testing.T) {
	ds := &fakeDataSource{series: heartrate.Series{
		Source:  "fitbit",
		Quality: 71,
		Count:   2,
		Points:  []heartrate.Sample{{Source: "fitbit", Value: heartrate.Float(72), ZoneName: "Cardio"}},
	}}
	h := testHandlers(ds)

	res, err := h.getHeartRate(context.Background(), callRequest(map[string]any{
		"source": "fitbit",
		"start":  "2026-01-01",
		"target": float64(50),
	}))
	if err != nil {
		t.Fatalf("getHeartRate: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if ds.gotSource != "fitbit" || ds.gotTarget != 50 {
		t.Errorf("source, target = %q, %d, want fitbit, 50", ds.gotSource, ds.gotTarget)
	}
	if want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC); !ds.gotStart.Equal(want) {
		t.Errorf("start = %v, want %v", ds.gotStart, want)
	}

	var got heartrate.Series
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Quality != 71 || len(got.Points) != 1 || got.Points[0].ZoneName != "Cardio" {
		t.Errorf("series = %+v", got)
	}
}

// TestGetHeartRateToolDefaults verifies the default target and the required
// source argument.
func TestGetHeartRateToolDefaults(t *testing.T) {
	ds := &fakeDataSource{}
	h := testHandlers(ds)

	res, _ := h.getHeartRate(context.Background(), callRequest(map[string]any{"source": "googleFit"}))
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if ds.gotTarget != defaultToolTarget {
		t.Errorf("target = %d, want %d", ds.gotTarget, defaultToolTarget)
	}

	res, _ = h.getHeartRate(context.Background(), callRequest(map[string]any{}))
	if !res.IsError {
		t.Error("missing source should be a tool error")
	}
}

// TestToolErrors verifies data source failures and bad dates surface as tool
// errors rather than protocol errors.
func TestToolErrors(t *testing.T) {
	h := testHandlers(&fakeDataSource{err: errors.New("db down")})

	res, err := h.rankSources(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("rankSources: %v", err)
	}
	if !res.IsError {
		t.Error("rank_sources should report the data source failure")
	}

	res, _ = h.getHeartRate(context.Background(), callRequest(map[string]any{"source": "fitbit", "end": "yesterday"}))
	if !res.IsError {
		t.Error("invalid end date should be a tool error")
	}
}

// TestRankSourcesTool verifies ranked sources are returned in order.
func TestRankSourcesTool(t *testing.T) {
	h := testHandlers(&fakeDataSource{ranks: []dashboard.SourceRank{
		{Source: "appleHealth", Quality: 90, Count: 900},
		{Source: "fitbit", Quality: 40, Count: 12},
	}})

	res, _ := h.rankSources(context.Background(), callRequest(nil))
	var got []dashboard.SourceRank
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].Source != "appleHealth" {
		t.Errorf("ranks = %+v, want appleHealth first", got)
	}
}

// TestGetConnectionsTool verifies the force flag is forwarded and the state
// returned.
func TestGetConnectionsTool(t *testing.T) {
	conns := connections.NewConnections()
	conns[connections.Fitbit] = true
	ds := &fakeDataSource{state: connections.State{Connected: conns, IsAuthenticated: true}}
	h := testHandlers(ds)

	res, _ := h.getConnections(context.Background(), callRequest(map[string]any{"force": true}))
	if !ds.gotForce {
		t.Error("force flag not forwarded")
	}
	var got connections.State
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.IsAuthenticated || !got.Connected[connections.Fitbit] {
		t.Errorf("state = %+v", got)
	}
}

// TestZonesResource verifies the zones resource lists every zone.
func TestZonesResource(t *testing.T) {
	h := testHandlers(&fakeDataSource{})

	var req mcp.ReadResourceRequest
	req.Params.URI = "pulseboard://zones"
	contents, err := h.zones(context.Background(), req)
	if err != nil {
		t.Fatalf("zones: %v", err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents type = %T", contents[0])
	}
	var zones []map[string]any
	if err := json.Unmarshal([]byte(tc.Text), &zones); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(zones) != len(heartrate.Zones) {
		t.Errorf("len(zones) = %d, want %d", len(zones), len(heartrate.Zones))
	}
	if tc.URI != req.Params.URI {
		t.Errorf("URI = %q, want %q", tc.URI, req.Params.URI)
	}
}

// TestNewRegistersTools verifies the server builds without panicking.
func TestNewRegistersTools(t *testing.T) {
	if s := New(&fakeDataSource{}, "test", slog.New(slog.NewTextHandler(io.Discard, nil))); s == nil {
		t.Fatal("New returned nil")
	}
}
