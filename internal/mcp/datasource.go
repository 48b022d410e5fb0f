package mcp

import (
	"context"
	"time"

	"github.com/claude/pulseboard/internal/connections"
	"github.com/claude/pulseboard/internal/dashboard"
	"github.com/claude/pulseboard/internal/heartrate"
)

// DataSource abstracts the data layer for MCP tools. Local (in-process) and
// HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	HeartRate(ctx context.Context, source string, start, end time.Time, target int) (heartrate.Series, error)
	Sources(ctx context.Context, start, end time.Time) ([]dashboard.SourceRank, error)
	Connections(ctx context.Context, force bool) (connections.State, error)
}

// Local serves tools from the running server's own components.
type Local struct {
	*dashboard.Service
	Conns *connections.Aggregator
}

// Compile-time check: Local satisfies DataSource.
var _ DataSource = Local{}

// Connections refreshes the aggregated view.
func (l Local) Connections(ctx context.Context, force bool) (connections.State, error) {
	return l.Conns.Refresh(ctx, force), nil
}
