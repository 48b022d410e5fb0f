package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// defaultTimeRange returns start/end defaulting to the last 7 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -7)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolGetHeartRate = mcp.NewTool("get_heart_rate",
	mcp.WithDescription("Retrieve a heart-rate series for one source. Points carry the bpm value, zone name and color, and min/max where the source provides them. Long ranges are downsampled, preserving the first and last sample and each chunk's extremes."),
	mcp.WithString("source", mcp.Required(), mcp.Description("Data source"), mcp.Enum("fitbit", "googleFit", "appleHealth")),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithNumber("target", mcp.Description("Approximate number of points to return. Defaults to 500.")),
)

var toolRankSources = mcp.NewTool("rank_sources",
	mcp.WithDescription("Rank the heart-rate sources with data in a time range by quality score (0-100: volume, field completeness, recency)."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
)

var toolGetConnections = mcp.NewTool("get_connections",
	mcp.WithDescription("Report which integrations (Fitbit, Apple Fitness, Google Fit, YouTube Music) are connected, whether the user is authenticated, and the user's identity."),
	mcp.WithBoolean("force", mcp.Description("Ask the upstream to re-validate tokens instead of using cached status.")),
)

const defaultToolTarget = 500

// --- Tool handlers ---

func (h *handlers) getHeartRate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError("source parameter is required"), nil
	}

	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	series, err := h.ds.HeartRate(ctx, source, start, end, req.GetInt("target", defaultToolTarget))
	if err != nil {
		h.log.Error("mcp get_heart_rate", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(series)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) rankSources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	ranks, err := h.ds.Sources(ctx, start, end)
	if err != nil {
		h.log.Error("mcp rank_sources", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(ranks)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getConnections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state, err := h.ds.Connections(ctx, req.GetBool("force", false))
	if err != nil {
		h.log.Error("mcp get_connections", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(state)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
