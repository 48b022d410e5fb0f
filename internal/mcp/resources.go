package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/claude/pulseboard/internal/heartrate"
	"github.com/mark3labs/mcp-go/mcp"
)

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *handlers) zones(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(req.Params.URI, heartrate.Zones)
}

func (h *handlers) sourceRanking(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	end := time.Now()
	ranks, err := h.ds.Sources(ctx, end.AddDate(0, 0, -7), end)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, ranks)
}
