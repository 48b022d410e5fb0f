package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("pulseboard", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("pulseboard heart-rate server. Query zone-annotated heart-rate series from Fitbit, Google Fit and Apple Health, compare source quality, and check which integrations are connected."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetHeartRate, Handler: h.getHeartRate},
		server.ServerTool{Tool: toolRankSources, Handler: h.rankSources},
		server.ServerTool{Tool: toolGetConnections, Handler: h.getConnections},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resZones, Handler: h.zones},
		server.ServerResource{Resource: resSourceRanking, Handler: h.sourceRanking},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resZones = mcp.NewResource(
	"pulseboard://zones",
	"Heart Rate Zones",
	mcp.WithResourceDescription("Zone names, colors and lower bounds in bpm used to classify samples"),
	mcp.WithMIMEType("application/json"),
)

var resSourceRanking = mcp.NewResource(
	"pulseboard://source_ranking",
	"Source Ranking",
	mcp.WithResourceDescription("Heart-rate sources from the last 7 days ranked by data quality"),
	mcp.WithMIMEType("application/json"),
)
