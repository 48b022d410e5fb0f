package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/pulseboard/internal/connections"
	"github.com/claude/pulseboard/internal/dashboard"
	"github.com/claude/pulseboard/internal/heartrate"
)

// HTTPClient implements DataSource by calling the pulseboard REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

func timeParams(start, end time.Time) url.Values {
	v := url.Values{}
	v.Set("start", start.Format(time.RFC3339))
	v.Set("end", end.Format(time.RFC3339))
	return v
}

func (c *HTTPClient) HeartRate(ctx context.Context, source string, start, end time.Time, target int) (heartrate.Series, error) {
	params := timeParams(start, end)
	params.Set("source", source)
	if target > 0 {
		params.Set("target", strconv.Itoa(target))
	}

	body, err := c.get(ctx, "/api/v1/heart-rate", params)
	if err != nil {
		return heartrate.Series{}, err
	}

	var series heartrate.Series
	if err := json.Unmarshal(body, &series); err != nil {
		return heartrate.Series{}, fmt.Errorf("httpclient: decode heart rate: %w", err)
	}
	return series, nil
}

func (c *HTTPClient) Sources(ctx context.Context, start, end time.Time) ([]dashboard.SourceRank, error) {
	body, err := c.get(ctx, "/api/v1/heart-rate/sources", timeParams(start, end))
	if err != nil {
		return nil, err
	}

	var ranks []dashboard.SourceRank
	if err := json.Unmarshal(body, &ranks); err != nil {
		return nil, fmt.Errorf("httpclient: decode sources: %w", err)
	}
	return ranks, nil
}

func (c *HTTPClient) Connections(ctx context.Context, force bool) (connections.State, error) {
	var params url.Values
	if force {
		params = url.Values{"force_reconnect": {"true"}}
	}
	body, err := c.get(ctx, "/api/v1/connections", params)
	if err != nil {
		return connections.State{}, err
	}

	var state connections.State
	if err := json.Unmarshal(body, &state); err != nil {
		return connections.State{}, fmt.Errorf("httpclient: decode connections: %w", err)
	}
	return state, nil
}
