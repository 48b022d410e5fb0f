package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/claude/pulseboard/internal/ingest"
)

// Client sends provider payloads to the pulseboard ingest endpoint.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	retryBase  time.Duration
}

// NewClient creates a new HTTP client for the pulseboard server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		retryBase: time.Second,
	}
}

// Send POSTs one provider payload to /api/v1/ingest/{source}.
// Retries up to 3 times with exponential backoff on transport errors and 5xx.
func (c *Client) Send(ctx context.Context, source string, body []byte) (*ingest.Result, error) {
	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryBase << uint(attempt-1)):
			}
		}

		result, retry, err := c.send(ctx, source, body)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}

	return nil, fmt.Errorf("sending %s payload: %w", source, lastErr)
}

func (c *Client) send(ctx context.Context, source string, body []byte) (*ingest.Result, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/v1/ingest/"+source, bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode >= 500, fmt.Errorf("ingest failed (status %d): %s", resp.StatusCode, data)
	}

	var result ingest.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false, fmt.Errorf("decoding ingest result: %w", err)
	}
	return &result, false, nil
}
