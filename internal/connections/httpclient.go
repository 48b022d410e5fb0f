package connections

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// route describes how to reach one service on the backend.
type route struct {
	status         string
	forceParam     bool
	profile        string
	decodeProfile  func([]byte) (*Identity, error)
	disconnect     string
	disconnectVerb string
	login          string
	// redirect is used instead of login when the backend starts the OAuth
	// flow with a plain redirect.
	redirect string
}

var routes = map[Service]route{
	Fitbit: {
		status:         "/api/fitbit/status",
		profile:        "/api/fitbit/profile",
		decodeProfile:  decodeUserEnvelope,
		disconnect:     "/api/auth/logout",
		disconnectVerb: http.MethodPost,
		login:          "/api/auth/login",
	},
	AppleFitness: {
		status:         "/api/apple-fitness/status",
		profile:        "/api/apple-fitness/profile",
		decodeProfile:  decodeUserEnvelope,
		disconnect:     "/api/apple-fitness/logout",
		disconnectVerb: http.MethodPost,
		login:          "/api/apple-fitness/login",
	},
	GoogleFit: {
		status:         "/api/google-fit/status",
		profile:        "/api/google-fit/profile",
		decodeProfile:  decodeFlatProfile,
		disconnect:     "/api/google-fit/disconnect",
		disconnectVerb: http.MethodGet,
		redirect:       "/api/google-fit/auth",
	},
	YouTubeMusic: {
		status:         "/api/youtube-music/status",
		forceParam:     true,
		disconnect:     "/api/youtube-music/disconnect",
		disconnectVerb: http.MethodGet,
		login:          "/api/youtube-music/auth",
	},
}

const (
	maxRetries       = 3
	defaultRetryBase = time.Second
)

// StatusError is returned for a non-2xx upstream response.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Path, e.Code, e.Body)
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// HTTPClient implements Upstream against the backend REST API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
	retryBase  time.Duration
	// one status check per service per second
	limiters map[Service]*rate.Limiter
}

// Compile-time check: HTTPClient satisfies Upstream.
var _ Upstream = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient for the backend at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration, log *slog.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	limiters := make(map[Service]*rate.Limiter, len(Services))
	for _, s := range Services {
		limiters[s] = rate.NewLimiter(rate.Every(time.Second), 1)
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
		retryBase:  defaultRetryBase,
		limiters:   limiters,
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	for attempt := 0; ; attempt++ {
		body, err := c.once(ctx, method, u, path)
		var se *StatusError
		if err == nil || !errors.As(err, &se) || !retryable(se.Code) || attempt >= maxRetries {
			return body, err
		}

		delay := c.retryBase << attempt
		if c.retryBase > 0 {
			delay += rand.N(c.retryBase)
		}
		c.log.Warn("upstream busy, retrying", "path", path, "status", se.Code,
			"attempt", attempt+1, "max", maxRetries, "delay", delay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *HTTPClient) once(ctx context.Context, method, u, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

func forceParams(force bool) url.Values {
	if !force {
		return nil
	}
	return url.Values{"force_reconnect": {"true"}}
}

// Consolidated calls GET /api/auth/connections.
func (c *HTTPClient) Consolidated(ctx context.Context, force bool) (Connections, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/auth/connections", forceParams(force))
	if err != nil {
		return nil, err
	}

	var resp struct {
		Connected *struct {
			Fitbit       bool `json:"fitbit"`
			GoogleFit    bool `json:"google_fit"`
			YouTubeMusic bool `json:"youtube_music"`
		} `json:"connected"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode connections: %w", err)
	}
	if resp.Connected == nil {
		return nil, errors.New("connections response has no connected object")
	}

	conns := NewConnections()
	conns[Fitbit] = resp.Connected.Fitbit
	conns[GoogleFit] = resp.Connected.GoogleFit
	conns[YouTubeMusic] = resp.Connected.YouTubeMusic
	return conns, nil
}

// Status checks one service. Checks are debounced per service.
func (c *HTTPClient) Status(ctx context.Context, svc Service, force bool) (Status, error) {
	r, ok := routes[svc]
	if !ok {
		return Status{}, fmt.Errorf("unknown service %q", svc)
	}
	if err := c.limiters[svc].Wait(ctx); err != nil {
		return Status{}, fmt.Errorf("%s status: %w", svc, err)
	}

	var params url.Values
	if r.forceParam {
		params = forceParams(force)
	}
	body, err := c.do(ctx, http.MethodGet, r.status, params)
	if err != nil {
		return Status{}, err
	}

	var resp struct {
		Connected bool `json:"connected"`
		Profile   *struct {
			Name    string `json:"name"`
			Email   string `json:"email"`
			Picture string `json:"picture"`
		} `json:"profile"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Status{}, fmt.Errorf("decode %s status: %w", svc, err)
	}

	st := Status{Connected: resp.Connected}
	if resp.Profile != nil {
		st.Profile = &Identity{
			DisplayName: resp.Profile.Name,
			Email:       resp.Profile.Email,
			Picture:     resp.Profile.Picture,
		}
	}
	return st, nil
}

// Profile fetches the user profile from an identity-bearing service.
func (c *HTTPClient) Profile(ctx context.Context, svc Service) (*Identity, error) {
	r, ok := routes[svc]
	if !ok || r.profile == "" {
		return nil, fmt.Errorf("%s has no profile endpoint", svc)
	}
	body, err := c.do(ctx, http.MethodGet, r.profile, nil)
	if err != nil {
		return nil, err
	}
	id, err := r.decodeProfile(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s profile: %w", svc, err)
	}
	return id, nil
}

func decodeUserEnvelope(body []byte) (*Identity, error) {
	var resp struct {
		User *Identity `json:"user"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

func decodeFlatProfile(body []byte) (*Identity, error) {
	var id Identity
	if err := json.Unmarshal(body, &id); err != nil {
		return nil, err
	}
	if id == (Identity{}) {
		return nil, nil
	}
	return &id, nil
}

// Disconnect unlinks svc on the backend.
func (c *HTTPClient) Disconnect(ctx context.Context, svc Service) error {
	r, ok := routes[svc]
	if !ok {
		return fmt.Errorf("unknown service %q", svc)
	}
	body, err := c.do(ctx, r.disconnectVerb, r.disconnect, nil)
	if err != nil {
		return err
	}

	var resp struct {
		Success *bool  `json:"success"`
		Error   string `json:"error"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("decode %s disconnect: %w", svc, err)
		}
	}
	if resp.Success != nil && !*resp.Success {
		if resp.Error != "" {
			return errors.New(resp.Error)
		}
		return errors.New("backend reported failure")
	}
	return nil
}

// LoginURL returns the authorization URL for svc.
func (c *HTTPClient) LoginURL(ctx context.Context, svc Service) (string, error) {
	r, ok := routes[svc]
	if !ok {
		return "", fmt.Errorf("unknown service %q", svc)
	}
	if r.redirect != "" {
		return c.baseURL + r.redirect, nil
	}

	body, err := c.do(ctx, http.MethodGet, r.login, nil)
	if err != nil {
		return "", err
	}
	var resp struct {
		AuthorizationURL string `json:"authorization_url"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode %s login: %w", svc, err)
	}
	return resp.AuthorizationURL, nil
}
