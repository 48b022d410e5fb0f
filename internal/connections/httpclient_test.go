package connections

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// newTestServer routes requests to handlers keyed by path.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

func newTestClient(url string) *HTTPClient {
	c := NewHTTPClient(url, 5*time.Second, quietLogger())
	c.retryBase = time.Millisecond
	return c
}

// TestConsolidatedForceReconnect verifies the force flag and snake_case decoding.
func TestConsolidatedForceReconnect(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/auth/connections": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("force_reconnect"); got != "true" {
				t.Errorf("force_reconnect=%q, want true", got)
			}
			writeTestJSON(t, w, map[string]any{
				"connected": map[string]bool{"fitbit": false, "google_fit": true, "youtube_music": true},
			})
		},
	})

	conns, err := newTestClient(ts.URL).Consolidated(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	if conns[Fitbit] || !conns[GoogleFit] || !conns[YouTubeMusic] || conns[AppleFitness] {
		t.Errorf("connections = %v", conns)
	}
}

// TestConsolidatedMissingObject verifies a reply without "connected" counts as a failure.
func TestConsolidatedMissingObject(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/auth/connections": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, map[string]any{"ok": true})
		},
	})
	if _, err := newTestClient(ts.URL).Consolidated(context.Background(), false); err == nil {
		t.Error("expected error")
	}
}

// TestStatusYouTubeInlineProfile verifies the YouTube status carries its profile.
func TestStatusYouTubeInlineProfile(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/youtube-music/status": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, map[string]any{
				"connected": true,
				"profile":   map[string]string{"name": "Listener", "email": "l@example.com", "picture": "p.png"},
			})
		},
	})
	st, err := newTestClient(ts.URL).Status(context.Background(), YouTubeMusic, false)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Connected || st.Profile == nil || st.Profile.DisplayName != "Listener" {
		t.Errorf("status = %+v", st)
	}
}

// TestProfileShapes verifies the enveloped and flat profile payloads.
func TestProfileShapes(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/fitbit/profile": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, map[string]any{"user": map[string]string{"displayName": "Fit", "avatar": "a.png"}})
		},
		"/api/google-fit/profile": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, map[string]string{"displayName": "Goog", "email": "g@example.com", "picture": "g.png"})
		},
	})
	c := newTestClient(ts.URL)

	fit, err := c.Profile(context.Background(), Fitbit)
	if err != nil || fit == nil || fit.DisplayName != "Fit" || fit.Avatar != "a.png" {
		t.Errorf("fitbit profile = %+v, %v", fit, err)
	}
	goog, err := c.Profile(context.Background(), GoogleFit)
	if err != nil || goog == nil || goog.Email != "g@example.com" {
		t.Errorf("google profile = %+v, %v", goog, err)
	}
	if _, err := c.Profile(context.Background(), YouTubeMusic); err == nil {
		t.Error("expected error: YouTube Music has no profile endpoint")
	}
}

// TestRetryOnRateLimit verifies 429 replies are retried until success.
func TestRetryOnRateLimit(t *testing.T) {
	var hits atomic.Int32
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/google-fit/status": func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			writeTestJSON(t, w, map[string]bool{"connected": true})
		},
	})
	st, err := newTestClient(ts.URL).Status(context.Background(), GoogleFit, false)
	if err != nil || !st.Connected {
		t.Fatalf("status = %+v, %v", st, err)
	}
	if hits.Load() != 3 {
		t.Errorf("hits = %d, want 3", hits.Load())
	}
}

// TestRetryGivesUp verifies persistent server errors stop after the retry budget.
func TestRetryGivesUp(t *testing.T) {
	var hits atomic.Int32
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/auth/connections": func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		},
	})
	if _, err := newTestClient(ts.URL).Consolidated(context.Background(), false); err == nil {
		t.Fatal("expected error")
	}
	if hits.Load() != maxRetries+1 {
		t.Errorf("hits = %d, want %d", hits.Load(), maxRetries+1)
	}
}

// TestNoRetryOnUnauthorized verifies 401 is returned immediately.
func TestNoRetryOnUnauthorized(t *testing.T) {
	var hits atomic.Int32
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/fitbit/profile": func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		},
	})
	_, err := newTestClient(ts.URL).Profile(context.Background(), Fitbit)
	se, ok := err.(*StatusError)
	if !ok || se.Code != http.StatusUnauthorized {
		t.Fatalf("err = %v, want 401 StatusError", err)
	}
	if hits.Load() != 1 {
		t.Errorf("hits = %d, want 1", hits.Load())
	}
}

// TestDisconnectMethods verifies each service uses its own verb and path.
func TestDisconnectMethods(t *testing.T) {
	seen := map[string]string{}
	handler := func(w http.ResponseWriter, r *http.Request) {
		seen[r.URL.Path] = r.Method
		writeTestJSON(t, w, map[string]bool{"success": true})
	}
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/auth/logout":              handler,
		"/api/apple-fitness/logout":     handler,
		"/api/google-fit/disconnect":    handler,
		"/api/youtube-music/disconnect": handler,
	})
	c := newTestClient(ts.URL)
	for _, svc := range Services {
		if err := c.Disconnect(context.Background(), svc); err != nil {
			t.Errorf("%s: %v", svc, err)
		}
	}
	want := map[string]string{
		"/api/auth/logout":              http.MethodPost,
		"/api/apple-fitness/logout":     http.MethodPost,
		"/api/google-fit/disconnect":    http.MethodGet,
		"/api/youtube-music/disconnect": http.MethodGet,
	}
	for path, method := range want {
		if seen[path] != method {
			t.Errorf("%s method = %q, want %q", path, seen[path], method)
		}
	}
}

// TestDisconnectReportedFailure verifies {"success": false} becomes an error.
func TestDisconnectReportedFailure(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/google-fit/disconnect": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, map[string]any{"success": false, "error": "token revoked"})
		},
	})
	err := newTestClient(ts.URL).Disconnect(context.Background(), GoogleFit)
	if err == nil || err.Error() != "token revoked" {
		t.Errorf("err = %v, want token revoked", err)
	}
}

// TestLoginURL verifies the fetched and redirect-style authorization URLs.
func TestLoginURL(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/auth/login": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, map[string]string{"authorization_url": "https://www.fitbit.com/oauth2/authorize?x=1"})
		},
	})
	c := newTestClient(ts.URL)

	u, err := c.LoginURL(context.Background(), Fitbit)
	if err != nil || u != "https://www.fitbit.com/oauth2/authorize?x=1" {
		t.Errorf("fitbit = %q, %v", u, err)
	}
	u, err = c.LoginURL(context.Background(), GoogleFit)
	if err != nil || u != ts.URL+"/api/google-fit/auth" {
		t.Errorf("google = %q, %v", u, err)
	}
}

// TestAggregatorOverHTTP runs a fallback refresh against a stub backend.
func TestAggregatorOverHTTP(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/auth/connections": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		},
		"/api/fitbit/status": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, map[string]bool{"connected": true})
		},
		"/api/fitbit/profile": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, map[string]any{"user": map[string]string{"displayName": "Fit"}})
		},
		"/api/apple-fitness/status": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		},
		"/api/google-fit/status": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, map[string]bool{"connected": true})
		},
		"/api/youtube-music/status": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, map[string]bool{"connected": false})
		},
	})

	st := NewAggregator(newTestClient(ts.URL), quietLogger()).Refresh(context.Background(), false)
	if !st.IsAuthenticated || st.User == nil || st.User.DisplayName != "Fit" {
		t.Errorf("state = %+v, want authenticated as Fit", st)
	}
	if st.Connected[AppleFitness] || !st.Connected[GoogleFit] {
		t.Errorf("connected = %v", st.Connected)
	}
}
