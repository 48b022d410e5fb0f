package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cli/browser"
	"github.com/joho/godotenv"
)

const usage = `Usage: pulseboard-connect [-url <server URL>] <command>

Commands:
  status [-force]     show which integrations are connected
  login <service>     open the provider login page in the browser
  logout [service]    disconnect one service, or all of them

Services: fitbit, appleFitness, googleFit, youtubeMusic
`

type connectionState struct {
	Connected       map[string]bool `json:"connected"`
	IsAuthenticated bool            `json:"isAuthenticated"`
	User            *struct {
		DisplayName string `json:"displayName"`
		Email       string `json:"email"`
	} `json:"user"`
	AuthError string `json:"authError"`
}

func main() {
	_ = godotenv.Load()

	serverURL := flag.String("url", envOr("PULSEBOARD_URL", "http://localhost:8080"), "pulseboard server URL")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := &client{base: strings.TrimRight(*serverURL, "/"), http: &http.Client{}}

	var err error
	switch args[0] {
	case "status":
		fs := flag.NewFlagSet("status", flag.ExitOnError)
		force := fs.Bool("force", false, "ask the upstream to re-validate tokens")
		_ = fs.Parse(args[1:])
		err = c.status(ctx, *force)
	case "login":
		if len(args) != 2 {
			flag.Usage()
			os.Exit(2)
		}
		err = c.login(ctx, args[1])
	case "logout":
		path := "/api/v1/connections/logout"
		if len(args) == 2 {
			path = "/api/v1/connections/" + url.PathEscape(args[1]) + "/logout"
		}
		var state connectionState
		if err = c.do(ctx, http.MethodPost, path, &state); err == nil {
			printState(state)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

type client struct {
	base string
	http *http.Client
}

func (c *client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, out)
}

func (c *client) status(ctx context.Context, force bool) error {
	path := "/api/v1/connections"
	if force {
		path += "?force_reconnect=true"
	}
	var state connectionState
	if err := c.do(ctx, http.MethodGet, path, &state); err != nil {
		return err
	}
	printState(state)
	return nil
}

func (c *client) login(ctx context.Context, service string) error {
	var resp struct {
		AuthorizationURL string `json:"authorization_url"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/connections/"+url.PathEscape(service)+"/login", &resp); err != nil {
		return err
	}
	fmt.Println("Opening", resp.AuthorizationURL)
	if err := browser.OpenURL(resp.AuthorizationURL); err != nil {
		fmt.Println("Could not open a browser; visit the URL above to continue.")
	}
	return nil
}

func printState(state connectionState) {
	services := make([]string, 0, len(state.Connected))
	for svc := range state.Connected {
		services = append(services, svc)
	}
	sort.Strings(services)

	for _, svc := range services {
		mark := "-"
		if state.Connected[svc] {
			mark = "connected"
		}
		fmt.Printf("  %-14s %s\n", svc, mark)
	}
	fmt.Printf("authenticated: %t\n", state.IsAuthenticated)
	if state.User != nil {
		fmt.Printf("user: %s %s\n", state.User.DisplayName, state.User.Email)
	}
	if state.AuthError != "" {
		fmt.Printf("last error: %s\n", state.AuthError)
	}
}
