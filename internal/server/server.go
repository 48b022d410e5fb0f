package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/claude/pulseboard/internal/connections"
	"github.com/claude/pulseboard/internal/dashboard"
	"github.com/claude/pulseboard/internal/ingest"
	"github.com/claude/pulseboard/internal/player"
	"github.com/claude/pulseboard/internal/storage"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

// SyncLogStore lists recent ingest runs.
type SyncLogStore interface {
	QuerySyncLogs(ctx context.Context, limit int) ([]storage.SyncLog, error)
}

// Ingester stores a provider payload.
type Ingester interface {
	Ingest(ctx context.Context, source, origin string, body []byte) (*ingest.Result, error)
}

// Options tunes the HTTP surface.
type Options struct {
	APIKey         string
	RateLimitRPS   float64
	RateLimitBurst int
	// TrustedProxies are peers whose X-Forwarded-For header names the client.
	TrustedProxies []netip.Prefix
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db       SyncLogStore
	dash     *dashboard.Service
	ingester Ingester
	conns    *connections.Aggregator
	players  *player.Manager
	opts     Options
	log      *slog.Logger
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(db SyncLogStore, dash *dashboard.Service, ingester Ingester, conns *connections.Aggregator, players *player.Manager, opts Options, log *slog.Logger) *Server {
	s := &Server{
		db:       db,
		dash:     dash,
		ingester: ingester,
		conns:    conns,
		players:  players,
		opts:     opts,
		log:      log,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	if s.opts.RateLimitRPS > 0 {
		s.router.Use(RateLimit(rate.Limit(s.opts.RateLimitRPS), s.opts.RateLimitBurst, s.opts.TrustedProxies))
	}

	s.router.Get("/health", s.handleHealth)

	// Ingest endpoints (API key required)
	s.router.Route("/api/v1/ingest", func(r chi.Router) {
		r.Use(APIKeyAuth(s.opts.APIKey))
		r.Post("/{source}", s.handleIngest)
	})

	s.router.Get("/api/v1/heart-rate", s.handleHeartRate)
	s.router.Get("/api/v1/heart-rate/sources", s.handleHeartRateSources)
	s.router.Get("/api/v1/heart-rate/chart", s.handleHeartRateChart)
	s.router.Get("/api/v1/sync-logs", s.handleSyncLogs)

	s.router.Route("/api/v1/connections", func(r chi.Router) {
		r.Get("/", s.handleConnections)
		r.Post("/logout", s.handleLogoutAll)
		r.Post("/{service}/logout", s.handleLogout)
		r.Get("/{service}/login", s.handleLogin)
	})

	s.router.Route("/api/v1/player", func(r chi.Router) {
		r.Post("/", s.handleCreatePlayer)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handlePlayerState)
			r.Delete("/", s.handleDeletePlayer)
			r.Post("/play", s.handlePlayerPlay)
			r.Post("/toggle", s.playerAction(func(ctx context.Context, p *player.Session) error { return p.TogglePlay(ctx) }))
			r.Post("/next", s.playerAction(func(ctx context.Context, p *player.Session) error { return p.Next(ctx) }))
			r.Post("/previous", s.playerAction(func(ctx context.Context, p *player.Session) error { return p.Previous(ctx) }))
			r.Post("/mute", s.playerAction(func(ctx context.Context, p *player.Session) error { return p.ToggleMute(ctx) }))
			r.Post("/shuffle", s.playerAction(func(ctx context.Context, p *player.Session) error {
				p.ToggleShuffle(ctx)
				return nil
			}))
			r.Post("/repeat", s.playerAction(func(ctx context.Context, p *player.Session) error {
				p.CycleRepeat(ctx)
				return nil
			}))
			r.Post("/seek", s.handlePlayerSeek)
			r.Post("/volume", s.handlePlayerVolume)
			r.Post("/queue", s.handleQueueAdd)
			r.Delete("/queue", s.playerAction(func(ctx context.Context, p *player.Session) error {
				p.ClearQueue(ctx)
				return nil
			}))
			r.Delete("/queue/{songID}", s.handleQueueRemove)
		})
	})
}

// SetMCP mounts an MCP transport handler at /mcp.
func (s *Server) SetMCP(h http.Handler) {
	s.router.Handle("/mcp", h)
	s.router.Handle("/mcp/*", h)
}
