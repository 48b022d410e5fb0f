package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/pulseboard/internal/config"
	"github.com/claude/pulseboard/internal/connections"
	"github.com/claude/pulseboard/internal/dashboard"
	"github.com/claude/pulseboard/internal/heartrate"
	"github.com/claude/pulseboard/internal/ingest"
	pbmcp "github.com/claude/pulseboard/internal/mcp"
	"github.com/claude/pulseboard/internal/player"
	"github.com/claude/pulseboard/internal/server"
	"github.com/claude/pulseboard/internal/storage"
	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("pulseboard starting", "version", Version)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.New(ctx, dsn, cfg.Database.MaxConns)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	loc, err := cfg.Processing.Location()
	if err != nil {
		log.Error("invalid timezone", "error", err)
		os.Exit(1)
	}

	processor := heartrate.NewProcessor(loc, log)
	provider := ingest.NewProvider(db, loc, log)
	dash := dashboard.New(db, processor, cfg.Processing.TargetPoints)

	upstream := connections.NewHTTPClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, log)
	agg := connections.NewAggregator(upstream, log)
	go agg.Watch(ctx, cfg.Upstream.PollInterval)

	playerStore, err := player.OpenSQLiteStore(cfg.Player.StateDir)
	if err != nil {
		log.Error("failed to open player store", "error", err)
		os.Exit(1)
	}
	players := player.NewManager(playerStore, func(sessionCtx context.Context) player.PlaybackBackend {
		b := player.NewVirtualBackend()
		go b.Run(sessionCtx, time.Second)
		return b
	}, log)
	defer players.Close()

	trusted, err := cfg.Server.TrustedProxyPrefixes()
	if err != nil {
		log.Error("invalid trusted proxies", "error", err)
		os.Exit(1)
	}

	srv := server.New(db, dash, provider, agg, players, server.Options{
		APIKey:         cfg.Auth.APIKey,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		TrustedProxies: trusted,
	}, log)

	mcpSrv := pbmcp.New(pbmcp.Local{Service: dash, Conns: agg}, Version, log)
	srv.SetMCP(mcpserver.NewStreamableHTTPServer(mcpSrv))

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
