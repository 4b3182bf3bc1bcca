package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/coachplan/internal/aigen"
	"github.com/claude/coachplan/internal/anamnesis"
	"github.com/claude/coachplan/internal/catalog"
	"github.com/claude/coachplan/internal/config"
	"github.com/claude/coachplan/internal/matcher"
	"github.com/claude/coachplan/internal/mcp"
	"github.com/claude/coachplan/internal/models"
	"github.com/claude/coachplan/internal/plan"
	"github.com/claude/coachplan/internal/server"
	"github.com/claude/coachplan/internal/session"
	"github.com/claude/coachplan/internal/storage"
	"github.com/claude/coachplan/internal/storage/memory"
	"github.com/claude/coachplan/internal/sweeper"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// store is everything the services need from a backend.
type store interface {
	plan.Store
	session.Store
	catalog.Store
	anamnesis.Store
	matcher.Catalog
}

var (
	_ store = (*storage.DB)(nil)
	_ store = (*memory.Store)(nil)
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	log.Info("coachplan starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var st store
	switch cfg.Database.Driver {
	case config.DriverMemory:
		st = memory.New()
		log.Warn("using in-memory store, data is lost on exit")
		if *migrateOnly {
			log.Info("migrate-only: nothing to migrate for memory driver")
			return
		}
	default:
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

		db, err := storage.New(ctx, dsn)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		st = db
		log.Info("database connected")
	}

	// AI notifications
	var notifier aigen.Notifier = aigen.LogNotifier{Log: log}
	if cfg.AI.WebhookURL != "" {
		notifier = aigen.NewWebhookNotifier(cfg.AI.WebhookURL, cfg.AI.APIKey, cfg.AI.RatePerMinute)
		log.Info("ai webhook configured", "url", cfg.AI.WebhookURL)
	} else {
		log.Warn("ai webhook not configured, plan requests will only be logged")
	}
	dispatcher := aigen.NewDispatcher(notifier, cfg.AI.Timeout, log)

	// Services
	catalogSvc := catalog.NewService(st, log)
	plans := plan.NewService(st, matcher.New(st, log), dispatcher, log)
	svc := server.Services{
		Plans:     plans,
		Sessions:  session.NewExecutor(st, log),
		Catalog:   catalogSvc,
		Anamnesis: anamnesis.NewService(st, log),
	}

	var sweep *sweeper.Sweeper
	if cfg.Sweeper.Enabled {
		sweep = sweeper.New(plans, cfg.Sweeper.StaleAfter, cfg.Sweeper.Renotify, log)
		if err := sweep.Start(ctx, cfg.Sweeper.Schedule); err != nil {
			log.Error("sweeper start failed", "error", err)
			os.Exit(1)
		}
	}

	var identity func(http.Handler) http.Handler
	if cfg.Auth.DevPrincipal != "" {
		role, id, err := config.ParsePrincipal(cfg.Auth.DevPrincipal)
		if err != nil {
			log.Error("invalid dev principal", "error", err)
			os.Exit(1)
		}
		r, err := models.ParseRole(role)
		if err != nil {
			log.Error("invalid dev principal", "error", err)
			os.Exit(1)
		}
		identity = server.DevIdentity(models.Principal{ID: id, Role: r})
		log.Warn("dev principal active, identity headers ignored", "role", r, "id", id)
	}

	srv := server.New(svc, cfg.Auth.APIKey, identity, log)

	if cfg.MCP.Enabled {
		mcpSrv := mcp.New(&mcp.Local{Catalog: catalogSvc, Plans: plans}, Version, log)
		srv.MountMCP(mcpserver.NewStreamableHTTPServer(mcpSrv))
		log.Info("mcp endpoint enabled", "path", "/mcp")
	}

	// Listen on the tailnet or plain TCP
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
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	if sweep != nil {
		sweep.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	dispatcher.Wait()
	log.Info("server stopped")
}
