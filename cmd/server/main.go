package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/modelmux/modelmux/cmd"
	"github.com/modelmux/modelmux/internal/cache"
	"github.com/modelmux/modelmux/internal/catalog"
	"github.com/modelmux/modelmux/internal/config"
	"github.com/modelmux/modelmux/internal/llm"
	"github.com/modelmux/modelmux/internal/oauth"
	"github.com/modelmux/modelmux/internal/platform/logger"
	"github.com/modelmux/modelmux/internal/platform/otel"
	"github.com/modelmux/modelmux/internal/policy"
	"github.com/modelmux/modelmux/internal/server"
	"github.com/modelmux/modelmux/internal/store"
	"github.com/modelmux/modelmux/internal/store/sqlite"
)

func main() {
	logger.Initialize(logger.DefaultConfig())
	defer logger.Sync()
	log := logger.Get()

	go cmd.CheckForUpdates()

	cfg := config.NewFile(os.Getenv("MODELMUX_CONFIG"))
	snap, err := cfg.Snapshot()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	shutdownTracer, err := otel.InitTracer("modelmux", log, os.Stdout)
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}

	pol := policy.FromAccessor(cfg)
	tokens := &oauth.FileTokenSource{Path: authFilePath()}
	factory := llm.NewFactory(cfg, pol, tokens)

	var catalogCache cache.Service
	if snap.Redis.Enabled {
		rc := cache.NewRedis(snap.Redis.Addr, snap.Redis.Password, snap.Redis.DB)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rc.Ping(pingCtx); err != nil {
			log.Warn("redis unavailable, falling back to in-memory cache", zap.Error(err))
			catalogCache = cache.NewMemory()
		} else {
			catalogCache = rc
			defer func() { _ = rc.Close() }()
		}
		cancel()
	} else {
		catalogCache = cache.NewMemory()
	}
	models := catalog.NewService(cfg, pol, catalogCache)

	var repo store.Repository
	if snap.Store.Enabled {
		repo, err = sqlite.NewStorage(snap.Store.DSN)
		if err != nil {
			log.Fatal("failed to open usage store", zap.Error(err))
		}
		defer func() { _ = repo.Close() }()
	}

	srv := server.New(server.Options{
		Snapshot: snap,
		Logger:   log,
		Factory:  factory,
		Catalog:  models,
		Repo:     repo,
		Version:  cmd.AppVersion,
	})

	httpServer := srv.HTTPServer()
	go func() {
		log.Info("starting modelmux", zap.String("port", snap.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	if err := shutdownTracer(ctx); err != nil {
		log.Error("tracer shutdown failed", zap.Error(err))
	}
}

// authFilePath locates the persisted OAuth blob written by the external
// login flow.
func authFilePath() string {
	if p := os.Getenv("MODELMUX_AUTH_FILE"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "auth.json"
	}
	return filepath.Join(home, ".modelmux", "auth.json")
}
