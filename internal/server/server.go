// Package server assembles the HTTP surface around the routing core.
package server

import (
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/modelmux/modelmux/internal/catalog"
	"github.com/modelmux/modelmux/internal/config"
	"github.com/modelmux/modelmux/internal/llm"
	"github.com/modelmux/modelmux/internal/server/middleware"
	"github.com/modelmux/modelmux/internal/server/validator"
	"github.com/modelmux/modelmux/internal/store"
)

type Server struct {
	router    *gin.Engine
	snap      *config.Snapshot
	logger    *zap.Logger
	factory   *llm.Factory
	catalog   *catalog.Service
	repo      store.Repository
	validator *validator.Validator
	version   string
}

// Options carries the wired dependencies. Repo may be nil when the
// usage store is disabled.
type Options struct {
	Snapshot *config.Snapshot
	Logger   *zap.Logger
	Factory  *llm.Factory
	Catalog  *catalog.Service
	Repo     store.Repository
	Version  string
}

func New(opts Options) *Server {
	if opts.Snapshot.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(ginzap.RecoveryWithZap(opts.Logger, true))
	engine.Use(middleware.Logger(opts.Logger))

	s := &Server{
		router:    engine,
		snap:      opts.Snapshot,
		logger:    opts.Logger,
		factory:   opts.Factory,
		catalog:   opts.Catalog,
		repo:      opts.Repo,
		validator: validator.New(),
		version:   opts.Version,
	}

	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer binds the handler to the configured port with sane
// timeouts. Write timeout stays zero so long streams are not cut off.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              ":" + s.snap.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
