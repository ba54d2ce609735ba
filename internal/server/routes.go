package server

import (
	"github.com/modelmux/modelmux/internal/server/middleware"
	v1 "github.com/modelmux/modelmux/internal/server/v1"
)

func (s *Server) setupRoutes() {
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.Tracing("modelmux"))
	s.router.Use(middleware.ErrorHandler(s.logger))

	healthHandler := v1.NewHealthHandler(s.version)
	s.router.GET("/health", healthHandler.Health)

	api := s.router.Group("/v1")
	api.Use(middleware.Auth(s.snap.Server.APIKeys))

	if s.snap.RateLimit.RequestsPerSecond > 0 {
		limiter := middleware.NewRateLimiter(
			s.snap.RateLimit.RequestsPerSecond,
			s.snap.RateLimit.Burst,
			s.logger,
		)
		api.Use(limiter.Middleware())
	}

	chatHandler := v1.NewChatHandler(s.factory, s.repo, s.validator)
	api.POST("/chat/completions", chatHandler.CreateCompletion)

	modelHandler := v1.NewModelHandler(s.catalog)
	api.GET("/models", modelHandler.ListModels)

	resolveHandler := v1.NewResolveHandler(s.factory)
	api.GET("/resolve", resolveHandler.Resolve)

	if s.repo != nil {
		usageHandler := v1.NewUsageHandler(s.repo)
		api.GET("/usage/recent", usageHandler.Recent)
		api.GET("/usage/daily", usageHandler.DailyStats)
	}
}
