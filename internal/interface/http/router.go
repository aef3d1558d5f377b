package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/content-digest/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
// limiter may be nil to disable rate limiting.
func NewRouter(cfg *config.Config, handler *Handler, limiter RateLimiter, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	logger = logger.With("component", "http.router")

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(logger, cfg.HTTP.Debug),
	)

	router.GET("/healthz", handler.Health)

	api := router.Group("/api/v1")
	{
		limited := api.Group("", rateLimitMiddleware(limiter, logger))
		limited.POST("/summaries", handler.Summarize)
		limited.POST("/summaries/stream", handler.SummarizeStream)

		api.GET("/summaries", handler.ListSummaries)
		api.GET("/summaries/:id", handler.GetSummary)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
