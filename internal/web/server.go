// Package web exposes the conversation controller to the presentation layer
// over HTTP: commands as JSON endpoints and state changes as server-sent
// events.
package web

import (
	"strconv"
	"time"

	"history-mind-companion/internal/chat"
	"history-mind-companion/internal/config"
	"history-mind-companion/internal/i18n"
	"history-mind-companion/internal/logger"
	"history-mind-companion/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	config     *config.Config
	controller *chat.Controller
	logger     *logger.Logger
	translator *i18n.Manager
	version    string
}

func NewServer(cfg *config.Config, controller *chat.Controller, log *logger.Logger, translator *i18n.Manager, version string) *Server {
	return &Server{
		config:     cfg,
		controller: controller,
		logger:     log,
		translator: translator,
		version:    version,
	}
}

// RegisterRoutes mounts the API under /api and the Prometheus handler at
// /metrics
func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(metricsMiddleware())
	{
		api.POST("/messages", s.handleSendMessage)
		api.DELETE("/messages", s.handleClearMessages)
		api.GET("/state", s.handleGetState)
		api.GET("/events", s.handleEvents)

		api.GET("/settings", s.handleGetSettings)

		api.GET("/logs", s.handleGetLogs)
		api.GET("/logs/stats", s.handleGetLogStats)
		api.POST("/logs/cleanup", s.handleCleanupLogs)
	}
}

// metricsMiddleware records request counts and latency per route pattern
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
