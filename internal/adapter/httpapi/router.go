package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter mounts every route at the root and again under /api.
func NewRouter(h *Handler, log *slog.Logger) *gin.Engine {
	if log == nil {
		log = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log), cors())

	register(router, h)
	register(router.Group("/api"), h)

	return router
}

func register(r gin.IRoutes, h *Handler) {
	r.POST("/chat", h.Chat)
	r.GET("/history/:sessionId", h.GetHistory)
	r.DELETE("/history/:sessionId", h.ClearHistory)
	r.POST("/ingest-news", h.IngestNews)
	r.GET("/stats", h.Stats)
	r.GET("/health", h.Health)
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// cors allows browser clients on other origins to call the API.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		header.Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
