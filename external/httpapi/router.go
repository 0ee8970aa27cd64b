package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/foxseedlab/mogimensetsu/internal/metrics"
	"github.com/gin-gonic/gin"
)

const (
	readHeaderTimeout = 10 * time.Second
	// frames carry base64 images
	maxBodyBytes = 8 << 20
)

func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), limitBody(maxBodyBytes))

	router.GET("/healthz", h.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/ws", h.ServeWS)

	sessions := router.Group("/sessions")
	{
		sessions.POST("", h.StartSession)
		sessions.POST("/finish", h.FinishSession)
		sessions.POST("/:id/answers", h.RecordAnswer)
		sessions.POST("/:id/reset-emotion", h.ResetEmotion)
		sessions.POST("/:id/frames", h.RecordFrame)
		sessions.POST("/:id/summary-evaluation", h.SummaryEvaluation)
		sessions.GET("/:id/result", h.GetResult)
	}
	return router
}

func NewServer(addr string, router http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "/healthz" || path == "/metrics" {
			return
		}
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	}
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
