package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resumeRender/internal/api/middleware"
	"resumeRender/internal/errcode"
	"resumeRender/internal/metrics"
)

const serviceName = "resume-render"

// NewRouter 构建 Gin 路由引擎：公共中间件、健康检查与 /metrics。
func NewRouter(logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(
		middleware.CorrelationIDMiddleware(),
		middleware.SlogLoggerMiddleware(logger),
		middleware.RecoveryMiddleware(),
		metrics.GinMiddleware(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": serviceName,
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", metrics.Handler())

	router.NoRoute(func(c *gin.Context) {
		NotFound(c, "Route not found")
	})
	router.NoMethod(func(c *gin.Context) {
		Error(c, http.StatusMethodNotAllowed, errcode.MethodNotAllowed, "Method not allowed")
	})

	return router
}
