package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeRender/internal/errcode"
)

// RecoveryMiddleware 捕获 panic，记录日志并返回统一的错误结构。
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		LoggerFromContext(c).Error("panic recovered", slog.Any("panic", recovered))
		abortWithError(c, http.StatusInternalServerError, errcode.InternalError, "Internal server error")
	})
}
