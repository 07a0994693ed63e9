package middleware

import (
	"fmt"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeRender/internal/errcode"
)

// RequireJSON 拒绝非 application/json 的请求体（允许带 charset 参数）。
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		mediaType, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
		if err != nil || mediaType != "application/json" {
			abortWithError(c, http.StatusUnsupportedMediaType, errcode.UnsupportedMediaType,
				"Content-Type must be application/json")
			return
		}
		c.Next()
	}
}

// LimitBody 限制请求体大小。声明的 Content-Length 超限时直接拒绝，
// 否则包装为 http.MaxBytesReader，读取时超限会返回 *http.MaxBytesError。
func LimitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			abortWithError(c, http.StatusRequestEntityTooLarge, errcode.PayloadTooLarge, TooLargeMessage(maxBytes))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// TooLargeMessage 是 413 响应使用的提示语。
func TooLargeMessage(maxBytes int64) string {
	return fmt.Sprintf("Request body exceeds %d bytes", maxBytes)
}
