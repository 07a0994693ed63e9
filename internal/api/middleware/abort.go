package middleware

import (
	"github.com/gin-gonic/gin"

	"resumeRender/internal/errcode"
)

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errcode.Response{Error: code, Message: message})
}
