package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeRender/internal/errcode"
)

// Error 写出统一的错误结构 {"error","message"}。
func Error(c *gin.Context, status int, code, msg string) {
	c.JSON(status, errcode.Response{Error: code, Message: msg})
}

// ErrorWithDetails 附带字段级别的错误说明。
func ErrorWithDetails(c *gin.Context, status int, code, msg string, details any) {
	c.JSON(status, errcode.Response{Error: code, Message: msg, Details: details})
}

func BadRequest(c *gin.Context, code, msg string) { Error(c, http.StatusBadRequest, code, msg) }
func NotFound(c *gin.Context, msg string)         { Error(c, http.StatusNotFound, errcode.NotFound, msg) }
func Internal(c *gin.Context, msg string)         { Error(c, http.StatusInternalServerError, errcode.InternalError, msg) }
