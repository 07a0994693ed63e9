package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeRender/internal/api/middleware"
	"resumeRender/internal/errcode"
	"resumeRender/internal/resume"
	"resumeRender/internal/scan"
)

const invalidResumeMessage = "Invalid resume data"

// readResume 读取并校验请求体：JSON 语法 -> 结构 -> 严格解码 -> 内容规则 -> 照片扫描。
// 任一步失败都会写出错误响应并返回 false。
func readResume(c *gin.Context, scanner scan.Scanner) (resume.Request, bool) {
	var req resume.Request

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(c, http.StatusRequestEntityTooLarge, errcode.PayloadTooLarge, middleware.TooLargeMessage(tooLarge.Limit))
			return req, false
		}
		BadRequest(c, errcode.InvalidJSON, "Failed to read request body")
		return req, false
	}

	if !json.Valid(raw) {
		BadRequest(c, errcode.InvalidJSON, "Request body is not valid JSON")
		return req, false
	}

	if err := resume.CheckShape(raw); err != nil {
		var shapeErr *resume.ShapeError
		if errors.As(err, &shapeErr) {
			ErrorWithDetails(c, http.StatusBadRequest, errcode.InvalidPayload,
				"Request body does not match the resume format", shapeErr.Details())
			return req, false
		}
		middleware.LoggerFromContext(c).Error("resume schema unavailable", slog.Any("error", err))
		Internal(c, "Failed to validate request")
		return req, false
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		BadRequest(c, errcode.InvalidJSON, "Request body could not be decoded")
		return req, false
	}

	if err := resume.Validate(req); err != nil {
		var validationErr *resume.ValidationError
		if errors.As(err, &validationErr) {
			ErrorWithDetails(c, http.StatusBadRequest, errcode.ValidationError, invalidResumeMessage, validationErr.Fields())
			return req, false
		}
		BadRequest(c, errcode.ValidationError, invalidResumeMessage)
		return req, false
	}

	if scanner != nil && req.Photo.HasData() {
		if !scanPhoto(c, scanner, req.Photo) {
			return req, false
		}
	}
	return req, true
}

func scanPhoto(c *gin.Context, scanner scan.Scanner, photo *resume.Photo) bool {
	data, err := resume.DecodePhotoData(photo.Data)
	if err != nil {
		ErrorWithDetails(c, http.StatusBadRequest, errcode.ValidationError, invalidResumeMessage,
			map[string]string{"photo.data": "Photo data must be base64 encoded"})
		return false
	}

	if err := scanner.Scan(data); err != nil {
		log := middleware.LoggerFromContext(c)
		if errors.Is(err, scan.ErrInfected) {
			log.Warn("photo rejected by clamd", slog.Any("error", err))
			BadRequest(c, errcode.PhotoRejected, "Photo was rejected by the malware scanner")
			return false
		}
		log.Error("scan photo failed", slog.Any("error", err))
		Internal(c, "Failed to scan photo")
		return false
	}
	return true
}
