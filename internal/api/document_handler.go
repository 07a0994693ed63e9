package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeRender/internal/api/middleware"
	"resumeRender/internal/cache"
	"resumeRender/internal/errcode"
	"resumeRender/internal/render"
	"resumeRender/internal/scan"
)

// DocumentCache 缓存渲染结果，未启用时为 nil。
type DocumentCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, doc []byte) error
}

// DocumentHandler 同步渲染简历 PDF。
type DocumentHandler struct {
	renderer render.Renderer
	scanner  scan.Scanner
	cache    DocumentCache
}

func NewDocumentHandler(renderer render.Renderer, scanner scan.Scanner, cache DocumentCache) *DocumentHandler {
	return &DocumentHandler{renderer: renderer, scanner: scanner, cache: cache}
}

// GeneratePDF 校验简历并直接返回 PDF 字节。
func (h *DocumentHandler) GeneratePDF(c *gin.Context) {
	req, ok := readResume(c, h.scanner)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	log := middleware.LoggerFromContext(c)

	var cacheKey string
	if h.cache != nil {
		key, err := cache.Key(req)
		if err != nil {
			log.Warn("compute cache key failed", slog.Any("error", err))
		} else {
			cacheKey = key
			doc, hit, err := h.cache.Get(ctx, cacheKey)
			if err != nil {
				log.Warn("read document cache failed", slog.Any("error", err))
			} else if hit {
				log.Info("serving cached pdf", slog.Int("bytes", len(doc)))
				writePDF(c, doc)
				return
			}
		}
	}

	pdf, err := h.renderer.Render(ctx, req)
	if err != nil {
		log.Error("render pdf failed", slog.Any("error", err))
		Error(c, http.StatusInternalServerError, errcode.PDFGenerationFailed, "Failed to generate PDF")
		return
	}

	if cacheKey != "" {
		if err := h.cache.Set(ctx, cacheKey, pdf); err != nil {
			log.Warn("write document cache failed", slog.Any("error", err))
		}
	}

	writePDF(c, pdf)
}

func writePDF(c *gin.Context, pdf []byte) {
	c.Header("Content-Disposition", `attachment; filename="resume.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
