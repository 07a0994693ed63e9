// Package render turns a résumé into a PDF: an html/template builds the page
// and a headless-browser engine prints it.
package render

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"resumeRender/internal/config"
	"resumeRender/internal/metrics"
	"resumeRender/internal/resume"
)

// Renderer produces a finished document for one résumé.
type Renderer interface {
	Render(ctx context.Context, req resume.Request) ([]byte, error)
}

// PDFEngine prints a self-contained HTML document to PDF.
type PDFEngine interface {
	Name() string
	PrintPDF(ctx context.Context, html string) ([]byte, error)
}

// NewEngine picks the engine named in cfg.
func NewEngine(cfg config.RenderConfig) (PDFEngine, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", "rod":
		return NewRodEngine(cfg.BrowserBin, cfg.Timeout), nil
	case "chromedp":
		return NewChromedpEngine(cfg.BrowserBin, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown render engine %q", cfg.Engine)
	}
}

//go:embed templates/resume.html.tmpl
var resumeTemplate string

// HTMLRenderer 使用内嵌模板生成 HTML，再交给 PDFEngine 输出 PDF。
type HTMLRenderer struct {
	engine PDFEngine
	tmpl   *template.Template
	logger *slog.Logger
}

// NewHTMLRenderer parses the embedded template once.
func NewHTMLRenderer(engine PDFEngine, logger *slog.Logger) (*HTMLRenderer, error) {
	if engine == nil {
		return nil, fmt.Errorf("pdf engine is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	tmpl, err := template.New("resume").Funcs(templateFuncs).Parse(resumeTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse resume template: %w", err)
	}
	return &HTMLRenderer{engine: engine, tmpl: tmpl, logger: logger}, nil
}

// Render builds the HTML page for req and prints it.
func (r *HTMLRenderer) Render(ctx context.Context, req resume.Request) ([]byte, error) {
	html, err := r.HTML(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	pdf, err := r.engine.PrintPDF(ctx, html)
	metrics.ObserveRender(r.engine.Name(), err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("print pdf with %s: %w", r.engine.Name(), err)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("%s returned an empty pdf", r.engine.Name())
	}
	return pdf, nil
}

// HTML executes the template. A photo that cannot be processed is dropped
// and logged; it never fails the render.
func (r *HTMLRenderer) HTML(req resume.Request) (string, error) {
	view := buildView(req)

	if req.Photo.HasData() {
		src, err := photoDataURI(req.Photo.Data, req.Photo.MimeType)
		if err != nil {
			r.logger.Warn("photo processing failed, rendering without photo", slog.Any("error", err))
		} else {
			view.Photo = src
		}
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("execute resume template: %w", err)
	}
	return buf.String(), nil
}
