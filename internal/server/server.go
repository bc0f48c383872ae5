// Package server exposes the parsing pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dcastano/reciboscan/internal/common"
	"github.com/dcastano/reciboscan/internal/entity"
	"github.com/dcastano/reciboscan/internal/export"
	"github.com/dcastano/reciboscan/internal/pipeline"
	"github.com/dcastano/reciboscan/internal/repository"
)

// Server wires the pipeline, template repository and exporter behind a
// gin router.
type Server struct {
	engine   *gin.Engine
	pipeline *pipeline.Pipeline
	repo     repository.TemplateRepository
	exporter *export.Service
	logger   *slog.Logger
}

// New builds the router with all routes registered.
func New(p *pipeline.Pipeline, repo repository.TemplateRepository, exporter *export.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine:   gin.New(),
		pipeline: p,
		repo:     repo,
		exporter: exporter,
		logger:   logger,
	}
	s.engine.Use(gin.Recovery(), s.requestLog())

	s.engine.GET("/healthz", s.handleHealth)
	v1 := s.engine.Group("/v1")
	{
		v1.POST("/parse", s.handleParse)
		v1.POST("/export", s.handleExport)
		v1.GET("/templates/:merchantID", s.handleGetTemplate)
	}
	return s
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Info("server.listening", "addr", addr)
	return s.engine.Run(addr)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("server.request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseRequest accepts either full OCR geometry or plain text lines.
type parseRequest struct {
	Document *entity.OcrDocument `json:"document,omitempty"`
	Lines    []string            `json:"lines,omitempty"`
}

func (r parseRequest) document() (entity.OcrDocument, bool) {
	if r.Document != nil && len(r.Document.Blocks) > 0 {
		return *r.Document, true
	}
	if len(r.Lines) > 0 {
		return entity.DocumentFromLines(r.Lines), true
	}
	return entity.OcrDocument{}, false
}

func (s *Server) handleParse(c *gin.Context) {
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	doc, ok := req.document()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document or lines required"})
		return
	}

	receipt, err := s.pipeline.Parse(c.Request.Context(), doc)
	if err != nil {
		// the parse itself succeeded; only template-store writes failed
		s.logger.Warn("server.parse.store_errors", "error", err)
	}
	c.JSON(http.StatusOK, receipt)
}

type exportRequest struct {
	Receipts []parseRequest `json:"receipts"`
}

func (s *Server) handleExport(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.Receipts) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one receipt required"})
		return
	}

	parsed := make([]*entity.ParsedReceipt, 0, len(req.Receipts))
	for _, pr := range req.Receipts {
		doc, ok := pr.document()
		if !ok {
			continue
		}
		r, err := s.pipeline.Parse(c.Request.Context(), doc)
		if err != nil {
			s.logger.Warn("server.export.store_errors", "error", err)
		}
		parsed = append(parsed, r)
	}

	data, err := s.exporter.ReceiptsXLSX(parsed)
	if err != nil {
		s.logger.Error("server.export.failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="receipts.xlsx"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (s *Server) handleGetTemplate(c *gin.Context) {
	merchantID := c.Param("merchantID")
	tmpl, err := s.repo.GetByMerchantID(c.Request.Context(), merchantID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
			return
		}
		s.logger.Error("server.template.load_failed", "merchant_id", merchantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "template store error"})
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

// WaitForStore blocks until the repository answers a probe or the
// context expires. Used at startup with the Postgres store.
func WaitForStore(ctx context.Context, probe func(context.Context) error, logger *slog.Logger) error {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		err := probe(ctx)
		if err == nil {
			return nil
		}
		logger.Warn("server.store.unreachable", "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}
