// Package server exposes the analysis engine over HTTP.
package server

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bregovic/docmeta/internal/analyze"
	"github.com/bregovic/docmeta/internal/common"
	"github.com/bregovic/docmeta/internal/export"
)

type Server struct {
	engine   *gin.Engine
	db       *sql.DB
	analyzer *analyze.Service
	exporter *export.Service
	logger   *slog.Logger
}

func New(db *sql.DB, analyzer *analyze.Service, exporter *export.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{engine: engine, db: db, analyzer: analyzer, exporter: exporter, logger: logger}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.Use(s.requestLog())

	s.engine.GET("/healthz", s.health)

	v1 := s.engine.Group("/v1")
	v1.POST("/documents/:id/analyze", s.analyzeDocument)
	v1.GET("/documents/:id/results.xlsx", s.exportDocument)
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) analyzeDocument(c *gin.Context) {
	id, ok := s.documentID(c)
	if !ok {
		return
	}
	res, err := s.analyzer.Analyze(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// exportDocument reruns analysis and streams the workbook; the engine keeps
// no result state to serve it from.
func (s *Server) exportDocument(c *gin.Context) {
	id, ok := s.documentID(c)
	if !ok {
		return
	}
	res, err := s.analyzer.Analyze(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	data, err := s.exporter.ResultXLSX(res)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="extraction-`+id.String()+`.xlsx"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (s *Server) documentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrToolFailure):
		status = http.StatusBadGateway
	}

	var appErr *common.AppError
	if errors.As(err, &appErr) {
		c.JSON(status, gin.H{"error": appErr.Message, "code": appErr.Code})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
