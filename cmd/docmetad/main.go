package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bregovic/docmeta/internal/analyze"
	"github.com/bregovic/docmeta/internal/common"
	"github.com/bregovic/docmeta/internal/export"
	"github.com/bregovic/docmeta/internal/heuristic"
	"github.com/bregovic/docmeta/internal/ocr"
	"github.com/bregovic/docmeta/internal/raster"
	"github.com/bregovic/docmeta/internal/repository"
	"github.com/bregovic/docmeta/internal/server"
	"github.com/bregovic/docmeta/internal/storage"
	"github.com/bregovic/docmeta/internal/templates"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Error("failed to close database", "error", cerr)
		}
	}()

	if err := repository.HealthCheck(ctx, db, logger); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database health OK")

	resolver, err := storage.NewResolver(cfg.Storage, logger)
	if err != nil {
		logger.Error("failed to initialize storage resolver", "error", err)
		os.Exit(1)
	}

	runner := ocr.NewExecRunner()
	rasterizer := raster.NewRasterizer(raster.Config{
		Pdftoppm: cfg.Raster.Pdftoppm,
		Magick:   cfg.Raster.Magick,
		DPI:      cfg.Raster.DPI,
		MaxPages: cfg.Raster.MaxPages,
		Timeout:  cfg.Raster.Timeout,
	}, runner, logger)
	extractor := ocr.NewExtractor(ocr.Config{
		Pdftotext:       cfg.OCR.Pdftotext,
		Tesseract:       cfg.OCR.Tesseract,
		Langs:           cfg.OCR.Langs,
		MinPDFTextChars: cfg.OCR.MinPDFTextChars,
		ToolTimeout:     cfg.OCR.ToolTimeout,
	}, runner, rasterizer, logger)

	analyzer := analyze.NewService(
		repository.NewDocumentRepository(db, logger),
		repository.NewAttributeRepository(db, logger),
		repository.NewTemplateRepository(db, logger),
		resolver,
		extractor,
		templates.NewMatcher(rasterizer, extractor, logger),
		heuristic.NewExtractor(logger),
		cfg.Templates.Dir,
		logger,
	)

	srv := server.New(db, analyzer, export.NewService(logger), logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	logger.Info("stopped")
}
