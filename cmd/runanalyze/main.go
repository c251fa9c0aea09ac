package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/bregovic/docmeta/internal/analyze"
	"github.com/bregovic/docmeta/internal/common"
	"github.com/bregovic/docmeta/internal/heuristic"
	"github.com/bregovic/docmeta/internal/ocr"
	"github.com/bregovic/docmeta/internal/raster"
	"github.com/bregovic/docmeta/internal/repository"
	"github.com/bregovic/docmeta/internal/storage"
	"github.com/bregovic/docmeta/internal/templates"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runanalyze <document-id-uuid>")
		os.Exit(2)
	}
	docID, err := uuid.Parse(os.Args[1])
	if err != nil {
		logger.Error("invalid document id (must be UUID)", "arg", os.Args[1], "error", err)
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("open db", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Error("close db", "error", cerr)
		}
	}()

	resolver, err := storage.NewResolver(cfg.Storage, logger)
	if err != nil {
		logger.Error("init storage resolver", "error", err)
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

	svc := analyze.NewService(
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

	start := time.Now()
	res, err := svc.Analyze(ctx, docID)
	if err != nil {
		logger.Error("analysis failed",
			"document_id", docID, "error", err, "duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}

	logger.Info("analysis OK",
		"document_id", docID,
		"strategy", res.StrategyUsed,
		"attributes", len(res.Attributes),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
}
