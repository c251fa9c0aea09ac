package ocr

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"
	"unicode"

	"github.com/bregovic/docmeta/constants"
	"github.com/bregovic/docmeta/internal/common"
)

// PageRenderer rasterizes every page of a PDF to images for the OCR fallback.
type PageRenderer interface {
	RenderAll(ctx context.Context, pdfPath string) ([]string, func(), error)
}

type Config struct {
	Pdftotext       string // binary name or absolute path; if empty -> "pdftotext"
	Tesseract       string // binary name or absolute path; if empty -> "tesseract"
	Langs           string // tesseract language pair, default "ces+eng"
	MinPDFTextChars int    // below this, the PDF is treated as scanned
	ToolTimeout     time.Duration
}

// Extractor acquires a document's full plain text, chaining a layout-aware
// text pass with an OCR fallback for scanned PDFs.
type Extractor struct {
	cfg      Config
	runner   Runner
	renderer PageRenderer
	logger   *slog.Logger
}

func NewExtractor(cfg Config, runner Runner, renderer PageRenderer, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = NewExecRunner()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Langs == "" {
		cfg.Langs = "ces+eng"
	}
	if cfg.MinPDFTextChars <= 0 {
		cfg.MinPDFTextChars = 64
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = 60 * time.Second
	}
	return &Extractor{cfg: cfg, runner: runner, renderer: renderer, logger: logger}
}

// FullText produces the document's full plain text for the declared media
// type. Unknown media types yield empty text and no error.
func (e *Extractor) FullText(ctx context.Context, path, mediaType string) (string, error) {
	switch constants.MapMediaTypeToFormat(mediaType) {
	case constants.PDF:
		return e.pdfText(ctx, path)
	case constants.IMAGE:
		txt, err := e.RecognizeImage(ctx, path)
		if err != nil {
			if errors.Is(err, exec.ErrNotFound) {
				return "", common.NewAppError("TEXT_ACQUISITION", "ocr tool unavailable", errors.Join(err, common.ErrToolFailure))
			}
			// non-zero exit or timeout means this attempt produced no text,
			// not a failed run; downstream extraction finds nothing and the
			// caller still gets a best-effort result
			e.logger.Warn("image ocr failed, keeping whatever text came back", "path", path, "chars", inkLen(txt), "error", err)
		}
		return Normalize(txt), nil
	default:
		e.logger.Debug("no text acquisition for media type", "media_type", mediaType)
		return "", nil
	}
}

// pdfText runs pdftotext first and falls back to rasterize+OCR when the
// result looks like a scanned PDF. The OCR pass only replaces the first pass
// when it yields more non-whitespace text.
func (e *Extractor) pdfText(ctx context.Context, path string) (string, error) {
	text, textErr := e.pdfToText(ctx, path)
	text = Normalize(text)
	e.logger.Info("pdf text pass", "path", path, "chars", inkLen(text), "error", textErr)

	if inkLen(text) >= e.cfg.MinPDFTextChars {
		return text, nil
	}

	ocrText, ocrErr := e.pdfToOCR(ctx, path)
	ocrText = Normalize(ocrText)
	e.logger.Info("pdf ocr pass", "path", path, "chars", inkLen(ocrText), "error", ocrErr)

	if inkLen(ocrText) > inkLen(text) {
		text = ocrText
	}
	if text == "" && textErr != nil && ocrErr != nil {
		joined := errors.Join(textErr, ocrErr)
		if errors.Is(joined, exec.ErrNotFound) {
			return "", common.NewAppError("TEXT_ACQUISITION", "text acquisition tools unavailable",
				errors.Join(joined, common.ErrToolFailure))
		}
		e.logger.Warn("all text acquisition attempts failed, returning empty text", "path", path, "error", joined)
		return "", nil
	}
	return text, nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ToolTimeout)
	defer cancel()

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, _, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			// pdftotext missing system-wide: extract embedded text in-process.
			e.logger.Warn("pdftotext unavailable, using embedded text reader", "path", path)
			return embeddedPDFText(path)
		}
		return string(out), err
	}
	return string(out), nil
}

func (e *Extractor) pdfToOCR(ctx context.Context, path string) (string, error) {
	if e.renderer == nil {
		return "", errors.New("no page renderer configured")
	}
	pages, cleanup, err := e.renderer.RenderAll(ctx, path)
	if err != nil {
		return "", err
	}
	defer cleanup()

	var b strings.Builder
	var lastErr error
	for _, img := range pages {
		txt, err := e.RecognizeImage(ctx, img)
		if err != nil {
			lastErr = err
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n") // keep a clear page break marker
		}
		b.WriteString(txt)
	}
	if b.Len() == 0 && lastErr != nil {
		return "", lastErr
	}
	return b.String(), nil
}

// RecognizeImage runs tesseract on a single image (full page or zone crop)
// with the configured dual-language hint.
func (e *Extractor) RecognizeImage(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ToolTimeout)
	defer cancel()

	// tesseract <file> stdout -l <langs>
	out, _, err := e.runner.Run(ctx, e.cfg.Tesseract, path, "stdout", "-l", e.cfg.Langs)
	if err != nil {
		return string(out), err
	}
	return string(out), nil
}

// inkLen counts non-whitespace runes; the scanned-PDF threshold and the
// "keep the longer output" comparison both ignore whitespace padding.
func inkLen(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
