package raster

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/bregovic/docmeta/internal/common"
)

// Runner mirrors ocr.Runner so the two packages stay decoupled; any value
// satisfying one satisfies the other.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type Config struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
	Magick   string // fallback renderer; if empty -> "magick"
	DPI      int    // rasterization DPI, default 300
	MaxPages int    // cap for RenderAll, 0 = no limit
	Timeout  time.Duration
}

// Rasterizer converts PDF pages to flat raster images through external
// tools. Temporary directories are uuid-scoped and removed by the returned
// cleanup funcs on every path.
type Rasterizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewRasterizer(cfg Config, runner Runner, logger *slog.Logger) *Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Magick == "" {
		cfg.Magick = "magick"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Rasterizer{cfg: cfg, runner: runner, logger: logger}
}

// PageCount reads the page count without rendering anything.
func (r *Rasterizer) PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, common.NewAppError("RASTER_PAGECOUNT", "failed to read pdf page count", err)
	}
	return n, nil
}

// RenderPage rasterizes a single 1-based page to a PNG. pdftoppm first, then
// one magick fallback before the page is declared unrenderable.
func (r *Rasterizer) RenderPage(ctx context.Context, path string, page int) (string, func(), error) {
	noop := func() {}
	tmpDir, err := os.MkdirTemp("", "docmeta-pp-"+uuid.NewString())
	if err != nil {
		return "", noop, err
	}
	cleanup := func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			r.logger.Warn("failed to remove raster temp dir", "path", tmpDir, "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	pageArg := fmt.Sprintf("%d", page)
	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -f N -l N -r <dpi> -png <in.pdf> <tmp/page>
	_, _, err = r.runner.Run(ctx, r.cfg.Pdftoppm, "-f", pageArg, "-l", pageArg,
		"-r", fmt.Sprintf("%d", r.cfg.DPI), "-png", path, prefix)
	if err == nil {
		if matches, _ := filepath.Glob(prefix + "-*.png"); len(matches) > 0 {
			return matches[0], cleanup, nil
		}
		err = fmt.Errorf("pdftoppm produced no image for page %d", page)
	}
	r.logger.Warn("pdftoppm render failed, trying magick", "path", path, "page", page, "error", err)

	out := filepath.Join(tmpDir, "page.png")
	// magick -density <dpi> <in.pdf>[N-1] <out.png>
	_, _, mErr := r.runner.Run(ctx, r.cfg.Magick, "-density", fmt.Sprintf("%d", r.cfg.DPI),
		fmt.Sprintf("%s[%d]", path, page-1), out)
	if mErr == nil {
		if _, statErr := os.Stat(out); statErr == nil {
			return out, cleanup, nil
		}
		mErr = fmt.Errorf("magick produced no output for page %d", page)
	}

	cleanup()
	return "", noop, common.NewAppError("RASTER_FAILED",
		fmt.Sprintf("page %d unrenderable", page), common.ErrToolFailure)
}

// RenderAll rasterizes every page (capped at MaxPages) for the full-document
// OCR fallback.
func (r *Rasterizer) RenderAll(ctx context.Context, path string) ([]string, func(), error) {
	noop := func() {}
	tmpDir, err := os.MkdirTemp("", "docmeta-pp-"+uuid.NewString())
	if err != nil {
		return nil, noop, err
	}
	cleanup := func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			r.logger.Warn("failed to remove raster temp dir", "path", tmpDir, "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	// bound the render up front instead of rasterizing pages the cap discards
	last := 0
	if n, cErr := r.PageCount(path); cErr != nil {
		r.logger.Warn("page count unavailable, rendering all pages", "path", path, "error", cErr)
	} else {
		last = n
		if r.cfg.MaxPages > 0 && last > r.cfg.MaxPages {
			last = r.cfg.MaxPages
		}
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm [-f 1 -l <last>] -r <dpi> -png <in.pdf> <tmp/page>
	args := []string{"-r", fmt.Sprintf("%d", r.cfg.DPI), "-png"}
	if last > 0 {
		args = append([]string{"-f", "1", "-l", fmt.Sprintf("%d", last)}, args...)
	}
	args = append(args, path, prefix)
	if _, _, err := r.runner.Run(ctx, r.cfg.Pdftoppm, args...); err != nil {
		cleanup()
		return nil, noop, err
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if r.cfg.MaxPages > 0 && len(matches) > r.cfg.MaxPages {
		matches = matches[:r.cfg.MaxPages]
	}
	if len(matches) == 0 {
		cleanup()
		return nil, noop, fmt.Errorf("pdftoppm produced no images")
	}
	return matches, cleanup, nil
}
