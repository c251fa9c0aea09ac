package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRunner simulates the external tools: per-binary error injection and
// creation of the output files the real tools would leave behind.
type scriptedRunner struct {
	failPdftoppm bool
	failMagick   bool
	pages        []string // suffixes created per pdftoppm run, e.g. "-1.png"
	calls        []string
	argsSeen     [][]string
}

func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.calls = append(r.calls, name)
	r.argsSeen = append(r.argsSeen, args)
	switch {
	case contains(args, "-png"): // pdftoppm
		if r.failPdftoppm {
			return nil, []byte("pdftoppm: error"), errors.New("exit status 1")
		}
		prefix := args[len(args)-1]
		for _, suffix := range r.pages {
			if err := os.WriteFile(prefix+suffix, []byte("png"), 0o644); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	default: // magick
		if r.failMagick {
			return nil, []byte("magick: error"), errors.New("exit status 1")
		}
		out := args[len(args)-1]
		return nil, nil, os.WriteFile(out, []byte("png"), 0o644)
	}
}

func contains(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

func TestRenderPagePdftoppm(t *testing.T) {
	runner := &scriptedRunner{pages: []string{"-1.png"}}
	r := NewRasterizer(Config{}, runner, nil)

	path, cleanup, err := r.RenderPage(context.Background(), "/tmp/doc.pdf", 1)
	require.NoError(t, err)
	defer cleanup()

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
	assert.Equal(t, []string{"pdftoppm"}, runner.calls)
}

func TestRenderPageMagickFallback(t *testing.T) {
	runner := &scriptedRunner{failPdftoppm: true}
	r := NewRasterizer(Config{}, runner, nil)

	path, cleanup, err := r.RenderPage(context.Background(), "/tmp/doc.pdf", 1)
	require.NoError(t, err)
	defer cleanup()

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
	assert.Equal(t, []string{"pdftoppm", "magick"}, runner.calls)
}

func TestRenderPageBothToolsFail(t *testing.T) {
	runner := &scriptedRunner{failPdftoppm: true, failMagick: true}
	r := NewRasterizer(Config{}, runner, nil)

	_, _, err := r.RenderPage(context.Background(), "/tmp/doc.pdf", 1)

	assert.Error(t, err)
}

func TestRenderPageCleanupRemovesFiles(t *testing.T) {
	runner := &scriptedRunner{pages: []string{"-1.png"}}
	r := NewRasterizer(Config{}, runner, nil)

	path, cleanup, err := r.RenderPage(context.Background(), "/tmp/doc.pdf", 1)
	require.NoError(t, err)

	cleanup()
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRenderAllCapsPagesWithoutPageCount(t *testing.T) {
	// unreadable page count: render everything and truncate afterwards
	runner := &scriptedRunner{pages: []string{"-1.png", "-2.png", "-3.png"}}
	r := NewRasterizer(Config{MaxPages: 2}, runner, nil)

	pages, cleanup, err := r.RenderAll(context.Background(), "/tmp/doc.pdf")
	require.NoError(t, err)
	defer cleanup()

	assert.Len(t, pages, 2)
}

// writeMinimalPDF builds a syntactically complete n-page PDF by hand,
// tracking object offsets so the xref table is exact.
func writeMinimalPDF(t *testing.T, n int) string {
	t.Helper()

	var b bytes.Buffer
	var offsets []int
	add := func(s string) {
		offsets = append(offsets, b.Len())
		b.WriteString(s)
	}

	b.WriteString("%PDF-1.4\n")
	kids := make([]string, n)
	for i := 0; i < n; i++ {
		kids[i] = fmt.Sprintf("%d 0 R", 3+i)
	}
	add("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	add(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", strings.Join(kids, " "), n))
	for i := 0; i < n; i++ {
		add(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n", 3+i))
	}

	xrefPos := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xrefPos)

	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))
	return path
}

func TestPageCount(t *testing.T) {
	r := NewRasterizer(Config{}, &scriptedRunner{}, nil)

	n, err := r.PageCount(writeMinimalPDF(t, 3))

	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRenderAllBoundsRenderByPageCount(t *testing.T) {
	pdfPath := writeMinimalPDF(t, 3)
	runner := &scriptedRunner{pages: []string{"-1.png", "-2.png"}}
	r := NewRasterizer(Config{MaxPages: 2}, runner, nil)

	pages, cleanup, err := r.RenderAll(context.Background(), pdfPath)
	require.NoError(t, err)
	defer cleanup()

	assert.Len(t, pages, 2)
	require.Len(t, runner.argsSeen, 1)
	args := runner.argsSeen[0]
	// pdftoppm is told to stop at min(page count, cap) up front
	idx := -1
	for i, a := range args {
		if a == "-l" {
			idx = i
		}
	}
	require.NotEqual(t, -1, idx)
	assert.Equal(t, "2", args[idx+1])
}

func TestRenderAllNoOutput(t *testing.T) {
	runner := &scriptedRunner{}
	r := NewRasterizer(Config{}, runner, nil)

	_, _, err := r.RenderAll(context.Background(), "/tmp/doc.pdf")

	assert.Error(t, err)
}
