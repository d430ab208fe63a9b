package ocr

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/a3tai/mcp-invoice-reader/internal/pdf"
)

// RenderSource rasterizes pages with pdftoppm.
type RenderSource struct {
	runner   Runner
	binary   string
	dpi      int
	maxPages int
}

func NewRenderSource(r Runner, binary string, dpi, maxPages int) *RenderSource {
	return &RenderSource{runner: r, binary: binary, dpi: dpi, maxPages: maxPages}
}

func (s *RenderSource) Pages(ctx context.Context, pdfPath, dir string) ([]string, error) {
	prefix := filepath.Join(dir, "page")

	// pdftoppm -r 300 -png [-l N] <in.pdf> <dir/page>
	args := []string{"-r", fmt.Sprintf("%d", s.dpi), "-png"}
	if s.maxPages > 0 {
		args = append(args, "-l", fmt.Sprintf("%d", s.maxPages))
	}
	args = append(args, pdfPath, prefix)

	_, errb, err := s.runner.Run(ctx, s.binary, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(string(errb)))
	}

	// collect generated pngs (page-1.png, page-2.png, ...); pdftoppm zero-pads
	// page numbers to a fixed width, so lexical order is page order
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// EmbeddedSource uses the raster images embedded in the PDF, which is what a
// scanner produces. It needs no external binary.
type EmbeddedSource struct {
	extractor *pdf.ImageExtractor
	maxPages  int
}

func NewEmbeddedSource(maxPages int) *EmbeddedSource {
	return &EmbeddedSource{extractor: pdf.NewImageExtractor(0), maxPages: maxPages}
}

func (s *EmbeddedSource) Pages(ctx context.Context, pdfPath, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.extractor.ExtractPageImages(pdfPath, dir, s.maxPages)
}
