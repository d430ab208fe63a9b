package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pdfcpu names extracted images <base>_<page>_<id>.<ext>
var reImagePage = regexp.MustCompile(`_(\d+)_[^_]+\.[A-Za-z0-9]+$`)

// ImageExtractor pulls the embedded raster images out of a PDF. Scanned
// documents carry one image per page, which is what OCR consumes.
type ImageExtractor struct {
	maxFileSize int64
}

// NewImageExtractor creates an image extractor with the given size limit
func NewImageExtractor(maxFileSize int64) *ImageExtractor {
	return &ImageExtractor{maxFileSize: maxFileSize}
}

// ExtractPageImages writes the images of the first maxPages pages (all pages
// when maxPages <= 0) into outDir and returns their paths in page order.
func (e *ImageExtractor) ExtractPageImages(path, outDir string, maxPages int) (paths []string, err error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if e.maxFileSize > 0 && fileInfo.Size() > e.maxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max: %d bytes)", fileInfo.Size(), e.maxFileSize)
	}

	defer func() {
		if rec := recover(); rec != nil {
			paths = nil
			err = fmt.Errorf("pdfcpu panic: %v", rec)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	var selectedPages []string
	if maxPages > 0 {
		selectedPages = []string{fmt.Sprintf("1-%d", maxPages)}
	}

	if err := api.ExtractImagesFile(path, outDir, selectedPages, conf); err != nil {
		return nil, fmt.Errorf("failed to extract images: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list extracted images: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(outDir, entry.Name()))
	}

	sortByPage(paths)
	return paths, nil
}

// sortByPage orders image paths by the page number embedded in their name
func sortByPage(paths []string) {
	page := func(p string) int {
		m := reImagePage.FindStringSubmatch(filepath.Base(p))
		if m == nil {
			return 0
		}
		n, _ := strconv.Atoi(m[1])
		return n
	}
	sort.SliceStable(paths, func(i, j int) bool {
		pi, pj := page(paths[i]), page(paths[j])
		if pi != pj {
			return pi < pj
		}
		return paths[i] < paths[j]
	})
}
