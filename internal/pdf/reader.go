package pdf

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Reader extracts the embedded text layer of PDF files
type Reader struct {
	maxFileSize int64
	maxTextSize int
}

// NewReader creates a new PDF reader with the specified constraints
func NewReader(maxFileSize int64) *Reader {
	return &Reader{
		maxFileSize: maxFileSize,
		maxTextSize: 10 * 1024 * 1024, // 10MB text limit
	}
}

// ExtractText returns the plain text of every page joined in page order,
// along with the page count. Parser panics are reported as errors.
func (r *Reader) ExtractText(ctx context.Context, path string) (text string, pages int, err error) {
	if path == "" {
		return "", 0, fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return "", 0, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return "", 0, fmt.Errorf("cannot access file: %w", err)
	}
	if err := r.validateFileInfo(path, fileInfo); err != nil {
		return "", 0, err
	}

	defer func() {
		if rec := recover(); rec != nil {
			text, pages = "", 0
			err = fmt.Errorf("pdf parser panic: %v", rec)
		}
	}()

	f, pdfReader, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	text, err = r.extractTextContent(ctx, pdfReader)
	if err != nil {
		return "", pdfReader.NumPage(), err
	}

	return text, pdfReader.NumPage(), nil
}

// validateFileInfo rejects directories and files over the size limit
func (r *Reader) validateFileInfo(path string, fileInfo os.FileInfo) error {
	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}

	if r.maxFileSize > 0 && fileInfo.Size() > r.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), r.maxFileSize)
	}

	return nil
}

// extractTextContent walks the pages and concatenates their text
func (r *Reader) extractTextContent(ctx context.Context, pdfReader *pdf.Reader) (string, error) {
	var builder strings.Builder
	totalLength := 0

	for pageNum := 1; pageNum <= pdfReader.NumPage(); pageNum++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := pdfReader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			// Continue with other pages even if one fails
			continue
		}

		if totalLength+len(content) > r.maxTextSize {
			remaining := r.maxTextSize - totalLength
			if remaining > 0 {
				builder.WriteString(content[:remaining])
			}
			break
		}

		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(content)
		totalLength += len(content)
	}

	return builder.String(), nil
}
