// Package textsource obtains the raw text of a PDF, reading its text layer
// directly and falling back to OCR when that layer is missing or too thin.
package textsource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/a3tai/mcp-invoice-reader/internal/metrics"
	"github.com/a3tai/mcp-invoice-reader/internal/ocr"
)

// Text source methods
const (
	MethodPDFText = "pdf-text"
	MethodPDFOCR  = "pdf-ocr"
)

// MinTextLength is the trimmed length below which direct text is treated as
// absent and OCR is used instead.
const MinTextLength = 50

// ErrSourceUnavailable is returned when the path is not an existing regular file.
var ErrSourceUnavailable = errors.New("source file unavailable")

// TextExtractor reads the embedded text layer of a PDF.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (text string, pages int, err error)
}

// Result describes the text obtained for one document.
type Result struct {
	Text      string
	Method    string
	Pages     int
	Duration  time.Duration
	Warnings  []string
	DirectErr error // why direct extraction was abandoned, if it errored
}

// Option configures a Resolver.
type Option func(*Resolver)

func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithMinTextLength overrides MinTextLength. Values <= 0 are ignored.
func WithMinTextLength(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.minTextLength = n
		}
	}
}

// WithOCRTimeout bounds a single OCR pass. An expired OCR deadline is an
// engine failure, not a cancellation of the caller.
func WithOCRTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.ocrTimeout = d }
}

// Resolver turns a PDF path into raw text.
type Resolver struct {
	direct        TextExtractor
	ocr           ocr.Provider
	logger        *zap.Logger
	metrics       *metrics.Recorder
	minTextLength int
	ocrTimeout    time.Duration
}

func NewResolver(direct TextExtractor, provider ocr.Provider, opts ...Option) *Resolver {
	r := &Resolver{
		direct:        direct,
		ocr:           provider,
		logger:        zap.NewNop(),
		minTextLength: MinTextLength,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the text of the PDF at path. The only error besides context
// cancellation wraps ErrSourceUnavailable; all other failures degrade to
// empty text with warnings.
func (r *Resolver) Resolve(ctx context.Context, path string) (Result, error) {
	start := time.Now()

	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, path, err)
	}
	if !info.Mode().IsRegular() {
		return Result{}, fmt.Errorf("%w: %s: not a regular file", ErrSourceUnavailable, path)
	}

	text, pages, directErr := r.direct.ExtractText(ctx, path)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, ctxErr
	}

	if directErr == nil && len(strings.TrimSpace(text)) >= r.minTextLength {
		r.logger.Debug("direct text extraction succeeded",
			zap.String("path", path),
			zap.Int("pages", pages),
			zap.Int("chars", len(text)),
		)
		return Result{
			Text:     text,
			Method:   MethodPDFText,
			Pages:    pages,
			Duration: time.Since(start),
		}, nil
	}

	reason := metrics.ReasonShortText
	if directErr != nil {
		reason = metrics.ReasonError
		r.logger.Warn("direct text extraction failed, falling back to OCR",
			zap.String("path", path), zap.Error(directErr))
	} else {
		r.logger.Info("direct text too short, falling back to OCR",
			zap.String("path", path),
			zap.Int("chars", len(strings.TrimSpace(text))),
			zap.Int("min", r.minTextLength),
		)
	}
	r.metrics.OCRFallback(reason)

	res, err := r.recognize(ctx, path)
	if err != nil {
		return Result{}, err
	}
	if res.Pages == 0 {
		res.Pages = pages
	}
	res.DirectErr = directErr
	res.Duration = time.Since(start)
	return res, nil
}

func (r *Resolver) recognize(ctx context.Context, path string) (Result, error) {
	res := Result{Method: MethodPDFOCR}
	if r.ocr == nil {
		res.Warnings = []string{"ocr: no engine configured"}
		return res, nil
	}

	ocrCtx := ctx
	if r.ocrTimeout > 0 {
		var cancel context.CancelFunc
		ocrCtx, cancel = context.WithTimeout(ctx, r.ocrTimeout)
		defer cancel()
	}

	out, err := ocr.Recognize(ocrCtx, r.ocr, path)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, ctxErr
	}
	if err != nil {
		r.logger.Error("ocr failed", zap.String("path", path), zap.Error(err))
		res.Warnings = append(out.Warnings, "ocr: "+err.Error())
		return res, nil
	}
	for _, w := range out.Warnings {
		r.logger.Warn("ocr warning", zap.String("path", path), zap.String("warning", w))
	}

	res.Text = out.Text
	res.Pages = out.Pages
	res.Warnings = out.Warnings
	return res, nil
}
