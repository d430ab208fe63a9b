package invoice

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/a3tai/mcp-invoice-reader/internal/metrics"
	"github.com/a3tai/mcp-invoice-reader/internal/textsource"
)

// TextSource resolves a document path to its raw text.
type TextSource interface {
	Resolve(ctx context.Context, path string) (textsource.Result, error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// Pipeline extracts invoice fields from PDF files. It holds no per-document
// state and is safe for concurrent use.
type Pipeline struct {
	source  TextSource
	logger  *zap.Logger
	metrics *metrics.Recorder
}

func NewPipeline(source TextSource, opts ...Option) *Pipeline {
	p := &Pipeline{source: source, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Extract resolves the text of the PDF at path and parses it.
func (p *Pipeline) Extract(ctx context.Context, path string) (ExtractedInvoiceData, error) {
	data, _, err := p.ExtractWithSource(ctx, path)
	return data, err
}

// ExtractWithSource is Extract that also reports how the text was obtained.
func (p *Pipeline) ExtractWithSource(ctx context.Context, path string) (ExtractedInvoiceData, textsource.Result, error) {
	start := time.Now()

	src, err := p.source.Resolve(ctx, path)
	if err != nil {
		p.logger.Warn("text source failed", zap.String("path", path), zap.Error(err))
		return ExtractedInvoiceData{}, textsource.Result{}, fmt.Errorf("failed to resolve text for %s: %w", path, err)
	}

	data := ParseText(src.Text)
	elapsed := time.Since(start)
	p.metrics.ObserveExtraction(src.Method, elapsed)

	p.logger.Info("invoice extracted",
		zap.String("path", path),
		zap.String("method", src.Method),
		zap.Int("pages", src.Pages),
		zap.String("invoice_number", data.InvoiceNumber),
		zap.Int("line_items", len(data.LineItems)),
		zap.Int("warnings", len(src.Warnings)),
		zap.Duration("duration", elapsed),
	)

	return data, src, nil
}
