// Package app wires the invoice pipeline from configuration.
package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-invoice-reader/internal/config"
	"github.com/a3tai/mcp-invoice-reader/internal/invoice"
	"github.com/a3tai/mcp-invoice-reader/internal/metrics"
	"github.com/a3tai/mcp-invoice-reader/internal/ocr"
	"github.com/a3tai/mcp-invoice-reader/internal/pdf"
	"github.com/a3tai/mcp-invoice-reader/internal/textsource"
)

// Option adjusts how the pipeline is assembled.
type Option func(*options)

type options struct {
	ocrOpts []ocr.Option
}

// WithOCROptions passes options to the OCR factory, e.g. a stub runner.
func WithOCROptions(opts ...ocr.Option) Option {
	return func(o *options) { o.ocrOpts = append(o.ocrOpts, opts...) }
}

// NewPipeline builds the direct reader, OCR factory, resolver and pipeline.
// Metrics are registered on reg when it is not nil.
func NewPipeline(cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer, opts ...Option) (*invoice.Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var rec *metrics.Recorder
	if reg != nil {
		var err error
		rec, err = metrics.New(reg)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	factory := ocr.NewFactory(cfg.OCR.Engine(), logger.Named("ocr"), o.ocrOpts...)
	resolver := textsource.NewResolver(
		pdf.NewReader(cfg.MaxFileSize),
		factory,
		textsource.WithLogger(logger.Named("textsource")),
		textsource.WithMetrics(rec),
		textsource.WithMinTextLength(cfg.MinTextLength),
		textsource.WithOCRTimeout(cfg.OCR.Timeout),
	)

	return invoice.NewPipeline(resolver,
		invoice.WithLogger(logger.Named("pipeline")),
		invoice.WithMetrics(rec),
	), nil
}
