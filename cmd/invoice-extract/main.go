package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/a3tai/mcp-invoice-reader/internal/app"
	"github.com/a3tai/mcp-invoice-reader/internal/config"
	"github.com/a3tai/mcp-invoice-reader/internal/invoice"
	"github.com/a3tai/mcp-invoice-reader/internal/logging"
	"github.com/a3tai/mcp-invoice-reader/internal/textsource"
)

var version = "dev" // This will be set by build flags

const (
	formatText = "text"
	formatJSON = "json"
)

type extractor interface {
	ExtractWithSource(ctx context.Context, path string) (invoice.ExtractedInvoiceData, textsource.Result, error)
}

// FileResult is the outcome for one input file
type FileResult struct {
	FilePath string                        `json:"file_path"`
	Success  bool                          `json:"success"`
	Method   string                        `json:"method,omitempty"`
	Elapsed  string                        `json:"extraction_time,omitempty"`
	Warnings []string                      `json:"warnings,omitempty"`
	Data     *invoice.ExtractedInvoiceData `json:"data,omitempty"`
	Error    string                        `json:"error,omitempty"`
}

// extractAll runs ex over paths with at most limit extractions in flight.
// Results keep the order of paths. Only context cancellation aborts the batch.
func extractAll(ctx context.Context, ex extractor, paths []string, limit int) ([]FileResult, error) {
	results := make([]FileResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			res := FileResult{FilePath: path}
			if abs, err := filepath.Abs(path); err == nil {
				res.FilePath = abs
			}

			start := time.Now()
			data, src, err := ex.ExtractWithSource(ctx, res.FilePath)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				res.Error = err.Error()
				results[i] = res
				return nil
			}

			res.Success = true
			res.Method = src.Method
			res.Warnings = src.Warnings
			res.Elapsed = time.Since(start).Round(time.Millisecond).String()
			res.Data = &data
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func outputResults(w io.Writer, format string, results []FileResult) error {
	switch format {
	case formatJSON:
		return outputJSON(w, results)
	case formatText:
		return outputText(w, results)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func outputJSON(w io.Writer, results []FileResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

func outputText(w io.Writer, results []FileResult) error {
	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "== %s\n", res.FilePath)
		if !res.Success {
			fmt.Fprintf(w, "Extraction failed: %s\n", res.Error)
			continue
		}

		d := res.Data
		fmt.Fprintf(w, "Source:         %s (%s)\n", res.Method, res.Elapsed)
		fmt.Fprintf(w, "Invoice Number: %s\n", d.InvoiceNumber)
		fmt.Fprintf(w, "Vendor:         %s\n", d.VendorCustomer)
		fmt.Fprintf(w, "Issue Date:     %s\n", d.IssueDate)
		fmt.Fprintf(w, "Due Date:       %s\n", d.DueDate)
		fmt.Fprintf(w, "Subtotal:       %s %s\n", d.Subtotal, d.Currency)
		fmt.Fprintf(w, "Tax:            %s %s\n", d.Tax, d.Currency)
		fmt.Fprintf(w, "Total:          %s %s\n", d.Total, d.Currency)
		if len(d.LineItems) > 0 {
			fmt.Fprintf(w, "Line Items:\n")
			for _, item := range d.LineItems {
				fmt.Fprintf(w, "  %-30s %4d x %10s = %10s\n", item.Description, item.Qty, item.UnitPrice, item.Amount)
			}
		}
		for _, warn := range res.Warnings {
			fmt.Fprintf(w, "Warning: %s\n", warn)
		}
	}
	return nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, newExtractor func(*config.Config, *zap.Logger) (extractor, error)) int {
	loader := config.NewLoader("invoice-extract")
	format := loader.Flags().String("format", formatText, "Output format: text, json")
	concurrency := loader.Flags().Int("concurrency", 4, "Maximum number of files extracted at once")

	cfg, err := loader.Load(args)
	if errors.Is(err, config.ErrVersionRequested) {
		fmt.Fprintf(stdout, "invoice-extract %s\n", version)
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	paths := loader.Args()
	if len(paths) == 0 {
		fmt.Fprintf(stderr, "Error: at least one PDF file path required\n\n")
		loader.Flags().Usage()
		return 2
	}
	if *format != formatText && *format != formatJSON {
		fmt.Fprintf(stderr, "Error: unsupported output format: %s\n", *format)
		return 2
	}

	logger, err := logging.New(cfg.LogLevel, true)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer func() { _ = logger.Sync() }()

	ex, err := newExtractor(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	results, err := extractAll(ctx, ex, paths, *concurrency)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if err := outputResults(stdout, *format, results); err != nil {
		fmt.Fprintf(stderr, "Error outputting results: %v\n", err)
		return 1
	}

	var failed []string
	for _, res := range results {
		if !res.Success {
			failed = append(failed, filepath.Base(res.FilePath))
		}
	}
	if len(failed) > 0 {
		logger.Warn("some files failed", zap.String("files", strings.Join(failed, ",")))
		return 1
	}
	return 0
}

func newPipeline(cfg *config.Config, logger *zap.Logger) (extractor, error) {
	return app.NewPipeline(cfg, logger, nil)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, newPipeline)
	stop()
	os.Exit(code)
}
