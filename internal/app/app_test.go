package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-invoice-reader/internal/config"
	"github.com/a3tai/mcp-invoice-reader/internal/ocr"
	"github.com/a3tai/mcp-invoice-reader/internal/textsource"
)

// fakeTools stands in for pdftoppm and tesseract
type fakeTools struct {
	text string
}

func (f fakeTools) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	switch name {
	case "pdftoppm":
		prefix := args[len(args)-1]
		return nil, nil, os.WriteFile(prefix+"-1.png", nil, 0o600)
	case "tesseract":
		return []byte(f.text), nil, nil
	}
	return nil, nil, errors.New("unexpected command " + name)
}

func TestNewPipelineFallsBackToOCR(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Directory = t.TempDir()

	// not a parseable PDF, so direct extraction fails and OCR runs
	path := filepath.Join(cfg.Directory, "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	reg := prometheus.NewRegistry()
	p, err := NewPipeline(cfg, nil, reg,
		WithOCROptions(ocr.WithRunner(fakeTools{text: "Invoice No. 5521\nVendor: Initech\nTotal: 75.00 GBP"})))
	require.NoError(t, err)

	data, src, err := p.ExtractWithSource(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, textsource.MethodPDFOCR, src.Method)
	assert.Error(t, src.DirectErr)
	assert.Equal(t, "5521", data.InvoiceNumber)
	assert.Equal(t, "Initech", data.VendorCustomer)
	assert.Equal(t, "75.00", data.Total)
	assert.Equal(t, "GBP", data.Currency)

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, strings.Join(names, ","), "invoice_ocr_fallbacks_total")
}

func TestNewPipelineMissingFile(t *testing.T) {
	cfg := config.DefaultConfig()
	p, err := NewPipeline(cfg, nil, nil)
	require.NoError(t, err)

	_, err = p.Extract(context.Background(), filepath.Join(t.TempDir(), "none.pdf"))
	assert.ErrorIs(t, err, textsource.ErrSourceUnavailable)
}

func TestNewPipelineErrors(t *testing.T) {
	_, err := NewPipeline(nil, nil, nil)
	assert.Error(t, err)

	reg := prometheus.NewRegistry()
	_, err = NewPipeline(config.DefaultConfig(), nil, reg)
	require.NoError(t, err)
	_, err = NewPipeline(config.DefaultConfig(), nil, reg)
	assert.Error(t, err, "registering twice should fail")
}
