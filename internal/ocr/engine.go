package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Page sources
const (
	PageSourceRender   = "render"   // pdftoppm rasterization
	PageSourceEmbedded = "embedded" // pdfcpu embedded-image extraction
)

// ErrNoPages is returned when the page source yields no images.
var ErrNoPages = errors.New("no page images produced")

// strips lines made only of box-drawing/rule characters
var reBoxNoise = regexp.MustCompile(`(?m)^[ \t|_\-=~^.:;]+$`)

type Config struct {
	Tesseract  string // binary name or absolute path; if empty -> "tesseract"
	Pdftoppm   string // binary name or absolute path; if empty -> "pdftoppm"
	Lang       string // default "eng"
	DPI        int    // rasterization DPI, default 300
	MaxPages   int    // 0 = no limit
	PSM        int    // tesseract page segmentation mode; 0 = tesseract default
	PageSource string // PageSourceRender | PageSourceEmbedded
	ScratchDir string // parent of per-session scratch dirs; "" = os.TempDir()
}

// Result is the text recognized across all pages of one document.
type Result struct {
	Text     string
	Pages    int
	Warnings []string
}

// Engine recognizes text in a PDF. It owns resources until Close.
type Engine interface {
	Recognize(ctx context.Context, pdfPath string) (Result, error)
	Close() error
}

// Provider hands out engines scoped to a single extraction.
type Provider interface {
	Acquire(ctx context.Context) (Engine, error)
}

// PageSource turns a PDF into page images inside dir.
type PageSource interface {
	Pages(ctx context.Context, pdfPath, dir string) ([]string, error)
}

// Option configures a Factory.
type Option func(*Factory)

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(f *Factory) { f.runner = r }
}

// WithPageSource replaces the page source selected by Config.PageSource.
func WithPageSource(ps PageSource) Option {
	return func(f *Factory) { f.pages = ps }
}

// Factory creates OCR sessions.
type Factory struct {
	cfg    Config
	runner Runner
	pages  PageSource
	logger *zap.Logger
}

// NewFactory creates a session factory, filling config defaults.
func NewFactory(cfg Config, logger *zap.Logger, opts ...Option) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.PageSource == "" {
		cfg.PageSource = PageSourceRender
	}

	f := &Factory{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(f)
	}
	if f.runner == nil {
		f.runner = ExecRunner{Logger: logger}
	}
	if f.pages == nil {
		switch cfg.PageSource {
		case PageSourceEmbedded:
			f.pages = NewEmbeddedSource(cfg.MaxPages)
		default:
			f.pages = NewRenderSource(f.runner, cfg.Pdftoppm, cfg.DPI, cfg.MaxPages)
		}
	}
	return f
}

// Config returns the effective configuration.
func (f *Factory) Config() Config {
	return f.cfg
}

// Acquire creates a session with its own scratch directory.
func (f *Factory) Acquire(ctx context.Context) (Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp(f.cfg.ScratchDir, "invoice-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	f.logger.Debug("ocr session acquired", zap.String("dir", dir))
	return &Session{factory: f, dir: dir}, nil
}

// Session is a single-use OCR engine. Close removes its scratch directory.
type Session struct {
	factory *Factory
	dir     string
	closed  bool
}

// Dir returns the session scratch directory.
func (s *Session) Dir() string {
	return s.dir
}

// Recognize renders the pages of pdfPath and runs tesseract on each.
// A page that fails to recognize becomes a warning.
func (s *Session) Recognize(ctx context.Context, pdfPath string) (Result, error) {
	if s.closed {
		return Result{}, errors.New("ocr session is closed")
	}
	cfg := s.factory.cfg

	images, err := s.factory.pages.Pages(ctx, pdfPath, s.dir)
	if err != nil {
		return Result{}, err
	}
	if cfg.MaxPages > 0 && len(images) > cfg.MaxPages {
		images = images[:cfg.MaxPages]
	}
	if len(images) == 0 {
		return Result{}, ErrNoPages
	}

	var b strings.Builder
	var warns []string
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		txt, err := s.tesseract(ctx, img)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			warns = append(warns, err.Error())
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(txt)
	}

	return Result{Text: b.String(), Pages: len(images), Warnings: warns}, nil
}

func (s *Session) tesseract(ctx context.Context, img string) (string, error) {
	cfg := s.factory.cfg
	// tesseract <file> stdout -l <lang> [--psm N]
	args := []string{img, "stdout", "-l", cfg.Lang}
	if cfg.PSM > 0 {
		args = append(args, "--psm", fmt.Sprintf("%d", cfg.PSM))
	}

	out, errb, err := s.factory.runner.Run(ctx, cfg.Tesseract, args...)
	if err != nil {
		msg := strings.TrimSpace(string(errb))
		if msg != "" {
			return "", fmt.Errorf("tesseract: %w: %s", err, msg)
		}
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return reBoxNoise.ReplaceAllString(string(out), ""), nil
}

// Close releases the session. It is safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := os.RemoveAll(s.dir); err != nil {
		s.factory.logger.Warn("failed to remove ocr scratch dir", zap.String("dir", s.dir), zap.Error(err))
		return err
	}
	s.factory.logger.Debug("ocr session released", zap.String("dir", s.dir))
	return nil
}

// Recognize acquires an engine from p, recognizes pdfPath and releases it.
func Recognize(ctx context.Context, p Provider, pdfPath string) (Result, error) {
	engine, err := p.Acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer engine.Close()

	return engine.Recognize(ctx, pdfPath)
}
