package config

import (
	"errors"
	"testing"
	"time"

	"github.com/a3tai/mcp-invoice-reader/internal/ocr"
)

// clearEnvVars blanks every INVOICE_* variable the loader reads for the test
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"INVOICE_MODE", "INVOICE_HOST", "INVOICE_PORT", "INVOICE_DIR", "INVOICE_LOGLEVEL",
		"INVOICE_MAXFILESIZE", "INVOICE_MINTEXTLENGTH", "INVOICE_OCR_TESSERACT", "INVOICE_OCR_PDFTOPPM",
		"INVOICE_OCR_LANG", "INVOICE_OCR_DPI", "INVOICE_OCR_PAGES", "INVOICE_OCR_MAXPAGES", "INVOICE_OCR_TIMEOUT",
	} {
		t.Setenv(name, "")
	}
}

func TestLoad_DefaultConfig(t *testing.T) {
	clearEnvVars(t)
	dir := t.TempDir()

	cfg, err := NewLoader("mcp-invoice-reader").Load([]string{"--dir=" + dir})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Mode != "stdio" {
		t.Errorf("Load() Mode = %v, want %v", cfg.Mode, "stdio")
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("Load() Host = %v, want %v", cfg.Host, "127.0.0.1")
	}
	if cfg.Port != 8080 {
		t.Errorf("Load() Port = %v, want %v", cfg.Port, 8080)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Load() LogLevel = %v, want %v", cfg.LogLevel, "info")
	}
	if cfg.MaxFileSize != 10*1024*1024 {
		t.Errorf("Load() MaxFileSize = %v, want %v", cfg.MaxFileSize, 10*1024*1024)
	}
	if cfg.OCR.Timeout != 2*time.Minute {
		t.Errorf("Load() OCR.Timeout = %v, want %v", cfg.OCR.Timeout, 2*time.Minute)
	}
	if cfg.Directory != dir {
		t.Errorf("Load() Directory = %v, want %v", cfg.Directory, dir)
	}
}

func TestLoad_ValidFlags(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "server mode with custom host and port",
			args: []string{"--mode=server", "--host=0.0.0.0", "--port=9090"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Mode != "server" || cfg.Host != "0.0.0.0" || cfg.Port != 9090 {
					t.Errorf("Load() server settings = %s %s %d", cfg.Mode, cfg.Host, cfg.Port)
				}
			},
		},
		{
			name: "debug logging",
			args: []string{"--loglevel=DEBUG"},
			check: func(t *testing.T, cfg *Config) {
				if !cfg.IsDebug() {
					t.Errorf("Load() LogLevel = %v, want debug", cfg.LogLevel)
				}
			},
		},
		{
			name: "custom size limits",
			args: []string{"--maxfilesize=5000000", "--mintextlength=20"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.MaxFileSize != 5000000 || cfg.MinTextLength != 20 {
					t.Errorf("Load() limits = %d %d", cfg.MaxFileSize, cfg.MinTextLength)
				}
			},
		},
		{
			name: "ocr settings",
			args: []string{"--ocr-lang=deu", "--ocr-dpi=200", "--ocr-pages=embedded", "--ocr-maxpages=2", "--ocr-timeout=30s"},
			check: func(t *testing.T, cfg *Config) {
				want := OCRConfig{
					Tesseract: "tesseract", Pdftoppm: "pdftoppm", Lang: "deu", DPI: 200,
					PageSource: ocr.PageSourceEmbedded, MaxPages: 2, Timeout: 30 * time.Second,
				}
				if cfg.OCR != want {
					t.Errorf("Load() OCR = %+v, want %+v", cfg.OCR, want)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars(t)
			args := append([]string{"--dir=" + t.TempDir()}, tt.args...)

			cfg, err := NewLoader("mcp-invoice-reader").Load(args)
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	clearEnvVars(t)
	dir := t.TempDir()

	t.Setenv("INVOICE_MODE", "server")
	t.Setenv("INVOICE_HOST", "192.168.1.1")
	t.Setenv("INVOICE_PORT", "3000")
	t.Setenv("INVOICE_DIR", dir)
	t.Setenv("INVOICE_LOGLEVEL", "warn")
	t.Setenv("INVOICE_MAXFILESIZE", "2000000")
	t.Setenv("INVOICE_OCR_LANG", "fra")
	t.Setenv("INVOICE_OCR_TIMEOUT", "45s")

	cfg, err := NewLoader("mcp-invoice-reader").Load(nil)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Mode != "server" {
		t.Errorf("Load() Mode = %v, want %v", cfg.Mode, "server")
	}
	if cfg.Host != "192.168.1.1" {
		t.Errorf("Load() Host = %v, want %v", cfg.Host, "192.168.1.1")
	}
	if cfg.Port != 3000 {
		t.Errorf("Load() Port = %v, want %v", cfg.Port, 3000)
	}
	if cfg.Directory != dir {
		t.Errorf("Load() Directory = %v, want %v", cfg.Directory, dir)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("Load() LogLevel = %v, want %v", cfg.LogLevel, "warn")
	}
	if cfg.MaxFileSize != 2000000 {
		t.Errorf("Load() MaxFileSize = %v, want %v", cfg.MaxFileSize, 2000000)
	}
	if cfg.OCR.Lang != "fra" {
		t.Errorf("Load() OCR.Lang = %v, want %v", cfg.OCR.Lang, "fra")
	}
	if cfg.OCR.Timeout != 45*time.Second {
		t.Errorf("Load() OCR.Timeout = %v, want %v", cfg.OCR.Timeout, 45*time.Second)
	}
}

func TestLoad_FlagOverridesEnvironment(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("INVOICE_MODE", "server")
	t.Setenv("INVOICE_HOST", "192.168.1.1")
	t.Setenv("INVOICE_PORT", "3000")

	cfg, err := NewLoader("mcp-invoice-reader").Load([]string{
		"--mode=stdio", "--host=localhost", "--port=8888", "--dir=" + t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Mode != "stdio" {
		t.Errorf("Load() Mode = %v, want %v (should override env)", cfg.Mode, "stdio")
	}
	if cfg.Host != "localhost" {
		t.Errorf("Load() Host = %v, want %v (should override env)", cfg.Host, "localhost")
	}
	if cfg.Port != 8888 {
		t.Errorf("Load() Port = %v, want %v (should override env)", cfg.Port, 8888)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "invalid mode", args: []string{"--mode=invalid"}},
		{name: "invalid port", args: []string{"--mode=server", "--port=99999"}},
		{name: "invalid log level", args: []string{"--loglevel=trace"}},
		{name: "invalid page source", args: []string{"--ocr-pages=scanner"}},
		{name: "unknown flag", args: []string{"--no-such-flag"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars(t)
			args := append([]string{"--dir=" + t.TempDir()}, tt.args...)

			if _, err := NewLoader("mcp-invoice-reader").Load(args); err == nil {
				t.Errorf("Load(%v) expected error", tt.args)
			}
		})
	}
}

func TestLoad_VersionFlag(t *testing.T) {
	for _, arg := range []string{"--version", "-version", "-v"} {
		_, err := NewLoader("mcp-invoice-reader").Load([]string{arg})
		if !errors.Is(err, ErrVersionRequested) {
			t.Errorf("Load(%s) error = %v, want ErrVersionRequested", arg, err)
		}
	}
}

func TestLoader_ExtraFlagsAndArgs(t *testing.T) {
	clearEnvVars(t)
	l := NewLoader("invoice-extract")
	format := l.Flags().String("format", "json", "output format")

	_, err := l.Load([]string{"--format=text", "--dir=" + t.TempDir(), "a.pdf", "b.pdf"})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if *format != "text" {
		t.Errorf("format = %v, want text", *format)
	}
	if args := l.Args(); len(args) != 2 || args[0] != "a.pdf" || args[1] != "b.pdf" {
		t.Errorf("Args() = %v, want [a.pdf b.pdf]", args)
	}
}
