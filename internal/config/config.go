package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-invoice-reader/internal/ocr"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort          = 8080
	DefaultHost          = "127.0.0.1"
	DefaultLogLevel      = "info"
	DefaultMaxFileSize   = 10 * 1024 * 1024 // 10MB
	DefaultMinTextLength = 50
	DefaultOCRLang       = "eng"
	DefaultOCRDPI        = 300
	DefaultOCRTimeout    = 2 * time.Minute

	// Directory permissions
	DefaultDirPerm = 0o750

	envPrefix = "INVOICE"
)

// ErrVersionRequested is returned by Load when --version is on the command line
var ErrVersionRequested = errors.New("version requested")

// OCRConfig holds the OCR fallback settings
type OCRConfig struct {
	Tesseract  string
	Pdftoppm   string
	Lang       string
	DPI        int
	PageSource string        // ocr.PageSourceRender or ocr.PageSourceEmbedded
	MaxPages   int           // 0 = all pages
	Timeout    time.Duration // per document
}

// Config holds all configuration for the invoice reader
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Directory that tool paths are confined to and uploads are written to
	Directory string

	// Application configuration
	Version       string
	ServerName    string
	LogLevel      string
	MaxFileSize   int64 // Maximum PDF file size in bytes
	MinTextLength int   // direct text shorter than this falls back to OCR

	OCR OCRConfig
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:          ModeStdio, // Default to stdio mode for MCP compatibility
		Host:          DefaultHost,
		Port:          DefaultPort,
		Directory:     currentDir,
		Version:       "1.0.0",
		ServerName:    "mcp-invoice-reader",
		LogLevel:      DefaultLogLevel,
		MaxFileSize:   DefaultMaxFileSize,
		MinTextLength: DefaultMinTextLength,
		OCR: OCRConfig{
			Tesseract:  "tesseract",
			Pdftoppm:   "pdftoppm",
			Lang:       DefaultOCRLang,
			DPI:        DefaultOCRDPI,
			PageSource: ocr.PageSourceRender,
			Timeout:    DefaultOCRTimeout,
		},
	}
}

// flag name -> viper key
var flagKeys = map[string]string{
	"mode":          "mode",
	"host":          "host",
	"port":          "port",
	"dir":           "dir",
	"loglevel":      "loglevel",
	"maxfilesize":   "maxfilesize",
	"mintextlength": "mintextlength",
	"ocr-tesseract": "ocr.tesseract",
	"ocr-pdftoppm":  "ocr.pdftoppm",
	"ocr-lang":      "ocr.lang",
	"ocr-dpi":       "ocr.dpi",
	"ocr-pages":     "ocr.pages",
	"ocr-maxpages":  "ocr.maxpages",
	"ocr-timeout":   "ocr.timeout",
}

// Loader reads configuration from defaults, INVOICE_* environment variables
// and command line flags, in increasing order of precedence.
type Loader struct {
	name  string
	v     *viper.Viper
	flags *pflag.FlagSet
	base  *Config
}

// NewLoader creates a loader for the named program
func NewLoader(name string) *Loader {
	l := &Loader{
		name:  name,
		v:     viper.New(),
		flags: pflag.NewFlagSet(name, pflag.ContinueOnError),
		base:  DefaultConfig(),
	}

	l.setupViperEnvironment()
	l.defineCommandLineFlags()
	l.bindFlagsToViper()
	l.setupUsageMessage(os.Stderr)
	return l
}

// Flags exposes the flag set so programs can add their own flags before Load
func (l *Loader) Flags() *pflag.FlagSet {
	return l.flags
}

// Args returns the positional arguments left after Load
func (l *Loader) Args() []string {
	return l.flags.Args()
}

// Load parses args (without the program name) and returns a validated config
func (l *Loader) Load(args []string) (*Config, error) {
	if wantsVersion(args) {
		return nil, ErrVersionRequested
	}

	if err := l.flags.Parse(args); err != nil {
		return nil, err
	}

	cfg := *l.base
	l.populateConfigFromViper(&cfg)

	if cfg.Directory != "" {
		if expandedPath, err := filepath.Abs(cfg.Directory); err == nil {
			cfg.Directory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromFlags loads the configuration from os.Args
func LoadFromFlags() (*Config, error) {
	return NewLoader(filepath.Base(os.Args[0])).Load(os.Args[1:])
}

// setupViperEnvironment configures viper with environment variables and defaults
func (l *Loader) setupViperEnvironment() {
	cfg := l.base

	l.v.SetEnvPrefix(envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	l.v.SetDefault("mode", cfg.Mode)
	l.v.SetDefault("host", cfg.Host)
	l.v.SetDefault("port", cfg.Port)
	l.v.SetDefault("dir", cfg.Directory)
	l.v.SetDefault("loglevel", cfg.LogLevel)
	l.v.SetDefault("maxfilesize", cfg.MaxFileSize)
	l.v.SetDefault("mintextlength", cfg.MinTextLength)
	l.v.SetDefault("ocr.tesseract", cfg.OCR.Tesseract)
	l.v.SetDefault("ocr.pdftoppm", cfg.OCR.Pdftoppm)
	l.v.SetDefault("ocr.lang", cfg.OCR.Lang)
	l.v.SetDefault("ocr.dpi", cfg.OCR.DPI)
	l.v.SetDefault("ocr.pages", cfg.OCR.PageSource)
	l.v.SetDefault("ocr.maxpages", cfg.OCR.MaxPages)
	l.v.SetDefault("ocr.timeout", cfg.OCR.Timeout)
}

// defineCommandLineFlags sets up all command line flags
func (l *Loader) defineCommandLineFlags() {
	cfg := l.base
	fs := l.flags

	fs.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	fs.String("host", cfg.Host, "Server host address (server mode only)")
	fs.Int("port", cfg.Port, "Server port (server mode only)")
	fs.String("dir", cfg.Directory, "Directory containing invoices; uploads are stored here")
	fs.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	fs.Int("mintextlength", cfg.MinTextLength, "Minimum direct text length before falling back to OCR")
	fs.String("ocr-tesseract", cfg.OCR.Tesseract, "tesseract binary")
	fs.String("ocr-pdftoppm", cfg.OCR.Pdftoppm, "pdftoppm binary")
	fs.String("ocr-lang", cfg.OCR.Lang, "OCR language")
	fs.Int("ocr-dpi", cfg.OCR.DPI, "Rasterization DPI for OCR")
	fs.String("ocr-pages", cfg.OCR.PageSource, "OCR page source: 'render' (pdftoppm) or 'embedded' (images in the PDF)")
	fs.Int("ocr-maxpages", cfg.OCR.MaxPages, "Maximum pages to OCR (0 = all)")
	fs.Duration("ocr-timeout", cfg.OCR.Timeout, "OCR time limit per document")
	fs.Bool("version", false, "Print version information and exit")
}

// bindFlagsToViper binds command line flags to viper configuration
func (l *Loader) bindFlagsToViper() {
	for flag, key := range flagKeys {
		_ = l.v.BindPFlag(key, l.flags.Lookup(flag))
	}
}

// setupUsageMessage configures the custom usage message
func (l *Loader) setupUsageMessage(w io.Writer) {
	l.flags.Usage = func() {
		fmt.Fprintf(w, "Usage of %s:\n", l.name)
		fmt.Fprintf(w, "\nMCP Invoice Reader - extracts structured fields from invoice PDFs\n\n")
		fmt.Fprintf(w, "Options:\n")
		l.flags.PrintDefaults()
		fmt.Fprintf(w, "\nExamples:\n")
		fmt.Fprintf(w, "  %s                                         "+
			"# stdio mode, current directory (default)\n", l.name)
		fmt.Fprintf(w, "  %s --dir=/path/to/invoices                 "+
			"# stdio mode with custom directory\n", l.name)
		fmt.Fprintf(w, "  %s --mode=server --dir=/path/to/invoices   # HTTP upload server\n", l.name)
		fmt.Fprintf(w, "  %s --ocr-pages=embedded                    # OCR without pdftoppm\n", l.name)
		fmt.Fprintf(w, "\nEnvironment Variables:\n")
		fmt.Fprintf(w, "  INVOICE_MODE          Server mode\n")
		fmt.Fprintf(w, "  INVOICE_HOST          Server host\n")
		fmt.Fprintf(w, "  INVOICE_PORT          Server port\n")
		fmt.Fprintf(w, "  INVOICE_DIR           Invoice directory\n")
		fmt.Fprintf(w, "  INVOICE_LOGLEVEL      Log level\n")
		fmt.Fprintf(w, "  INVOICE_MAXFILESIZE   Maximum file size\n")
		fmt.Fprintf(w, "  INVOICE_MINTEXTLENGTH OCR fallback threshold\n")
		fmt.Fprintf(w, "  INVOICE_OCR_LANG      OCR language (also _TESSERACT, _PDFTOPPM, _DPI, _PAGES, _MAXPAGES, _TIMEOUT)\n")
	}
}

func wantsVersion(args []string) bool {
	for _, arg := range args {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return true
		}
	}
	return false
}

// populateConfigFromViper fills the config struct with values from viper
func (l *Loader) populateConfigFromViper(cfg *Config) {
	cfg.Mode = l.v.GetString("mode")
	cfg.Host = l.v.GetString("host")
	cfg.Port = l.v.GetInt("port")
	cfg.Directory = l.v.GetString("dir")
	cfg.LogLevel = strings.ToLower(l.v.GetString("loglevel"))
	cfg.MaxFileSize = l.v.GetInt64("maxfilesize")
	cfg.MinTextLength = l.v.GetInt("mintextlength")
	cfg.OCR.Tesseract = l.v.GetString("ocr.tesseract")
	cfg.OCR.Pdftoppm = l.v.GetString("ocr.pdftoppm")
	cfg.OCR.Lang = l.v.GetString("ocr.lang")
	cfg.OCR.DPI = l.v.GetInt("ocr.dpi")
	cfg.OCR.PageSource = l.v.GetString("ocr.pages")
	cfg.OCR.MaxPages = l.v.GetInt("ocr.maxpages")
	cfg.OCR.Timeout = l.v.GetDuration("ocr.timeout")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Port only matters when serving HTTP
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.Directory == "" {
		return errors.New("invoice directory cannot be empty")
	}

	// Create the directory if it doesn't exist; uploads are written there
	if _, err := os.Stat(c.Directory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.Directory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create invoice directory %s: %w", c.Directory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access invoice directory %s: %w", c.Directory, err)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.MinTextLength <= 0 {
		return errors.New("minimum text length must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return c.OCR.Validate()
}

// Validate checks the OCR settings
func (o OCRConfig) Validate() error {
	if o.Lang == "" {
		return errors.New("OCR language cannot be empty")
	}
	if o.DPI < 72 || o.DPI > 1200 {
		return fmt.Errorf("OCR DPI must be between 72 and 1200, got %d", o.DPI)
	}
	if o.PageSource != ocr.PageSourceRender && o.PageSource != ocr.PageSourceEmbedded {
		return fmt.Errorf("OCR page source must be '%s' or '%s', got %q",
			ocr.PageSourceRender, ocr.PageSourceEmbedded, o.PageSource)
	}
	if o.MaxPages < 0 {
		return errors.New("OCR max pages cannot be negative")
	}
	if o.Timeout < 0 {
		return errors.New("OCR timeout cannot be negative")
	}
	return nil
}

// Engine converts the settings to an ocr.Config
func (o OCRConfig) Engine() ocr.Config {
	return ocr.Config{
		Tesseract:  o.Tesseract,
		Pdftoppm:   o.Pdftoppm,
		Lang:       o.Lang,
		DPI:        o.DPI,
		MaxPages:   o.MaxPages,
		PageSource: o.PageSource,
	}
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, Directory: %s, LogLevel: %s, MaxFileSize: %d, "+
		"MinTextLength: %d, OCR: {Lang: %s, DPI: %d, Pages: %s, MaxPages: %d, Timeout: %s}}",
		c.Mode, c.Host, c.Port, c.Directory, c.LogLevel, c.MaxFileSize,
		c.MinTextLength, c.OCR.Lang, c.OCR.DPI, c.OCR.PageSource, c.OCR.MaxPages, c.OCR.Timeout)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
