package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-invoice-reader/internal/config"
	"github.com/a3tai/mcp-invoice-reader/internal/descriptions"
	"github.com/a3tai/mcp-invoice-reader/internal/invoice"
	"github.com/a3tai/mcp-invoice-reader/internal/security"
	"github.com/a3tai/mcp-invoice-reader/internal/textsource"
)

// Tool names
const (
	ToolExtract    = "invoice_extract"
	ToolParseText  = "invoice_parse_text"
	ToolServerInfo = "invoice_server_info"
)

// maxListedFiles caps the directory listing in invoice_server_info
const maxListedFiles = 10

// Extractor runs the invoice pipeline on a file
type Extractor interface {
	ExtractWithSource(ctx context.Context, path string) (invoice.ExtractedInvoiceData, textsource.Result, error)
}

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	extractor Extractor
	paths     *security.PathValidator
	logger    *zap.Logger
	mcpServer *server.MCPServer
}

// ExtractResponse is the invoice_extract payload
type ExtractResponse struct {
	Path   string                       `json:"path"`
	Data   invoice.ExtractedInvoiceData `json:"data"`
	Source SourceInfo                   `json:"source"`
}

// SourceInfo reports how the text of a document was obtained
type SourceInfo struct {
	Method     string   `json:"method"`
	Pages      int      `json:"pages"`
	DurationMS int64    `json:"durationMs"`
	Warnings   []string `json:"warnings,omitempty"`
	DirectErr  string   `json:"directError,omitempty"`
}

// ToolInfo describes one registered tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  string `json:"parameters"`
}

// FileInfo is a PDF found in the configured directory
type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// ServerInfo is the invoice_server_info payload
type ServerInfo struct {
	ServerName  string     `json:"serverName"`
	Version     string     `json:"version"`
	Directory   string     `json:"directory"`
	MaxFileSize int64      `json:"maxFileSize"`
	OCRLang     string     `json:"ocrLang"`
	OCRPages    string     `json:"ocrPages"`
	Tools       []ToolInfo `json:"tools"`
	Files       []FileInfo `json:"files"`
	TotalFiles  int        `json:"totalFiles"`
}

var tools = []ToolInfo{
	{
		Name:        ToolExtract,
		Description: "Extract invoice fields (number, vendor, dates, amounts, currency, line items) from a PDF file",
		Parameters:  "path (required): path to the PDF, absolute or relative to the configured directory",
	},
	{
		Name:        ToolParseText,
		Description: "Run the invoice field extractors over raw text without reading a file",
		Parameters:  "text (required): invoice text",
	},
	{
		Name:        ToolServerInfo,
		Description: "Get server information, available tools and the PDFs in the configured directory",
		Parameters:  "none",
	},
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, extractor Extractor, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if extractor == nil {
		return nil, fmt.Errorf("extractor cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	paths, err := security.NewPathValidator(cfg.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:    cfg,
		extractor: extractor,
		paths:     paths,
		logger:    logger,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	extractTool := mcp.NewTool(
		ToolExtract,
		mcp.WithDescription(descriptions.GetToolDescription(ToolExtract)),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the invoice PDF"),
		),
	)
	s.mcpServer.AddTool(extractTool, s.handleExtract)

	parseTextTool := mcp.NewTool(
		ToolParseText,
		mcp.WithDescription(descriptions.GetToolDescription(ToolParseText)),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Raw invoice text"),
		),
	)
	s.mcpServer.AddTool(parseTextTool, s.handleParseText)

	serverInfoTool := mcp.NewTool(
		ToolServerInfo,
		mcp.WithDescription(descriptions.GetToolDescription(ToolServerInfo)),
	)
	s.mcpServer.AddTool(serverInfoTool, s.handleServerInfo)
}

// Handler functions
func (s *Server) handleExtract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved, err := s.paths.Resolve(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, src, err := s.extractor.ExtractWithSource(ctx, resolved)
	if err != nil {
		s.logger.Warn("invoice_extract failed", zap.String("path", resolved), zap.Error(err))
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp := ExtractResponse{
		Path:   resolved,
		Data:   data,
		Source: sourceInfo(src),
	}
	return jsonResult(resp)
}

func (s *Server) handleParseText(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(invoice.ParseText(text))
}

func (s *Server) handleServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info := s.serverInfo()
	return mcp.NewToolResultText(s.formatServerInfo(info)), nil
}

func (s *Server) serverInfo() ServerInfo {
	info := ServerInfo{
		ServerName:  s.config.ServerName,
		Version:     s.config.Version,
		Directory:   s.paths.Root(),
		MaxFileSize: s.config.MaxFileSize,
		OCRLang:     s.config.OCR.Lang,
		OCRPages:    s.config.OCR.PageSource,
		Tools:       tools,
	}

	files, err := listPDFs(s.paths.Root())
	if err != nil {
		s.logger.Debug("cannot list invoice directory", zap.String("dir", s.paths.Root()), zap.Error(err))
	}
	info.TotalFiles = len(files)
	if len(files) > maxListedFiles {
		files = files[:maxListedFiles]
	}
	info.Files = files

	return info
}

func (s *Server) formatServerInfo(info ServerInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s v%s - Server Information\n", info.ServerName, info.Version)
	fmt.Fprintf(&b, "Directory: %s\n", info.Directory)
	fmt.Fprintf(&b, "Max File Size: %d MB\n", info.MaxFileSize/(1024*1024))
	fmt.Fprintf(&b, "OCR: lang=%s pages=%s\n\n", info.OCRLang, info.OCRPages)

	if info.TotalFiles > 0 {
		fmt.Fprintf(&b, "Directory Contents (%d PDF files found):\n", info.TotalFiles)
		for i, f := range info.Files {
			fmt.Fprintf(&b, "   %d. %s (%d bytes)\n", i+1, f.Name, f.Size)
		}
		if info.TotalFiles > len(info.Files) {
			fmt.Fprintf(&b, "   ... and %d more files\n", info.TotalFiles-len(info.Files))
		}
		b.WriteString("\n")
	} else {
		b.WriteString("Directory Contents: No PDF files found\n\n")
	}

	b.WriteString("Available Tools:\n")
	for _, tool := range info.Tools {
		fmt.Fprintf(&b, "\n- %s\n", tool.Name)
		fmt.Fprintf(&b, "  Description: %s\n", tool.Description)
		fmt.Fprintf(&b, "  Parameters: %s\n", tool.Parameters)
	}

	return b.String()
}

// listPDFs returns the PDFs directly inside dir, sorted by name
func listPDFs(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{Name: entry.Name(), Size: info.Size()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func sourceInfo(src textsource.Result) SourceInfo {
	info := SourceInfo{
		Method:     src.Method,
		Pages:      src.Pages,
		DurationMS: src.Duration.Milliseconds(),
		Warnings:   src.Warnings,
	}
	if src.DirectErr != nil {
		info.DirectErr = src.DirectErr.Error()
	}
	return info
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}

// Run serves MCP over stdio until the client disconnects
func (s *Server) Run(_ context.Context) error {
	s.logger.Info("starting MCP server on stdio",
		zap.String("name", s.config.ServerName),
		zap.String("dir", s.paths.Root()),
	)

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
