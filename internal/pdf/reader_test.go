package pdf

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// minimalPDF is a one-page document with no content stream
var minimalPDF = []byte(`%PDF-1.4
1 0 obj
<<
/Type /Catalog
/Pages 2 0 R
>>
endobj
2 0 obj
<<
/Type /Pages
/Kids [3 0 R]
/Count 1
>>
endobj
3 0 obj
<<
/Type /Page
/Parent 2 0 R
/MediaBox [0 0 612 792]
>>
endobj
xref
0 4
0000000000 65535 f
0000000010 00000 n
0000000053 00000 n
0000000125 00000 n
trailer
<<
/Size 4
/Root 1 0 R
>>
startxref
196
%%EOF`)

func TestNewReader(t *testing.T) {
	tests := []struct {
		name        string
		maxFileSize int64
	}{
		{name: "standard max file size", maxFileSize: 10 * 1024 * 1024},
		{name: "small max file size", maxFileSize: 1024},
		{name: "unlimited", maxFileSize: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewReader(tt.maxFileSize)
			if got.maxFileSize != tt.maxFileSize {
				t.Errorf("NewReader() maxFileSize = %v, want %v", got.maxFileSize, tt.maxFileSize)
			}
			if got.maxTextSize != 10*1024*1024 {
				t.Errorf("NewReader() maxTextSize = %v, want %v", got.maxTextSize, 10*1024*1024)
			}
		})
	}
}

func TestReader_ExtractText(t *testing.T) {
	tempDir := t.TempDir()

	notPDFPath := filepath.Join(tempDir, "scan.pdf")
	dirPath := filepath.Join(tempDir, "invoices")
	largePath := filepath.Join(tempDir, "large.pdf")

	if err := os.WriteFile(notPDFPath, []byte("This is not a PDF"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	if err := os.Mkdir(dirPath, 0755); err != nil {
		t.Fatalf("Failed to create test directory: %v", err)
	}
	if err := os.WriteFile(largePath, make([]byte, 1024*1024+1), 0644); err != nil {
		t.Fatalf("Failed to create large test file: %v", err)
	}

	reader := NewReader(1024 * 1024)

	tests := []struct {
		name   string
		path   string
		errMsg string
	}{
		{name: "empty path", path: "", errMsg: "path cannot be empty"},
		{name: "non-existent file", path: "/non/existent/invoice.pdf", errMsg: "file does not exist"},
		{name: "directory instead of file", path: dirPath, errMsg: "path is a directory"},
		{name: "file too large", path: largePath, errMsg: "file too large"},
		{name: "not a PDF", path: notPDFPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, _, err := reader.ExtractText(context.Background(), tt.path)
			if err == nil {
				t.Fatalf("ExtractText() expected error but got none")
			}
			if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("ExtractText() error = %v, want error containing %v", err, tt.errMsg)
			}
			if text != "" {
				t.Errorf("ExtractText() expected empty text on error, got %q", text)
			}
		})
	}
}

func TestReader_ExtractTextMinimalPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blank.pdf")
	if err := os.WriteFile(path, minimalPDF, 0644); err != nil {
		t.Fatalf("Failed to create test PDF file: %v", err)
	}

	// A page without content has no text layer. Depending on how strictly the
	// xref offsets are read this is either empty text or a parse error; it
	// must never panic.
	text, _, err := NewReader(0).ExtractText(context.Background(), path)
	if err == nil && strings.TrimSpace(text) != "" {
		t.Errorf("ExtractText() expected no text, got %q", text)
	}
}

func TestReader_validateFileInfo(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name        string
		maxFileSize int64
		fileSize    int64
		wantErr     bool
	}{
		{name: "file under limit", maxFileSize: 1024 * 1024, fileSize: 1024},
		{name: "file at exact limit", maxFileSize: 1024, fileSize: 1024},
		{name: "file over limit", maxFileSize: 1024, fileSize: 1024 + 1, wantErr: true},
		{name: "zero size file", maxFileSize: 1024, fileSize: 0},
		{name: "no limit", maxFileSize: 0, fileSize: 4096},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewReader(tt.maxFileSize)
			filePath := filepath.Join(tempDir, "invoice.pdf")
			if err := os.WriteFile(filePath, make([]byte, tt.fileSize), 0644); err != nil {
				t.Fatalf("Failed to create test file: %v", err)
			}
			fileInfo, err := os.Stat(filePath)
			if err != nil {
				t.Fatalf("Failed to get file info: %v", err)
			}

			err = reader.validateFileInfo(filePath, fileInfo)
			if tt.wantErr && err == nil {
				t.Errorf("validateFileInfo() expected error for size %d", tt.fileSize)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("validateFileInfo() unexpected error = %v", err)
			}
		})
	}
}

func TestReader_ExtractTextCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blank.pdf")
	if err := os.WriteFile(path, minimalPDF, 0644); err != nil {
		t.Fatalf("Failed to create test PDF file: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	text, _, err := NewReader(0).ExtractText(ctx, path)
	if err == nil && text != "" {
		t.Errorf("ExtractText() expected no text for cancelled context, got %q", text)
	}
}
