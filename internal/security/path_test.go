package security

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestNewPathValidator(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name      string
		dir       string
		wantError bool
	}{
		{name: "valid directory", dir: tempDir},
		{name: "empty directory", dir: "", wantError: true},
		{name: "non-existent directory", dir: "/non/existent/path"},
		{name: "relative directory", dir: "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator, err := NewPathValidator(tt.dir)
			if tt.wantError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !filepath.IsAbs(validator.Root()) {
				t.Errorf("Root() = %q, want absolute path", validator.Root())
			}
		})
	}
}

func TestPathValidator_Resolve(t *testing.T) {
	tempDir := t.TempDir()

	subDir := filepath.Join(tempDir, "2024")
	if err := os.Mkdir(subDir, 0755); err != nil {
		t.Fatalf("Failed to create subdirectory: %v", err)
	}
	validFile := filepath.Join(tempDir, "invoice.pdf")
	if err := os.WriteFile(validFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	validator, err := NewPathValidator(tempDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		want    string
		outside bool
		wantErr bool
	}{
		{name: "empty path", path: "", wantErr: true},
		{name: "blank path", path: "  ", wantErr: true},
		{name: "absolute file in root", path: validFile, want: validFile},
		{name: "relative file", path: "invoice.pdf", want: validFile},
		{name: "relative file in subdirectory", path: "2024/march.pdf", want: filepath.Join(subDir, "march.pdf")},
		{name: "dot segments", path: filepath.Join(tempDir, ".", "invoice.pdf"), want: validFile},
		{name: "null bytes stripped", path: "invoice\x00.pdf", want: validFile},
		{name: "root itself", path: tempDir, want: tempDir},
		{name: "file outside directory", path: "/etc/passwd", outside: true, wantErr: true},
		{name: "parent traversal", path: "../outside.pdf", outside: true, wantErr: true},
		{name: "sibling with shared prefix", path: tempDir + "-other/invoice.pdf", outside: true, wantErr: true},
		{name: "dotdot-prefixed name inside root", path: "..invoice.pdf", want: filepath.Join(tempDir, "..invoice.pdf")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validator.Resolve(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Resolve(%q) expected error but got %q", tt.path, got)
				}
				if tt.outside && !errors.Is(err, ErrOutsideRoot) {
					t.Errorf("Resolve(%q) error = %v, want ErrOutsideRoot", tt.path, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) unexpected error: %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestPathValidator_SymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on windows")
	}

	root := t.TempDir()
	outside := t.TempDir()
	target := filepath.Join(outside, "secret.pdf")
	if err := os.WriteFile(target, []byte("secret"), 0644); err != nil {
		t.Fatalf("Failed to create target: %v", err)
	}
	link := filepath.Join(root, "link.pdf")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	validator, err := NewPathValidator(root)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}

	if err := validator.ValidatePath(link); !errors.Is(err, ErrOutsideRoot) {
		t.Errorf("ValidatePath(symlink) error = %v, want ErrOutsideRoot", err)
	}
}
