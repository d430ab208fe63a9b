// Package security confines tool-supplied file paths to the working directory.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned for paths that escape the configured directory.
var ErrOutsideRoot = errors.New("path is outside configured directory")

// PathValidator resolves caller paths against a root directory
type PathValidator struct {
	root string
}

// NewPathValidator creates a validator rooted at dir. The directory does not
// have to exist yet.
func NewPathValidator(dir string) (*PathValidator, error) {
	if dir == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve configured directory: %w", err)
	}
	return &PathValidator{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute configured directory.
func (v *PathValidator) Root() string {
	return v.root
}

// Resolve returns the absolute form of path, interpreting relative paths
// against the root, and fails if the result (or its symlink target) lies
// outside the root.
func (v *PathValidator) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(v.root, path)
	}
	abs := filepath.Clean(path)

	if !within(v.root, abs) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}

	// compare real paths too, so a symlink inside the root cannot point out of it
	realRoot := evalOrSelf(v.root)
	realPath := evalOrSelf(abs)
	if !within(realRoot, realPath) {
		return "", fmt.Errorf("%w: %s resolves to %s", ErrOutsideRoot, path, realPath)
	}

	return abs, nil
}

// ValidatePath reports whether path resolves inside the root.
func (v *PathValidator) ValidatePath(path string) error {
	_, err := v.Resolve(path)
	return err
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// evalOrSelf resolves symlinks in the longest existing prefix of path
func evalOrSelf(path string) string {
	rest := ""
	cur := path
	for {
		if _, err := os.Lstat(cur); err == nil {
			resolved, err := filepath.EvalSymlinks(cur)
			if err != nil {
				return path
			}
			return filepath.Join(resolved, rest)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return path
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}
