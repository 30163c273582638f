// Package sandbox provides the workspace the engine acts on: file
// operations, pattern search, and command execution rooted at a single
// directory. Paths are resolved inside the root and escapes are rejected.
package sandbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Match is a single grep hit with file/line context.
type Match struct {
	Path        string `json:"path"`
	LineNumber  int    `json:"line_number"`
	LineContent string `json:"line_content"`
}

// Sandbox is the filesystem and command surface the engine works against.
type Sandbox interface {
	RunCommand(ctx context.Context, command string, timeout time.Duration) (exitCode int, stdout, stderr string, err error)
	ReadFile(path string) (string, error)
	WriteFile(path string, content string) error
	DeleteFile(path string) error
	Glob(pattern string, maxResults int) ([]string, error)
	Grep(pattern, globPattern string, maxResults int) ([]Match, error)
	Root() string
}

// resolve joins a relative path onto root and verifies it stays inside.
func resolve(root, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path required")
	}
	full := filepath.Join(root, filepath.FromSlash(path))
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes sandbox root: %s", path)
	}
	return full, nil
}

// ensure mkdir for parent on write
func ensureParent(full string) error {
	dir := filepath.Dir(full)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
