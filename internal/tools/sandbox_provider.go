package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"riva/internal/sandbox"
)

// SandboxProvider exposes codebase tools backed by a sandbox: grep,
// get_structure, and run_tests.
type SandboxProvider struct {
	*Registry
	sb sandbox.Sandbox
}

// NewSandboxProvider builds the provider and registers its tools.
func NewSandboxProvider(sb sandbox.Sandbox) *SandboxProvider {
	p := &SandboxProvider{
		Registry: NewRegistry(),
		sb:       sb,
	}

	p.MustRegister(&Tool{
		Name:        "grep",
		Description: "Search the codebase for a pattern",
		Execute:     p.grep,
	})
	p.MustRegister(&Tool{
		Name:        "get_structure",
		Description: "List the project directory structure",
		Execute:     p.getStructure,
	})
	p.MustRegister(&Tool{
		Name:        "run_tests",
		Description: "Run the project's test suite",
		Execute:     p.runTests,
	})
	return p
}

func stringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}

func (p *SandboxProvider) grep(_ context.Context, args map[string]any) (string, error) {
	pattern := stringArg(args, "pattern", "")
	if pattern == "" {
		return "", fmt.Errorf("pattern is required")
	}
	globPattern := stringArg(args, "glob", "**/*")
	maxResults := intArg(args, "max_results", 5)

	matches, err := p.sb.Grep(pattern, globPattern, maxResults)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "No matches found", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d matches:\n", len(matches))
	for _, m := range matches {
		line := m.LineContent
		if len(line) > 120 {
			line = line[:120]
		}
		fmt.Fprintf(&b, "  %s:%d: %s\n", m.Path, m.LineNumber, line)
	}
	return b.String(), nil
}

func (p *SandboxProvider) getStructure(_ context.Context, args map[string]any) (string, error) {
	maxDepth := intArg(args, "max_depth", 2)

	root := p.sb.Root()
	var lines []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		depth := strings.Count(rel, string(filepath.Separator))
		if depth >= maxDepth {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		indent := strings.Repeat("  ", depth)
		name := d.Name()
		if d.IsDir() {
			name += "/"
		}
		lines = append(lines, indent+name)
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "Empty project", nil
	}
	// WalkDir visits entries lexically per directory, so the lines already
	// read as a tree with children under their parents.
	return strings.Join(lines, "\n"), nil
}

// runTests picks the test command by project layout: go.mod means go test,
// otherwise pytest.
func (p *SandboxProvider) runTests(ctx context.Context, args map[string]any) (string, error) {
	command := stringArg(args, "command", "")
	if command == "" {
		if gomod, err := p.sb.Glob("go.mod", 1); err == nil && len(gomod) > 0 {
			command = "go test ./..."
		} else {
			command = "python -m pytest -v"
		}
	}

	exitCode, stdout, stderr, err := p.sb.RunCommand(ctx, command, 120*time.Second)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Exit code: %d\nOutput: %s\nStderr: %s", exitCode, stdout, stderr), nil
}
