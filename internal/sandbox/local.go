package sandbox

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"riva/internal/logging"
)

// DefaultCommandTimeout bounds command execution when no timeout is given.
const DefaultCommandTimeout = 60 * time.Second

// Local executes directly on the host filesystem under a root directory.
type Local struct {
	root string
}

// NewLocal creates a sandbox rooted at dir. The directory is created if it
// does not exist.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sandbox root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sandbox root: %w", err)
	}
	logging.SandboxDebug("Local sandbox rooted at %s", abs)
	return &Local{root: abs}, nil
}

// Root returns the sandbox root directory.
func (s *Local) Root() string { return s.root }

// RunCommand executes a shell command inside the sandbox with a timeout.
// A non-zero exit status is not an error: it is reported via exitCode so
// the caller can fold it into the result text.
func (s *Local) RunCommand(ctx context.Context, command string, timeout time.Duration) (int, string, string, error) {
	timer := logging.StartTimer(logging.CategorySandbox, "RunCommand")
	defer timer.Stop()

	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logging.Sandbox("Executing command: %s", command)

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	cmd.Dir = s.root

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
			err = nil
		} else if execCtx.Err() == context.DeadlineExceeded {
			return -1, stdout.String(), stderr.String(), fmt.Errorf("command timed out after %s", timeout)
		} else {
			return -1, stdout.String(), stderr.String(), fmt.Errorf("command failed to start: %w", err)
		}
	}

	logging.SandboxDebug("Command exited %d (stdout=%d bytes, stderr=%d bytes)",
		exitCode, stdout.Len(), stderr.Len())
	return exitCode, stdout.String(), stderr.String(), nil
}

// ReadFile returns the content of a file inside the sandbox.
func (s *Local) ReadFile(path string) (string, error) {
	full, err := resolve(s.root, path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// WriteFile writes content to a file, creating parent directories as needed.
func (s *Local) WriteFile(path string, content string) error {
	full, err := resolve(s.root, path)
	if err != nil {
		return err
	}
	if err := ensureParent(full); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", path, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logging.SandboxDebug("Wrote %s (%d bytes)", path, len(content))
	return nil
}

// DeleteFile removes a file from the sandbox.
func (s *Local) DeleteFile(path string) error {
	full, err := resolve(s.root, path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	logging.SandboxDebug("Deleted %s", path)
	return nil
}

// Glob returns up to maxResults paths matching a doublestar pattern,
// relative to the sandbox root, sorted for determinism.
func (s *Local) Glob(pattern string, maxResults int) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(s.root), pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)
	if maxResults > 0 && len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	return matches, nil
}

// Grep searches files matching globPattern for a regular expression,
// returning up to maxResults matches with line context.
func (s *Local) Grep(pattern, globPattern string, maxResults int) ([]Match, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		// Fall back to a literal search when the pattern is not a valid
		// regexp; goal text is routinely used as a query here.
		re = regexp.MustCompile(regexp.QuoteMeta(pattern))
	}
	if globPattern == "" {
		globPattern = "**/*"
	}

	paths, err := s.Glob(globPattern, 0)
	if err != nil {
		return nil, err
	}

	var matches []Match
	for _, p := range paths {
		full := filepath.Join(s.root, filepath.FromSlash(p))
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			continue
		}
		file, err := os.Open(full)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			if re.MatchString(line) {
				matches = append(matches, Match{Path: p, LineNumber: lineNo, LineContent: line})
				if maxResults > 0 && len(matches) >= maxResults {
					file.Close()
					return matches, nil
				}
			}
		}
		file.Close()
	}
	return matches, nil
}
