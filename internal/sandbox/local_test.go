package sandbox

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestSandbox(t *testing.T) *Local {
	t.Helper()
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestLocal_WriteReadDelete(t *testing.T) {
	s := newTestSandbox(t)

	require.NoError(t, s.WriteFile("pkg/util.py", "def add(a, b):\n    return a + b\n"))

	content, err := s.ReadFile("pkg/util.py")
	require.NoError(t, err)
	require.Contains(t, content, "def add")

	require.NoError(t, s.DeleteFile("pkg/util.py"))

	_, err = s.ReadFile("pkg/util.py")
	require.Error(t, err)
}

func TestLocal_PathEscapeRejected(t *testing.T) {
	s := newTestSandbox(t)

	err := s.WriteFile("../outside.txt", "nope")
	require.Error(t, err)

	_, err = s.ReadFile("../../etc/passwd")
	require.Error(t, err)
}

func TestLocal_RunCommandExitCodes(t *testing.T) {
	s := newTestSandbox(t)
	ctx := context.Background()

	code, stdout, _, err := s.RunCommand(ctx, "echo hello", 10*time.Second)
	require.NoError(t, err)
	require.Equal(t, 0, code)
	require.Equal(t, "hello", strings.TrimSpace(stdout))

	code, _, _, err = s.RunCommand(ctx, "exit 3", 10*time.Second)
	require.NoError(t, err)
	require.Equal(t, 3, code)
}

func TestLocal_RunCommandTimeout(t *testing.T) {
	s := newTestSandbox(t)

	_, _, _, err := s.RunCommand(context.Background(), "sleep 5", 100*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "timed out")
}

func TestLocal_GlobAndGrep(t *testing.T) {
	s := newTestSandbox(t)

	require.NoError(t, s.WriteFile("a.py", "def factorial(n):\n    return 1\n"))
	require.NoError(t, s.WriteFile("sub/b.py", "def fibonacci(n):\n    return n\n"))
	require.NoError(t, s.WriteFile("notes.txt", "factorial notes"))

	paths, err := s.Glob("**/*.py", 0)
	require.NoError(t, err)
	require.Equal(t, []string{"a.py", "sub/b.py"}, paths)

	matches, err := s.Grep("factorial", "**/*.py", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "a.py", matches[0].Path)
	require.Equal(t, 1, matches[0].LineNumber)

	// Invalid regexp degrades to a literal search instead of failing.
	matches, err = s.Grep("factorial(", "**/*.py", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestLocal_GlobMaxResults(t *testing.T) {
	s := newTestSandbox(t)
	require.NoError(t, s.WriteFile("a.py", ""))
	require.NoError(t, s.WriteFile("b.py", ""))
	require.NoError(t, s.WriteFile("c.py", ""))

	paths, err := s.Glob("*.py", 2)
	require.NoError(t, err)
	require.Len(t, paths, 2)
}
