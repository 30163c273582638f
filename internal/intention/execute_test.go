package intention

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteAction_Command(t *testing.T) {
	sb := newTestSandbox(t)
	wc := NewWorkContext(sb, nil, NewAutoCheckpoint(sb, nil))

	result := ExecuteAction(context.Background(), Action{Type: ActionCommand, Content: "echo hello"}, wc)
	assert.Contains(t, result, "Exit code: 0")
	assert.Contains(t, result, "hello")

	result = ExecuteAction(context.Background(), Action{Type: ActionCommand, Content: "exit 3"}, wc)
	assert.Contains(t, result, "Exit code: 3")
}

func TestExecuteAction_CreateStripsFences(t *testing.T) {
	sb := newTestSandbox(t)
	wc := NewWorkContext(sb, nil, NewAutoCheckpoint(sb, nil))

	action := Action{
		Type:    ActionCreate,
		Content: "```python\ndef f():\n    return 1\n```",
		Target:  "f.py",
	}
	result := ExecuteAction(context.Background(), action, wc)
	assert.Equal(t, "Created file: f.py", result)

	content, err := sb.ReadFile("f.py")
	require.NoError(t, err)
	assert.Equal(t, "def f():\n    return 1", content)
}

func TestExecuteAction_MissingTargets(t *testing.T) {
	sb := newTestSandbox(t)
	wc := NewWorkContext(sb, nil, NewAutoCheckpoint(sb, nil))

	for _, at := range []ActionType{ActionCreate, ActionEdit, ActionDelete} {
		result := ExecuteAction(context.Background(), Action{Type: at, Content: "x"}, wc)
		assert.True(t, strings.HasPrefix(result, "Error: No target specified"), result)
	}
}

func TestExecuteAction_EditMergesContent(t *testing.T) {
	sb := newTestSandbox(t)
	wc := NewWorkContext(sb, nil, NewAutoCheckpoint(sb, nil))

	existing := "import os\n\n\ndef foo():\n    return os.getcwd()\n"
	require.NoError(t, sb.WriteFile("util.py", existing))

	action := Action{
		Type:    ActionEdit,
		Content: "import sys\n\n\ndef bar():\n    return sys.argv",
		Target:  "util.py",
	}
	result := ExecuteAction(context.Background(), action, wc)
	assert.Equal(t, "Edited file: util.py (merged)", result)

	merged, err := sb.ReadFile("util.py")
	require.NoError(t, err)
	assert.Contains(t, merged, "import sys")
	assert.Contains(t, merged, "def foo():")
	assert.Contains(t, merged, "def bar():")
	// New import lands in the import block, new code at the end
	assert.Less(t, strings.Index(merged, "import sys"), strings.Index(merged, "def foo():"))
	assert.Less(t, strings.Index(merged, "def foo():"), strings.Index(merged, "def bar():"))
}

func TestExecuteAction_EditWithoutExistingContentWrites(t *testing.T) {
	sb := newTestSandbox(t)
	wc := NewWorkContext(sb, nil, NewAutoCheckpoint(sb, nil))

	action := Action{Type: ActionEdit, Content: "def g():\n    return 2", Target: "g.py"}
	result := ExecuteAction(context.Background(), action, wc)
	assert.Equal(t, "Edited file: g.py", result)

	content, err := sb.ReadFile("g.py")
	require.NoError(t, err)
	assert.Equal(t, "def g():\n    return 2", content)
}

func TestExecuteAction_DeleteAndQuery(t *testing.T) {
	sb := newTestSandbox(t)
	wc := NewWorkContext(sb, nil, NewAutoCheckpoint(sb, nil))

	require.NoError(t, sb.WriteFile("mod.py", "def factorial(n):\n    return 1\n"))

	result := ExecuteAction(context.Background(), Action{Type: ActionQuery, Content: "factorial"}, wc)
	assert.Contains(t, result, "Found 1 matches:")
	assert.Contains(t, result, "mod.py:1")

	result = ExecuteAction(context.Background(), Action{Type: ActionQuery, Content: "nonexistent_token"}, wc)
	assert.Equal(t, "No matches found", result)

	result = ExecuteAction(context.Background(), Action{Type: ActionDelete, Target: "mod.py"}, wc)
	assert.Equal(t, "Deleted file: mod.py", result)
	_, err := sb.ReadFile("mod.py")
	assert.Error(t, err)
}

func TestStripMarkdownCodeBlock(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"fenced with language", "```python\nx = 1\n```", "x = 1"},
		{"fenced bare", "```\nx = 1\n```", "x = 1"},
		{"inline fence", "```x = 1```", "x = 1"},
		{"plain passthrough", "x = 1", "x = 1"},
		{"surrounding whitespace", "  \n```go\ny := 2\n```\n ", "y := 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripMarkdownCodeBlock(tt.in))
		})
	}
}

func TestMergePythonContent_NoNewCode(t *testing.T) {
	existing := "def foo():\n    return 1"
	assert.Equal(t, existing, mergePythonContent(existing, "   "))
}

func TestMergePythonContent_DuplicateDefsAppendAnyway(t *testing.T) {
	existing := "def foo():\n    return 1"
	merged := mergePythonContent(existing, "def foo():\n    return 2")
	assert.Equal(t, 2, strings.Count(merged, "def foo():"))
}
