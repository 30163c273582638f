package intention

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReflect_WithoutLLMUsesTemplate(t *testing.T) {
	sb := newTestSandbox(t)
	wc := NewWorkContext(sb, nil, NewAutoCheckpoint(sb, nil))

	it := New("add a parser", "parser handles input", "")
	c := &Cycle{Judgment: JudgmentFailure}

	reflection := Reflect(context.Background(), it, c, wc)
	assert.Equal(t, "Action failed with judgment: failure. Will retry with different approach.", reflection)
}

func TestReflect_LLMFailureNamesTheError(t *testing.T) {
	sb := newTestSandbox(t)
	llm := &fakeLLM{err: errors.New("connection refused")}
	wc := NewWorkContext(sb, llm, NewAutoCheckpoint(sb, llm))

	it := New("add a parser", "parser handles input", "")
	c := &Cycle{
		Action:   Action{Type: ActionCommand, Content: "python parse.py"},
		Result:   "Exit code: 1\nOutput: \nStderr: boom",
		Judgment: JudgmentFailure,
	}

	reflection := Reflect(context.Background(), it, c, wc)
	assert.Contains(t, reflection, "Unable to analyze failure")
	assert.Contains(t, reflection, "connection refused")
}

func TestReflect_UsesLLMResponse(t *testing.T) {
	sb := newTestSandbox(t)
	llm := &fakeLLM{textResponse: "  The import is missing; add it and retry.  "}
	wc := NewWorkContext(sb, llm, NewAutoCheckpoint(sb, llm))

	it := New("add a parser", "parser handles input", "")
	c := &Cycle{Judgment: JudgmentFailure}

	reflection := Reflect(context.Background(), it, c, wc)
	assert.Equal(t, "The import is missing; add it and retry.", reflection)
}
