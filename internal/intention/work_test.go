package intention

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWork_DepthGuard(t *testing.T) {
	sb := newTestSandbox(t)
	wc := NewWorkContext(sb, nil, NewAutoCheckpoint(sb, nil))
	wc.MaxDepth = 3

	started := 0
	wc.OnIntentionStart = func(*Intention) { started++ }

	it := New("add a factorial function", "factorial(5) returns 120", "")
	Work(context.Background(), it, wc, 4)

	assert.Equal(t, StatusFailed, it.Status)
	assert.Empty(t, it.Trace)
	assert.Empty(t, it.ChildIntentions())
	assert.Equal(t, 0, started)
}

func TestWork_FactorialEndToEnd(t *testing.T) {
	sb := newTestSandbox(t)
	wc := NewWorkContext(sb, nil, NewAutoCheckpoint(sb, nil))
	wc.MaxCyclesPerIntention = 5
	wc.MaxDepth = 3

	var cycles []*Cycle
	completed := 0
	wc.OnCycleComplete = func(_ *Intention, c *Cycle) { cycles = append(cycles, c) }
	wc.OnIntentionComplete = func(*Intention) { completed++ }

	root := New("add a factorial function", "factorial(5) returns 120", "")
	Work(context.Background(), root, wc, 0)

	// The heuristic proposes a create of new_file.py; the write result
	// carries a success keyword, so the automatic judge verifies the node
	// on the first cycle.
	assert.Equal(t, StatusVerified, root.Status)
	require.NotNil(t, root.VerifiedAt)
	require.Len(t, root.Trace, 1)
	assert.Equal(t, ActionCreate, root.Trace[0].Action.Type)
	assert.Equal(t, "new_file.py", root.Trace[0].Action.Target)
	assert.Equal(t, "Created file: new_file.py", root.Trace[0].Result)
	assert.Equal(t, JudgmentSuccess, root.Trace[0].Judgment)
	assert.Empty(t, root.Trace[0].Reflection)
	assert.Empty(t, root.ChildIntentions())

	content, err := sb.ReadFile("new_file.py")
	require.NoError(t, err)
	assert.Contains(t, content, "def factorial(n):")

	assert.Len(t, cycles, 1)
	assert.Equal(t, 1, completed)
}

func TestWork_SuccessTerminatesCycleLoop(t *testing.T) {
	sb := newTestSandbox(t)
	judgeCalls := 0
	cp := NewUICheckpoint(sb, nil)
	cp.OnJudgeAction = func(_ *Intention, _ *Cycle, _ Judgment) Judgment {
		judgeCalls++
		return JudgmentSuccess
	}
	wc := NewWorkContext(sb, nil, cp)

	it := New("explore the layout", "layout is known", "")
	Work(context.Background(), it, wc, 0)

	assert.Equal(t, StatusVerified, it.Status)
	assert.Equal(t, 1, judgeCalls)
	assert.Len(t, it.Trace, 1)
}

func TestWork_CycleLimitForcesDecomposition(t *testing.T) {
	sb := newTestSandbox(t)

	root := New("build the widget", "widget assembled", "")
	rootJudgeCalls := 0
	cp := NewUICheckpoint(sb, nil)
	cp.OnJudgeAction = func(it *Intention, _ *Cycle, _ Judgment) Judgment {
		if it.ID == root.ID {
			rootJudgeCalls++
			return JudgmentPartial
		}
		return JudgmentSuccess
	}
	wc := NewWorkContext(sb, nil, cp)
	wc.MaxCyclesPerIntention = 2

	Work(context.Background(), root, wc, 0)

	// Two partial cycles exhaust the budget; no third cycle runs at this
	// node, it decomposes instead.
	assert.Equal(t, 2, rootJudgeCalls)
	assert.Len(t, root.Trace, 2)
	require.Len(t, root.ChildIntentions(), 2)
	for _, child := range root.ChildIntentions() {
		assert.Equal(t, StatusVerified, child.Status)
	}
	assert.Equal(t, StatusVerified, root.Status)
}

func TestWork_CompoundGoalDecomposesWithoutCycles(t *testing.T) {
	sb := newTestSandbox(t)
	cp := NewUICheckpoint(sb, nil)
	cp.OnJudgeAction = func(_ *Intention, _ *Cycle, _ Judgment) Judgment {
		return JudgmentSuccess
	}
	wc := NewWorkContext(sb, nil, cp)

	root := New("create A and write B and then test C", "everything in place", "")
	Work(context.Background(), root, wc, 0)

	assert.Empty(t, root.Trace, "compound goal must not attempt cycles")
	require.Len(t, root.ChildIntentions(), 3)
	for _, child := range root.ChildIntentions() {
		assert.Equal(t, StatusVerified, child.Status)
		assert.Equal(t, root.ID, child.ParentID)
	}
	assert.Equal(t, StatusVerified, root.Status)
	assert.NotNil(t, root.VerifiedAt)
}

func TestWork_ChildFailureShortCircuits(t *testing.T) {
	sb := newTestSandbox(t)
	wc := NewWorkContext(sb, nil, NewAutoCheckpoint(sb, nil))
	wc.MaxDepth = 0 // every child exceeds the depth budget immediately

	root := New("create A and write B and then test C", "everything in place", "")
	Work(context.Background(), root, wc, 0)

	assert.Equal(t, StatusFailed, root.Status)
	children := root.ChildIntentions()
	require.Len(t, children, 3)
	assert.Equal(t, StatusFailed, children[0].Status)
	assert.Equal(t, StatusPending, children[1].Status, "short-circuit leaves later children untouched")
	assert.Equal(t, StatusPending, children[2].Status)
}

func TestWork_IntegrationRefusalFailsParent(t *testing.T) {
	sb := newTestSandbox(t)
	cp := NewUICheckpoint(sb, nil)
	cp.OnJudgeAction = func(_ *Intention, _ *Cycle, _ Judgment) Judgment {
		return JudgmentSuccess
	}
	cp.OnVerifyIntegration = func(*Intention) bool { return false }
	wc := NewWorkContext(sb, nil, cp)

	root := New("create A and write B and then test C", "everything in place", "")
	Work(context.Background(), root, wc, 0)

	assert.Equal(t, StatusFailed, root.Status)
	assert.Nil(t, root.VerifiedAt)
	for _, child := range root.ChildIntentions() {
		assert.Equal(t, StatusVerified, child.Status)
	}
}

func TestWork_CancelledContextAbortsInPlace(t *testing.T) {
	sb := newTestSandbox(t)
	wc := NewWorkContext(sb, nil, NewAutoCheckpoint(sb, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	it := New("add a factorial function", "factorial(5) returns 120", "")
	Work(ctx, it, wc, 0)

	assert.Equal(t, StatusActive, it.Status, "abort keeps whatever state existed")
	assert.Empty(t, it.Trace)
	assert.Empty(t, it.ChildIntentions())
}

func TestIntegrate(t *testing.T) {
	sb := newTestSandbox(t)
	wc := NewWorkContext(sb, nil, NewAutoCheckpoint(sb, nil))

	parent := New("parent", "done", "")
	a := New("a", "done", "")
	b := New("b", "done", "")
	parent.AddChild(a)
	parent.AddChild(b)

	a.Status = StatusVerified
	b.Status = StatusFailed
	parent.Status = StatusActive
	assert.False(t, Integrate(parent, wc))
	assert.Equal(t, StatusActive, parent.Status, "refusal must not change parent status")

	b.Status = StatusVerified
	assert.True(t, Integrate(parent, wc))
	assert.Equal(t, StatusVerified, parent.Status)
	assert.NotNil(t, parent.VerifiedAt)
}
