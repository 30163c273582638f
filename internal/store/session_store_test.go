package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riva/internal/intention"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	s, err := NewSessionStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSession(goal string) *intention.Session {
	root := intention.New(goal, "all parts verified", "")
	root.Status = intention.StatusVerified

	child := intention.New("first step of "+goal, "step done", "")
	child.Status = intention.StatusVerified
	child.AddCycle(intention.Cycle{
		Thought:  "trying the step",
		Action:   intention.Action{Type: intention.ActionCreate, Content: "x = 1", Target: "x.py"},
		Result:   "Created file: x.py",
		Judgment: intention.JudgmentSuccess,
	})
	root.AddChild(child)
	return intention.NewSession(root)
}

func TestSessionStore_SaveAndLoad(t *testing.T) {
	s := newTestStore(t)
	session := sampleSession("build the calculator")

	require.NoError(t, s.Save(session))

	loaded, err := s.Load(session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, loaded.ID)
	assert.Equal(t, session.Timestamp, loaded.Timestamp)
	assert.Equal(t, "build the calculator", loaded.Root.What)
	assert.Equal(t, intention.StatusVerified, loaded.Root.Status)

	require.Len(t, loaded.Root.ChildIntentions(), 1)
	child := loaded.Root.ChildIntentions()[0]
	require.Len(t, child.Trace, 1)
	assert.Equal(t, intention.JudgmentSuccess, child.Trace[0].Judgment)
}

func TestSessionStore_LoadMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load("session-deadbeef")
	assert.ErrorContains(t, err, "session not found")
}

func TestSessionStore_List(t *testing.T) {
	s := newTestStore(t)

	first := sampleSession("first goal")
	second := sampleSession("second goal")
	require.NoError(t, s.Save(first))
	require.NoError(t, s.Save(second))

	summaries, err := s.List(10)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	ids := []string{summaries[0].ID, summaries[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
	for _, sum := range summaries {
		assert.Equal(t, "verified", sum.Outcome)
		assert.Equal(t, 1, sum.TotalCycles)
		assert.Equal(t, 1, sum.MaxDepth)
		assert.False(t, sum.CreatedAt.IsZero())
	}
}

func TestSessionStore_Delete(t *testing.T) {
	s := newTestStore(t)
	session := sampleSession("goal")
	require.NoError(t, s.Save(session))

	require.NoError(t, s.Delete(session.ID))
	_, err := s.Load(session.ID)
	assert.Error(t, err)

	assert.ErrorContains(t, s.Delete(session.ID), "session not found")
}

func TestSessionStore_SaveIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	session := sampleSession("goal")

	require.NoError(t, s.Save(session))
	require.NoError(t, s.Save(session))

	summaries, err := s.List(10)
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}
