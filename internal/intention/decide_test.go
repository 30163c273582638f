package intention

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanVerifyDirectly(t *testing.T) {
	wc := &WorkContext{}

	tests := []struct {
		name       string
		what       string
		acceptance string
		want       bool
	}{
		{
			"two conjunctions is compound",
			"create A and write B and then test C",
			"everything done",
			false,
		},
		{
			"one conjunction with testable acceptance",
			"create A and write B",
			"file exists",
			true,
		},
		{
			"short goal without testable acceptance",
			"add a factorial function",
			"factorial(5) returns 120",
			true,
		},
		{
			"vague acceptance without testable criteria",
			"polish the UI",
			"it looks nice",
			false,
		},
		{
			"vague but also testable passes",
			"speed up the loop",
			"works well and test passes",
			true,
		},
		{
			"long wordy goal without testable acceptance",
			"carefully restructure every single piece of the legacy billing reconciliation subsystem before the next quarterly audit deadline arrives",
			"the team is happy",
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := New(tt.what, tt.acceptance, "")
			assert.Equal(t, tt.want, CanVerifyDirectly(it, wc))
		})
	}
}

func TestCanVerifyDirectly_LongDescription(t *testing.T) {
	it := New(strings.Repeat("implement the widget ", 15), "file exists", "")
	assert.Greater(t, len(it.What), 200)
	assert.False(t, CanVerifyDirectly(it, &WorkContext{}))
}

func TestShouldDecompose(t *testing.T) {
	wc := &WorkContext{MaxCyclesPerIntention: 5, MaxDepth: 10}

	t.Run("nil cycle means unverifiable from the start", func(t *testing.T) {
		it := New("goal", "done", "")
		assert.True(t, ShouldDecompose(it, nil, wc))
	})

	t.Run("fresh retry continues", func(t *testing.T) {
		it := New("goal", "done", "")
		c := &Cycle{Judgment: JudgmentPartial, Reflection: "Will retry with a tweak."}
		assert.False(t, ShouldDecompose(it, c, wc))
	})

	t.Run("max cycles reached", func(t *testing.T) {
		it := New("goal", "done", "")
		for i := 0; i < 5; i++ {
			it.AddCycle(Cycle{Judgment: JudgmentPartial})
		}
		assert.True(t, ShouldDecompose(it, &Cycle{Judgment: JudgmentPartial}, wc))
	})

	t.Run("repeated failures", func(t *testing.T) {
		it := New("goal", "done", "")
		it.AddCycle(Cycle{Judgment: JudgmentFailure})
		it.AddCycle(Cycle{Judgment: JudgmentFailure})
		assert.True(t, ShouldDecompose(it, &Cycle{Judgment: JudgmentFailure}, wc))
	})

	t.Run("repeated unclear outcomes", func(t *testing.T) {
		it := New("goal", "done", "")
		it.AddCycle(Cycle{Judgment: JudgmentUnclear})
		it.AddCycle(Cycle{Judgment: JudgmentUnclear})
		assert.True(t, ShouldDecompose(it, &Cycle{Judgment: JudgmentUnclear}, wc))
	})

	t.Run("reflection hints at missing foundations", func(t *testing.T) {
		it := New("goal", "done", "")
		c := &Cycle{
			Judgment:   JudgmentFailure,
			Reflection: "We need to first install the dependencies before retrying.",
		}
		assert.True(t, ShouldDecompose(it, c, wc))
	})

	t.Run("single failure retries", func(t *testing.T) {
		it := New("goal", "done", "")
		it.AddCycle(Cycle{Judgment: JudgmentFailure})
		c := &Cycle{Judgment: JudgmentFailure, Reflection: "Typo in the command."}
		assert.False(t, ShouldDecompose(it, c, wc))
	})
}

func TestExtractKeywords(t *testing.T) {
	keywords := extractKeywords("Create a factorial function in math_utils.py using recursion")
	assert.Contains(t, keywords, "factorial")
	assert.Contains(t, keywords, "recursion")
	assert.NotContains(t, keywords, "create")
	assert.NotContains(t, keywords, "function")
	assert.NotContains(t, keywords, "a")
	assert.LessOrEqual(t, len(keywords), 10)

	// Deduped
	dup := extractKeywords("parser parser parser")
	assert.Equal(t, []string{"parser"}, dup)
}

func TestDetectLibraryHints(t *testing.T) {
	assert.Equal(t, []string{"flask", "pytest"},
		detectLibraryHints("Build a Flask endpoint and cover it with pytest"))
	assert.Empty(t, detectLibraryHints("rename the helper"))
}
