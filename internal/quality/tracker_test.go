package quality

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_RecordAndSummarize(t *testing.T) {
	tr := NewTracker()

	tr.RecordEvent("decomposition", TierLLMSuccess, "model produced 3 children", nil, nil)
	tr.RecordEvent("decomposition", TierHeuristicFallback, "model call failed", map[string]string{
		"intention": "build the thing",
	}, errors.New("timeout"))
	tr.RecordEvent("action_determination", TierHeuristicFallback, "no client configured", nil, nil)

	s := tr.Summarize()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.ByTier[TierLLMSuccess])
	assert.Equal(t, 2, s.ByTier[TierHeuristicFallback])
	assert.Equal(t, 2, s.ByOperation["decomposition"])
	assert.InDelta(t, 2.0/3.0, s.FallbackRatio, 1e-9)

	events := tr.Events()
	assert.Len(t, events, 3)
	assert.Equal(t, "timeout", events[1].Error)
}

func TestTracker_NilSafe(t *testing.T) {
	var tr *Tracker
	tr.RecordEvent("x", TierLLMSuccess, "r", nil, nil)
	assert.Nil(t, tr.Events())
	assert.Equal(t, 0, tr.Summarize().Total)
}
