// Package quality tracks whether engine decisions came from the language
// model or from heuristic fallbacks. The fallback ratio is the main signal
// for how degraded a run was.
package quality

import (
	"sync"
	"time"

	"riva/internal/logging"
)

// Tier classifies how a decision was produced.
type Tier string

const (
	// TierLLMSuccess means the language model produced a usable result.
	TierLLMSuccess Tier = "llm_success"

	// TierLLMRejected means the model produced a result the checkpoint refused.
	TierLLMRejected Tier = "llm_rejected"

	// TierHeuristicFallback means a static heuristic stood in for the model.
	TierHeuristicFallback Tier = "heuristic_fallback"
)

// Event records one tiered decision.
type Event struct {
	Operation string            `json:"operation"`
	Tier      Tier              `json:"tier"`
	Reason    string            `json:"reason"`
	Context   map[string]string `json:"context,omitempty"`
	Error     string            `json:"error,omitempty"`
	At        time.Time         `json:"at"`
}

// Summary aggregates events per operation.
type Summary struct {
	Total         int            `json:"total"`
	ByTier        map[Tier]int   `json:"by_tier"`
	ByOperation   map[string]int `json:"by_operation"`
	FallbackRatio float64        `json:"fallback_ratio"`
}

// Tracker is a thread-safe event sink. A nil *Tracker is safe to use.
type Tracker struct {
	mu     sync.Mutex
	events []Event
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordEvent appends a tiered decision event. err may be nil.
func (t *Tracker) RecordEvent(operation string, tier Tier, reason string, context map[string]string, err error) {
	if t == nil {
		return
	}
	event := Event{
		Operation: operation,
		Tier:      tier,
		Reason:    reason,
		Context:   context,
		At:        time.Now().UTC(),
	}
	if err != nil {
		event.Error = err.Error()
	}

	t.mu.Lock()
	t.events = append(t.events, event)
	t.mu.Unlock()

	logging.Get(logging.CategoryQuality).Debug("%s: %s (%s)", operation, tier, reason)
}

// Events returns a copy of all recorded events.
func (t *Tracker) Events() []Event {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// Summarize aggregates the recorded events.
func (t *Tracker) Summarize() Summary {
	s := Summary{
		ByTier:      make(map[Tier]int),
		ByOperation: make(map[string]int),
	}
	if t == nil {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.events {
		s.Total++
		s.ByTier[e.Tier]++
		s.ByOperation[e.Operation]++
	}
	if s.Total > 0 {
		s.FallbackRatio = float64(s.ByTier[TierHeuristicFallback]) / float64(s.Total)
	}
	return s
}
