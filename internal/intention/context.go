package intention

import (
	"time"

	"riva/internal/logging"
	"riva/internal/provider"
	"riva/internal/quality"
	"riva/internal/sandbox"
	"riva/internal/tools"
)

// Default policy knobs for the recursive work algorithm.
const (
	DefaultMaxCyclesPerIntention = 5
	DefaultMaxDepth              = 10

	actionTimeout  = 30 * time.Second
	reflectTimeout = 20 * time.Second
	commandTimeout = 60 * time.Second
)

// WorkContext carries dependencies through the recursion without global
// state. Created once per top-level execution and passed by reference;
// never mutated concurrently.
type WorkContext struct {
	Sandbox    sandbox.Sandbox
	LLM        provider.Client // nil means heuristics only
	Checkpoint Checkpoint

	Log     *logging.RunLog  // optional, nil-safe
	Quality *quality.Tracker // optional, nil-safe
	Tools   tools.Provider   // optional

	MaxCyclesPerIntention int
	MaxDepth              int
	CommandTimeout        time.Duration

	// Lifecycle callbacks for UI integration. One-way notifications;
	// return values are never consumed.
	OnIntentionStart    func(*Intention)
	OnIntentionComplete func(*Intention)
	OnCycleComplete     func(*Intention, *Cycle)
	OnDecomposition     func(*Intention, []*Intention)
}

// NewWorkContext builds a context with default limits.
func NewWorkContext(sb sandbox.Sandbox, llm provider.Client, checkpoint Checkpoint) *WorkContext {
	return &WorkContext{
		Sandbox:               sb,
		LLM:                   llm,
		Checkpoint:            checkpoint,
		MaxCyclesPerIntention: DefaultMaxCyclesPerIntention,
		MaxDepth:              DefaultMaxDepth,
		CommandTimeout:        commandTimeout,
	}
}
