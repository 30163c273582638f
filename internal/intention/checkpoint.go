package intention

import (
	"strings"

	"riva/internal/logging"
	"riva/internal/provider"
	"riva/internal/sandbox"
)

// Checkpoint is the authority that judges actions, approves decompositions,
// verifies integration, and reviews reflections. The engine proposes, the
// checkpoint confirms. This is where alignment lives.
type Checkpoint interface {
	// JudgeAction classifies the outcome of one cycle.
	JudgeAction(it *Intention, c *Cycle) Judgment
	// ApproveDecomposition accepts or rejects a proposed split.
	ApproveDecomposition(it *Intention, proposed []*Intention) bool
	// VerifyIntegration accepts or rejects that a node's children
	// collectively satisfy it.
	VerifyIntegration(it *Intention) bool
	// ReviewReflection accepts or rejects a failure analysis.
	// Informational gate; implementations default to true.
	ReviewReflection(it *Intention, c *Cycle) bool
}

var (
	failureKeywords = []string{"error", "failed", "exception", "traceback"}
	successKeywords = []string{"success", "passed", "ok", "created", "completed"}
)

// AutoCheckpoint is the automatic checkpoint for autonomous operation.
// Uses heuristics and result text instead of human input.
type AutoCheckpoint struct {
	Sandbox sandbox.Sandbox
	LLM     provider.Client // optional
}

// NewAutoCheckpoint builds an automatic checkpoint.
func NewAutoCheckpoint(sb sandbox.Sandbox, llm provider.Client) *AutoCheckpoint {
	return &AutoCheckpoint{Sandbox: sb, LLM: llm}
}

// JudgeAction judges an action based on its result content.
func (a *AutoCheckpoint) JudgeAction(_ *Intention, c *Cycle) Judgment {
	resultLower := strings.ToLower(c.Result)

	for _, kw := range failureKeywords {
		if strings.Contains(resultLower, kw) {
			return JudgmentFailure
		}
	}
	for _, kw := range successKeywords {
		if strings.Contains(resultLower, kw) {
			return JudgmentSuccess
		}
	}

	// Exit codes for commands
	if c.Action.Type == ActionCommand {
		if strings.Contains(resultLower, "exit code: 0") || strings.Contains(resultLower, "exit code 0") {
			return JudgmentSuccess
		}
		if strings.Contains(resultLower, "exit code:") {
			return JudgmentFailure
		}
	}

	// Default to partial if we can't tell
	return JudgmentPartial
}

// ApproveDecomposition auto-approves any non-empty split. A child whose
// goal shares no words with the parent gets a warning but is not rejected.
func (a *AutoCheckpoint) ApproveDecomposition(it *Intention, proposed []*Intention) bool {
	if len(proposed) == 0 {
		return false
	}

	parentWords := wordSet(it.What)
	for _, child := range proposed {
		if !overlaps(parentWords, wordSet(child.What)) {
			logging.Engine("Child '%s' seems unrelated to parent '%s'",
				truncate(child.What, 30), truncate(it.What, 30))
		}
	}
	return true
}

// VerifyIntegration returns true iff every owned child is verified.
// Vacuously true with no children.
func (a *AutoCheckpoint) VerifyIntegration(it *Intention) bool {
	for _, child := range it.ChildIntentions() {
		if child.Status != StatusVerified {
			return false
		}
	}
	return true
}

// ReviewReflection auto-approves reflections.
func (a *AutoCheckpoint) ReviewReflection(*Intention, *Cycle) bool { return true }

// UICheckpoint is a human-in-the-loop checkpoint driven by callbacks.
// Each capability defers to the automatic heuristics when its callback is
// nil; when supplied, the callback's answer is authoritative. JudgeAction
// callbacks additionally receive the automatic judgment as a suggestion.
type UICheckpoint struct {
	auto *AutoCheckpoint

	OnJudgeAction          func(it *Intention, c *Cycle, auto Judgment) Judgment
	OnApproveDecomposition func(it *Intention, proposed []*Intention) bool
	OnVerifyIntegration    func(it *Intention) bool
	OnReviewReflection     func(it *Intention, c *Cycle) bool
}

// NewUICheckpoint builds a callback-driven checkpoint over the automatic
// heuristics.
func NewUICheckpoint(sb sandbox.Sandbox, llm provider.Client) *UICheckpoint {
	return &UICheckpoint{auto: NewAutoCheckpoint(sb, llm)}
}

// JudgeAction computes the automatic judgment first, then asks the human
// for an override if a callback is wired.
func (u *UICheckpoint) JudgeAction(it *Intention, c *Cycle) Judgment {
	auto := u.auto.JudgeAction(it, c)
	if u.OnJudgeAction != nil {
		return u.OnJudgeAction(it, c, auto)
	}
	return auto
}

// ApproveDecomposition asks the human, falling back to heuristics.
func (u *UICheckpoint) ApproveDecomposition(it *Intention, proposed []*Intention) bool {
	if u.OnApproveDecomposition != nil {
		return u.OnApproveDecomposition(it, proposed)
	}
	return u.auto.ApproveDecomposition(it, proposed)
}

// VerifyIntegration asks the human, falling back to heuristics.
func (u *UICheckpoint) VerifyIntegration(it *Intention) bool {
	if u.OnVerifyIntegration != nil {
		return u.OnVerifyIntegration(it)
	}
	return u.auto.VerifyIntegration(it)
}

// ReviewReflection asks the human, falling back to heuristics.
func (u *UICheckpoint) ReviewReflection(it *Intention, c *Cycle) bool {
	if u.OnReviewReflection != nil {
		return u.OnReviewReflection(it, c)
	}
	return u.auto.ReviewReflection(it, c)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
}

func overlaps(a, b map[string]bool) bool {
	for w := range b {
		if a[w] {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Cut at a rune boundary so multi-byte text stays valid UTF-8.
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
