package intention

import (
	"strings"

	"riva/internal/logging"
)

var compoundWords = []string{"and", "then", "also", "additionally", "plus", "as well as"}

var testableIndicators = []string{
	"file exists", "returns", "outputs", "displays", "shows",
	"test passes", "compiles", "runs", "works", "responds",
	"contains", "matches", "equals", "creates", "produces",
}

var vagueIndicators = []string{
	"feels good", "looks nice", "works well", "is complete",
	"everything", "all features", "fully functional",
}

// CanVerifyDirectly decides whether a node may attempt cycles instead of
// being decomposed immediately.
//
// Ask: "Can I write a test, run a command, or observe an outcome that tells
// me this intention is satisfied?" Heuristics: a single observable behavior,
// done describable in one sentence, no compound structure.
func CanVerifyDirectly(it *Intention, wc *WorkContext) bool {
	whatLower := strings.ToLower(it.What)
	acceptanceLower := strings.ToLower(it.Acceptance)

	// Compound indicators suggest need for decomposition
	compoundCount := 0
	for _, w := range compoundWords {
		if strings.Contains(whatLower, " "+w+" ") {
			compoundCount++
		}
	}
	if compoundCount >= 2 {
		logging.EngineDebug("Intention has compound structure, needs decomposition")
		return false
	}

	// Very long descriptions usually need decomposition
	if len(it.What) > 200 {
		logging.EngineDebug("Intention description too long, needs decomposition")
		return false
	}

	hasTestable := false
	for _, ind := range testableIndicators {
		if strings.Contains(acceptanceLower, ind) {
			hasTestable = true
			break
		}
	}

	isVague := false
	for _, ind := range vagueIndicators {
		if strings.Contains(acceptanceLower, ind) {
			isVague = true
			break
		}
	}

	if isVague && !hasTestable {
		logging.EngineDebug("Acceptance criteria too vague, needs decomposition")
		return false
	}

	return hasTestable || len(strings.Fields(it.What)) < 15
}

var decomposeHints = []string{"need to first", "requires", "depends on", "multiple steps", "break down"}

// ShouldDecompose decides whether to decompose instead of retrying.
//
// Decompose when the cycle budget is exhausted, when verification was never
// attempted (nil cycle), when failures or unclear outcomes repeat, or when
// the reflection itself points at missing foundations.
func ShouldDecompose(it *Intention, c *Cycle, wc *WorkContext) bool {
	if len(it.Trace) >= wc.MaxCyclesPerIntention {
		logging.Engine("Max cycles reached, decomposing: %s", truncate(it.What, 50))
		return true
	}

	// No cycle means the initial check found it unverifiable
	if c == nil {
		return true
	}

	failureCount := 0
	unclearCount := 0
	for _, prev := range it.Trace {
		switch prev.Judgment {
		case JudgmentFailure:
			failureCount++
		case JudgmentUnclear:
			unclearCount++
		}
	}
	if failureCount >= 2 {
		logging.Engine("Repeated failures, decomposing: %s", truncate(it.What, 50))
		return true
	}
	if unclearCount >= 2 {
		logging.Engine("Unclear outcomes, decomposing: %s", truncate(it.What, 50))
		return true
	}

	if c.Reflection != "" {
		reflectionLower := strings.ToLower(c.Reflection)
		for _, hint := range decomposeHints {
			if strings.Contains(reflectionLower, hint) {
				logging.Engine("Reflection suggests decomposition: %s", truncate(it.What, 50))
				return true
			}
		}
	}

	return false
}
