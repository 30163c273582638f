package intention

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"riva/internal/logging"
	"riva/internal/quality"
)

const decomposeSystemPrompt = `You are decomposing a software task into smaller, verifiable sub-tasks.

Rules:
1. Each sub-task must be independently verifiable
2. Sub-tasks should be as independent as possible
3. Together, completing all sub-tasks should satisfy the parent
4. Each sub-task should be simpler than the parent
5. Include acceptance criteria for each sub-task
6. IMPORTANT: If multiple functions belong in the same file, mention the filename in each sub-task
7. First sub-task should create the file, subsequent tasks should ADD to that same file
8. Use the codebase context to understand existing patterns and structure

Respond with ONLY a JSON array of objects with "what" and "acceptance" fields.

Example - creating multiple functions in one module:
[
  {"what": "Create math_utils.py with factorial function", "acceptance": "math_utils.py exists with working factorial()"},
  {"what": "Add fibonacci function to math_utils.py", "acceptance": "fibonacci() added to math_utils.py and works"},
  {"what": "Add is_prime function to math_utils.py", "acceptance": "is_prime() added to math_utils.py and works"}
]`

// Decompose breaks an intention into sub-intentions. Each child should be
// closer to verifiable than the parent, as independent as possible, and
// together sufficient to satisfy the parent.
//
// Uses the language model when available, with the checkpoint confirming
// the proposed split; any failure or rejection falls back to the heuristic
// splitter.
func Decompose(ctx context.Context, it *Intention, wc *WorkContext) []*Intention {
	wc.Log.Info("engine", "decompose_start",
		fmt.Sprintf("Decomposing: %s...", truncate(it.What, 50)), nil)

	if wc.LLM == nil {
		return heuristicDecompose(it)
	}

	contextSection := ""
	if toolContext := GatherContext(ctx, it, wc); toolContext != "" {
		contextSection = fmt.Sprintf("\n\n[Codebase Context]\n%s", truncate(toolContext, 1500))
	}

	userPrompt := fmt.Sprintf(`Decompose this intention into 2-5 smaller, verifiable sub-intentions:

INTENTION: %s
ACCEPTANCE: %s
%s

Provide sub-intentions that are concrete and testable.
If creating multiple functions for one module, reference the SAME filename in each sub-task.`,
		it.What, it.Acceptance, contextSection)

	response, err := wc.LLM.ChatJSON(ctx, decomposeSystemPrompt, userPrompt, actionTimeout)
	if err == nil {
		wc.Log.LogLLMCall("engine", "decompose", decomposeSystemPrompt, userPrompt, response)

		children, parseErr := parseDecomposition(response, it)
		if parseErr == nil {
			wc.Quality.RecordEvent("decomposition", quality.TierLLMSuccess,
				fmt.Sprintf("LLM generated %d sub-intentions", len(children)),
				map[string]string{
					"intention":      truncate(it.What, 50),
					"children_count": fmt.Sprintf("%d", len(children)),
				}, nil)

			if wc.Checkpoint.ApproveDecomposition(it, children) {
				if wc.OnDecomposition != nil {
					wc.OnDecomposition(it, children)
				}
				return children
			}

			logging.Engine("Decomposition rejected, using heuristic")
			wc.Quality.RecordEvent("decomposition", quality.TierHeuristicFallback,
				"LLM decomposition rejected by checkpoint",
				map[string]string{"intention": truncate(it.What, 50)}, nil)
			return heuristicDecompose(it)
		}
		err = parseErr
	}

	logging.EngineError("LLM decomposition failed: %v, using heuristic fallback", err)
	wc.Log.Error("engine", "decompose_fallback",
		fmt.Sprintf("LLM decomposition failed: %v. Using heuristic fallback.", err),
		map[string]interface{}{
			"intention_what": truncate(it.What, 100),
			"fallback":       "heuristic_decompose",
		})
	wc.Quality.RecordEvent("decomposition", quality.TierHeuristicFallback,
		"LLM decomposition failed",
		map[string]string{"intention": truncate(it.What, 50)}, err)
	return heuristicDecompose(it)
}

// parseDecomposition accepts an array of {what, acceptance} objects,
// tolerating bare strings as a degenerate what. Items with an empty what
// are skipped.
func parseDecomposition(response string, parent *Intention) ([]*Intention, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(response), &items); err != nil {
		return nil, fmt.Errorf("decomposition is not a JSON array: %w", err)
	}

	var children []*Intention
	for _, raw := range items {
		var what, acceptance string

		var obj struct {
			What       string `json:"what"`
			Acceptance string `json:"acceptance"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil {
			what, acceptance = obj.What, obj.Acceptance
		} else {
			var s string
			if err := json.Unmarshal(raw, &s); err == nil {
				what = s
				acceptance = fmt.Sprintf("Complete: %s...", truncate(s, 30))
			} else {
				continue // skip invalid items
			}
		}

		if what == "" {
			continue
		}
		children = append(children, New(what, acceptance, parent.ID))
	}
	return children, nil
}

var decomposeSeparators = []string{" and ", " then ", ". ", "; "}

// heuristicDecompose splits the goal on the first conjunction found; with
// no separator it produces a setup phase and an implementation phase, the
// latter inheriting the parent's acceptance.
func heuristicDecompose(it *Intention) []*Intention {
	what := it.What
	whatLower := strings.ToLower(what)

	for _, sep := range decomposeSeparators {
		if !strings.Contains(whatLower, sep) {
			continue
		}
		var children []*Intention
		for i, part := range strings.Split(what, sep) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			children = append(children, New(
				part,
				fmt.Sprintf("Part %d complete: %s...", i+1, truncate(part, 30)),
				it.ID,
			))
		}
		if len(children) > 0 {
			return children
		}
	}

	return []*Intention{
		New(
			fmt.Sprintf("Set up prerequisites for: %s", truncate(it.What, 50)),
			"All dependencies and setup complete",
			it.ID,
		),
		New(
			fmt.Sprintf("Implement core logic: %s", truncate(it.What, 50)),
			it.Acceptance,
			it.ID,
		),
	}
}
