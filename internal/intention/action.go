package intention

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"riva/internal/logging"
	"riva/internal/quality"
)

const actionSystemPrompt = `You are determining the next action to satisfy an intention.

CRITICAL RULES:
1. Write COMPLETE, WORKING code - never use 'pass', 'TODO', or placeholders
2. If a file already exists and you need to add to it, use "edit" not "create"
3. Include full function implementations with actual logic
4. For algorithms (factorial, fibonacci, etc.), write the actual algorithm

Respond with ONLY a JSON object:
{
  "thought": "What I'm about to try and why",
  "action_type": "one of: command, edit, create, delete, query",
  "content": "The actual command/code - MUST be complete working code",
  "target": "file path if applicable, or null"
}

Valid action_type values:
- "command": Run a shell command
- "edit": Modify/append to an existing file (USE THIS if file exists!)
- "create": Create a new file (only if file doesn't exist)
- "delete": Delete a file
- "query": Search the codebase

Example - creating a factorial function:
{"thought": "Implementing factorial with recursion", "action_type": "create", "content": "def factorial(n):\n    if n < 0:\n        raise ValueError('n must be non-negative')\n    if n <= 1:\n        return 1\n    return n * factorial(n - 1)", "target": "math_utils.py"}

Be specific and concrete. Write REAL implementations, not stubs.`

type actionReply struct {
	Thought    string `json:"thought"`
	ActionType string `json:"action_type"`
	Content    string `json:"content"`
	Target     string `json:"target"`
}

// DetermineNextAction proposes the next action to try for this intention,
// returning the thought (what we're about to try and why) and the action.
//
// With a language-model client it prompts with the goal, recent cycle
// history, the existing file listing, and tool-gathered context; any call or
// parse failure falls back to the keyword heuristic.
func DetermineNextAction(ctx context.Context, it *Intention, wc *WorkContext) (string, Action) {
	if wc.LLM == nil {
		return heuristicAction(it, wc)
	}

	history := ""
	if len(it.Trace) > 0 {
		history = "\n\nPrevious attempts:"
		recent := it.Trace
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		for i, c := range recent {
			history += fmt.Sprintf("\n%d. Tried: %s", i+1, truncate(c.Action.Content, 100))
			history += fmt.Sprintf("\n   Result: %s", truncate(c.Result, 100))
			history += fmt.Sprintf("\n   Judgment: %s", c.Judgment)
			if c.Reflection != "" {
				history += fmt.Sprintf("\n   Reflection: %s", truncate(c.Reflection, 100))
			}
		}
	}

	existingContext := ""
	if files, err := wc.Sandbox.Glob("**/*.py", 20); err == nil && len(files) > 0 {
		listed := files
		if len(listed) > 10 {
			listed = listed[:10]
		}
		existingContext = fmt.Sprintf("\n\nExisting files in repo: %s", strings.Join(listed, ", "))
		existingContext += "\nIMPORTANT: If adding to an existing file, use 'edit' not 'create'."
	}

	if toolContext := GatherContext(ctx, it, wc); toolContext != "" {
		existingContext += fmt.Sprintf("\n\n[Additional Context from Tools]\n%s", truncate(toolContext, 2000))
	}

	userPrompt := fmt.Sprintf(`Determine the next action for this intention:

INTENTION: %s
ACCEPTANCE: %s
%s%s

What should we try next? Remember: write COMPLETE working code, not placeholders.`,
		it.What, it.Acceptance, history, existingContext)

	response, err := wc.LLM.ChatJSON(ctx, actionSystemPrompt, userPrompt, actionTimeout)
	if err == nil {
		wc.Log.LogLLMCall("engine", "determine_action", actionSystemPrompt, userPrompt, response)

		var reply actionReply
		if jsonErr := json.Unmarshal([]byte(response), &reply); jsonErr != nil {
			err = jsonErr
		} else if actionType := ActionType(reply.ActionType); !validActionType(actionType) {
			// An out-of-enum action_type is a parse failure, same as bad JSON.
			err = fmt.Errorf("invalid action_type: %q", reply.ActionType)
		} else {
			thought := reply.Thought
			if thought == "" {
				thought = "Attempting action"
			}
			action := Action{Type: actionType, Content: reply.Content, Target: reply.Target}

			wc.Quality.RecordEvent("action_determination", quality.TierLLMSuccess,
				fmt.Sprintf("LLM generated %s action", action.Type),
				map[string]string{"intention": truncate(it.What, 50), "action_type": string(action.Type)},
				nil)
			return thought, action
		}
	}

	logging.EngineError("LLM action determination failed: %v, using heuristic", err)
	wc.Log.Error("engine", "action_determination_fallback",
		fmt.Sprintf("LLM action determination failed: %v. Using heuristic.", err),
		map[string]interface{}{"intention_what": truncate(it.What, 100), "fallback": "heuristic_action"})
	wc.Quality.RecordEvent("action_determination", quality.TierHeuristicFallback,
		"LLM action determination failed",
		map[string]string{"intention": truncate(it.What, 50)}, err)
	return heuristicAction(it, wc)
}

func validActionType(t ActionType) bool {
	switch t {
	case ActionCommand, ActionEdit, ActionCreate, ActionDelete, ActionQuery:
		return true
	}
	return false
}

// heuristicAction proposes an action from keywords when no language model
// is available.
func heuristicAction(it *Intention, wc *WorkContext) (string, Action) {
	whatLower := strings.ToLower(it.What)

	existingFiles := make(map[string]bool)
	existingBasenames := make(map[string]bool)
	var existingList []string
	if files, err := wc.Sandbox.Glob("**/*.py", 20); err == nil {
		for _, f := range files {
			existingFiles[f] = true
			existingBasenames[filepath.Base(f)] = true
			existingList = append(existingList, f)
		}
	}

	// Try to extract a filename token from the goal
	targetFile := ""
	for _, w := range strings.Fields(it.What) {
		if strings.Contains(w, ".") && len(w) < 50 {
			targetFile = strings.Trim(w, `'"(),`)
			break
		}
	}

	content := generateHeuristicCode(it.What)

	if containsAny(whatLower, "create", "write", "add", "implement") {
		if targetFile != "" {
			fileExists := existingFiles[targetFile] || existingBasenames[targetFile]
			if !fileExists {
				for _, f := range existingList {
					if strings.Contains(f, targetFile) {
						fileExists = true
						break
					}
				}
			}
			if fileExists {
				return fmt.Sprintf("Adding to existing file %s", targetFile),
					Action{Type: ActionEdit, Content: content, Target: targetFile}
			}
			return fmt.Sprintf("Creating file %s", targetFile),
				Action{Type: ActionCreate, Content: content, Target: targetFile}
		}
		return "Creating new file", Action{Type: ActionCreate, Content: content, Target: "new_file.py"}
	}

	if containsAny(whatLower, "test", "verify", "check") {
		return "Running tests to verify", Action{Type: ActionCommand, Content: "python -m pytest -v"}
	}

	return "Exploring codebase for context",
		Action{Type: ActionQuery, Content: fmt.Sprintf("Search for: %s", truncate(it.What, 50))}
}

const factorialSnippet = `def factorial(n):
    """Calculate the factorial of n."""
    if n < 0:
        raise ValueError("n must be non-negative")
    if n <= 1:
        return 1
    return n * factorial(n - 1)`

const fibonacciSnippet = `def fibonacci(n):
    """Return the nth Fibonacci number."""
    if n < 0:
        raise ValueError("n must be non-negative")
    if n <= 1:
        return n
    a, b = 0, 1
    for _ in range(2, n + 1):
        a, b = b, a + b
    return b`

const isPrimeSnippet = `def is_prime(n):
    """Return True if n is a prime number."""
    if n < 2:
        return False
    if n == 2:
        return True
    if n % 2 == 0:
        return False
    for i in range(3, int(n ** 0.5) + 1, 2):
        if n % i == 0:
            return False
    return True`

const arithmeticSnippet = `def add(a, b):
    """Return the sum of a and b."""
    return a + b

def subtract(a, b):
    """Return a minus b."""
    return a - b

def multiply(a, b):
    """Return the product of a and b."""
    return a * b

def divide(a, b):
    """Return a divided by b."""
    if b == 0:
        raise ValueError("Cannot divide by zero")
    return a / b`

var funcNamePattern = regexp.MustCompile(`(?:function|def|implement)\s+(\w+)`)

// generateHeuristicCode emits code for common patterns named in the goal.
func generateHeuristicCode(what string) string {
	whatLower := strings.ToLower(what)

	var functions []string
	if strings.Contains(whatLower, "factorial") {
		functions = append(functions, factorialSnippet)
	}
	if strings.Contains(whatLower, "fibonacci") {
		functions = append(functions, fibonacciSnippet)
	}
	if strings.Contains(whatLower, "prime") {
		functions = append(functions, isPrimeSnippet)
	}
	if len(functions) > 0 {
		return strings.Join(functions, "\n\n\n")
	}

	if strings.Contains(whatLower, "add") && strings.Contains(whatLower, "subtract") {
		return arithmeticSnippet
	}

	if m := funcNamePattern.FindStringSubmatch(whatLower); m != nil {
		name := m[1]
		return fmt.Sprintf(`def %s(*args, **kwargs):
    """Implementation of %s."""
    raise NotImplementedError("%s not yet implemented")`, name, name, name)
	}

	return "# Module implementation\n# Add implementation based on requirements"
}
