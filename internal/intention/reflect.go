package intention

import (
	"context"
	"fmt"
	"strings"

	"riva/internal/logging"
)

const reflectSystemPrompt = `You are reflecting on a failed action to determine what went wrong and what to try next.

Provide a brief analysis:
1. Why did it fail?
2. What's missing or wrong?
3. Should we decompose this into smaller tasks?
4. What should we try next?

Keep response under 100 words.`

// Reflect analyzes a failed cycle to determine next steps. Without a
// language model (or when the call fails) it returns a fixed template
// naming the cycle's judgment.
func Reflect(ctx context.Context, it *Intention, c *Cycle, wc *WorkContext) string {
	if wc.LLM == nil {
		return fmt.Sprintf("Action failed with judgment: %s. Will retry with different approach.", c.Judgment)
	}

	userPrompt := fmt.Sprintf(`Reflect on this failed attempt:

INTENTION: %s
ACCEPTANCE: %s

ACTION: %s - %s
RESULT: %s
JUDGMENT: %s

Why did this fail and what should we do?`,
		it.What, it.Acceptance,
		c.Action.Type, truncate(c.Action.Content, 200),
		truncate(c.Result, 500), c.Judgment)

	response, err := wc.LLM.ChatText(ctx, reflectSystemPrompt, userPrompt, reflectTimeout)
	if err != nil {
		logging.EngineError("LLM reflection failed: %v", err)
		wc.Log.Error("engine", "reflection_failed",
			fmt.Sprintf("LLM reflection failed: %v", err),
			map[string]interface{}{"cycle_judgment": string(c.Judgment)})
		return fmt.Sprintf("Unable to analyze failure (error: %v). Retrying with different approach.", err)
	}

	wc.Log.LogLLMCall("engine", "reflect", reflectSystemPrompt, userPrompt, response)
	return strings.TrimSpace(response)
}
