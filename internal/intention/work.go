package intention

import (
	"context"
	"fmt"

	"riva/internal/logging"
)

// Integrate verifies child intentions at the parent level. Requires every
// owned child to be verified; then the checkpoint confirms the whole works
// together, which marks the parent verified.
func Integrate(it *Intention, wc *WorkContext) bool {
	wc.Log.Info("engine", "integrate",
		fmt.Sprintf("Integrating children for: %s...", truncate(it.What, 50)), nil)

	for _, child := range it.ChildIntentions() {
		if child.Status != StatusVerified {
			logging.Engine("Child '%s' not verified, cannot integrate", truncate(child.What, 30))
			return false
		}
	}

	if !wc.Checkpoint.VerifyIntegration(it) {
		logging.Engine("Integration verification failed for '%s'", truncate(it.What, 30))
		return false
	}

	it.markVerified()
	wc.Log.Info("engine", "integrate_success",
		fmt.Sprintf("Integration verified: %s...", truncate(it.What, 50)), nil)
	return true
}

// Work is the recursive navigation algorithm.
//
// Core principle: if you can't verify it, decompose it.
//
//  1. Can we verify this intention directly?
//  2. If yes, try to satisfy it with action cycles.
//  3. If no (or cycles fail), decompose into sub-intentions.
//  4. Work each child recursively, in order.
//  5. Integrate and verify at parent level.
//  6. Bubble up success/failure.
//
// Cancellation of ctx aborts the recursion where it stands; the tree keeps
// whatever state existed at that moment.
func Work(ctx context.Context, it *Intention, wc *WorkContext, depth int) {
	// Guard against unbounded recursion
	if depth > wc.MaxDepth {
		logging.EngineError("Max depth exceeded, failing intention: %s", truncate(it.What, 50))
		it.Status = StatusFailed
		return
	}

	wc.Log.Info("engine", "work_start",
		fmt.Sprintf("[depth=%d] Working on: %s...", depth, truncate(it.What, 60)),
		map[string]interface{}{
			"intention_id": it.ID,
			"depth":        depth,
			"acceptance":   truncate(it.Acceptance, 100),
		})

	if wc.OnIntentionStart != nil {
		wc.OnIntentionStart(it)
	}

	it.Status = StatusActive

	verifiable := CanVerifyDirectly(it, wc)
	wc.Log.Debug("engine", "verifiable", fmt.Sprintf("%v", verifiable), nil)

	if verifiable {
		for it.Status == StatusActive && ctx.Err() == nil {
			// Budget exhausted: stop proposing and fall through to
			// decomposition instead of burning one more action.
			if len(it.Trace) >= wc.MaxCyclesPerIntention {
				break
			}

			thought, action := DetermineNextAction(ctx, it, wc)
			wc.Log.Debug("engine", "cycle_start",
				fmt.Sprintf("Thought: %s...", truncate(thought, 50)),
				map[string]interface{}{
					"action_type":    string(action.Type),
					"action_content": truncate(action.Content, 100),
				})

			result := ExecuteAction(ctx, action, wc)

			cycle := &Cycle{
				Thought:  thought,
				Action:   action,
				Result:   result,
				Judgment: JudgmentUnclear, // placeholder until the checkpoint rules
			}
			cycle.Judgment = wc.Checkpoint.JudgeAction(it, cycle)

			wc.Log.Info("engine", "cycle_complete",
				fmt.Sprintf("Judgment: %s", cycle.Judgment),
				map[string]interface{}{"result_preview": truncate(result, 200)})

			if cycle.Judgment == JudgmentSuccess {
				it.markVerified()
			} else {
				cycle.Reflection = Reflect(ctx, it, cycle, wc)
				wc.Log.Debug("engine", "reflection",
					fmt.Sprintf("Reflection: %s...", truncate(cycle.Reflection, 100)), nil)
				if !wc.Checkpoint.ReviewReflection(it, cycle) {
					logging.Engine("Reflection rejected for '%s'", truncate(it.What, 30))
				}

				// The break path deliberately does not append this cycle;
				// should_decompose re-evaluates against the trace below.
				if ShouldDecompose(it, cycle, wc) {
					break
				}
			}

			it.AddCycle(*cycle)
			if wc.OnCycleComplete != nil {
				wc.OnCycleComplete(it, cycle)
			}
		}
	}

	if ctx.Err() != nil {
		return
	}

	// Decompose when direct verification was never possible or gave up
	if it.Status != StatusVerified {
		var last *Cycle
		if len(it.Trace) > 0 {
			last = &it.Trace[len(it.Trace)-1]
		}
		if !verifiable || ShouldDecompose(it, last, wc) {
			wc.Log.Info("engine", "decomposing",
				fmt.Sprintf("Decomposing: %s...", truncate(it.What, 50)), nil)

			children := Decompose(ctx, it, wc)
			for _, child := range children {
				it.AddChild(child)
			}

			for _, child := range it.ChildIntentions() {
				if ctx.Err() != nil {
					return
				}
				Work(ctx, child, wc, depth+1)

				if child.Status == StatusFailed {
					it.Status = StatusFailed
					wc.Log.Error("engine", "child_failed",
						fmt.Sprintf("Child failed: %s...", truncate(child.What, 50)), nil)
					if wc.OnIntentionComplete != nil {
						wc.OnIntentionComplete(it)
					}
					return
				}
			}

			if !Integrate(it, wc) {
				it.Status = StatusFailed
			}
		}
	}

	wc.Log.Info("engine", "work_complete",
		fmt.Sprintf("[depth=%d] %s: %s...", depth, it.Status, truncate(it.What, 50)),
		map[string]interface{}{
			"status":   string(it.Status),
			"cycles":   len(it.Trace),
			"children": len(it.ChildIntentions()),
		})

	if wc.OnIntentionComplete != nil {
		wc.OnIntentionComplete(it)
	}
}
