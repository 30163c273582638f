package intention

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"riva/internal/logging"
)

// ExecuteAction performs an action against the sandbox and returns a
// human-readable result string. Expected failure modes (missing target,
// sandbox errors) become error-prefixed strings for the judgment pipeline,
// never Go errors.
func ExecuteAction(ctx context.Context, action Action, wc *WorkContext) string {
	wc.Log.Debug("engine", "execute_start",
		fmt.Sprintf("Executing %s: %s...", action.Type, truncate(action.Content, 50)),
		map[string]interface{}{"action_type": string(action.Type), "target": action.Target})

	switch action.Type {
	case ActionCommand:
		timeout := wc.CommandTimeout
		if timeout <= 0 {
			timeout = commandTimeout
		}
		exitCode, stdout, stderr, err := wc.Sandbox.RunCommand(ctx, action.Content, timeout)
		if err != nil {
			return executeError(action, wc, err)
		}
		wc.Log.Info("engine", "command_result",
			fmt.Sprintf("Command completed with exit code %d", exitCode),
			map[string]interface{}{
				"exit_code":      exitCode,
				"stdout_preview": truncate(stdout, 200),
				"stderr_preview": truncate(stderr, 200),
			})
		return fmt.Sprintf("Exit code: %d\nOutput: %s\nStderr: %s", exitCode, stdout, stderr)

	case ActionCreate:
		if action.Target == "" {
			return "Error: No target specified for create action"
		}
		cleaned := stripMarkdownCodeBlock(action.Content)
		if err := wc.Sandbox.WriteFile(action.Target, cleaned); err != nil {
			return executeError(action, wc, err)
		}
		wc.Log.Info("engine", "file_created",
			fmt.Sprintf("Created file: %s", action.Target),
			map[string]interface{}{"target": action.Target, "content_length": len(cleaned)})
		return fmt.Sprintf("Created file: %s", action.Target)

	case ActionEdit:
		if action.Target == "" {
			return "Error: No target specified for edit action"
		}
		cleaned := stripMarkdownCodeBlock(action.Content)

		// File might not exist yet; a failed read degenerates to a write.
		existing, err := wc.Sandbox.ReadFile(action.Target)
		if err != nil {
			existing = ""
		}

		if existing != "" {
			merged := mergePythonContent(existing, cleaned)
			if err := wc.Sandbox.WriteFile(action.Target, merged); err != nil {
				return executeError(action, wc, err)
			}
			wc.Log.Info("engine", "file_edited",
				fmt.Sprintf("Merged content into %s", action.Target),
				map[string]interface{}{
					"target":          action.Target,
					"original_length": len(existing),
					"new_length":      len(merged),
				})
			return fmt.Sprintf("Edited file: %s (merged)", action.Target)
		}
		if err := wc.Sandbox.WriteFile(action.Target, cleaned); err != nil {
			return executeError(action, wc, err)
		}
		wc.Log.Info("engine", "file_edited",
			fmt.Sprintf("Created file: %s", action.Target),
			map[string]interface{}{"target": action.Target, "content_length": len(cleaned)})
		return fmt.Sprintf("Edited file: %s", action.Target)

	case ActionDelete:
		if action.Target == "" {
			return "Error: No target specified for delete action"
		}
		if err := wc.Sandbox.DeleteFile(action.Target); err != nil {
			return executeError(action, wc, err)
		}
		wc.Log.Info("engine", "file_deleted", fmt.Sprintf("Deleted file: %s", action.Target), nil)
		return fmt.Sprintf("Deleted file: %s", action.Target)

	case ActionQuery:
		matches, err := wc.Sandbox.Grep(action.Content, "**/*.py", 10)
		if err != nil {
			return executeError(action, wc, err)
		}
		if len(matches) == 0 {
			return "No matches found"
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Found %d matches:", len(matches))
		shown := matches
		if len(shown) > 5 {
			shown = shown[:5]
		}
		for _, m := range shown {
			fmt.Fprintf(&b, "\n  %s:%d: %s", m.Path, m.LineNumber, truncate(m.LineContent, 60))
		}
		wc.Log.Info("engine", "query_result",
			fmt.Sprintf("Found %d matches", len(matches)),
			map[string]interface{}{"match_count": len(matches), "query": truncate(action.Content, 50)})
		return b.String()
	}

	return "Unknown action type"
}

func executeError(action Action, wc *WorkContext, err error) string {
	msg := fmt.Sprintf("Error executing action: %v", err)
	wc.Log.Error("engine", "execute_error", msg,
		map[string]interface{}{"action_type": string(action.Type), "error": err.Error()})
	logging.EngineError("Action execution failed: %v", err)
	return msg
}

var (
	fencedBlockPattern = regexp.MustCompile(`(?s)^` + "```" + `(?:\w+)?\s*\n(.*)\n` + "```" + `$`)
	inlineBlockPattern = regexp.MustCompile(`(?s)^` + "```" + `(?:\w+)?\s*(.*?)\s*` + "```" + `$`)
)

// stripMarkdownCodeBlock extracts the inner content from a fenced code
// block. Language models often wrap code in one.
func stripMarkdownCodeBlock(content string) string {
	content = strings.TrimSpace(content)
	if m := fencedBlockPattern.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	if m := inlineBlockPattern.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	return content
}

var defPattern = regexp.MustCompile(`(?m)^(?:def|class)\s+(\w+)`)

// mergePythonContent merges new Python code into existing content: new
// import lines go right after the existing import block, the remaining new
// code is appended at the end. Definitions that duplicate existing names
// are appended anyway, not reconciled.
func mergePythonContent(existing, newContent string) string {
	existingDefs := make(map[string]bool)
	for _, m := range defPattern.FindAllStringSubmatch(existing, -1) {
		existingDefs[m[1]] = true
	}

	newDefs := defPattern.FindAllStringSubmatch(newContent, -1)
	newUnique := 0
	for _, m := range newDefs {
		if !existingDefs[m[1]] {
			newUnique++
		}
	}
	if newUnique == 0 && strings.TrimSpace(newContent) == "" {
		return existing
	}

	newLines := strings.Split(strings.TrimSpace(newContent), "\n")
	resultLines := strings.Split(strings.TrimSpace(existing), "\n")

	var newImports, newCode []string
	for _, line := range newLines {
		if isImportLine(line) {
			if !strings.Contains(existing, line) {
				newImports = append(newImports, line)
			}
		} else {
			newCode = append(newCode, line)
		}
	}

	// Insert new imports after the existing import block
	insertPos := 0
	for i, line := range resultLines {
		if isImportLine(line) {
			insertPos = i + 1
		} else if strings.TrimSpace(line) != "" && !strings.HasPrefix(line, "#") {
			break
		}
	}
	for _, imp := range newImports {
		resultLines = append(resultLines[:insertPos],
			append([]string{imp}, resultLines[insertPos:]...)...)
		insertPos++
	}

	if len(newCode) > 0 {
		if len(resultLines) > 0 && strings.TrimSpace(resultLines[len(resultLines)-1]) != "" {
			resultLines = append(resultLines, "", "")
		}
		resultLines = append(resultLines, newCode...)
	}

	return strings.Join(resultLines, "\n")
}

func isImportLine(line string) bool {
	return strings.HasPrefix(line, "import ") || strings.HasPrefix(line, "from ")
}
