package intention

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// GatherContext collects relevant context using tools before taking action.
//
// When the engine is uncertain or needs more information, this uses the tool
// provider to search the codebase and web for relevant context. Every
// sub-call is best-effort: a failing tool is skipped silently. Returns a
// context string to include in prompts, empty when no provider is wired.
func GatherContext(ctx context.Context, it *Intention, wc *WorkContext) string {
	if wc.Tools == nil {
		return ""
	}

	wc.Log.Info("engine", "gather_context",
		fmt.Sprintf("Gathering context for: %s...", truncate(it.What, 50)), nil)

	var parts []string
	whatLower := strings.ToLower(it.What)

	keywords := extractKeywords(it.What)

	// 1. Search codebase for relevant patterns
	if wc.Tools.HasTool("grep") {
		for _, keyword := range head(keywords, 3) {
			res := wc.Tools.CallTool(ctx, "grep", map[string]any{
				"pattern":     keyword,
				"max_results": 5,
			})
			if res.Success && res.Output != "" && !strings.Contains(res.Output, "No matches") {
				parts = append(parts, fmt.Sprintf("[Codebase search for '%s']\n%s",
					keyword, truncate(res.Output, 500)))
			}
		}
	}

	// 2. Project layout when the goal is about creating things
	if containsAny(whatLower, "create", "add", "implement", "structure") && wc.Tools.HasTool("get_structure") {
		res := wc.Tools.CallTool(ctx, "get_structure", map[string]any{"max_depth": 2})
		if res.Success {
			parts = append(parts, fmt.Sprintf("[Project structure]\n%s", truncate(res.Output, 800)))
		}
	}

	// 3. Documentation for any external libraries mentioned
	if libs := detectLibraryHints(it.What); len(libs) > 0 && wc.Tools.HasTool("fetch_docs") {
		for _, lib := range head(libs, 2) {
			res := wc.Tools.CallTool(ctx, "fetch_docs", map[string]any{"library": lib})
			if res.Success {
				parts = append(parts, fmt.Sprintf("[Documentation for '%s']\n%s",
					lib, truncate(res.Output, 600)))
			}
		}
	}

	// 4. Search for solutions when the goal mentions errors
	if containsAny(whatLower, "error", "fix", "debug", "exception", "failed") && wc.Tools.HasTool("web_search") {
		errorContext := it.What
		if len(it.Trace) > 0 {
			lastResult := it.Trace[len(it.Trace)-1].Result
			lower := strings.ToLower(lastResult)
			if strings.Contains(lower, "error") || strings.Contains(lower, "exception") {
				errorContext = truncate(lastResult, 200)
			}
		}
		res := wc.Tools.CallTool(ctx, "web_search", map[string]any{
			"query":       fmt.Sprintf("python %s solution", truncate(errorContext, 100)),
			"num_results": 2,
		})
		if res.Success {
			parts = append(parts, fmt.Sprintf("[Web search for solution]\n%s", truncate(res.Output, 500)))
		}
	}

	gathered := strings.Join(parts, "\n\n")
	if gathered != "" {
		wc.Log.Debug("engine", "context_gathered",
			fmt.Sprintf("Gathered %d context sections (%d chars)", len(parts), len(gathered)), nil)
	}
	return gathered
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "as": true, "is": true, "was": true,
	"are": true, "were": true, "been": true, "be": true, "have": true,
	"has": true, "had": true, "do": true, "does": true, "did": true,
	"will": true, "would": true, "could": true, "should": true, "may": true,
	"might": true, "must": true, "can": true, "this": true, "that": true,
	"these": true, "those": true, "it": true, "its": true, "i": true,
	"we": true, "you": true, "they": true, "he": true, "she": true,
	"create": true, "add": true, "implement": true, "make": true,
	"build": true, "write": true, "function": true, "file": true,
	"code": true, "new": true, "using": true, "use": true, "need": true,
	"want": true, "please": true,
}

var wordPattern = regexp.MustCompile(`\b[a-zA-Z_][a-zA-Z0-9_]*\b`)

// extractKeywords pulls meaningful keywords from intention text: strips
// stop-words and short tokens, dedupes, keeps at most 10.
func extractKeywords(text string) []string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)

	var keywords []string
	seen := make(map[string]bool)
	for _, word := range words {
		if stopwords[word] || seen[word] || len(word) <= 2 {
			continue
		}
		keywords = append(keywords, word)
		seen[word] = true
		if len(keywords) == 10 {
			break
		}
	}
	return keywords
}

var knownLibraries = []string{
	"python", "requests", "flask", "django", "fastapi", "pytest",
	"numpy", "pandas", "pygame", "sqlalchemy", "pydantic",
	"react", "nextjs", "typescript", "node",
	"rust", "tokio", "serde",
}

// detectLibraryHints finds mentions of known libraries in text.
func detectLibraryHints(text string) []string {
	textLower := strings.ToLower(text)
	var detected []string
	for _, lib := range knownLibraries {
		if strings.Contains(textLower, lib) {
			detected = append(detected, lib)
		}
	}
	return detected
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
