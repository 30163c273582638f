// Package provider implements LLM clients for the engine.
//
// Every call site in the engine tolerates a nil Client: the heuristics in
// internal/intention take over. Providers here only need to turn prompts
// into text or JSON replies within a caller-supplied timeout.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Client is the minimal interface the engine uses to call an LLM.
type Client interface {
	// ChatJSON sends a prompt expecting a JSON-only reply. Implementations
	// should return the raw JSON text (fences stripped).
	ChatJSON(ctx context.Context, system, user string, timeout time.Duration) (string, error)

	// ChatText sends a prompt expecting a free-form text reply.
	ChatText(ctx context.Context, system, user string, timeout time.Duration) (string, error)
}

// ExtractJSON pulls the first JSON object or array out of a model reply.
// Models routinely wrap JSON in markdown fences or prose; this finds the
// outermost balanced {...} or [...] span.
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)

	// Strip a surrounding markdown fence first.
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := -1
	var open, close byte
	for i := 0; i < len(text); i++ {
		if text[i] == '{' || text[i] == '[' {
			start = i
			open = text[i]
			if open == '{' {
				close = '}'
			} else {
				close = ']'
			}
			break
		}
	}
	if start < 0 {
		return "", fmt.Errorf("no JSON value found in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON value in response")
}
