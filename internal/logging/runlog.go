package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RunEntry is one structured event in a run log.
type RunEntry struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Component string                 `json:"component"`
	Action    string                 `json:"action"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// RunLog captures the structured event stream of a single engine run.
// Events are appended to a JSONL file as they happen and kept in memory
// until Close, which writes a footer with the run outcome.
type RunLog struct {
	mu        sync.Mutex
	runID     string
	goal      string
	startedAt time.Time
	path      string
	file      *os.File
	entries   []RunEntry
}

// NewRunLog creates a run log under dir. A nil *RunLog is safe to use:
// every method is a no-op.
func NewRunLog(dir, runID, goal string) (*RunLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run log directory: %w", err)
	}

	started := time.Now().UTC()
	name := fmt.Sprintf("run_%s_%s.jsonl", started.Format("20060102_150405"), shortID(runID))
	path := filepath.Join(dir, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}

	rl := &RunLog{
		runID:     runID,
		goal:      goal,
		startedAt: started,
		path:      path,
		file:      file,
	}
	rl.Info("session", "start", "run started", map[string]interface{}{
		"run_id": runID,
		"goal":   goal,
	})
	return rl, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Path returns the run log file location.
func (rl *RunLog) Path() string {
	if rl == nil {
		return ""
	}
	return rl.path
}

func (rl *RunLog) add(level, component, action, message string, data map[string]interface{}) {
	if rl == nil {
		return
	}
	entry := RunEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Component: component,
		Action:    action,
		Message:   message,
		Data:      data,
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.entries = append(rl.entries, entry)
	if rl.file == nil {
		return
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return
	}
	fmt.Fprintln(rl.file, string(line))
}

// Debug records a debug-level event.
func (rl *RunLog) Debug(component, action, message string, data map[string]interface{}) {
	rl.add("debug", component, action, message, data)
}

// Info records an info-level event.
func (rl *RunLog) Info(component, action, message string, data map[string]interface{}) {
	rl.add("info", component, action, message, data)
}

// Warn records a warning-level event.
func (rl *RunLog) Warn(component, action, message string, data map[string]interface{}) {
	rl.add("warn", component, action, message, data)
}

// Error records an error-level event.
func (rl *RunLog) Error(component, action, message string, data map[string]interface{}) {
	rl.add("error", component, action, message, data)
}

// LogLLMCall records a full LLM exchange: prompts and response.
func (rl *RunLog) LogLLMCall(component, purpose, systemPrompt, userPrompt, response string) {
	rl.Debug(component, "llm_call", fmt.Sprintf("LLM call: %s", purpose), map[string]interface{}{
		"purpose":       purpose,
		"system_prompt": systemPrompt,
		"user_prompt":   userPrompt,
		"response":      response,
	})
}

// Entries returns a copy of all recorded entries.
func (rl *RunLog) Entries() []RunEntry {
	if rl == nil {
		return nil
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	out := make([]RunEntry, len(rl.entries))
	copy(out, rl.entries)
	return out
}

// Close writes the run outcome footer and closes the file.
func (rl *RunLog) Close(outcome string) error {
	if rl == nil {
		return nil
	}
	rl.Info("session", "end", "run complete", map[string]interface{}{
		"outcome":     outcome,
		"duration_ms": time.Since(rl.startedAt).Milliseconds(),
		"entry_count": len(rl.entries),
	})

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.file == nil {
		return nil
	}
	err := rl.file.Close()
	rl.file = nil
	return err
}
