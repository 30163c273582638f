package intention

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Session captures a complete run as a serializable tree.
//
// Every run produces a tree of intentions with full traces: intent at every
// scale, actions taken, judgments, reasoning through failure, and how big
// problems became small problems. Created once after Work returns; written
// as an immutable artifact.
type Session struct {
	ID        string         `json:"id"`
	Timestamp string         `json:"timestamp"`
	Root      *Intention     `json:"root"`
	Metadata  map[string]any `json:"metadata"`
}

// NewSession captures the final state of a root intention.
func NewSession(root *Intention) *Session {
	return &Session{
		ID:        fmt.Sprintf("session-%s", shortHex()),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Root:      root,
		Metadata: map[string]any{
			"duration":     0,
			"total_cycles": root.TotalCycles(),
			"max_depth":    root.Depth(),
			"outcome":      string(root.Status),
		},
	}
}

// Save writes the session to a JSON file.
func (s *Session) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// LoadSession reads a session back from a JSON file.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	return &s, nil
}
