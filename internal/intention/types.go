// Package intention implements the recursive intention-verification engine.
//
// Core principle: if you can't verify it, decompose it.
//
// Levels (project, component, function, line) are not prescribed. They
// emerge from recursive application of a single constraint. The engine
// navigates by asking one question per node: can this intention be verified
// right now? If yes, act and verify. If no, decompose until it can be.
package intention

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status of an intention in the tree.
type Status string

const (
	StatusPending  Status = "pending"  // Not yet started
	StatusActive   Status = "active"   // Currently being worked on
	StatusVerified Status = "verified" // Successfully completed
	StatusFailed   Status = "failed"   // Could not be satisfied
)

// ActionType is the kind of effect an action has.
type ActionType string

const (
	ActionCommand ActionType = "command" // Shell command
	ActionEdit    ActionType = "edit"    // Edit existing file
	ActionCreate  ActionType = "create"  // Create new file
	ActionDelete  ActionType = "delete"  // Delete file
	ActionQuery   ActionType = "query"   // Read/search/explore
)

// Judgment is the verdict on an action's outcome. Produced only by a
// Checkpoint, never self-assigned by the effector.
type Judgment string

const (
	JudgmentSuccess Judgment = "success" // Action achieved what we wanted
	JudgmentFailure Judgment = "failure" // Action clearly failed
	JudgmentPartial Judgment = "partial" // Partially worked, more needed
	JudgmentUnclear Judgment = "unclear" // Can't tell if it worked
)

// Action is a concrete action taken to satisfy an intention.
// Immutable once created.
type Action struct {
	Type    ActionType `json:"type"`
	Content string     `json:"content"`
	Target  string     `json:"target,omitempty"`
}

// Cycle is a single attempt to satisfy an intention:
// thought → action → result → judgment → reflection.
// Append-only once added to a trace.
type Cycle struct {
	Thought    string   `json:"thought"`
	Action     Action   `json:"action"`
	Result     string   `json:"result"`
	Judgment   Judgment `json:"judgment"`
	Reflection string   `json:"reflection,omitempty"`
}

// Intention is the atomic unit of the recursive architecture: a goal
// (What), its verification statement (Acceptance), the cycles attempted at
// this level (Trace), and sub-intentions if decomposed.
//
// The parent exclusively owns its child Intention objects; Children holds
// the persisted id index and is never used for traversal.
type Intention struct {
	ID         string     `json:"id"`
	What       string     `json:"what"`
	Acceptance string     `json:"acceptance"`
	ParentID   string     `json:"parent_id,omitempty"`
	Children   []string   `json:"children"`
	Status     Status     `json:"status"`
	Trace      []Cycle    `json:"trace"`
	CreatedAt  time.Time  `json:"created_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`

	// owned subtree, runtime only; serialized via child_intentions
	children []*Intention
}

// New creates a new intention with a unique id.
func New(what, acceptance, parentID string) *Intention {
	return &Intention{
		ID:         fmt.Sprintf("int-%s", shortHex()),
		What:       what,
		Acceptance: acceptance,
		ParentID:   parentID,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
}

func shortHex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// AddCycle appends a cycle to the trace.
func (it *Intention) AddCycle(c Cycle) {
	it.Trace = append(it.Trace, c)
}

// AddChild records ownership of a child intention and keeps the id index
// and back-reference consistent.
func (it *Intention) AddChild(child *Intention) {
	it.Children = append(it.Children, child.ID)
	it.children = append(it.children, child)
	child.ParentID = it.ID
}

// ChildIntentions returns the owned children in order.
func (it *Intention) ChildIntentions() []*Intention {
	return it.children
}

// Depth returns the height of the subtree rooted here (0 for a leaf).
func (it *Intention) Depth() int {
	if len(it.children) == 0 {
		return 0
	}
	max := 0
	for _, c := range it.children {
		if d := c.Depth(); d > max {
			max = d
		}
	}
	return 1 + max
}

// TotalCycles counts cycles in this intention and all descendants.
func (it *Intention) TotalCycles() int {
	total := len(it.Trace)
	for _, c := range it.children {
		total += c.TotalCycles()
	}
	return total
}

// markVerified transitions the node to verified and stamps VerifiedAt.
func (it *Intention) markVerified() {
	it.Status = StatusVerified
	now := time.Now().UTC()
	it.VerifiedAt = &now
}

// intentionJSON mirrors Intention with the owned subtree made explicit so
// the whole tree round-trips through one document.
type intentionJSON struct {
	ID              string            `json:"id"`
	What            string            `json:"what"`
	Acceptance      string            `json:"acceptance"`
	ParentID        string            `json:"parent_id,omitempty"`
	Children        []string          `json:"children"`
	Status          Status            `json:"status"`
	Trace           []Cycle           `json:"trace"`
	CreatedAt       time.Time         `json:"created_at"`
	VerifiedAt      *time.Time        `json:"verified_at,omitempty"`
	ChildIntentions []json.RawMessage `json:"child_intentions,omitempty"`
}

// MarshalJSON serializes the intention including its owned subtree.
func (it *Intention) MarshalJSON() ([]byte, error) {
	out := intentionJSON{
		ID:         it.ID,
		What:       it.What,
		Acceptance: it.Acceptance,
		ParentID:   it.ParentID,
		Children:   it.Children,
		Status:     it.Status,
		Trace:      it.Trace,
		CreatedAt:  it.CreatedAt,
		VerifiedAt: it.VerifiedAt,
	}
	if out.Children == nil {
		out.Children = []string{}
	}
	if out.Trace == nil {
		out.Trace = []Cycle{}
	}
	for _, child := range it.children {
		raw, err := json.Marshal(child)
		if err != nil {
			return nil, err
		}
		out.ChildIntentions = append(out.ChildIntentions, raw)
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores the intention and its owned subtree.
func (it *Intention) UnmarshalJSON(data []byte) error {
	var in intentionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	it.ID = in.ID
	it.What = in.What
	it.Acceptance = in.Acceptance
	it.ParentID = in.ParentID
	it.Children = in.Children
	it.Status = in.Status
	it.Trace = in.Trace
	it.CreatedAt = in.CreatedAt
	it.VerifiedAt = in.VerifiedAt
	it.children = nil
	for _, raw := range in.ChildIntentions {
		child := &Intention{}
		if err := json.Unmarshal(raw, child); err != nil {
			return err
		}
		it.children = append(it.children, child)
	}
	return nil
}
