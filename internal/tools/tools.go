// Package tools provides the tool surface the engine can call while
// gathering context: codebase search, project structure, test runs, and
// best-effort web lookups.
//
// Tools are registered in a Registry and exposed to the engine through the
// Provider interface. Every tool call is best-effort from the engine's
// point of view: a failing tool is skipped, never fatal.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"riva/internal/logging"
)

// Result is the outcome of one tool invocation.
type Result struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
	Error   string `json:"error,omitempty"`
}

// Provider is the interface the engine consumes.
type Provider interface {
	HasTool(name string) bool
	CallTool(ctx context.Context, name string, args map[string]any) Result
	ListTools() []string
}

// ExecuteFunc is the signature for tool execution.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool is a named callable registered in a Registry.
type Tool struct {
	Name        string
	Description string
	Execute     ExecuteFunc
}

// Validate checks that a tool is well-formed.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if t.Execute == nil {
		return fmt.Errorf("tool %s has no execute function", t.Name)
	}
	return nil
}

// Registry holds available tools. Thread-safe; supports registration at
// runtime.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Returns an error if the name is taken.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool already registered: %s", tool.Name)
	}
	r.tools[tool.Name] = tool
	logging.ToolsDebug("Registered tool: %s", tool.Name)
	return nil
}

// MustRegister registers a tool and panics on error. Use for static
// registration at construction time.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// HasTool returns true if the named tool is registered.
func (r *Registry) HasTool(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// ListTools returns all registered tool names, sorted.
func (r *Registry) ListTools() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CallTool invokes a tool by name. Unknown tools and execution errors are
// reported in the Result, not as Go errors.
func (r *Registry) CallTool(ctx context.Context, name string, args map[string]any) Result {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return Result{Success: false, Error: fmt.Sprintf("unknown tool: %s", name)}
	}

	timer := logging.StartTimer(logging.CategoryTools, "CallTool "+name)
	defer timer.Stop()

	output, err := tool.Execute(ctx, args)
	if err != nil {
		logging.ToolsDebug("Tool %s failed: %v", name, err)
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true, Output: output}
}

// NullProvider has no tools. Useful for tests and minimal configurations.
type NullProvider struct{}

// HasTool always returns false.
func (NullProvider) HasTool(string) bool { return false }

// CallTool always fails.
func (NullProvider) CallTool(_ context.Context, name string, _ map[string]any) Result {
	return Result{Success: false, Error: fmt.Sprintf("no tools available: %s", name)}
}

// ListTools returns nothing.
func (NullProvider) ListTools() []string { return nil }

// CompositeProvider queries a list of providers in order; the first one
// that has a tool wins.
type CompositeProvider struct {
	providers []Provider
}

// NewCompositeProvider combines providers.
func NewCompositeProvider(providers ...Provider) *CompositeProvider {
	return &CompositeProvider{providers: providers}
}

// AddProvider appends another provider.
func (c *CompositeProvider) AddProvider(p Provider) {
	c.providers = append(c.providers, p)
}

// HasTool returns true if any provider has the tool.
func (c *CompositeProvider) HasTool(name string) bool {
	for _, p := range c.providers {
		if p.HasTool(name) {
			return true
		}
	}
	return false
}

// CallTool dispatches to the first provider that has the tool.
func (c *CompositeProvider) CallTool(ctx context.Context, name string, args map[string]any) Result {
	for _, p := range c.providers {
		if p.HasTool(name) {
			return p.CallTool(ctx, name, args)
		}
	}
	return Result{Success: false, Error: fmt.Sprintf("unknown tool: %s", name)}
}

// ListTools returns the union of all providers' tools, sorted.
func (c *CompositeProvider) ListTools() []string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range c.providers {
		for _, name := range p.ListTools() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}
