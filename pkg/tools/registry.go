// Package tools defines the tool registry and the mock automotive services
// exposed through it. The registry is built once at startup and never
// mutated; adding a tool means registering one more entry.
package tools

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/motormind/autoassist/pkg/protocol"
)

// Handler executes one tool call. Arguments arrive as a JSON object;
// handlers apply documented defaults for absent fields rather than failing.
type Handler func(args json.RawMessage) (interface{}, error)

// Entry pairs a tool descriptor with its handler.
type Entry struct {
	Tool    protocol.Tool
	Handler Handler
}

// Registry is an immutable mapping of tool name to entry.
type Registry struct {
	entries map[string]Entry
	order   []string
}

// NewRegistry builds a registry from the given entries. Duplicate names are
// rejected.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if e.Tool.Name == "" {
			return nil, fmt.Errorf("tool entry with empty name")
		}
		if _, dup := r.entries[e.Tool.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", e.Tool.Name)
		}
		r.entries[e.Tool.Name] = e
		r.order = append(r.order, e.Tool.Name)
	}
	sort.Strings(r.order)
	return r, nil
}

// Get returns the entry for name.
func (r *Registry) Get(name string) (Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// List returns the tool descriptors in name order. The returned slice is a
// copy; callers cannot mutate the registry through it.
func (r *Registry) List() []protocol.Tool {
	out := make([]protocol.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].Tool)
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.entries) }

// Call dispatches a tool invocation. Absent or null arguments default to an
// empty object.
func (r *Registry) Call(name string, args json.RawMessage) (interface{}, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("Unknown tool: %s", name)
	}
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}
	return e.Handler(args)
}

func objectSchema(properties string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"type":"object","properties":%s,"required":[]}`, properties))
}
