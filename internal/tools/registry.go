// Package tools defines the assistant-callable tools and the dispatcher
// that resolves tool-call batches from a reasoning run.
package tools

import (
	"context"
	"encoding/json"
)

// ToolName is the canonical name of a built-in tool.
type ToolName string

const (
	ToolSearchKnowledge    ToolName = "search_knowledge"
	ToolGetApplicationForm ToolName = "get_application_form"
)

// Tool is the interface every assistant-callable tool must satisfy.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON Schema (as raw JSON bytes) for this tool's parameters.
	Parameters() json.RawMessage
	Execute(ctx context.Context, params map[string]any) (string, error)
}

// Registry holds the closed set of named tools.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates a Registry from the given tools.
func NewRegistry(ts ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(ts))}
	for _, t := range ts {
		r.tools[t.Name()] = t
	}
	return r
}

// Get returns the tool with the given name, or nil if not found.
func (r *Registry) Get(name string) Tool {
	return r.tools[name]
}

// Definitions returns all tool definitions in OpenAI function-calling format.
func (r *Registry) Definitions() []map[string]any {
	list := make([]map[string]any, 0, len(r.tools))
	for _, t := range r.tools {
		var params any
		if err := json.Unmarshal(t.Parameters(), &params); err != nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		list = append(list, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name(),
				"description": t.Description(),
				"parameters":  params,
			},
		})
	}
	return list
}
