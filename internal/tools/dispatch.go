package tools

import (
	"context"
	"fmt"
	"log/slog"
)

// DegradedToolOutput is substituted for any tool call that cannot be
// served. The remote reasoning service has no channel for structured
// tool errors, so failures are steered through the tool's own output.
const DegradedToolOutput = "There is something wrong with the tool at the moment. " +
	"Apologise to the user and direct them to contact a human."

// Invocation is one tool call requested by the reasoning run.
type Invocation struct {
	CallID    string
	Name      string
	Arguments map[string]any
}

// Result is the output for one invocation, matched back by CallID.
type Result struct {
	CallID string
	Output string
}

// Dispatcher resolves invocation batches against the tool registry.
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher creates a Dispatcher over the given registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch executes every invocation and returns exactly one Result per
// request. Unknown tool names, bad arguments, and adapter failures all
// degrade to DegradedToolOutput; Dispatch itself never fails.
func (d *Dispatcher) Dispatch(ctx context.Context, requests []Invocation) []Result {
	results := make([]Result, 0, len(requests))
	for _, req := range requests {
		results = append(results, Result{
			CallID: req.CallID,
			Output: d.execute(ctx, req),
		})
	}
	return results
}

func (d *Dispatcher) execute(ctx context.Context, req Invocation) string {
	tool := d.registry.Get(req.Name)
	if tool == nil {
		slog.Warn("unknown tool requested", "tool", req.Name, "call_id", req.CallID)
		return DegradedToolOutput
	}

	out, err := tool.Execute(ctx, req.Arguments)
	if err != nil {
		slog.Error("tool call failed", "tool", req.Name, "call_id", req.CallID, "err", err)
		return DegradedToolOutput
	}
	return out
}

// requireString extracts a required string argument, erroring when it is
// absent or empty.
func requireString(params map[string]any, key string) (string, error) {
	v, ok := params[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("argument %q was not provided", key)
	}
	return v, nil
}
