package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lauruschat/lauruschat/internal/providers"
	"github.com/lauruschat/lauruschat/internal/tools"
)

var (
	// ErrRunFailed reports a run that reached a failed terminal state or
	// asked for tools more than once.
	ErrRunFailed = errors.New("assistant: run failed")

	// ErrRunTimedOut reports a run still in flight past the poll deadline.
	ErrRunTimedOut = errors.New("assistant: run timed out")
)

// RunClient is the slice of the Assistants API the driver needs.
type RunClient interface {
	CreateRun(ctx context.Context, threadID, assistantID, additionalInstructions string) (providers.Run, error)
	GetRun(ctx context.Context, threadID, runID string) (providers.Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []providers.ToolOutput) (providers.Run, error)
	ListMessages(ctx context.Context, threadID string) ([]providers.ThreadMessage, error)
}

// RunDriver executes one bounded reasoning round over a thread: start a
// run, wait for it to settle, serve at most one batch of tool calls,
// then read the assistant's newest message back.
type RunDriver struct {
	client       RunClient
	dispatcher   *tools.Dispatcher
	assistantID  string
	pollInterval time.Duration
	pollDeadline time.Duration
	now          func() time.Time
}

func NewRunDriver(client RunClient, dispatcher *tools.Dispatcher, assistantID string) *RunDriver {
	return &RunDriver{
		client:       client,
		dispatcher:   dispatcher,
		assistantID:  assistantID,
		pollInterval: time.Second,
		pollDeadline: 60 * time.Second,
		now:          time.Now,
	}
}

// Run drives a single round and returns the assistant's reply text.
func (d *RunDriver) Run(ctx context.Context, threadID, displayName string) (string, error) {
	run, err := d.client.CreateRun(ctx, threadID, d.assistantID, d.supplementalInstructions(displayName))
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}

	run, err = d.await(ctx, threadID, run)
	if err != nil {
		return "", err
	}

	if run.Status == providers.RunRequiresAction {
		run, err = d.serveToolCalls(ctx, threadID, run)
		if err != nil {
			return "", err
		}
		if run.Status == providers.RunRequiresAction {
			slog.Warn("run requested tools twice, aborting", "thread_id", threadID, "run_id", run.ID)
			return "", ErrRunFailed
		}
	}

	if run.Status != providers.RunCompleted {
		slog.Warn("run did not complete", "thread_id", threadID, "run_id", run.ID, "status", run.Status)
		return "", ErrRunFailed
	}
	return d.latestAssistantText(ctx, threadID)
}

// supplementalInstructions carries per-run context the stored assistant
// prompt cannot know: today's date and who the model is talking to.
func (d *RunDriver) supplementalInstructions(displayName string) string {
	s := "Today's date is " + d.now().Format("Monday, 2 January 2006") + "."
	if displayName != "" {
		s += " You are now having a conversation with " + displayName
	}
	return s
}

// await polls until the run settles into a terminal state or asks for
// tool output, bounded by the driver's deadline.
func (d *RunDriver) await(ctx context.Context, threadID string, run providers.Run) (providers.Run, error) {
	deadline := d.now().Add(d.pollDeadline)
	for {
		if run.Status.Terminal() || run.Status == providers.RunRequiresAction {
			return run, nil
		}
		if d.now().After(deadline) {
			return run, fmt.Errorf("run %s still %s after %s: %w", run.ID, run.Status, d.pollDeadline, ErrRunTimedOut)
		}
		select {
		case <-ctx.Done():
			return run, ctx.Err()
		case <-time.After(d.pollInterval):
		}
		next, err := d.client.GetRun(ctx, threadID, run.ID)
		if err != nil {
			return run, fmt.Errorf("poll run: %w", err)
		}
		run = next
	}
}

func (d *RunDriver) serveToolCalls(ctx context.Context, threadID string, run providers.Run) (providers.Run, error) {
	calls := run.PendingToolCalls()
	requests := make([]tools.Invocation, 0, len(calls))
	for _, call := range calls {
		requests = append(requests, tools.Invocation{
			CallID:    call.ID,
			Name:      call.Function.Name,
			Arguments: decodeArguments(call.Function.Arguments),
		})
	}

	results := d.dispatcher.Dispatch(ctx, requests)
	outputs := make([]providers.ToolOutput, 0, len(results))
	for _, res := range results {
		outputs = append(outputs, providers.ToolOutput{ToolCallID: res.CallID, Output: res.Output})
	}

	run, err := d.client.SubmitToolOutputs(ctx, threadID, run.ID, outputs)
	if err != nil {
		return run, fmt.Errorf("submit tool outputs: %w", err)
	}
	return d.await(ctx, threadID, run)
}

// decodeArguments parses the model-supplied argument JSON. Malformed
// argument strings come back as nil so the dispatcher degrades the call
// instead of the round aborting.
func decodeArguments(raw string) map[string]any {
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		slog.Warn("undecodable tool arguments", "raw", raw, "error", err)
		return nil
	}
	return args
}

func (d *RunDriver) latestAssistantText(ctx context.Context, threadID string) (string, error) {
	messages, err := d.client.ListMessages(ctx, threadID)
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	for _, msg := range messages {
		if msg.Role == "assistant" {
			return msg.Text(), nil
		}
	}
	return "", fmt.Errorf("no assistant message on thread %s: %w", threadID, ErrRunFailed)
}
