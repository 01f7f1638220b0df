// Package providers contains the HTTP client for the hosted assistant service.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIClient makes direct HTTP calls to the OpenAI Assistants v2 API and
// the chat completions endpoint.
type OpenAIClient struct {
	apiKey     string
	apiBase    string
	httpClient *http.Client
}

// NewOpenAIClient constructs a client. apiBase defaults to the public API.
func NewOpenAIClient(apiKey, apiBase string) *OpenAIClient {
	if apiBase == "" {
		apiBase = "https://api.openai.com/v1"
	}
	return &OpenAIClient{
		apiKey:     apiKey,
		apiBase:    strings.TrimRight(apiBase, "/"),
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// APIError is a non-2xx response from the remote service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openai: HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsBadRequest reports whether err is an HTTP 400 from the remote service.
// The service answers 400 when a message or run is added to a thread that
// already has an active run.
func IsBadRequest(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest
}

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

// Thread is the remote service's persistent conversation context.
type Thread struct {
	ID string `json:"id"`
}

// RunStatus is the remote run lifecycle state.
type RunStatus string

const (
	RunQueued         RunStatus = "queued"
	RunInProgress     RunStatus = "in_progress"
	RunRequiresAction RunStatus = "requires_action"
	RunCompleted      RunStatus = "completed"
	RunFailed         RunStatus = "failed"
	RunCancelled      RunStatus = "cancelled"
	RunExpired        RunStatus = "expired"
)

// Terminal reports whether the run has finished (successfully or not).
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled, RunExpired:
		return true
	}
	return false
}

// RunToolCall is one function invocation requested by the model mid-run.
type RunToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// Run is a single bounded execution of the assistant over a thread.
type Run struct {
	ID             string    `json:"id"`
	ThreadID       string    `json:"thread_id"`
	Status         RunStatus `json:"status"`
	RequiredAction *struct {
		Type              string `json:"type"`
		SubmitToolOutputs struct {
			ToolCalls []RunToolCall `json:"tool_calls"`
		} `json:"submit_tool_outputs"`
	} `json:"required_action"`
	LastError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_error"`
}

// PendingToolCalls returns the tool calls awaiting output, if any.
func (r *Run) PendingToolCalls() []RunToolCall {
	if r.RequiredAction == nil {
		return nil
	}
	return r.RequiredAction.SubmitToolOutputs.ToolCalls
}

// ToolOutput is the result of one tool call, echoed back by call ID.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// ThreadMessage is one message in a thread, as returned by ListMessages.
type ThreadMessage struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text struct {
			Value string `json:"value"`
		} `json:"text"`
	} `json:"content"`
}

// Text returns the first text content block's value.
func (m ThreadMessage) Text() string {
	for _, c := range m.Content {
		if c.Type == "text" {
			return c.Text.Value
		}
	}
	return ""
}

// Assistant is the remote assistant configuration.
type Assistant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model"`
}

// ---------------------------------------------------------------------------
// Thread operations
// ---------------------------------------------------------------------------

// CreateThread creates a new empty thread.
func (c *OpenAIClient) CreateThread(ctx context.Context) (Thread, error) {
	var t Thread
	err := c.do(ctx, http.MethodPost, "/threads", map[string]any{}, &t)
	return t, err
}

// RetrieveThread fetches an existing thread by ID. A stale or expired
// handle surfaces as an APIError.
func (c *OpenAIClient) RetrieveThread(ctx context.Context, threadID string) (Thread, error) {
	var t Thread
	err := c.do(ctx, http.MethodGet, "/threads/"+threadID, nil, &t)
	return t, err
}

// AddMessage appends a message to the thread with the given role.
func (c *OpenAIClient) AddMessage(ctx context.Context, threadID, role, content string) error {
	body := map[string]any{"role": role, "content": content}
	return c.do(ctx, http.MethodPost, "/threads/"+threadID+"/messages", body, nil)
}

// ListMessages returns the thread's messages, newest first.
func (c *OpenAIClient) ListMessages(ctx context.Context, threadID string) ([]ThreadMessage, error) {
	var out struct {
		Data []ThreadMessage `json:"data"`
	}
	err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/messages", nil, &out)
	return out.Data, err
}

// ---------------------------------------------------------------------------
// Run operations
// ---------------------------------------------------------------------------

// CreateRun starts a run of the assistant over the thread.
func (c *OpenAIClient) CreateRun(ctx context.Context, threadID, assistantID, additionalInstructions string) (Run, error) {
	body := map[string]any{"assistant_id": assistantID}
	if additionalInstructions != "" {
		body["additional_instructions"] = additionalInstructions
	}
	var r Run
	err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/runs", body, &r)
	return r, err
}

// GetRun polls the current state of a run.
func (c *OpenAIClient) GetRun(ctx context.Context, threadID, runID string) (Run, error) {
	var r Run
	err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/runs/"+runID, nil, &r)
	return r, err
}

// SubmitToolOutputs posts the full batch of tool results back to a run
// paused in requires_action.
func (c *OpenAIClient) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (Run, error) {
	body := map[string]any{"tool_outputs": outputs}
	var r Run
	err := c.do(ctx, http.MethodPost,
		"/threads/"+threadID+"/runs/"+runID+"/submit_tool_outputs", body, &r)
	return r, err
}

// ---------------------------------------------------------------------------
// Assistant management
// ---------------------------------------------------------------------------

// CreateAssistant provisions a new assistant with the given tool definitions.
func (c *OpenAIClient) CreateAssistant(ctx context.Context, name, instructions, model string, tools []map[string]any) (Assistant, error) {
	body := map[string]any{
		"name":         name,
		"instructions": instructions,
		"model":        model,
	}
	if len(tools) > 0 {
		body["tools"] = tools
	}
	var a Assistant
	err := c.do(ctx, http.MethodPost, "/assistants", body, &a)
	return a, err
}

// ---------------------------------------------------------------------------
// Chat completions
// ---------------------------------------------------------------------------

// ChatMessage is one message in a chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletion runs a one-shot chat completion and returns the reply text.
func (c *OpenAIClient) ChatCompletion(ctx context.Context, model string, messages []ChatMessage) (string, error) {
	body := map[string]any{"model": model, "messages": messages}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.do(ctx, http.MethodPost, "/chat/completions", body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in completion response")
	}
	return out.Choices[0].Message.Content, nil
}

// ---------------------------------------------------------------------------
// HTTP plumbing
// ---------------------------------------------------------------------------

func (c *OpenAIClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("OpenAI-Beta", "assistants=v2")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

func parseAPIError(status int, raw []byte) error {
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	apiErr := &APIError{StatusCode: status}
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
	}
	if apiErr.Message == "" {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > 300 {
			msg = msg[:300]
		}
		apiErr.Message = msg
	}
	return apiErr
}
