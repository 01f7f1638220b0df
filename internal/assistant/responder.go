package assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/lauruschat/lauruschat/internal/providers"
	"github.com/lauruschat/lauruschat/internal/store"
)

const (
	// ScreeningPrompt is sent verbatim on first contact, before any
	// reasoning round runs.
	ScreeningPrompt = `Hi, thank you for your message. To help me assist you with your query, please confirm whether you are an existing student with Laurus Education. Please reply with "YES" or "NO"`

	// BusyReply is returned when the thread rejects a new message because
	// a previous run is still active.
	BusyReply = "Please wait while I look into your query."

	// FailureReply is the catch-all user-visible fallback.
	FailureReply = "Something went wrong processing your request, please try again later or contact a human for support."
)

// ThreadClient is the slice of the Assistants API the responder needs
// for thread lifecycle and message appends.
type ThreadClient interface {
	CreateThread(ctx context.Context) (providers.Thread, error)
	RetrieveThread(ctx context.Context, threadID string) (providers.Thread, error)
	AddMessage(ctx context.Context, threadID, role, content string) error
}

// Runner drives one reasoning round over a thread.
type Runner interface {
	Run(ctx context.Context, threadID, displayName string) (string, error)
}

// Responder owns the per-identity conversation state machine. It always
// returns text to its caller: internal failures map to fixed fallback
// replies rather than errors.
type Responder struct {
	store  store.ConversationStore
	client ThreadClient
	runner Runner
}

func NewResponder(st store.ConversationStore, client ThreadClient, runner Runner) *Responder {
	return &Responder{store: st, client: client, runner: runner}
}

// GenerateResponse handles one inbound message from an identity and
// returns the reply to deliver. displayName may be empty.
func (r *Responder) GenerateResponse(ctx context.Context, message, identity, displayName string) string {
	rec, found, err := r.store.Get(ctx, identity)
	if err != nil {
		slog.Error("conversation lookup failed", "identity", identity, "error", err)
		return FailureReply
	}

	if !found {
		return r.firstContact(ctx, identity, message)
	}

	threadID, ok := r.ensureThread(ctx, rec)
	if !ok {
		return FailureReply
	}

	if rec.Screening == store.ScreeningPending {
		state := classifyScreeningReply(message)
		if err := r.store.SetScreening(ctx, identity, state); err != nil {
			slog.Error("persisting screening state failed", "identity", identity, "error", err)
			return FailureReply
		}
		slog.Info("screening resolved", "identity", identity, "state", state)
	}

	if err := r.client.AddMessage(ctx, threadID, "user", message); err != nil {
		if providers.IsBadRequest(err) {
			// A run is still active on this thread; the service refuses
			// new messages until it settles.
			slog.Warn("thread busy", "identity", identity, "thread_id", threadID)
			return BusyReply
		}
		slog.Error("appending user message failed", "identity", identity, "error", err)
		return FailureReply
	}

	reply, err := r.runner.Run(ctx, threadID, displayName)
	if err != nil {
		if providers.IsBadRequest(err) {
			// Both appends of a rapid double-send can land before either
			// run starts; starting the second run then gets a 400 for
			// the already-active run.
			slog.Warn("thread busy during run", "identity", identity, "thread_id", threadID)
			return BusyReply
		}
		slog.Error("reasoning round failed", "identity", identity, "thread_id", threadID, "error", err)
		return FailureReply
	}
	return reply
}

// firstContact creates the thread and record, records the exchange on
// the thread, and replies with the screening prompt. No reasoning round
// runs on this turn.
func (r *Responder) firstContact(ctx context.Context, identity, message string) string {
	thread, err := r.client.CreateThread(ctx)
	if err != nil {
		slog.Error("thread creation failed", "identity", identity, "error", err)
		return FailureReply
	}
	if _, err := r.store.Create(ctx, identity, thread.ID); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Lost a race with a concurrent first message; the winner's
			// screening prompt covers both.
			slog.Warn("concurrent first contact", "identity", identity)
			return ScreeningPrompt
		}
		slog.Error("record creation failed", "identity", identity, "error", err)
		return FailureReply
	}
	if err := r.client.AddMessage(ctx, thread.ID, "user", message); err != nil {
		slog.Error("recording first message failed", "identity", identity, "error", err)
		return FailureReply
	}
	if err := r.client.AddMessage(ctx, thread.ID, "assistant", ScreeningPrompt); err != nil {
		slog.Error("recording screening prompt failed", "identity", identity, "error", err)
		return FailureReply
	}
	slog.Info("new conversation", "identity", identity, "thread_id", thread.ID)
	return ScreeningPrompt
}

// ensureThread verifies the stored thread still resolves remotely and
// replaces it if the service has expired it. Screening state survives
// the replacement.
func (r *Responder) ensureThread(ctx context.Context, rec store.Record) (string, bool) {
	if _, err := r.client.RetrieveThread(ctx, rec.ThreadRef); err == nil {
		return rec.ThreadRef, true
	}
	slog.Warn("stored thread no longer resolves, recreating", "identity", rec.Identity, "thread_id", rec.ThreadRef)

	thread, err := r.client.CreateThread(ctx)
	if err != nil {
		slog.Error("replacement thread creation failed", "identity", rec.Identity, "error", err)
		return "", false
	}
	if err := r.store.SetThreadRef(ctx, rec.Identity, thread.ID); err != nil {
		slog.Error("persisting replacement thread failed", "identity", rec.Identity, "error", err)
		return "", false
	}
	return thread.ID, true
}

// classifyScreeningReply maps the caller's answer to the screening
// question. Anything but a clear yes or no resolves to unknown, which
// is terminal: the caller is never re-prompted.
func classifyScreeningReply(message string) store.Screening {
	switch strings.ToUpper(strings.TrimSpace(message)) {
	case "YES":
		return store.ScreeningExisting
	case "NO":
		return store.ScreeningProspective
	default:
		return store.ScreeningUnknown
	}
}
