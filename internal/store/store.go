// Package store persists the mapping from an external identity to its
// remote conversation thread and screening state.
package store

import (
	"context"
	"errors"
	"time"
)

// Screening classifies the caller before full reasoning is engaged.
type Screening string

const (
	// ScreeningPending means the screening question has been asked but not
	// yet answered.
	ScreeningPending Screening = "pending"
	// ScreeningExisting means the caller confirmed they are a current student.
	ScreeningExisting Screening = "existing"
	// ScreeningProspective means the caller said they are not yet a student.
	ScreeningProspective Screening = "prospective"
	// ScreeningUnknown means the reply matched neither YES nor NO.
	// It is terminal; the caller is never re-prompted.
	ScreeningUnknown Screening = "unknown"
)

// Resolved reports whether screening is past the pending stage.
func (s Screening) Resolved() bool {
	return s == ScreeningExisting || s == ScreeningProspective || s == ScreeningUnknown
}

// Record is one conversation record, keyed by external identity.
type Record struct {
	Identity  string
	ThreadRef string
	Screening Screening
	CreatedAt time.Time
	UpdatedAt time.Time
}

var (
	// ErrNotFound is returned by updates against an absent identity.
	ErrNotFound = errors.New("store: record not found")
	// ErrAlreadyExists is returned by Create when the identity is taken.
	ErrAlreadyExists = errors.New("store: record already exists")
)

// ConversationStore is the durable record store contract.
//
// Get reports absence via ok=false, never via an error. All writes are
// durable before the call returns.
type ConversationStore interface {
	Get(ctx context.Context, identity string) (Record, bool, error)
	Create(ctx context.Context, identity, threadRef string) (Record, error)
	SetScreening(ctx context.Context, identity string, s Screening) error
	SetThreadRef(ctx context.Context, identity, threadRef string) error
	// SweepExpired removes records whose UpdatedAt precedes now-window and
	// returns the number removed. Idempotent.
	SweepExpired(ctx context.Context, window time.Duration) (int, error)
}
