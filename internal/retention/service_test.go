package retention

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lauruschat/lauruschat/internal/store"
)

type sweepRecorder struct {
	store.ConversationStore

	calls   atomic.Int32
	window  time.Duration
	removed int
	err     error
}

func (s *sweepRecorder) SweepExpired(_ context.Context, window time.Duration) (int, error) {
	s.calls.Add(1)
	s.window = window
	return s.removed, s.err
}

func TestSweep_PassesWindow(t *testing.T) {
	rec := &sweepRecorder{removed: 3}
	svc := NewService(rec, 30*24*time.Hour)

	svc.Sweep(context.Background())
	if rec.calls.Load() != 1 {
		t.Fatalf("sweep called %d times", rec.calls.Load())
	}
	if rec.window != 30*24*time.Hour {
		t.Errorf("window = %s", rec.window)
	}
}

func TestSweep_StoreErrorTolerated(t *testing.T) {
	rec := &sweepRecorder{err: errors.New("disk gone")}
	svc := NewService(rec, time.Hour)

	// Must not panic; next scheduled sweep will retry.
	svc.Sweep(context.Background())
	if rec.calls.Load() != 1 {
		t.Fatalf("sweep called %d times", rec.calls.Load())
	}
}

func TestStart_SweepsImmediately(t *testing.T) {
	rec := &sweepRecorder{}
	svc := NewService(rec, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	deadline := time.After(2 * time.Second)
	for rec.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("no sweep ran after Start")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not stop on cancel")
	}
}
