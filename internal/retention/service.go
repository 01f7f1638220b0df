// Package retention removes conversation records whose remote threads
// have aged out. The reasoning service expires idle threads, so records
// older than the retention window point at threads that no longer
// exist.
package retention

import (
	"context"
	"log/slog"
	"time"

	robfigcron "github.com/robfig/cron/v3"

	"github.com/lauruschat/lauruschat/internal/store"
)

// sweepSchedule runs the sweep daily, off-peak.
const sweepSchedule = "0 3 * * *"

// Service sweeps expired conversation records on a fixed schedule.
type Service struct {
	store  store.ConversationStore
	window time.Duration
	cron   *robfigcron.Cron
}

func NewService(st store.ConversationStore, window time.Duration) *Service {
	return &Service{
		store:  st,
		window: window,
		cron:   robfigcron.New(),
	}
}

// Start sweeps once immediately, then on the daily schedule. Blocks
// until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.Sweep(ctx)

	if _, err := s.cron.AddFunc(sweepSchedule, func() { s.Sweep(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	slog.Info("retention: started", "window", s.window)

	<-ctx.Done()
	<-s.cron.Stop().Done()
	return ctx.Err()
}

// Sweep removes records whose updated_at is older than the window.
func (s *Service) Sweep(ctx context.Context) {
	removed, err := s.store.SweepExpired(ctx, s.window)
	if err != nil {
		slog.Error("retention: sweep failed", "err", err)
		return
	}
	if removed > 0 {
		slog.Info("retention: swept expired conversations", "removed", removed)
	}
}
