package bot

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler runs posting cycles on a fixed interval until its context ends.
type Scheduler struct {
	bot      *Bot
	store    Recorder
	interval time.Duration
	log      *slog.Logger
}

// NewScheduler creates a scheduler posting every interval. Intervals below
// one minute are clamped to one minute.
func NewScheduler(b *Bot, store Recorder, interval time.Duration, log *slog.Logger) *Scheduler {
	if interval < time.Minute {
		interval = time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{bot: b, store: store, interval: interval, log: log}
}

// Run marks the bot running, fires a posting cycle every interval and blocks
// until ctx is canceled. Cycle failures are logged and the schedule
// continues; the running flag is cleared on the way out.
func (s *Scheduler) Run(ctx context.Context) {
	s.store.SetRunning(true)
	defer s.store.SetRunning(false)

	s.log.Info("scheduler started", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler shutting down")
			return
		case <-ticker.C:
			// Cancellation stops scheduling new cycles but never aborts one
			// mid-flight; a post in progress finishes before Run returns.
			cycleCtx := context.WithoutCancel(ctx)
			if _, err := s.bot.GenerateAndPost(cycleCtx, false); err != nil {
				s.log.Error("scheduled post failed", "error", err)
			}
		}
	}
}
