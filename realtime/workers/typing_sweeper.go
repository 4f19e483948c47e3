package workers

import (
	"context"
	"log/slog"
	"time"

	"task-hub/realtime"
)

// TypingSweeper is the opt-in idle policy for typing presence. Without
// it, a client that hard-disconnects mid-typing stays marked as typing
// forever. The tracker itself still only exposes start/stop; the sweeper
// calls Expire on a fixed cadence.
type TypingSweeper struct {
	log      *slog.Logger
	tracker  *realtime.TypingTracker
	maxIdle  time.Duration
	interval time.Duration
}

func NewTypingSweeper(log *slog.Logger, tracker *realtime.TypingTracker, maxIdle time.Duration) *TypingSweeper {
	return &TypingSweeper{
		log:      log,
		tracker:  tracker,
		maxIdle:  maxIdle,
		interval: maxIdle / 2,
	}
}

func (w *TypingSweeper) Run(ctx context.Context) error {
	w.log.Info("Starting typing sweeper", "max_idle", w.maxIdle)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.tracker.Expire(ctx, w.maxIdle)
		}
	}
}
