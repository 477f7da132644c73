package core

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically evicts idle sessions. It is the only autonomous
// mutation source in the system and funnels every eviction through the same
// lock-guarded leave primitive as an explicit leave.
type Sweeper struct {
	service     *Service
	interval    time.Duration
	idleTimeout time.Duration
}

// NewSweeper builds a sweeper that scans every interval and evicts sessions
// idle for longer than idleTimeout.
func NewSweeper(svc *Service, interval, idleTimeout time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Second
	}
	return &Sweeper{service: svc, interval: interval, idleTimeout: idleTimeout}
}

// Run blocks, sweeping on a ticker until ctx is cancelled.
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("idle sweeper started", "interval", w.interval, "idle_timeout", w.idleTimeout)
	for {
		select {
		case <-ctx.Done():
			slog.Info("idle sweeper stopped")
			return
		case <-ticker.C:
			w.service.EvictIdle(w.idleTimeout)
		}
	}
}
