package core

// sweeper.go evicts idle sessions in the background. Sessions hold a full
// copy of their dataset, so abandoned browser tabs would otherwise pin memory
// until restart.

import (
	"context"
	"log/slog"
	"time"
)

// SweepConfig holds the idle session sweeper settings.
type SweepConfig struct {
	IdleTimeout time.Duration // sessions unused this long are closed
	Interval    time.Duration // how often to sweep
}

// StartSessionSweeper runs SweepIdleSessions immediately and then every
// Interval until ctx is cancelled. It blocks, so run it in a goroutine.
func (s *Service) StartSessionSweeper(ctx context.Context, cfg SweepConfig) {
	slog.Info("session sweeper started",
		"idle_timeout", cfg.IdleTimeout,
		"interval", cfg.Interval,
	)

	s.runSweep(cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.runSweep(cfg)
		}
	}
}

func (s *Service) runSweep(cfg SweepConfig) {
	start := time.Now()
	evicted := s.SweepIdleSessions(cfg.IdleTimeout)
	if evicted == 0 {
		return
	}
	slog.Info("idle sessions evicted",
		"evicted", evicted,
		"remaining", s.SessionCount(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
