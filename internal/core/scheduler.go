package core

// scheduler.go runs background maintenance for the service.
//
// The session janitor removes upload sessions that have been idle longer than
// the session TTL, together with their cached row results. It runs until its
// context is cancelled.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often the janitor runs when no interval is given.
const DefaultSweepInterval = 5 * time.Minute

// StartSessionJanitor periodically expires idle sessions.
// The janitor stops when the context is cancelled.
func (s *Service) StartSessionJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	slog.Info("session janitor started",
		"interval", interval.String(),
		"ttl", s.sessionTTL.String(),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session janitor stopped")
			return
		case <-ticker.C:
			s.sweepSessions()
		}
	}
}

func (s *Service) sweepSessions() {
	start := time.Now()
	if n := s.ExpireSessions(); n > 0 {
		slog.Info("expired idle sessions",
			"sessions_removed", n,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
