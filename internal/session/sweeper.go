package session

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often idle sessions are looked for.
const DefaultSweepInterval = 5 * time.Minute

// StartSweeper runs a background goroutine that periodically drops sessions
// idle for longer than ttl. It stops when ctx is done.
func StartSweeper(ctx context.Context, m *Manager, ttl, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				if expired := m.Expire(ttl); len(expired) > 0 {
					slog.Info("Session sweeper removed idle sessions", "count", len(expired), "remaining", m.Len())
				}
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
