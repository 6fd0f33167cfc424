package queue

import (
	"context"
	"log/slog"
	"time"
)

// StartExpiryJob runs a background sweep that removes participants whose away
// flag has lapsed. Each removal is announced through announce (nil disables
// announcements). The job stops when ctx is cancelled.
func StartExpiryJob(ctx context.Context, m *Manager, interval time.Duration, announce func(text string)) {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	slog.Info("queue expiry sweep starting", slog.Duration("interval", interval), slog.String("component", "queue_sweep"))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("queue expiry sweep stopped", slog.String("component", "queue_sweep"))
			return
		case <-ticker.C:
			for _, msg := range m.ExpireNotAvailable() {
				slog.Info("away participant expired", slog.String("msg", msg), slog.String("component", "queue_sweep"))
				if announce != nil {
					announce(msg)
				}
			}
		}
	}
}
