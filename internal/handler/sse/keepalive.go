package sse

import (
	"context"
	"log/slog"
	"time"
)

// pinger is anything that can write an SSE comment frame
type pinger interface {
	WriteKeepAlive() error
}

// keepAlive pings w every interval until ctx is done or a write fails.
// The returned channel closes once the pinging goroutine has exited, so
// callers can wait for it before the response writer goes away.
func keepAlive(ctx context.Context, interval time.Duration, w pinger, logger *slog.Logger) <-chan struct{} {
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.WriteKeepAlive(); err != nil {
					logger.Warn("keep-alive write failed, stopping", "error", err)
					return
				}
			}
		}
	}()
	return exited
}
