package http

import (
	"context"
	"time"
)

// CountdownSleeper waits while logging the remaining time once per tick.
type CountdownSleeper struct {
	logger Logger
	tick   time.Duration
}

// NewCountdownSleeper creates a sleeper that logs every second at debug level.
func NewCountdownSleeper(logger Logger) *CountdownSleeper {
	return &CountdownSleeper{logger: logger, tick: time.Second}
}

// Sleep blocks for d or until ctx is done.
func (s *CountdownSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	deadline := time.Now().Add(d)

	timer := time.NewTimer(d)
	defer timer.Stop()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case now := <-ticker.C:
			remaining := deadline.Sub(now).Round(time.Second)
			if remaining > 0 && s.logger != nil {
				s.logger.Debug("Waiting for rate limit", map[string]interface{}{
					"remaining_seconds": int(remaining.Seconds()),
				})
			}
		}
	}
}
