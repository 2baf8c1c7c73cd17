package listener

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const maxBackoff = 30 * time.Second

// StartPoller launches a background goroutine that calls refresh every
// interval, backing off while refresh keeps failing. A non-positive interval
// disables polling. It returns immediately.
func StartPoller(ctx context.Context, refresh func(context.Context) error, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		return
	}
	go func() {
		timer := time.NewTimer(interval)
		defer timer.Stop()

		failures := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}

			if err := refresh(ctx); err != nil {
				failures++
				next := calculateBackoff(failures, interval)
				logger.Debug().Err(err).Int("failures", failures).Dur("next", next).Msg("cart_poll_failed")
				timer.Reset(next)
				continue
			}
			failures = 0
			timer.Reset(interval)
		}
	}()
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff (or base, when base is already larger).
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	limit := max(maxBackoff, base)
	d := base
	for range failures {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	return d
}
