package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/five82/stockroom/internal/catalog"
)

const (
	defaultPollInterval = 5 * time.Second
	maxBackoff          = 30 * time.Second
)

// refresher is the part of state.Store the poller drives.
type refresher interface {
	FetchAll(ctx context.Context) ([]catalog.Product, error)
}

// StartPoller launches a background goroutine that refreshes the store every
// interval, backing off while fetches fail. It returns immediately; the
// returned channel closes once the goroutine has exited.
func StartPoller(ctx context.Context, store refresher, interval time.Duration, log *zap.Logger) <-chan struct{} {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		failures := 0
		for {
			wait := calculateBackoff(failures, interval)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			if _, err := store.FetchAll(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
				log.Warn("poll failed",
					zap.Error(err),
					zap.Int("failures", failures),
					zap.Duration("next_in", calculateBackoff(failures, interval)))
				continue
			}
			if failures > 0 {
				log.Info("poll recovered", zap.Int("after_failures", failures))
			}
			failures = 0
		}
	}()
	return done
}

// calculateBackoff doubles base for each consecutive failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
