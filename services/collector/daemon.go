package collector

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"pricewatch-backend/lib/timezone"
)

// shouldCollect reports whether a tick at `now` lands in one of the
// configured run hours, evaluated in the retailer's home timezone.
func (s Service) shouldCollect(now time.Time) bool {
	return slices.Contains(s.opts.RunHours, now.In(timezone.Location).Hour())
}

// Daemon collects on a schedule until the context ends. Runs fire when
// the clock in the retailer's home timezone enters a configured hour.
func (s Service) Daemon(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.shouldCollect(time.Now()) {
				continue
			}

			runCtx, cancel := context.WithTimeout(ctx, time.Hour)
			_, err := s.Collect(runCtx)
			if err != nil {
				slog.ErrorContext(ctx, "scheduled collection failed", "err", err)
			}
			cancel()
		}
	}
}
