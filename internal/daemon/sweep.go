package daemon

import (
	"context"
	"time"

	"scribe/internal/logging"
)

const defaultSweepInterval = 30 * time.Minute

// runSweeper periodically expires terminal jobs from the registry and
// prunes matching rows from the history archive. A non-positive TTL
// disables retention entirely.
func (d *Daemon) runSweeper(ctx context.Context) {
	ttl := time.Duration(d.cfg.Jobs.TTLHours) * time.Hour
	if ttl <= 0 {
		return
	}
	interval := time.Duration(d.cfg.Jobs.CleanupIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			d.sweep(ctx, now, ttl)
		}
	}
}

func (d *Daemon) sweep(ctx context.Context, now time.Time, ttl time.Duration) {
	removed := d.store.SweepExpired(now, ttl)
	pruned, err := d.history.Prune(ctx, now.Add(-ttl))
	if err != nil {
		d.logger.Warn("prune history", logging.Error(err))
	}
	if removed > 0 || pruned > 0 {
		d.logger.Info("retention sweep",
			logging.Int("jobs_removed", removed),
			logging.Int64("history_pruned", pruned))
	}
}
