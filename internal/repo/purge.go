package repo

import (
	"context"
	"log/slog"
	"time"
)

// RunPurger deletes expired refresh tokens every interval until ctx is cancelled.
func (r *GormRepo) RunPurger(ctx context.Context, every time.Duration, l *slog.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.PurgeExpired(ctx, r.now())
			if err != nil {
				l.Error("refresh_purge_failed", "error", err)
				continue
			}
			if n > 0 {
				l.Info("refresh_purge_done", "deleted", n)
			}
		}
	}
}
