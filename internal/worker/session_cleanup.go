package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/member-registry/internal/observability"
	"github.com/spec-kit/member-registry/internal/ussd"
)

// StartSessionCleanup runs a periodic sweep removing idle USSD sessions.
// Expiry correctness is handled lazily at lookup time; this loop keeps the
// backing store small and the active-session gauge honest.
func StartSessionCleanup(ctx context.Context, store ussd.SessionStore, interval time.Duration, metrics *observability.Metrics, logger *zap.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				purged, err := store.PurgeStale(ctx, now)
				if err != nil {
					logger.Warn("session cleanup sweep failed", zap.Error(err))
					continue
				}
				if purged > 0 {
					logger.Info("purged stale ussd sessions", zap.Int("count", purged))
				}
				if active, err := store.ActiveSessions(ctx); err == nil {
					metrics.SetActiveSessions(len(active))
				}
			}
		}
	}()
}
