package api

import (
	"context"
	"log/slog"
	"time"
)

// runFinalizer periodically settles NOMINATED items whose countdown has
// expired. Each item is finalized in its own transaction under the same
// per-item lock as bidding, so a bid landing mid-scan simply wins.
func (impl *ServerImpl) runFinalizer(ctx context.Context) {
	logger := slog.Default().With(slog.String("caller", "Finalizer"))
	ticker := time.NewTicker(impl.config.Finalize.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := impl.processor.FinalizeExpired(ctx)
			if err != nil {
				logger.Error("Fail to finalize expired items", slog.Any("error", err))
				continue
			}
			if count > 0 {
				logger.Info("Finalized expired items", slog.Int("count", count))
			}
		}
	}
}
