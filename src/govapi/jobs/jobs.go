// Package jobs runs the periodic background work: the lifecycle sweep.
package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ncatdao/govapi/src/govapi/service"
)

// RunSweeper triggers the lifecycle sweep on interval until ctx is
// cancelled. A failed sweep is logged and retried on the next tick; it never
// takes the process down.
func RunSweeper(ctx context.Context, svc *service.Service, interval time.Duration, lgr *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep(ctx, svc, lgr)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(ctx, svc, lgr)
		}
	}
}

func sweep(ctx context.Context, svc *service.Service, lgr *zap.Logger) {
	lgr.Info("updating proposals")
	if err := svc.RunLifecycleSweep(ctx); err != nil {
		lgr.Error("lifecycle sweep failed", zap.Error(err))
	}
}
