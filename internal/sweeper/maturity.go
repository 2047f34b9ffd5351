package sweeper

import (
	"context"

	"custody-capital-go/internal/metrics"

	"go.uber.org/zap"
)

// MaturitySource lists active allocations whose lock has expired.
type MaturitySource interface {
	MaturedAllocations(ctx context.Context) []uint64
}

// MaturityJob publishes the number of matured allocations awaiting
// withdrawal.
func MaturityJob(source MaturitySource) func(context.Context) {
	return func(ctx context.Context) {
		ids := source.MaturedAllocations(ctx)
		metrics.MaturedAllocations.Set(float64(len(ids)))

		if len(ids) == 0 {
			zap.L().Debug("No matured allocations")
			return
		}
		zap.L().Info("Matured allocations awaiting withdrawal",
			zap.Int("count", len(ids)),
			zap.Uint64s("allocation_ids", ids))
	}
}
