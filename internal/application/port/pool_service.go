package port

import (
	"context"

	"wallet-orchestrator/internal/domain/entity"
)

// PoolService serves liquidity pool analytics.
type PoolService interface {
	// GetPoolAnalytics returns analytics for poolID. An empty id selects the
	// configured pool, or the pool the price source reads.
	GetPoolAnalytics(ctx context.Context, poolID string) (*entity.PoolAnalytics, error)
}
