package repository

import (
	"context"
	"time"

	"wallet-orchestrator/internal/domain/entity"
)

// CacheRepository defines the interface for caching balance reads.
type CacheRepository interface {
	// GetBalances retrieves the cached balances of an address on a chain.
	GetBalances(ctx context.Context, address string, chainID int64) ([]entity.TokenBalance, bool, error)

	// SetBalances stores balances of an address on a chain with a specified TTL.
	SetBalances(ctx context.Context, address string, chainID int64, balances []entity.TokenBalance, ttl time.Duration) error

	// GetPrice retrieves a cached USD price for a symbol.
	GetPrice(ctx context.Context, symbol string) (float64, bool, error)

	// SetPrice stores a USD price for a symbol with a specified TTL.
	SetPrice(ctx context.Context, symbol string, price float64, ttl time.Duration) error

	// GetPoolAnalytics retrieves cached analytics for a pool id.
	GetPoolAnalytics(ctx context.Context, poolID string) (*entity.PoolAnalytics, bool, error)

	// SetPoolAnalytics stores analytics for a pool id with a specified TTL.
	SetPoolAnalytics(ctx context.Context, poolID string, analytics *entity.PoolAnalytics, ttl time.Duration) error
}
